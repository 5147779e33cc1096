package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentStatus represents the lifecycle state of an uploaded document.
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusError      DocumentStatus = "error"
)

// Terminal reports whether the status admits no further transition.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusError
}

// RiskLevel classifies a document's headline risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Insights are the headline facts attached to a completed document.
// TotalAmount carries the reported revenue figure as the display string the
// analysis service extracted (e.g. "$5B"); the service never returns a
// machine-readable number for it.
type Insights struct {
	TotalAmount string    `json:"totalAmount"`
	Category    string    `json:"category"`
	RiskLevel   RiskLevel `json:"riskLevel"`
}

// Document represents one uploaded filing tracked by the registry.
// A document is created in processing state and mutated exactly once into a
// terminal state; after that it is immutable.
type Document struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	SizeLabel     string              `json:"size"`
	Status        DocumentStatus      `json:"status"`
	UploadedAt    time.Time           `json:"uploadedAt"`
	Insights      *Insights           `json:"insights,omitempty"`
	FinancialData *RawFinancialRecord `json:"financialData,omitempty"`
}

// NewDocument creates a document in processing state.
func NewDocument(name string, size int64) *Document {
	return &Document{
		ID:         uuid.New().String(),
		Name:       name,
		SizeLabel:  FormatSizeLabel(size),
		Status:     DocumentStatusProcessing,
		UploadedAt: time.Now(),
	}
}

// FormatSizeLabel formats a byte count the way the document library displays
// it.
func FormatSizeLabel(size int64) string {
	return fmt.Sprintf("%.1f MB", float64(size)/1024/1024)
}
