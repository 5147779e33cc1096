// Package registry tracks uploaded documents, the selection pointer and
// the current financial summary they project into.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/financeai/backend/internal/models"
	"github.com/financeai/backend/internal/summary"
)

// OverviewFetcher supplies the analysis service's current extraction, used
// as a fallback when a selected document carries no stored data.
type OverviewFetcher interface {
	Overview(ctx context.Context) (*models.RawFinancialRecord, error)
}

// Registry is the in-memory document table plus the selection pointer and
// the summary derived from the selected document. All methods are safe for
// concurrent use. Snapshot accessors return copies; callers never see
// internal state.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	byID       map[string]*models.Document
	selectedID string
	summary    *models.FinancialSummary
	overview   OverviewFetcher
}

// New creates an empty registry with the pre-upload summary in place.
func New(overview OverviewFetcher) *Registry {
	return &Registry{
		byID:     make(map[string]*models.Document),
		summary:  summary.Empty(),
		overview: overview,
	}
}

// Add registers a new document in upload order.
func (r *Registry) Add(doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[doc.ID]; exists {
		return fmt.Errorf("document %s already registered", doc.ID)
	}
	stored := *doc
	r.byID[doc.ID] = &stored
	r.order = append(r.order, doc.ID)
	return nil
}

// MarkCompleted moves a document to its completed state with the extracted
// data and derived insights attached. Fails if the document is unknown or
// already terminal.
func (r *Registry) MarkCompleted(id string, data *models.RawFinancialRecord, insights *models.Insights) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	if doc.Status.Terminal() {
		return fmt.Errorf("document %s already in terminal status %s", id, doc.Status)
	}
	doc.Status = models.DocumentStatusCompleted
	doc.FinancialData = data
	doc.Insights = insights
	return nil
}

// MarkFailed moves a document to its error state. Fails if the document is
// unknown or already terminal.
func (r *Registry) MarkFailed(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	if doc.Status.Terminal() {
		return fmt.Errorf("document %s already in terminal status %s", id, doc.Status)
	}
	doc.Status = models.DocumentStatusError
	return nil
}

// Select moves the selection pointer to the document and rebuilds the
// summary from its stored data. A document without stored data falls back
// to the service overview; if that fetch fails the selection still moves
// but the summary is left untouched, and the error is returned for the
// caller to surface. Selecting a non-completed document is a no-op and
// returns (false, nil).
func (r *Registry) Select(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	doc, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("document %s not found", id)
	}
	if doc.Status != models.DocumentStatusCompleted {
		r.mu.Unlock()
		return false, nil
	}
	r.selectedID = id
	if doc.FinancialData != nil {
		r.summary = summary.Project(doc.FinancialData)
		r.mu.Unlock()
		return true, nil
	}
	r.mu.Unlock()

	// Fallback fetch happens outside the lock; it is a network call.
	rec, err := r.overview.Overview(ctx)
	if err != nil {
		return true, err
	}
	r.mu.Lock()
	r.summary = summary.Project(rec)
	r.mu.Unlock()
	return true, nil
}

// SetSelectionAndSummary points the selection at the document and installs
// a summary projected from the given record in one step. Used after a
// successful upload, where the data is already in hand.
func (r *Registry) SetSelectionAndSummary(id string, data *models.RawFinancialRecord) {
	r.mu.Lock()
	r.selectedID = id
	r.summary = summary.Project(data)
	r.mu.Unlock()
}

// RefreshOverview rebuilds the summary from the service's current
// extraction without moving the selection pointer.
func (r *Registry) RefreshOverview(ctx context.Context) error {
	rec, err := r.overview.Overview(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.summary = summary.Project(rec)
	r.mu.Unlock()
	return nil
}

// Summary returns a copy of the current summary.
func (r *Registry) Summary() models.FinancialSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := *r.summary
	s.KeyMetrics = append([]models.KeyMetric(nil), r.summary.KeyMetrics...)
	s.Alerts = append([]models.Alert(nil), r.summary.Alerts...)
	return s
}

// Documents returns copies of all documents in upload order.
func (r *Registry) Documents() []models.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Document, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Get returns a copy of one document.
func (r *Registry) Get(id string) (models.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[id]
	if !ok {
		return models.Document{}, false
	}
	return *doc, true
}

// Selected returns a copy of the selected document, if any.
func (r *Registry) Selected() (models.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selectedID == "" {
		return models.Document{}, false
	}
	doc, ok := r.byID[r.selectedID]
	if !ok {
		return models.Document{}, false
	}
	return *doc, true
}

// CompanyContext returns the company name to use for report generation:
// the summary's company when it reflects a real document, otherwise empty.
func (r *Registry) CompanyContext() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := r.summary.CompanyName
	if name == summary.NoDocumentCompanyName {
		return ""
	}
	return name
}
