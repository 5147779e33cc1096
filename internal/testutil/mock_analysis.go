// mock_analysis.go - Mock analysis service client for testing
package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/financeai/backend/internal/analysis"
	"github.com/financeai/backend/internal/jobs"
	"github.com/financeai/backend/internal/models"
)

// MockAnalysis implements jobs.Analysis for testing. Responses are scripted
// per method; call counts are tracked for assertions.
type MockAnalysis struct {
	mu sync.Mutex

	OverviewRecord *models.RawFinancialRecord
	OverviewErr    error

	UploadRecord *models.RawFinancialRecord
	UploadErr    error

	Answer string
	AskErr error

	ReportResult *analysis.ReportInfo
	ReportErr    error
	ReportFile   []byte

	Profile    *analysis.CompanyProfile
	ProfileErr error

	OverviewCalls int
	UploadCalls   int
	AskCalls      int
	ReportCalls   int
	DownloadCalls int
	CompanyCalls  int

	// UploadedNames records the file names passed to UploadPDF.
	UploadedNames []string
	// AskedQuestions records the questions passed to Ask.
	AskedQuestions []string
}

// NewMockAnalysis creates a mock with no scripted responses.
func NewMockAnalysis() *MockAnalysis {
	return &MockAnalysis{}
}

func (m *MockAnalysis) Overview(ctx context.Context) (*models.RawFinancialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OverviewCalls++
	if m.OverviewErr != nil {
		return nil, m.OverviewErr
	}
	return m.OverviewRecord, nil
}

func (m *MockAnalysis) UploadPDF(ctx context.Context, name string, content io.Reader) (*models.RawFinancialRecord, error) {
	io.Copy(io.Discard, content)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadCalls++
	m.UploadedNames = append(m.UploadedNames, name)
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	return m.UploadRecord, nil
}

func (m *MockAnalysis) Ask(ctx context.Context, question string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AskCalls++
	m.AskedQuestions = append(m.AskedQuestions, question)
	if m.AskErr != nil {
		return "", m.AskErr
	}
	return m.Answer, nil
}

func (m *MockAnalysis) Company(ctx context.Context, name string) (*analysis.CompanyProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompanyCalls++
	if m.ProfileErr != nil {
		return nil, m.ProfileErr
	}
	return m.Profile, nil
}

func (m *MockAnalysis) GenerateReport(ctx context.Context, company string) (*analysis.ReportInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportCalls++
	if m.ReportErr != nil {
		return nil, m.ReportErr
	}
	return m.ReportResult, nil
}

func (m *MockAnalysis) DownloadReport(ctx context.Context, filename string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DownloadCalls++
	if m.ReportErr != nil {
		return nil, m.ReportErr
	}
	if m.ReportFile == nil {
		return nil, errors.New("no report file scripted")
	}
	return io.NopCloser(bytes.NewReader(m.ReportFile)), nil
}

// Ensure MockAnalysis implements jobs.Analysis
var _ jobs.Analysis = (*MockAnalysis)(nil)
