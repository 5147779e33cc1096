// Package jobs orchestrates the asynchronous operations of the assistant:
// document uploads, chat queries and report generation. Each runs as a
// background goroutine with simulated progress that a client can poll or
// stream while the analysis call is in flight.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/financeai/backend/internal/analysis"
	"github.com/financeai/backend/internal/chat"
	"github.com/financeai/backend/internal/models"
	"github.com/financeai/backend/internal/registry"
	"github.com/financeai/backend/internal/storage"
)

var (
	// ErrUnsupportedMediaType means the uploaded file is not a PDF.
	ErrUnsupportedMediaType = errors.New("only PDF files are supported")

	// ErrQueryInFlight means a chat query is already being answered.
	ErrQueryInFlight = errors.New("a query is already in flight")

	// ErrReportInFlight means a report is already being generated.
	ErrReportInFlight = errors.New("a report is already being generated")

	// ErrUnsupportedState means the operation needs a company context and
	// no document has established one yet.
	ErrUnsupportedState = errors.New("no company context available")

	// ErrJobNotFound means the job id is unknown.
	ErrJobNotFound = errors.New("job not found")
)

// Simulated progress pacing. Upload jobs climb in fixed steps, report jobs
// in random ones; both park just under completion until the analysis call
// actually returns.
const (
	uploadTickInterval = 200 * time.Millisecond
	uploadTickStep     = 10
	uploadProgressCap  = 90

	reportTickInterval = 500 * time.Millisecond
	reportMaxStep      = 15
	reportProgressCap  = 90
)

// Report generation phases by progress band.
const (
	phaseReportInit   = "Initializing PDF generation..."
	phaseReportData   = "Analyzing financial data..."
	phaseReportCharts = "Creating charts and visualizations..."
	phaseReportPDF    = "Generating PDF report..."
	phaseReportDone   = "PDF generated successfully!"
	phaseReportError  = "Error generating PDF"
)

// Analysis is the slice of the analysis client the manager needs.
type Analysis interface {
	Overview(ctx context.Context) (*models.RawFinancialRecord, error)
	UploadPDF(ctx context.Context, name string, content io.Reader) (*models.RawFinancialRecord, error)
	Ask(ctx context.Context, question string) (string, error)
	GenerateReport(ctx context.Context, company string) (*analysis.ReportInfo, error)
	DownloadReport(ctx context.Context, filename string) (io.ReadCloser, error)
}

// Manager owns the job table and the single-flight flags for queries and
// reports. Upload jobs may run in any number concurrently.
type Manager struct {
	mu           sync.RWMutex
	jobs         map[string]*models.Job
	reportActive bool

	analysis Analysis
	registry *registry.Registry
	log      *chat.Log
	uploads  storage.Store
	reports  storage.Store
}

// NewManager creates a job manager wired to its collaborators.
func NewManager(a Analysis, reg *registry.Registry, log *chat.Log, uploads, reports storage.Store) *Manager {
	return &Manager{
		jobs:     make(map[string]*models.Job),
		analysis: a,
		registry: reg,
		log:      log,
		uploads:  uploads,
		reports:  reports,
	}
}

// Job returns a snapshot copy of one job.
func (m *Manager) Job(id string) (models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, ErrJobNotFound
	}
	return *job, nil
}

// StartUpload validates the file, registers a document and kicks off the
// background upload job. The returned document and job snapshots reflect
// the initial processing state.
func (m *Manager) StartUpload(name string, size int64, content io.Reader) (models.Document, models.Job, error) {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return models.Document{}, models.Job{}, ErrUnsupportedMediaType
	}

	doc := models.NewDocument(name, size)
	if err := m.registry.Add(doc); err != nil {
		return models.Document{}, models.Job{}, err
	}

	// Spool the content so the caller's request body can be closed.
	info, err := m.uploads.Save(name, content)
	if err != nil {
		if markErr := m.registry.MarkFailed(doc.ID); markErr != nil {
			fmt.Printf("[Upload] Warning: %v\n", markErr)
		}
		return models.Document{}, models.Job{}, fmt.Errorf("spooling upload: %w", err)
	}

	job := models.NewJob(models.JobKindUpload)
	job.DocumentID = doc.ID
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.runUpload(job.ID, doc.ID, name, info.ID)

	return *doc, *job, nil
}

// StartQuery claims the single query slot, records the user message and
// kicks off the background answer job.
func (m *Manager) StartQuery(question string) (models.Job, error) {
	if !m.log.TryBeginThinking() {
		return models.Job{}, ErrQueryInFlight
	}
	m.log.Append(models.RoleUser, question)

	job := models.NewJob(models.JobKindQuery)
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.runQuery(job.ID, question)

	return *job, nil
}

// StartReport claims the single report slot and kicks off the background
// generation job for the current company context.
func (m *Manager) StartReport() (models.Job, error) {
	company := m.registry.CompanyContext()
	if company == "" {
		return models.Job{}, ErrUnsupportedState
	}

	m.mu.Lock()
	if m.reportActive {
		m.mu.Unlock()
		return models.Job{}, ErrReportInFlight
	}
	m.reportActive = true
	job := models.NewJob(models.JobKindReport)
	job.Phase = phaseReportInit
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.runReport(job.ID, company)

	return *job, nil
}

func (m *Manager) runUpload(jobID, docID, name, fileID string) {
	fmt.Printf("[UploadJob %s] Starting analysis: %s\n", jobID[:8], name)
	stop := m.startTicker(jobID, uploadTickInterval, func(job *models.Job) {
		if job.Progress+uploadTickStep <= uploadProgressCap {
			job.Progress += uploadTickStep
		} else {
			job.Progress = uploadProgressCap
		}
	})
	defer stop()

	content, err := m.uploads.Open(fileID)
	if err != nil {
		m.failUpload(jobID, docID, name, err)
		return
	}
	defer content.Close()

	rec, err := m.analysis.UploadPDF(context.Background(), name, content)
	if err != nil {
		m.failUpload(jobID, docID, name, err)
		return
	}

	insights := deriveInsights(rec)
	if err := m.registry.MarkCompleted(docID, rec, insights); err != nil {
		fmt.Printf("[UploadJob %s] Warning: %v\n", jobID[:8], err)
	}
	m.registry.SetSelectionAndSummary(docID, rec)

	msg := fmt.Sprintf("Successfully processed %s! I've extracted financial data", name)
	if rec != nil && rec.CompanyInfo != nil && rec.CompanyInfo.Name != "" {
		msg += fmt.Sprintf(" for %s", rec.CompanyInfo.Name)
	}
	msg += ". You can now ask me questions about this document."
	m.log.AppendAssistant(msg)

	m.completeJob(jobID, "")
	fmt.Printf("[UploadJob %s] Analysis complete: %s\n", jobID[:8], name)

	// Keep the summary aligned with the service's view of the latest
	// document. A failure here does not undo the completed upload.
	if err := m.registry.RefreshOverview(context.Background()); err != nil {
		fmt.Printf("[UploadJob %s] Warning: overview refresh failed: %v\n", jobID[:8], err)
	}
}

func (m *Manager) failUpload(jobID, docID, name string, cause error) {
	if err := m.registry.MarkFailed(docID); err != nil {
		fmt.Printf("[UploadJob %s] Warning: %v\n", jobID[:8], err)
	}
	m.log.AppendAssistant(fmt.Sprintf(
		"Sorry, I encountered an error processing %s. Please make sure the analysis service is running and try again.", name))
	m.failJob(jobID, cause.Error(), "")
}

func (m *Manager) runQuery(jobID, question string) {
	fmt.Printf("[QueryJob %s] Answering: %.60s\n", jobID[:8], question)

	answer, err := m.analysis.Ask(context.Background(), question)

	m.log.EndThinking()
	switch {
	case err != nil:
		// The conversation still gets a reply; the job records the failure.
		m.log.AppendAssistant(chat.FallbackAnswer())
		m.failJob(jobID, err.Error(), "")
	case strings.TrimSpace(answer) == "":
		m.log.AppendAssistant(chat.EmptyAnswerReply)
		m.completeJob(jobID, "")
	default:
		m.log.AppendAssistant(chat.FormatAnswer(answer))
		m.completeJob(jobID, "")
	}
}

func (m *Manager) runReport(jobID, company string) {
	defer m.endReport()
	fmt.Printf("[ReportJob %s] Generating report for %s\n", jobID[:8], company)

	stop := m.startTicker(jobID, reportTickInterval, advanceReport)
	defer stop()

	info, err := m.analysis.GenerateReport(context.Background(), company)
	if err != nil {
		m.failReport(jobID, err)
		return
	}

	content, err := m.analysis.DownloadReport(context.Background(), info.PDFFilename)
	if err != nil {
		m.failReport(jobID, err)
		return
	}
	defer content.Close()

	if _, err := m.reports.Save(info.PDFFilename, content); err != nil {
		m.failReport(jobID, err)
		return
	}

	m.log.AppendAssistant(fmt.Sprintf(
		"PDF report generated successfully!\n\nCompany: %s\nSymbol: %s\nFile: %s\nGenerated: %s",
		info.Company, info.Symbol, info.PDFFilename, info.GenerationTime))
	m.completeJob(jobID, phaseReportDone)
	fmt.Printf("[ReportJob %s] Report saved: %s\n", jobID[:8], info.PDFFilename)
}

func (m *Manager) failReport(jobID string, cause error) {
	m.log.AppendAssistant(fmt.Sprintf(
		"Sorry, I couldn't generate the PDF report. %s Please make sure the analysis service is running and try again.", cause.Error()))
	m.failJob(jobID, cause.Error(), phaseReportError)
	fmt.Printf("[ReportJob %s] Error: %v\n", jobID[:8], cause)
}

func (m *Manager) endReport() {
	m.mu.Lock()
	m.reportActive = false
	m.mu.Unlock()
}

// advanceReport moves report progress by a random step and derives the
// phase from the progress band.
func advanceReport(job *models.Job) {
	step := rand.Float64() * reportMaxStep
	if job.Progress+step <= reportProgressCap {
		job.Progress += step
	} else {
		job.Progress = reportProgressCap
	}
	switch {
	case job.Progress < 30:
		job.Phase = phaseReportData
	case job.Progress < 60:
		job.Phase = phaseReportCharts
	default:
		job.Phase = phaseReportPDF
	}
}

// startTicker advances the job's simulated progress until the returned
// stop function is called or the job leaves the running state. The stop
// function is idempotent.
func (m *Manager) startTicker(jobID string, interval time.Duration, advance func(*models.Job)) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.mu.Lock()
				job, ok := m.jobs[jobID]
				if !ok || job.State != models.JobStateRunning {
					m.mu.Unlock()
					return
				}
				advance(job)
				m.mu.Unlock()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func (m *Manager) completeJob(jobID, phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.State.Terminal() {
		return
	}
	job.State = models.JobStateSucceeded
	job.Progress = 100
	if phase != "" {
		job.Phase = phase
	}
	now := time.Now()
	job.CompletedAt = &now
}

func (m *Manager) failJob(jobID, errMsg, phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.State.Terminal() {
		return
	}
	job.State = models.JobStateFailed
	job.Error = errMsg
	if phase != "" {
		job.Phase = phase
	}
	now := time.Now()
	job.CompletedAt = &now
}

// deriveInsights builds the document card facts from the extraction.
func deriveInsights(rec *models.RawFinancialRecord) *models.Insights {
	insights := &models.Insights{
		Category:  "Financial Document",
		RiskLevel: models.RiskLow,
	}
	if rec == nil {
		return insights
	}
	if rec.RevenueData != nil && rec.RevenueData.TotalRevenue != "" {
		insights.TotalAmount = rec.RevenueData.TotalRevenue
	}
	if rec.CompanyInfo != nil && rec.CompanyInfo.Sector != "" {
		insights.Category = rec.CompanyInfo.Sector
	}
	if rec.RisksAndOutlook != nil && rec.RisksAndOutlook.KeyRisks != "" {
		insights.RiskLevel = models.RiskMedium
	}
	return insights
}

// CleanupOldJobs removes terminal jobs older than maxAge.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.State.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}
