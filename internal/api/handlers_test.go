package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/financeai/backend/internal/analysis"
	"github.com/financeai/backend/internal/chat"
	"github.com/financeai/backend/internal/jobs"
	"github.com/financeai/backend/internal/models"
	"github.com/financeai/backend/internal/registry"
	"github.com/financeai/backend/internal/storage"
	"github.com/financeai/backend/internal/testutil"
)

type testEnv struct {
	echo     *echo.Echo
	handler  *Handler
	mock     *testutil.MockAnalysis
	registry *registry.Registry
	log      *chat.Log
	jobs     *jobs.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock := testutil.NewMockAnalysis()
	uploads, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	reports, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	log := chat.NewLog()
	reg := registry.New(mock)
	jm := jobs.NewManager(mock, reg, log, uploads, reports)
	h := NewHandler(jm, reg, log, chat.DefaultSuggestedQuestions(), reports, mock)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	h.RegisterRoutes(e.Group("/api"))

	return &testEnv{echo: e, handler: h, mock: mock, registry: reg, log: log, jobs: jm}
}

func (env *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) waitJob(t *testing.T, jobID string) models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := env.jobs.Job(jobID)
		require.NoError(t, err)
		if job.State.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return models.Job{}
}

func multipartPDF(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func acmeRecord() *models.RawFinancialRecord {
	return &models.RawFinancialRecord{
		CompanyInfo: &models.CompanyInfo{Name: "Acme Corp"},
		RevenueData: &models.RevenueData{TotalRevenue: "$5B"},
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON(t, rec)["status"])
}

func TestCompanyLookup(t *testing.T) {
	env := newTestEnv(t)
	env.mock.Profile = &analysis.CompanyProfile{
		Symbol:   "ACME",
		LongName: "Acme Corp",
		Sector:   "Industrials",
	}

	rec := env.do(t, http.MethodGet, "/api/company?company=Acme+Corp", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON(t, rec)
	assert.Equal(t, "ACME", resp["symbol"])
	assert.Equal(t, "Acme Corp", resp["longName"])
	assert.Equal(t, 1, env.mock.CompanyCalls)
}

func TestCompanyLookupNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ProfileErr = analysis.ErrCompanyNotFound

	rec := env.do(t, http.MethodGet, "/api/company?company=Nonexistent", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeJSON(t, rec)["code"])
}

func TestCompanyLookupMissingParam(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/company", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeJSON(t, rec)["code"])
}

func TestUploadDocumentAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.mock.UploadRecord = acmeRecord()

	body, contentType := multipartPDF(t, "q4.pdf", "%PDF-1.4")
	rec := env.do(t, http.MethodPost, "/api/documents", body, contentType)
	require.Equal(t, http.StatusAccepted, rec.Code)

	resp := decodeJSON(t, rec)
	jobID, _ := resp["jobId"].(string)
	require.NotEmpty(t, jobID)
	doc := resp["document"].(map[string]any)
	assert.Equal(t, "q4.pdf", doc["name"])
	assert.Equal(t, "processing", doc["status"])

	job := env.waitJob(t, jobID)
	assert.Equal(t, models.JobStateSucceeded, job.State)
	assert.Equal(t, "Acme Corp", env.registry.Summary().CompanyName)
}

func TestUploadDocumentRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartPDF(t, "notes.txt", "hello")
	rec := env.do(t, http.MethodPost, "/api/documents", body, contentType)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", decodeJSON(t, rec)["code"])
}

func TestUploadDocumentMissingFile(t *testing.T) {
	env := newTestEnv(t)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.Close())
	rec := env.do(t, http.MethodPost, "/api/documents", body, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndGetDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.mock.UploadRecord = acmeRecord()

	body, contentType := multipartPDF(t, "q4.pdf", "%PDF-1.4")
	rec := env.do(t, http.MethodPost, "/api/documents", body, contentType)
	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeJSON(t, rec)
	env.waitJob(t, resp["jobId"].(string))
	docID := resp["document"].(map[string]any)["id"].(string)

	rec = env.do(t, http.MethodGet, "/api/documents", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	docs := decodeJSON(t, rec)["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "completed", docs[0].(map[string]any)["status"])

	rec = env.do(t, http.MethodGet, "/api/documents/"+docID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/documents/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeJSON(t, rec)["code"])
}

func TestSelectDocument(t *testing.T) {
	env := newTestEnv(t)
	env.mock.UploadRecord = acmeRecord()

	body, contentType := multipartPDF(t, "q4.pdf", "%PDF-1.4")
	resp := decodeJSON(t, env.do(t, http.MethodPost, "/api/documents", body, contentType))
	env.waitJob(t, resp["jobId"].(string))
	docID := resp["document"].(map[string]any)["id"].(string)

	rec := env.do(t, http.MethodPost, "/api/documents/"+docID+"/select", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON(t, rec)
	assert.Equal(t, true, out["selected"])
	assert.Equal(t, "Acme Corp", out["summary"].(map[string]any)["companyName"])

	rec = env.do(t, http.MethodPost, "/api/documents/missing/select", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobStatusAndNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.mock.UploadRecord = acmeRecord()

	body, contentType := multipartPDF(t, "q4.pdf", "%PDF-1.4")
	resp := decodeJSON(t, env.do(t, http.MethodPost, "/api/documents", body, contentType))
	jobID := resp["jobId"].(string)

	rec := env.do(t, http.MethodGet, "/api/jobs/"+jobID+"/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "upload", decodeJSON(t, rec)["kind"])

	rec = env.do(t, http.MethodGet, "/api/jobs/missing/status", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.waitJob(t, jobID)
}

func TestSummaryEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/summary", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON(t, rec)
	assert.Equal(t, "No document uploaded", out["companyName"])
	assert.Equal(t, "N/A", out["totalRevenue"])
}

func TestChatFlow(t *testing.T) {
	env := newTestEnv(t)
	env.mock.Answer = "Revenue was $5B."

	payload := bytes.NewBufferString(`{"question": "What is revenue?"}`)
	rec := env.do(t, http.MethodPost, "/api/chat", payload, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeJSON(t, rec)["jobId"].(string)

	job := env.waitJob(t, jobID)
	assert.Equal(t, models.JobStateSucceeded, job.State)

	rec = env.do(t, http.MethodGet, "/api/chat/messages", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON(t, rec)
	msgs := out["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, chat.Greeting, msgs[0].(map[string]any)["text"])
	assert.Equal(t, "Revenue was $5B.", msgs[2].(map[string]any)["text"])
	assert.Equal(t, false, out["thinking"])
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/chat", bytes.NewBufferString(`{}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeJSON(t, rec)["code"])
}

func TestChatQueryInFlight(t *testing.T) {
	env := newTestEnv(t)

	// Claim the slot directly so the handler sees it busy.
	require.True(t, env.log.TryBeginThinking())
	defer env.log.EndThinking()

	rec := env.do(t, http.MethodPost, "/api/chat", bytes.NewBufferString(`{"question": "hi"}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "QUERY_IN_FLIGHT", decodeJSON(t, rec)["code"])
}

func TestChatMessagesMsgpack(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/chat/messages/msgpack", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var out map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out, "messages")
	assert.Contains(t, out, "thinking")
}

func TestChatSuggestions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/chat/suggestions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	questions := decodeJSON(t, rec)["questions"].([]any)
	assert.Equal(t, "How do I upload a financial document?", questions[0])

	// After a completed upload the document pool applies.
	env.mock.UploadRecord = acmeRecord()
	body, contentType := multipartPDF(t, "q4.pdf", "%PDF-1.4")
	resp := decodeJSON(t, env.do(t, http.MethodPost, "/api/documents", body, contentType))
	env.waitJob(t, resp["jobId"].(string))

	rec = env.do(t, http.MethodGet, "/api/chat/suggestions", nil, "")
	questions = decodeJSON(t, rec)["questions"].([]any)
	assert.Equal(t, "What is the company's current financial health?", questions[0])
}

func TestReportWithoutCompanyContext(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/report", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "UNSUPPORTED_STATE", decodeJSON(t, rec)["code"])
}

func TestReportFlow(t *testing.T) {
	env := newTestEnv(t)
	env.mock.UploadRecord = acmeRecord()
	env.mock.ReportResult = &analysis.ReportInfo{
		Status:         "PDF report generated successfully",
		Company:        "Acme Corp",
		Symbol:         "ACME",
		PDFFilename:    "Acme_Report.pdf",
		GenerationTime: "2026-08-28T12:00:00",
	}
	env.mock.ReportFile = []byte("%PDF-1.4 report")

	body, contentType := multipartPDF(t, "q4.pdf", "%PDF-1.4")
	resp := decodeJSON(t, env.do(t, http.MethodPost, "/api/documents", body, contentType))
	env.waitJob(t, resp["jobId"].(string))

	rec := env.do(t, http.MethodPost, "/api/report", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeJSON(t, rec)["jobId"].(string)

	job := env.waitJob(t, jobID)
	assert.Equal(t, models.JobStateSucceeded, job.State)
	assert.Equal(t, "PDF generated successfully!", job.Phase)

	rec = env.do(t, http.MethodGet, "/api/report/files/Acme_Report.pdf", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 report", rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "Acme_Report.pdf")

	rec = env.do(t, http.MethodGet, "/api/report/files/missing.pdf", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobProgressStreamTerminalJob(t *testing.T) {
	env := newTestEnv(t)
	env.mock.UploadRecord = acmeRecord()

	body, contentType := multipartPDF(t, "q4.pdf", "%PDF-1.4")
	resp := decodeJSON(t, env.do(t, http.MethodPost, "/api/documents", body, contentType))
	jobID := resp["jobId"].(string)
	env.waitJob(t, jobID)

	rec := env.do(t, http.MethodGet, "/api/jobs/"+jobID+"/progress", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	// A terminal job produces exactly one event and the stream closes.
	events := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, events, 1)
	var job models.Job
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(events[0], "data: ")), &job))
	assert.Equal(t, models.JobStateSucceeded, job.State)
	assert.Equal(t, float64(100), job.Progress)
}

func TestJobProgressStreamUnknownJob(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/jobs/missing/progress", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "job not found")
}
