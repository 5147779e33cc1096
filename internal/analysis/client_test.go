package analysis

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestUploadPDF(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/upload-pdf", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "report.pdf", header.Filename)

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 fake", string(content))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "PDF processed successfully",
			"filename": "report.pdf",
			"financial_data": {
				"company_info": {"name": "Acme Corp", "symbol": "ACME"},
				"key_metrics": {"eps": "$3.21", "pe_ratio": "not available"}
			}
		}`))
	})

	rec, err := client.UploadPDF(context.Background(), "report.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Acme Corp", rec.CompanyInfo.Name)
	assert.Equal(t, "$3.21", rec.KeyMetrics.EPS)
	assert.Empty(t, rec.KeyMetrics.PERatio, "sentinel must be normalized away")
}

func TestUploadPDFServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to process PDF: boom"}`))
	})

	_, err := client.UploadPDF(context.Background(), "report.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestAsk(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/financial-qa", r.URL.Path)
		assert.Equal(t, "What is revenue?", r.URL.Query().Get("q"))
		w.Write([]byte(`{"answer": "Revenue was $5B."}`))
	})

	answer, err := client.Ask(context.Background(), "What is revenue?")
	require.NoError(t, err)
	assert.Equal(t, "Revenue was $5B.", answer)
}

func TestAskFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "No financial data available. Please upload a document first."}`))
	})

	_, err := client.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrQaFailed)
}

func TestOverview(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/company-overview", r.URL.Path)
		w.Write([]byte(`{
			"financial_overview": {"company_info": {"name": "Acme Corp"}},
			"data_available": true
		}`))
	})

	rec, err := client.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", rec.CompanyInfo.Name)
}

func TestOverviewNoDocuments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "No financial data available. Please upload a document first."}`))
	})

	_, err := client.Overview(context.Background())
	assert.ErrorIs(t, err, ErrNoDocumentsYet)
}

func TestCompany(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/company", r.URL.Path)
		assert.Equal(t, "Acme Corp", r.URL.Query().Get("company"))
		w.Write([]byte(`{"symbol": "ACME", "longName": "Acme Corporation", "sector": "Industrials"}`))
	})

	profile, err := client.Company(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, "ACME", profile.Symbol)
	assert.Equal(t, "Acme Corporation", profile.LongName)
}

func TestCompanyNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "No symbols found"}`))
	})

	_, err := client.Company(context.Background(), "Nonexistent Inc")
	assert.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestGenerateReport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate-pdf-report", r.URL.Path)
		assert.Equal(t, "Acme Corp", r.URL.Query().Get("company"))
		w.Write([]byte(`{
			"status": "PDF report generated successfully",
			"company": "Acme Corp",
			"symbol": "ACME",
			"pdf_filename": "Acme_Corp_ACME_Financial_Report_20260828_120000.pdf",
			"generation_time": "2026-08-28T12:00:00"
		}`))
	})

	info, err := client.GenerateReport(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, "ACME", info.Symbol)
	assert.Equal(t, "Acme_Corp_ACME_Financial_Report_20260828_120000.pdf", info.PDFFilename)
}

func TestGenerateReportUnexpectedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "something else", "pdf_filename": "x.pdf"}`))
	})

	_, err := client.GenerateReport(context.Background(), "Acme Corp")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReportGenerationFailed)
	assert.Contains(t, err.Error(), "something else")
}

func TestDownloadReport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/download-pdf/report.pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 report body"))
	})

	rc, err := client.DownloadReport(context.Background(), "report.pdf")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 report body", string(content))
}

func TestDownloadReportNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "PDF report not found"}`))
	})

	_, err := client.DownloadReport(context.Background(), "missing.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDF report not found")
}
