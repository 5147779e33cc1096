// Package analysis is the HTTP client for the external document analysis
// service: PDF extraction, question answering and report generation.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/financeai/backend/internal/models"
)

// reportSuccessStatus is the status marker the service places in a
// successful report response. Any other status is treated as failure.
const reportSuccessStatus = "PDF report generated successfully"

// Client talks to the analysis service over HTTP. All methods take a
// context and honor its cancellation.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// UploadResult is the extraction response for one uploaded document.
type UploadResult struct {
	Status        string                     `json:"status"`
	Filename      string                     `json:"filename"`
	FinancialData *models.RawFinancialRecord `json:"financial_data"`
}

// Overview is the service's view of the currently loaded document.
type Overview struct {
	FinancialOverview *models.RawFinancialRecord `json:"financial_overview"`
	DataAvailable     bool                       `json:"data_available"`
}

// CompanyProfile is the market data lookup result for one company.
type CompanyProfile struct {
	Symbol    string `json:"symbol"`
	LongName  string `json:"longName"`
	Sector    string `json:"sector"`
	Industry  string `json:"industry"`
	MarketCap any    `json:"marketCap,omitempty"`
}

// ReportInfo describes a generated report file.
type ReportInfo struct {
	Status         string `json:"status"`
	Company        string `json:"company"`
	Symbol         string `json:"symbol"`
	PDFFilename    string `json:"pdf_filename"`
	GenerationTime string `json:"generation_time"`
}

type errorBody struct {
	Error string `json:"error"`
}

// UploadPDF sends the named PDF content for extraction. The returned
// record has been normalized.
func (c *Client) UploadPDF(ctx context.Context, name string, content io.Reader) (*models.RawFinancialRecord, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-pdf", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUploadFailed, readError(resp))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	result.FinancialData.Normalize()
	return result.FinancialData, nil
}

// Ask sends a free-form question about the loaded document.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	u := fmt.Sprintf("%s/financial-qa?q=%s", c.baseURL, url.QueryEscape(question))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrQaFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrQaFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrQaFailed, readError(resp))
	}

	var result struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrQaFailed, err)
	}
	return result.Answer, nil
}

// Overview fetches the service's current extraction. A 400 means nothing
// has been analyzed yet and maps to ErrNoDocumentsYet.
func (c *Client) Overview(ctx context.Context) (*models.RawFinancialRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/company-overview", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOverviewFetchFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOverviewFetchFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return nil, ErrNoDocumentsYet
	default:
		return nil, fmt.Errorf("%w: %s", ErrOverviewFetchFailed, readError(resp))
	}

	var ov Overview
	if err := json.NewDecoder(resp.Body).Decode(&ov); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOverviewFetchFailed, err)
	}
	ov.FinancialOverview.Normalize()
	return ov.FinancialOverview, nil
}

// Company looks up market data for a company by name.
func (c *Client) Company(ctx context.Context, name string) (*CompanyProfile, error) {
	u := fmt.Sprintf("%s/api/company?company=%s", c.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("company lookup: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("company lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrCompanyNotFound
	default:
		return nil, fmt.Errorf("company lookup: %s", readError(resp))
	}

	var profile CompanyProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("company lookup: %w", err)
	}
	return &profile, nil
}

// GenerateReport asks the service to build a PDF report for the company.
// A response whose status is not the success marker is a failure even on
// HTTP 200.
func (c *Client) GenerateReport(ctx context.Context, company string) (*ReportInfo, error) {
	u := fmt.Sprintf("%s/generate-pdf-report?company=%s", c.baseURL, url.QueryEscape(company))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportGenerationFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrReportGenerationFailed, readError(resp))
	}

	var info ReportInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportGenerationFailed, err)
	}
	if info.Status != reportSuccessStatus {
		return nil, fmt.Errorf("%w: unexpected status %q", ErrReportGenerationFailed, info.Status)
	}
	return &info, nil
}

// DownloadReport streams a previously generated report file. The caller
// must close the returned reader.
func (c *Client) DownloadReport(ctx context.Context, filename string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/download-pdf/%s", c.baseURL, url.PathEscape(filename))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportGenerationFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportGenerationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrReportGenerationFailed, readError(resp))
	}
	return resp.Body, nil
}

// readError extracts the service's error message from a non-200 response,
// falling back to the HTTP status when the body is not the usual shape.
func readError(resp *http.Response) string {
	var body errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return resp.Status
}
