package analysis

import "errors"

var (
	// ErrNoDocumentsYet means the service has no extracted data to report.
	ErrNoDocumentsYet = errors.New("no financial documents have been analyzed yet")

	// ErrCompanyNotFound means the service does not know the requested company.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrUploadFailed wraps any failure of the document extraction call.
	ErrUploadFailed = errors.New("document analysis failed")

	// ErrQaFailed wraps any failure of the question answering call.
	ErrQaFailed = errors.New("question answering failed")

	// ErrOverviewFetchFailed wraps any failure of the overview call.
	ErrOverviewFetchFailed = errors.New("overview fetch failed")

	// ErrReportGenerationFailed wraps any failure of report generation,
	// including a response whose status is not the success marker.
	ErrReportGenerationFailed = errors.New("report generation failed")
)
