package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HandleGenerateReport starts an async report generation job for the
// current company context.
func (h *Handler) HandleGenerateReport(c echo.Context) error {
	job, err := h.jobs.StartReport()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"jobId": job.ID,
		"job":   job,
	})
}

// HandleDownloadReport serves a previously generated report file by its
// display name.
func (h *Handler) HandleDownloadReport(c echo.Context) error {
	filename := c.Param("filename")
	info, err := h.reports.FindByName(filename)
	if err != nil {
		return NewNotFoundError("report", filename)
	}

	path, err := h.reports.GetFilePath(info.ID)
	if err != nil {
		return NewNotFoundError("report", filename)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().Header().Set(echo.HeaderContentType, "application/pdf")
	return c.File(path)
}
