package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HandleUploadDocument accepts a multipart PDF upload and starts an async
// upload job. The response carries both the job and the new document in
// its initial processing state.
func (h *Handler) HandleUploadDocument(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return NewBadRequestError("failed to read uploaded file", err)
	}
	defer src.Close()

	doc, job, err := h.jobs.StartUpload(fileHeader.Filename, fileHeader.Size, src)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, map[string]any{
		"jobId":    job.ID,
		"job":      job,
		"document": doc,
	})
}

// HandleListDocuments returns all documents in upload order.
func (h *Handler) HandleListDocuments(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"documents": h.registry.Documents(),
	})
}

// HandleGetDocument returns one document by id.
func (h *Handler) HandleGetDocument(c echo.Context) error {
	id := c.Param("id")
	doc, ok := h.registry.Get(id)
	if !ok {
		return NewNotFoundError("document", id)
	}
	return c.JSON(http.StatusOK, documentResponse(doc))
}

// HandleSelectDocument moves the selection pointer to the document and
// rebuilds the summary. Selecting a non-completed document is accepted but
// changes nothing; a failed summary fallback is reported while the
// selection still moves.
func (h *Handler) HandleSelectDocument(c echo.Context) error {
	id := c.Param("id")
	if _, ok := h.registry.Get(id); !ok {
		return NewNotFoundError("document", id)
	}

	moved, err := h.registry.Select(c.Request().Context(), id)
	if err != nil && !moved {
		return NewInternalError("failed to select document", err)
	}

	resp := map[string]any{
		"selected": moved,
		"summary":  h.registry.Summary(),
	}
	if err != nil {
		resp["warning"] = "summary could not be refreshed: " + err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}
