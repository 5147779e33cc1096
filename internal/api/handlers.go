// Package api holds the Echo handlers for the assistant's HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/financeai/backend/internal/analysis"
	"github.com/financeai/backend/internal/chat"
	"github.com/financeai/backend/internal/jobs"
	"github.com/financeai/backend/internal/models"
	"github.com/financeai/backend/internal/registry"
	"github.com/financeai/backend/internal/storage"
)

// progressStreamInterval paces the SSE job progress stream.
const progressStreamInterval = 100 * time.Millisecond

// CompanyLookup resolves market data for a company through the analysis
// service.
type CompanyLookup interface {
	Company(ctx context.Context, name string) (*analysis.CompanyProfile, error)
}

// Handler is the API handler. One instance serves all routes.
type Handler struct {
	jobs      *jobs.Manager
	registry  *registry.Registry
	log       *chat.Log
	questions *chat.SuggestedQuestions
	reports   storage.Store
	company   CompanyLookup
}

// NewHandler creates a new API handler.
func NewHandler(jm *jobs.Manager, reg *registry.Registry, log *chat.Log, questions *chat.SuggestedQuestions, reports storage.Store, company CompanyLookup) *Handler {
	return &Handler{
		jobs:      jm,
		registry:  reg,
		log:       log,
		questions: questions,
		reports:   reports,
		company:   company,
	}
}

// HandleHealth returns a simple health check response.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "finance-agent-backend",
	})
}

// HandleJobStatus returns a snapshot of one job.
func (h *Handler) HandleJobStatus(c echo.Context) error {
	id := c.Param("jobId")
	job, err := h.jobs.Job(id)
	if err != nil {
		return NewNotFoundError("job", id)
	}
	return c.JSON(http.StatusOK, job)
}

// HandleJobProgressStream streams job progress via SSE for real-time
// updates, sending only on change and closing once the job is terminal.
func (h *Handler) HandleJobProgressStream(c echo.Context) error {
	id := c.Param("jobId")

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	writeEvent := func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Response(), "data: %s\n\n", data)
		c.Response().Flush()
	}

	job, err := h.jobs.Job(id)
	if err != nil {
		writeEvent(map[string]string{"error": "job not found"})
		return nil
	}
	writeEvent(job)
	if job.State.Terminal() {
		return nil
	}

	ticker := time.NewTicker(progressStreamInterval)
	defer ticker.Stop()

	lastProgress := job.Progress
	lastPhase := job.Phase
	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
			job, err = h.jobs.Job(id)
			if err != nil {
				writeEvent(map[string]string{"error": "job not found"})
				return nil
			}

			// Only send update if something the client renders changed
			if job.Progress != lastProgress || job.Phase != lastPhase || job.State.Terminal() {
				lastProgress = job.Progress
				lastPhase = job.Phase
				writeEvent(job)
			}

			if job.State.Terminal() {
				return nil
			}
		}
	}
}

// HandleCompany looks up market data for a company by name.
func (h *Handler) HandleCompany(c echo.Context) error {
	name := c.QueryParam("company")
	if name == "" {
		return NewValidationError("company")
	}

	profile, err := h.company.Company(c.Request().Context(), name)
	if err != nil {
		if mapped := mapDomainError(err); mapped != err {
			return mapped
		}
		return NewUpstreamError("company lookup failed", err)
	}
	return c.JSON(http.StatusOK, profile)
}

// HandleSummary returns the current financial summary.
func (h *Handler) HandleSummary(c echo.Context) error {
	summary := h.registry.Summary()
	return c.JSON(http.StatusOK, summary)
}

// HandleChatMessages returns the full conversation transcript.
func (h *Handler) HandleChatMessages(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"messages": h.log.Messages(),
		"thinking": h.log.Thinking(),
	})
}

// HandleChatMessagesMsgpack returns the transcript in msgpack for clients
// that poll it frequently.
func (h *Handler) HandleChatMessagesMsgpack(c echo.Context) error {
	data, err := msgpack.Marshal(map[string]any{
		"messages": h.log.Messages(),
		"thinking": h.log.Thinking(),
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleChatSuggestions returns the suggested questions for the current
// document state.
func (h *Handler) HandleChatSuggestions(c echo.Context) error {
	_, hasDocument := h.registry.Selected()
	return c.JSON(http.StatusOK, map[string]any{
		"questions": h.questions.For(hasDocument),
	})
}

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Question string `json:"question"`
}

// HandleChat starts an async query job for the question.
func (h *Handler) HandleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Question == "" {
		return NewValidationError("question")
	}

	job, err := h.jobs.StartQuery(req.Question)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"jobId": job.ID,
		"job":   job,
	})
}

// RegisterRoutes wires all routes onto the group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.HandleHealth)

	g.POST("/documents", h.HandleUploadDocument)
	g.GET("/documents", h.HandleListDocuments)
	g.GET("/documents/:id", h.HandleGetDocument)
	g.POST("/documents/:id/select", h.HandleSelectDocument)

	g.GET("/jobs/:jobId/status", h.HandleJobStatus)
	g.GET("/jobs/:jobId/progress", h.HandleJobProgressStream)

	g.GET("/summary", h.HandleSummary)
	g.GET("/company", h.HandleCompany)

	g.POST("/chat", h.HandleChat)
	g.GET("/chat/messages", h.HandleChatMessages)
	g.GET("/chat/messages/msgpack", h.HandleChatMessagesMsgpack)
	g.GET("/chat/suggestions", h.HandleChatSuggestions)

	g.POST("/report", h.HandleGenerateReport)
	g.GET("/report/files/:filename", h.HandleDownloadReport)
}

// helper used by handlers returning a document payload
func documentResponse(doc models.Document) map[string]any {
	return map[string]any{"document": doc}
}
