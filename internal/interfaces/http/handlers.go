package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/application/service"
	"github.com/vansh-000/CampusOne/internal/domain/workflow"
	"github.com/vansh-000/CampusOne/internal/importer"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	applications service.ApplicationService
	imports      service.ImportService
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	applications service.ApplicationService,
	imports service.ImportService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		applications: applications,
		imports:      imports,
		logger:       logger,
	}
}

// Response is the standard JSON envelope. Code mirrors the HTTP status.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Code    int         `json:"code"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
		Code:    status,
	})
}

// respondError maps service errors onto the envelope. Anything outside the
// known taxonomy is a 500 with a generic message; the cause is logged, not
// leaked.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, importer.ErrUnsupportedFormat):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, port.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, port.ErrConflict),
		errors.Is(err, port.ErrDuplicate),
		errors.Is(err, workflow.ErrTerminalStatus),
		errors.Is(err, workflow.ErrInvalidAction):
		status = http.StatusConflict
		message = err.Error()
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	c.JSON(status, Response{
		Success: false,
		Message: message,
		Code:    status,
	})
}

// HealthCheck handles GET /healthz
func (h *Handlers) HealthCheck(c *gin.Context) {
	respond(c, http.StatusOK, "ok", gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateApplicationRequest is the body for POST /applications
type CreateApplicationRequest struct {
	ApplicationType string `json:"applicationType"`
	Subject         string `json:"subject"`
	Description     string `json:"description"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	ToUserID        string `json:"toUserId"`
}

// CreateApplication handles POST /api/v1/applications
func (h *Handlers) CreateApplication(c *gin.Context) {
	actor, ok := IdentityFromContext(c)
	if !ok {
		abortUnauthorized(c, "identity not resolved")
		return
	}

	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: invalid startDate", service.ErrValidation))
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: invalid endDate", service.ErrValidation))
		return
	}

	app, err := h.applications.Create(c.Request.Context(), actor, service.CreateApplicationInput{
		ApplicationType: req.ApplicationType,
		Subject:         req.Subject,
		Description:     req.Description,
		StartDate:       startDate,
		EndDate:         endDate,
		ToUserID:        req.ToUserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "application created", app)
}

// TransitionRequest is the body for forward/approve/reject
type TransitionRequest struct {
	ToUserID string `json:"toUserId"`
	Message  string `json:"message"`
}

// ForwardApplication handles POST /api/v1/applications/:id/forward
func (h *Handlers) ForwardApplication(c *gin.Context) {
	actor, ok := IdentityFromContext(c)
	if !ok {
		abortUnauthorized(c, "identity not resolved")
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	node, err := h.applications.Forward(c.Request.Context(), actor, c.Param("id"), req.ToUserID, req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "application forwarded", node)
}

// ApproveApplication handles POST /api/v1/applications/:id/approve
func (h *Handlers) ApproveApplication(c *gin.Context) {
	actor, ok := IdentityFromContext(c)
	if !ok {
		abortUnauthorized(c, "identity not resolved")
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	node, err := h.applications.Approve(c.Request.Context(), actor, c.Param("id"), req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "application approved", node)
}

// RejectApplication handles POST /api/v1/applications/:id/reject
func (h *Handlers) RejectApplication(c *gin.Context) {
	actor, ok := IdentityFromContext(c)
	if !ok {
		abortUnauthorized(c, "identity not resolved")
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	node, err := h.applications.Reject(c.Request.Context(), actor, c.Param("id"), req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "application rejected", node)
}

// GetApplication handles GET /api/v1/applications/:id
func (h *Handlers) GetApplication(c *gin.Context) {
	detail, err := h.applications.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "application retrieved", detail)
}

// ListMyApplications handles GET /api/v1/applications/my
func (h *Handlers) ListMyApplications(c *gin.Context) {
	actor, ok := IdentityFromContext(c)
	if !ok {
		abortUnauthorized(c, "identity not resolved")
		return
	}

	apps, err := h.applications.ListMine(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "applications retrieved", apps)
}

// ListPendingApprovals handles GET /api/v1/applications/pending
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	actor, ok := IdentityFromContext(c)
	if !ok {
		abortUnauthorized(c, "identity not resolved")
		return
	}

	apps, err := h.applications.ListPendingApprovals(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "pending approvals retrieved", apps)
}

// ListProcessedByMe handles GET /api/v1/applications/processed
func (h *Handlers) ListProcessedByMe(c *gin.Context) {
	actor, ok := IdentityFromContext(c)
	if !ok {
		abortUnauthorized(c, "identity not resolved")
		return
	}

	apps, err := h.applications.ListProcessedByMe(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "processed applications retrieved", apps)
}

// ImportRoster handles POST /api/v1/imports/students and
// POST /api/v1/imports/faculty. The uploaded roster is parsed synchronously;
// row processing happens in the import worker, so the response is a 202 with
// the job id to poll.
func (h *Handlers) ImportRoster(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := IdentityFromContext(c)
		if !ok {
			abortUnauthorized(c, "identity not resolved")
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			h.respondError(c, fmt.Errorf("%w: roster file is required", service.ErrValidation))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			h.respondError(c, fmt.Errorf("open uploaded roster: %w", err))
			return
		}
		defer file.Close()

		rows, err := importer.ParseRoster(fileHeader.Filename, file)
		if err != nil {
			if errors.Is(err, importer.ErrUnsupportedFormat) {
				h.respondError(c, err)
				return
			}
			h.respondError(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
			return
		}

		job, err := h.imports.QueueImport(c.Request.Context(), actor, kind, rows)
		if err != nil {
			h.respondError(c, err)
			return
		}
		respond(c, http.StatusAccepted, "import queued", gin.H{
			"importId": job.ID,
			"total":    job.Total,
		})
	}
}

// GetImportJob handles GET /api/v1/imports/:id
func (h *Handlers) GetImportJob(c *gin.Context) {
	job, err := h.imports.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "import retrieved", job)
}

// parseDate accepts RFC3339 or plain yyyy-mm-dd. An empty string is simply
// an absent date.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparseable date %q", value)
}
