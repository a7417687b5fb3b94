package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusfound/custody-workflow/internal/application/service"
	"github.com/campusfound/custody-workflow/internal/domain/request"
	"github.com/campusfound/custody-workflow/internal/sla"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflowService service.WorkflowService
	queryService    service.QueryService
	tracker         *sla.Tracker
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	workflowService service.WorkflowService,
	queryService service.QueryService,
	tracker *sla.Tracker,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflowService: workflowService,
		queryService:    queryService,
		tracker:         tracker,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateRequestBody is the JSON shape for opening a work request
type CreateRequestBody struct {
	Variant             string          `json:"variant" binding:"required"`
	Priority            string          `json:"priority"`
	RequesterID         string          `json:"requester_id" binding:"required"`
	RequesterOrg        string          `json:"requester_org" binding:"required"`
	RequesterEnterprise string          `json:"requester_enterprise"`
	TargetOrg           string          `json:"target_org" binding:"required"`
	TargetEnterprise    string          `json:"target_enterprise"`
	Payload             request.Payload `json:"payload"`
}

// ActionBody carries the acting identity for a transition call
type ActionBody struct {
	ActorID string `json:"actor_id" binding:"required"`
	Reason  string `json:"reason"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	req, err := h.workflowService.Create(c.Request.Context(), service.CreateInput{
		Variant:             request.Variant(body.Variant),
		Priority:            request.Priority(body.Priority),
		RequesterID:         body.RequesterID,
		RequesterOrg:        body.RequesterOrg,
		RequesterEnterprise: body.RequesterEnterprise,
		TargetOrg:           body.TargetOrg,
		TargetEnterprise:    body.TargetEnterprise,
		Payload:             body.Payload,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.workflowService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// GetRequestEvents handles GET /api/requests/:id/events
func (h *Handlers) GetRequestEvents(c *gin.Context) {
	events, err := h.workflowService.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: events})
}

// ListRequests handles GET /api/requests with status=, variant= or
// requester= filters
func (h *Handlers) ListRequests(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		requests []*request.WorkRequest
		err      error
	)
	switch {
	case c.Query("status") != "":
		requests, err = h.queryService.ByStatus(ctx, request.Status(c.Query("status")))
	case c.Query("variant") != "":
		requests, err = h.queryService.ByVariant(ctx, request.Variant(c.Query("variant")))
	case c.Query("requester") != "":
		requests, err = h.queryService.ByRequester(ctx, c.Query("requester"))
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "one of status, variant or requester is required"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// ApproveRequest handles POST /api/requests/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	var body ActionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "actor_id is required"})
		return
	}

	req, err := h.workflowService.Approve(c.Request.Context(), c.Param("id"), body.ActorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// RejectRequest handles POST /api/requests/:id/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	var body ActionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "actor_id is required"})
		return
	}

	req, err := h.workflowService.Reject(c.Request.Context(), c.Param("id"), body.ActorID, body.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// CancelRequest handles POST /api/requests/:id/cancel
func (h *Handlers) CancelRequest(c *gin.Context) {
	var body ActionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "actor_id is required"})
		return
	}

	req, err := h.workflowService.Cancel(c.Request.Context(), c.Param("id"), body.ActorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// CompleteRequest handles POST /api/requests/:id/complete
func (h *Handlers) CompleteRequest(c *gin.Context) {
	req, err := h.workflowService.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// GetStatistics handles GET /api/statistics
func (h *Handlers) GetStatistics(c *gin.Context) {
	stats, err := h.queryService.Statistics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// GetSlaReport handles GET /api/sla/report
func (h *Handlers) GetSlaReport(c *gin.Context) {
	report, err := h.tracker.Sweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// respondError maps domain errors to HTTP statuses so callers can tell
// "not your request" (403) apart from "already handled" (409).
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case request.IsValidationError(err):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, request.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, request.ErrUnauthorized):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: err.Error()})
	case errors.Is(err, request.ErrInvalidState):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
