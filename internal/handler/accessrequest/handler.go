package accessrequest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/handler"
	"github.com/hcen-uy/exchange-hub/internal/middleware"
	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/service/accessrequest"
)

// Handler exposes the access-request workflow. Professionals create
// requests; patients respond to their own.
type Handler struct {
	service *accessrequest.Service
}

func NewHandler(service *accessrequest.Service) *Handler {
	return &Handler{service: service}
}

// RegisterProfessionalRoutes mounts the request-creation side.
func (h *Handler) RegisterProfessionalRoutes(r *gin.RouterGroup) {
	r.POST("/access-requests", h.CreateRequest)
}

// RegisterPatientRoutes mounts the response side.
func (h *Handler) RegisterPatientRoutes(r *gin.RouterGroup) {
	requests := r.Group("/access-requests")
	{
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.POST("/:id/approve", h.ApproveRequest)
		requests.POST("/:id/deny", h.DenyRequest)
	}
}

type createRequest struct {
	PatientCI  string        `json:"patient_ci" binding:"required,ci"`
	DocumentID *uuid.UUID    `json:"document_id,omitempty"`
	Reason     string        `json:"reason" binding:"required"`
	Urgency    model.Urgency `json:"urgency,omitempty"`
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	clinicID, err := uuid.Parse(c.GetString(middleware.ContextClinicID))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("token carries no clinic ID"))
		return
	}

	created, err := h.service.Create(c.Request.Context(), accessrequest.CreateInput{
		ProfessionalID: c.GetString(middleware.ContextSubjectCI),
		PatientCI:      req.PatientCI,
		DocumentID:     req.DocumentID,
		Specialties:    c.GetStringSlice(middleware.ContextSpecialties),
		ClinicID:       clinicID,
		Reason:         req.Reason,
		Urgency:        req.Urgency,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) ListRequests(c *gin.Context) {
	status := model.RequestStatus(c.Query("status"))
	requests, err := h.service.ListByPatient(c.Request.Context(), c.GetString(middleware.ContextSubjectCI), status)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func (h *Handler) GetRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	req, err := h.service.Get(c.Request.Context(), id, c.GetString(middleware.ContextSubjectCI))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(req))
}

type respondRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) ApproveRequest(c *gin.Context) {
	h.respond(c, h.service.Approve)
}

func (h *Handler) DenyRequest(c *gin.Context) {
	h.respond(c, h.service.Deny)
}

func (h *Handler) respond(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, patientCI, reason string) (*model.AccessRequest, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	var body respondRequest
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := fn(c.Request.Context(), id, c.GetString(middleware.ContextSubjectCI), body.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}
