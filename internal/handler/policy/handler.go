package policy

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/handler"
	"github.com/hcen-uy/exchange-hub/internal/middleware"
	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/service/policy"
)

// Handler exposes the patient-facing policy store. The patient CI
// always comes from the authenticated token, never from the request
// body, so a patient can only manage their own policies.
type Handler struct {
	service *policy.Service
}

func NewHandler(service *policy.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	policies := r.Group("/policies")
	{
		policies.POST("", h.CreatePolicy)
		policies.GET("", h.ListPolicies)
		policies.POST("/:id/revoke", h.RevokePolicy)
		policies.DELETE("/:id", h.DeletePolicy)
	}
}

type createPolicyRequest struct {
	PolicyType model.PolicyType   `json:"policy_type" binding:"required"`
	Effect     model.PolicyEffect `json:"effect" binding:"required"`
	Config     json.RawMessage    `json:"config" binding:"required"`
	Priority   int                `json:"priority"`
	ValidFrom  *time.Time         `json:"valid_from,omitempty"`
	ValidUntil *time.Time         `json:"valid_until,omitempty"`
	DocumentID *uuid.UUID         `json:"document_id,omitempty"`
	ClinicID   *uuid.UUID         `json:"clinic_id,omitempty"`
	Specialty  *string            `json:"specialty,omitempty"`
}

func (h *Handler) CreatePolicy(c *gin.Context) {
	var req createPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p := &model.AccessPolicy{
		PatientCI:  c.GetString(middleware.ContextSubjectCI),
		PolicyType: req.PolicyType,
		Effect:     req.Effect,
		Config:     req.Config,
		Priority:   req.Priority,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		DocumentID: req.DocumentID,
		ClinicID:   req.ClinicID,
		Specialty:  req.Specialty,
	}

	if err := h.service.Create(c.Request.Context(), p); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) ListPolicies(c *gin.Context) {
	policies, err := h.service.List(c.Request.Context(), c.GetString(middleware.ContextSubjectCI))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(policies))
}

func (h *Handler) RevokePolicy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid policy ID"))
		return
	}

	if err := h.service.Revoke(c.Request.Context(), id, c.GetString(middleware.ContextSubjectCI)); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) DeletePolicy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid policy ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, c.GetString(middleware.ContextSubjectCI)); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
