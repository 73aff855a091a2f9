package decision

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/handler"
	"github.com/hcen-uy/exchange-hub/internal/middleware"
	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/service/decision"
)

// Handler exposes the access decision endpoint used by clinic nodes
// before releasing documents. The professional's attributes come from
// the token; only the target of the access comes from the body.
type Handler struct {
	engine *decision.Engine
}

func NewHandler(engine *decision.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/decisions", h.Evaluate)
}

type evaluateRequest struct {
	PatientCI    string     `json:"patient_ci" binding:"required,ci"`
	DocumentID   *uuid.UUID `json:"document_id,omitempty"`
	DocumentType string     `json:"document_type,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

func (h *Handler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	clinicID, err := uuid.Parse(c.GetString(middleware.ContextClinicID))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("token carries no clinic ID"))
		return
	}

	result, err := h.engine.Decide(c.Request.Context(), &model.AccessContext{
		PatientCI:      req.PatientCI,
		ProfessionalID: c.GetString(middleware.ContextSubjectCI),
		Specialties:    c.GetStringSlice(middleware.ContextSpecialties),
		ClinicID:       clinicID,
		DocumentID:     req.DocumentID,
		DocumentType:   req.DocumentType,
		RequestReason:  req.Reason,
		RequestTime:    time.Now(),
	})
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
