package document

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/handler"
	"github.com/hcen-uy/exchange-hub/internal/middleware"
	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/repository"
	"github.com/hcen-uy/exchange-hub/internal/service/registry"
)

// Handler exposes the RNDC to clinic nodes: registration, search and
// lifecycle of document metadata.
type Handler struct {
	service *registry.Service
}

func NewHandler(service *registry.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	documents := r.Group("/documents")
	{
		documents.POST("", h.RegisterDocument)
		documents.GET("", h.SearchDocuments)
		documents.GET("/:id", h.GetDocument)
		documents.POST("/:id/deactivate", h.DeactivateDocument)
		documents.POST("/:id/reactivate", h.ReactivateDocument)
		documents.DELETE("/:id", h.DeleteDocument)
	}
}

type registerRequest struct {
	PatientCI    string  `json:"patient_ci" binding:"required,ci"`
	DocumentType string  `json:"document_type" binding:"required"`
	Locator      string  `json:"document_locator" binding:"required"`
	Hash         string  `json:"document_hash" binding:"required"`
	CreatedBy    string  `json:"created_by" binding:"required"`
	Title        *string `json:"document_title,omitempty"`
	Description  *string `json:"document_description,omitempty"`
}

func (h *Handler) RegisterDocument(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	clinicID, err := uuid.Parse(c.GetString(middleware.ContextClinicID))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("token carries no clinic ID"))
		return
	}

	doc, err := h.service.Register(c.Request.Context(), registry.RegisterInput{
		PatientCI:    req.PatientCI,
		DocumentType: req.DocumentType,
		Locator:      req.Locator,
		Hash:         req.Hash,
		CreatedBy:    req.CreatedBy,
		ClinicID:     clinicID,
		Title:        req.Title,
		Description:  req.Description,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(doc))
}

func (h *Handler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid document ID"))
		return
	}

	doc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(doc))
}

func (h *Handler) SearchDocuments(c *gin.Context) {
	filters := repository.DocumentFilters{
		PatientCI:    c.Query("patient_ci"),
		DocumentType: c.Query("document_type"),
		Status:       model.DocumentStatus(c.Query("status")),
	}
	if clinicID, err := uuid.Parse(c.Query("clinic_id")); err == nil {
		filters.ClinicID = clinicID
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filters.FromDate = from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filters.ToDate = to
	}

	page := model.Pagination{}
	page.Page, _ = strconv.Atoi(c.Query("page"))
	page.PageSize, _ = strconv.Atoi(c.Query("page_size"))

	result, err := h.service.Search(c.Request.Context(), filters, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) DeactivateDocument(c *gin.Context) {
	h.transition(c, h.service.MarkInactive)
}

func (h *Handler) ReactivateDocument(c *gin.Context) {
	h.transition(c, h.service.Reactivate)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	h.transition(c, h.service.MarkDeleted)
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, actor string) (*model.RndcDocument, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid document ID"))
		return
	}

	doc, err := fn(c.Request.Context(), id, c.GetString(middleware.ContextSubjectCI))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(doc))
}
