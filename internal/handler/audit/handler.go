package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hcen-uy/exchange-hub/internal/handler"
	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/service/audit"
)

// Handler exposes the read side of the audit trail.
type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/audit")
	{
		events.GET("/events", h.ListEvents)
	}
}

func (h *Handler) ListEvents(c *gin.Context) {
	filters := map[string]interface{}{}
	if v := c.Query("event_type"); v != "" {
		filters["event_type"] = v
	}
	if v := c.Query("actor_id"); v != "" {
		filters["actor_id"] = v
	}
	if v := c.Query("resource_id"); v != "" {
		filters["resource_id"] = v
	}
	if v := c.Query("resource_type"); v != "" {
		filters["resource_type"] = v
	}
	if v := c.Query("outcome"); v != "" {
		filters["outcome"] = v
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filters["start_date"] = from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filters["end_date"] = to
	}

	page := model.Pagination{}
	page.Page, _ = strconv.Atoi(c.Query("page"))
	page.PageSize, _ = strconv.Atoi(c.Query("page_size"))
	page.Normalize()

	events, total, err := h.service.List(c.Request.Context(), filters, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(&model.PageResult[*model.AuditEvent]{
		Items:    events,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}))
}
