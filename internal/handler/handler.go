package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is anything whose reachability gates readiness. The Redis
// cache satisfies it; nil dependencies are skipped.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the operational endpoints: liveness, readiness and
// Prometheus metrics.
type Handler struct {
	db    *sqlx.DB
	cache Pinger
}

func NewHandler(db *sqlx.DB, cache Pinger) *Handler {
	return &Handler{db: db, cache: cache}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now(),
	})
}

// ReadinessCheck verifies the database and the decision cache are
// reachable. The cache being down degrades decisions to cache misses,
// but readiness still reports it so operators see the outage.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "down"
		healthy = false
	} else {
		checks["database"] = "up"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = "down"
		} else {
			checks["cache"] = "up"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "up", "checks": checks})
}

func (h *Handler) MetricsHandler(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}
