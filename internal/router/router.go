package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hcen-uy/exchange-hub/internal/handler"
	accessrequestHandler "github.com/hcen-uy/exchange-hub/internal/handler/accessrequest"
	auditHandler "github.com/hcen-uy/exchange-hub/internal/handler/audit"
	decisionHandler "github.com/hcen-uy/exchange-hub/internal/handler/decision"
	documentHandler "github.com/hcen-uy/exchange-hub/internal/handler/document"
	policyHandler "github.com/hcen-uy/exchange-hub/internal/handler/policy"
	"github.com/hcen-uy/exchange-hub/internal/middleware"
)

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	decisionH *decisionHandler.Handler
	policyH   *policyHandler.Handler
	requestH  *accessrequestHandler.Handler
	documentH *documentHandler.Handler
	auditH    *auditHandler.Handler
	h         *handler.Handler
	metrics   *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	Timeout       time.Duration
	MetricsPrefix string
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	decisionH *decisionHandler.Handler,
	policyH *policyHandler.Handler,
	requestH *accessrequestHandler.Handler,
	documentH *documentHandler.Handler,
	auditH *auditHandler.Handler,
	h *handler.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	metrics := initRouterMetrics(config.MetricsPrefix)

	r := &Router{
		engine:    engine,
		auth:      auth,
		decisionH: decisionH,
		policyH:   policyH,
		requestH:  requestH,
		documentH: documentH,
		auditH:    auditH,
		h:         h,
		metrics:   metrics,
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: timeout}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	// Clinic nodes evaluate decisions and run the document registry.
	clinicNodes := protected.Group("")
	clinicNodes.Use(r.auth.RequireRole(middleware.RoleClinicNode))
	r.decisionH.RegisterRoutes(clinicNodes)
	r.documentH.RegisterRoutes(clinicNodes)
	r.auditH.RegisterRoutes(clinicNodes)

	// Professionals open access requests.
	professionals := protected.Group("")
	professionals.Use(r.auth.RequireRole(middleware.RoleProfessional))
	r.requestH.RegisterProfessionalRoutes(professionals)

	// Patients manage their policies and respond to requests.
	patients := protected.Group("")
	patients.Use(r.auth.RequireRole(middleware.RolePatient))
	r.policyH.RegisterRoutes(patients)
	r.requestH.RegisterPatientRoutes(patients)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
	prometheus.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
