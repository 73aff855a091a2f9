package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hcen-uy/exchange-hub/internal/cache"
	"github.com/hcen-uy/exchange-hub/internal/config"
	"github.com/hcen-uy/exchange-hub/internal/handler"
	accessrequestHandler "github.com/hcen-uy/exchange-hub/internal/handler/accessrequest"
	auditHandler "github.com/hcen-uy/exchange-hub/internal/handler/audit"
	decisionHandler "github.com/hcen-uy/exchange-hub/internal/handler/decision"
	documentHandler "github.com/hcen-uy/exchange-hub/internal/handler/document"
	policyHandler "github.com/hcen-uy/exchange-hub/internal/handler/policy"
	"github.com/hcen-uy/exchange-hub/internal/middleware"
	evaluators "github.com/hcen-uy/exchange-hub/internal/policy"
	"github.com/hcen-uy/exchange-hub/internal/repository/postgres"
	"github.com/hcen-uy/exchange-hub/internal/router"
	accessrequestService "github.com/hcen-uy/exchange-hub/internal/service/accessrequest"
	auditService "github.com/hcen-uy/exchange-hub/internal/service/audit"
	decisionService "github.com/hcen-uy/exchange-hub/internal/service/decision"
	policyService "github.com/hcen-uy/exchange-hub/internal/service/policy"
	registryService "github.com/hcen-uy/exchange-hub/internal/service/registry"
	"github.com/hcen-uy/exchange-hub/pkg/identity"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
	"github.com/hcen-uy/exchange-hub/pkg/messaging"
	redisBroker "github.com/hcen-uy/exchange-hub/pkg/messaging/redis"
	"github.com/hcen-uy/exchange-hub/pkg/metrics"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{
		Level:  level,
		Pretty: cfg.Log.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	// A Redis outage degrades decisions to cache misses, so the hub
	// starts with the in-memory cache when Redis is unreachable.
	var decisionCache cache.DecisionCache
	var cachePinger handler.Pinger
	redisCache, err := cache.NewRedisCache(cache.RedisConfig{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Warn("redis unavailable, using in-memory decision cache", "error", err.Error())
		decisionCache = cache.NewMemoryCache(cfg.Cache.TTL())
	} else {
		decisionCache = redisCache
		cachePinger = redisCache
		defer redisCache.Close()
	}

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisBroker.NewRedisBroker(redisBroker.Config{URL: cfg.Redis.URL}, log.Zerolog())
		if err != nil {
			log.Warn("notification broker unavailable", "error", err.Error())
		} else {
			defer broker.Close()
		}
	}

	base := postgres.NewBaseRepository(db)
	policyRepo := postgres.NewPolicyRepository(base)
	requestRepo := postgres.NewAccessRequestRepository(base)
	documentRepo := postgres.NewDocumentRepository(base)
	auditRepo := postgres.NewAuditRepository(base)

	m := metrics.NewMetrics("hcen")

	auditor := auditService.NewService(auditRepo, broker, log)
	registry := evaluators.NewRegistry(auditor)

	var resolver identity.Resolver
	if cfg.Identity.BaseURL != "" {
		resolver = identity.NewClient(identity.Config{
			BaseURL: cfg.Identity.BaseURL,
			Timeout: time.Duration(cfg.Identity.TimeoutSeconds) * time.Second,
		}, log.Zerolog())
	}

	policySvc := policyService.NewService(policyRepo, decisionCache, auditor)
	requestSvc := accessrequestService.NewService(requestRepo, decisionCache, auditor, m, log)
	registrySvc := registryService.NewService(documentRepo, auditor, resolver, m, log)
	engine := decisionService.NewEngine(
		policyRepo,
		requestRepo,
		documentRepo,
		decisionCache,
		registry,
		auditor,
		m,
		decisionService.Config{CacheTTL: cfg.Cache.TTL()},
		log,
	)

	handler.RegisterValidations()

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	r := router.NewRouter(
		authMiddleware,
		decisionHandler.NewHandler(engine),
		policyHandler.NewHandler(policySvc),
		accessrequestHandler.NewHandler(requestSvc),
		documentHandler.NewHandler(registrySvc),
		auditHandler.NewHandler(auditor),
		handler.NewHandler(db, cachePinger),
		router.Config{
			RateLimit:     rate.Limit(cfg.RateLimit.RPS),
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			MetricsPrefix: "hcen_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "forced shutdown")
	}
	log.Info("server stopped")
}
