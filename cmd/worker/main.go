package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hcen-uy/exchange-hub/internal/cache"
	"github.com/hcen-uy/exchange-hub/internal/config"
	"github.com/hcen-uy/exchange-hub/internal/repository/postgres"
	accessrequestService "github.com/hcen-uy/exchange-hub/internal/service/accessrequest"
	auditService "github.com/hcen-uy/exchange-hub/internal/service/audit"
	"github.com/hcen-uy/exchange-hub/internal/worker"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
	"github.com/hcen-uy/exchange-hub/pkg/messaging"
	redisBroker "github.com/hcen-uy/exchange-hub/pkg/messaging/redis"
	"github.com/hcen-uy/exchange-hub/pkg/metrics"
)

// workerConfig is read from the environment; the worker runs in the
// same deployment as the API but carries only the knobs it needs.
type workerConfig struct {
	DatabaseHost     string        `envconfig:"DB_HOST" default:"localhost"`
	DatabasePort     int           `envconfig:"DB_PORT" default:"5432"`
	DatabaseUser     string        `envconfig:"DB_USER" default:"hcen"`
	DatabasePassword string        `envconfig:"DB_PASSWORD" required:"true"`
	DatabaseName     string        `envconfig:"DB_NAME" default:"hcen"`
	DatabaseSSLMode  string        `envconfig:"DB_SSLMODE" default:"disable"`
	RedisURL         string        `envconfig:"REDIS_URL" default:""`
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	RetentionDays    int           `envconfig:"AUDIT_RETENTION_DAYS" default:"1825"`
	CleanupInterval  time.Duration `envconfig:"AUDIT_CLEANUP_INTERVAL" default:"24h"`
	MetricsPort      int           `envconfig:"METRICS_PORT" default:"9091"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("hcen", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{Level: level})

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Name:     cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	var broker messaging.Broker
	var decisionCache cache.DecisionCache
	if cfg.RedisURL != "" {
		if broker, err = redisBroker.NewRedisBroker(redisBroker.Config{URL: cfg.RedisURL}, log.Zerolog()); err != nil {
			log.Warn("notification broker unavailable", "error", err.Error())
			broker = nil
		} else {
			defer broker.Close()
		}
		if redisCache, err := cache.NewRedisCache(cache.RedisConfig{URL: cfg.RedisURL}, log.Zerolog()); err == nil {
			decisionCache = redisCache
			defer redisCache.Close()
		}
	}
	if decisionCache == nil {
		decisionCache = cache.NewMemoryCache(5 * time.Minute)
	}

	base := postgres.NewBaseRepository(db)
	auditor := auditService.NewService(postgres.NewAuditRepository(base), broker, log)
	m := metrics.NewMetrics("hcen_worker")
	requests := accessrequestService.NewService(postgres.NewAccessRequestRepository(base), decisionCache, auditor, m, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		worker.NewSweeper(requests, cfg.SweepInterval, log).Start(ctx)
	}()
	go func() {
		defer wg.Done()
		worker.NewRetentionWorker(auditor, cfg.RetentionDays, cfg.CleanupInterval, log).Start(ctx)
	}()

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "metrics server failed")
		}
	}()

	log.Info("worker started",
		"sweep_interval", cfg.SweepInterval.String(),
		"retention_days", cfg.RetentionDays)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("worker stopped")
}
