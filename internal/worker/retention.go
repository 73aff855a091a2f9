package worker

import (
	"context"
	"time"

	"github.com/hcen-uy/exchange-hub/internal/service/audit"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
)

// RetentionWorker prunes audit events past the retention horizon.
type RetentionWorker struct {
	auditor       *audit.Service
	retentionDays int
	interval      time.Duration
	logger        *logger.Logger
}

func NewRetentionWorker(auditor *audit.Service, retentionDays int, interval time.Duration, log *logger.Logger) *RetentionWorker {
	return &RetentionWorker{
		auditor:       auditor,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        log.WithComponent("audit-retention"),
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *RetentionWorker) run(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.auditor.Cleanup(ctx, cutoff)
	if err != nil {
		w.logger.Error(err, "audit retention sweep failed")
		return
	}
	if rows > 0 {
		w.logger.Info("pruned audit events", "rows", rows, "cutoff", cutoff)
	}
}
