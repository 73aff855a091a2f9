package worker

import (
	"context"
	"time"

	"github.com/hcen-uy/exchange-hub/internal/service/accessrequest"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
)

// Sweeper expires PENDING access requests whose 48 hour window has
// lapsed. Expiry is lazy on the read path too; the sweeper just keeps
// listings honest without waiting for a read.
type Sweeper struct {
	requests *accessrequest.Service
	interval time.Duration
	logger   *logger.Logger
}

func NewSweeper(requests *accessrequest.Service, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		requests: requests,
		interval: interval,
		logger:   log.WithComponent("request-sweeper"),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Sweeper) run(ctx context.Context) {
	count, err := s.requests.SweepExpired(ctx)
	if err != nil {
		s.logger.Error(err, "request sweep failed")
		return
	}
	if count > 0 {
		s.logger.Info("expired access requests", "count", count)
	}
}
