package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/repository"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
	"github.com/hcen-uy/exchange-hub/pkg/messaging"
)

// NotificationChannel is where emergency-access events flagged for
// patient notification are published. Delivering the notification is
// the consumer's job, not the hub's.
const NotificationChannel = "hcen.notifications.patient"

// Service is the audit sink. Record never returns an error: audit
// transport failures are logged and swallowed so they cannot fail the
// core operation being annotated.
type Service struct {
	repo   repository.AuditRepository
	broker messaging.Broker
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, broker messaging.Broker, logger *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		broker: broker,
		logger: logger.WithComponent("audit"),
	}
}

// Record persists one audit event, fire-and-forget.
func (s *Service) Record(ctx context.Context, event *model.AuditEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if err := s.repo.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to persist audit event",
			"event_type", event.EventType, "resource_id", event.ResourceID)
	}

	if event.NotifyPatient && s.broker != nil {
		if err := s.broker.Publish(ctx, NotificationChannel, event); err != nil {
			s.logger.Error(err, "failed to publish patient notification event",
				"event_type", event.EventType)
		}
	}
}

// List returns audit events matching the filters, newest first.
func (s *Service) List(ctx context.Context, filters map[string]interface{}, page model.Pagination) ([]*model.AuditEvent, int64, error) {
	page.Normalize()
	return s.repo.List(ctx, filters, page)
}

// Cleanup removes events older than cutoff. Retention only; core
// components never call this.
func (s *Service) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, cutoff)
}
