package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, event *model.AuditEvent) error {
	query := `
		INSERT INTO audit_events (
			id, event_type, actor_id, actor_type, resource_type, resource_id,
			outcome, severity, notify_patient, ip_address, user_agent,
			details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.ActorID,
		event.ActorType,
		event.ResourceType,
		event.ResourceID,
		event.Outcome,
		event.Severity,
		event.NotifyPatient,
		event.IPAddress,
		event.UserAgent,
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters map[string]interface{}, page model.Pagination) ([]*model.AuditEvent, int64, error) {
	baseQuery := `FROM audit_events WHERE 1=1`
	var args []interface{}

	if v, ok := filters["actor_id"]; ok {
		args = append(args, v)
		baseQuery += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if v, ok := filters["event_type"]; ok {
		args = append(args, v)
		baseQuery += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	if v, ok := filters["resource_type"]; ok {
		args = append(args, v)
		baseQuery += fmt.Sprintf(" AND resource_type = $%d", len(args))
	}
	if v, ok := filters["resource_id"]; ok {
		args = append(args, v)
		baseQuery += fmt.Sprintf(" AND resource_id = $%d", len(args))
	}
	if v, ok := filters["outcome"]; ok {
		args = append(args, v)
		baseQuery += fmt.Sprintf(" AND outcome = $%d", len(args))
	}
	if v, ok := filters["start_date"]; ok {
		args = append(args, v)
		baseQuery += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if v, ok := filters["end_date"]; ok {
		args = append(args, v)
		baseQuery += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int64
	if err := r.GetDB().GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	args = append(args, page.PageSize, page.Offset())
	query := "SELECT * " + baseQuery +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var events []*model.AuditEvent
	if err := r.GetDB().SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, total, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM audit_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit events: %w", err)
	}
	return result.RowsAffected()
}
