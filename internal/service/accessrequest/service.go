package accessrequest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/cache"
	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/repository"
	"github.com/hcen-uy/exchange-hub/internal/service/audit"
	apperrors "github.com/hcen-uy/exchange-hub/pkg/errors"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
	"github.com/hcen-uy/exchange-hub/pkg/metrics"
)

// Service runs the access-request workflow: professionals open
// time-bounded requests, patients approve or deny them, and a sweep
// expires whatever nobody answered.
type Service struct {
	repo    repository.AccessRequestRepository
	cache   cache.DecisionCache
	auditor *audit.Service
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(repo repository.AccessRequestRepository, decisionCache cache.DecisionCache, auditor *audit.Service, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   decisionCache,
		auditor: auditor,
		metrics: m,
		logger:  log.WithComponent("access-request"),
	}
}

// CreateInput carries a professional's request for access.
type CreateInput struct {
	ProfessionalID string
	PatientCI      string
	DocumentID     *uuid.UUID
	Specialties    []string
	ClinicID       uuid.UUID
	Reason         string
	Urgency        model.Urgency
}

// Create opens a PENDING request, or returns the existing one when the
// same professional already has a live request for the same patient
// and document. Submission is idempotent.
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.AccessRequest, error) {
	if input.ProfessionalID == "" || input.PatientCI == "" {
		return nil, apperrors.Validation("professional ID and patient CI are required", nil)
	}
	if input.ClinicID == uuid.Nil {
		return nil, apperrors.Validation("clinic ID is required", nil)
	}
	if input.Reason == "" {
		return nil, apperrors.Validation("request reason is required", nil)
	}
	if input.Urgency == "" {
		input.Urgency = model.UrgencyRoutine
	}

	now := time.Now()

	existing, err := s.repo.FindPendingDuplicate(ctx, input.ProfessionalID, input.PatientCI, input.DocumentID, now)
	if err != nil {
		return nil, fmt.Errorf("deduplication lookup: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	req := &model.AccessRequest{
		ID:             uuid.New(),
		PatientCI:      input.PatientCI,
		ProfessionalID: input.ProfessionalID,
		DocumentID:     input.DocumentID,
		Specialties:    input.Specialties,
		ClinicID:       input.ClinicID,
		RequestReason:  input.Reason,
		Urgency:        input.Urgency,
		Status:         model.RequestStatusPending,
		RequestedAt:    now,
		ExpiresAt:      now.Add(model.RequestTTL),
	}

	if err := s.repo.Create(ctx, req); err != nil {
		// A concurrent submission may have won the unique-index race;
		// the surviving PENDING row is the answer either way.
		if apperrors.IsKind(err, apperrors.KindState) {
			if dup, dupErr := s.repo.FindPendingDuplicate(ctx, input.ProfessionalID, input.PatientCI, input.DocumentID, now); dupErr == nil && dup != nil {
				return dup, nil
			}
		}
		return nil, fmt.Errorf("create access request: %w", err)
	}

	s.audit(ctx, model.AuditEventRequestCreated, req.ProfessionalID, model.AuditActorProfessional, req, model.AuditOutcomeSuccess)
	return req, nil
}

// Approve transitions a PENDING request to APPROVED on behalf of the
// owning patient.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, patientCI, reason string) (*model.AccessRequest, error) {
	req, err := s.ownedRequest(ctx, id, patientCI)
	if err != nil {
		return nil, err
	}

	approved, err := req.Approved(time.Now(), reason)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, &approved); err != nil {
		return nil, err
	}

	// Invalidate before returning so the next decision sees the grant.
	s.cache.InvalidateAll(ctx, patientCI)

	s.audit(ctx, model.AuditEventRequestApproved, patientCI, model.AuditActorPatient, &approved, model.AuditOutcomeSuccess)
	return &approved, nil
}

// Deny transitions a PENDING request to DENIED on behalf of the owning
// patient. A reason is required.
func (s *Service) Deny(ctx context.Context, id uuid.UUID, patientCI, reason string) (*model.AccessRequest, error) {
	if reason == "" {
		return nil, apperrors.Validation("denial reason is required", nil)
	}

	req, err := s.ownedRequest(ctx, id, patientCI)
	if err != nil {
		return nil, err
	}

	denied, err := req.Denied(time.Now(), reason)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, &denied); err != nil {
		return nil, err
	}

	s.cache.InvalidateAll(ctx, patientCI)

	s.audit(ctx, model.AuditEventRequestDenied, patientCI, model.AuditActorPatient, &denied, model.AuditOutcomeSuccess)
	return &denied, nil
}

// Get returns one request; patients see only their own.
func (s *Service) Get(ctx context.Context, id uuid.UUID, patientCI string) (*model.AccessRequest, error) {
	return s.ownedRequest(ctx, id, patientCI)
}

// ListByPatient returns the patient's requests, optionally filtered by
// status.
func (s *Service) ListByPatient(ctx context.Context, patientCI string, status model.RequestStatus) ([]*model.AccessRequest, error) {
	return s.repo.ListByPatient(ctx, patientCI, status)
}

// SweepExpired batch-transitions lapsed PENDING rows to EXPIRED and
// returns how many were moved. Run periodically by the worker.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.SweepExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired requests: %w", err)
	}
	if count > 0 {
		if s.metrics != nil {
			s.metrics.RequestsSwept.Add(float64(count))
		}
		s.logger.Info("expired pending access requests", "count", count)
		s.auditor.Record(ctx, &model.AuditEvent{
			EventType:    model.AuditEventRequestExpired,
			ActorID:      "sweeper",
			ActorType:    model.AuditActorSystem,
			ResourceType: model.AuditResourceRequest,
			ResourceID:   fmt.Sprintf("%d", count),
			Outcome:      model.AuditOutcomeSuccess,
			Severity:     model.AuditSeverityInfo,
		})
	}
	return count, nil
}

func (s *Service) ownedRequest(ctx context.Context, id uuid.UUID, patientCI string) (*model.AccessRequest, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.PatientCI != patientCI {
		s.auditor.Record(ctx, &model.AuditEvent{
			EventType:    model.AuditEventDeniedAttempt,
			ActorID:      patientCI,
			ActorType:    model.AuditActorPatient,
			ResourceType: model.AuditResourceRequest,
			ResourceID:   id.String(),
			Outcome:      model.AuditOutcomeFailure,
			Severity:     model.AuditSeverityInfo,
		})
		return nil, apperrors.Unauthorized("not the request's patient")
	}
	return req, nil
}

func (s *Service) audit(ctx context.Context, eventType, actorID, actorType string, req *model.AccessRequest, outcome string) {
	details, _ := json.Marshal(map[string]interface{}{
		"professional_id": req.ProfessionalID,
		"patient_ci":      req.PatientCI,
		"document_id":     req.DocumentID,
		"clinic_id":       req.ClinicID,
		"urgency":         req.Urgency,
		"status":          req.Status,
	})
	s.auditor.Record(ctx, &model.AuditEvent{
		EventType:    eventType,
		ActorID:      actorID,
		ActorType:    actorType,
		ResourceType: model.AuditResourceRequest,
		ResourceID:   req.ID.String(),
		Outcome:      outcome,
		Severity:     model.AuditSeverityInfo,
		Details:      details,
	})
}
