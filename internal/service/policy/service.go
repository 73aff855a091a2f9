package policy

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
)

// Service is the policy store: patient-facing CRUD over standing
// access policies. Every mutation synchronously invalidates the
// owning patient's cached decisions before returning, so a revoke is
// never shadowed by a stale PERMIT.
type Service struct {
	repo    repository.PolicyRepository
	cache   cache.DecisionCache
	auditor *audit.Service
}

func NewService(repo repository.PolicyRepository, decisionCache cache.DecisionCache, auditor *audit.Service) *Service {
	return &Service{
		repo:    repo,
		cache:   decisionCache,
		auditor: auditor,
	}
}

// Create validates and stores a new policy for the patient.
func (s *Service) Create(ctx context.Context, policy *model.AccessPolicy) error {
	if policy.PatientCI == "" {
		return apperrors.Validation("patient CI is required", nil)
	}
	if err := validateConfig(policy.PolicyType, policy.Config); err != nil {
		return err
	}
	if policy.Effect != model.EffectPermit && policy.Effect != model.EffectDeny {
		return apperrors.Validation("effect must be PERMIT or DENY", nil)
	}
	if policy.ValidFrom != nil && policy.ValidUntil != nil && policy.ValidUntil.Before(*policy.ValidFrom) {
		return apperrors.Validation("valid_until precedes valid_from", nil)
	}

	now := time.Now()
	policy.ID = uuid.New()
	policy.Status = model.PolicyStatusGranted
	policy.CreatedAt = now
	policy.UpdatedAt = now

	if err := s.repo.Create(ctx, policy); err != nil {
		return fmt.Errorf("create policy: %w", err)
	}

	s.cache.InvalidateAll(ctx, policy.PatientCI)

	s.auditor.Record(ctx, &model.AuditEvent{
		EventType:    model.AuditEventPolicyCreated,
		ActorID:      policy.PatientCI,
		ActorType:    model.AuditActorPatient,
		ResourceType: model.AuditResourcePolicy,
		ResourceID:   policy.ID.String(),
		Outcome:      model.AuditOutcomeSuccess,
		Severity:     model.AuditSeverityInfo,
	})
	return nil
}

// Revoke transitions a GRANTED policy to REVOKED. Only the owning
// patient may revoke.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID, patientCI string) error {
	existing, err := s.ownedPolicy(ctx, id, patientCI)
	if err != nil {
		return err
	}
	if existing.Status != model.PolicyStatusGranted {
		return apperrors.IllegalState("policy is not granted", string(existing.Status))
	}

	revoked := existing.Revoked(time.Now())
	if err := s.repo.Update(ctx, &revoked); err != nil {
		return fmt.Errorf("revoke policy: %w", err)
	}

	s.cache.InvalidateAll(ctx, patientCI)

	s.auditor.Record(ctx, &model.AuditEvent{
		EventType:    model.AuditEventPolicyRevoked,
		ActorID:      patientCI,
		ActorType:    model.AuditActorPatient,
		ResourceType: model.AuditResourcePolicy,
		ResourceID:   id.String(),
		Outcome:      model.AuditOutcomeSuccess,
		Severity:     model.AuditSeverityInfo,
	})
	return nil
}

// Delete removes a policy outright. Only the owning patient may
// delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, patientCI string) error {
	if _, err := s.ownedPolicy(ctx, id, patientCI); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}

	s.cache.InvalidateAll(ctx, patientCI)

	s.auditor.Record(ctx, &model.AuditEvent{
		EventType:    model.AuditEventPolicyDeleted,
		ActorID:      patientCI,
		ActorType:    model.AuditActorPatient,
		ResourceType: model.AuditResourcePolicy,
		ResourceID:   id.String(),
		Outcome:      model.AuditOutcomeSuccess,
		Severity:     model.AuditSeverityInfo,
	})
	return nil
}

// List returns all of the patient's policies, active or not.
func (s *Service) List(ctx context.Context, patientCI string) ([]*model.AccessPolicy, error) {
	return s.repo.ListByPatient(ctx, patientCI)
}

// ownedPolicy loads the policy and verifies ownership, auditing a
// denied attempt on mismatch.
func (s *Service) ownedPolicy(ctx context.Context, id uuid.UUID, patientCI string) (*model.AccessPolicy, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.PatientCI != patientCI {
		s.auditor.Record(ctx, &model.AuditEvent{
			EventType:    model.AuditEventDeniedAttempt,
			ActorID:      patientCI,
			ActorType:    model.AuditActorPatient,
			ResourceType: model.AuditResourcePolicy,
			ResourceID:   id.String(),
			Outcome:      model.AuditOutcomeFailure,
			Severity:     model.AuditSeverityInfo,
		})
		return nil, apperrors.Unauthorized("not the policy owner")
	}
	return existing, nil
}

// validateConfig checks the config blob parses into the shape its
// policy type expects. Per-field semantics stay with the evaluators.
func validateConfig(policyType model.PolicyType, raw json.RawMessage) error {
	if len(raw) == 0 {
		return apperrors.Validation("policy config is required", nil)
	}

	var err error
	switch policyType {
	case model.PolicyTypeClinic:
		err = json.Unmarshal(raw, &model.ClinicPolicyConfig{})
	case model.PolicyTypeSpecialty:
		err = json.Unmarshal(raw, &model.SpecialtyPolicyConfig{})
	case model.PolicyTypeDocumentType:
		err = json.Unmarshal(raw, &model.DocumentTypePolicyConfig{})
	case model.PolicyTypeTimeBased:
		err = json.Unmarshal(raw, &model.TimePolicyConfig{})
	case model.PolicyTypeProfessional:
		err = json.Unmarshal(raw, &model.ProfessionalPolicyConfig{})
	case model.PolicyTypeEmergencyOverride:
		err = json.Unmarshal(raw, &model.EmergencyPolicyConfig{})
	default:
		return apperrors.Validation(fmt.Sprintf("unknown policy type %q", policyType), nil)
	}
	if err != nil {
		return apperrors.Validation("malformed policy config", err)
	}
	return nil
}
