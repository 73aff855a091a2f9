package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/repository"
	apperrors "github.com/hcen-uy/exchange-hub/pkg/errors"
)

type policyRepository struct {
	BaseRepository
}

func NewPolicyRepository(base BaseRepository) repository.PolicyRepository {
	return &policyRepository{base}
}

// activeFilter keeps only GRANTED policies whose validity window
// contains $N. Placeholder index is passed in because callers bind
// differing argument counts before it.
func activeFilter(idx int) string {
	return fmt.Sprintf(
		" AND status = 'GRANTED' AND (valid_from IS NULL OR valid_from <= $%d) AND (valid_until IS NULL OR valid_until >= $%d)",
		idx, idx,
	)
}

func (r *policyRepository) Create(ctx context.Context, policy *model.AccessPolicy) error {
	query := `
		INSERT INTO access_policies (
			id, patient_ci, policy_type, effect, config, priority, status,
			valid_from, valid_until, document_id, clinic_id, specialty,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		policy.ID,
		policy.PatientCI,
		policy.PolicyType,
		policy.Effect,
		policy.Config,
		policy.Priority,
		policy.Status,
		policy.ValidFrom,
		policy.ValidUntil,
		policy.DocumentID,
		policy.ClinicID,
		policy.Specialty,
		policy.CreatedAt,
		policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create policy: %w", err)
	}
	return nil
}

func (r *policyRepository) Get(ctx context.Context, id uuid.UUID) (*model.AccessPolicy, error) {
	query := `SELECT * FROM access_policies WHERE id = $1`

	var policy model.AccessPolicy
	if err := r.GetDB().GetContext(ctx, &policy, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("access policy")
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &policy, nil
}

func (r *policyRepository) Update(ctx context.Context, policy *model.AccessPolicy) error {
	query := `
		UPDATE access_policies SET
			effect = $1,
			config = $2,
			priority = $3,
			status = $4,
			valid_from = $5,
			valid_until = $6,
			updated_at = $7
		WHERE id = $8
	`
	result, err := r.GetDB().ExecContext(ctx, query,
		policy.Effect,
		policy.Config,
		policy.Priority,
		policy.Status,
		policy.ValidFrom,
		policy.ValidUntil,
		policy.UpdatedAt,
		policy.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("access policy")
	}
	return nil
}

func (r *policyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM access_policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("access policy")
	}
	return nil
}

func (r *policyRepository) ListByPatient(ctx context.Context, patientCI string) ([]*model.AccessPolicy, error) {
	query := `
		SELECT * FROM access_policies
		WHERE patient_ci = $1
		ORDER BY priority DESC, created_at DESC
	`
	var policies []*model.AccessPolicy
	if err := r.GetDB().SelectContext(ctx, &policies, query, patientCI); err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

func (r *policyRepository) FindActiveByPatient(ctx context.Context, patientCI string, now time.Time) ([]*model.AccessPolicy, error) {
	query := `SELECT * FROM access_policies WHERE patient_ci = $1` +
		activeFilter(2) +
		` ORDER BY priority DESC, created_at DESC`

	var policies []*model.AccessPolicy
	if err := r.GetDB().SelectContext(ctx, &policies, query, patientCI, now); err != nil {
		return nil, fmt.Errorf("failed to find active policies: %w", err)
	}
	return policies, nil
}

// FindActiveByPatientClinicSpecialty narrows to policies scoped to the
// given clinic or specialty, while still including unscoped rows:
// a policy with no clinic/specialty scope applies everywhere.
func (r *policyRepository) FindActiveByPatientClinicSpecialty(ctx context.Context, patientCI string, clinicID uuid.UUID, specialty string, now time.Time) ([]*model.AccessPolicy, error) {
	query := `
		SELECT * FROM access_policies
		WHERE patient_ci = $1
		  AND (clinic_id IS NULL OR clinic_id = $2)
		  AND (specialty IS NULL OR specialty = $3)` +
		activeFilter(4) +
		` ORDER BY priority DESC, created_at DESC`

	var policies []*model.AccessPolicy
	if err := r.GetDB().SelectContext(ctx, &policies, query, patientCI, clinicID, specialty, now); err != nil {
		return nil, fmt.Errorf("failed to find active policies by clinic/specialty: %w", err)
	}
	return policies, nil
}

// FindByPatientAndDocument returns both document-scoped and general
// policies: a NULL document_id row governs all of the patient's
// documents, so excluding it would change decisions.
func (r *policyRepository) FindByPatientAndDocument(ctx context.Context, patientCI string, documentID uuid.UUID) ([]*model.AccessPolicy, error) {
	query := `
		SELECT * FROM access_policies
		WHERE patient_ci = $1
		  AND (document_id IS NULL OR document_id = $2)
		ORDER BY priority DESC, created_at DESC
	`
	var policies []*model.AccessPolicy
	if err := r.GetDB().SelectContext(ctx, &policies, query, patientCI, documentID); err != nil {
		return nil, fmt.Errorf("failed to find policies by document: %w", err)
	}
	return policies, nil
}

func (r *policyRepository) ExistsActive(ctx context.Context, patientCI string, clinicID uuid.UUID, specialty string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM access_policies
			WHERE patient_ci = $1
			  AND (clinic_id IS NULL OR clinic_id = $2)
			  AND (specialty IS NULL OR specialty = $3)` +
		activeFilter(4) + `
		)`

	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, patientCI, clinicID, specialty, now); err != nil {
		return false, fmt.Errorf("failed to check active policies: %w", err)
	}
	return exists, nil
}
