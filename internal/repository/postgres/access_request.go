package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/repository"
	apperrors "github.com/hcen-uy/exchange-hub/pkg/errors"
)

type accessRequestRepository struct {
	BaseRepository
}

func NewAccessRequestRepository(base BaseRepository) repository.AccessRequestRepository {
	return &accessRequestRepository{base}
}

// Create inserts a PENDING row. A partial unique index on
// (professional_id, patient_ci, document_id) WHERE status = 'PENDING'
// backs the deduplication guarantee; a violation means a concurrent
// duplicate won the race, and the caller re-reads it.
func (r *accessRequestRepository) Create(ctx context.Context, req *model.AccessRequest) error {
	query := `
		INSERT INTO access_requests (
			id, patient_ci, professional_id, document_id, specialties,
			clinic_id, request_reason, urgency, status,
			requested_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		req.ID,
		req.PatientCI,
		req.ProfessionalID,
		req.DocumentID,
		req.Specialties,
		req.ClinicID,
		req.RequestReason,
		req.Urgency,
		req.Status,
		req.RequestedAt,
		req.ExpiresAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.IllegalState("duplicate pending access request", string(model.RequestStatusPending))
		}
		return fmt.Errorf("failed to create access request: %w", err)
	}
	return nil
}

func (r *accessRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.AccessRequest, error) {
	query := `SELECT * FROM access_requests WHERE id = $1`

	var req model.AccessRequest
	if err := r.GetDB().GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("access request")
		}
		return nil, fmt.Errorf("failed to get access request: %w", err)
	}
	return &req, nil
}

// UpdateStatus writes a status transition. The WHERE clause re-checks
// PENDING so two concurrent responders cannot both win.
func (r *accessRequestRepository) UpdateStatus(ctx context.Context, req *model.AccessRequest) error {
	query := `
		UPDATE access_requests SET
			status = $1,
			response_reason = $2,
			responded_at = $3
		WHERE id = $4 AND status = 'PENDING'
	`
	result, err := r.GetDB().ExecContext(ctx, query,
		req.Status,
		req.ResponseReason,
		req.RespondedAt,
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update access request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		current, getErr := r.Get(ctx, req.ID)
		if getErr != nil {
			return getErr
		}
		return apperrors.IllegalState("access request already responded or expired", string(current.Status))
	}
	return nil
}

func (r *accessRequestRepository) FindPendingDuplicate(ctx context.Context, professionalID, patientCI string, documentID *uuid.UUID, now time.Time) (*model.AccessRequest, error) {
	query := `
		SELECT * FROM access_requests
		WHERE professional_id = $1
		  AND patient_ci = $2
		  AND document_id IS NOT DISTINCT FROM $3
		  AND status = 'PENDING'
		  AND expires_at > $4
		ORDER BY requested_at DESC
		LIMIT 1
	`
	var req model.AccessRequest
	if err := r.GetDB().GetContext(ctx, &req, query, professionalID, patientCI, documentID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pending duplicate: %w", err)
	}
	return &req, nil
}

// FindApprovedBySpecialty implements the specialty-wide grant: any
// approved, unexpired request whose specialties overlap the caller's,
// at the same clinic for the same patient, grants access regardless of
// which professional originally asked.
func (r *accessRequestRepository) FindApprovedBySpecialty(ctx context.Context, specialties []string, clinicID uuid.UUID, patientCI string, documentID *uuid.UUID, now time.Time) (*model.AccessRequest, error) {
	query := `
		SELECT * FROM access_requests
		WHERE patient_ci = $1
		  AND clinic_id = $2
		  AND specialties && $3
		  AND (document_id IS NULL OR document_id IS NOT DISTINCT FROM $4)
		  AND status = 'APPROVED'
		  AND expires_at > $5
		ORDER BY responded_at DESC
		LIMIT 1
	`
	var req model.AccessRequest
	err := r.GetDB().GetContext(ctx, &req, query,
		patientCI, clinicID, pq.StringArray(specialties), documentID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find approved request: %w", err)
	}
	return &req, nil
}

func (r *accessRequestRepository) ListByPatient(ctx context.Context, patientCI string, status model.RequestStatus) ([]*model.AccessRequest, error) {
	query := `SELECT * FROM access_requests WHERE patient_ci = $1`
	args := []interface{}{patientCI}

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, status)
	}
	query += " ORDER BY requested_at DESC"

	var requests []*model.AccessRequest
	if err := r.GetDB().SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list access requests: %w", err)
	}
	return requests, nil
}

func (r *accessRequestRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE access_requests
		SET status = 'EXPIRED'
		WHERE status = 'PENDING' AND expires_at <= $1
	`
	result, err := r.GetDB().ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired requests: %w", err)
	}
	return result.RowsAffected()
}
