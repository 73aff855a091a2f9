package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/repository"
	apperrors "github.com/hcen-uy/exchange-hub/pkg/errors"
)

type documentRepository struct {
	BaseRepository
}

func NewDocumentRepository(base BaseRepository) repository.DocumentRepository {
	return &documentRepository{base}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.RndcDocument) error {
	query := `
		INSERT INTO rndc_documents (
			id, patient_ci, document_type, document_locator, document_hash,
			created_by, clinic_id, status, document_title, document_description,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		doc.ID,
		doc.PatientCI,
		doc.DocumentType,
		doc.DocumentLocator,
		doc.DocumentHash,
		doc.CreatedBy,
		doc.ClinicID,
		doc.Status,
		doc.DocumentTitle,
		doc.DocumentDescription,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*model.RndcDocument, error) {
	query := `SELECT * FROM rndc_documents WHERE id = $1`

	var doc model.RndcDocument
	if err := r.GetDB().GetContext(ctx, &doc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("document")
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// GetByLocator backs idempotent registration: the locator is globally
// unique, so an existing row here means the registration was retried.
func (r *documentRepository) GetByLocator(ctx context.Context, locator string) (*model.RndcDocument, error) {
	query := `SELECT * FROM rndc_documents WHERE document_locator = $1`

	var doc model.RndcDocument
	if err := r.GetDB().GetContext(ctx, &doc, query, locator); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document by locator: %w", err)
	}
	return &doc, nil
}

func (r *documentRepository) UpdateStatus(ctx context.Context, doc *model.RndcDocument) error {
	query := `
		UPDATE rndc_documents SET
			status = $1,
			status_changed_by = $2,
			updated_at = $3
		WHERE id = $4
	`
	result, err := r.GetDB().ExecContext(ctx, query,
		doc.Status,
		doc.StatusChangedBy,
		doc.UpdatedAt,
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("document")
	}
	return nil
}

func (r *documentRepository) Search(ctx context.Context, filters repository.DocumentFilters, page model.Pagination) ([]*model.RndcDocument, int64, error) {
	baseQuery := `FROM rndc_documents WHERE 1=1`
	var args []interface{}

	if filters.PatientCI != "" {
		args = append(args, filters.PatientCI)
		baseQuery += fmt.Sprintf(" AND patient_ci = $%d", len(args))
	}
	if filters.DocumentType != "" {
		args = append(args, filters.DocumentType)
		baseQuery += fmt.Sprintf(" AND document_type = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.ClinicID != uuid.Nil {
		args = append(args, filters.ClinicID)
		baseQuery += fmt.Sprintf(" AND clinic_id = $%d", len(args))
	}
	if !filters.FromDate.IsZero() {
		args = append(args, filters.FromDate)
		baseQuery += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filters.ToDate.IsZero() {
		args = append(args, filters.ToDate)
		baseQuery += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int64
	if err := r.GetDB().GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	args = append(args, page.PageSize, page.Offset())
	query := "SELECT * " + baseQuery +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var docs []*model.RndcDocument
	if err := r.GetDB().SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search documents: %w", err)
	}
	return docs, total, nil
}

func (r *documentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.GetDB().GetContext(ctx, &total, `SELECT COUNT(*) FROM rndc_documents`); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return total, nil
}
