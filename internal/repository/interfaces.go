package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// PolicyRepository persists patient-authored access policies. All
// "active" queries filter on status and validity window server-side so
// revoked or lapsed policies never reach the evaluators.
type PolicyRepository interface {
	Create(ctx context.Context, policy *model.AccessPolicy) error
	Get(ctx context.Context, id uuid.UUID) (*model.AccessPolicy, error)
	Update(ctx context.Context, policy *model.AccessPolicy) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientCI string) ([]*model.AccessPolicy, error)
	FindActiveByPatient(ctx context.Context, patientCI string, now time.Time) ([]*model.AccessPolicy, error)
	FindActiveByPatientClinicSpecialty(ctx context.Context, patientCI string, clinicID uuid.UUID, specialty string, now time.Time) ([]*model.AccessPolicy, error)
	FindByPatientAndDocument(ctx context.Context, patientCI string, documentID uuid.UUID) ([]*model.AccessPolicy, error)
	ExistsActive(ctx context.Context, patientCI string, clinicID uuid.UUID, specialty string, now time.Time) (bool, error)
}

// AccessRequestRepository persists the request workflow's state
// machine. Rows are never physically deleted.
type AccessRequestRepository interface {
	Create(ctx context.Context, req *model.AccessRequest) error
	Get(ctx context.Context, id uuid.UUID) (*model.AccessRequest, error)
	UpdateStatus(ctx context.Context, req *model.AccessRequest) error
	FindPendingDuplicate(ctx context.Context, professionalID, patientCI string, documentID *uuid.UUID, now time.Time) (*model.AccessRequest, error)
	FindApprovedBySpecialty(ctx context.Context, specialties []string, clinicID uuid.UUID, patientCI string, documentID *uuid.UUID, now time.Time) (*model.AccessRequest, error)
	ListByPatient(ctx context.Context, patientCI string, status model.RequestStatus) ([]*model.AccessRequest, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// DocumentFilters narrows a registry search. Zero values mean "no
// constraint".
type DocumentFilters struct {
	PatientCI    string
	DocumentType string
	Status       model.DocumentStatus
	ClinicID     uuid.UUID
	FromDate     time.Time
	ToDate       time.Time
}

// DocumentRepository persists RNDC document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.RndcDocument) error
	Get(ctx context.Context, id uuid.UUID) (*model.RndcDocument, error)
	GetByLocator(ctx context.Context, locator string) (*model.RndcDocument, error)
	UpdateStatus(ctx context.Context, doc *model.RndcDocument) error
	Search(ctx context.Context, filters DocumentFilters, page model.Pagination) ([]*model.RndcDocument, int64, error)
	Count(ctx context.Context) (int64, error)
}

// AuditRepository is the append-only audit trail. Create is the only
// write; cleanup is retention, driven by the worker, never by core
// operations.
type AuditRepository interface {
	Create(ctx context.Context, event *model.AuditEvent) error
	List(ctx context.Context, filters map[string]interface{}, page model.Pagination) ([]*model.AuditEvent, int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
