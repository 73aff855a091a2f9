package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/repository"
	"github.com/hcen-uy/exchange-hub/internal/service/audit"
	apperrors "github.com/hcen-uy/exchange-hub/pkg/errors"
	"github.com/hcen-uy/exchange-hub/pkg/identity"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
	"github.com/hcen-uy/exchange-hub/pkg/metrics"
)

// Service is the RNDC: registration and lifecycle of clinical document
// metadata. Registration is idempotent on the locator URL so clinic
// nodes can retry safely.
type Service struct {
	repo     repository.DocumentRepository
	auditor  *audit.Service
	identity identity.Resolver
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewService(repo repository.DocumentRepository, auditor *audit.Service, resolver identity.Resolver, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		auditor:  auditor,
		identity: resolver,
		metrics:  m,
		logger:   log.WithComponent("registry"),
	}
}

type RegisterInput struct {
	PatientCI    string
	DocumentType string
	Locator      string
	Hash         string
	CreatedBy    string
	ClinicID     uuid.UUID
	Title        *string
	Description  *string
}

// Register validates and stores a document metadata record. If the
// locator is already registered the existing record is returned
// unchanged.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.RndcDocument, error) {
	if input.PatientCI == "" || input.DocumentType == "" || input.CreatedBy == "" {
		return nil, apperrors.Validation("patient CI, document type and creator are required", nil)
	}
	if input.ClinicID == uuid.Nil {
		return nil, apperrors.Validation("clinic ID is required", nil)
	}
	if err := model.ValidateDocumentLocator(input.Locator); err != nil {
		return nil, err
	}
	if err := model.ValidateDocumentHash(input.Hash); err != nil {
		return nil, err
	}

	// Best-effort identity check: directory downtime never blocks a
	// registration.
	if s.identity != nil {
		if _, err := s.identity.Resolve(ctx, input.PatientCI); err != nil {
			s.logger.Warn("identity lookup unavailable during registration",
				"patient_ci", input.PatientCI, "error", err.Error())
		}
	}

	if existing, err := s.repo.GetByLocator(ctx, input.Locator); err != nil {
		return nil, fmt.Errorf("check existing document: %w", err)
	} else if existing != nil {
		if s.metrics != nil {
			s.metrics.DocumentsRegistered.WithLabelValues("retried").Inc()
		}
		return existing, nil
	}

	now := time.Now()
	doc := &model.RndcDocument{
		ID:                  uuid.New(),
		PatientCI:           input.PatientCI,
		DocumentType:        input.DocumentType,
		DocumentLocator:     input.Locator,
		DocumentHash:        input.Hash,
		CreatedBy:           input.CreatedBy,
		ClinicID:            input.ClinicID,
		Status:              model.DocumentStatusActive,
		DocumentTitle:       input.Title,
		DocumentDescription: input.Description,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		// A concurrent registration for the same locator may have won
		// the unique-constraint race; its row is the canonical one.
		if existing, lookupErr := s.repo.GetByLocator(ctx, input.Locator); lookupErr == nil && existing != nil {
			if s.metrics != nil {
				s.metrics.DocumentsRegistered.WithLabelValues("retried").Inc()
			}
			return existing, nil
		}
		return nil, fmt.Errorf("register document: %w", err)
	}

	if s.metrics != nil {
		s.metrics.DocumentsRegistered.WithLabelValues("created").Inc()
	}

	details, _ := json.Marshal(map[string]interface{}{
		"patient_ci":    doc.PatientCI,
		"document_type": doc.DocumentType,
		"clinic_id":     doc.ClinicID,
		"locator":       doc.DocumentLocator,
	})
	s.auditor.Record(ctx, &model.AuditEvent{
		EventType:    model.AuditEventDocRegistered,
		ActorID:      input.CreatedBy,
		ActorType:    model.AuditActorClinicNode,
		ResourceType: model.AuditResourceDocument,
		ResourceID:   doc.ID.String(),
		Outcome:      model.AuditOutcomeSuccess,
		Severity:     model.AuditSeverityInfo,
		Details:      details,
	})
	return doc, nil
}

// Get returns one document by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.RndcDocument, error) {
	return s.repo.Get(ctx, id)
}

// Search returns documents matching the filters. Empty filters mean no
// constraint; no match is an empty page, not an error.
func (s *Service) Search(ctx context.Context, filters repository.DocumentFilters, page model.Pagination) (*model.PageResult[*model.RndcDocument], error) {
	page.Normalize()
	docs, total, err := s.repo.Search(ctx, filters, page)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	if docs == nil {
		docs = []*model.RndcDocument{}
	}
	return &model.PageResult[*model.RndcDocument]{
		Items:    docs,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

// MarkInactive takes a document administratively offline.
func (s *Service) MarkInactive(ctx context.Context, id uuid.UUID, actor string) (*model.RndcDocument, error) {
	return s.transition(ctx, id, model.DocumentStatusInactive, actor)
}

// MarkDeleted soft-deletes a document. DELETED is terminal; the row
// itself stays for audit continuity.
func (s *Service) MarkDeleted(ctx context.Context, id uuid.UUID, actor string) (*model.RndcDocument, error) {
	return s.transition(ctx, id, model.DocumentStatusDeleted, actor)
}

// Reactivate brings an INACTIVE document back. A DELETED document
// stays deleted.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID, actor string) (*model.RndcDocument, error) {
	return s.transition(ctx, id, model.DocumentStatusActive, actor)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target model.DocumentStatus, actor string) (*model.RndcDocument, error) {
	if actor == "" {
		return nil, apperrors.Validation("acting user is required", nil)
	}

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := doc.WithStatus(target, actor, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, &updated); err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]interface{}{
		"from": doc.Status,
		"to":   target,
	})
	s.auditor.Record(ctx, &model.AuditEvent{
		EventType:    model.AuditEventDocStatusChange,
		ActorID:      actor,
		ActorType:    model.AuditActorClinicNode,
		ResourceType: model.AuditResourceDocument,
		ResourceID:   id.String(),
		Outcome:      model.AuditOutcomeSuccess,
		Severity:     model.AuditSeverityInfo,
		Details:      details,
	})
	return &updated, nil
}
