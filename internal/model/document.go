package model

import (
	"net/url"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/hcen-uy/exchange-hub/pkg/errors"
)

type DocumentStatus string

const (
	DocumentStatusActive   DocumentStatus = "ACTIVE"
	DocumentStatusInactive DocumentStatus = "INACTIVE"
	DocumentStatusDeleted  DocumentStatus = "DELETED"
)

// hashPattern is the wire-level contract for document hashes:
// "sha256:" followed by exactly 64 lowercase hex characters.
var hashPattern = regexp.MustCompile(`^sha256:[a-f0-9]{64}$`)

// RndcDocument is the metadata record for one clinical document held
// at a peripheral clinic node. The hub never stores document bytes;
// the locator URL points at the clinic that does.
type RndcDocument struct {
	ID                  uuid.UUID      `db:"id" json:"id"`
	PatientCI           string         `db:"patient_ci" json:"patient_ci"`
	DocumentType        string         `db:"document_type" json:"document_type"`
	DocumentLocator     string         `db:"document_locator" json:"document_locator"`
	DocumentHash        string         `db:"document_hash" json:"document_hash"`
	CreatedBy           string         `db:"created_by" json:"created_by"`
	ClinicID            uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	Status              DocumentStatus `db:"status" json:"status"`
	DocumentTitle       *string        `db:"document_title" json:"document_title,omitempty"`
	DocumentDescription *string        `db:"document_description" json:"document_description,omitempty"`
	StatusChangedBy     *string        `db:"status_changed_by" json:"status_changed_by,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// ValidateDocumentHash rejects any hash not matching the wire format.
func ValidateDocumentHash(hash string) error {
	if !hashPattern.MatchString(hash) {
		return errors.Validation("document hash must match sha256:<64 lowercase hex chars>", nil)
	}
	return nil
}

// ValidateDocumentLocator rejects anything that is not an absolute URL.
func ValidateDocumentLocator(locator string) error {
	u, err := url.Parse(locator)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.Validation("document locator must be an absolute URL", err)
	}
	return nil
}

// WithStatus returns a snapshot transitioned to the target status.
// DELETED is terminal: no transition out of it is legal.
func (d RndcDocument) WithStatus(target DocumentStatus, actor string, now time.Time) (RndcDocument, error) {
	if d.Status == DocumentStatusDeleted {
		return d, errors.IllegalState("document is deleted", string(d.Status))
	}
	d.Status = target
	d.StatusChangedBy = &actor
	d.UpdatedAt = now
	return d, nil
}
