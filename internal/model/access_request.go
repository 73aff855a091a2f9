package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hcen-uy/exchange-hub/pkg/errors"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusDenied   RequestStatus = "DENIED"
	RequestStatusExpired  RequestStatus = "EXPIRED"
)

type Urgency string

const (
	UrgencyRoutine   Urgency = "ROUTINE"
	UrgencyUrgent    Urgency = "URGENT"
	UrgencyEmergency Urgency = "EMERGENCY"
)

// RequestTTL is how long a request stays approvable after creation.
const RequestTTL = 48 * time.Hour

// AccessRequest is an ad-hoc, time-bounded professional request for
// access, used when no standing policy resolves the question.
type AccessRequest struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	PatientCI      string         `db:"patient_ci" json:"patient_ci"`
	ProfessionalID string         `db:"professional_id" json:"professional_id"`
	DocumentID     *uuid.UUID     `db:"document_id" json:"document_id,omitempty"`
	Specialties    pq.StringArray `db:"specialties" json:"specialties"`
	ClinicID       uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	RequestReason  string         `db:"request_reason" json:"request_reason"`
	Urgency        Urgency        `db:"urgency" json:"urgency"`
	Status         RequestStatus  `db:"status" json:"status"`
	ResponseReason *string        `db:"response_reason" json:"response_reason,omitempty"`
	RequestedAt    time.Time      `db:"requested_at" json:"requested_at"`
	ExpiresAt      time.Time      `db:"expires_at" json:"expires_at"`
	RespondedAt    *time.Time     `db:"responded_at" json:"responded_at,omitempty"`
}

// IsExpired reports whether the request's approval window has lapsed,
// regardless of whether a sweep has stamped it EXPIRED yet.
func (r *AccessRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r *AccessRequest) respondable(now time.Time) error {
	if r.Status != RequestStatusPending {
		return errors.IllegalState("access request already responded or expired", string(r.Status))
	}
	if r.IsExpired(now) {
		return errors.IllegalState("access request expired", string(r.Status))
	}
	return nil
}

// Approved returns a snapshot transitioned to APPROVED. Legal only
// from PENDING before expiry.
func (r AccessRequest) Approved(now time.Time, reason string) (AccessRequest, error) {
	if err := r.respondable(now); err != nil {
		return r, err
	}
	r.Status = RequestStatusApproved
	r.RespondedAt = &now
	if reason != "" {
		r.ResponseReason = &reason
	}
	return r, nil
}

// Denied returns a snapshot transitioned to DENIED. Legal only from
// PENDING before expiry.
func (r AccessRequest) Denied(now time.Time, reason string) (AccessRequest, error) {
	if err := r.respondable(now); err != nil {
		return r, err
	}
	r.Status = RequestStatusDenied
	r.RespondedAt = &now
	r.ResponseReason = &reason
	return r, nil
}

// Expired returns a snapshot transitioned to EXPIRED, and whether the
// transition happened. A no-op on anything but PENDING.
func (r AccessRequest) Expired(now time.Time) (AccessRequest, bool) {
	if r.Status != RequestStatusPending || !r.IsExpired(now) {
		return r, false
	}
	r.Status = RequestStatusExpired
	return r, true
}
