package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PolicyType identifies which evaluator a policy is dispatched to.
type PolicyType string

const (
	PolicyTypeClinic            PolicyType = "CLINIC"
	PolicyTypeSpecialty         PolicyType = "SPECIALTY"
	PolicyTypeDocumentType      PolicyType = "DOCUMENT_TYPE"
	PolicyTypeTimeBased         PolicyType = "TIME_BASED"
	PolicyTypeProfessional      PolicyType = "PROFESSIONAL"
	PolicyTypeEmergencyOverride PolicyType = "EMERGENCY_OVERRIDE"
)

// PolicyEffect is the outcome a matching policy asserts.
type PolicyEffect string

const (
	EffectPermit PolicyEffect = "PERMIT"
	EffectDeny   PolicyEffect = "DENY"
)

type PolicyStatus string

const (
	PolicyStatusGranted PolicyStatus = "GRANTED"
	PolicyStatusRevoked PolicyStatus = "REVOKED"
)

// AccessPolicy is a patient-authored standing access rule.
type AccessPolicy struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	PatientCI  string          `db:"patient_ci" json:"patient_ci"`
	PolicyType PolicyType      `db:"policy_type" json:"policy_type"`
	Effect     PolicyEffect    `db:"effect" json:"effect"`
	Config     json.RawMessage `db:"config" json:"config"`
	Priority   int             `db:"priority" json:"priority"`
	Status     PolicyStatus    `db:"status" json:"status"`
	ValidFrom  *time.Time      `db:"valid_from" json:"valid_from,omitempty"`
	ValidUntil *time.Time      `db:"valid_until" json:"valid_until,omitempty"`
	DocumentID *uuid.UUID      `db:"document_id" json:"document_id,omitempty"`
	ClinicID   *uuid.UUID      `db:"clinic_id" json:"clinic_id,omitempty"`
	Specialty  *string         `db:"specialty" json:"specialty,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// ActiveAt reports whether the policy is in force at t: granted and
// inside its validity window (open bounds when null).
func (p *AccessPolicy) ActiveAt(t time.Time) bool {
	if p.Status != PolicyStatusGranted {
		return false
	}
	if p.ValidFrom != nil && t.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && t.After(*p.ValidUntil) {
		return false
	}
	return true
}

// Revoked returns a snapshot with the status transitioned to REVOKED.
func (p AccessPolicy) Revoked(now time.Time) AccessPolicy {
	p.Status = PolicyStatusRevoked
	p.UpdatedAt = now
	return p
}

// Type-specific policy configuration, stored in AccessPolicy.Config.

type ClinicPolicyConfig struct {
	AllowedClinics []uuid.UUID `json:"allowed_clinics"`
}

type SpecialtyPolicyConfig struct {
	AllowedSpecialties []string `json:"allowed_specialties"`
}

type DocumentTypePolicyConfig struct {
	AllowedTypes []string `json:"allowed_types"`
}

// TimePolicyConfig restricts access to certain days and hours.
// AllowedHours is an "HH:mm-HH:mm" range; when end < start the range
// wraps past midnight.
type TimePolicyConfig struct {
	AllowedDays  []string `json:"allowed_days"`
	AllowedHours string   `json:"allowed_hours"`
}

type ProfessionalPolicyConfig struct {
	AllowedProfessionals []string `json:"allowed_professionals"`
	DeniedProfessionals  []string `json:"denied_professionals"`
}

type EmergencyPolicyConfig struct {
	RequiresJustification bool `json:"requires_justification"`
	NotifyPatient         bool `json:"notify_patient"`
}
