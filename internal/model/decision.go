package model

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the engine's final answer for one access attempt.
type Decision string

const (
	DecisionPermit Decision = "PERMIT"
	DecisionDeny   Decision = "DENY"
)

// ResolutionPath records which branch of the engine produced a
// decision, for audit and metrics.
type ResolutionPath string

const (
	ResolutionCache         ResolutionPath = "cache"
	ResolutionPolicy        ResolutionPath = "policy"
	ResolutionEmergency     ResolutionPath = "emergency_override"
	ResolutionAccessRequest ResolutionPath = "access_request"
	ResolutionDefaultDeny   ResolutionPath = "default_deny"
)

// AccessContext carries everything the evaluators may inspect about
// one document-access attempt.
type AccessContext struct {
	PatientCI      string     `json:"patient_ci"`
	ProfessionalID string     `json:"professional_id"`
	Specialties    []string   `json:"specialties"`
	ClinicID       uuid.UUID  `json:"clinic_id"`
	DocumentID     *uuid.UUID `json:"document_id,omitempty"`
	DocumentType   string     `json:"document_type"`
	RequestReason  string     `json:"request_reason,omitempty"`
	RequestTime    time.Time  `json:"request_time"`
}

// DecisionResult pairs the final decision with how it was reached.
type DecisionResult struct {
	Decision Decision       `json:"decision"`
	Path     ResolutionPath `json:"path"`
	// PolicyID is set when a standing policy decided the outcome.
	PolicyID *uuid.UUID `json:"policy_id,omitempty"`
}
