package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEvent is one immutable entry in the append-only audit trail.
// Core components only ever insert these; nothing updates or deletes
// them.
type AuditEvent struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	EventType     string          `db:"event_type" json:"event_type"`
	ActorID       string          `db:"actor_id" json:"actor_id"`
	ActorType     string          `db:"actor_type" json:"actor_type"`
	ResourceType  string          `db:"resource_type" json:"resource_type"`
	ResourceID    string          `db:"resource_id" json:"resource_id"`
	Outcome       string          `db:"outcome" json:"outcome"`
	Severity      string          `db:"severity" json:"severity"`
	NotifyPatient bool            `db:"notify_patient" json:"notify_patient"`
	IPAddress     string          `db:"ip_address" json:"ip_address"`
	UserAgent     string          `db:"user_agent" json:"user_agent"`
	Details       json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

const (
	// Event types
	AuditEventDecision        = "access.decision"
	AuditEventEmergencyAccess = "access.emergency"
	AuditEventRequestCreated  = "access_request.created"
	AuditEventRequestApproved = "access_request.approved"
	AuditEventRequestDenied   = "access_request.denied"
	AuditEventRequestExpired  = "access_request.expired"
	AuditEventPolicyCreated   = "policy.created"
	AuditEventPolicyRevoked   = "policy.revoked"
	AuditEventPolicyDeleted   = "policy.deleted"
	AuditEventDocRegistered   = "document.registered"
	AuditEventDocStatusChange = "document.status_changed"
	AuditEventDeniedAttempt   = "authorization.denied_attempt"

	// Actor types
	AuditActorProfessional = "professional"
	AuditActorPatient      = "patient"
	AuditActorClinicNode   = "clinic_node"
	AuditActorSystem       = "system"

	// Resource types
	AuditResourcePolicy   = "access_policy"
	AuditResourceRequest  = "access_request"
	AuditResourceDocument = "rndc_document"

	// Outcomes
	AuditOutcomePermit  = "PERMIT"
	AuditOutcomeDeny    = "DENY"
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"

	// Severities
	AuditSeverityInfo = "info"
	AuditSeverityHigh = "high"
)
