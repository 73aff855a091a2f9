package policy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// EmergencyOverrideEvaluator always permits. Access to records in a
// life-threatening situation must not hinge on configuration being
// parseable or the justification being filled in, so every internal
// failure here degrades to PERMIT with a logged warning. The audit
// trail, not the decision, is the enforcement mechanism.
type EmergencyOverrideEvaluator struct {
	Sink AuditSink
}

func (e *EmergencyOverrideEvaluator) Supports(t model.PolicyType) bool {
	return t == model.PolicyTypeEmergencyOverride
}

func (e *EmergencyOverrideEvaluator) Evaluate(ctx context.Context, policy *model.AccessPolicy, access *model.AccessContext) Result {
	var cfg model.EmergencyPolicyConfig
	if err := json.Unmarshal(policy.Config, &cfg); err != nil {
		log.Warn().Err(err).Str("policy_id", policy.ID.String()).Msg("malformed emergency override config, permitting anyway")
		cfg = model.EmergencyPolicyConfig{}
	}

	if cfg.RequiresJustification && access.RequestReason == "" {
		log.Warn().
			Str("policy_id", policy.ID.String()).
			Str("professional_id", access.ProfessionalID).
			Str("patient_ci", access.PatientCI).
			Msg("emergency access without justification")
	}

	if e.Sink != nil {
		details, _ := json.Marshal(map[string]interface{}{
			"policy_id":     policy.ID,
			"clinic_id":     access.ClinicID,
			"document_id":   access.DocumentID,
			"document_type": access.DocumentType,
			"justification": access.RequestReason,
		})
		e.Sink.Record(ctx, &model.AuditEvent{
			ID:            uuid.New(),
			EventType:     model.AuditEventEmergencyAccess,
			ActorID:       access.ProfessionalID,
			ActorType:     model.AuditActorProfessional,
			ResourceType:  model.AuditResourceDocument,
			ResourceID:    access.PatientCI,
			Outcome:       model.AuditOutcomePermit,
			Severity:      model.AuditSeverityHigh,
			NotifyPatient: cfg.NotifyPatient,
			Details:       details,
			CreatedAt:     time.Now(),
		})
	}

	return Permit
}
