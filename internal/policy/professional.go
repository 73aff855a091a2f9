package policy

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// ProfessionalEvaluator matches the requesting professional against an
// explicit deny-list and allow-list. The deny-list always wins over
// the allow-list on the same policy, and the policy's declared effect
// is ignored: which list matched determines the outcome.
type ProfessionalEvaluator struct{}

func (e *ProfessionalEvaluator) Supports(t model.PolicyType) bool {
	return t == model.PolicyTypeProfessional
}

func (e *ProfessionalEvaluator) Evaluate(_ context.Context, policy *model.AccessPolicy, access *model.AccessContext) Result {
	var cfg model.ProfessionalPolicyConfig
	if err := json.Unmarshal(policy.Config, &cfg); err != nil {
		log.Warn().Err(err).Str("policy_id", policy.ID.String()).Msg("malformed professional policy config, skipping")
		return NotApplicable
	}

	for _, id := range cfg.DeniedProfessionals {
		if id == access.ProfessionalID {
			return Deny
		}
	}
	for _, id := range cfg.AllowedProfessionals {
		if id == access.ProfessionalID {
			return Permit
		}
	}
	return NotApplicable
}
