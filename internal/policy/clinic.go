package policy

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// ClinicEvaluator applies the policy's effect when the access comes
// from one of the configured clinics.
type ClinicEvaluator struct{}

func (e *ClinicEvaluator) Supports(t model.PolicyType) bool {
	return t == model.PolicyTypeClinic
}

func (e *ClinicEvaluator) Evaluate(_ context.Context, policy *model.AccessPolicy, access *model.AccessContext) Result {
	var cfg model.ClinicPolicyConfig
	if err := json.Unmarshal(policy.Config, &cfg); err != nil {
		log.Warn().Err(err).Str("policy_id", policy.ID.String()).Msg("malformed clinic policy config, skipping")
		return NotApplicable
	}

	for _, clinicID := range cfg.AllowedClinics {
		if clinicID == access.ClinicID {
			return effectResult(policy.Effect)
		}
	}
	return NotApplicable
}
