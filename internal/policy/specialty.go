package policy

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// SpecialtyEvaluator applies the policy's effect when any of the
// requesting professional's specialties intersects the configured set.
type SpecialtyEvaluator struct{}

func (e *SpecialtyEvaluator) Supports(t model.PolicyType) bool {
	return t == model.PolicyTypeSpecialty
}

func (e *SpecialtyEvaluator) Evaluate(_ context.Context, policy *model.AccessPolicy, access *model.AccessContext) Result {
	var cfg model.SpecialtyPolicyConfig
	if err := json.Unmarshal(policy.Config, &cfg); err != nil {
		log.Warn().Err(err).Str("policy_id", policy.ID.String()).Msg("malformed specialty policy config, skipping")
		return NotApplicable
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedSpecialties))
	for _, s := range cfg.AllowedSpecialties {
		allowed[s] = struct{}{}
	}

	for _, s := range access.Specialties {
		if _, ok := allowed[s]; ok {
			return effectResult(policy.Effect)
		}
	}
	return NotApplicable
}
