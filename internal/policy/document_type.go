package policy

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// DocumentTypeEvaluator applies the policy's effect when the accessed
// document's clinical category is one of the configured types.
type DocumentTypeEvaluator struct{}

func (e *DocumentTypeEvaluator) Supports(t model.PolicyType) bool {
	return t == model.PolicyTypeDocumentType
}

func (e *DocumentTypeEvaluator) Evaluate(_ context.Context, policy *model.AccessPolicy, access *model.AccessContext) Result {
	var cfg model.DocumentTypePolicyConfig
	if err := json.Unmarshal(policy.Config, &cfg); err != nil {
		log.Warn().Err(err).Str("policy_id", policy.ID.String()).Msg("malformed document type policy config, skipping")
		return NotApplicable
	}

	for _, docType := range cfg.AllowedTypes {
		if docType == access.DocumentType {
			return effectResult(policy.Effect)
		}
	}
	return NotApplicable
}
