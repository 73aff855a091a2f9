// Package policy contains one pure, stateless evaluator per policy
// type. Each evaluator inspects a single policy against a single
// access context and answers PERMIT, DENY, or "not applicable"; the
// decision engine owns combining those answers.
package policy

import (
	"context"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// Result is one evaluator's verdict on one policy.
type Result int

const (
	NotApplicable Result = iota
	Permit
	Deny
)

func (r Result) String() string {
	switch r {
	case Permit:
		return "PERMIT"
	case Deny:
		return "DENY"
	default:
		return "NOT_APPLICABLE"
	}
}

// Evaluator evaluates one policy type.
type Evaluator interface {
	Supports(t model.PolicyType) bool
	Evaluate(ctx context.Context, policy *model.AccessPolicy, access *model.AccessContext) Result
}

// AuditSink receives fire-and-forget audit events. Implementations
// never return an error; failures are logged and swallowed.
type AuditSink interface {
	Record(ctx context.Context, event *model.AuditEvent)
}

// Registry maps each policy type to its evaluator. Dispatch is a
// table lookup, nothing dynamic.
type Registry struct {
	evaluators map[model.PolicyType]Evaluator
}

// NewRegistry wires the full evaluator set. The audit sink is only
// used by the emergency override evaluator.
func NewRegistry(sink AuditSink) *Registry {
	return &Registry{
		evaluators: map[model.PolicyType]Evaluator{
			model.PolicyTypeClinic:            &ClinicEvaluator{},
			model.PolicyTypeSpecialty:         &SpecialtyEvaluator{},
			model.PolicyTypeDocumentType:      &DocumentTypeEvaluator{},
			model.PolicyTypeTimeBased:         &TimeBasedEvaluator{},
			model.PolicyTypeProfessional:      &ProfessionalEvaluator{},
			model.PolicyTypeEmergencyOverride: &EmergencyOverrideEvaluator{Sink: sink},
		},
	}
}

// ForType returns the evaluator for t.
func (r *Registry) ForType(t model.PolicyType) (Evaluator, bool) {
	e, ok := r.evaluators[t]
	return e, ok
}

// effectResult translates a policy's declared effect into a Result.
func effectResult(effect model.PolicyEffect) Result {
	if effect == model.EffectDeny {
		return Deny
	}
	return Permit
}
