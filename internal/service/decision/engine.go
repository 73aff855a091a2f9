package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/hcen-uy/exchange-hub/internal/cache"
	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/policy"
	"github.com/hcen-uy/exchange-hub/internal/repository"
	"github.com/hcen-uy/exchange-hub/internal/service/audit"
	apperrors "github.com/hcen-uy/exchange-hub/pkg/errors"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
	"github.com/hcen-uy/exchange-hub/pkg/metrics"
)

// DefaultCacheTTL bounds how long a decision computed from a stale
// policy snapshot can be served.
const DefaultCacheTTL = 5 * time.Minute

// Engine is the policy decision point. It combines standing policies,
// the approved-request fallback, and a short-TTL cache into a single
// PERMIT/DENY answer. Absence of an explicit grant is DENY; the only
// fail-open path is the emergency override evaluator.
type Engine struct {
	policies  repository.PolicyRepository
	requests  repository.AccessRequestRepository
	documents repository.DocumentRepository
	cache     cache.DecisionCache
	registry  *policy.Registry
	auditor   *audit.Service
	metrics   *metrics.Metrics
	cacheTTL  time.Duration
	logger    *logger.Logger
}

type Config struct {
	CacheTTL time.Duration
}

func NewEngine(
	policies repository.PolicyRepository,
	requests repository.AccessRequestRepository,
	documents repository.DocumentRepository,
	decisionCache cache.DecisionCache,
	registry *policy.Registry,
	auditor *audit.Service,
	m *metrics.Metrics,
	cfg Config,
	log *logger.Logger,
) *Engine {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Engine{
		policies:  policies,
		requests:  requests,
		documents: documents,
		cache:     decisionCache,
		registry:  registry,
		auditor:   auditor,
		metrics:   m,
		cacheTTL:  ttl,
		logger:    log.WithComponent("decision-engine"),
	}
}

// Decide answers one access attempt.
func (e *Engine) Decide(ctx context.Context, access *model.AccessContext) (*model.DecisionResult, error) {
	if access.PatientCI == "" || access.ProfessionalID == "" {
		return nil, apperrors.Validation("patient CI and professional ID are required", nil)
	}
	if access.RequestTime.IsZero() {
		access.RequestTime = time.Now()
	}

	start := time.Now()
	specialty := primarySpecialty(access)

	// Resolve the document type before touching the cache: a
	// document-ID-only attempt must hit the same key the decision was
	// stored under.
	e.resolveDocument(ctx, access)

	if cached, ok := e.cache.Get(ctx, access.PatientCI, specialty, access.DocumentType); ok {
		if e.metrics != nil {
			e.metrics.CacheHits.Inc()
		}
		result := &model.DecisionResult{Decision: cached, Path: model.ResolutionCache}
		e.finish(ctx, access, result, start)
		return result, nil
	}
	if e.metrics != nil {
		e.metrics.CacheMisses.Inc()
	}

	result, err := e.evaluate(ctx, access)
	if err != nil {
		return nil, err
	}

	e.cache.Put(ctx, access.PatientCI, specialty, access.DocumentType, result.Decision, e.cacheTTL)
	e.finish(ctx, access, result, start)
	return result, nil
}

func (e *Engine) evaluate(ctx context.Context, access *model.AccessContext) (*model.DecisionResult, error) {
	policies, err := e.loadPolicies(ctx, access)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}

	type applicable struct {
		policy *model.AccessPolicy
		result policy.Result
	}
	var decided []applicable

	for _, p := range policies {
		if !p.ActiveAt(access.RequestTime) {
			continue
		}
		evaluator, ok := e.registry.ForType(p.PolicyType)
		if !ok {
			e.logger.Warn("no evaluator for policy type",
				"policy_id", p.ID.String(), "policy_type", string(p.PolicyType))
			continue
		}

		res := evaluator.Evaluate(ctx, p, access)
		if res == policy.NotApplicable {
			continue
		}

		// An applicable emergency override wins unconditionally,
		// regardless of any other policy's priority.
		if p.PolicyType == model.PolicyTypeEmergencyOverride {
			if e.metrics != nil {
				e.metrics.EmergencyAccesses.Inc()
			}
			id := p.ID
			return &model.DecisionResult{
				Decision: model.DecisionPermit,
				Path:     model.ResolutionEmergency,
				PolicyID: &id,
			}, nil
		}

		decided = append(decided, applicable{policy: p, result: res})
	}

	if len(decided) > 0 {
		// Highest priority wins; ties go to the most recently created.
		sort.SliceStable(decided, func(i, j int) bool {
			if decided[i].policy.Priority != decided[j].policy.Priority {
				return decided[i].policy.Priority > decided[j].policy.Priority
			}
			return decided[i].policy.CreatedAt.After(decided[j].policy.CreatedAt)
		})

		winner := decided[0]
		outcome := model.DecisionDeny
		if winner.result == policy.Permit {
			outcome = model.DecisionPermit
		}
		id := winner.policy.ID
		return &model.DecisionResult{
			Decision: outcome,
			Path:     model.ResolutionPolicy,
			PolicyID: &id,
		}, nil
	}

	// No standing policy applied; fall back to an approved, unexpired
	// access request.
	approved, err := e.requests.FindApprovedBySpecialty(
		ctx, access.Specialties, access.ClinicID, access.PatientCI, access.DocumentID, access.RequestTime)
	if err != nil {
		return nil, fmt.Errorf("access request fallback: %w", err)
	}
	if approved != nil {
		return &model.DecisionResult{
			Decision: model.DecisionPermit,
			Path:     model.ResolutionAccessRequest,
		}, nil
	}

	return &model.DecisionResult{
		Decision: model.DecisionDeny,
		Path:     model.ResolutionDefaultDeny,
	}, nil
}

// loadPolicies fetches the candidate policy set. For a document-scoped
// attempt both document-scoped and general (NULL document) rows are
// included; excluding either would change the decision.
func (e *Engine) loadPolicies(ctx context.Context, access *model.AccessContext) ([]*model.AccessPolicy, error) {
	if access.DocumentID != nil {
		return e.policies.FindByPatientAndDocument(ctx, access.PatientCI, *access.DocumentID)
	}
	return e.policies.FindActiveByPatient(ctx, access.PatientCI, access.RequestTime)
}

// resolveDocument fills document attributes the evaluators need from
// the registry. Best-effort: a lookup failure leaves the context as
// supplied and the document-type evaluators simply find no match.
func (e *Engine) resolveDocument(ctx context.Context, access *model.AccessContext) {
	if access.DocumentID == nil || access.DocumentType != "" {
		return
	}
	doc, err := e.documents.Get(ctx, *access.DocumentID)
	if err != nil {
		e.logger.Warn("failed to resolve document attributes",
			"document_id", access.DocumentID.String(), "error", err.Error())
		return
	}
	access.DocumentType = doc.DocumentType
	if access.PatientCI == "" {
		access.PatientCI = doc.PatientCI
	}
}

func (e *Engine) finish(ctx context.Context, access *model.AccessContext, result *model.DecisionResult, start time.Time) {
	if e.metrics != nil {
		e.metrics.DecisionsTotal.WithLabelValues(string(result.Decision), string(result.Path)).Inc()
		e.metrics.DecisionLatency.Observe(time.Since(start).Seconds())
	}

	details, _ := json.Marshal(map[string]interface{}{
		"clinic_id":     access.ClinicID,
		"document_id":   access.DocumentID,
		"document_type": access.DocumentType,
		"specialties":   access.Specialties,
		"path":          result.Path,
		"policy_id":     result.PolicyID,
	})
	e.auditor.Record(ctx, &model.AuditEvent{
		EventType:    model.AuditEventDecision,
		ActorID:      access.ProfessionalID,
		ActorType:    model.AuditActorProfessional,
		ResourceType: model.AuditResourceDocument,
		ResourceID:   access.PatientCI,
		Outcome:      string(result.Decision),
		Severity:     model.AuditSeverityInfo,
		Details:      details,
	})
}

func primarySpecialty(access *model.AccessContext) string {
	if len(access.Specialties) == 0 {
		return ""
	}
	return access.Specialties[0]
}
