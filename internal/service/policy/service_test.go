package policy

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcen-uy/exchange-hub/internal/cache"
	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/service/audit"
	apperrors "github.com/hcen-uy/exchange-hub/pkg/errors"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
)

const testPatient = "1.234.567-8"

type fakePolicyRepo struct {
	policies map[uuid.UUID]*model.AccessPolicy
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{policies: map[uuid.UUID]*model.AccessPolicy{}}
}

func (r *fakePolicyRepo) Create(_ context.Context, policy *model.AccessPolicy) error {
	cp := *policy
	r.policies[policy.ID] = &cp
	return nil
}

func (r *fakePolicyRepo) Get(_ context.Context, id uuid.UUID) (*model.AccessPolicy, error) {
	if policy, ok := r.policies[id]; ok {
		cp := *policy
		return &cp, nil
	}
	return nil, apperrors.NotFound("policy")
}

func (r *fakePolicyRepo) Update(_ context.Context, policy *model.AccessPolicy) error {
	if _, ok := r.policies[policy.ID]; !ok {
		return apperrors.NotFound("policy")
	}
	cp := *policy
	r.policies[policy.ID] = &cp
	return nil
}

func (r *fakePolicyRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.policies[id]; !ok {
		return apperrors.NotFound("policy")
	}
	delete(r.policies, id)
	return nil
}

func (r *fakePolicyRepo) ListByPatient(_ context.Context, patientCI string) ([]*model.AccessPolicy, error) {
	var out []*model.AccessPolicy
	for _, policy := range r.policies {
		if policy.PatientCI == patientCI {
			out = append(out, policy)
		}
	}
	return out, nil
}

func (r *fakePolicyRepo) FindActiveByPatient(_ context.Context, patientCI string, now time.Time) ([]*model.AccessPolicy, error) {
	var out []*model.AccessPolicy
	for _, policy := range r.policies {
		if policy.PatientCI == patientCI && policy.ActiveAt(now) {
			out = append(out, policy)
		}
	}
	return out, nil
}

func (r *fakePolicyRepo) FindActiveByPatientClinicSpecialty(_ context.Context, patientCI string, _ uuid.UUID, _ string, now time.Time) ([]*model.AccessPolicy, error) {
	return r.FindActiveByPatient(context.Background(), patientCI, now)
}

func (r *fakePolicyRepo) FindByPatientAndDocument(_ context.Context, patientCI string, _ uuid.UUID) ([]*model.AccessPolicy, error) {
	return r.ListByPatient(context.Background(), patientCI)
}

func (r *fakePolicyRepo) ExistsActive(_ context.Context, patientCI string, _ uuid.UUID, _ string, now time.Time) (bool, error) {
	active, _ := r.FindActiveByPatient(context.Background(), patientCI, now)
	return len(active) > 0, nil
}

type nilAuditRepo struct{}

func (nilAuditRepo) Create(_ context.Context, _ *model.AuditEvent) error { return nil }
func (nilAuditRepo) List(_ context.Context, _ map[string]interface{}, _ model.Pagination) ([]*model.AuditEvent, int64, error) {
	return nil, 0, nil
}
func (nilAuditRepo) DeleteBefore(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

type fixture struct {
	svc   *Service
	repo  *fakePolicyRepo
	cache *cache.MemoryCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	repo := newFakePolicyRepo()
	decisionCache := cache.NewMemoryCache(5 * time.Minute)
	return &fixture{
		svc:   NewService(repo, decisionCache, audit.NewService(nilAuditRepo{}, nil, log)),
		repo:  repo,
		cache: decisionCache,
	}
}

func specialtyPolicy() *model.AccessPolicy {
	config, _ := json.Marshal(model.SpecialtyPolicyConfig{AllowedSpecialties: []string{"CARDIOLOGY"}})
	return &model.AccessPolicy{
		PatientCI:  testPatient,
		PolicyType: model.PolicyTypeSpecialty,
		Effect:     model.EffectPermit,
		Config:     config,
		Priority:   10,
	}
}

func TestCreateGrantsAndStamps(t *testing.T) {
	f := newFixture(t)

	policy := specialtyPolicy()
	require.NoError(t, f.svc.Create(context.Background(), policy))
	assert.NotEqual(t, uuid.Nil, policy.ID)
	assert.Equal(t, model.PolicyStatusGranted, policy.Status)
	assert.False(t, policy.CreatedAt.IsZero())
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	policy := specialtyPolicy()
	policy.PatientCI = ""
	assert.Error(t, f.svc.Create(ctx, policy))

	policy = specialtyPolicy()
	policy.Config = nil
	assert.Error(t, f.svc.Create(ctx, policy))

	policy = specialtyPolicy()
	policy.PolicyType = model.PolicyType("GEO_FENCE")
	assert.Error(t, f.svc.Create(ctx, policy))

	policy = specialtyPolicy()
	policy.Effect = model.PolicyEffect("MAYBE")
	assert.Error(t, f.svc.Create(ctx, policy))

	policy = specialtyPolicy()
	from := time.Now()
	until := from.Add(-time.Hour)
	policy.ValidFrom = &from
	policy.ValidUntil = &until
	assert.Error(t, f.svc.Create(ctx, policy))
}

func TestCreateRejectsMalformedConfig(t *testing.T) {
	f := newFixture(t)

	policy := specialtyPolicy()
	policy.Config = json.RawMessage(`{"allowed_specialties": "CARDIOLOGY"}`)
	err := f.svc.Create(context.Background(), policy)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestRevokeOnlyFromGranted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	policy := specialtyPolicy()
	require.NoError(t, f.svc.Create(ctx, policy))

	require.NoError(t, f.svc.Revoke(ctx, policy.ID, testPatient))

	stored, err := f.repo.Get(ctx, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PolicyStatusRevoked, stored.Status)

	err = f.svc.Revoke(ctx, policy.ID, testPatient)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindState))
}

func TestRevokeByNonOwnerIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	policy := specialtyPolicy()
	require.NoError(t, f.svc.Create(ctx, policy))

	err := f.svc.Revoke(ctx, policy.ID, "9.999.999-9")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))

	stored, err := f.repo.Get(ctx, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PolicyStatusGranted, stored.Status)
}

func TestMutationsInvalidateDecisionCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := func() {
		f.cache.Put(ctx, testPatient, "CARDIOLOGY", "LAB_RESULT", model.DecisionPermit, 5*time.Minute)
	}
	cached := func() bool {
		_, ok := f.cache.Get(ctx, testPatient, "CARDIOLOGY", "LAB_RESULT")
		return ok
	}

	seed()
	policy := specialtyPolicy()
	require.NoError(t, f.svc.Create(ctx, policy))
	assert.False(t, cached(), "create left stale decisions")

	seed()
	require.NoError(t, f.svc.Revoke(ctx, policy.ID, testPatient))
	assert.False(t, cached(), "revoke left stale decisions")

	seed()
	require.NoError(t, f.svc.Delete(ctx, policy.ID, testPatient))
	assert.False(t, cached(), "delete left stale decisions")
}

func TestDeleteRemovesPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	policy := specialtyPolicy()
	require.NoError(t, f.svc.Create(ctx, policy))
	require.NoError(t, f.svc.Delete(ctx, policy.ID, testPatient))

	_, err := f.repo.Get(ctx, policy.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	list, err := f.svc.List(ctx, testPatient)
	require.NoError(t, err)
	assert.Empty(t, list)
}
