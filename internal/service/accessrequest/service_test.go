package accessrequest

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcen-uy/exchange-hub/internal/cache"
	"github.com/hcen-uy/exchange-hub/internal/model"
	"github.com/hcen-uy/exchange-hub/internal/service/audit"
	apperrors "github.com/hcen-uy/exchange-hub/pkg/errors"
	"github.com/hcen-uy/exchange-hub/pkg/logger"
	"github.com/hcen-uy/exchange-hub/pkg/metrics"
)

const (
	testPatient      = "1.234.567-8"
	testProfessional = "4.555.666-7"
)

var testClinic = uuid.MustParse("6f9a4f1e-0c1d-4b8e-9a6e-2f1f6a3b9c01")

type fakeRequestRepo struct {
	requests map[uuid.UUID]*model.AccessRequest
	swept    int64
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: map[uuid.UUID]*model.AccessRequest{}}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *model.AccessRequest) error {
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) Get(_ context.Context, id uuid.UUID) (*model.AccessRequest, error) {
	if req, ok := r.requests[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, apperrors.NotFound("access request")
}

func (r *fakeRequestRepo) UpdateStatus(_ context.Context, req *model.AccessRequest) error {
	stored, ok := r.requests[req.ID]
	if !ok {
		return apperrors.NotFound("access request")
	}
	if stored.Status != model.RequestStatusPending {
		return apperrors.IllegalState("access request already responded or expired", string(stored.Status))
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) FindPendingDuplicate(_ context.Context, professionalID, patientCI string, documentID *uuid.UUID, now time.Time) (*model.AccessRequest, error) {
	for _, req := range r.requests {
		if req.ProfessionalID != professionalID || req.PatientCI != patientCI {
			continue
		}
		if req.Status != model.RequestStatusPending || req.IsExpired(now) {
			continue
		}
		if (req.DocumentID == nil) != (documentID == nil) {
			continue
		}
		if req.DocumentID != nil && *req.DocumentID != *documentID {
			continue
		}
		cp := *req
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRequestRepo) FindApprovedBySpecialty(_ context.Context, _ []string, _ uuid.UUID, _ string, _ *uuid.UUID, _ time.Time) (*model.AccessRequest, error) {
	return nil, nil
}

func (r *fakeRequestRepo) ListByPatient(_ context.Context, patientCI string, status model.RequestStatus) ([]*model.AccessRequest, error) {
	var out []*model.AccessRequest
	for _, req := range r.requests {
		if req.PatientCI == patientCI && (status == "" || req.Status == status) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for id, req := range r.requests {
		if expired, moved := req.Expired(now); moved {
			r.requests[id] = &expired
			count++
		}
	}
	r.swept += count
	return count, nil
}

type fakeAuditRepo struct{}

func (r *fakeAuditRepo) Create(_ context.Context, _ *model.AuditEvent) error { return nil }
func (r *fakeAuditRepo) List(_ context.Context, _ map[string]interface{}, _ model.Pagination) ([]*model.AuditEvent, int64, error) {
	return nil, 0, nil
}
func (r *fakeAuditRepo) DeleteBefore(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

type fixture struct {
	svc   *Service
	repo  *fakeRequestRepo
	cache *cache.MemoryCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	repo := newFakeRequestRepo()
	decisionCache := cache.NewMemoryCache(5 * time.Minute)
	svc := NewService(repo, decisionCache, audit.NewService(&fakeAuditRepo{}, nil, log), nil, log)
	return &fixture{svc: svc, repo: repo, cache: decisionCache}
}

func createInput() CreateInput {
	return CreateInput{
		ProfessionalID: testProfessional,
		PatientCI:      testPatient,
		Specialties:    []string{"CARDIOLOGY"},
		ClinicID:       testClinic,
		Reason:         "follow-up consultation",
		Urgency:        model.UrgencyRoutine,
	}
}

func TestCreateSetsDefaults(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.WithinDuration(t, req.RequestedAt.Add(model.RequestTTL), req.ExpiresAt, time.Second)
}

func TestCreateDeduplicatesPendingRequests(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	second, err := f.svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.repo.requests, 1)
}

func TestCreateDistinctDocumentsAreNotDuplicates(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	docID := uuid.New()
	input := createInput()
	input.DocumentID = &docID
	second, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateRequiresReason(t *testing.T) {
	f := newFixture(t)

	input := createInput()
	input.Reason = ""
	_, err := f.svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestApproveStampsResponse(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	approved, err := f.svc.Approve(context.Background(), req.ID, testPatient, "my cardiologist")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.RespondedAt)
}

func TestApproveInvalidatesPatientCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Create(ctx, createInput())
	require.NoError(t, err)

	f.cache.Put(ctx, testPatient, "CARDIOLOGY", "LAB_RESULT", model.DecisionDeny, 5*time.Minute)

	_, err = f.svc.Approve(ctx, req.ID, testPatient, "")
	require.NoError(t, err)

	_, ok := f.cache.Get(ctx, testPatient, "CARDIOLOGY", "LAB_RESULT")
	assert.False(t, ok, "stale decision survived approval")
}

func TestApproveByWrongPatientIsUnauthorized(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), req.ID, "9.999.999-9", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func TestApproveTwiceIsIllegalState(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), req.ID, testPatient, "")
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), req.ID, testPatient, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindState))
}

func TestDenyRequiresReason(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	_, err = f.svc.Deny(context.Background(), req.ID, testPatient, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	denied, err := f.svc.Deny(context.Background(), req.ID, testPatient, "prefer my own doctor")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusDenied, denied.Status)
}

func TestApproveAfterExpiryIsIllegalState(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	// Push the request past its 48h window.
	stored := f.repo.requests[req.ID]
	stored.RequestedAt = time.Now().Add(-49 * time.Hour)
	stored.ExpiresAt = time.Now().Add(-time.Hour)

	_, err = f.svc.Approve(context.Background(), req.ID, testPatient, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindState))
}

func TestSweepExpiredMovesLapsedRequests(t *testing.T) {
	f := newFixture(t)
	m := metrics.NewMetrics("sweep_test")
	f.svc.metrics = m
	ctx := context.Background()

	req, err := f.svc.Create(ctx, createInput())
	require.NoError(t, err)

	stored := f.repo.requests[req.ID]
	stored.ExpiresAt = time.Now().Add(-time.Hour)
	assert.True(t, stored.IsExpired(time.Now()))

	count, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsSwept))

	swept, err := f.svc.Get(ctx, req.ID, testPatient)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusExpired, swept.Status)

	// A second sweep finds nothing; terminal states never move again,
	// and an empty sweep leaves the counter alone.
	count, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsSwept))
}
