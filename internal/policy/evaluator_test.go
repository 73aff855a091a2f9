package policy

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

func mustConfig(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func testPolicy(t *testing.T, policyType model.PolicyType, effect model.PolicyEffect, config interface{}) *model.AccessPolicy {
	t.Helper()
	return &model.AccessPolicy{
		ID:         uuid.New(),
		PatientCI:  "1.234.567-8",
		PolicyType: policyType,
		Effect:     effect,
		Config:     mustConfig(t, config),
		Status:     model.PolicyStatusGranted,
	}
}

func testAccess() *model.AccessContext {
	return &model.AccessContext{
		PatientCI:      "1.234.567-8",
		ProfessionalID: "4.555.666-7",
		Specialties:    []string{"CARDIOLOGY"},
		ClinicID:       uuid.MustParse("6f9a4f1e-0c1d-4b8e-9a6e-2f1f6a3b9c01"),
		DocumentType:   "LAB_RESULT",
		RequestTime:    time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC), // a Wednesday
	}
}

func TestClinicEvaluator(t *testing.T) {
	ctx := context.Background()
	access := testAccess()
	e := &ClinicEvaluator{}

	permit := testPolicy(t, model.PolicyTypeClinic, model.EffectPermit, model.ClinicPolicyConfig{
		AllowedClinics: []uuid.UUID{access.ClinicID},
	})
	assert.Equal(t, Permit, e.Evaluate(ctx, permit, access))

	deny := testPolicy(t, model.PolicyTypeClinic, model.EffectDeny, model.ClinicPolicyConfig{
		AllowedClinics: []uuid.UUID{access.ClinicID},
	})
	assert.Equal(t, Deny, e.Evaluate(ctx, deny, access))

	other := testPolicy(t, model.PolicyTypeClinic, model.EffectPermit, model.ClinicPolicyConfig{
		AllowedClinics: []uuid.UUID{uuid.New()},
	})
	assert.Equal(t, NotApplicable, e.Evaluate(ctx, other, access))
}

func TestSpecialtyEvaluatorIntersection(t *testing.T) {
	ctx := context.Background()
	e := &SpecialtyEvaluator{}

	policy := testPolicy(t, model.PolicyTypeSpecialty, model.EffectPermit, model.SpecialtyPolicyConfig{
		AllowedSpecialties: []string{"ONCOLOGY", "CARDIOLOGY"},
	})

	access := testAccess()
	access.Specialties = []string{"PEDIATRICS", "CARDIOLOGY"}
	assert.Equal(t, Permit, e.Evaluate(ctx, policy, access))

	access.Specialties = []string{"PEDIATRICS"}
	assert.Equal(t, NotApplicable, e.Evaluate(ctx, policy, access))
}

func TestDocumentTypeEvaluator(t *testing.T) {
	ctx := context.Background()
	e := &DocumentTypeEvaluator{}
	access := testAccess()

	policy := testPolicy(t, model.PolicyTypeDocumentType, model.EffectDeny, model.DocumentTypePolicyConfig{
		AllowedTypes: []string{"LAB_RESULT", "IMAGING"},
	})
	assert.Equal(t, Deny, e.Evaluate(ctx, policy, access))

	access.DocumentType = "DISCHARGE_SUMMARY"
	assert.Equal(t, NotApplicable, e.Evaluate(ctx, policy, access))
}

func TestTimeBasedEvaluator(t *testing.T) {
	ctx := context.Background()
	e := &TimeBasedEvaluator{}
	access := testAccess() // Wednesday 14:30

	inWindow := testPolicy(t, model.PolicyTypeTimeBased, model.EffectPermit, model.TimePolicyConfig{
		AllowedDays:  []string{"MONDAY", "WEDNESDAY", "FRIDAY"},
		AllowedHours: "09:00-18:00",
	})
	assert.Equal(t, Permit, e.Evaluate(ctx, inWindow, access))

	wrongDay := testPolicy(t, model.PolicyTypeTimeBased, model.EffectPermit, model.TimePolicyConfig{
		AllowedDays:  []string{"SATURDAY", "SUNDAY"},
		AllowedHours: "09:00-18:00",
	})
	assert.Equal(t, NotApplicable, e.Evaluate(ctx, wrongDay, access))

	wrongHours := testPolicy(t, model.PolicyTypeTimeBased, model.EffectPermit, model.TimePolicyConfig{
		AllowedDays:  []string{"WEDNESDAY"},
		AllowedHours: "18:00-20:00",
	})
	assert.Equal(t, NotApplicable, e.Evaluate(ctx, wrongHours, access))
}

func TestTimeBasedEvaluatorWrapsPastMidnight(t *testing.T) {
	ctx := context.Background()
	e := &TimeBasedEvaluator{}

	nightShift := testPolicy(t, model.PolicyTypeTimeBased, model.EffectPermit, model.TimePolicyConfig{
		AllowedDays:  []string{"WEDNESDAY"},
		AllowedHours: "22:00-06:00",
	})

	access := testAccess()
	access.RequestTime = time.Date(2026, 3, 4, 23, 15, 0, 0, time.UTC)
	assert.Equal(t, Permit, e.Evaluate(ctx, nightShift, access))

	access.RequestTime = time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, Permit, e.Evaluate(ctx, nightShift, access))

	access.RequestTime = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, NotApplicable, e.Evaluate(ctx, nightShift, access))
}

func TestProfessionalEvaluatorDenyListWins(t *testing.T) {
	ctx := context.Background()
	e := &ProfessionalEvaluator{}
	access := testAccess()

	// Professional on both lists: deny-list takes precedence.
	both := testPolicy(t, model.PolicyTypeProfessional, model.EffectPermit, model.ProfessionalPolicyConfig{
		AllowedProfessionals: []string{access.ProfessionalID},
		DeniedProfessionals:  []string{access.ProfessionalID},
	})
	assert.Equal(t, Deny, e.Evaluate(ctx, both, access))

	allowOnly := testPolicy(t, model.PolicyTypeProfessional, model.EffectDeny, model.ProfessionalPolicyConfig{
		AllowedProfessionals: []string{access.ProfessionalID},
	})
	// Declared effect is ignored; the allow-list match permits.
	assert.Equal(t, Permit, e.Evaluate(ctx, allowOnly, access))

	neither := testPolicy(t, model.PolicyTypeProfessional, model.EffectPermit, model.ProfessionalPolicyConfig{
		AllowedProfessionals: []string{"9.111.222-3"},
		DeniedProfessionals:  []string{"9.444.555-6"},
	})
	assert.Equal(t, NotApplicable, e.Evaluate(ctx, neither, access))
}

type recordingSink struct {
	events []*model.AuditEvent
}

func (s *recordingSink) Record(_ context.Context, event *model.AuditEvent) {
	s.events = append(s.events, event)
}

func TestEmergencyOverrideAlwaysPermits(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	e := &EmergencyOverrideEvaluator{Sink: sink}
	access := testAccess()
	access.RequestReason = "patient unconscious in ER"

	policy := testPolicy(t, model.PolicyTypeEmergencyOverride, model.EffectPermit, model.EmergencyPolicyConfig{
		RequiresJustification: true,
		NotifyPatient:         true,
	})
	assert.Equal(t, Permit, e.Evaluate(ctx, policy, access))

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, model.AuditEventEmergencyAccess, event.EventType)
	assert.Equal(t, model.AuditSeverityHigh, event.Severity)
	assert.True(t, event.NotifyPatient)
}

func TestEmergencyOverridePermitsOnMalformedConfig(t *testing.T) {
	ctx := context.Background()
	e := &EmergencyOverrideEvaluator{Sink: &recordingSink{}}

	policy := &model.AccessPolicy{
		ID:         uuid.New(),
		PolicyType: model.PolicyTypeEmergencyOverride,
		Config:     json.RawMessage(`{not json`),
		Status:     model.PolicyStatusGranted,
	}
	assert.Equal(t, Permit, e.Evaluate(ctx, policy, testAccess()))
}

func TestEmergencyOverrideMissingJustificationStillPermits(t *testing.T) {
	ctx := context.Background()
	e := &EmergencyOverrideEvaluator{Sink: &recordingSink{}}
	access := testAccess()
	access.RequestReason = ""

	policy := testPolicy(t, model.PolicyTypeEmergencyOverride, model.EffectPermit, model.EmergencyPolicyConfig{
		RequiresJustification: true,
	})
	assert.Equal(t, Permit, e.Evaluate(ctx, policy, access))
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry(&recordingSink{})

	for _, policyType := range []model.PolicyType{
		model.PolicyTypeClinic,
		model.PolicyTypeSpecialty,
		model.PolicyTypeDocumentType,
		model.PolicyTypeTimeBased,
		model.PolicyTypeProfessional,
		model.PolicyTypeEmergencyOverride,
	} {
		e, ok := r.ForType(policyType)
		require.True(t, ok, "missing evaluator for %s", policyType)
		assert.True(t, e.Supports(policyType))
	}

	_, ok := r.ForType(model.PolicyType("UNKNOWN"))
	assert.False(t, ok)
}

func TestMalformedConfigIsNotApplicable(t *testing.T) {
	ctx := context.Background()
	access := testAccess()
	bad := &model.AccessPolicy{
		ID:     uuid.New(),
		Config: json.RawMessage(`"not an object"`),
		Effect: model.EffectPermit,
	}

	assert.Equal(t, NotApplicable, (&ClinicEvaluator{}).Evaluate(ctx, bad, access))
	assert.Equal(t, NotApplicable, (&SpecialtyEvaluator{}).Evaluate(ctx, bad, access))
	assert.Equal(t, NotApplicable, (&DocumentTypeEvaluator{}).Evaluate(ctx, bad, access))
	assert.Equal(t, NotApplicable, (&TimeBasedEvaluator{}).Evaluate(ctx, bad, access))
	assert.Equal(t, NotApplicable, (&ProfessionalEvaluator{}).Evaluate(ctx, bad, access))
}
