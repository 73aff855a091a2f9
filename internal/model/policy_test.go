package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActiveAt(t *testing.T) {
	now := time.Now()
	from := now.Add(-time.Hour)
	until := now.Add(time.Hour)

	policy := AccessPolicy{Status: PolicyStatusGranted}
	assert.True(t, policy.ActiveAt(now), "granted with no window")

	policy.ValidFrom = &from
	policy.ValidUntil = &until
	assert.True(t, policy.ActiveAt(now), "inside window")
	assert.False(t, policy.ActiveAt(now.Add(2*time.Hour)), "after window")
	assert.False(t, policy.ActiveAt(now.Add(-2*time.Hour)), "before window")

	policy.Status = PolicyStatusRevoked
	assert.False(t, policy.ActiveAt(now), "revoked")
}

func TestRevokedSnapshot(t *testing.T) {
	now := time.Now()
	policy := AccessPolicy{Status: PolicyStatusGranted}

	revoked := policy.Revoked(now)
	assert.Equal(t, PolicyStatusRevoked, revoked.Status)
	assert.Equal(t, now, revoked.UpdatedAt)
	assert.Equal(t, PolicyStatusGranted, policy.Status)
}
