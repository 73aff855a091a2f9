package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcen-uy/exchange-hub/pkg/errors"
)

func pendingRequest(now time.Time) AccessRequest {
	return AccessRequest{
		Status:      RequestStatusPending,
		RequestedAt: now,
		ExpiresAt:   now.Add(RequestTTL),
	}
}

func TestApprovedStampsResponseFields(t *testing.T) {
	now := time.Now()
	req := pendingRequest(now)

	approved, err := req.Approved(now.Add(time.Hour), "my treating physician")
	require.NoError(t, err)
	assert.Equal(t, RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.RespondedAt)
	require.NotNil(t, approved.ResponseReason)
	assert.Equal(t, "my treating physician", *approved.ResponseReason)

	// The receiver is untouched; transitions are snapshots.
	assert.Equal(t, RequestStatusPending, req.Status)
}

func TestTerminalStatusesRejectResponses(t *testing.T) {
	now := time.Now()
	for _, status := range []RequestStatus{RequestStatusApproved, RequestStatusDenied, RequestStatusExpired} {
		req := pendingRequest(now)
		req.Status = status

		_, err := req.Approved(now, "")
		assert.True(t, errors.IsKind(err, errors.KindState), "approve from %s", status)

		_, err = req.Denied(now, "no")
		assert.True(t, errors.IsKind(err, errors.KindState), "deny from %s", status)
	}
}

func TestLapsedRequestRejectsResponses(t *testing.T) {
	now := time.Now()
	req := pendingRequest(now.Add(-RequestTTL - time.Minute))

	assert.True(t, req.IsExpired(now))

	_, err := req.Approved(now, "")
	assert.True(t, errors.IsKind(err, errors.KindState))

	_, err = req.Denied(now, "too late")
	assert.True(t, errors.IsKind(err, errors.KindState))
}

func TestExpiredTransition(t *testing.T) {
	now := time.Now()

	// Still inside the window: no move.
	req := pendingRequest(now)
	_, moved := req.Expired(now)
	assert.False(t, moved)

	// Past the window: moves exactly once.
	req = pendingRequest(now.Add(-RequestTTL - time.Minute))
	expired, moved := req.Expired(now)
	assert.True(t, moved)
	assert.Equal(t, RequestStatusExpired, expired.Status)

	_, moved = expired.Expired(now)
	assert.False(t, moved)

	// Responded requests never expire, however old.
	req = pendingRequest(now.Add(-100 * time.Hour))
	req.Status = RequestStatusDenied
	_, moved = req.Expired(now)
	assert.False(t, moved)
}
