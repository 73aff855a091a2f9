package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad hash", nil)))
	assert.Equal(t, KindUnauthorized, KindOf(Unauthorized("")))
	assert.Equal(t, KindState, KindOf(IllegalState("already responded", "APPROVED")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("policy")))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain error")))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("approve request: %w", IllegalState("already responded", "DENIED"))
	assert.Equal(t, KindState, KindOf(err))
	assert.True(t, IsKind(err, KindState))
}

func TestIllegalStateCarriesCurrentState(t *testing.T) {
	err := IllegalState("request is not pending", "EXPIRED")
	assert.Equal(t, "EXPIRED", err.CurrentState)
	assert.Contains(t, err.Error(), "not pending")
}

func TestUnauthorizedDefaultMessage(t *testing.T) {
	assert.Equal(t, "unauthorized", Unauthorized("").Message)
	assert.Equal(t, "not the policy owner", Unauthorized("not the policy owner").Message)
}
