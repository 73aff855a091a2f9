package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

func TestMemoryCachePutGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(5 * time.Minute)

	_, ok := c.Get(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT")
	assert.False(t, ok)

	c.Put(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT", model.DecisionPermit, 5*time.Minute)

	decision, ok := c.Get(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT")
	assert.True(t, ok)
	assert.Equal(t, model.DecisionPermit, decision)

	// Different specialty is a different key.
	_, ok = c.Get(ctx, "1.234.567-8", "PEDIATRICS", "LAB_RESULT")
	assert.False(t, ok)
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(5 * time.Minute)

	c.Put(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT", model.DecisionDeny, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT")
	assert.False(t, ok)
}

func TestMemoryCacheInvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(5 * time.Minute)

	c.Put(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT", model.DecisionPermit, 5*time.Minute)
	c.Put(ctx, "1.234.567-8", "PEDIATRICS", "IMAGING", model.DecisionDeny, 5*time.Minute)
	c.Put(ctx, "9.876.543-2", "CARDIOLOGY", "LAB_RESULT", model.DecisionPermit, 5*time.Minute)

	count := c.InvalidateAll(ctx, "1.234.567-8")
	assert.Equal(t, 2, count)

	_, ok := c.Get(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "1.234.567-8", "PEDIATRICS", "IMAGING")
	assert.False(t, ok)

	// Other patients are untouched.
	decision, ok := c.Get(ctx, "9.876.543-2", "CARDIOLOGY", "LAB_RESULT")
	assert.True(t, ok)
	assert.Equal(t, model.DecisionPermit, decision)
}

func TestMemoryCacheInvalidateOne(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(5 * time.Minute)

	assert.False(t, c.InvalidateOne(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT"))

	c.Put(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT", model.DecisionPermit, 5*time.Minute)
	assert.True(t, c.InvalidateOne(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT"))
	assert.False(t, c.InvalidateOne(ctx, "1.234.567-8", "CARDIOLOGY", "LAB_RESULT"))
}
