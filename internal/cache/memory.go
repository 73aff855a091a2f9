package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// MemoryCache is an in-process DecisionCache backed by go-cache.
// Suitable for tests and single-node deployments; horizontally scaled
// deployments use the Redis implementation so invalidation reaches
// every node.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

func (c *MemoryCache) Get(_ context.Context, patientCI, specialty, documentType string) (model.Decision, bool) {
	v, ok := c.store.Get(decisionKey(patientCI, specialty, documentType))
	if !ok {
		return "", false
	}
	decision, ok := v.(model.Decision)
	return decision, ok
}

func (c *MemoryCache) Put(_ context.Context, patientCI, specialty, documentType string, decision model.Decision, ttl time.Duration) {
	c.store.Set(decisionKey(patientCI, specialty, documentType), decision, ttl)
}

func (c *MemoryCache) InvalidateAll(_ context.Context, patientCI string) int {
	prefix := patientPrefix(patientCI)
	count := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			count++
		}
	}
	return count
}

func (c *MemoryCache) InvalidateOne(_ context.Context, patientCI, specialty, documentType string) bool {
	key := decisionKey(patientCI, specialty, documentType)
	if _, ok := c.store.Get(key); !ok {
		return false
	}
	c.store.Delete(key)
	return true
}
