// Package cache holds the decision cache: a short-TTL, key-addressed
// store of recent PERMIT/DENY answers. Implementations must degrade to
// "always miss" when the backing store is unavailable; a cache outage
// is never allowed to fail an access decision.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// DecisionCache caches engine decisions keyed by
// (patientCI, specialty, documentType).
type DecisionCache interface {
	Get(ctx context.Context, patientCI, specialty, documentType string) (model.Decision, bool)
	Put(ctx context.Context, patientCI, specialty, documentType string, decision model.Decision, ttl time.Duration)
	// InvalidateAll drops every cached decision for the patient and
	// returns how many entries were removed.
	InvalidateAll(ctx context.Context, patientCI string) int
	// InvalidateOne drops a single entry, reporting whether it existed.
	InvalidateOne(ctx context.Context, patientCI, specialty, documentType string) bool
}

func decisionKey(patientCI, specialty, documentType string) string {
	return fmt.Sprintf("decision:%s:%s:%s", patientCI, specialty, documentType)
}

func patientPrefix(patientCI string) string {
	return fmt.Sprintf("decision:%s:", patientCI)
}
