package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Decision engine metrics
	DecisionsTotal    *prometheus.CounterVec
	DecisionLatency   prometheus.Histogram
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	EmergencyAccesses prometheus.Counter

	// Workflow metrics
	RequestsSwept       prometheus.Counter
	DocumentsRegistered *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Access decisions by outcome and resolution path",
		}, []string{"decision", "path"}),
		DecisionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_seconds",
			Help:      "Time spent computing access decisions",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_cache_hits_total",
			Help:      "Decision cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_cache_misses_total",
			Help:      "Decision cache misses",
		}),
		EmergencyAccesses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emergency_accesses_total",
			Help:      "Decisions resolved by an emergency override policy",
		}),
		RequestsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_requests_swept_total",
			Help:      "PENDING access requests transitioned to EXPIRED by the sweeper",
		}),
		DocumentsRegistered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_registered_total",
			Help:      "Document registrations by result",
		}, []string{"result"}),
	}
}
