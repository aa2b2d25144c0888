package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WhitelistMetrics tracks entitlement whitelist activity: mutation volume,
// commitment rebuild latency and proof serving.
type WhitelistMetrics struct {
	mutations       *prometheus.CounterVec
	rejectedRecords *prometheus.CounterVec
	rebuilds        prometheus.Counter
	rebuildSeconds  prometheus.Histogram
	size            prometheus.Gauge
	proofsServed    prometheus.Counter
	proofFailures   *prometheus.CounterVec
}

var (
	whitelistOnce     sync.Once
	whitelistRegistry *WhitelistMetrics
)

// Whitelist returns the process-wide whitelist metrics collector, registering
// it on first use.
func Whitelist() *WhitelistMetrics {
	whitelistOnce.Do(func() {
		whitelistRegistry = &WhitelistMetrics{
			mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "whitelist_mutations_total",
				Help: "Count of whitelist mutations by operation.",
			}, []string{"op"}),
			rejectedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "whitelist_rejected_records_total",
				Help: "Count of records rejected during validation by reason.",
			}, []string{"reason"}),
			rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "whitelist_rebuilds_total",
				Help: "Number of full commitment tree rebuilds.",
			}),
			rebuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "whitelist_rebuild_seconds",
				Help:    "Wall-clock duration of commitment tree rebuilds.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			}),
			size: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "whitelist_size",
				Help: "Current number of whitelisted addresses.",
			}),
			proofsServed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "whitelist_proofs_served_total",
				Help: "Number of inclusion proofs generated and self-verified.",
			}),
			proofFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "whitelist_proof_failures_total",
				Help: "Number of proof requests that failed by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			whitelistRegistry.mutations,
			whitelistRegistry.rejectedRecords,
			whitelistRegistry.rebuilds,
			whitelistRegistry.rebuildSeconds,
			whitelistRegistry.size,
			whitelistRegistry.proofsServed,
			whitelistRegistry.proofFailures,
		)
	})
	return whitelistRegistry
}

// RecordMutation increments the mutation counter for the supplied operation.
func (m *WhitelistMetrics) RecordMutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

// RecordRejected counts a record skipped during validation.
func (m *WhitelistMetrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedRecords.WithLabelValues(reason).Inc()
}

// RecordRebuild observes a completed tree rebuild and the resulting size.
func (m *WhitelistMetrics) RecordRebuild(duration time.Duration, size int) {
	if m == nil {
		return
	}
	m.rebuilds.Inc()
	m.rebuildSeconds.Observe(duration.Seconds())
	m.size.Set(float64(size))
}

// RecordProofServed counts a successfully generated proof.
func (m *WhitelistMetrics) RecordProofServed() {
	if m == nil {
		return
	}
	m.proofsServed.Inc()
}

// RecordProofFailure counts a failed proof request.
func (m *WhitelistMetrics) RecordProofFailure(reason string) {
	if m == nil {
		return
	}
	m.proofFailures.WithLabelValues(reason).Inc()
}
