// Package metrics exposes Prometheus instrumentation for synchronization passes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gavsync"

// Sync pass outcome counters and timings.
type Sync struct {
	committed prometheus.Counter
	failed    prometheus.Counter
	stale     prometheus.Counter
	duration  prometheus.Histogram
	block     prometheus.Gauge
	accounts  prometheus.Gauge
}

// NewSync creates sync metrics and registers them with reg. A nil reg leaves them unregistered.
func NewSync(reg prometheus.Registerer) *Sync {
	m := &Sync{
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "passes_committed_total",
			Help:      "Synchronization passes whose snapshot was published.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "passes_failed_total",
			Help:      "Synchronization passes aborted by a failed read.",
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "passes_stale_total",
			Help:      "Synchronization passes discarded because a newer block was already committed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a synchronization pass from first read to commit.",
			Buckets:   prometheus.DefBuckets,
		}),
		block: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "committed_block",
			Help:      "Block number of the currently published snapshot.",
		}),
		accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "accounts",
			Help:      "Number of watched accounts.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.committed, m.failed, m.stale, m.duration, m.block, m.accounts)
	}

	return m
}

// Committed records a published pass.
func (m *Sync) Committed(block uint64, accounts int, took time.Duration) {
	if m == nil {
		return
	}
	m.committed.Inc()
	m.duration.Observe(took.Seconds())
	m.block.Set(float64(block))
	m.accounts.Set(float64(accounts))
}

// Failed records an aborted pass.
func (m *Sync) Failed() {
	if m == nil {
		return
	}
	m.failed.Inc()
}

// Stale records a pass discarded by block ordering.
func (m *Sync) Stale() {
	if m == nil {
		return
	}
	m.stale.Inc()
}
