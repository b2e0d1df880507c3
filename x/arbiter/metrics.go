package arbiter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/riddle-labs/bountyd/metrics"
)

// Metrics holds arbiter-level metrics. A nil *Metrics disables collection,
// which keeps test arbiters off the global prometheus registry.
type Metrics struct {
	ClaimsTotal    *prometheus.CounterVec
	PayoutsTotal   prometheus.Counter
	PayoutFailures prometheus.Counter
	RollbacksTotal prometheus.Counter
	ClaimDuration  prometheus.Histogram
}

// NewMetrics registers arbiter metrics. Call once per process.
func NewMetrics() *Metrics {
	reg := metrics.NewComponentRegistry("arbiter")

	return &Metrics{
		ClaimsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "claims_total",
			Help: "Claim requests by outcome",
		}, []string{"outcome"}),

		PayoutsTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "payouts_total",
			Help: "Confirmed payouts dispatched to winners",
		}),

		PayoutFailures: reg.NewCounter(prometheus.CounterOpts{
			Name: "payout_failures_total",
			Help: "Payout dispatches that failed and triggered rollback",
		}),

		RollbacksTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "rollbacks_total",
			Help: "Provisional wins rolled back to open",
		}),

		ClaimDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "claim_duration_seconds",
			Help:    "End-to-end claim handling time",
			Buckets: metrics.DurationBuckets,
		}),
	}
}

func (m *Metrics) observeOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.ClaimsTotal.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observePayout() {
	if m == nil {
		return
	}
	m.PayoutsTotal.Inc()
}

func (m *Metrics) observePayoutFailure() {
	if m == nil {
		return
	}
	m.PayoutFailures.Inc()
	m.RollbacksTotal.Inc()
}

func (m *Metrics) observeDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ClaimDuration.Observe(seconds)
}
