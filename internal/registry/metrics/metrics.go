package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module: operation outcomes
// by error code plus durations for the two mutation-heavy paths.
type Metrics struct {
	Operations          *prometheus.CounterVec
	SubmitClaimDuration prometheus.Histogram
	VerifyClaimDuration prometheus.Histogram
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agriproof_registry_operations_total",
			Help: "Registry operations by name and outcome (ok or error code)",
		}, []string{"operation", "outcome"}),
		SubmitClaimDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agriproof_submit_claim_duration_seconds",
			Help:    "Duration of claim submissions (farmer critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		VerifyClaimDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agriproof_verify_claim_duration_seconds",
			Help:    "Duration of claim verifications",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// RecordOperation counts one operation with its outcome label.
func (m *Metrics) RecordOperation(operation, outcome string) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveSubmitClaim records the duration of a claim submission.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveSubmitClaim(start time.Time) {
	m.SubmitClaimDuration.Observe(time.Since(start).Seconds())
}

// ObserveVerifyClaim records the duration of a claim verification.
func (m *Metrics) ObserveVerifyClaim(start time.Time) {
	m.VerifyClaimDuration.Observe(time.Since(start).Seconds())
}
