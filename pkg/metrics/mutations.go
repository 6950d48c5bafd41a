package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MutationMetrics counts core mutation outcomes per operation.
type MutationMetrics struct {
	applied *prometheus.CounterVec
	denied  *prometheus.CounterVec
	failed  *prometheus.CounterVec
}

// NewMutationMetrics registers the mutation metrics on the provided
// registerer.
func NewMutationMetrics(reg prometheus.Registerer) *MutationMetrics {
	if reg == nil {
		return &MutationMetrics{}
	}
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mutation_applied_total",
		Help: "Mutations applied to the shared stores.",
	}, []string{"op"})
	denied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mutation_denied_total",
		Help: "Mutations rejected by the access policy.",
	}, []string{"op"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mutation_failed_total",
		Help: "Mutations rejected by existence or invariant checks.",
	}, []string{"op"})
	reg.MustRegister(applied, denied, failed)
	return &MutationMetrics{
		applied: applied,
		denied:  denied,
		failed:  failed,
	}
}

// IncApplied increments the applied counter for the named operation.
func (m *MutationMetrics) IncApplied(op string) {
	if m == nil || m.applied == nil {
		return
	}
	m.applied.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncDenied increments the policy-denied counter for the named operation.
func (m *MutationMetrics) IncDenied(op string) {
	if m == nil || m.denied == nil {
		return
	}
	m.denied.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailed increments the precondition-failure counter for the named
// operation.
func (m *MutationMetrics) IncFailed(op string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
