// Metrics wiring for the core orchestrator: optional pairs-screened,
// objects-skipped and assessments-run counters exposed via a
// *prometheus.Registry the caller owns. Grounded in the
// PossumXI-Asgard_Arobi Pricilla service's internal/metrics/prometheus.go
// namespace/subsystem/name convention; unlike that file's promauto-against-
// the-global-registerer pattern, counters here are built directly and
// registered only against a registry the caller passes in, since the core
// itself never exposes an HTTP endpoint (spec.md §1's out-of-scope list).
package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the optional counters a caller may wire into the core.
type Metrics struct {
	PairsScreened  prometheus.Counter
	ObjectsSkipped *prometheus.CounterVec
	AssessmentsRun prometheus.Counter
}

// NewMetrics constructs a Metrics set and, if reg is non-nil, registers it.
// Passing a nil registry is valid: the returned Metrics still works, it is
// simply never exposed.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		PairsScreened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ssacore",
			Subsystem: "screener",
			Name:      "pairs_screened_total",
			Help:      "Total number of (primary, secondary) pairs evaluated by a screening run.",
		}),
		ObjectsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ssacore",
			Subsystem: "catalog",
			Name:      "objects_skipped_total",
			Help:      "Total number of catalog objects skipped due to invalid element sets or propagation failures.",
		}, []string{"reason"}),
		AssessmentsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ssacore",
			Subsystem: "core",
			Name:      "assessments_run_total",
			Help:      "Total number of Assess calls completed, successfully or not.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.PairsScreened, m.ObjectsSkipped, m.AssessmentsRun)
	}
	return m
}
