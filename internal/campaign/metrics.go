package campaign

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sweepcore/internal/sensitivity"
)

// Metrics aggregates campaign instrumentation: the estimator evaluation
// counters plus an identity-store insert counter fed by materialization.
type Metrics struct {
	Sensitivity *sensitivity.Metrics
	inserts     prometheus.Counter
}

// NewMetrics registers all campaign counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Sensitivity: sensitivity.NewMetrics(reg),
		inserts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "sweepcore",
			Subsystem: "identity",
			Name:      "inserts_total",
			Help:      "New variation identities minted by the identity store.",
		}),
	}
}

func (m *Metrics) insert() {
	if m != nil {
		m.inserts.Inc()
	}
}

// sensitivityMetrics unwraps the estimator counters, tolerating nil.
func (m *Metrics) sensitivityMetrics() *sensitivity.Metrics {
	if m == nil {
		return nil
	}
	return m.Sensitivity
}
