package sensitivity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the evaluation boundary, the only expensive part of an
// estimator run.
type Metrics struct {
	evaluations prometheus.Counter
	cacheHits   prometheus.Counter
}

// NewMetrics registers evaluation counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sweepcore",
			Subsystem: "sensitivity",
			Name:      "evaluations_total",
			Help:      "Black-box evaluations dispatched to the simulator boundary.",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sweepcore",
			Subsystem: "sensitivity",
			Name:      "evaluation_cache_hits_total",
			Help:      "Evaluations answered from the per-function memo cache.",
		}),
	}
}

func (m *Metrics) evaluation() {
	if m != nil {
		m.evaluations.Inc()
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}
