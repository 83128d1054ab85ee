package engine

import (
	"github.com/leapstack-labs/crossfilter/internal/compiler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts dropped filters. A nil *Metrics records nothing.
type Metrics struct {
	warnings *prometheus.CounterVec
}

// NewMetrics registers engine metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		warnings: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossfilter",
			Name:      "filter_warnings_total",
			Help:      "Filters dropped during compilation, by warning kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) countWarnings(ws []compiler.Warning) {
	if m == nil {
		return
	}
	for _, w := range ws {
		m.warnings.WithLabelValues(string(w.Kind)).Inc()
	}
}
