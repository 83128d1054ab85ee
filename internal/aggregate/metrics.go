package aggregate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments store queries and column outcomes. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	queryDuration *prometheus.HistogramVec
	columns       *prometheus.CounterVec
}

// NewMetrics registers aggregation metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		queryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crossfilter",
			Name:      "store_query_duration_seconds",
			Help:      "Time spent in analytical store queries, by aggregation stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		columns: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossfilter",
			Name:      "column_aggregations_total",
			Help:      "Column aggregations by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeQuery(stage Stage, start time.Time) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) countColumn(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.columns.WithLabelValues(outcome).Inc()
}
