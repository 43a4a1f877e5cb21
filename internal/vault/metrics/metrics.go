package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the vault engine's Prometheus metrics.
type Metrics struct {
	RecordsCreated *prometheus.CounterVec
	RecordsDeleted *prometheus.CounterVec
	ListDuration   prometheus.Histogram
}

// New creates and registers the vault metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "virasat_vault_records_created_total",
			Help: "Records created, labelled by entity family.",
		}, []string{"family"}),
		RecordsDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "virasat_vault_records_deleted_total",
			Help: "Records deleted, labelled by entity family.",
		}, []string{"family"}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "virasat_vault_list_duration_seconds",
			Help:    "Latency of owner-scoped list queries.",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) RecordCreated(family string) {
	m.RecordsCreated.WithLabelValues(family).Inc()
}

func (m *Metrics) RecordDeleted(family string) {
	m.RecordsDeleted.WithLabelValues(family).Inc()
}
