package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the cross-cutting Prometheus metrics for the application.
// Domain packages keep their own metric structs; this covers HTTP and auth.
type Metrics struct {
	HTTPDuration *prometheus.HistogramVec
	UsersCreated prometheus.Counter
	SignIns      *prometheus.CounterVec
}

// New creates and registers all platform metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "virasat_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "virasat_users_created_total",
			Help: "Total number of users created in the system.",
		}),
		SignIns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "virasat_sign_ins_total",
			Help: "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// IncrementUsersCreated increments the users created counter by 1.
func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

// RecordSignIn counts a sign-in attempt outcome (success, invalid_credentials,
// email_not_confirmed).
func (m *Metrics) RecordSignIn(outcome string) {
	m.SignIns.WithLabelValues(outcome).Inc()
}
