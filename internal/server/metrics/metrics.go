// Package metrics holds the Prometheus collectors of the API server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth event results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthEventsTotal              *prometheus.CounterVec
	SessionsExpiredTotal         prometheus.Counter
	PasswordResetsRequestedTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "natours_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "natours_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "natours_auth_events_total",
				Help: "Total number of authentication events by outcome",
			},
			[]string{"event", "result"},
		),
		SessionsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "natours_sessions_expired_total",
				Help: "Total number of expired sessions removed by the janitor",
			},
		),
		PasswordResetsRequestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "natours_password_resets_requested_total",
				Help: "Total number of password reset tokens issued",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthEventsTotal,
		m.SessionsExpiredTotal,
		m.PasswordResetsRequestedTotal,
	)

	return m
}

// AuthEvent counts an authentication event. Safe on a nil receiver.
func (m *Metrics) AuthEvent(event string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.AuthEventsTotal.WithLabelValues(event, result).Inc()
}

// SessionsExpired adds n removed sessions. Safe on a nil receiver.
func (m *Metrics) SessionsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsExpiredTotal.Add(float64(n))
}

// ResetRequested counts an issued reset token. Safe on a nil receiver.
func (m *Metrics) ResetRequested() {
	if m == nil {
		return
	}
	m.PasswordResetsRequestedTotal.Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
