package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	LoginAttempts      *prometheus.CounterVec
	Lockouts           prometheus.Counter
	RateLimitRejected  *prometheus.CounterVec
	SessionRefreshes   *prometheus.CounterVec
	HTTPInFlight       prometheus.Gauge
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		Lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_account_lockouts_total",
			Help: "Accounts locked after repeated failed logins.",
		}),
		RateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_rejected_total",
			Help: "Requests rejected by the rate limiter, by action.",
		}, []string{"action"}),
		SessionRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_session_refreshes_total",
			Help: "Session refreshes by result.",
		}, []string{"result"}),
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.LoginAttempts,
		m.Lockouts,
		m.RateLimitRejected,
		m.SessionRefreshes,
		m.HTTPInFlight,
		m.HTTPRequests,
		m.HTTPRequestSeconds,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// NewUnregistered is used by tests and by components constructed without a registry.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler exposes the registry the metrics were registered on.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
