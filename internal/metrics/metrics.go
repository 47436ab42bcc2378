package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the RootYou client.
type Metrics struct {
	registry *prometheus.Registry

	// Backend call metrics.
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	NetworkErrorsTotal *prometheus.CounterVec

	// Poller metrics.
	PollTicksTotal  *prometheus.CounterVec
	PollSkipsTotal  *prometheus.CounterVec
	PollErrorsTotal *prometheus.CounterVec

	// Session metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec
	SessionValid       prometheus.Gauge

	// Process lifecycle.
	StartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rootyou_api_requests_total",
			Help: "Total number of backend API requests.",
		}, []string{"method", "path", "status_code"}),

		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rootyou_api_request_duration_seconds",
			Help:    "Backend API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		NetworkErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rootyou_network_errors_total",
			Help: "Total number of transport-level request failures by error type.",
		}, []string{"error_type"}),

		PollTicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rootyou_poll_ticks_total",
			Help: "Total number of poll ticks that started a fetch.",
		}, []string{"poller"}),

		PollSkipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rootyou_poll_skips_total",
			Help: "Total number of poll ticks skipped because a fetch was still in flight.",
		}, []string{"poller"}),

		PollErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rootyou_poll_errors_total",
			Help: "Total number of failed poll fetches.",
		}, []string{"poller"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rootyou_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"reason"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rootyou_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"kind"}),

		SessionValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rootyou_session_valid",
			Help: "1 when a decodable, unexpired credential is stored, else 0.",
		}),

		StartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rootyou_start_time_seconds",
			Help: "Unix timestamp when the process started.",
		}),
	}

	reg.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.NetworkErrorsTotal,
		m.PollTicksTotal,
		m.PollSkipsTotal,
		m.PollErrorsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.SessionValid,
		m.StartTime,
	)

	m.StartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncAPIRequest increments the backend request counter.
func (m *Metrics) IncAPIRequest(method, path string, statusCode int) {
	m.APIRequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", statusCode)).Inc()
}

// ObserveAPIDuration records one backend request duration.
func (m *Metrics) ObserveAPIDuration(method, path string, seconds float64) {
	m.APIRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// IncNetworkError increments the transport failure counter.
func (m *Metrics) IncNetworkError(errorType string) {
	m.NetworkErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncPollTick increments the tick counter for the named poller.
func (m *Metrics) IncPollTick(name string) {
	m.PollTicksTotal.WithLabelValues(name).Inc()
}

// IncPollSkip increments the skipped-tick counter for the named poller.
func (m *Metrics) IncPollSkip(name string) {
	m.PollSkipsTotal.WithLabelValues(name).Inc()
}

// IncPollError increments the failed-fetch counter for the named poller.
func (m *Metrics) IncPollError(name string) {
	m.PollErrorsTotal.WithLabelValues(name).Inc()
}

// IncAuthFailure increments the auth failure counter.
func (m *Metrics) IncAuthFailure(reason string) {
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// IncAuthSuccess increments the auth success counter.
func (m *Metrics) IncAuthSuccess(kind string) {
	m.AuthSuccessesTotal.WithLabelValues(kind).Inc()
}

// SetSessionValid flips the session validity gauge.
func (m *Metrics) SetSessionValid(valid bool) {
	if valid {
		m.SessionValid.Set(1)
	} else {
		m.SessionValid.Set(0)
	}
}
