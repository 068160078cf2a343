package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	LeadsSubmitted       *prometheus.CounterVec
	CRMSyncAttempts      *prometheus.CounterVec
	NotificationsSent    *prometheus.CounterVec
	FollowUpsScheduled   *prometheus.CounterVec
	FunnelEventsRecorded prometheus.Counter
	AdvisoryFailures     *prometheus.CounterVec
	NotificationsExpired prometheus.Counter
}

// New creates a Metrics instance with its own registry, so multiple
// instances can coexist in tests without duplicate registration.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		LeadsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_submitted_total",
				Help: "Total number of lead submissions",
			},
			[]string{"outcome"}, // accepted, rejected
		),
		CRMSyncAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_sync_attempts_total",
				Help: "Total number of CRM forwarding attempts",
			},
			[]string{"outcome"}, // ok, failed
		),
		NotificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Total number of notification deliveries",
			},
			[]string{"kind", "outcome"},
		),
		FollowUpsScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "follow_ups_scheduled_total",
				Help: "Total number of follow-up scheduling attempts",
			},
			[]string{"outcome"}, // scheduled, duplicate, rejected
		),
		FunnelEventsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "funnel_events_recorded_total",
			Help: "Total number of funnel events recorded",
		}),
		AdvisoryFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_advisory_failures_total",
				Help: "Total number of non-fatal pipeline side-effect failures",
			},
			[]string{"stage"}, // funnel, crm_sync, welcome, follow_up
		),
		NotificationsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "notifications_expired_total",
			Help: "Total number of overdue notifications expired by the sweep",
		}),
	}
}

// Handler exposes the registry for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // Route pattern, not the raw path

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)

			return err
		}
	}
}

// RecordLeadSubmitted increments the lead submission counter
func (m *Metrics) RecordLeadSubmitted(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.LeadsSubmitted.WithLabelValues(outcome).Inc()
}

// RecordCRMSync increments the CRM sync attempt counter
func (m *Metrics) RecordCRMSync(ok bool) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	m.CRMSyncAttempts.WithLabelValues(outcome).Inc()
}

// RecordNotificationSent increments the notification delivery counter
func (m *Metrics) RecordNotificationSent(kind string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "sent"
	}
	m.NotificationsSent.WithLabelValues(kind, outcome).Inc()
}

// RecordFollowUpScheduled increments the follow-up scheduling counter
func (m *Metrics) RecordFollowUpScheduled(outcome string) {
	m.FollowUpsScheduled.WithLabelValues(outcome).Inc()
}

// RecordFunnelEvent increments the funnel event counter
func (m *Metrics) RecordFunnelEvent() {
	m.FunnelEventsRecorded.Inc()
}

// RecordAdvisoryFailure increments the advisory failure counter for a stage
func (m *Metrics) RecordAdvisoryFailure(stage string) {
	m.AdvisoryFailures.WithLabelValues(stage).Inc()
}

// RecordNotificationsExpired adds to the expired notification counter
func (m *Metrics) RecordNotificationsExpired(count int64) {
	m.NotificationsExpired.Add(float64(count))
}
