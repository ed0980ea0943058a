package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Redemption outcomes used as metric labels.
const (
	OutcomeSuccess       = "success"
	OutcomeNotFound      = "session_not_found"
	OutcomeExpired       = "session_expired"
	OutcomeMismatch      = "code_mismatch"
	OutcomeAlreadyMarked = "already_marked"
	OutcomeNotEnrolled   = "not_enrolled"
	OutcomeError         = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	redemptions     *prometheus.CounterVec
	sessionsCreated prometheus.Counter
	codeCollisions  prometheus.Counter
	notifications   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_redemptions_total",
		Help: "Redemption attempts by method and outcome",
	}, []string{"method", "outcome"})

	sessionsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sessions_created_total",
		Help: "Sessions opened",
	})

	codeCollisions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_code_collisions_total",
		Help: "Generated codes rejected because an open session already held them",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_notifications_total",
		Help: "Absentee notifications by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, redemptions, sessionsCreated, codeCollisions, notifications, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		redemptions:     redemptions,
		sessionsCreated: sessionsCreated,
		codeCollisions:  codeCollisions,
		notifications:   notifications,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordRedemption counts one redemption attempt.
func (m *MetricsService) RecordRedemption(method, outcome string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(method, outcome).Inc()
}

// RecordSessionCreated counts a newly opened session.
func (m *MetricsService) RecordSessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

// RecordCodeCollision counts a rejected code candidate.
func (m *MetricsService) RecordCodeCollision() {
	if m == nil {
		return
	}
	m.codeCollisions.Inc()
}

// RecordNotification counts one absentee notification attempt.
func (m *MetricsService) RecordNotification(delivered bool) {
	if m == nil {
		return
	}
	result := "failed"
	if delivered {
		result = "sent"
	}
	m.notifications.WithLabelValues(result).Inc()
}
