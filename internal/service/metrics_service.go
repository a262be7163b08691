package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Delivery outcomes.
const (
	DeliveryOutcomeSent   = "sent"
	DeliveryOutcomeFailed = "failed"
)

// Tracking event kinds.
const (
	TrackingEventOpen    = "open"
	TrackingEventConfirm = "confirm"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	reportsGenerated *prometheus.CounterVec
	reportBuild      prometheus.Histogram
	reportExports    *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	trackingEvents   *prometheus.CounterVec
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

	reportsGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_generated_total",
		Help: "Total number of student reports built",
	}, []string{"scale"})

	reportBuild := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_build_seconds",
		Help:    "Time spent loading and building a student report",
		Buckets: prometheus.DefBuckets,
	})

	reportExports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_exports_total",
		Help: "Total number of stored report exports",
	}, []string{"format"})

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_deliveries_total",
		Help: "Report email deliveries by final outcome",
	}, []string{"outcome"})

	trackingEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_events_total",
		Help: "Report open and confirmation events",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reportsGenerated, reportBuild, reportExports, deliveries, trackingEvents, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		reportsGenerated: reportsGenerated,
		reportBuild:      reportBuild,
		reportExports:    reportExports,
		deliveries:       deliveries,
		trackingEvents:   trackingEvents,
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

// Registry exposes the underlying registry.
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

// ObserveReportBuild counts a built report and its build time.
func (m *MetricsService) ObserveReportBuild(scale string, duration time.Duration) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(scale).Inc()
	m.reportBuild.Observe(duration.Seconds())
}

// RecordExport counts a stored export.
func (m *MetricsService) RecordExport(format string) {
	if m == nil {
		return
	}
	m.reportExports.WithLabelValues(format).Inc()
}

// RecordDelivery counts a finished delivery.
func (m *MetricsService) RecordDelivery(outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}

// RecordTrackingEvent counts an open or confirmation.
func (m *MetricsService) RecordTrackingEvent(kind string) {
	if m == nil {
		return
	}
	m.trackingEvents.WithLabelValues(kind).Inc()
}
