package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "post_scheduler"

// Metrics holds the Prometheus collectors used across the service.
type Metrics struct {
	requests      *prometheus.CounterVec
	requestErrors *prometheus.CounterVec
	latency       *prometheus.HistogramVec

	ActiveChannels prometheus.Gauge
	Deliveries     prometheus.Counter
	SendFailures   prometheus.Counter
	AuthRejections prometheus.Counter
	ScanTicks      *prometheus.CounterVec
	PostsPublished prometheus.Counter
	ScanDuration   prometheus.Histogram
}

// NewMetrics creates and registers collectors on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "HTTP error responses by route, method and error code.",
		}, []string{"path", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		ActiveChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "active_channels",
			Help:      "Number of authenticated live channels.",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "deliveries_total",
			Help:      "Messages delivered to live channels.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "send_failures_total",
			Help:      "Sends that failed and dropped the channel.",
		}),
		AuthRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "auth_rejections_total",
			Help:      "Live channel connection attempts rejected for bad credentials.",
		}),
		ScanTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Publish sweeps by outcome.",
		}, []string{"outcome"}),
		PostsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "posts_published_total",
			Help:      "Posts promoted from scheduled to published.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a publish sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.requests, m.requestErrors, m.latency,
		m.ActiveChannels, m.Deliveries, m.SendFailures, m.AuthRejections,
		m.ScanTicks, m.PostsPublished, m.ScanDuration,
	)
	return m
}

// NewNopMetrics returns collectors registered on a throwaway registry.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(path, method, code).Inc()
}

// RecordScan records the outcome of one publish sweep.
func (m *Metrics) RecordScan(published int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case published == 0:
		outcome = "idle"
	}
	m.ScanTicks.WithLabelValues(outcome).Inc()
	m.PostsPublished.Add(float64(published))
	m.ScanDuration.Observe(duration.Seconds())
}

// SetActiveChannels publishes the current registry size.
func (m *Metrics) SetActiveChannels(n int) {
	if m == nil {
		return
	}
	m.ActiveChannels.Set(float64(n))
}

// RecordDelivery counts one send attempt on a live channel.
func (m *Metrics) RecordDelivery(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Deliveries.Inc()
		return
	}
	m.SendFailures.Inc()
}

// RecordAuthRejection counts a live channel refused at the credential gate.
func (m *Metrics) RecordAuthRejection() {
	if m == nil {
		return
	}
	m.AuthRejections.Inc()
}
