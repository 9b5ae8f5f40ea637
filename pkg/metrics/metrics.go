package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace   = "uplora"
	metricsPath = "/metrics"
	unmatched   = "unmatched"
)

// Metrics holds every collector the service exports. Each instance owns
// its registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	UploadsInitiated prometheus.Counter
	UploadsCompleted prometheus.Counter
	UploadsCancelled prometheus.Counter
	LocksReaped      prometheus.Counter
	Subscribers      prometheus.Gauge
	EventsPublished  *prometheus.CounterVec
	EventsDropped    prometheus.Counter
	VideoTransitions *prometheus.CounterVec
	EmailsSent       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		UploadsInitiated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_initiated_total",
			Help:      "Multipart uploads opened.",
		}),
		UploadsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_completed_total",
			Help:      "Uploads finalized.",
		}),
		UploadsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_cancelled_total",
			Help:      "Uploads cancelled by the client.",
		}),
		LocksReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_locks_reaped_total",
			Help:      "Stale upload locks removed by the reaper.",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers",
			Help:      "Open realtime subscriptions on this instance.",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_published_total",
			Help:      "Realtime events broadcast by type.",
		}, []string{"type"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_dropped_total",
			Help:      "Events dropped because a subscriber buffer was full.",
		}),
		VideoTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_status_transitions_total",
			Help:      "Video status changes by target status.",
		}, []string{"status"}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Notification emails by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Middleware records request count and latency per matched route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == metricsPath {
				return next(c)
			}

			start := time.Now()
			if err := next(c); err != nil {
				// render now so the recorded status is the one the client sees
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = unmatched
			}

			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)
			m.RequestsTotal.WithLabelValues(method, route, status).Inc()
			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// RegisterRoute mounts the Prometheus scrape endpoint.
func (m *Metrics) RegisterRoute(e *echo.Echo) {
	e.GET(metricsPath, echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))
}
