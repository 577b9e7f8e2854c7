package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the collectors so tests can use a private registry.
type Metrics struct {
	reg             *prometheus.Registry
	Uploads         *prometheus.CounterVec // by kind
	Deletes         *prometheus.CounterVec
	Edits           prometheus.Counter
	StorageFailures *prometheus.CounterVec // by op
	Requests        *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_uploads_total",
			Help: "Uploaded media items by kind",
		}, []string{"kind"}),
		Deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_deletes_total",
			Help: "Deleted media items by kind",
		}, []string{"kind"}),
		Edits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "media_edits_total",
			Help: "Keyword/visibility edits",
		}),
		StorageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_storage_failures_total",
			Help: "Object store failures by operation",
		}, []string{"op"}),
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.reg.MustRegister(m.Uploads, m.Deletes, m.Edits, m.StorageFailures, m.Requests,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Handler returns an http.Handler for Prometheus scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Middleware records latency labelled by the matched route, not the raw path.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		m.Requests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
