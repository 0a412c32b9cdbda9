package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	imageFailures      *prometheus.CounterVec
	clonedRows         prometheus.Counter
	pdfConversions     *prometheus.CounterVec
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

// New registers every collector on a private registry so tests can build as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotation_generations_total",
			Help: "Quotation documents generated, by outcome.",
		}, []string{"outcome"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quotation_generation_duration_seconds",
			Help:    "Time spent filling the quotation template.",
			Buckets: prometheus.DefBuckets,
		}),
		imageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotation_image_failures_total",
			Help: "Images replaced by a placeholder, by placement.",
		}, []string{"placement"}),
		clonedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotation_cloned_row_pairs_total",
			Help: "Pricing table row pairs added for overflow fixtures.",
		}),
		pdfConversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdf_conversions_total",
			Help: "DOCX to PDF conversions, by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests, by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generations,
		m.generationDuration,
		m.imageFailures,
		m.clonedRows,
		m.pdfConversions,
		m.requests,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) RecordGeneration(success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome(success)).Inc()
	m.generationDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordFill(clonedPairs, cellFailures, inlineFailures int) {
	if m == nil {
		return
	}
	m.clonedRows.Add(float64(clonedPairs))
	m.imageFailures.WithLabelValues("cell").Add(float64(cellFailures))
	m.imageFailures.WithLabelValues("inline").Add(float64(inlineFailures))
}

func (m *Metrics) RecordPDFConversion(success bool) {
	if m == nil {
		return
	}
	m.pdfConversions.WithLabelValues(outcome(success)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
