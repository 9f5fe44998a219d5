// Package metrics exposes Prometheus counters for catalog and HTTP activity.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Collector struct {
	recordsCreated  prometheus.Counter
	recordsUpdated  prometheus.Counter
	searchesTotal   *prometheus.CounterVec
	searchResults   *prometheus.HistogramVec
	catalogSize     prometheus.Gauge
	sessionInputs   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimitedReqs prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers all metrics with reg.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.recordsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_created_total",
		Help:      "Records appended to the catalog",
	})
	c.recordsUpdated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_updated_total",
		Help:      "Merge updates applied, including no-op updates for unknown ids",
	})
	c.searchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Catalog searches by kind",
	}, []string{"kind"})
	c.searchResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_results",
		Help:      "Number of records returned per search",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	}, []string{"kind"})
	c.catalogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "catalog_records",
		Help:      "Records currently in the catalog",
	})
	c.sessionInputs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_inputs_total",
		Help:      "Conversation inputs by resulting prompt",
	}, []string{"prompt"})
	c.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status"})
	c.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	c.rateLimitedReqs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})

	reg.MustRegister(
		c.recordsCreated,
		c.recordsUpdated,
		c.searchesTotal,
		c.searchResults,
		c.catalogSize,
		c.sessionInputs,
		c.httpRequests,
		c.httpDuration,
		c.rateLimitedReqs,
	)
	return c
}

func (c *Collector) RecordCreate(size int) {
	c.recordsCreated.Inc()
	c.catalogSize.Set(float64(size))
}

func (c *Collector) RecordUpdate() {
	c.recordsUpdated.Inc()
}

func (c *Collector) SetCatalogSize(size int) {
	c.catalogSize.Set(float64(size))
}

func (c *Collector) RecordSearch(kind string, results int) {
	c.searchesTotal.WithLabelValues(kind).Inc()
	c.searchResults.WithLabelValues(kind).Observe(float64(results))
}

func (c *Collector) RecordInput(prompt string) {
	c.sessionInputs.WithLabelValues(prompt).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())

	if status >= 500 {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("route", route),
			zap.Int("status", status))
	}
}

func (c *Collector) RecordRateLimited() {
	c.rateLimitedReqs.Inc()
}
