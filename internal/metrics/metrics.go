// Package metrics exposes Prometheus collectors for the map service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aiscribe/scribe/internal/graph"
)

const namespace = "scribe"

// Collector groups every metric the service records. Each Collector owns its
// registry so that tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	mutations     *prometheus.CounterVec
	nodes         prometheus.Gauge
	edges         prometheus.Gauge
	aiCalls       *prometheus.CounterVec
	aiDuration    *prometheus.HistogramVec
	persistErrors prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a Collector with a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_mutations_total",
			Help:      "Applied map mutations by kind.",
		}, []string{"kind"}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "map_nodes",
			Help:      "Nodes in the current map.",
		}),
		edges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "map_edges",
			Help:      "Edges in the current map.",
		}),
		aiCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_calls_total",
			Help:      "AI calls by action and outcome.",
		}, []string{"action", "outcome"}),
		aiDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_call_duration_seconds",
			Help:      "AI call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
		}, []string{"action"}),
		persistErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed write-through saves.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Listener returns a graph.ChangeListener that counts mutations and tracks
// map size.
func (c *Collector) Listener() graph.ChangeListener {
	return func(ch graph.Change) {
		c.mutations.WithLabelValues(string(ch.Kind)).Inc()
		c.nodes.Set(float64(len(ch.Document.Nodes)))
		c.edges.Set(float64(len(ch.Document.Edges)))
	}
}

// ObserveAI records one AI call.
func (c *Collector) ObserveAI(action, outcome string, d time.Duration) {
	c.aiCalls.WithLabelValues(action, outcome).Inc()
	c.aiDuration.WithLabelValues(action).Observe(d.Seconds())
}

// PersistFailed counts a failed write-through save.
func (c *Collector) PersistFailed(error) {
	c.persistErrors.Inc()
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(route string, code int, d time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
