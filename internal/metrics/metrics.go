// Package metrics defines the Prometheus collectors the server exports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "splitgen"

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// RPC metrics
	RPCRequestsTotal   *prometheus.CounterVec
	RPCRequestDuration *prometheus.HistogramVec

	// HTTP metrics for the REST routes
	HTTPRequestsTotal *prometheus.CounterVec

	// Allocation metrics
	SummariesComputed prometheus.Counter
	OrphanedProducts  prometheus.Counter
	SummaryCacheTotal *prometheus.CounterVec

	// Business metrics
	LimitDenialsTotal       *prometheus.CounterVec
	SubscriptionEventsTotal *prometheus.CounterVec
	ReceiptsUploadedBytes   prometheus.Counter
}

// New creates and registers all metrics on a fresh registry, together with
// the Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		RPCRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_requests_total",
				Help:      "Total number of RPC calls by procedure and code",
			},
			[]string{"procedure", "code"},
		),
		RPCRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_request_duration_seconds",
				Help:      "RPC call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"procedure"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of REST requests by route and status",
			},
			[]string{"route", "status"},
		),
		SummariesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_computed_total",
			Help:      "Bill summaries computed (cache misses)",
		}),
		OrphanedProducts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_products_total",
			Help:      "Products left unallocated in computed summaries",
		}),
		SummaryCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summary_cache_lookups_total",
				Help:      "Summary cache lookups by result",
			},
			[]string{"result"},
		),
		LimitDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "limit_denials_total",
				Help:      "Actions refused by the limit gate",
			},
			[]string{"action", "tier"},
		),
		SubscriptionEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscription_events_total",
				Help:      "Provider events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		ReceiptsUploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_uploaded_bytes_total",
			Help:      "Bytes of receipt files stored",
		}),
	}

	registry.MustRegister(
		m.RPCRequestsTotal,
		m.RPCRequestDuration,
		m.HTTPRequestsTotal,
		m.SummariesComputed,
		m.OrphanedProducts,
		m.SummaryCacheTotal,
		m.LimitDenialsTotal,
		m.SubscriptionEventsTotal,
		m.ReceiptsUploadedBytes,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CacheHit records a summary cache lookup.
func (m *Metrics) CacheHit(hit bool) {
	if hit {
		m.SummaryCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	m.SummaryCacheTotal.WithLabelValues("miss").Inc()
}
