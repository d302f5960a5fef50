// Package metrics exposes Prometheus collectors for provider calls, the audio cache
// and query routing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "samaksh"

var (
	// providerRequestsTotal counts provider calls by task and outcome.
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider calls",
		},
		[]string{"provider", "task", "outcome"}, // outcome: ok, no_content, unavailable, timeout
	)

	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider", "task"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_lookups_total",
			Help:      "Audio cache lookups by synthesis variant and result",
		},
		[]string{"variant", "result"}, // result: hit, miss
	)

	routeDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_routes_total",
			Help:      "Questions routed by destination",
		},
		[]string{"route"},
	)

	allMetrics = []prometheus.Collector{
		providerRequestsTotal,
		providerRequestDuration,
		cacheLookupsTotal,
		routeDecisionsTotal,
	}

	registry = newRegistry()
)

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveProvider records one provider call.
func ObserveProvider(provider, task, outcome string, elapsed time.Duration) {
	providerRequestsTotal.WithLabelValues(provider, task, outcome).Inc()
	providerRequestDuration.WithLabelValues(provider, task).Observe(elapsed.Seconds())
}

// CacheLookup records an audio cache hit or miss for a synthesis variant.
func CacheLookup(variant string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(variant, result).Inc()
}

// RouteDecision records which branch answered a question.
func RouteDecision(route string) {
	routeDecisionsTotal.WithLabelValues(route).Inc()
}
