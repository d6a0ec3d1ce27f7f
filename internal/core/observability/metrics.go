// Package observability wires the service's Prometheus collectors.
package observability

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	enabled   atomic.Bool
	scenarioV atomic.Value
)

func Init(r prometheus.Registerer, isEnabled bool) {
	enabled.Store(isEnabled)
	if scenarioV.Load() == nil {
		scenarioV.Store("default")
	}
	if !isEnabled || r == nil {
		return
	}
	initCollectors(r)
}

func Enabled() bool { return enabled.Load() }

func SetScenario(s string) {
	if s == "" {
		s = "default"
	}
	scenarioV.Store(s)
}

func getScenario() string {
	v := scenarioV.Load()
	if v == nil {
		return "default"
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return "default"
}

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	cacheLookupsTotal   *prometheus.CounterVec
	upstreamCallsTotal  *prometheus.CounterVec
	upstreamLatencySeconds *prometheus.HistogramVec

	hierarchyDepthTotal  *prometheus.HistogramVec
	hierarchyCycleTotal  *prometheus.CounterVec
	singleflightJoinTotal *prometheus.CounterVec

	cacheFileCount *prometheus.GaugeVec
)

func initCollectors(r prometheus.Registerer) {
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total number of HTTP requests."},
		[]string{"method", "route", "status", "scenario"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "Duration of HTTP requests in seconds.", Buckets: prometheus.ExponentialBuckets(0.005, 2, 12)},
		[]string{"method", "route", "status", "scenario"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_lookups_total", Help: "Count of cache-store consultations by outcome (hit_positive, hit_negative, miss)."},
		[]string{"outcome", "source", "scenario"},
	)

	upstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "upstream_calls_total", Help: "Count of upstream taxonomy source calls by source, operation and outcome."},
		[]string{"source", "op", "outcome"},
	)
	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "upstream_latency_seconds", Help: "Latency of upstream taxonomy source calls in seconds.", Buckets: prometheus.ExponentialBuckets(0.01, 2, 12)},
		[]string{"source", "op"},
	)

	hierarchyDepthTotal = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "hierarchy_depth", Help: "Depth reached while walking a concept's broader hierarchy.", Buckets: prometheus.LinearBuckets(0, 1, 16)},
		[]string{"source"},
	)
	hierarchyCycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hierarchy_cycles_total", Help: "Count of cycles detected and pruned while walking a broader hierarchy."},
		[]string{"source"},
	)
	singleflightJoinTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "singleflight_joins_total", Help: "Count of requests that joined an in-flight lookup instead of issuing a new one."},
		[]string{"kind"},
	)

	cacheFileCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "cache_file_count", Help: "Number of on-disk cache files by kind, as of the last /api/skos/cache scan."},
		[]string{"kind"},
	)

	r.MustRegister(
		httpRequestsTotal, httpRequestDurationSeconds,
		cacheLookupsTotal, upstreamCallsTotal, upstreamLatencySeconds,
		hierarchyDepthTotal, hierarchyCycleTotal, singleflightJoinTotal,
		cacheFileCount,
	)
}

func ExposeBuildInfo(_ string) {}

// ObserveHTTP records an HTTP request's outcome.
func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if !enabled.Load() || httpRequestsTotal == nil {
		return
	}
	s := getScenario()
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st, s).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st, s).Observe(durationSeconds)
}

// IncCacheLookup records a cache-store consultation. outcome must be one
// of "hit_positive", "hit_negative", or "miss".
func IncCacheLookup(outcome, source string) {
	if !enabled.Load() || cacheLookupsTotal == nil {
		return
	}
	switch outcome {
	case "hit_positive", "hit_negative", "miss":
	default:
		outcome = "miss"
	}
	cacheLookupsTotal.WithLabelValues(outcome, source, getScenario()).Inc()
}

// ObserveUpstreamCall records the outcome and latency of a call to an
// upstream taxonomy source. err classifies the outcome: nil is "ok",
// a context deadline/cancellation is reported distinctly, anything else
// is "error".
func ObserveUpstreamCall(source, op string, err error, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	outcome := "ok"
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			outcome = "timeout"
		case errors.Is(err, context.Canceled):
			outcome = "canceled"
		default:
			outcome = "error"
		}
	}
	if upstreamCallsTotal != nil {
		upstreamCallsTotal.WithLabelValues(source, op, outcome).Inc()
	}
	if upstreamLatencySeconds != nil {
		upstreamLatencySeconds.WithLabelValues(source, op).Observe(durationSeconds)
	}
}

// ObserveHierarchyDepth records the depth reached while walking a
// concept's broader hierarchy to completion.
func ObserveHierarchyDepth(source string, depth int) {
	if !enabled.Load() || hierarchyDepthTotal == nil {
		return
	}
	hierarchyDepthTotal.WithLabelValues(source).Observe(float64(depth))
}

// IncHierarchyCycle records a cycle detected and pruned during a
// hierarchy walk.
func IncHierarchyCycle(source string) {
	if !enabled.Load() || hierarchyCycleTotal == nil {
		return
	}
	hierarchyCycleTotal.WithLabelValues(source).Inc()
}

// IncSingleflightJoin records a request that joined an in-flight lookup
// of the given kind ("concept" or "labels") instead of issuing its own.
func IncSingleflightJoin(kind string) {
	if !enabled.Load() || singleflightJoinTotal == nil {
		return
	}
	singleflightJoinTotal.WithLabelValues(kind).Inc()
}

// SetCacheFileCount publishes the last cache-directory scan's counts.
func SetCacheFileCount(concepts, labels, notFound int) {
	if !enabled.Load() || cacheFileCount == nil {
		return
	}
	cacheFileCount.WithLabelValues("concept").Set(float64(concepts))
	cacheFileCount.WithLabelValues("labels").Set(float64(labels))
	cacheFileCount.WithLabelValues("not_found").Set(float64(notFound))
}
