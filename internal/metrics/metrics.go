// Package metrics implements the observability hooks with Prometheus
// collectors.
//
// All collectors are registered on a caller supplied registry so that the
// CLI can write a fresh registry to a textfile and tests can inspect one in
// isolation:
//
//	reg := prometheus.NewRegistry()
//	observability.SetResolverHooks(metrics.NewResolverHooks(reg))
//	observability.SetCacheHooks(metrics.NewCacheHooks(reg))
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/observability"
)

// Namespace prefixes every metric name.
const Namespace = "versolve"

// =============================================================================
// Resolver
// =============================================================================

// ResolverHooks records simplifier, resolver and sanity checker events.
type ResolverHooks struct {
	simplifyDuration prometheus.Histogram
	simplifyVersions *prometheus.CounterVec
	conflicts        prometheus.Counter

	inflight        prometheus.Gauge
	resolveDuration *prometheus.HistogramVec
	resolves        *prometheus.CounterVec
	installed       prometheus.Histogram
	nodes           prometheus.Histogram

	sanityDuration prometheus.Histogram
	findings       prometheus.Counter
}

// NewResolverHooks registers the resolver collectors on reg.
func NewResolverHooks(reg prometheus.Registerer) *ResolverHooks {
	f := promauto.With(reg)
	return &ResolverHooks{
		simplifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "simplify",
			Name:      "duration_seconds",
			Help:      "Time spent simplifying a graph",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		simplifyVersions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "simplify",
			Name:      "versions_total",
			Help:      "Versions removed by the simplifier",
		}, []string{"action"}),
		conflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "simplify",
			Name:      "conflicts_total",
			Help:      "Simplifier passes that found the graph unsatisfiable",
		}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "resolve",
			Name:      "inflight",
			Help:      "Resolutions currently running",
		}),
		resolveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "resolve",
			Name:      "duration_seconds",
			Help:      "Resolution latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"strategy"}),
		resolves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "resolve",
			Name:      "total",
			Help:      "Finished resolutions by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		installed: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "resolve",
			Name:      "installed_packages",
			Help:      "Packages installed by successful resolutions",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		nodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "resolve",
			Name:      "search_nodes",
			Help:      "Search nodes visited per resolution",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		sanityDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "sanity",
			Name:      "duration_seconds",
			Help:      "Sanity check latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		findings: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "sanity",
			Name:      "findings_total",
			Help:      "Uninstallable versions reported by sanity checks",
		}),
	}
}

func (h *ResolverHooks) OnSimplify(_ context.Context, stats observability.SimplifyStats, d time.Duration, err error) {
	h.simplifyDuration.Observe(d.Seconds())
	if err != nil {
		return
	}
	if stats.Conflict {
		h.conflicts.Inc()
		return
	}
	h.simplifyVersions.WithLabelValues("pruned").Add(float64(stats.Pruned))
	h.simplifyVersions.WithLabelValues("merged").Add(float64(stats.Merged))
}

func (h *ResolverHooks) OnResolveStart(context.Context, string, int) {
	h.inflight.Inc()
}

func (h *ResolverHooks) OnResolveComplete(_ context.Context, strategy string, installed, nodes int, d time.Duration, err error) {
	h.inflight.Dec()
	h.resolveDuration.WithLabelValues(strategy).Observe(d.Seconds())
	h.resolves.WithLabelValues(strategy, Outcome(err)).Inc()
	h.nodes.Observe(float64(nodes))
	if err == nil {
		h.installed.Observe(float64(installed))
	}
}

func (h *ResolverHooks) OnSanityComplete(_ context.Context, _, findings int, d time.Duration) {
	h.sanityDuration.Observe(d.Seconds())
	h.findings.Add(float64(findings))
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errors.ErrCodeUnsatisfiable):
		return "unsatisfiable"
	case errors.Is(err, errors.ErrCodeGraphValidation):
		return "invalid"
	case errors.Is(err, errors.ErrCodeTimeout):
		return "timeout"
	}
	return "error"
}

// =============================================================================
// Cache
// =============================================================================

// CacheHooks records cache lookups and writes by key type.
type CacheHooks struct {
	lookups *prometheus.CounterVec
	written *prometheus.CounterVec
}

// NewCacheHooks registers the cache collectors on reg.
func NewCacheHooks(reg prometheus.Registerer) *CacheHooks {
	f := promauto.With(reg)
	return &CacheHooks{
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by key type and result",
		}, []string{"key_type", "result"}),
		written: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"key_type"}),
	}
}

func (h *CacheHooks) OnCacheHit(_ context.Context, keyType string) {
	h.lookups.WithLabelValues(keyType, "hit").Inc()
}

func (h *CacheHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.lookups.WithLabelValues(keyType, "miss").Inc()
}

func (h *CacheHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.written.WithLabelValues(keyType).Add(float64(size))
}

// =============================================================================
// HTTP
// =============================================================================

// HTTPHooks records API requests by route pattern. The route passed to
// OnRequest is ignored since it is not known before routing.
type HTTPHooks struct {
	inflight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPHooks registers the HTTP collectors on reg.
func NewHTTPHooks(reg prometheus.Registerer) *HTTPHooks {
	f := promauto.With(reg)
	return &HTTPHooks{
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Requests currently being served",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Served requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (h *HTTPHooks) OnRequest(context.Context, string, string) {
	h.inflight.Inc()
}

func (h *HTTPHooks) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	h.inflight.Dec()
	h.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	h.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// WriteFile writes every metric gathered from g to path in the text
// exposition format, for the node exporter's textfile collector.
func WriteFile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
