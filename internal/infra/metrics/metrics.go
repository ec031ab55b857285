package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"trustfuse/internal/domain"
	"trustfuse/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the process-local Prometheus registry. All counters are
// labeled by outcome, never by invoice or vendor identifiers, so the
// cardinality stays bounded.
type Metrics struct {
	registry *prometheus.Registry

	assessments    *prometheus.CounterVec
	overrides      prometheus.Counter
	routed         *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	fusionDuration prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trustfuse",
			Name:      "assessments_total",
			Help:      "Fused risk verdicts by risk level and review flag.",
		}, []string{"risk_level", "review_required"}),
		overrides: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trustfuse",
			Name:      "structural_overrides_total",
			Help:      "Verdicts escalated by the structural deviation override.",
		}),
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trustfuse",
			Name:      "routed_total",
			Help:      "Verdicts routed to a review queue.",
		}, []string{"queue"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trustfuse",
			Name:      "rejected_signals_total",
			Help:      "Assessment requests rejected before fusion.",
		}, []string{"reason"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trustfuse",
			Name:      "verdict_cache_hits_total",
			Help:      "Verdicts served from the signal-digest cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trustfuse",
			Name:      "verdict_cache_misses_total",
			Help:      "Assessments that missed the verdict cache.",
		}),
		fusionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trustfuse",
			Name:      "fusion_duration_seconds",
			Help:      "End-to-end assessment latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	registry.MustRegister(
		m.assessments,
		m.overrides,
		m.routed,
		m.rejected,
		m.cacheHits,
		m.cacheMisses,
		m.fusionDuration,
	)
	return m
}

func (m *Metrics) ObserveVerdict(verdict domain.RiskVerdict, routing *usecase.RoutingDecision, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(string(verdict.RiskLevel), strconv.FormatBool(verdict.ReviewRequired)).Inc()
	if verdict.OverrideApplied {
		m.overrides.Inc()
	}
	if routing != nil && routing.Queue != "" {
		m.routed.WithLabelValues(routing.Queue).Inc()
	}
	m.fusionDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentedCache counts hits and misses on the wrapped verdict
// cache without changing its semantics.
type InstrumentedCache struct {
	Inner   usecase.VerdictCache
	Metrics *Metrics
}

func (c *InstrumentedCache) Get(ctx context.Context, key string) (*domain.RiskVerdict, bool, error) {
	verdict, ok, err := c.Inner.Get(ctx, key)
	if err == nil {
		c.Metrics.ObserveCache(ok)
	}
	return verdict, ok, err
}

func (c *InstrumentedCache) Put(ctx context.Context, key string, verdict domain.RiskVerdict, ttl time.Duration) error {
	return c.Inner.Put(ctx, key, verdict, ttl)
}
