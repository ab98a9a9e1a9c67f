package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/messagemind/automaton/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector turns engine lifecycle events and HTTP traffic into Prometheus metrics.
type Collector struct {
	registry      *prometheus.Registry
	nodeVisits    *prometheus.CounterVec
	effects       *prometheus.CounterVec
	effectLatency *prometheus.HistogramVec
	traversals    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// New registers the automaton metrics on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automaton_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"node_type"},
		),
		effects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automaton_effects_total",
				Help: "Node effects performed, by effect and result",
			},
			[]string{"effect", "result"},
		),
		effectLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "automaton_effect_duration_seconds",
				Help:    "Duration of node effects",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"effect"},
		),
		traversals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automaton_traversals_total",
				Help: "Finished traversals, by outcome",
			},
			[]string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automaton_http_requests_total",
				Help: "HTTP requests served, by method and status code",
			},
			[]string{"method", "code"},
		),
	}
	c.registry.MustRegister(c.nodeVisits, c.effects, c.effectLatency, c.traversals, c.httpRequests)
	return c
}

// Hooks returns lifecycle hooks that record engine metrics.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			c.nodeVisits.WithLabelValues(string(e.NodeType)).Inc()
		},
		OnEffect: func(ctx context.Context, e *domain.EffectEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			c.effects.WithLabelValues(e.Effect, result).Inc()
			// Delay duration is the requested wait, not work done.
			if e.Effect == domain.EffectSendMessage {
				c.effectLatency.WithLabelValues(e.Effect).Observe(e.Duration.Seconds())
			}
		},
		OnTraversalEnd: func(ctx context.Context, e *domain.TraversalEvent) {
			c.traversals.WithLabelValues(string(e.Result.Outcome)).Inc()
		},
	}
}

// ObserveRequest records a served HTTP request.
func (c *Collector) ObserveRequest(method string, status int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
