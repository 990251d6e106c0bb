package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aretw0/graft/pkg/domain"
)

// Metrics holds the Prometheus instruments for one Graft client.
type Metrics struct {
	storeOps       *prometheus.CounterVec
	storeDuration  *prometheus.HistogramVec
	hookDuration   *prometheus.HistogramVec
	hooksSwallowed *prometheus.CounterVec
}

// NewMetrics builds and registers the Graft instruments on reg.
// Pass prometheus.DefaultRegisterer for the usual global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		storeOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graft_store_operations_total",
			Help: "Store operations, by collection, operation and outcome.",
		}, []string{"collection", "operation", "status"}),
		storeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "graft_store_operation_duration_seconds",
			Help:    "Store operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection", "operation"}),
		hookDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "graft_hook_duration_seconds",
			Help:    "Lifecycle hook execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model", "operation", "phase"}),
		hooksSwallowed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graft_hooks_swallowed_failures_total",
			Help: "Late hook failures discarded after the chain had advanced.",
		}, []string{"model", "operation"}),
	}
}

// ObserveStore records one store operation.
func (m *Metrics) ObserveStore(collection, operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.storeOps.WithLabelValues(collection, operation, status).Inc()
	m.storeDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// HookEvents returns engine event callbacks that feed the hook metrics.
// Wire it with graft.WithEvents(metrics.HookEvents()).
func (m *Metrics) HookEvents() domain.Events {
	return domain.Events{
		OnHook: func(_ context.Context, ev domain.HookEvent) {
			if ev.Swallowed {
				m.hooksSwallowed.WithLabelValues(ev.Model, string(ev.Op)).Inc()
				return
			}
			m.hookDuration.WithLabelValues(ev.Model, string(ev.Op), string(ev.Phase)).Observe(ev.Duration.Seconds())
		},
	}
}
