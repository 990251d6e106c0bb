package middleware

import (
	"context"
	"time"

	"github.com/aretw0/graft/pkg/observability"
	"github.com/aretw0/graft/pkg/ports"
)

type metricsMiddleware struct {
	next    ports.Store
	metrics *observability.Metrics
}

// NewMetricsMiddleware creates a middleware that records every store
// operation in the given Prometheus instruments.
func NewMetricsMiddleware(metrics *observability.Metrics) Middleware {
	return func(next ports.Store) ports.Store {
		return &metricsMiddleware{next: next, metrics: metrics}
	}
}

func (m *metricsMiddleware) Ping(ctx context.Context) error {
	start := time.Now()
	err := m.next.Ping(ctx)
	m.metrics.ObserveStore("", "ping", time.Since(start), err)
	return err
}

func (m *metricsMiddleware) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	start := time.Now()
	id, err := m.next.Insert(ctx, collection, doc)
	m.metrics.ObserveStore(collection, "insert", time.Since(start), err)
	return id, err
}

func (m *metricsMiddleware) Replace(ctx context.Context, collection, id string, doc map[string]any) error {
	start := time.Now()
	err := m.next.Replace(ctx, collection, id, doc)
	m.metrics.ObserveStore(collection, "replace", time.Since(start), err)
	return err
}

func (m *metricsMiddleware) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	start := time.Now()
	doc, err := m.next.FindByID(ctx, collection, id)
	m.metrics.ObserveStore(collection, "find_by_id", time.Since(start), err)
	return doc, err
}

func (m *metricsMiddleware) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	start := time.Now()
	docs, err := m.next.Find(ctx, collection, filter)
	m.metrics.ObserveStore(collection, "find", time.Since(start), err)
	return docs, err
}

func (m *metricsMiddleware) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	start := time.Now()
	n, err := m.next.Count(ctx, collection, filter)
	m.metrics.ObserveStore(collection, "count", time.Since(start), err)
	return n, err
}

func (m *metricsMiddleware) Delete(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := m.next.Delete(ctx, collection, id)
	m.metrics.ObserveStore(collection, "delete", time.Since(start), err)
	return err
}

func (m *metricsMiddleware) Close(ctx context.Context) error {
	return m.next.Close(ctx)
}
