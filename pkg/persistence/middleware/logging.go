package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/graft/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.Store
	logger *slog.Logger
}

// NewLoggingMiddleware creates a middleware that traces every store
// operation: debug on success, warn on failure, always with the elapsed
// time attached.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.Store) ports.Store {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) log(ctx context.Context, op, collection string, start time.Time, err error) {
	attrs := []any{"op", op, "collection", collection, "duration", time.Since(start)}
	if err != nil {
		m.logger.WarnContext(ctx, "store operation failed", append(attrs, "error", err)...)
		return
	}
	m.logger.DebugContext(ctx, "store operation", attrs...)
}

func (m *loggingMiddleware) Ping(ctx context.Context) error {
	start := time.Now()
	err := m.next.Ping(ctx)
	m.log(ctx, "ping", "", start, err)
	return err
}

func (m *loggingMiddleware) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	start := time.Now()
	id, err := m.next.Insert(ctx, collection, doc)
	m.log(ctx, "insert", collection, start, err)
	return id, err
}

func (m *loggingMiddleware) Replace(ctx context.Context, collection, id string, doc map[string]any) error {
	start := time.Now()
	err := m.next.Replace(ctx, collection, id, doc)
	m.log(ctx, "replace", collection, start, err)
	return err
}

func (m *loggingMiddleware) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	start := time.Now()
	doc, err := m.next.FindByID(ctx, collection, id)
	m.log(ctx, "find_by_id", collection, start, err)
	return doc, err
}

func (m *loggingMiddleware) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	start := time.Now()
	docs, err := m.next.Find(ctx, collection, filter)
	m.log(ctx, "find", collection, start, err)
	return docs, err
}

func (m *loggingMiddleware) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	start := time.Now()
	n, err := m.next.Count(ctx, collection, filter)
	m.log(ctx, "count", collection, start, err)
	return n, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := m.next.Delete(ctx, collection, id)
	m.log(ctx, "delete", collection, start, err)
	return err
}

func (m *loggingMiddleware) Close(ctx context.Context) error {
	return m.next.Close(ctx)
}
