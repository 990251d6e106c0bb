package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aretw0/graft/internal/logging"
	"github.com/aretw0/graft/pkg/ports"
)

type cacheMiddleware struct {
	next   ports.Store
	cache  ports.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// CacheOption configures the cache middleware.
type CacheOption func(*cacheMiddleware)

// WithCacheLogger attaches a logger for cache faults. Cache failures are
// never surfaced to callers; the store remains the source of truth.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(m *cacheMiddleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewCacheMiddleware creates a read-through cache for FindByID lookups.
// Writes keep the cache coherent: Insert primes the entry, Replace and
// Delete invalidate it. Find and Count always hit the store, since filter
// results cannot be invalidated cheaply.
func NewCacheMiddleware(cache ports.Cache, ttl time.Duration, opts ...CacheOption) Middleware {
	return func(next ports.Store) ports.Store {
		m := &cacheMiddleware{next: next, cache: cache, ttl: ttl, logger: logging.NewNop()}
		for _, opt := range opts {
			opt(m)
		}
		return m
	}
}

func cacheKey(collection, id string) string {
	return "graft:doc:" + collection + ":" + id
}

func (m *cacheMiddleware) Ping(ctx context.Context) error {
	return m.next.Ping(ctx)
}

func (m *cacheMiddleware) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	id, err := m.next.Insert(ctx, collection, doc)
	if err != nil {
		return "", err
	}
	primed := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		primed[k] = v
	}
	primed["_id"] = id
	m.store(ctx, collection, id, primed)
	return id, nil
}

func (m *cacheMiddleware) Replace(ctx context.Context, collection, id string, doc map[string]any) error {
	if err := m.next.Replace(ctx, collection, id, doc); err != nil {
		return err
	}
	m.invalidate(ctx, collection, id)
	return nil
}

func (m *cacheMiddleware) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	if raw, err := m.cache.Get(ctx, cacheKey(collection, id)); err == nil {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err == nil {
			return doc, nil
		}
		m.invalidate(ctx, collection, id)
	}

	doc, err := m.next.FindByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	m.store(ctx, collection, id, doc)
	return doc, nil
}

func (m *cacheMiddleware) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	return m.next.Find(ctx, collection, filter)
}

func (m *cacheMiddleware) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	return m.next.Count(ctx, collection, filter)
}

func (m *cacheMiddleware) Delete(ctx context.Context, collection, id string) error {
	if err := m.next.Delete(ctx, collection, id); err != nil {
		return err
	}
	m.invalidate(ctx, collection, id)
	return nil
}

func (m *cacheMiddleware) Close(ctx context.Context) error {
	if err := m.cache.Close(); err != nil {
		m.logger.WarnContext(ctx, "closing cache", "error", err)
	}
	return m.next.Close(ctx)
}

func (m *cacheMiddleware) store(ctx context.Context, collection, id string, doc map[string]any) {
	raw, err := json.Marshal(doc)
	if err != nil {
		m.logger.WarnContext(ctx, "cache encode failed", "collection", collection, "error", err)
		return
	}
	if err := m.cache.Set(ctx, cacheKey(collection, id), raw, m.ttl); err != nil {
		m.logger.WarnContext(ctx, "cache set failed", "collection", collection, "error", err)
	}
}

func (m *cacheMiddleware) invalidate(ctx context.Context, collection, id string) {
	if err := m.cache.Delete(ctx, cacheKey(collection, id)); err != nil {
		m.logger.WarnContext(ctx, "cache invalidation failed", "collection", collection, "error", err)
	}
}
