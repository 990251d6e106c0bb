package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/graft/pkg/ports"
)

type piiMiddleware struct {
	next     ports.Store
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of document
// fields whose names match the patterns, before they reach the store.
// Masking applies recursively to embedded documents and arrays, so fields
// of embedded children are covered too. Reads pass through untouched: the
// data is already masked at rest.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.Store) ports.Store {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Ping(ctx context.Context) error {
	return m.next.Ping(ctx)
}

func (m *piiMiddleware) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	return m.next.Insert(ctx, collection, m.masked(doc))
}

func (m *piiMiddleware) Replace(ctx context.Context, collection, id string, doc map[string]any) error {
	return m.next.Replace(ctx, collection, id, m.masked(doc))
}

func (m *piiMiddleware) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	return m.next.FindByID(ctx, collection, id)
}

func (m *piiMiddleware) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	return m.next.Find(ctx, collection, filter)
}

func (m *piiMiddleware) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	return m.next.Count(ctx, collection, filter)
}

func (m *piiMiddleware) Delete(ctx context.Context, collection, id string) error {
	return m.next.Delete(ctx, collection, id)
}

func (m *piiMiddleware) Close(ctx context.Context) error {
	return m.next.Close(ctx)
}

// masked returns a deep copy of doc with matching fields replaced, leaving
// the caller's document (still in use by hooks) untouched.
func (m *piiMiddleware) masked(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if m.matchesKey(k) {
			out[k] = "***"
			continue
		}
		out[k] = m.maskedValue(v)
	}
	return out
}

func (m *piiMiddleware) maskedValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return m.masked(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = m.maskedValue(item)
		}
		return out
	default:
		return v
	}
}

func (m *piiMiddleware) matchesKey(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
