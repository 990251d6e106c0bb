// Package memory provides in-memory implementations of the graft ports,
// suitable for tests and ephemeral workloads.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/aretw0/graft/pkg/domain"
)

// Store implements ports.Store in memory.
// Safe for concurrent use.
type Store struct {
	collections map[string]map[string]map[string]any
	mu          sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Insert stores a new document under a generated identifier.
func (s *Store) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	id := newID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(collection)[id] = copyDoc(doc)
	return id, nil
}

// Replace stores doc under id, creating the document when absent.
func (s *Store) Replace(ctx context.Context, collection, id string, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(collection)[id] = copyDoc(doc)
	return nil
}

// FindByID retrieves one document.
func (s *Store) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	// Copy on read so the caller can't mutate stored state by reference.
	out := copyDoc(doc)
	out["_id"] = id
	return out, nil
}

// Find returns every document matching the flat equality filter.
func (s *Store) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []map[string]any
	for id, doc := range s.collections[collection] {
		if !matches(doc, filter) {
			continue
		}
		copied := copyDoc(doc)
		copied["_id"] = id
		out = append(out, copied)
	}
	return out, nil
}

// Count reports how many documents match the filter.
func (s *Store) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

// Delete removes one document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.collections[collection]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := bucket[id]; !ok {
		return domain.ErrNotFound
	}
	delete(bucket, id)
	return nil
}

// Close is a no-op.
func (s *Store) Close(ctx context.Context) error { return nil }

// bucket returns the collection map, creating it on first use.
// Callers must hold the write lock.
func (s *Store) bucket(collection string) map[string]map[string]any {
	b, ok := s.collections[collection]
	if !ok {
		b = make(map[string]map[string]any)
		s.collections[collection] = b
	}
	return b
}

func matches(doc, filter map[string]any) bool {
	for k, want := range filter {
		if doc[k] != want {
			return false
		}
	}
	return true
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		out[k] = v
	}
	return out
}

func newID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
