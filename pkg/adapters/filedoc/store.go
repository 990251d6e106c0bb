// Package filedoc implements ports.Store on the local filesystem.
//
// Documents are stored as pretty-printed JSON files, one directory per
// collection and one file per document. It is meant for local development
// and small single-process deployments; there is no cross-process locking.
package filedoc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/graft/pkg/domain"
)

// Store persists documents under a base directory.
type Store struct {
	mu   sync.RWMutex
	base string
}

// NewStore creates a file-backed store rooted at base. If base is empty,
// it defaults to ".graft/data". The directory is created if needed.
func NewStore(base string) (*Store, error) {
	if base == "" {
		base = filepath.Join(".graft", "data")
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure data directory: %w", err)
	}
	return &Store{base: base}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.base); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	id := newID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Replace(ctx context.Context, collection, id string, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(collection, id, doc)
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	if err := checkSegment(collection); err != nil {
		return nil, err
	}
	if err := checkSegment(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(collection, id)
}

func (s *Store) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	if err := checkSegment(collection); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.base, collection))
	if err != nil {
		if os.IsNotExist(err) {
			return []map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}

	// ReadDir returns entries sorted by name, so results are deterministic.
	var out []map[string]any
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		doc, err := s.read(collection, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		if matches(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	docs, err := s.Find(ctx, collection, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := checkSegment(collection); err != nil {
		return err
	}
	if err := checkSegment(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(collection, id))
	if os.IsNotExist(err) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func (s *Store) path(collection, id string) string {
	return filepath.Join(s.base, collection, id+".json")
}

// write persists the document body. The id lives in the filename, not the
// body, so it is stripped before marshaling. Callers hold the lock.
func (s *Store) write(collection, id string, doc map[string]any) error {
	if err := checkSegment(collection); err != nil {
		return err
	}
	if err := checkSegment(id); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(s.base, collection), 0755); err != nil {
		return fmt.Errorf("failed to ensure collection directory: %w", err)
	}

	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		body[k] = v
	}

	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := os.WriteFile(s.path(collection, id), data, 0644); err != nil {
		return fmt.Errorf("failed to write document file: %w", err)
	}
	return nil
}

func (s *Store) read(collection, id string) (map[string]any, error) {
	data, err := os.ReadFile(s.path(collection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s/%s: %w", collection, id, err)
	}
	doc["_id"] = id
	return doc, nil
}

// matches applies flat equality. Stored values went through JSON, so
// numeric filter values should match JSON's types.
func matches(doc, filter map[string]any) bool {
	for k, want := range filter {
		if doc[k] != want {
			return false
		}
	}
	return true
}

func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid path segment %q", s)
	}
	return nil
}

func newID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
