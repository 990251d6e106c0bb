// Package pgdoc provides a PostgreSQL-backed implementation of ports.Store,
// keeping documents in a JSONB column so Postgres can serve as a document
// database.
package pgdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretw0/graft/pkg/domain"
)

const defaultTable = "graft_documents"

// Store implements ports.Store on a PostgreSQL table of JSONB documents.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithTable overrides the backing table name.
func WithTable(name string) StoreOption {
	return func(s *Store) { s.table = name }
}

// NewStore connects to PostgreSQL and prepares the document table. One table
// holds every collection; filtered reads use JSONB containment, backed by a
// GIN index.
func NewStore(ctx context.Context, connString string, opts ...StoreOption) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := &Store{pool: pool, table: defaultTable}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			doc        JSONB NOT NULL,
			PRIMARY KEY (collection, id)
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q USING GIN (doc)`,
			s.table+"_doc_idx", s.table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("preparing document table: %w", err)
		}
	}
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Insert stores a new document under a server-generated UUID.
func (s *Store) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	payload, err := marshalBody(doc)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(
		`INSERT INTO %q (collection, id, doc) VALUES ($1, gen_random_uuid()::text, $2) RETURNING id`,
		s.table)

	var id string
	if err := s.pool.QueryRow(ctx, query, collection, payload).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting document: %w", err)
	}
	return id, nil
}

// Replace stores doc under id, upserting when absent.
func (s *Store) Replace(ctx context.Context, collection, id string, doc map[string]any) error {
	payload, err := marshalBody(doc)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`INSERT INTO %q (collection, id, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc`,
		s.table)

	if _, err := s.pool.Exec(ctx, query, collection, id, payload); err != nil {
		return fmt.Errorf("replacing document: %w", err)
	}
	return nil
}

// FindByID retrieves one document.
func (s *Store) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	query := fmt.Sprintf(`SELECT doc FROM %q WHERE collection = $1 AND id = $2`, s.table)

	var payload []byte
	err := s.pool.QueryRow(ctx, query, collection, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding document: %w", err)
	}
	return unmarshalDoc(payload, id)
}

// Find returns every document matching the flat equality filter, using JSONB
// containment so the GIN index applies.
func (s *Store) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	query, args, err := s.findQuery(collection, filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc, err := unmarshalDoc(payload, id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

// Count reports how many documents match the filter.
func (s *Store) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %q WHERE collection = $1`, s.table)
	args := []any{collection}

	if len(filter) > 0 {
		payload, err := marshalDoc(filter)
		if err != nil {
			return 0, err
		}
		query += ` AND doc @> $2`
		args = append(args, payload)
	}

	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Delete removes one document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	query := fmt.Sprintf(`DELETE FROM %q WHERE collection = $1 AND id = $2`, s.table)
	tag, err := s.pool.Exec(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

func (s *Store) findQuery(collection string, filter map[string]any) (string, []any, error) {
	query := fmt.Sprintf(`SELECT id, doc FROM %q WHERE collection = $1`, s.table)
	args := []any{collection}

	if len(filter) > 0 {
		payload, err := marshalDoc(filter)
		if err != nil {
			return "", nil, err
		}
		query += ` AND doc @> $2`
		args = append(args, payload)
	}

	// Stable ordering keeps paginated and repeated reads deterministic.
	query += ` ORDER BY id`
	return query, args, nil
}

func marshalDoc(doc map[string]any) ([]byte, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return payload, nil
}

// marshalBody encodes a document body, dropping any "_id" key since the id
// lives in its own column.
func marshalBody(doc map[string]any) ([]byte, error) {
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		body[k] = v
	}
	return marshalDoc(body)
}

func unmarshalDoc(payload []byte, id string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	doc["_id"] = id
	return doc, nil
}
