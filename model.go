package graft

import (
	"context"

	"github.com/aretw0/graft/internal/runtime"
	"github.com/aretw0/graft/pkg/domain"
)

// Model binds a schema to a client, giving documents of type T their
// lifecycle operations. Every operation runs the schema's hook chain around
// the core action: pre hooks, then the action, then post hooks.
//
// A model is safe for concurrent use. Operations on different documents may
// proceed in parallel; hooks within one operation never do.
type Model[T any] struct {
	schema *Schema[T]
	client *Client
	runner *runtime.Runner
}

// NewModel binds schema to client.
func NewModel[T any](client *Client, schema *Schema[T]) *Model[T] {
	return &Model[T]{
		schema: schema,
		client: client,
		runner: runtime.NewRunner(
			runtime.WithName(schema.name),
			runtime.WithLogger(client.logger),
			runtime.WithEvents(client.events),
		),
	}
}

// Schema returns the schema this model operates on.
func (m *Model[T]) Schema() *Schema[T] { return m.schema }

// Save persists doc through the save chain. Documents with an empty
// identifier are inserted and receive the store-assigned id; documents that
// already carry one are replaced, creating them when absent.
//
// The core action first runs the full save chain of every embedded child,
// then writes the parent document. A child hook failure therefore aborts
// the write and skips the parent's post hooks.
func (m *Model[T]) Save(ctx context.Context, doc *T) error {
	core := func(ctx context.Context) error {
		if err := m.schema.runEmbeds(ctx, m.runner, doc, domain.OpSave); err != nil {
			return err
		}
		raw, err := dehydrate(doc)
		if err != nil {
			return err
		}
		if id := m.schema.idOf(doc); id != "" {
			return m.client.store.Replace(ctx, m.schema.collection, id, raw)
		}
		id, err := m.client.store.Insert(ctx, m.schema.collection, raw)
		if err != nil {
			return err
		}
		m.schema.setID(doc, id)
		return nil
	}
	return m.runner.Run(ctx, m.schema.chain, domain.OpSave, doc, core)
}

// Validate runs doc through the validate chain. The core action runs the
// validate chain of every embedded child; the store is never touched.
func (m *Model[T]) Validate(ctx context.Context, doc *T) error {
	core := func(ctx context.Context) error {
		return m.schema.runEmbeds(ctx, m.runner, doc, domain.OpValidate)
	}
	return m.runner.Run(ctx, m.schema.chain, domain.OpValidate, doc, core)
}

// Remove deletes doc from the store through the remove chain.
// Returns ErrMissingID when doc carries no identifier.
func (m *Model[T]) Remove(ctx context.Context, doc *T) error {
	core := func(ctx context.Context) error {
		id := m.schema.idOf(doc)
		if id == "" {
			return domain.ErrMissingID
		}
		return m.client.store.Delete(ctx, m.schema.collection, id)
	}
	return m.runner.Run(ctx, m.schema.chain, domain.OpRemove, doc, core)
}

// Hydrate builds a document from its stored map form, running the init
// chain around the decode: pre init hooks observe the zero-valued document,
// post init hooks observe the populated one. Each call hydrates a fresh
// instance and fires the chain exactly once.
func (m *Model[T]) Hydrate(ctx context.Context, raw map[string]any) (*T, error) {
	doc := new(T)
	core := func(ctx context.Context) error {
		if err := hydrate(raw, doc); err != nil {
			return err
		}
		if id, ok := raw["_id"].(string); ok {
			m.schema.setID(doc, id)
		}
		return nil
	}
	if err := m.runner.Run(ctx, m.schema.chain, domain.OpInit, doc, core); err != nil {
		return nil, err
	}
	return doc, nil
}

// FindByID fetches one document and hydrates it.
// Returns ErrNotFound when no document has the given id.
func (m *Model[T]) FindByID(ctx context.Context, id string) (*T, error) {
	raw, err := m.client.store.FindByID(ctx, m.schema.collection, id)
	if err != nil {
		return nil, err
	}
	return m.Hydrate(ctx, raw)
}

// Find fetches every document matching the flat equality filter and
// hydrates each one, firing the init chain once per document. A nil filter
// matches the whole collection.
func (m *Model[T]) Find(ctx context.Context, filter map[string]any) ([]*T, error) {
	raws, err := m.client.store.Find(ctx, m.schema.collection, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]*T, 0, len(raws))
	for _, raw := range raws {
		doc, err := m.Hydrate(ctx, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count reports how many documents match the flat equality filter.
func (m *Model[T]) Count(ctx context.Context, filter map[string]any) (int64, error) {
	return m.client.store.Count(ctx, m.schema.collection, filter)
}

// Execute runs the hook chain of an arbitrary operation around core, which
// may be nil for operations with no underlying action. This is how custom
// lifecycle points beyond the built-in four are driven.
func (m *Model[T]) Execute(ctx context.Context, op domain.Operation, doc *T, core func(ctx context.Context) error) error {
	return m.runner.Run(ctx, m.schema.chain, op, doc, runtime.Action(core))
}
