package graft

import (
	"context"
	"reflect"
	"strings"

	"github.com/aretw0/graft/internal/runtime"
	"github.com/aretw0/graft/pkg/domain"
)

// Schema describes one document type: its collection, its identifier field
// and the lifecycle hooks attached to it.
//
// Hooks are registered once at definition time and invoked many times, once
// per operation on any instance. Register everything before binding the
// schema to a model; after that the hook chains are read-only and safe for
// any number of concurrent operations.
type Schema[T any] struct {
	name       string
	collection string
	chain      *runtime.Chain
	embeds     []embedFn[T]
	idIndex    int
}

type embedFn[T any] func(ctx context.Context, runner *runtime.Runner, doc *T, op domain.Operation) error

// SchemaOption configures a schema at construction time.
type SchemaOption func(*schemaSettings)

type schemaSettings struct {
	collection string
}

// WithCollection overrides the collection name derived from the schema name.
func WithCollection(name string) SchemaOption {
	return func(s *schemaSettings) { s.collection = name }
}

// NewSchema creates a schema for the document type T.
//
// The identifier is the string field tagged `bson:"_id"`, or a plain string
// field named ID when no tag is present. Documents without an identifier
// field can be inserted and validated but not fetched, updated or removed.
// The collection name defaults to the lowercased schema name with an "s"
// appended ("User" becomes "users").
func NewSchema[T any](name string, opts ...SchemaOption) *Schema[T] {
	settings := schemaSettings{}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.collection == "" {
		settings.collection = strings.ToLower(name) + "s"
	}
	return &Schema[T]{
		name:       name,
		collection: settings.collection,
		chain:      runtime.NewChain(),
		idIndex:    findIDField(reflect.TypeOf((*T)(nil)).Elem()),
	}
}

// Name returns the schema name used in logs and hook events.
func (s *Schema[T]) Name() string { return s.name }

// Collection returns the storage collection documents of this schema live in.
func (s *Schema[T]) Collection() string { return s.collection }

// Pre registers a plain hook to run before op. Returning an error halts the
// operation: remaining pre hooks, the core action and all post hooks are
// skipped.
func (s *Schema[T]) Pre(op domain.Operation, fn func(ctx context.Context, doc *T) error) {
	s.chain.Register(domain.PhasePre, op, runtime.SyncHook(adaptSync(fn)))
}

// PreNext registers a continuation-style hook to run before op. The chain
// waits until the hook calls next; next(nil) proceeds and next(err) halts.
func (s *Schema[T]) PreNext(op domain.Operation, fn func(ctx context.Context, doc *T, next func(error))) {
	s.chain.Register(domain.PhasePre, op, runtime.NextHook(adaptNext(fn)))
}

// PreAsync registers a channel-based hook to run before op. The chain waits
// for one value from the returned channel; a nil or closed channel counts
// as success.
func (s *Schema[T]) PreAsync(op domain.Operation, fn func(ctx context.Context, doc *T) <-chan error) {
	s.chain.Register(domain.PhasePre, op, runtime.AsyncHook(adaptAsync(fn)))
}

// Post registers a plain hook to run after op's core action succeeded.
func (s *Schema[T]) Post(op domain.Operation, fn func(ctx context.Context, doc *T) error) {
	s.chain.Register(domain.PhasePost, op, runtime.SyncHook(adaptSync(fn)))
}

// PostNext registers a continuation-style hook to run after op.
func (s *Schema[T]) PostNext(op domain.Operation, fn func(ctx context.Context, doc *T, next func(error))) {
	s.chain.Register(domain.PhasePost, op, runtime.NextHook(adaptNext(fn)))
}

// PostAsync registers a channel-based hook to run after op.
func (s *Schema[T]) PostAsync(op domain.Operation, fn func(ctx context.Context, doc *T) <-chan error) {
	s.chain.Register(domain.PhasePost, op, runtime.AsyncHook(adaptAsync(fn)))
}

// Embed links a child schema into a parent. Saving or validating a parent
// document runs the child's full hook chain for the same operation, once
// per child returned by children, as part of the parent's core action.
// Children persist inside the parent document; their chains run with no
// core action of their own.
func Embed[P, C any](parent *Schema[P], child *Schema[C], children func(*P) []*C) {
	parent.embeds = append(parent.embeds, func(ctx context.Context, runner *runtime.Runner, doc *P, op domain.Operation) error {
		for _, c := range children(doc) {
			if c == nil {
				continue
			}
			if err := runner.Run(ctx, child.chain, op, c, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Schema[T]) runEmbeds(ctx context.Context, runner *runtime.Runner, doc *T, op domain.Operation) error {
	for _, embed := range s.embeds {
		if err := embed(ctx, runner, doc, op); err != nil {
			return err
		}
	}
	return nil
}

func adaptSync[T any](fn func(context.Context, *T) error) func(context.Context, any) error {
	return func(ctx context.Context, doc any) error {
		return fn(ctx, doc.(*T))
	}
}

func adaptNext[T any](fn func(context.Context, *T, func(error))) func(context.Context, any, func(error)) {
	return func(ctx context.Context, doc any, next func(error)) {
		fn(ctx, doc.(*T), next)
	}
}

func adaptAsync[T any](fn func(context.Context, *T) <-chan error) func(context.Context, any) <-chan error {
	return func(ctx context.Context, doc any) <-chan error {
		return fn(ctx, doc.(*T))
	}
}

// findIDField locates the top-level string field holding the document id.
// Returns -1 when the type has none.
func findIDField(t reflect.Type) int {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return -1
	}
	fallback := -1
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Type.Kind() != reflect.String {
			continue
		}
		name, _, skip := bsonName(field)
		if skip {
			continue
		}
		if name == "_id" {
			return i
		}
		if field.Name == "ID" && field.Tag.Get("bson") == "" {
			fallback = i
		}
	}
	return fallback
}

func (s *Schema[T]) idOf(doc *T) string {
	if s.idIndex < 0 {
		return ""
	}
	return reflect.ValueOf(doc).Elem().Field(s.idIndex).String()
}

func (s *Schema[T]) setID(doc *T, id string) {
	if s.idIndex < 0 {
		return
	}
	reflect.ValueOf(doc).Elem().Field(s.idIndex).SetString(id)
}
