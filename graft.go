package graft

import (
	"context"
	"log/slog"

	"github.com/aretw0/graft/internal/logging"
	"github.com/aretw0/graft/pkg/adapters/memory"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/persistence/middleware"
	"github.com/aretw0/graft/pkg/ports"
)

// Re-exported domain names, so typical applications only import graft.
type (
	// Operation identifies a lifecycle point on a document.
	Operation = domain.Operation
	// Events carries observer callbacks for hook execution.
	Events = domain.Events
	// HookEvent describes one hook invocation.
	HookEvent = domain.HookEvent
	// HookError wraps a hook failure with its position in the chain.
	HookError = domain.HookError
	// PanicError is the error a recovered hook panic surfaces as.
	PanicError = domain.PanicError
)

const (
	OpInit     = domain.OpInit
	OpValidate = domain.OpValidate
	OpSave     = domain.OpSave
	OpRemove   = domain.OpRemove
)

var (
	// ErrNotFound is returned when a document does not exist in the store.
	ErrNotFound = domain.ErrNotFound
	// ErrMissingID is returned by operations that need a populated identifier.
	ErrMissingID = domain.ErrMissingID
)

// Client is the high-level entry point for the Graft library.
// It owns the storage connection and the observability wiring shared by
// every model bound to it.
type Client struct {
	store      ports.Store
	logger     *slog.Logger
	events     domain.Events
	middleware []middleware.Middleware
}

// Option defines a functional option for configuring the Client.
type Option func(*Client)

// WithLogger sets a custom structured logger for the client and its models.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEvents registers observability callbacks, invoked after every hook.
func WithEvents(events domain.Events) Option {
	return func(c *Client) {
		c.events = events
	}
}

// WithStoreMiddleware wraps the store with persistence middleware.
// The first middleware listed becomes the outermost layer, matching the
// order requests travel through them.
func WithStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, mws...)
	}
}

// NewClient initializes a new Graft Client around the given store.
// A nil store falls back to an in-memory one, which is convenient for tests
// and prototypes.
func NewClient(store ports.Store, opts ...Option) *Client {
	c := &Client{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = memory.NewStore()
	}
	for i := len(c.middleware) - 1; i >= 0; i-- {
		c.store = c.middleware[i](c.store)
	}
	return c
}

// Store exposes the client's store, wrapped in any configured middleware.
func (c *Client) Store() ports.Store {
	return c.store
}

// Ping verifies connectivity to the underlying store.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close releases the underlying store connection.
func (c *Client) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}
