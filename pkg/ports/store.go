package ports

import "context"

// Store defines the interface for persisting documents.
// Documents travel as flat maps produced by the schema codec; the store never
// sees application structs. Implementations must be safe for concurrent use.
type Store interface {
	// Ping verifies connectivity to the backend.
	Ping(ctx context.Context) error

	// Insert stores a new document in the collection and returns the
	// identifier assigned to it. Any "_id" key inside doc is ignored.
	Insert(ctx context.Context, collection string, doc map[string]any) (string, error)

	// Replace stores doc under the given id, creating the document if it
	// does not exist yet.
	Replace(ctx context.Context, collection, id string, doc map[string]any) error

	// FindByID retrieves one document by id, with its "_id" key populated.
	// Returns domain.ErrNotFound if the document does not exist.
	FindByID(ctx context.Context, collection, id string) (map[string]any, error)

	// Find retrieves every document matching the filter, a flat map of
	// field name to required value. An empty or nil filter matches all.
	Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error)

	// Count reports how many documents match the filter.
	Count(ctx context.Context, collection string, filter map[string]any) (int64, error)

	// Delete removes one document by id.
	// Returns domain.ErrNotFound if the document does not exist.
	Delete(ctx context.Context, collection, id string) error

	// Close releases the backend connection.
	Close(ctx context.Context) error
}
