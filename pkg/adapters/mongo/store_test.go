package mongo_test

import (
	"context"
	"os"
	"testing"
	"time"

	adapter "github.com/aretw0/graft/pkg/adapters/mongo"
	"github.com/aretw0/graft/pkg/ports"
	"github.com/stretchr/testify/require"
)

// TestStore_Contract runs the shared store contract against a real MongoDB.
// It is skipped unless GRAFT_TEST_MONGO_URI points at a reachable server,
// e.g. mongodb://localhost:27017.
func TestStore_Contract(t *testing.T) {
	uri := os.Getenv("GRAFT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("GRAFT_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := adapter.NewStore(ctx, uri, "graft_test")
	require.NoError(t, err)
	defer store.Close(ctx)

	ports.RunStoreContract(t, store)
}
