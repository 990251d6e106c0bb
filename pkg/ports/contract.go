package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a Store
// implementation adheres to the defined interface contract.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	collection := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("Insert and FindByID", func(t *testing.T) {
		// 1. Insert a document
		id, err := store.Insert(ctx, collection, map[string]any{"name": "Ada", "age": 36})
		require.NoError(t, err, "Insert should not return error")
		require.NotEmpty(t, id, "Insert must assign an identifier")

		// 2. Read it back
		doc, err := store.FindByID(ctx, collection, id)
		require.NoError(t, err)
		assert.Equal(t, id, doc["_id"], "returned document must carry its id")
		assert.Equal(t, "Ada", doc["name"])
		assert.EqualValues(t, 36, doc["age"])
	})

	t.Run("Insert Assigns Distinct IDs", func(t *testing.T) {
		a, err := store.Insert(ctx, collection, map[string]any{"name": "a"})
		require.NoError(t, err)
		b, err := store.Insert(ctx, collection, map[string]any{"name": "b"})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("FindByID Not Found", func(t *testing.T) {
		_, err := store.FindByID(ctx, collection, "no-such-id")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Replace Upserts", func(t *testing.T) {
		// 1. Replace a document that does not exist yet
		err := store.Replace(ctx, collection, "upsert-1", map[string]any{"name": "Grace"})
		require.NoError(t, err)

		doc, err := store.FindByID(ctx, collection, "upsert-1")
		require.NoError(t, err)
		assert.Equal(t, "Grace", doc["name"])

		// 2. Replace again, dropping the old field set entirely
		err = store.Replace(ctx, collection, "upsert-1", map[string]any{"title": "Rear Admiral"})
		require.NoError(t, err)

		doc, err = store.FindByID(ctx, collection, "upsert-1")
		require.NoError(t, err)
		assert.Equal(t, "Rear Admiral", doc["title"])
		assert.NotContains(t, doc, "name", "Replace must not merge with the previous document")
	})

	t.Run("Find and Count", func(t *testing.T) {
		scope := collection + "-find"
		for _, name := range []string{"x", "y", "y"} {
			_, err := store.Insert(ctx, scope, map[string]any{"group": name})
			require.NoError(t, err)
		}

		// 1. Flat equality filter
		docs, err := store.Find(ctx, scope, map[string]any{"group": "y"})
		require.NoError(t, err)
		assert.Len(t, docs, 2)
		for _, doc := range docs {
			assert.NotEmpty(t, doc["_id"])
			assert.Equal(t, "y", doc["group"])
		}

		// 2. Empty filter matches everything
		docs, err = store.Find(ctx, scope, nil)
		require.NoError(t, err)
		assert.Len(t, docs, 3)

		// 3. No matches is an empty result, not an error
		docs, err = store.Find(ctx, scope, map[string]any{"group": "z"})
		require.NoError(t, err)
		assert.Empty(t, docs)

		// 4. Count agrees with Find
		n, err := store.Count(ctx, scope, map[string]any{"group": "y"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = store.Count(ctx, scope, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("Delete", func(t *testing.T) {
		id, err := store.Insert(ctx, collection, map[string]any{"name": "gone"})
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, collection, id))

		_, err = store.FindByID(ctx, collection, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = store.Delete(ctx, collection, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, "deleting twice must report the missing document")
	})

	t.Run("Collections Are Isolated", func(t *testing.T) {
		id, err := store.Insert(ctx, collection+"-a", map[string]any{"name": "only here"})
		require.NoError(t, err)

		_, err = store.FindByID(ctx, collection+"-b", id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// RunCacheContract runs a suite of tests to verify that a Cache
// implementation adheres to the defined interface contract.
// Expiry behavior is clock-dependent and is left to adapter tests.
func RunCacheContract(t *testing.T, cache Cache) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "k1", []byte(`{"name":"Ada"}`), time.Minute))

		val, err := cache.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"name":"Ada"}`), val)
	})

	t.Run("Get Miss", func(t *testing.T) {
		_, err := cache.Get(ctx, "absent")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "k2", []byte("old"), time.Minute))
		require.NoError(t, cache.Set(ctx, "k2", []byte("new"), time.Minute))

		val, err := cache.Get(ctx, "k2")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), val)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "k3", []byte("v"), time.Minute))
		require.NoError(t, cache.Delete(ctx, "k3"))

		_, err := cache.Get(ctx, "k3")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)

		assert.NoError(t, cache.Delete(ctx, "k3"), "deleting an absent key is not an error")
	})

	t.Run("Zero TTL Does Not Expire", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "k4", []byte("pinned"), 0))

		val, err := cache.Get(ctx, "k4")
		require.NoError(t, err)
		assert.Equal(t, []byte("pinned"), val)
	})
}
