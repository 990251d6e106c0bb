package pgdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindQuery(t *testing.T) {
	s := &Store{table: defaultTable}

	t.Run("Without Filter", func(t *testing.T) {
		query, args, err := s.findQuery("users", nil)
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT id, doc FROM "graft_documents" WHERE collection = $1 ORDER BY id`,
			query)
		assert.Equal(t, []any{"users"}, args)
	})

	t.Run("With Filter", func(t *testing.T) {
		query, args, err := s.findQuery("users", map[string]any{"name": "ada"})
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT id, doc FROM "graft_documents" WHERE collection = $1 AND doc @> $2 ORDER BY id`,
			query)
		require.Len(t, args, 2)
		assert.Equal(t, "users", args[0])
		assert.JSONEq(t, `{"name":"ada"}`, string(args[1].([]byte)))
	})
}

func TestDocumentCodec(t *testing.T) {
	payload, err := marshalDoc(map[string]any{"name": "ada"})
	require.NoError(t, err)

	doc, err := unmarshalDoc(payload, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "ada", doc["name"])
	assert.Equal(t, "id-1", doc["_id"])

	payload, err = marshalDoc(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(payload))
}
