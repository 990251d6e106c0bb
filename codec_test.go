package graft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codecChild struct {
	Label string `bson:"label"`
	Rank  int    `bson:"rank"`
}

type codecDoc struct {
	ID       string         `bson:"_id"`
	Name     string         `bson:"name"`
	Headline string         // untagged, stored lowercased
	Secret   string         `bson:"-"`
	Nick     string         `bson:"nick,omitempty"`
	Count    int            `bson:"count"`
	Ratio    float64        `bson:"ratio"`
	Tags     []string       `bson:"tags"`
	Child    codecChild     `bson:"child"`
	Kids     []codecChild   `bson:"kids"`
	Meta     map[string]any `bson:"meta"`
	At       time.Time      `bson:"at"`
	Blob     []byte         `bson:"blob"`
}

func TestDehydrate_Shape(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := &codecDoc{
		ID:       "abc",
		Name:     "Ada",
		Headline: "pioneer",
		Secret:   "classified",
		Count:    2,
		Ratio:    0.5,
		Tags:     []string{"x", "y"},
		Child:    codecChild{Label: "first", Rank: 1},
		Kids:     []codecChild{{Label: "a"}, {Label: "b"}},
		Meta:     map[string]any{"source": "import"},
		At:       now,
		Blob:     []byte{1, 2},
	}

	raw, err := dehydrate(doc)
	require.NoError(t, err)

	assert.NotContains(t, raw, "_id", "the identifier travels outside the document body")
	assert.NotContains(t, raw, "Secret")
	assert.NotContains(t, raw, "nick", "omitempty drops zero values")
	assert.Equal(t, "Ada", raw["name"])
	assert.Equal(t, "pioneer", raw["headline"], "untagged fields store under their lowercased name")
	assert.Equal(t, 2, raw["count"])
	assert.Equal(t, []any{"x", "y"}, raw["tags"])
	assert.Equal(t, map[string]any{"label": "first", "rank": 1}, raw["child"])
	assert.Equal(t, []any{
		map[string]any{"label": "a", "rank": 0},
		map[string]any{"label": "b", "rank": 0},
	}, raw["kids"])
	assert.Equal(t, map[string]any{"source": "import"}, raw["meta"])
	assert.Equal(t, now, raw["at"], "times pass through untouched")
	assert.Equal(t, []byte{1, 2}, raw["blob"], "byte slices stay byte slices")
}

func TestHydrate_RoundTrip(t *testing.T) {
	original := &codecDoc{
		Name:  "Grace",
		Count: 7,
		Ratio: 1.5,
		Tags:  []string{"navy"},
		Child: codecChild{Label: "c", Rank: 3},
		Kids:  []codecChild{{Label: "k", Rank: 4}},
	}
	raw, err := dehydrate(original)
	require.NoError(t, err)
	raw["_id"] = "id-1"

	var decoded codecDoc
	require.NoError(t, hydrate(raw, &decoded))

	assert.Equal(t, "id-1", decoded.ID)
	assert.Equal(t, original.Name, decoded.Name)
	assert.Equal(t, original.Count, decoded.Count)
	assert.Equal(t, original.Ratio, decoded.Ratio)
	assert.Equal(t, original.Tags, decoded.Tags)
	assert.Equal(t, original.Child, decoded.Child)
	assert.Equal(t, original.Kids, decoded.Kids)
}

func TestHydrate_ToleratesBackendTypes(t *testing.T) {
	// JSON columns hand back float64 for integers, and times as strings.
	raw := map[string]any{
		"name":  "Ada",
		"count": float64(36),
		"ratio": 2,
		"at":    "2024-05-01T10:30:00Z",
	}

	var decoded codecDoc
	require.NoError(t, hydrate(raw, &decoded))

	assert.Equal(t, 36, decoded.Count)
	assert.Equal(t, 2.0, decoded.Ratio)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), decoded.At.UTC())
}

func TestDehydrate_MapDocument(t *testing.T) {
	raw, err := dehydrate(map[string]any{"_id": "x", "name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ada"}, raw)
}

func TestDehydrate_Errors(t *testing.T) {
	_, err := dehydrate((*codecDoc)(nil))
	assert.Error(t, err)

	_, err = dehydrate(42)
	assert.Error(t, err)
}
