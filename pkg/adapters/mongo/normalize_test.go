package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeDoc_DriverTypesBecomePlainGo(t *testing.T) {
	oid := primitive.NewObjectID()
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	doc := bson.M{
		"_id":  "abc",
		"name": "Ada",
		"ref":  oid,
		"at":   primitive.NewDateTimeFromTime(at),
		"blob": primitive.Binary{Data: []byte{1, 2}},
		"tags": bson.A{"x", bson.M{"deep": primitive.NewDateTimeFromTime(at)}},
		"meta": bson.M{"n": int32(7)},
	}

	out := normalizeDoc(doc)

	assert.Equal(t, "abc", out["_id"])
	assert.Equal(t, oid.Hex(), out["ref"])
	assert.Equal(t, at, out["at"])
	assert.Equal(t, []byte{1, 2}, out["blob"])

	tags := out["tags"].([]any)
	assert.Equal(t, "x", tags[0])
	assert.Equal(t, at, tags[1].(map[string]any)["deep"])

	meta := out["meta"].(map[string]any)
	assert.Equal(t, int32(7), meta["n"])
}

func TestBuildFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, buildFilter(nil))
	assert.Equal(t, bson.M{"name": "Ada"}, buildFilter(map[string]any{"name": "Ada"}))
}
