// Package mongo provides a MongoDB-backed implementation of ports.Store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aretw0/graft/pkg/domain"
)

// Store implements ports.Store on a MongoDB database.
type Store struct {
	client   *mongo.Client
	database string
}

// NewStore connects to MongoDB and verifies the connection.
// Documents are keyed by string ids (ObjectID hex), so ids travel unchanged
// across every Store implementation.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	opts := mopt.Client().ApplyURI(uri)
	opts.SetConnectTimeout(10 * time.Second).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return &Store{client: client, database: database}, nil
}

func (s *Store) coll(collection string) *mongo.Collection {
	return s.client.Database(s.database).Collection(collection)
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Insert stores a new document under a generated ObjectID hex.
func (s *Store) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	id := primitive.NewObjectID().Hex()
	payload := bson.M{"_id": id}
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		payload[k] = v
	}
	if _, err := s.coll(collection).InsertOne(ctx, payload); err != nil {
		return "", fmt.Errorf("inserting document: %w", err)
	}
	return id, nil
}

// Replace stores doc under id, upserting when absent.
func (s *Store) Replace(ctx context.Context, collection, id string, doc map[string]any) error {
	payload := bson.M{}
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		payload[k] = v
	}
	_, err := s.coll(collection).ReplaceOne(ctx, bson.M{"_id": id}, payload, mopt.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replacing document: %w", err)
	}
	return nil
}

// FindByID retrieves one document.
func (s *Store) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	var doc bson.M
	err := s.coll(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding document: %w", err)
	}
	return normalizeDoc(doc), nil
}

// Find returns every document matching the flat equality filter.
func (s *Store) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	cursor, err := s.coll(collection).Find(ctx, buildFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer cursor.Close(ctx)

	var out []map[string]any
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		out = append(out, normalizeDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

// Count reports how many documents match the filter.
func (s *Store) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	return s.coll(collection).CountDocuments(ctx, buildFilter(filter))
}

// Delete removes one document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.coll(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func buildFilter(filter map[string]any) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	return out
}

// normalizeDoc converts a decoded BSON document into plain Go values, so the
// codec never sees driver-specific types.
func normalizeDoc(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		return normalizeDoc(val)
	case map[string]any:
		return normalizeDoc(val)
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.Binary:
		return val.Data
	case primitive.Decimal128:
		return val.String()
	default:
		return v
	}
}
