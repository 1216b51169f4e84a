// Package mongo is a registry.DocumentStore on MongoDB. Each registry
// collection maps to a Mongo collection and the registry key is the _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"txsemantics/internal/registry"
)

// Store wraps a connected client and the database holding the registry.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collection implements registry.DocumentStore.
func (s *Store) Collection(name string) registry.Collection {
	return &collection{coll: s.db.Collection(name)}
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) InsertOne(ctx context.Context, id string, doc []byte) error {
	d, err := withID(id, doc)
	if err != nil {
		return err
	}
	if _, err := c.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return registry.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (c *collection) ReplaceOne(ctx context.Context, id string, doc []byte) error {
	d, err := withID(id, doc)
	if err != nil {
		return err
	}
	_, err = c.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, d, options.Replace().SetUpsert(true))
	return err
}

func (c *collection) FindByID(ctx context.Context, id string) ([]byte, bool, error) {
	var m bson.M
	err := c.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, err
	}
	delete(m, "_id")
	doc, err := bson.MarshalExtJSON(m, false, false)
	if err != nil {
		return nil, false, fmt.Errorf("encode document %s: %w", id, err)
	}
	return doc, true, nil
}

// withID turns a JSON document into BSON with the registry key as _id.
func withID(id string, doc []byte) (bson.D, error) {
	var body bson.D
	if err := bson.UnmarshalExtJSON(doc, false, &body); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	out := make(bson.D, 0, len(body)+1)
	out = append(out, bson.E{Key: "_id", Value: id})
	for _, e := range body {
		if e.Key == "_id" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
