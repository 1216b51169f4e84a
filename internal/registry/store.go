// Package registry is the content-addressed store of decoding semantics:
// contracts keyed by code hash, address labels keyed by network and address,
// and signatures keyed by selector hash.
package registry

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateKey is returned by strict inserts when the key already exists.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidRecord is returned when a record has no usable key.
	ErrInvalidRecord = errors.New("invalid record")
)

// Collection names used in the document store.
const (
	CollectionContracts  = "contracts"
	CollectionAddresses  = "addresses"
	CollectionSignatures = "signatures"
)

// Collection is the persistence capability for one record kind. Documents are
// JSON encoded. Each call must be atomic for its single document.
type Collection interface {
	// InsertOne creates the document and fails with ErrDuplicateKey when id exists.
	InsertOne(ctx context.Context, id string, doc []byte) error
	// ReplaceOne replaces the whole document or creates it when absent.
	ReplaceOne(ctx context.Context, id string, doc []byte) error
	// FindByID returns the document; found is false when id is absent.
	FindByID(ctx context.Context, id string) (doc []byte, found bool, err error)
}

// DocumentStore hands out named collections.
type DocumentStore interface {
	Collection(name string) Collection
}

// Metrics observes registry operations.
type Metrics interface {
	Observe(operation string, kind string, err error, started time.Time)
}
