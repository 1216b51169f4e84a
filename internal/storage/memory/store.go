// Package memory is an in-process registry.DocumentStore.
package memory

import (
	"context"
	"sync"

	"txsemantics/internal/registry"
)

// Store keeps documents in maps guarded by a single mutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewStore() *Store {
	return &Store{collections: make(map[string]map[string][]byte)}
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) registry.Collection {
	s.mu.Lock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string][]byte)
	}
	s.mu.Unlock()
	return &collection{store: s, name: name}
}

// Len returns the number of documents in a collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[name])
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) InsertOne(ctx context.Context, id string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := c.store.collections[c.name]
	if _, ok := docs[id]; ok {
		return registry.ErrDuplicateKey
	}
	docs[id] = clone(doc)
	return nil
}

func (c *collection) ReplaceOne(ctx context.Context, id string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	c.store.collections[c.name][id] = clone(doc)
	c.store.mu.Unlock()
	return nil
}

func (c *collection) FindByID(ctx context.Context, id string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.store.mu.RLock()
	doc, ok := c.store.collections[c.name][id]
	c.store.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return clone(doc), true, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
