// Package pebble is an embedded registry.DocumentStore on top of PebbleDB.
package pebble

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"txsemantics/internal/registry"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("pebble store closed")

const (
	documentPrefix = "doc/"
	statePrefix    = "state/"
)

// Config holds PebbleDB tuning.
type Config struct {
	Path    string
	CacheMB int
}

// Store keeps documents under "doc/<collection>/<id>". A process owns the
// database exclusively, so strict inserts serialize check-then-set with a
// mutex. mu guards db against a concurrent Close.
type Store struct {
	db      *pebble.DB
	logger  *zap.Logger
	mu      sync.RWMutex
	closed  bool
	writeMu sync.Mutex
}

func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("pebble path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &pebble.Options{}
	if cfg.CacheMB > 0 {
		cache := pebble.NewCache(int64(cfg.CacheMB) << 20)
		defer cache.Unref()
		opts.Cache = cache
	}
	db, err := pebble.Open(cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", cfg.Path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Collection implements registry.DocumentStore.
func (s *Store) Collection(name string) registry.Collection {
	return &collection{store: s, name: name}
}

// LoadState returns the checkpointed block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	value, found, err := s.get(ctx, []byte(statePrefix+name))
	if err != nil || !found {
		return 0, false, err
	}
	if len(value) != 8 {
		return 0, false, fmt.Errorf("state %s: invalid length %d", name, len(value))
	}
	return binary.BigEndian.Uint64(value), true, nil
}

// SaveState stores the checkpointed block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, block)
	return s.set(ctx, []byte(statePrefix+name), value)
}

func (s *Store) get(ctx context.Context, key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	value, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (s *Store) set(ctx context.Context, key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Set(key, value, pebble.Sync)
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) key(id string) []byte {
	return []byte(documentPrefix + c.name + "/" + id)
}

func (c *collection) InsertOne(ctx context.Context, id string, doc []byte) error {
	c.store.writeMu.Lock()
	defer c.store.writeMu.Unlock()

	key := c.key(id)
	_, found, err := c.store.get(ctx, key)
	if err != nil {
		return err
	}
	if found {
		c.store.logger.Debug("document exists", zap.String("collection", c.name), zap.String("id", id))
		return registry.ErrDuplicateKey
	}
	return c.store.set(ctx, key, doc)
}

func (c *collection) ReplaceOne(ctx context.Context, id string, doc []byte) error {
	c.store.writeMu.Lock()
	defer c.store.writeMu.Unlock()
	return c.store.set(ctx, c.key(id), doc)
}

func (c *collection) FindByID(ctx context.Context, id string) ([]byte, bool, error) {
	return c.store.get(ctx, c.key(id))
}
