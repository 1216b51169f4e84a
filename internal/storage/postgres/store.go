package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"txsemantics/internal/registry"
)

const uniqueViolation = "23505"

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE TABLE IF NOT EXISTS indexer_state (
	name TEXT PRIMARY KEY,
	last_processed_block BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for the semantics registry and
// ingestion state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Collection implements registry.DocumentStore.
func (s *Store) Collection(name string) registry.Collection {
	return &collection{pool: s.pool, name: name}
}

// LoadState returns last_processed_block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts last_processed_block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}

const upsertDocument = `
	INSERT INTO registry_documents (collection, id, body, created_at, updated_at)
	VALUES ($1, $2, $3, now(), now())
	ON CONFLICT (collection, id)
	DO UPDATE SET
		body = EXCLUDED.body,
		updated_at = now()
`

type collection struct {
	pool *pgxpool.Pool
	name string
}

func (c *collection) InsertOne(ctx context.Context, id string, doc []byte) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO registry_documents (collection, id, body, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, c.name, id, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return registry.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (c *collection) ReplaceOne(ctx context.Context, id string, doc []byte) error {
	_, err := c.pool.Exec(ctx, upsertDocument, c.name, id, doc)
	return err
}

func (c *collection) FindByID(ctx context.Context, id string) ([]byte, bool, error) {
	var doc []byte
	row := c.pool.QueryRow(ctx, `SELECT body FROM registry_documents WHERE collection=$1 AND id=$2`, c.name, id)
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc, true, nil
}
