package postgres

import (
	"aichat-relay/internal/store"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.KV
var _ store.KV = (*PostgresStore)(nil)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db    Querier
	close func()
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db, close: db.Close}
}

// Open creates a pool for databaseURL, pings it, and applies migrations.
func Open(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}

	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	log.Println("[PostgresStore] Database connection pool established and pinged successfully.")
	return NewPostgresStore(pool), nil
}

const getValue = `-- name: GetValue :one
SELECT value FROM kv_store WHERE key = $1;
`

// Get returns the value stored under key.
// Returns store.ErrNotFound if the key does not exist.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, getValue, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] Get: Failed to query key %s: %v", key, err)
		return "", fmt.Errorf("database error reading key %s: %w", key, err)
	}
	return value, nil
}

const setValue = `-- name: SetValue :exec
INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();
`

// Set upserts value under key.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, setValue, key, value)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.Printf("ERROR [PostgresStore] Set: PostgreSQL error writing key %s: Code=%s, Message=%s", key, pgErr.Code, pgErr.Message)
		} else {
			log.Printf("ERROR [PostgresStore] Set: Failed to write key %s: %v", key, err)
		}
		return fmt.Errorf("database error writing key %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
