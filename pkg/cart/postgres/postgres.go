// Package postgres stores the cart in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rocketshoes/pkg/cart"
)

const schema = "CREATE TABLE IF NOT EXISTS cart_storage (key TEXT PRIMARY KEY, value TEXT NOT NULL)"

// Storage persists the cart in a PostgreSQL key/value table.
type Storage struct {
	db *sql.DB
}

// New creates a PostgreSQL storage. Call Migrate before first use.
func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Migrate creates the cart_storage table.
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Get retrieves the value stored under key.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cart_storage WHERE key=$1", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cart.ErrNoValue
	}
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

// Set replaces the value stored under key.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cart_storage (key,value) VALUES ($1,$2) ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value",
		key, string(value))
	return err
}
