// Package sqlite keeps session-local cart snapshots in an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xenking/storefront/internal/domain/cart"
)

const schema = `CREATE TABLE IF NOT EXISTS carts (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store on SQLite.
type CartStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway store.
func Open(ctx context.Context, path string) (*CartStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// In-memory databases exist per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create carts table")
	}
	return &CartStore{db: db, now: time.Now}, nil
}

// Load returns the snapshot saved under key, or nil if there is none.
func (s *CartStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM carts WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "load cart %q", key)
	}
	return data, nil
}

// Save replaces the snapshot under key.
func (s *CartStore) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO carts (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, s.now().UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "save cart %q", key)
	}
	return nil
}

// Keys lists stored cart keys, most recently saved first.
func (s *CartStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, `SELECT key FROM carts ORDER BY updated_at DESC, key`); err != nil {
		return nil, errors.Wrap(err, "list carts")
	}
	return keys, nil
}

// Close closes the database.
func (s *CartStore) Close() error {
	return s.db.Close()
}
