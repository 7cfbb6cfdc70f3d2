// Package redis stores server-side cart snapshots in Redis.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"

	"github.com/xenking/storefront/internal/domain/cart"
)

const keyPrefix = "storefront:cart:"

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store on Redis. Snapshots expire after ttl
// without a save.
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCartStore connects to the Redis server at url
// (redis://[:password@]host:port/db).
func NewCartStore(url string, ttl time.Duration) (*CartStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return &CartStore{rdb: redis.NewClient(opts), ttl: ttl}, nil
}

// Load returns the snapshot saved under key, or nil if there is none.
func (s *CartStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "load cart %q", key)
	}
	return data, nil
}

// Save replaces the snapshot under key and refreshes its expiry.
func (s *CartStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "save cart %q", key)
	}
	return nil
}

// Ping checks the connection.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the client.
func (s *CartStore) Close() error {
	return s.rdb.Close()
}
