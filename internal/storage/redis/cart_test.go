package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCartStore(t *testing.T) {
	s, err := NewCartStore("redis://:secret@localhost:6380/2", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	opts := s.rdb.Options()
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, time.Hour, s.ttl)

	_, err = NewCartStore("http://localhost", time.Hour)
	assert.Error(t, err)
}
