package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/storefront/internal/domain/product"
)

func writeFeed(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

type recorder struct {
	mu      sync.Mutex
	batches [][]product.Product
}

func (r *recorder) Upsert(_ context.Context, products []product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, slices.Clone(products))
	return nil
}

func (r *recorder) byID() map[string]product.Product {
	out := make(map[string]product.Product)
	for _, b := range r.batches {
		for _, p := range b {
			out[p.ID] = p
		}
	}
	return out
}

func testFeeds(t *testing.T) []string {
	dir := t.TempDir()
	return []string{
		writeFeed(t, dir, "base.ndjson.gz",
			`{"id":"tee","name":"Tee","price":10,"stock":5}`,
			`{"id":"cap","name":"Cap","price":8,"stock":3}`,
			`{"id":"mug","name":"Mug","price":6,"stock":9}`,
		),
		writeFeed(t, dir, "update.ndjson.gz",
			`{"_id":"tee","name":"Tee v2","price":"12.00","sizes":{"S":1,"M":2}}`,
			`{"id":"bag","name":"Bag","price":30,"stock":1}`,
			`{"id":"","name":"broken"}`,
			``,
		),
		writeFeed(t, dir, "late.ndjson.gz",
			`{"id":"cap","name":"Cap v3","price":9,"stock":0}`,
		),
	}
}

func TestFindDuplicates(t *testing.T) {
	ctx := context.Background()
	feeds := testFeeds(t)
	opts := options{capacity: 1000, fpr: 0.001}

	filters, err := buildFilters(ctx, zap.NewNop(), feeds, opts)
	require.NoError(t, err)
	require.Len(t, filters, 3)

	dups, err := findDuplicates(ctx, zap.NewNop(), feeds, filters)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"tee": 0b011, "cap": 0b101}, dups)
	assert.Equal(t, 1, owner(dups["tee"]))
	assert.Equal(t, 2, owner(dups["cap"]))
}

func TestWriteFeeds(t *testing.T) {
	ctx := context.Background()
	feeds := testFeeds(t)
	dups := map[string]uint64{"tee": 0b011, "cap": 0b101}

	core, logs := observer.New(zapcore.WarnLevel)
	var repo recorder
	require.NoError(t, writeFeeds(ctx, zap.New(core), &repo, feeds, dups, 2))

	got := repo.byID()
	assert.Len(t, got, 4)
	assert.Equal(t, "Tee v2", got["tee"].Name)
	assert.True(t, got["tee"].HasSizes)
	assert.Equal(t, "Cap v3", got["cap"].Name)
	assert.Equal(t, "Mug", got["mug"].Name)
	assert.Equal(t, "Bag", got["bag"].Name)

	for _, b := range repo.batches {
		assert.LessOrEqual(t, len(b), 2)
	}
	assert.Equal(t, 1, logs.FilterMessage("Skipping invalid record").Len())
}

func TestScanFeed_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := scanFeed(ctx, zap.NewNop(), filepath.Join(dir, "missing.gz"), nil)
	assert.Error(t, err)

	plain := filepath.Join(dir, "plain.ndjson")
	require.NoError(t, os.WriteFile(plain, []byte(`{"id":"a"}`), 0o600))
	_, err = scanFeed(ctx, zap.NewNop(), plain, nil)
	assert.ErrorContains(t, err, "gzip reader")

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	feed := writeFeed(t, dir, "one.gz", `{"id":"a","name":"A","price":1}`)
	_, err = scanFeed(canceled, zap.NewNop(), feed, func(product.Product) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
