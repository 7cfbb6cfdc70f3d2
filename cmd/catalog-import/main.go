// Command catalog-import bulk-loads products from gzipped NDJSON feeds.
//
// Feeds are given in priority order: when the same product ID appears in
// several feeds, the record from the last of them wins. Duplicates are found
// without holding every ID in memory: pass 1 builds one bloom filter per
// feed, pass 2 marks IDs that hit another feed's filter, and only IDs marked
// by two or more feeds are real duplicates.
package main

import (
	"bufio"
	"context"
	"flag"
	"math/bits"
	"os"
	"os/signal"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const (
	maxFeeds      = 64
	progressEvery = 100_000
	maxLineBytes  = 1 << 20
)

type options struct {
	capacity  uint
	fpr       float64
	batchSize int
	dryRun    bool
}

// upserter is satisfied by *postgres.ProductRepository.
type upserter interface {
	Upsert(ctx context.Context, products []product.Product) error
}

func main() {
	var (
		databaseURL string
		opts        options
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&opts.capacity, "expected-products", 1_000_000, "expected products per feed, sizes the bloom filters")
	flag.Float64Var(&opts.fpr, "false-positive-rate", 0.001, "bloom filter false positive rate")
	flag.IntVar(&opts.batchSize, "batch-size", 500, "products per upsert transaction")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "validate feeds and report duplicates without writing")
	flag.Parse()

	lg, _ := zap.NewProduction()
	defer func() { _ = lg.Sync() }()

	feeds := flag.Args()
	if len(feeds) == 0 {
		lg.Fatal("Usage: catalog-import [flags] feed1.ndjson.gz [feed2.ndjson.gz ...]")
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !opts.dryRun {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, feeds, opts); err != nil {
		lg.Fatal("Catalog import failed", zap.Error(err))
	}
	lg.Info("Catalog import completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, feeds []string, opts options) error {
	if len(feeds) > maxFeeds {
		return errors.Errorf("at most %d feeds supported, got %d", maxFeeds, len(feeds))
	}
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	lg.Info("Pass 1: building bloom filters", zap.Int("feeds", len(feeds)))
	filters, err := buildFilters(ctx, lg, feeds, opts)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	lg.Info("Pass 2: finding duplicate products")
	dups, err := findDuplicates(ctx, lg, feeds, filters)
	if err != nil {
		return errors.Wrap(err, "find duplicates")
	}
	lg.Info("Duplicates found", zap.Int("count", len(dups)))

	if opts.dryRun {
		for id, mask := range dups {
			lg.Info("Duplicate product", zap.String("id", id), zap.Int("feeds", bits.OnesCount64(mask)))
		}
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	lg.Info("Pass 3: writing products")
	return writeFeeds(ctx, lg, postgres.NewProductRepository(pool), feeds, dups, opts.batchSize)
}

// buildFilters creates one bloom filter of product IDs per feed,
// concurrently.
func buildFilters(ctx context.Context, lg *zap.Logger, feeds []string, opts options) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(opts.capacity, opts.fpr)
			n, err := scanFeed(ctx, lg, path, func(p product.Product) error {
				filter.AddString(p.ID)
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "feed %d", i+1)
			}
			lg.Info("Pass 1 complete", zap.Int("feed", i+1), zap.Int("products", n))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findDuplicates re-reads every feed and returns, for each product ID
// present in two or more feeds, the bitmask of those feeds. A bloom false
// positive marks only the feed that tested, so it never reaches two bits.
func findDuplicates(ctx context.Context, lg *zap.Logger, feeds []string, filters []*bloom.BloomFilter) (map[string]uint64, error) {
	candidates := make([]map[string]uint64, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			found := make(map[string]uint64)
			bit := uint64(1) << uint(i)
			if _, err := scanFeed(ctx, lg, path, func(p product.Product) error {
				for j, f := range filters {
					if j != i && f.TestString(p.ID) {
						found[p.ID] |= bit
						break
					}
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "feed %d", i+1)
			}
			lg.Info("Pass 2 complete", zap.Int("feed", i+1), zap.Int("candidates", len(found)))
			candidates[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint64)
	for _, found := range candidates {
		for id, mask := range found {
			merged[id] |= mask
		}
	}
	for id, mask := range merged {
		if bits.OnesCount64(mask) < 2 {
			delete(merged, id)
		}
	}
	return merged, nil
}

// owner returns the index of the feed whose record wins for a duplicate.
func owner(mask uint64) int {
	return bits.Len64(mask) - 1
}

// writeFeeds upserts every feed concurrently in batches, skipping
// duplicates owned by a later feed.
func writeFeeds(ctx context.Context, lg *zap.Logger, repo upserter, feeds []string, dups map[string]uint64, batchSize int) error {
	if batchSize < 1 {
		batchSize = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			var (
				batch   = make([]product.Product, 0, batchSize)
				written int
				skipped int
			)
			flush := func() error {
				if len(batch) == 0 {
					return nil
				}
				if err := repo.Upsert(ctx, batch); err != nil {
					return err
				}
				written += len(batch)
				batch = batch[:0]
				return nil
			}
			if _, err := scanFeed(ctx, lg, path, func(p product.Product) error {
				if mask, ok := dups[p.ID]; ok && owner(mask) != i {
					skipped++
					return nil
				}
				batch = append(batch, p)
				if len(batch) == batchSize {
					return flush()
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "feed %d", i+1)
			}
			if err := flush(); err != nil {
				return errors.Wrapf(err, "feed %d", i+1)
			}
			lg.Info("Pass 3 complete",
				zap.Int("feed", i+1),
				zap.Int("written", written),
				zap.Int("skipped_duplicates", skipped),
			)
			return nil
		})
	}
	return g.Wait()
}

// scanFeed decodes every line of a gzipped NDJSON feed and calls fn for each
// valid product. Invalid records are logged and skipped. It returns the
// number of valid products.
func scanFeed(ctx context.Context, lg *zap.Logger, path string, fn func(p product.Product) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var line, valid int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return valid, err
		}
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		p, err := product.Decode(data)
		if err != nil {
			lg.Warn("Skipping invalid record",
				zap.String("feed", path),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		if err := fn(p); err != nil {
			return valid, err
		}
		valid++
		if valid%progressEvery == 0 {
			lg.Info("Progress", zap.String("feed", path), zap.Int("products", valid))
		}
	}
	if err := scanner.Err(); err != nil {
		return valid, errors.Wrapf(err, "scan %s", path)
	}
	return valid, nil
}
