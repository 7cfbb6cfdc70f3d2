// Command shopctl is a terminal storefront session: browse the catalog,
// keep a cart, check out and follow orders.
//
// Usage:
//
//	shopctl [command] [flags] [args]
//
// Configuration comes from SHOPCTL_* environment variables, optionally
// loaded from a .env file, and shopctl.yaml.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xenking/storefront/internal/client"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/storage/sqlite"
)

type config struct {
	Server     string        `default:"http://localhost:8080" usage:"storefront API base URL"`
	UserID     string        `usage:"signed-in user id; empty shops as a guest"`
	Session    string        `default:"guest" usage:"cart key for guest sessions"`
	CartDB     string        `default:"shopctl.db" usage:"local SQLite database for the cart"`
	RemoteCart bool          `default:"false" usage:"keep a signed-in user's cart on the server"`
	Timeout    time.Duration `default:"15s" usage:"request timeout"`
	Currency   string        `default:"USD" usage:"ISO 4217 currency for display"`
	Language   string        `default:"en-US" usage:"BCP 47 language tag for display"`
	Debug      bool          `default:"false" usage:"log at debug level"`
}

func loadConfig() (*config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOPCTL",
		SkipFlags: true,
		Files:     []string{"shopctl.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	lg, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return lg
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	lg := newLogger(cfg.Debug)
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, cfg, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config, args []string) error {
	api, err := client.New(cfg.Server,
		client.WithTimeout(cfg.Timeout),
		client.WithUserID(cfg.UserID),
	)
	if err != nil {
		return err
	}
	money, err := newMoney(cfg.Currency, cfg.Language)
	if err != nil {
		return err
	}

	// Signed-in users may keep the cart on the server, keyed by their id.
	var (
		store cart.Store
		key   = cfg.Session
	)
	if cfg.UserID != "" {
		key = cfg.UserID
	}
	if cfg.RemoteCart && cfg.UserID != "" {
		store = api
	} else {
		local, err := sqlite.Open(ctx, cfg.CartDB)
		if err != nil {
			return err
		}
		defer func() { _ = local.Close() }()
		store = local
	}

	c := cart.Open(ctx, key, store)
	defer c.Close()

	sh := &shell{
		out:       os.Stdout,
		catalog:   api,
		orders:    api,
		contacts:  api,
		submitter: checkout.NewSubmitter(api),
		cart:      c,
		userID:    cfg.UserID,
		money:     money,
	}
	return sh.dispatch(ctx, args)
}
