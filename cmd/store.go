package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/quotelane/exchange-cli/internal/carrier"
	"github.com/quotelane/exchange-cli/internal/store"
)

// initStore opens the configured store. Callers migrate and close it.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "exchange.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// loadCatalog resolves the carrier catalog. An explicit path wins over
// the configured one; with neither, the built-in catalog is used.
func loadCatalog(path string) (*carrier.Catalog, error) {
	if path == "" {
		path = cfg.Catalog.Path
	}
	if path == "" {
		return carrier.Default(), nil
	}
	return carrier.Load(path)
}
