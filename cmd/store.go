package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/leafgrid/catalog-sync/internal/queue"
)

func initStore(ctx context.Context) (queue.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "catalog-sync.db"
		}
		return queue.NewSQLite(dsn)
	case "postgres":
		return queue.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
