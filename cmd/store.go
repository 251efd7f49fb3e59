package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/country-catalog/internal/refresh"
	"github.com/sells-group/country-catalog/internal/source"
	"github.com/sells-group/country-catalog/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "country-catalog.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEngine(st store.Store) *refresh.Engine {
	client := source.New(source.Options{
		CountriesURL: cfg.Sources.CountriesURL,
		RatesURL:     cfg.Sources.RatesURL,
		UserAgent:    cfg.Sources.UserAgent,
		Timeout:      time.Duration(cfg.Sources.TimeoutSecs) * time.Second,
	})
	return refresh.NewEngine(client, st)
}
