package main

import (
	"context"

	"github.com/AlchemistMonkey02/Geotree-server/internal/config"
	"github.com/AlchemistMonkey02/Geotree-server/internal/resilience"
	"github.com/AlchemistMonkey02/Geotree-server/internal/store"
)

// connectStore opens the PostGIS pool, retrying while the database is
// starting up or unreachable.
func connectStore(ctx context.Context, sc config.StoreConfig) (*store.PostgresStore, error) {
	poolCfg := &store.PoolConfig{MaxConns: sc.MaxConns, MinConns: sc.MinConns}
	return resilience.DoVal(ctx, resilience.ConnectRetryConfig(sc.ConnectRetries, "postgres connect"),
		func(ctx context.Context) (*store.PostgresStore, error) {
			return store.NewPostgres(ctx, sc.DatabaseURL, poolCfg)
		})
}
