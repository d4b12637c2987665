package store

import (
	"context"

	"financial_underwriting/pkg/core/apperr"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a connection pool for databaseURL and checks it with a
// ping. The caller owns the pool and closes it on shutdown.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, apperr.Persistence(nil, "DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperr.Persistence(err, "parse database config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, apperr.Persistence(err, "open database pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Persistence(err, "ping database")
	}
	return pool, nil
}
