// Package store loads the two source tables from a SQL database, read-only.
// PostgreSQL goes through a pgx pool; MySQL and MariaDB through database/sql.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	mu   sync.Mutex
	pool *pgxpool.Pool
)

// InitDB opens the process-wide PostgreSQL pool. Sessions are read-only. Calling it
// again while a pool is open is a no-op; a failed attempt leaves no pool behind.
func InitDB(ctx context.Context, dbURL string) error {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		return nil
	}
	if dbURL == "" {
		return fmt.Errorf("database URL not set")
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open postgres pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	pool = p
	return nil
}

// GetPool returns the open pool, or nil before InitDB.
func GetPool() *pgxpool.Pool {
	mu.Lock()
	defer mu.Unlock()
	return pool
}

// Close releases the pool; InitDB may be called again afterwards.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		pool.Close()
		pool = nil
	}
}
