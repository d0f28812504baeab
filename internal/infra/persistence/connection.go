package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/server24/provisiond/internal/infra/config"
)

// NewConnectionPool creates a database connection pool from the
// configured URL and pool limits.
func NewConnectionPool(ctx context.Context, dbConfig config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbConfig.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}

	if conn := dbConfig.Connection; conn.MaxConns > 0 {
		poolConfig.MaxConns = conn.MaxConns
		poolConfig.MinConns = conn.MinConns
		poolConfig.MaxConnLifetime = conn.MaxConnLifetime
		poolConfig.MaxConnIdleTime = conn.MaxConnIdleTime
		poolConfig.HealthCheckPeriod = conn.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
