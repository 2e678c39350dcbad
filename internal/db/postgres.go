package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresClient manages a bounded pool of PostgreSQL connections
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient creates a new PostgreSQL client. maxConns caps the pool
// so concurrent extraction cannot overwhelm the server.
func NewPostgresClient(ctx context.Context, connString string, maxConns int) (*PostgresClient, error) {
	target := RedactURL(connString)

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, &ConnectionError{Engine: "PostgreSQL", Target: target, Err: fmt.Errorf("invalid connection string: %w", err)}
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &ConnectionError{Engine: "PostgreSQL", Target: target, Err: err}
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &ConnectionError{Engine: "PostgreSQL", Target: target, Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	return &PostgresClient{pool: pool}, nil
}

// Close closes every pooled connection
func (c *PostgresClient) Close() error {
	c.pool.Close()
	return nil
}

// GetPool returns the underlying connection pool
func (c *PostgresClient) GetPool() *pgxpool.Pool {
	return c.pool
}
