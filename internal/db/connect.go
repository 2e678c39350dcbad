package db

import (
	"context"
	"fmt"
	"strings"
)

// Engine identifies a supported database
type Engine string

const (
	Postgres Engine = "postgres"
	MySQL    Engine = "mysql"
	SQLite   Engine = "sqlite"
)

// ParseURL detects the database engine and returns the driver connection string
func ParseURL(url string) (Engine, string, error) {
	if url == "" {
		return "", "", fmt.Errorf("database URL is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return Postgres, url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// Strip mysql:// prefix for the Go MySQL driver
		return MySQL, strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		// Strip sqlite:// prefix to get file path
		return SQLite, strings.TrimPrefix(url, "sqlite://"), nil
	}

	return "", "", fmt.Errorf("invalid database URL scheme (must start with postgres://, mysql://, or sqlite://)")
}

// Connect opens the database behind url and returns an extractor for it.
// The caller owns the extractor and must Close it.
func Connect(ctx context.Context, url string, opts Options) (Extractor, error) {
	engine, connStr, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.logger().Debugw("connecting", "engine", engine)

	switch engine {
	case Postgres:
		client, err := NewPostgresClient(ctx, connStr, opts.workers())
		if err != nil {
			return nil, err
		}
		return NewPostgresExtractor(client, opts), nil

	case MySQL:
		schemaName, err := ParseDatabaseName(connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to determine database name: %w", err)
		}
		client, err := NewMySQLClient(ctx, connStr, opts.workers())
		if err != nil {
			return nil, err
		}
		return NewMySQLExtractor(client, schemaName, opts), nil

	case SQLite:
		client, err := NewSQLiteClient(ctx, connStr)
		if err != nil {
			return nil, err
		}
		return NewSQLiteExtractor(client, opts), nil
	}

	return nil, fmt.Errorf("unsupported database type: %s", engine)
}
