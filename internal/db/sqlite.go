package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient opens the database file at path read-only. A missing file
// is reported as a connection failure instead of being created.
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	dsn := readOnlyDSN(path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &ConnectionError{Engine: "SQLite", Target: path, Err: fmt.Errorf("failed to open database: %w", err)}
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Engine: "SQLite", Target: path, Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	return &SQLiteClient{db: db}, nil
}

// Close closes the database connection
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *SQLiteClient) GetDB() *sql.DB {
	return c.db
}

func readOnlyDSN(path string) string {
	if strings.Contains(path, "mode=") {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "mode=ro&_busy_timeout=5000"
}
