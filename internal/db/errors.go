package db

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrConnection classifies failures to reach the database
	ErrConnection = errors.New("connection failure")

	// ErrQuery classifies failing or malformed catalog queries
	ErrQuery = errors.New("query failure")
)

// ConnectionError is returned when the database cannot be reached
type ConnectionError struct {
	Engine string
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s: %v", e.Engine, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConnection) match
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// QueryError is returned when a catalog query fails
type QueryError struct {
	Stage string
	Table string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("failed to %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("failed to %s for table %s: %v", e.Stage, e.Table, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrQuery) match
func (e *QueryError) Is(target error) bool { return target == ErrQuery }

// RedactURL hides the password of a URL-style connection string
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// RedactMySQLDSN hides the password of a go-sql-driver/mysql DSN
func RedactMySQLDSN(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		if at := strings.LastIndex(dsn, "@"); at >= 0 {
			return "xxxxx" + dsn[at:]
		}
		return dsn
	}
	if cfg.Passwd != "" {
		cfg.Passwd = "xxxxx"
	}
	return cfg.FormatDSN()
}
