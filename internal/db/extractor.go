// Package db extracts schema models from live PostgreSQL, MySQL and SQLite
// databases.
package db

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tordrt/dbdiff/internal/schema"
)

// DefaultWorkers bounds concurrent per-table extraction
const DefaultWorkers = 4

// Extractor produces a schema from a live database
type Extractor interface {
	ExtractSchema(ctx context.Context) (*schema.Schema, error)
	Close() error
}

// Options configures schema extraction
type Options struct {
	// Namespaces limits extraction to these schemas (PostgreSQL) or
	// database (MySQL). Empty means every user namespace.
	Namespaces []string

	// Tables limits extraction to these table names. Empty means all.
	Tables []string

	// ExcludeTables skips these table names, e.g. migration bookkeeping.
	ExcludeTables []string

	// Workers bounds concurrent table queries. Defaults to DefaultWorkers.
	Workers int

	// Timeout bounds the whole extraction. Zero means no timeout.
	Timeout time.Duration

	Logger *zap.SugaredLogger
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return DefaultWorkers
	}
	return o.Workers
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return o.Logger
}

// catalog is the engine-specific part of an extractor
type catalog interface {
	listTables(ctx context.Context) ([]schema.TableKey, error)
	extractTable(ctx context.Context, key schema.TableKey) (*schema.Table, error)
}

// extract lists the tables of c and extracts each of them with a bounded
// number of concurrent workers. Any table failure aborts the extraction, so
// callers never see a partial schema.
func extract(ctx context.Context, c catalog, opts Options) (*schema.Schema, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	log := opts.logger()
	start := time.Now()

	keys, err := c.listTables(ctx)
	if err != nil {
		return nil, &QueryError{Stage: "list tables", Err: err}
	}
	keys = filterTables(keys, opts.Tables, opts.ExcludeTables)
	log.Debugw("tables listed", "count", len(keys))

	tables := make([]schema.Table, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for i, key := range keys {
		g.Go(func() error {
			table, err := c.extractTable(gctx, key)
			if err != nil {
				return &QueryError{Stage: "extract table", Table: key.String(), Err: err}
			}
			tables[i] = *table
			log.Debugw("table extracted", "table", key.String(),
				"columns", len(table.Columns), "indexes", len(table.Indexes), "constraints", len(table.Constraints))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &schema.Schema{CapturedAt: time.Now().UTC(), Tables: tables}
	s.Sort()
	if err := s.Validate(); err != nil {
		return nil, &QueryError{Stage: "validate extracted schema", Err: err}
	}

	log.Debugw("schema extracted", "tables", len(s.Tables), "elapsed", time.Since(start))
	return s, nil
}

// filterTables applies the include list first, then the exclude list
func filterTables(keys []schema.TableKey, include, exclude []string) []schema.TableKey {
	if len(include) == 0 && len(exclude) == 0 {
		return keys
	}

	includeSet := make(map[string]bool, len(include))
	for _, name := range include {
		includeSet[name] = true
	}
	excludeSet := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excludeSet[name] = true
	}

	filtered := make([]schema.TableKey, 0, len(keys))
	for _, key := range keys {
		if len(includeSet) > 0 && !includeSet[key.Name] && !includeSet[key.String()] {
			continue
		}
		if excludeSet[key.Name] || excludeSet[key.String()] {
			continue
		}
		filtered = append(filtered, key)
	}
	return filtered
}
