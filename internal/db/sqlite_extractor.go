package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/tordrt/dbdiff/internal/schema"
)

// SQLiteNamespace is the namespace of every table in a SQLite database
const SQLiteNamespace = "main"

// SQLiteExtractor handles schema extraction from SQLite. SQLite does not
// expose CHECK constraints through its pragmas, so none are reported.
type SQLiteExtractor struct {
	client *SQLiteClient
	opts   Options
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient, opts Options) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
		opts:   opts,
	}
}

// ExtractSchema extracts every user table in the database
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context) (*schema.Schema, error) {
	return extract(ctx, e, e.opts)
}

// Close closes the database connection
func (e *SQLiteExtractor) Close() error {
	return e.client.Close()
}

// listTables returns user tables, skipping SQLite's internal ones
func (e *SQLiteExtractor) listTables(ctx context.Context) ([]schema.TableKey, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []schema.TableKey
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		keys = append(keys, schema.TableKey{Namespace: SQLiteNamespace, Name: tableName})
	}

	return keys, rows.Err()
}

// extractTable extracts all information for a single table
func (e *SQLiteExtractor) extractTable(ctx context.Context, key schema.TableKey) (*schema.Table, error) {
	table := &schema.Table{Namespace: key.Namespace, Name: key.Name}

	// Extract columns along with primary key membership
	columns, pkColumns, err := e.extractColumns(ctx, key.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	indexes, uniques, err := e.extractIndexes(ctx, key.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	if len(pkColumns) > 0 {
		pk, err := schema.NewConstraint(key.Name+"_pkey", schema.PrimaryKey, pkColumns)
		if err != nil {
			return nil, err
		}
		table.Constraints = append(table.Constraints, pk)
	}
	table.Constraints = append(table.Constraints, uniques...)

	foreignKeys, err := e.extractForeignKeys(ctx, key.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	table.Constraints = append(table.Constraints, foreignKeys...)

	return table, nil
}

// extractColumns extracts column information and returns the primary key
// columns in key order
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, []string, error) {
	query := `SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type pkPart struct {
		seq  int
		name string
	}
	var columns []schema.Column
	var pkParts []pkPart

	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var defaultVal sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultVal, &pk); err != nil {
			return nil, nil, err
		}

		col := schema.Column{
			Name:     name,
			DataType: strings.ToLower(dataType),
			Nullable: notNull == 0 && pk == 0,
			Position: cid + 1,
		}
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		columns = append(columns, col)

		if pk > 0 {
			pkParts = append(pkParts, pkPart{seq: pk, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	sort.Slice(pkParts, func(i, j int) bool { return pkParts[i].seq < pkParts[j].seq })
	pkColumns := make([]string, 0, len(pkParts))
	for _, p := range pkParts {
		pkColumns = append(pkColumns, p.name)
	}

	return columns, pkColumns, nil
}

// extractIndexes returns explicitly created indexes plus the UNIQUE
// constraints SQLite backs with automatic indexes. Automatic indexes are
// named sqlite_autoindex_<table>_<n>, so unique constraints are renamed
// after their columns instead.
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, []schema.Constraint, error) {
	query := `SELECT name, "unique", origin FROM pragma_index_list(?) ORDER BY name`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, nil, err
	}

	type indexEntry struct {
		name   string
		unique bool
		origin string
	}
	var entries []indexEntry
	for rows.Next() {
		var entry indexEntry
		var unique int
		if err := rows.Scan(&entry.name, &unique, &entry.origin); err != nil {
			rows.Close()
			return nil, nil, err
		}
		entry.unique = unique == 1
		entries = append(entries, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var indexes []schema.Index
	var uniques []schema.Constraint
	for _, entry := range entries {
		columns, err := e.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, nil, err
		}

		switch entry.origin {
		case "c":
			indexes = append(indexes, schema.Index{Name: entry.name, Columns: columns, Unique: entry.unique})
		case "u":
			name := tableName + "_" + strings.Join(columns, "_") + "_key"
			c, err := schema.NewConstraint(name, schema.Unique, columns)
			if err != nil {
				return nil, nil, err
			}
			uniques = append(uniques, c)
		}
		// origin "pk" duplicates the primary key constraint
	}

	return indexes, uniques, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, `SELECT name FROM pragma_index_info(?) ORDER BY seqno`, indexName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		// Expression index parts have no column name
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name.Valid {
			columns = append(columns, name.String)
		} else {
			columns = append(columns, "<expression>")
		}
	}

	return columns, rows.Err()
}

// extractForeignKeys groups pragma_foreign_key_list rows by constraint id
func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]schema.Constraint, error) {
	query := `SELECT id, seq, "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type pending struct {
		refTable   string
		columns    []string
		refColumns []string
	}
	var order []int
	byID := make(map[int]*pending)

	for rows.Next() {
		var id, seq int
		var refTable, from string
		// "to" is NULL when the reference targets the primary key implicitly
		var to sql.NullString

		if err := rows.Scan(&id, &seq, &refTable, &from, &to); err != nil {
			return nil, err
		}

		p, ok := byID[id]
		if !ok {
			p = &pending{refTable: refTable}
			byID[id] = p
			order = append(order, id)
		}
		p.columns = append(p.columns, from)
		if to.Valid {
			p.refColumns = append(p.refColumns, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	constraints := make([]schema.Constraint, 0, len(order))
	for _, id := range order {
		p := byID[id]
		name := tableName + "_" + strings.Join(p.columns, "_") + "_fkey"
		constraints = append(constraints, schema.NewForeignKey(name, p.columns, p.refTable, p.refColumns))
	}

	return constraints, nil
}
