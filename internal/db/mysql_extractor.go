package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/dbdiff/internal/schema"
)

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
	opts       Options
}

// NewMySQLExtractor creates a new MySQL schema extractor for one database
func NewMySQLExtractor(client *MySQLClient, schemaName string, opts Options) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
		opts:       opts,
	}
}

// ExtractSchema extracts the tables of the configured database
func (e *MySQLExtractor) ExtractSchema(ctx context.Context) (*schema.Schema, error) {
	return extract(ctx, e, e.opts)
}

// Close closes the database connection
func (e *MySQLExtractor) Close() error {
	return e.client.Close()
}

// listTables returns the base tables of the database
func (e *MySQLExtractor) listTables(ctx context.Context) ([]schema.TableKey, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
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
		keys = append(keys, schema.TableKey{Namespace: e.schemaName, Name: tableName})
	}

	return keys, rows.Err()
}

// extractTable extracts all information for a single table
func (e *MySQLExtractor) extractTable(ctx context.Context, key schema.TableKey) (*schema.Table, error) {
	table := &schema.Table{Namespace: key.Namespace, Name: key.Name}

	// Extract columns
	columns, err := e.extractColumns(ctx, key.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	// Extract indexes
	indexes, err := e.extractIndexes(ctx, key.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	// Extract constraints
	constraints, err := e.extractConstraints(ctx, key.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract constraints: %w", err)
	}
	table.Constraints = constraints

	return table, nil
}

// extractColumns extracts column information for a table
func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.ordinal_position
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		var defaultVal sql.NullString

		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &defaultVal, &col.Position); err != nil {
			return nil, err
		}

		col.Nullable = (nullable == "YES")
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// extractIndexes extracts index information, including the PRIMARY index
func (e *MySQLExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var isUnique int
		var columnNames sql.NullString

		if err := rows.Scan(&idx.Name, &isUnique, &columnNames); err != nil {
			return nil, err
		}

		idx.Unique = (isUnique == 1)
		idx.Primary = idx.Name == "PRIMARY"
		if columnNames.Valid {
			idx.Columns = strings.Split(columnNames.String, ",")
		}

		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

// extractConstraints extracts constraints with their key columns. Rows arrive
// one per key column and are folded into one constraint per name.
func (e *MySQLExtractor) extractConstraints(ctx context.Context, tableName string) ([]schema.Constraint, error) {
	query := `
		SELECT
			tc.constraint_name,
			tc.constraint_type,
			kcu.column_name,
			kcu.referenced_table_schema,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = tc.constraint_schema
			AND kcu.constraint_name = tc.constraint_name
			AND kcu.table_name = tc.table_name
		WHERE tc.table_schema = ?
			AND tc.table_name = ?
			AND tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY', 'UNIQUE', 'CHECK')
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type pending struct {
		kind       schema.ConstraintKind
		columns    []string
		refTable   string
		refColumns []string
	}
	var order []string
	byName := make(map[string]*pending)

	for rows.Next() {
		var name, constraintType string
		var column, refSchema, refTable, refColumn sql.NullString

		if err := rows.Scan(&name, &constraintType, &column, &refSchema, &refTable, &refColumn); err != nil {
			return nil, err
		}

		p, ok := byName[name]
		if !ok {
			kind, err := schema.ParseConstraintKind(constraintType)
			if err != nil {
				return nil, err
			}
			p = &pending{kind: kind}
			byName[name] = p
			order = append(order, name)
		}

		if column.Valid {
			p.columns = append(p.columns, column.String)
		}
		if refTable.Valid {
			p.refTable = refTable.String
			if refSchema.Valid && refSchema.String != e.schemaName {
				p.refTable = refSchema.String + "." + refTable.String
			}
		}
		if refColumn.Valid {
			p.refColumns = append(p.refColumns, refColumn.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	constraints := make([]schema.Constraint, 0, len(order))
	for _, name := range order {
		p := byName[name]
		if p.kind == schema.ForeignKey {
			if p.refTable == "" {
				return nil, fmt.Errorf("foreign key %s has no referenced table", name)
			}
			constraints = append(constraints, schema.NewForeignKey(name, p.columns, p.refTable, p.refColumns))
			continue
		}
		c, err := schema.NewConstraint(name, p.kind, p.columns)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
	}

	return constraints, nil
}
