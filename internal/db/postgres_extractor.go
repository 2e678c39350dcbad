package db

import (
	"context"
	"fmt"

	"github.com/tordrt/dbdiff/internal/schema"
)

const varcharType = "varchar"

// PostgresExtractor handles schema extraction from PostgreSQL
type PostgresExtractor struct {
	client *PostgresClient
	opts   Options
}

// NewPostgresExtractor creates a new PostgreSQL schema extractor
func NewPostgresExtractor(client *PostgresClient, opts Options) *PostgresExtractor {
	return &PostgresExtractor{
		client: client,
		opts:   opts,
	}
}

// ExtractSchema extracts every user table, or the namespaces named in the
// options
func (e *PostgresExtractor) ExtractSchema(ctx context.Context) (*schema.Schema, error) {
	return extract(ctx, e, e.opts)
}

// Close releases the connection pool
func (e *PostgresExtractor) Close() error {
	return e.client.Close()
}

// listTables returns the base tables outside the system namespaces
func (e *PostgresExtractor) listTables(ctx context.Context) ([]schema.TableKey, error) {
	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
			AND table_schema NOT IN ('pg_catalog', 'information_schema')
			AND table_schema NOT LIKE 'pg_toast%'
			AND (cardinality($1::text[]) = 0 OR table_schema = ANY($1::text[]))
		ORDER BY table_schema, table_name
	`

	namespaces := e.opts.Namespaces
	if namespaces == nil {
		namespaces = []string{}
	}

	rows, err := e.client.GetPool().Query(ctx, query, namespaces)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []schema.TableKey
	for rows.Next() {
		var key schema.TableKey
		if err := rows.Scan(&key.Namespace, &key.Name); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// extractTable extracts all information for a single table
func (e *PostgresExtractor) extractTable(ctx context.Context, key schema.TableKey) (*schema.Table, error) {
	table := &schema.Table{Namespace: key.Namespace, Name: key.Name}

	// Extract columns
	columns, err := e.extractColumns(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	// Extract indexes
	indexes, err := e.extractIndexes(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	// Extract constraints
	constraints, err := e.extractConstraints(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to extract constraints: %w", err)
	}
	table.Constraints = constraints

	return table, nil
}

// normalizePostgresType maps verbose SQL type names to commonly-used PostgreSQL equivalents
func normalizePostgresType(dataType, udtName string, charMaxLength *int) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return varcharType
	case "character":
		if charMaxLength != nil {
			return fmt.Sprintf("char(%d)", *charMaxLength)
		}
		return "char"
	case "ARRAY":
		// udt_name has underscore prefix for arrays (e.g., "_text" for text[], "_int4" for integer[])
		if len(udtName) > 0 && udtName[0] == '_' {
			elementType := normalizeUdtName(udtName[1:])
			return fmt.Sprintf("%s[]", elementType)
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

// normalizeUdtName converts PostgreSQL internal type names to more readable forms
func normalizeUdtName(udtName string) string {
	switch udtName {
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	default:
		return udtName
	}
}

// extractColumns extracts column information for a table
func (e *PostgresExtractor) extractColumns(ctx context.Context, key schema.TableKey) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			c.udt_name,
			c.character_maximum_length::int,
			c.ordinal_position::int
		FROM information_schema.columns c
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetPool().Query(ctx, query, key.Namespace, key.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		var dataType string
		var udtName string
		var charMaxLength *int

		if err := rows.Scan(&col.Name, &dataType, &nullable, &col.Default, &udtName, &charMaxLength, &col.Position); err != nil {
			return nil, err
		}

		col.Nullable = (nullable == "YES")
		col.DataType = normalizePostgresType(dataType, udtName, charMaxLength)

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// extractIndexes extracts index information, including the primary key index.
// Expression key parts are reported by their definition, e.g. "lower(email)".
func (e *PostgresExtractor) extractIndexes(ctx context.Context, key schema.TableKey) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			ix.indisprimary AS is_primary,
			array_agg(
				COALESCE(a.attname::text, pg_get_indexdef(ix.indexrelid, k.n + 1, true))
				ORDER BY k.n
			) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL generate_subscripts(ix.indkey::int2[], 1) AS k(n)
		LEFT JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = (ix.indkey::int2[])[k.n]
		WHERE n.nspname = $1
			AND t.relname = $2
		GROUP BY i.relname, ix.indisunique, ix.indisprimary
		ORDER BY i.relname
	`

	rows, err := e.client.GetPool().Query(ctx, query, key.Namespace, key.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		if err := rows.Scan(&idx.Name, &idx.Unique, &idx.Primary, &idx.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

// extractConstraints extracts primary key, foreign key, unique and check constraints
func (e *PostgresExtractor) extractConstraints(ctx context.Context, key schema.TableKey) ([]schema.Constraint, error) {
	query := `
		SELECT
			con.conname,
			con.contype::text,
			ARRAY(
				SELECT att.attname::text
				FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.attnum
				ORDER BY k.ord
			) AS columns,
			fn.nspname,
			fc.relname,
			ARRAY(
				SELECT att.attname::text
				FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute att ON att.attrelid = con.confrelid AND att.attnum = k.attnum
				ORDER BY k.ord
			) AS foreign_columns
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_class fc ON fc.oid = con.confrelid
		LEFT JOIN pg_namespace fn ON fn.oid = fc.relnamespace
		WHERE n.nspname = $1
			AND c.relname = $2
			AND con.contype IN ('p', 'f', 'u', 'c')
		ORDER BY con.conname
	`

	rows, err := e.client.GetPool().Query(ctx, query, key.Namespace, key.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var constraints []schema.Constraint
	for rows.Next() {
		var name, code string
		var columns, foreignColumns []string
		var foreignNamespace, foreignTable *string

		if err := rows.Scan(&name, &code, &columns, &foreignNamespace, &foreignTable, &foreignColumns); err != nil {
			return nil, err
		}

		kind, err := constraintKindFromCode(code)
		if err != nil {
			return nil, err
		}

		if kind == schema.ForeignKey {
			if foreignTable == nil {
				return nil, fmt.Errorf("foreign key %s has no referenced table", name)
			}
			ref := *foreignTable
			if foreignNamespace != nil && *foreignNamespace != key.Namespace {
				ref = *foreignNamespace + "." + ref
			}
			constraints = append(constraints, schema.NewForeignKey(name, columns, ref, foreignColumns))
			continue
		}

		c, err := schema.NewConstraint(name, kind, columns)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
	}

	return constraints, rows.Err()
}

// constraintKindFromCode maps pg_constraint.contype codes
func constraintKindFromCode(code string) (schema.ConstraintKind, error) {
	switch code {
	case "p":
		return schema.PrimaryKey, nil
	case "f":
		return schema.ForeignKey, nil
	case "u":
		return schema.Unique, nil
	case "c":
		return schema.Check, nil
	}
	return "", fmt.Errorf("unknown constraint code %q", code)
}
