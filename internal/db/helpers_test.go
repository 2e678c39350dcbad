package db

import (
	"slices"
	"testing"

	"github.com/tordrt/dbdiff/internal/schema"
)

// findTable is a helper function to find a table by name in the schema
func findTable(s *schema.Schema, tableName string) *schema.Table {
	for i := range s.Tables {
		if s.Tables[i].Name == tableName {
			return &s.Tables[i]
		}
	}
	return nil
}

// verifyTablesExist checks that exactly the expected tables are present
func verifyTablesExist(t *testing.T, s *schema.Schema, expectedTables []string) {
	t.Helper()

	if len(s.Tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d", len(expectedTables), len(s.Tables))
	}

	for _, tableName := range expectedTables {
		if findTable(s, tableName) == nil {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table in this order
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	var names []string
	for _, col := range table.Columns {
		names = append(names, col.Name)
	}
	if !slices.Equal(names, expectedColumns) {
		t.Errorf("Expected columns %v in %s table, got %v", expectedColumns, table.Name, names)
	}
	for i, col := range table.Columns {
		if col.Position != i+1 {
			t.Errorf("Column %s.%s has position %d, want %d", table.Name, col.Name, col.Position, i+1)
		}
	}
}

// findConstraint returns the first constraint of kind covering columns
func findConstraint(table *schema.Table, kind schema.ConstraintKind, columns []string) *schema.Constraint {
	for i := range table.Constraints {
		c := &table.Constraints[i]
		if c.Kind == kind && slices.Equal(c.Columns, columns) {
			return c
		}
	}
	return nil
}

// verifyPrimaryKey checks that a table has the expected primary key
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	if findConstraint(table, schema.PrimaryKey, expectedPK) == nil {
		t.Errorf("Expected primary key %v on %s, got constraints %+v", expectedPK, table.Name, table.Constraints)
	}
}

// verifyUniqueConstraint checks that a column has a unique constraint
func verifyUniqueConstraint(t *testing.T, table *schema.Table, columnName string) {
	t.Helper()

	if findConstraint(table, schema.Unique, []string{columnName}) == nil {
		t.Errorf("Expected %s.%s to have unique constraint", table.Name, columnName)
	}
}

// verifyForeignKey checks that a foreign key relationship exists
func verifyForeignKey(t *testing.T, table *schema.Table, sourceColumn, targetTable string) {
	t.Helper()

	c := findConstraint(table, schema.ForeignKey, []string{sourceColumn})
	if c == nil {
		t.Errorf("Expected foreign key from %s.%s not found", table.Name, sourceColumn)
		return
	}
	if c.Reference == nil || c.Reference.Table != targetTable {
		t.Errorf("Expected foreign key from %s.%s to %s, got %+v", table.Name, sourceColumn, targetTable, c.Reference)
	}
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, table *schema.Table, indexName string, expectedColumns []string) {
	t.Helper()

	for _, idx := range table.Indexes {
		if idx.Name == indexName {
			if !slices.Equal(idx.Columns, expectedColumns) {
				t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
			}
			return
		}
	}

	t.Errorf("Expected index %s on %s table not found", indexName, table.Name)
}

// mustColumn returns the named column or fails the test
func mustColumn(t *testing.T, table *schema.Table, name string) *schema.Column {
	t.Helper()

	col, ok := table.Column(name)
	if !ok {
		t.Fatalf("Column %s not found in %s table", name, table.Name)
	}
	return col
}
