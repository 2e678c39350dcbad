// Package diff compares two schema values and reports structural changes.
//
// Identity is structural: tables match by (namespace, name), columns, indexes
// and constraints match by name within a table. A rename therefore shows up
// as a removal plus an addition.
package diff

import (
	"sort"

	"github.com/tordrt/dbdiff/internal/schema"
)

// SchemaDiff is the result of comparing two schemas
type SchemaDiff struct {
	TablesAdded    []schema.Table `json:"tables_added"`
	TablesRemoved  []schema.Table `json:"tables_removed"`
	TablesModified []TableDiff    `json:"tables_modified"`
}

// TableDiff holds the changes within a single table
type TableDiff struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`

	ColumnsAdded    []schema.Column `json:"columns_added"`
	ColumnsRemoved  []schema.Column `json:"columns_removed"`
	ColumnsModified []ColumnDiff    `json:"columns_modified"`

	IndexesAdded    []schema.Index `json:"indexes_added,omitempty"`
	IndexesRemoved  []schema.Index `json:"indexes_removed,omitempty"`
	IndexesModified []IndexDiff    `json:"indexes_modified,omitempty"`

	ConstraintsAdded    []schema.Constraint `json:"constraints_added,omitempty"`
	ConstraintsRemoved  []schema.Constraint `json:"constraints_removed,omitempty"`
	ConstraintsModified []ConstraintDiff    `json:"constraints_modified,omitempty"`
}

// ColumnDiff holds both versions of a modified column
type ColumnDiff struct {
	Name string        `json:"name"`
	Old  schema.Column `json:"old"`
	New  schema.Column `json:"new"`
}

// IndexDiff holds both versions of a modified index
type IndexDiff struct {
	Name string       `json:"name"`
	Old  schema.Index `json:"old"`
	New  schema.Index `json:"new"`
}

// ConstraintDiff holds both versions of a modified constraint
type ConstraintDiff struct {
	Name string            `json:"name"`
	Old  schema.Constraint `json:"old"`
	New  schema.Constraint `json:"new"`
}

// ColumnChanges flags which attributes of a column changed
type ColumnChanges struct {
	Type     bool
	Nullable bool
	Default  bool
	Position bool
}

// Summary counts the changes in a SchemaDiff
type Summary struct {
	TablesAdded       int `json:"tables_added"`
	TablesRemoved     int `json:"tables_removed"`
	TablesModified    int `json:"tables_modified"`
	ColumnsAdded      int `json:"columns_added"`
	ColumnsRemoved    int `json:"columns_removed"`
	ColumnsModified   int `json:"columns_modified"`
	IndexChanges      int `json:"index_changes"`
	ConstraintChanges int `json:"constraint_changes"`
}

// Compare computes the changes needed to go from prev to next. A nil schema
// is treated as an empty one. Neither input is modified.
func Compare(prev, next *schema.Schema) *SchemaDiff {
	oldTables := tablesOf(prev)
	newTables := tablesOf(next)

	d := &SchemaDiff{}

	oldByKey := make(map[schema.TableKey]*schema.Table, len(oldTables))
	for i := range oldTables {
		oldByKey[oldTables[i].Key()] = &oldTables[i]
	}
	newKeys := make(map[schema.TableKey]bool, len(newTables))

	for i := range newTables {
		newTable := &newTables[i]
		newKeys[newTable.Key()] = true

		oldTable, ok := oldByKey[newTable.Key()]
		if !ok {
			d.TablesAdded = append(d.TablesAdded, newTable.Clone())
			continue
		}
		if td := CompareTables(oldTable, newTable); td.HasChanges() {
			d.TablesModified = append(d.TablesModified, *td)
		}
	}

	for i := range oldTables {
		if !newKeys[oldTables[i].Key()] {
			d.TablesRemoved = append(d.TablesRemoved, oldTables[i].Clone())
		}
	}

	sortTables(d.TablesAdded)
	sortTables(d.TablesRemoved)
	sort.SliceStable(d.TablesModified, func(i, j int) bool {
		return d.TablesModified[i].Key().Less(d.TablesModified[j].Key())
	})

	return d
}

// CompareTables computes the changes between two versions of the same table
func CompareTables(prev, next *schema.Table) *TableDiff {
	td := &TableDiff{Namespace: next.Namespace, Name: next.Name}

	cols := partition(prev.Columns, next.Columns,
		func(c schema.Column) string { return c.Name },
		schema.Column.Equal)
	td.ColumnsAdded = cols.added
	td.ColumnsRemoved = cols.removed
	for _, p := range cols.modified {
		td.ColumnsModified = append(td.ColumnsModified, ColumnDiff{Name: p.next.Name, Old: p.prev, New: p.next})
	}
	sortColumns(td.ColumnsAdded)
	sortColumns(td.ColumnsRemoved)
	sort.SliceStable(td.ColumnsModified, func(i, j int) bool {
		a, b := td.ColumnsModified[i].New, td.ColumnsModified[j].New
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Name < b.Name
	})

	idx := partition(prev.Indexes, next.Indexes,
		func(i schema.Index) string { return i.Name },
		schema.Index.Equal)
	td.IndexesAdded = idx.added
	td.IndexesRemoved = idx.removed
	for _, p := range idx.modified {
		td.IndexesModified = append(td.IndexesModified, IndexDiff{Name: p.next.Name, Old: p.prev, New: p.next})
	}
	sortByName(td.IndexesAdded, func(i schema.Index) string { return i.Name })
	sortByName(td.IndexesRemoved, func(i schema.Index) string { return i.Name })
	sortByName(td.IndexesModified, func(i IndexDiff) string { return i.Name })

	cons := partition(prev.Constraints, next.Constraints,
		func(c schema.Constraint) string { return c.Name },
		schema.Constraint.Equal)
	td.ConstraintsAdded = cons.added
	td.ConstraintsRemoved = cons.removed
	for _, p := range cons.modified {
		td.ConstraintsModified = append(td.ConstraintsModified, ConstraintDiff{Name: p.next.Name, Old: p.prev, New: p.next})
	}
	sortByName(td.ConstraintsAdded, func(c schema.Constraint) string { return c.Name })
	sortByName(td.ConstraintsRemoved, func(c schema.Constraint) string { return c.Name })
	sortByName(td.ConstraintsModified, func(c ConstraintDiff) string { return c.Name })

	return td
}

// HasChanges reports whether any table was added, removed or modified
func (d *SchemaDiff) HasChanges() bool {
	return len(d.TablesAdded) > 0 || len(d.TablesRemoved) > 0 || len(d.TablesModified) > 0
}

// Summary counts the changes in the diff
func (d *SchemaDiff) Summary() Summary {
	s := Summary{
		TablesAdded:    len(d.TablesAdded),
		TablesRemoved:  len(d.TablesRemoved),
		TablesModified: len(d.TablesModified),
	}
	for _, td := range d.TablesModified {
		s.ColumnsAdded += len(td.ColumnsAdded)
		s.ColumnsRemoved += len(td.ColumnsRemoved)
		s.ColumnsModified += len(td.ColumnsModified)
		s.IndexChanges += len(td.IndexesAdded) + len(td.IndexesRemoved) + len(td.IndexesModified)
		s.ConstraintChanges += len(td.ConstraintsAdded) + len(td.ConstraintsRemoved) + len(td.ConstraintsModified)
	}
	return s
}

// Key returns the identity of the modified table
func (td *TableDiff) Key() schema.TableKey {
	return schema.TableKey{Namespace: td.Namespace, Name: td.Name}
}

// HasChanges reports whether anything in the table changed
func (td *TableDiff) HasChanges() bool {
	return td.HasColumnChanges() ||
		len(td.IndexesAdded) > 0 || len(td.IndexesRemoved) > 0 || len(td.IndexesModified) > 0 ||
		len(td.ConstraintsAdded) > 0 || len(td.ConstraintsRemoved) > 0 || len(td.ConstraintsModified) > 0
}

// HasColumnChanges reports whether any column was added, removed or modified
func (td *TableDiff) HasColumnChanges() bool {
	return len(td.ColumnsAdded) > 0 || len(td.ColumnsRemoved) > 0 || len(td.ColumnsModified) > 0
}

// Changes reports which attributes differ between the old and new column
func (cd ColumnDiff) Changes() ColumnChanges {
	return ColumnChanges{
		Type:     cd.Old.DataType != cd.New.DataType,
		Nullable: cd.Old.Nullable != cd.New.Nullable,
		Default:  !schema.EqualOptional(cd.Old.Default, cd.New.Default),
		Position: cd.Old.Position != cd.New.Position,
	}
}

type pair[T any] struct {
	prev, next T
}

type partitioned[T any] struct {
	added    []T
	removed  []T
	modified []pair[T]
}

// partition splits two keyed collections into added, removed and modified
// elements.
func partition[T any](prev, next []T, key func(T) string, equal func(T, T) bool) partitioned[T] {
	var p partitioned[T]

	oldByKey := make(map[string]T, len(prev))
	for _, o := range prev {
		oldByKey[key(o)] = o
	}
	seen := make(map[string]bool, len(next))

	for _, n := range next {
		k := key(n)
		seen[k] = true
		o, ok := oldByKey[k]
		switch {
		case !ok:
			p.added = append(p.added, n)
		case !equal(o, n):
			p.modified = append(p.modified, pair[T]{prev: o, next: n})
		}
	}

	for _, o := range prev {
		if !seen[key(o)] {
			p.removed = append(p.removed, o)
		}
	}

	return p
}

func tablesOf(s *schema.Schema) []schema.Table {
	if s == nil {
		return nil
	}
	return s.Tables
}

func sortTables(tables []schema.Table) {
	sort.SliceStable(tables, func(i, j int) bool {
		return tables[i].Key().Less(tables[j].Key())
	})
}

func sortColumns(cols []schema.Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Position != cols[j].Position {
			return cols[i].Position < cols[j].Position
		}
		return cols[i].Name < cols[j].Name
	})
}

func sortByName[T any](items []T, name func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return name(items[i]) < name(items[j])
	})
}
