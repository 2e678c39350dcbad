package schema

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ErrInvalidConstraint is returned when a constraint violates the foreign key invariant
var ErrInvalidConstraint = errors.New("invalid constraint")

// ParseConstraintKind maps a catalog constraint type to a ConstraintKind.
// Both "PRIMARY KEY" and "PRIMARY_KEY" spellings are accepted.
func ParseConstraintKind(s string) (ConstraintKind, error) {
	normalized := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
	switch ConstraintKind(normalized) {
	case PrimaryKey, ForeignKey, Unique, Check:
		return ConstraintKind(normalized), nil
	}
	return "", fmt.Errorf("unknown constraint type %q", s)
}

// NewConstraint creates a primary key, unique or check constraint
func NewConstraint(name string, kind ConstraintKind, columns []string) (Constraint, error) {
	if kind == ForeignKey {
		return Constraint{}, fmt.Errorf("%w: %s requires a referenced table, use NewForeignKey", ErrInvalidConstraint, name)
	}
	c := Constraint{Name: name, Kind: kind, Columns: columns}
	return c, c.Validate()
}

// NewForeignKey creates a foreign key constraint referencing table(refColumns)
func NewForeignKey(name string, columns []string, table string, refColumns []string) Constraint {
	return Constraint{
		Name:      name,
		Kind:      ForeignKey,
		Columns:   columns,
		Reference: &ForeignRef{Table: table, Columns: refColumns},
	}
}

// Validate checks that the reference is present exactly when the kind is ForeignKey
func (c Constraint) Validate() error {
	switch c.Kind {
	case PrimaryKey, Unique, Check:
		if c.Reference != nil {
			return fmt.Errorf("%w: %s constraint %s carries a foreign reference", ErrInvalidConstraint, c.Kind, c.Name)
		}
	case ForeignKey:
		if c.Reference == nil || c.Reference.Table == "" {
			return fmt.Errorf("%w: foreign key %s has no referenced table", ErrInvalidConstraint, c.Name)
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidConstraint, c.Name, c.Kind)
	}
	return nil
}

// Equal reports whether two columns have identical attributes, including
// ordinal position.
func (c Column) Equal(other Column) bool {
	return c.Name == other.Name &&
		c.DataType == other.DataType &&
		c.Nullable == other.Nullable &&
		c.Position == other.Position &&
		EqualOptional(c.Default, other.Default)
}

// Equal reports whether two indexes are identical. Column order matters.
func (i Index) Equal(other Index) bool {
	return i.Name == other.Name &&
		i.Unique == other.Unique &&
		i.Primary == other.Primary &&
		slices.Equal(i.Columns, other.Columns)
}

// Equal reports whether two constraints are identical. Local and referenced
// columns are compared as sets.
func (c Constraint) Equal(other Constraint) bool {
	if c.Name != other.Name || c.Kind != other.Kind || !sameSet(c.Columns, other.Columns) {
		return false
	}
	if (c.Reference == nil) != (other.Reference == nil) {
		return false
	}
	if c.Reference == nil {
		return true
	}
	return c.Reference.Table == other.Reference.Table && sameSet(c.Reference.Columns, other.Reference.Columns)
}

// Key returns the identity of the table
func (t Table) Key() TableKey {
	return TableKey{Namespace: t.Namespace, Name: t.Name}
}

// Column returns the column with the given name
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Table returns the table with the given key
func (s *Schema) Table(key TableKey) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Key() == key {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// Validate checks the uniqueness and constraint invariants of the schema.
// All violations are reported in one joined error.
func (s *Schema) Validate() error {
	var errs []error
	tables := make(map[TableKey]bool, len(s.Tables))

	for _, table := range s.Tables {
		key := table.Key()
		if table.Name == "" {
			errs = append(errs, fmt.Errorf("table with empty name in namespace %q", table.Namespace))
		}
		if tables[key] {
			errs = append(errs, fmt.Errorf("duplicate table %s", key))
		}
		tables[key] = true

		columns := make(map[string]bool, len(table.Columns))
		for _, col := range table.Columns {
			if columns[col.Name] {
				errs = append(errs, fmt.Errorf("duplicate column %s.%s", key, col.Name))
			}
			columns[col.Name] = true
		}

		indexes := make(map[string]bool, len(table.Indexes))
		for _, idx := range table.Indexes {
			if indexes[idx.Name] {
				errs = append(errs, fmt.Errorf("duplicate index %s on %s", idx.Name, key))
			}
			indexes[idx.Name] = true
		}

		constraints := make(map[string]bool, len(table.Constraints))
		for _, c := range table.Constraints {
			if constraints[c.Name] {
				errs = append(errs, fmt.Errorf("duplicate constraint %s on %s", c.Name, key))
			}
			constraints[c.Name] = true
			if err := c.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("table %s: %w", key, err))
			}
		}
	}

	return errors.Join(errs...)
}

// Sort orders tables by namespace and name, columns by position and
// indexes and constraints by name. It gives extraction output a stable shape.
func (s *Schema) Sort() {
	sort.SliceStable(s.Tables, func(i, j int) bool {
		return s.Tables[i].Key().Less(s.Tables[j].Key())
	})
	for i := range s.Tables {
		t := &s.Tables[i]
		sort.SliceStable(t.Columns, func(a, b int) bool {
			if t.Columns[a].Position != t.Columns[b].Position {
				return t.Columns[a].Position < t.Columns[b].Position
			}
			return t.Columns[a].Name < t.Columns[b].Name
		})
		sort.SliceStable(t.Indexes, func(a, b int) bool {
			return t.Indexes[a].Name < t.Indexes[b].Name
		})
		sort.SliceStable(t.Constraints, func(a, b int) bool {
			return t.Constraints[a].Name < t.Constraints[b].Name
		})
	}
}

// Clone returns a deep copy of the schema
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{CapturedAt: s.CapturedAt, Tables: make([]Table, len(s.Tables))}
	for i, t := range s.Tables {
		out.Tables[i] = t.Clone()
	}
	return out
}

// Clone returns a deep copy of the table
func (t Table) Clone() Table {
	out := Table{Namespace: t.Namespace, Name: t.Name}
	if t.Columns != nil {
		out.Columns = make([]Column, len(t.Columns))
		for i, c := range t.Columns {
			if c.Default != nil {
				c.Default = StringPtr(*c.Default)
			}
			out.Columns[i] = c
		}
	}
	if t.Indexes != nil {
		out.Indexes = make([]Index, len(t.Indexes))
		for i, idx := range t.Indexes {
			idx.Columns = slices.Clone(idx.Columns)
			out.Indexes[i] = idx
		}
	}
	if t.Constraints != nil {
		out.Constraints = make([]Constraint, len(t.Constraints))
		for i, c := range t.Constraints {
			c.Columns = slices.Clone(c.Columns)
			if c.Reference != nil {
				c.Reference = &ForeignRef{Table: c.Reference.Table, Columns: slices.Clone(c.Reference.Columns)}
			}
			out.Constraints[i] = c
		}
	}
	return out
}

// EqualOptional reports whether two optional values are both absent or both
// present and equal
func EqualOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
