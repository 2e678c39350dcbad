// Package schema holds the engine-agnostic representation of a database schema.
package schema

import (
	"time"
)

// Schema represents one complete structural view of a database at one instant
type Schema struct {
	CapturedAt time.Time `json:"captured_at"`
	Tables     []Table   `json:"tables"`
}

// TableKey identifies a table across schema versions
type TableKey struct {
	Namespace string
	Name      string
}

// String returns the qualified "namespace.name" form
func (k TableKey) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "." + k.Name
}

// Less orders keys by namespace, then name
func (k TableKey) Less(other TableKey) bool {
	if k.Namespace != other.Namespace {
		return k.Namespace < other.Namespace
	}
	return k.Name < other.Name
}

// Table represents a database table
type Table struct {
	Namespace   string       `json:"namespace"`
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// Column represents a table column
type Column struct {
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
	Position int     `json:"position"`
}

// Index represents a table index. Column order is the index key order.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary"`
}

// ConstraintKind is the kind of a table constraint
type ConstraintKind string

const (
	PrimaryKey ConstraintKind = "PRIMARY KEY"
	ForeignKey ConstraintKind = "FOREIGN KEY"
	Unique     ConstraintKind = "UNIQUE"
	Check      ConstraintKind = "CHECK"
)

// Constraint represents a table constraint. Reference is set if and only if
// Kind is ForeignKey; use NewConstraint or NewForeignKey to build one.
type Constraint struct {
	Name      string         `json:"name"`
	Kind      ConstraintKind `json:"kind"`
	Columns   []string       `json:"columns"`
	Reference *ForeignRef    `json:"references,omitempty"`
}

// ForeignRef is the referenced side of a foreign key
type ForeignRef struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// StringPtr returns a pointer to s, for building optional defaults
func StringPtr(s string) *string {
	return &s
}
