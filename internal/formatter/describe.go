// Package formatter renders schemas, schema diffs and snapshot history for
// people (text, markdown) and for tools (JSON).
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbdiff/internal/diff"
	"github.com/tordrt/dbdiff/internal/schema"
)

// describeColumn renders the attributes of a column after its name
func describeColumn(col schema.Column) string {
	parts := []string{col.DataType}

	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}

	if col.Default != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.Default))
	}

	return strings.Join(parts, " ")
}

func describeIndex(idx schema.Index) string {
	s := fmt.Sprintf("(%s)", strings.Join(idx.Columns, ", "))
	switch {
	case idx.Primary:
		s += " PRIMARY"
	case idx.Unique:
		s += " UNIQUE"
	}
	return s
}

func describeConstraint(c schema.Constraint) string {
	s := fmt.Sprintf("%s (%s)", c.Kind, strings.Join(c.Columns, ", "))
	if c.Reference != nil {
		s += fmt.Sprintf(" → %s(%s)", c.Reference.Table, strings.Join(c.Reference.Columns, ", "))
	}
	return s
}

func describeDefault(d *string) string {
	if d == nil {
		return "none"
	}
	return *d
}

// columnChanges lists one "attribute: old → new" line per changed attribute
func columnChanges(cd diff.ColumnDiff) []string {
	changes := cd.Changes()
	var lines []string

	if changes.Type {
		lines = append(lines, fmt.Sprintf("type: %s → %s", cd.Old.DataType, cd.New.DataType))
	}
	if changes.Nullable {
		lines = append(lines, fmt.Sprintf("nullable: %t → %t", cd.Old.Nullable, cd.New.Nullable))
	}
	if changes.Default {
		lines = append(lines, fmt.Sprintf("default: %s → %s", describeDefault(cd.Old.Default), describeDefault(cd.New.Default)))
	}
	if changes.Position {
		lines = append(lines, fmt.Sprintf("position: %d → %d", cd.Old.Position, cd.New.Position))
	}

	return lines
}

// summaryLine renders the change counts of a diff in one sentence
func summaryLine(s diff.Summary) string {
	parts := []string{
		plural(s.TablesAdded, "table") + " added",
		fmt.Sprintf("%d removed", s.TablesRemoved),
		fmt.Sprintf("%d modified", s.TablesModified),
	}
	if s.ColumnsAdded+s.ColumnsRemoved+s.ColumnsModified > 0 {
		parts = append(parts, fmt.Sprintf("columns +%d -%d ~%d", s.ColumnsAdded, s.ColumnsRemoved, s.ColumnsModified))
	}
	if s.IndexChanges > 0 {
		parts = append(parts, plural(s.IndexChanges, "index change"))
	}
	if s.ConstraintChanges > 0 {
		parts = append(parts, plural(s.ConstraintChanges, "constraint change"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// errWriter remembers the first write error so renderers can check once
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, args...)
}
