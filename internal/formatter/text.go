package formatter

import (
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/tordrt/dbdiff/internal/diff"
	"github.com/tordrt/dbdiff/internal/schema"
)

// NoChanges is printed when two schemas are identical
const NoChanges = "No changes detected"

// TextFormatter formats schemas and diffs as compact text. Diff lines are
// marked "+" (added), "-" (removed) and "~" (modified).
type TextFormatter struct {
	out    *errWriter
	add    *color.Color
	remove *color.Color
	change *color.Color
	bold   *color.Color
}

// NewTextFormatter creates a new text formatter. colors forces ANSI colors on
// or off regardless of the terminal.
func NewTextFormatter(w io.Writer, colors bool) *TextFormatter {
	f := &TextFormatter{
		out:    &errWriter{w: w},
		add:    color.New(color.FgGreen),
		remove: color.New(color.FgRed),
		change: color.New(color.FgYellow),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{f.add, f.remove, f.change, f.bold} {
		if colors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

// FormatDiff writes the changes between the from and to sides
func (f *TextFormatter) FormatDiff(d *diff.SchemaDiff, from, to string) error {
	f.out.printf("%s\n\n", f.bold.Sprintf("Comparing %s → %s", from, to))

	if !d.HasChanges() {
		f.out.println(NoChanges)
		return f.out.err
	}

	for _, table := range d.TablesAdded {
		f.out.println(f.add.Sprintf("+ TABLE %s", table.Key()))
		for _, col := range table.Columns {
			f.out.println(f.add.Sprintf("+   %s %s", col.Name, describeColumn(col)))
		}
	}

	for _, table := range d.TablesRemoved {
		f.out.println(f.remove.Sprintf("- TABLE %s", table.Key()))
	}

	for _, td := range d.TablesModified {
		f.out.println(f.change.Sprintf("~ TABLE %s", td.Key()))
		f.formatTableDiff(td)
	}

	f.out.printf("\nSummary: %s\n", summaryLine(d.Summary()))
	return f.out.err
}

func (f *TextFormatter) formatTableDiff(td diff.TableDiff) {
	for _, col := range td.ColumnsAdded {
		f.out.println(f.add.Sprintf("+   COLUMN %s %s", col.Name, describeColumn(col)))
	}
	for _, col := range td.ColumnsRemoved {
		f.out.println(f.remove.Sprintf("-   COLUMN %s", col.Name))
	}
	for _, cd := range td.ColumnsModified {
		f.out.println(f.change.Sprintf("~   COLUMN %s", cd.Name))
		for _, line := range columnChanges(cd) {
			f.out.printf("      %s\n", line)
		}
	}

	for _, idx := range td.IndexesAdded {
		f.out.println(f.add.Sprintf("+   INDEX %s %s", idx.Name, describeIndex(idx)))
	}
	for _, idx := range td.IndexesRemoved {
		f.out.println(f.remove.Sprintf("-   INDEX %s", idx.Name))
	}
	for _, id := range td.IndexesModified {
		f.out.println(f.change.Sprintf("~   INDEX %s", id.Name))
		f.out.printf("      %s → %s\n", describeIndex(id.Old), describeIndex(id.New))
	}

	for _, c := range td.ConstraintsAdded {
		f.out.println(f.add.Sprintf("+   CONSTRAINT %s %s", c.Name, describeConstraint(c)))
	}
	for _, c := range td.ConstraintsRemoved {
		f.out.println(f.remove.Sprintf("-   CONSTRAINT %s", c.Name))
	}
	for _, cd := range td.ConstraintsModified {
		f.out.println(f.change.Sprintf("~   CONSTRAINT %s", cd.Name))
		f.out.printf("      %s → %s\n", describeConstraint(cd.Old), describeConstraint(cd.New))
	}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *schema.Schema) error {
	for i, table := range s.Tables {
		if i > 0 {
			f.out.println() // Blank line between tables
		}
		f.formatTable(table)
	}
	return f.out.err
}

func (f *TextFormatter) formatTable(table schema.Table) {
	// Table header with primary key
	pkStr := ""
	for _, c := range table.Constraints {
		if c.Kind == schema.PrimaryKey {
			pkStr = " (PK: " + strings.Join(c.Columns, ", ") + ")"
			break
		}
	}
	f.out.printf("TABLE %s%s\n", f.bold.Sprint(table.Key().String()), pkStr)

	// Columns
	for _, col := range table.Columns {
		f.out.printf("  %s: %s\n", col.Name, describeColumn(col))
	}

	// Indexes
	if len(table.Indexes) > 0 {
		f.out.println()
		f.out.println("  INDEXES:")
		for _, idx := range table.Indexes {
			f.out.printf("    %s %s\n", idx.Name, describeIndex(idx))
		}
	}

	// Constraints
	if len(table.Constraints) > 0 {
		f.out.println()
		f.out.println("  CONSTRAINTS:")
		for _, c := range table.Constraints {
			f.out.printf("    %s %s\n", c.Name, describeConstraint(c))
		}
	}
}
