package formatter

import (
	"io"
	"strings"

	"github.com/tordrt/dbdiff/internal/diff"
	"github.com/tordrt/dbdiff/internal/schema"
)

// MarkdownFormatter formats schemas and diffs as markdown
type MarkdownFormatter struct {
	out *errWriter
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{out: &errWriter{w: w}}
}

// FormatDiff writes a markdown report of the changes between from and to
func (f *MarkdownFormatter) FormatDiff(d *diff.SchemaDiff, from, to string) error {
	f.out.println("# Schema Diff")
	f.out.println()
	f.out.printf("- **From:** %s\n", from)
	f.out.printf("- **To:** %s\n", to)
	f.out.println()

	if !d.HasChanges() {
		f.out.println(NoChanges)
		return f.out.err
	}

	f.out.printf("**Summary:** %s\n\n", summaryLine(d.Summary()))

	if len(d.TablesAdded) > 0 {
		f.out.println("## Added tables")
		f.out.println()
		for _, table := range d.TablesAdded {
			f.out.printf("### %s\n\n", table.Key())
			f.formatColumns(table.Columns)
		}
	}

	if len(d.TablesRemoved) > 0 {
		f.out.println("## Removed tables")
		f.out.println()
		for _, table := range d.TablesRemoved {
			f.out.printf("- %s\n", table.Key())
		}
		f.out.println()
	}

	if len(d.TablesModified) > 0 {
		f.out.println("## Modified tables")
		f.out.println()
		for _, td := range d.TablesModified {
			f.out.printf("### %s\n\n", td.Key())
			f.formatTableDiff(td)
		}
	}

	return f.out.err
}

func (f *MarkdownFormatter) formatTableDiff(td diff.TableDiff) {
	if td.HasColumnChanges() {
		f.out.println("#### Columns")
		f.out.println()
		for _, col := range td.ColumnsAdded {
			f.out.printf("- Added **%s:** %s\n", col.Name, describeColumn(col))
		}
		for _, col := range td.ColumnsRemoved {
			f.out.printf("- Removed **%s**\n", col.Name)
		}
		for _, cd := range td.ColumnsModified {
			f.out.printf("- Modified **%s:** %s\n", cd.Name, strings.Join(columnChanges(cd), "; "))
		}
		f.out.println()
	}

	if len(td.IndexesAdded)+len(td.IndexesRemoved)+len(td.IndexesModified) > 0 {
		f.out.println("#### Indexes")
		f.out.println()
		for _, idx := range td.IndexesAdded {
			f.out.printf("- Added `%s` %s\n", idx.Name, describeIndex(idx))
		}
		for _, idx := range td.IndexesRemoved {
			f.out.printf("- Removed `%s`\n", idx.Name)
		}
		for _, id := range td.IndexesModified {
			f.out.printf("- Modified `%s`: %s → %s\n", id.Name, describeIndex(id.Old), describeIndex(id.New))
		}
		f.out.println()
	}

	if len(td.ConstraintsAdded)+len(td.ConstraintsRemoved)+len(td.ConstraintsModified) > 0 {
		f.out.println("#### Constraints")
		f.out.println()
		for _, c := range td.ConstraintsAdded {
			f.out.printf("- Added `%s` %s\n", c.Name, describeConstraint(c))
		}
		for _, c := range td.ConstraintsRemoved {
			f.out.printf("- Removed `%s`\n", c.Name)
		}
		for _, cd := range td.ConstraintsModified {
			f.out.printf("- Modified `%s`: %s → %s\n", cd.Name, describeConstraint(cd.Old), describeConstraint(cd.New))
		}
		f.out.println()
	}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	f.out.println("# Database Schema")
	f.out.println()

	for _, table := range s.Tables {
		f.formatTable(table)
	}
	return f.out.err
}

func (f *MarkdownFormatter) formatTable(table schema.Table) {
	// Table header
	f.out.printf("## %s\n\n", table.Key())

	// Columns
	f.out.println("### Columns")
	f.out.println()
	f.formatColumns(table.Columns)

	// Relations
	var refs []schema.Constraint
	for _, c := range table.Constraints {
		if c.Kind == schema.ForeignKey {
			refs = append(refs, c)
		}
	}
	if len(refs) > 0 {
		f.out.println("### References")
		f.out.println()
		for _, c := range refs {
			f.out.printf("- %s → %s(%s)\n",
				strings.Join(c.Columns, ", "),
				c.Reference.Table,
				strings.Join(c.Reference.Columns, ", "))
		}
		f.out.println()
	}

	// Indexes
	if len(table.Indexes) > 0 {
		f.out.println("### Indexes")
		f.out.println()
		for _, idx := range table.Indexes {
			f.out.printf("- %s on %s\n", idx.Name, describeIndex(idx))
		}
		f.out.println()
	}

	// Constraints
	if len(table.Constraints) > 0 {
		f.out.println("### Constraints")
		f.out.println()
		for _, c := range table.Constraints {
			f.out.printf("- %s: %s\n", c.Name, describeConstraint(c))
		}
		f.out.println()
	}
}

func (f *MarkdownFormatter) formatColumns(columns []schema.Column) {
	for _, col := range columns {
		f.out.printf("- **%s:** %s\n", col.Name, describeColumn(col))
	}
	f.out.println()
}
