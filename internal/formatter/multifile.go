package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/dbdiff/internal/schema"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// MultiFileFormatter writes a schema to a directory: an overview plus one
// file per table
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) (*MultiFileFormatter, error) {
	if format != formatMarkdown && format != formatText {
		return nil, fmt.Errorf("unsupported output format %q (must be %s or %s)", format, formatText, formatMarkdown)
	}
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}, nil
}

// Format writes the schema to multiple files
func (f *MultiFileFormatter) Format(s *schema.Schema) error {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write overview file
	if err := f.writeFile("_overview", func(w io.Writer) error { return f.writeOverview(w, s) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	// Write per-table files
	for _, table := range s.Tables {
		single := &schema.Schema{CapturedAt: s.CapturedAt, Tables: []schema.Table{table}}
		err := f.writeFile(f.tableFileName(table), func(w io.Writer) error {
			if f.OutputFormat == formatMarkdown {
				return NewMarkdownFormatter(w).Format(single)
			}
			return NewTextFormatter(w, false).Format(single)
		})
		if err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Key(), err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeFile(base string, write func(io.Writer) error) (err error) {
	file, err := os.Create(filepath.Join(f.OutputDir, base+f.getFileExtension()))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return write(file)
}

// writeOverview lists every table with the tables it references
func (f *MultiFileFormatter) writeOverview(w io.Writer, s *schema.Schema) error {
	out := &errWriter{w: w}
	ext := f.getFileExtension()

	if f.OutputFormat == formatMarkdown {
		out.printf("# Schema Overview\n\n")
		out.printf("Captured at %s. Each table has a corresponding file: `<namespace>.<table_name>%s`\n\n",
			s.CapturedAt.UTC().Format("2006-01-02 15:04:05 MST"), ext)
		out.printf("## Tables\n\n")
	} else {
		out.printf("SCHEMA OVERVIEW\n")
		out.printf("Each table has a file: <namespace>.<table_name>%s\n\n", ext)
	}

	for _, table := range s.Tables {
		if f.OutputFormat == formatMarkdown {
			out.printf("- **%s**", table.Key())
		} else {
			out.printf("%s", table.Key())
		}

		// Show outgoing relationships
		if targets := referencedTables(table); len(targets) > 0 {
			out.printf(" (references: %s)", strings.Join(targets, ", "))
		}
		out.printf("\n")
	}

	return out.err
}

func (f *MultiFileFormatter) tableFileName(table schema.Table) string {
	return table.Key().String()
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}

// referencedTables returns the distinct tables a table's foreign keys point to
func referencedTables(table schema.Table) []string {
	var targets []string
	seen := make(map[string]bool)
	for _, c := range table.Constraints {
		if c.Reference == nil || seen[c.Reference.Table] {
			continue
		}
		seen[c.Reference.Table] = true
		targets = append(targets, c.Reference.Table)
	}
	return targets
}
