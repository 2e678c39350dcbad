package formatter

import (
	"encoding/json"
	"io"

	"github.com/tordrt/dbdiff/internal/diff"
	"github.com/tordrt/dbdiff/internal/schema"
)

// JSONFormatter writes machine-readable output
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// DiffReport is the JSON document written for a diff
type DiffReport struct {
	From       string           `json:"from"`
	To         string           `json:"to"`
	HasChanges bool             `json:"has_changes"`
	Summary    diff.Summary     `json:"summary"`
	Diff       *diff.SchemaDiff `json:"diff"`
}

// FormatDiff writes the diff with its summary as indented JSON
func (f *JSONFormatter) FormatDiff(d *diff.SchemaDiff, from, to string) error {
	return f.encode(DiffReport{
		From:       from,
		To:         to,
		HasChanges: d.HasChanges(),
		Summary:    d.Summary(),
		Diff:       d,
	})
}

// Format writes the schema as indented JSON, in the same shape snapshots are
// stored in
func (f *JSONFormatter) Format(s *schema.Schema) error {
	return f.encode(s)
}

func (f *JSONFormatter) encode(v any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
