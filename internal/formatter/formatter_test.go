package formatter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tordrt/dbdiff/internal/diff"
	"github.com/tordrt/dbdiff/internal/schema"
	"github.com/tordrt/dbdiff/internal/store"
)

func testSchemas() (*schema.Schema, *schema.Schema) {
	old := &schema.Schema{Tables: []schema.Table{
		{
			Namespace: "public",
			Name:      "users",
			Columns: []schema.Column{
				{Name: "id", DataType: "integer", Position: 1},
				{Name: "email", DataType: "text", Nullable: true, Position: 2},
				{Name: "legacy", DataType: "text", Nullable: true, Position: 3},
			},
			Indexes: []schema.Index{{Name: "users_email_idx", Columns: []string{"email"}}},
		},
		{Namespace: "public", Name: "audit", Columns: []schema.Column{{Name: "id", DataType: "integer", Position: 1}}},
	}}

	newer := &schema.Schema{Tables: []schema.Table{
		{
			Namespace: "public",
			Name:      "users",
			Columns: []schema.Column{
				{Name: "id", DataType: "integer", Position: 1},
				{Name: "email", DataType: "varchar(255)", Position: 2},
				{Name: "created_at", DataType: "timestamptz", Default: schema.StringPtr("now()"), Position: 3},
			},
			Indexes: []schema.Index{{Name: "users_email_idx", Columns: []string{"email"}, Unique: true}},
		},
		{
			Namespace: "public",
			Name:      "refunds",
			Columns: []schema.Column{
				{Name: "id", DataType: "integer", Position: 1},
				{Name: "order_id", DataType: "integer", Position: 2},
			},
			Constraints: []schema.Constraint{
				schema.NewForeignKey("refunds_order_id_fkey", []string{"order_id"}, "orders", []string{"id"}),
			},
		},
	}}
	return old, newer
}

func TestTextFormatDiff(t *testing.T) {
	var buf bytes.Buffer
	d := diff.Compare(testSchemas())

	if err := NewTextFormatter(&buf, false).FormatDiff(d, "v1 (#1)", "current"); err != nil {
		t.Fatalf("FormatDiff failed: %v", err)
	}
	output := buf.String()

	expected := []string{
		"Comparing v1 (#1) → current",
		"+ TABLE public.refunds",
		"+   order_id integer NOT NULL",
		"- TABLE public.audit",
		"~ TABLE public.users",
		"+   COLUMN created_at timestamptz NOT NULL DEFAULT now()",
		"-   COLUMN legacy",
		"~   COLUMN email",
		"      type: text → varchar(255)",
		"      nullable: true → false",
		"~   INDEX users_email_idx",
		"      (email) → (email) UNIQUE",
		"Summary: 1 table added, 1 removed, 1 modified",
	}
	for _, line := range expected {
		if !strings.Contains(output, line) {
			t.Errorf("output missing %q\n%s", line, output)
		}
	}
	if strings.Contains(output, "\x1b[") {
		t.Error("colors disabled but output contains ANSI escapes")
	}
}

func TestTextFormatDiffColors(t *testing.T) {
	var buf bytes.Buffer
	d := diff.Compare(testSchemas())

	if err := NewTextFormatter(&buf, true).FormatDiff(d, "a", "b"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\x1b[32m+ TABLE public.refunds") {
		t.Errorf("expected green added table line:\n%q", buf.String())
	}
}

func TestFormatNoChanges(t *testing.T) {
	s, _ := testSchemas()
	d := diff.Compare(s, s)

	tests := []struct {
		name   string
		format func(*bytes.Buffer) error
	}{
		{name: "text", format: func(b *bytes.Buffer) error { return NewTextFormatter(b, false).FormatDiff(d, "a", "b") }},
		{name: "markdown", format: func(b *bytes.Buffer) error { return NewMarkdownFormatter(b).FormatDiff(d, "a", "b") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.format(&buf); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), NoChanges) {
				t.Errorf("expected %q in output:\n%s", NoChanges, buf.String())
			}
		})
	}
}

func TestMarkdownFormatDiff(t *testing.T) {
	var buf bytes.Buffer
	d := diff.Compare(testSchemas())

	if err := NewMarkdownFormatter(&buf).FormatDiff(d, "v1", "v2"); err != nil {
		t.Fatalf("FormatDiff failed: %v", err)
	}
	output := buf.String()

	expected := []string{
		"# Schema Diff",
		"- **From:** v1",
		"## Added tables",
		"### public.refunds",
		"## Removed tables",
		"- public.audit",
		"## Modified tables",
		"- Added **created_at:** timestamptz NOT NULL DEFAULT now()",
		"- Removed **legacy**",
		"- Modified **email:** type: text → varchar(255); nullable: true → false",
		"- Modified `users_email_idx`: (email) → (email) UNIQUE",
	}
	for _, line := range expected {
		if !strings.Contains(output, line) {
			t.Errorf("output missing %q\n%s", line, output)
		}
	}
}

func TestJSONFormatDiff(t *testing.T) {
	var buf bytes.Buffer
	d := diff.Compare(testSchemas())

	if err := NewJSONFormatter(&buf).FormatDiff(d, "v1", "current"); err != nil {
		t.Fatalf("FormatDiff failed: %v", err)
	}

	var report DiffReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if !report.HasChanges || report.From != "v1" || report.To != "current" {
		t.Errorf("unexpected report header: %+v", report)
	}
	if report.Summary.TablesAdded != 1 || report.Summary.ColumnsModified != 1 {
		t.Errorf("unexpected summary: %+v", report.Summary)
	}
	if len(report.Diff.TablesModified) != 1 || report.Diff.TablesModified[0].Name != "users" {
		t.Errorf("unexpected diff: %+v", report.Diff)
	}
}

func TestFormatSchema(t *testing.T) {
	_, s := testSchemas()
	s.Sort()

	var text, md bytes.Buffer
	if err := NewTextFormatter(&text, false).Format(s); err != nil {
		t.Fatal(err)
	}
	if err := NewMarkdownFormatter(&md).Format(s); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(text.String(), "TABLE public.users") || !strings.Contains(text.String(), "  email: varchar(255) NOT NULL") {
		t.Errorf("unexpected text output:\n%s", text.String())
	}
	if !strings.Contains(md.String(), "## public.refunds") || !strings.Contains(md.String(), "- order_id → orders(id)") {
		t.Errorf("unexpected markdown output:\n%s", md.String())
	}
}

func TestMultiFileFormatter(t *testing.T) {
	_, s := testSchemas()
	s.Sort()
	dir := filepath.Join(t.TempDir(), "schema")

	f, err := NewMultiFileFormatter(dir, "markdown")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Format(s); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	overview, err := os.ReadFile(filepath.Join(dir, "_overview.md"))
	if err != nil {
		t.Fatalf("overview not written: %v", err)
	}
	if !strings.Contains(string(overview), "- **public.refunds** (references: orders)") {
		t.Errorf("unexpected overview:\n%s", overview)
	}

	users, err := os.ReadFile(filepath.Join(dir, "public.users.md"))
	if err != nil {
		t.Fatalf("table file not written: %v", err)
	}
	if !strings.Contains(string(users), "created_at") {
		t.Errorf("unexpected table file:\n%s", users)
	}

	if _, err := NewMultiFileFormatter(dir, "html"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestHistoryFormatter(t *testing.T) {
	var buf bytes.Buffer
	infos := []store.Info{
		{ID: 2, Name: "after-migration", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), TableCount: 12, Checksum: strings.Repeat("ab", 32)},
		{ID: 1, Name: "baseline", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), TableCount: 10, Checksum: strings.Repeat("cd", 32)},
	}

	if err := NewHistoryFormatter(&buf).Format(infos); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{"ID", "NAME", "after-migration", "baseline", "abababababab", "12"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
	if strings.Index(output, "after-migration") > strings.Index(output, "baseline") {
		t.Error("rows should keep the given order")
	}
	if strings.Contains(output, strings.Repeat("ab", 32)) {
		t.Error("checksum should be shortened")
	}
}

func TestHistoryFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewHistoryFormatter(&buf).Format(nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != NoSnapshots {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
