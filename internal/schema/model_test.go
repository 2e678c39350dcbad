package schema

import (
	"errors"
	"testing"
)

func TestColumnEqual(t *testing.T) {
	base := Column{Name: "email", DataType: "varchar", Nullable: false, Position: 2}

	tests := []struct {
		name   string
		modify func(c Column) Column
		want   bool
	}{
		{
			name:   "identical",
			modify: func(c Column) Column { return c },
			want:   true,
		},
		{
			name:   "nullable differs",
			modify: func(c Column) Column { c.Nullable = true; return c },
			want:   false,
		},
		{
			name:   "type differs",
			modify: func(c Column) Column { c.DataType = "text"; return c },
			want:   false,
		},
		{
			name:   "default added",
			modify: func(c Column) Column { c.Default = StringPtr("''"); return c },
			want:   false,
		},
		{
			name:   "position differs",
			modify: func(c Column) Column { c.Position = 5; return c },
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.modify(base)); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColumnEqualComparesDefaultValues(t *testing.T) {
	a := Column{Name: "status", DataType: "text", Default: StringPtr("'new'")}
	b := Column{Name: "status", DataType: "text", Default: StringPtr("'new'")}
	if !a.Equal(b) {
		t.Error("columns with equal defaults behind different pointers should be equal")
	}

	b.Default = StringPtr("'open'")
	if a.Equal(b) {
		t.Error("columns with different defaults should not be equal")
	}
}

func TestEqualOptional(t *testing.T) {
	tests := []struct {
		name     string
		a, b     *string
		expected bool
	}{
		{name: "both absent", expected: true},
		{name: "one absent", a: StringPtr("0"), expected: false},
		{name: "absent vs empty", b: StringPtr(""), expected: false},
		{name: "same value", a: StringPtr("now()"), b: StringPtr("now()"), expected: true},
		{name: "different value", a: StringPtr("0"), b: StringPtr("1"), expected: false},
	}

	for _, tt := range tests {
		if got := EqualOptional(tt.a, tt.b); got != tt.expected {
			t.Errorf("%s: EqualOptional = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestIndexEqualIsOrderSensitive(t *testing.T) {
	a := Index{Name: "idx_name", Columns: []string{"last", "first"}}
	b := Index{Name: "idx_name", Columns: []string{"first", "last"}}
	if a.Equal(b) {
		t.Error("indexes with different key order should not be equal")
	}
}

func TestConstraintEqualTreatsColumnsAsSets(t *testing.T) {
	a := NewForeignKey("fk_order", []string{"a", "b"}, "orders", []string{"x", "y"})
	b := NewForeignKey("fk_order", []string{"b", "a"}, "orders", []string{"y", "x"})
	if !a.Equal(b) {
		t.Error("foreign keys with reordered column sets should be equal")
	}

	c := NewForeignKey("fk_order", []string{"a", "b"}, "invoices", []string{"x", "y"})
	if a.Equal(c) {
		t.Error("foreign keys referencing different tables should not be equal")
	}
}

func TestNewConstraintRejectsForeignKey(t *testing.T) {
	_, err := NewConstraint("fk", ForeignKey, []string{"user_id"})
	if !errors.Is(err, ErrInvalidConstraint) {
		t.Fatalf("expected ErrInvalidConstraint, got %v", err)
	}
}

func TestConstraintValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Constraint
		wantErr bool
	}{
		{
			name: "primary key",
			c:    Constraint{Name: "pk", Kind: PrimaryKey, Columns: []string{"id"}},
		},
		{
			name: "foreign key with reference",
			c:    NewForeignKey("fk", []string{"user_id"}, "users", []string{"id"}),
		},
		{
			name:    "foreign key without reference",
			c:       Constraint{Name: "fk", Kind: ForeignKey, Columns: []string{"user_id"}},
			wantErr: true,
		},
		{
			name: "unique with reference",
			c: Constraint{Name: "uq", Kind: Unique, Columns: []string{"email"},
				Reference: &ForeignRef{Table: "users", Columns: []string{"id"}}},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			c:       Constraint{Name: "x", Kind: "EXCLUDE"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseConstraintKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ConstraintKind
		wantErr bool
	}{
		{in: "PRIMARY KEY", want: PrimaryKey},
		{in: "foreign key", want: ForeignKey},
		{in: "PRIMARY_KEY", want: PrimaryKey},
		{in: "UNIQUE", want: Unique},
		{in: "CHECK", want: Check},
		{in: "EXCLUDE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConstraintKind(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseConstraintKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSchemaValidate(t *testing.T) {
	valid := &Schema{Tables: []Table{
		{Namespace: "public", Name: "users", Columns: []Column{{Name: "id"}, {Name: "email"}}},
		{Namespace: "audit", Name: "users", Columns: []Column{{Name: "id"}}},
	}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("same table name in different namespaces should be valid: %v", err)
	}

	tests := []struct {
		name   string
		schema *Schema
	}{
		{
			name: "duplicate table",
			schema: &Schema{Tables: []Table{
				{Namespace: "public", Name: "users"},
				{Namespace: "public", Name: "users"},
			}},
		},
		{
			name: "duplicate column",
			schema: &Schema{Tables: []Table{
				{Namespace: "public", Name: "users", Columns: []Column{{Name: "id"}, {Name: "id"}}},
			}},
		},
		{
			name: "duplicate index",
			schema: &Schema{Tables: []Table{
				{Namespace: "public", Name: "users", Indexes: []Index{{Name: "i"}, {Name: "i"}}},
			}},
		},
		{
			name: "duplicate constraint",
			schema: &Schema{Tables: []Table{
				{Namespace: "public", Name: "users", Constraints: []Constraint{
					{Name: "c", Kind: Check}, {Name: "c", Kind: Check},
				}},
			}},
		},
		{
			name: "foreign key without reference",
			schema: &Schema{Tables: []Table{
				{Namespace: "public", Name: "orders", Constraints: []Constraint{
					{Name: "fk", Kind: ForeignKey, Columns: []string{"user_id"}},
				}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.schema.Validate(); err == nil {
				t.Error("expected validation error but got none")
			}
		})
	}
}

func TestSchemaSort(t *testing.T) {
	s := &Schema{Tables: []Table{
		{Namespace: "public", Name: "users", Columns: []Column{
			{Name: "email", Position: 2},
			{Name: "id", Position: 1},
		}, Indexes: []Index{{Name: "b"}, {Name: "a"}}},
		{Namespace: "audit", Name: "log"},
		{Namespace: "public", Name: "orders"},
	}}

	s.Sort()

	wantTables := []string{"audit.log", "public.orders", "public.users"}
	for i, want := range wantTables {
		if got := s.Tables[i].Key().String(); got != want {
			t.Errorf("table[%d] = %s, want %s", i, got, want)
		}
	}

	users := s.Tables[2]
	if users.Columns[0].Name != "id" || users.Columns[1].Name != "email" {
		t.Errorf("columns not sorted by position: %+v", users.Columns)
	}
	if users.Indexes[0].Name != "a" {
		t.Errorf("indexes not sorted by name: %+v", users.Indexes)
	}
}

func TestSchemaCloneIsDeep(t *testing.T) {
	orig := &Schema{Tables: []Table{{
		Namespace: "public",
		Name:      "users",
		Columns:   []Column{{Name: "status", Default: StringPtr("'new'")}},
		Indexes:   []Index{{Name: "idx", Columns: []string{"status"}}},
		Constraints: []Constraint{
			NewForeignKey("fk", []string{"org_id"}, "orgs", []string{"id"}),
		},
	}}}

	clone := orig.Clone()
	*clone.Tables[0].Columns[0].Default = "'old'"
	clone.Tables[0].Indexes[0].Columns[0] = "other"
	clone.Tables[0].Constraints[0].Reference.Table = "teams"

	if *orig.Tables[0].Columns[0].Default != "'new'" {
		t.Error("clone shares column default with original")
	}
	if orig.Tables[0].Indexes[0].Columns[0] != "status" {
		t.Error("clone shares index columns with original")
	}
	if orig.Tables[0].Constraints[0].Reference.Table != "orgs" {
		t.Error("clone shares foreign reference with original")
	}
}

func TestLookups(t *testing.T) {
	s := &Schema{Tables: []Table{
		{Namespace: "public", Name: "users", Columns: []Column{{Name: "id"}}},
	}}

	table, ok := s.Table(TableKey{Namespace: "public", Name: "users"})
	if !ok {
		t.Fatal("expected to find public.users")
	}
	if _, ok := table.Column("id"); !ok {
		t.Error("expected to find column id")
	}
	if _, ok := table.Column("missing"); ok {
		t.Error("did not expect to find column missing")
	}
	if _, ok := s.Table(TableKey{Namespace: "audit", Name: "users"}); ok {
		t.Error("did not expect to find audit.users")
	}
}
