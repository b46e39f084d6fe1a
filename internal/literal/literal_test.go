package literal

import (
	"strings"
	"testing"

	"proddump/internal/db"
)

// TestQuoteLiteral mirrors the server's quote_literal on the cases that
// matter for replay: quotes doubled, backslashes switching to E'' syntax.
func TestQuoteLiteral(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "''"},
		{"abc", "'abc'"},
		{"O'Brien", "'O''Brien'"},
		{`C:\tmp`, `E'C:\\tmp'`},
		{`it's \n`, `E'it''s \\n'`},
		{"line1\nline2", "'line1\nline2'"},
		{"žluťoučký", "'žluťoučký'"},
	}
	for _, c := range cases {
		if got := QuoteLiteral(c.in); got != c.want {
			t.Errorf("QuoteLiteral(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIdent(t *testing.T) {
	cases := []struct{ in, want string }{
		{"users", "users"},
		{"user_roles2", "user_roles2"},
		{"_tmp", "_tmp"},
		{"Users", `"Users"`},
		{"order items", `"order items"`},
		{`we"ird`, `"we""ird"`},
		{"x;DROP TABLE y", `"x;DROP TABLE y"`},
		{"1st", `"1st"`},
	}
	for _, c := range cases {
		if got := Ident(c.in); got != c.want {
			t.Errorf("Ident(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRules_IsRaw(t *testing.T) {
	r := DefaultRules()
	for _, name := range []string{"id", "created_at", "updated_at", "payload::text"} {
		if !r.IsRaw(name) {
			t.Errorf("%q should be raw", name)
		}
	}
	for _, name := range []string{"name", "user_id", "ID", "text"} {
		if r.IsRaw(name) {
			t.Errorf("%q should not be raw", name)
		}
	}

	// An empty suffix disables the suffix rule.
	r.RawSuffix = ""
	if r.IsRaw("payload::text") {
		t.Fatalf("suffix rule should be off")
	}
}

// TestColumnExpr_Forms pins the two server-side forms: raw columns are
// quoted directly, everything else goes through ::text with a NULL fallback.
func TestColumnExpr_Forms(t *testing.T) {
	r := DefaultRules()
	cases := []struct{ col, want string }{
		{"id", `quote_literal("id")`},
		{"created_at", `quote_literal("created_at")`},
		{"updated_at", `quote_literal("updated_at")`},
		{"name", `COALESCE(quote_literal("name"::text), 'NULL')`},
		{"isActive", `COALESCE(quote_literal("isActive"::text), 'NULL')`},
		{"amount::text", `quote_literal(amount::text)`},
	}
	for _, c := range cases {
		if got := r.ColumnExpr(c.col); got != c.want {
			t.Errorf("ColumnExpr(%q) = %s, want %s", c.col, got, c.want)
		}
	}
}

func TestColumnExpr_CustomRawColumns(t *testing.T) {
	r := Rules{RawColumns: []string{"uuid"}}
	if got := r.ColumnExpr("id"); !strings.HasPrefix(got, "COALESCE(") {
		t.Fatalf("id is not raw under custom rules: %s", got)
	}
	if got := r.ColumnExpr("uuid"); got != `quote_literal("uuid")` {
		t.Fatalf("uuid: %s", got)
	}
}

func TestInsertQuery(t *testing.T) {
	cols := []db.Column{{Name: "id"}, {Name: "name"}, {Name: "created_at"}}
	got := DefaultRules().InsertQuery("users", cols)
	want := `SELECT 'INSERT INTO users VALUES (' || quote_literal("id") || ',' || ` +
		`COALESCE(quote_literal("name"::text), 'NULL') || ',' || quote_literal("created_at") || ` +
		`');' AS insert_statement FROM "users";`
	if got != want {
		t.Fatalf("InsertQuery:\n got %s\nwant %s", got, want)
	}
}

// TestInsertQuery_HostileTableName checks that a name with quotes cannot
// break out of either the string prefix or the FROM clause.
func TestInsertQuery_HostileTableName(t *testing.T) {
	got := DefaultRules().InsertQuery(`a'b"c`, []db.Column{{Name: "id"}})
	if !strings.HasPrefix(got, `SELECT 'INSERT INTO "a''b""c" VALUES (' || `) {
		t.Fatalf("prefix not escaped: %s", got)
	}
	if !strings.HasSuffix(got, `FROM "a'b""c";`) {
		t.Fatalf("FROM not quoted: %s", got)
	}
}
