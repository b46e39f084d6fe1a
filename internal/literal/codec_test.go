package literal

import (
	"errors"
	"math"
	"net/netip"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"proddump/internal/db"
)

func TestCodec_Literal_Null(t *testing.T) {
	c := Codec{Rules: DefaultRules()}

	got, err := c.Literal(db.Column{Name: "name", Type: "text"}, nil)
	if err != nil || got != "NULL" {
		t.Fatalf("NULL non-raw column must be the NULL keyword, never '': got %q err %v", got, err)
	}

	for _, col := range []string{"id", "created_at", "updated_at", "x::text"} {
		if _, err := c.Literal(db.Column{Name: col}, nil); !errors.Is(err, ErrNullRaw) {
			t.Errorf("%s: want ErrNullRaw, got %v", col, err)
		}
	}
}

func TestCodec_Literal_RawColumnQuotedDirectly(t *testing.T) {
	c := Codec{Rules: DefaultRules()}
	got, err := c.Literal(db.Column{Name: "id", Type: "integer"}, int64(42))
	if err != nil {
		t.Fatal(err)
	}
	if got != "'42'" {
		t.Fatalf("id literal = %s", got)
	}
}

func TestCodec_Statement(t *testing.T) {
	c := Codec{Rules: DefaultRules()}
	cols := []db.Column{
		{Name: "id", Type: "integer"},
		{Name: "name", Type: "text"},
		{Name: "active", Type: "boolean"},
		{Name: "created_at", Type: "timestamp without time zone"},
	}
	ts := time.Date(2025, 8, 27, 9, 30, 0, 0, time.UTC)

	got, err := c.Statement("users", cols, []any{int32(7), "O'Neil", true, ts})
	if err != nil {
		t.Fatal(err)
	}
	want := "INSERT INTO users VALUES ('7','O''Neil','true','2025-08-27 09:30:00');"
	if got != want {
		t.Fatalf("Statement:\n got %s\nwant %s", got, want)
	}

	got, err = c.Statement("users", cols, []any{int32(8), nil, nil, ts})
	if err != nil {
		t.Fatal(err)
	}
	if want := "INSERT INTO users VALUES ('8',NULL,NULL,'2025-08-27 09:30:00');"; got != want {
		t.Fatalf("Statement with NULLs:\n got %s\nwant %s", got, want)
	}

	if _, err := c.Statement("users", cols, []any{nil, "x", true, ts}); !errors.Is(err, ErrNullRaw) {
		t.Fatalf("NULL id: want ErrNullRaw, got %v", err)
	}
	if _, err := c.Statement("users", cols, []any{1}); err == nil {
		t.Fatalf("short row must fail")
	}
}

func TestText_Scalars(t *testing.T) {
	cases := []struct {
		name string
		typ  string
		v    any
		want string
	}{
		{"string", "text", "hello", "hello"},
		{"bool false", "boolean", false, "false"},
		{"int16", "smallint", int16(-3), "-3"},
		{"uint64", "bigint", uint64(18446744073709551615), "18446744073709551615"},
		{"float plain", "double precision", 3.25, "3.25"},
		{"float large int", "double precision", 123456789.0, "123456789"},
		{"float exp", "double precision", 1e20, "1e+20"},
		{"float small", "double precision", 0.00001, "1e-05"},
		{"float zero", "double precision", 0.0, "0"},
		{"float4", "real", float32(1234567), "1.234567e+06"},
		{"nan", "double precision", math.NaN(), "NaN"},
		{"inf", "double precision", math.Inf(-1), "-Infinity"},
		{"text bytes", "varchar", []byte("abc"), "abc"},
		{"bytea", "bytea", []byte{0xde, 0xad, 0xbe, 0xef}, `\xdeadbeef`},
		{"blob", "blob", []byte{0x01}, `\x01`},
		{"uuid array", "uuid", [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}, "12345678-9abc-def0-1234-56789abcdef0"},
		{"inet host", "inet", netip.MustParsePrefix("10.0.0.1/32"), "10.0.0.1"},
		{"inet net", "inet", netip.MustParsePrefix("10.0.0.0/8"), "10.0.0.0/8"},
		{"cidr", "cidr", netip.MustParsePrefix("10.0.0.1/32"), "10.0.0.1/32"},
		{"pg time", "time without time zone", pgtype.Time{Microseconds: (13*3600+5*60+7)*1_000_000 + 250_000, Valid: true}, "13:05:07.25"},
	}
	for _, c := range cases {
		got, err := Text(c.typ, c.v)
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s: Text = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestText_Times(t *testing.T) {
	ts := time.Date(2024, 2, 29, 23, 59, 58, 123456000, time.UTC)
	cases := []struct{ typ, want string }{
		{"date", "2024-02-29"},
		{"timestamp without time zone", "2024-02-29 23:59:58.123456"},
		{"datetime", "2024-02-29 23:59:58.123456"},
		{"timestamp with time zone", "2024-02-29 23:59:58.123456+00"},
		{"datetimeoffset", "2024-02-29 23:59:58.123456+00"},
		{"time", "23:59:58.123456"},
	}
	for _, c := range cases {
		if got, _ := Text(c.typ, ts); got != c.want {
			t.Errorf("%s: %q, want %q", c.typ, got, c.want)
		}
	}

	// Whole seconds print without a fraction; offsets are normalized to UTC.
	zone := time.FixedZone("IST", 5*3600+30*60)
	got, _ := Text("timestamptz", time.Date(2025, 1, 1, 5, 30, 0, 0, zone))
	if got != "2025-01-01 00:00:00+00" {
		t.Fatalf("timestamptz: %q", got)
	}
}

func TestOffsetText(t *testing.T) {
	cases := []struct {
		off  int
		want string
	}{
		{0, "+00"},
		{-8 * 3600, "-08"},
		{5*3600 + 30*60, "+05:30"},
		{-(3*3600 + 30*60), "-03:30"},
	}
	for _, c := range cases {
		tm := time.Date(2025, 1, 1, 0, 0, 0, 0, time.FixedZone("", c.off))
		if got := offsetText(tm); got != c.want {
			t.Errorf("offset %d: %q, want %q", c.off, got, c.want)
		}
	}
}

// TestText_JSONB checks the server's canonical jsonb text: keys sorted by
// length first, spaced separators, no HTML escaping.
func TestText_JSONB(t *testing.T) {
	v := map[string]any{
		"bb":  []any{float64(1), "x", nil},
		"a":   true,
		"ccc": map[string]any{"z": "<b>", "yy": float64(2.5)},
	}
	got, err := Text("jsonb", v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a": true, "bb": [1, "x", null], "ccc": {"z": "<b>", "yy": 2.5}}`
	if got != want {
		t.Fatalf("jsonb:\n got %s\nwant %s", got, want)
	}

	got, err = Text("json", v)
	if err != nil {
		t.Fatal(err)
	}
	want = `{"a":true,"bb":[1,"x",null],"ccc":{"yy":2.5,"z":"<b>"}}`
	if got != want {
		t.Fatalf("json:\n got %s\nwant %s", got, want)
	}
}

func TestText_Arrays(t *testing.T) {
	cases := []struct {
		v    []any
		want string
	}{
		{[]any{int32(1), int32(2), nil}, "{1,2,NULL}"},
		{[]any{"a", "b c", "", "null", `q"t`, `b\s`}, `{a,"b c","","null","q\"t","b\\s"}`},
		{[]any{[]any{int64(1), int64(2)}, []any{int64(3), int64(4)}}, "{{1,2},{3,4}}"},
		{[]any{}, "{}"},
	}
	for _, c := range cases {
		got, err := Text("array", c.v)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Errorf("array %v: %s, want %s", c.v, got, c.want)
		}
	}
}

// TestCodec_Literal_Valuer resolves driver.Valuer values before rendering.
func TestCodec_Literal_Valuer(t *testing.T) {
	c := Codec{Rules: DefaultRules()}
	u := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	got, err := c.Literal(db.Column{Name: "token", Type: "uuid"}, u)
	if err != nil {
		t.Fatal(err)
	}
	if got != "'0f8fad5b-d9cb-469f-a165-70867728950e'" {
		t.Fatalf("uuid literal = %s", got)
	}

	// An invalid pgtype value is NULL.
	got, err = c.Literal(db.Column{Name: "at", Type: "time"}, pgtype.Time{})
	if err != nil || got != "NULL" {
		t.Fatalf("invalid pgtype.Time: %q %v", got, err)
	}
}

func TestCodec_Literal_BackslashUsesEscapeSyntax(t *testing.T) {
	c := Codec{Rules: DefaultRules()}
	got, err := c.Literal(db.Column{Name: "blob", Type: "bytea"}, []byte{0x00, 0xff})
	if err != nil {
		t.Fatal(err)
	}
	if got != `E'\\x00ff'` {
		t.Fatalf("bytea literal = %s", got)
	}
}

// TestCodec_Literal_JSONText checks json and jsonb values arriving as server
// text are written verbatim: scalars stay JSON, big integers keep every
// digit, and json keeps key order, spacing and duplicate keys.
func TestCodec_Literal_JSONText(t *testing.T) {
	c := Codec{Rules: DefaultRules()}
	cases := []struct {
		typ  string
		v    any
		want string
	}{
		{"jsonb", `"abc"`, `'"abc"'`},
		{"jsonb", `42`, `'42'`},
		{"jsonb", `true`, `'true'`},
		{"jsonb", `null`, `'null'`},
		{"jsonb", `{"n": 12345678901234567890}`, `'{"n": 12345678901234567890}'`},
		{"json", `{"b":1,  "a":2, "b":3}`, `'{"b":1,  "a":2, "b":3}'`},
		{"json", []byte(`"it's"`), `'"it''s"'`},
	}
	for _, tc := range cases {
		got, err := c.Literal(db.Column{Name: "payload", Type: tc.typ}, tc.v)
		if err != nil {
			t.Fatalf("%s %v: %v", tc.typ, tc.v, err)
		}
		if got != tc.want {
			t.Errorf("%s %v: %s, want %s", tc.typ, tc.v, got, tc.want)
		}
	}

	// SQL NULL is still NULL, distinct from the JSON text null above.
	if got, _ := c.Literal(db.Column{Name: "payload", Type: "jsonb"}, nil); got != "NULL" {
		t.Fatalf("SQL NULL in jsonb: %s", got)
	}
}

// TestText_DecodedJSONScalars covers decoded values that are not strings:
// they are marshalled, never formatted as plain SQL text.
func TestText_DecodedJSONScalars(t *testing.T) {
	cases := []struct {
		v    any
		want string
	}{
		{true, "true"},
		{float64(42), "42"},
		{float64(2.5), "2.5"},
		{[]any{"a", float64(1)}, `["a", 1]`},
	}
	for _, tc := range cases {
		got, err := Text("jsonb", tc.v)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("Text(jsonb, %#v) = %s, want %s", tc.v, got, tc.want)
		}
	}
}
