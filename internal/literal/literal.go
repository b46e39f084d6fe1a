// Package literal turns column values into replayable SQL literals.
//
// Two strategies exist. InsertQuery composes a query that makes Postgres
// render each row as INSERT text itself (quote_literal on the server). Codec
// renders values locally, keyed on the column's declared type, reproducing
// what quote_literal(value::text) would have returned.
package literal

import (
	"errors"
	"regexp"
	"strings"

	"proddump/internal/db"
)

// ErrNullRaw is returned when a raw column holds NULL. Server side,
// quote_literal(NULL) nulls the whole concatenation, so such a row produces
// no statement; the codec reports it the same way.
var ErrNullRaw = errors.New("raw column is NULL")

// NullKeyword is the unquoted SQL null emitted for NULL values.
const NullKeyword = "NULL"

// Literalizer converts one column value into SQL literal text.
type Literalizer interface {
	Literal(col db.Column, v any) (string, error)
}

// Rules decides which columns are "raw": already textual and quoted directly
// with no NULL fallback.
type Rules struct {
	RawColumns []string
	RawSuffix  string // e.g. "::text"; "" disables the suffix rule
}

// DefaultRules returns the stock raw column set.
func DefaultRules() Rules {
	return Rules{
		RawColumns: []string{"id", "created_at", "updated_at"},
		RawSuffix:  "::text",
	}
}

// IsRaw reports whether column name is quoted directly.
func (r Rules) IsRaw(name string) bool {
	if r.hasSuffix(name) {
		return true
	}
	for _, c := range r.RawColumns {
		if c == name {
			return true
		}
	}
	return false
}

func (r Rules) hasSuffix(name string) bool {
	return r.RawSuffix != "" && strings.HasSuffix(name, r.RawSuffix)
}

// QuoteLiteral mirrors Postgres quote_literal: single quotes are doubled and,
// if the text contains a backslash, backslashes are doubled and the literal
// gets an E prefix.
func QuoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 3)
	if strings.Contains(s, `\`) {
		b.WriteByte('E')
	}
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// Ident renders a table name for emitted INSERT text. Plain lowercase names
// stay verbatim; anything else is double-quoted.
func Ident(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return db.QuoteIdent(name)
}

// InsertPrefix is the text every generated statement for table starts with.
func InsertPrefix(table string) string {
	return "INSERT INTO " + Ident(table) + " VALUES ("
}

// InsertSuffix closes every generated statement.
const InsertSuffix = ");"

// ColumnExpr returns the server-side expression that renders col as a
// literal. Raw columns use quote_literal directly; a name carrying the raw
// suffix is itself an expression and is spliced verbatim. Every other column
// is cast to text and falls back to NULL.
func (r Rules) ColumnExpr(col string) string {
	switch {
	case r.hasSuffix(col):
		return "quote_literal(" + col + ")"
	case r.IsRaw(col):
		return "quote_literal(" + db.QuoteIdent(col) + ")"
	default:
		return "COALESCE(quote_literal(" + db.QuoteIdent(col) + "::text), '" + NullKeyword + "')"
	}
}

// InsertQuery composes the query that asks Postgres to produce one
// INSERT INTO <table> VALUES (...); line per row of table.
func (r Rules) InsertQuery(table string, columns []db.Column) string {
	exprs := make([]string, len(columns))
	for i, c := range columns {
		exprs[i] = r.ColumnExpr(c.Name)
	}
	return "SELECT " + QuoteLiteral(InsertPrefix(table)) + " || " +
		strings.Join(exprs, " || ',' || ") +
		" || " + QuoteLiteral(InsertSuffix) + " AS insert_statement FROM " + db.QuoteIdent(table) + ";"
}
