// Package db provides the database sources a dump reads from. This file
// contains the Postgres source, which wraps a pgx.Conn while remaining
// testable via a lightweight seam.
//
// Design goals:
//   - Allow mocking via the pgConnLike interface (for hermetic unit tests).
//   - Keep behavior minimal and predictable: no implicit retries.
//   - Bind catalog parameters; only identifiers are spliced into SQL text.
package db

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//
// ===========================
//  Interface seam for testing
// ===========================
//
// pgConnLike defines the minimal subset of methods used from *pgx.Conn.
// This seam allows injecting a test double that mimics *pgx.Conn behavior,
// enabling hermetic (non-networked) testing of the source.
//

type pgConnLike interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

const (
	pgListTablesSQL = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1
	AND table_type = 'BASE TABLE'
	ORDER BY table_name`

	pgListColumnsSQL = `
	SELECT column_name, data_type
	FROM information_schema.columns
	WHERE table_schema = $1
	AND table_name = $2
	ORDER BY ordinal_position`
)

// pgSource is the Postgres implementation of Source.
type pgSource struct{ conn pgConnLike }

// NewPostgres connects with pgx.Connect and wraps the connection. Callers are
// responsible for closing it via Close().
func NewPostgres(ctx context.Context, dsn string) (Source, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &pgSource{conn: c}, nil
}

func (p *pgSource) ListTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := p.conn.Query(ctx, pgListTablesSQL, schema)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p *pgSource) ListColumns(ctx context.Context, schema, table string) ([]Column, error) {
	rows, err := p.conn.Query(ctx, pgListColumnsSQL, schema, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Column, error) {
		var c Column
		err := row.Scan(&c.Name, &c.Type)
		c.Type = strings.ToLower(c.Type)
		return c, err
	})
}

// CountRows runs SELECT COUNT(*) against table.
func (p *pgSource) CountRows(ctx context.Context, table string) (string, error) {
	var n int64
	if err := p.conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&n); err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

// QueryLines scans a single text column per row. A NULL row (for example a
// concatenation that hit a NULL operand) yields "".
func (p *pgSource) QueryLines(ctx context.Context, query string) ([]string, error) {
	rows, err := p.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var s *string
		if err := row.Scan(&s); err != nil {
			return "", err
		}
		if s == nil {
			return "", nil
		}
		return *s, nil
	})
}

// ScanRows streams table rows decoded by pgx into Go values. json and jsonb
// columns are read as their server text so numbers, key order and
// whitespace survive untouched.
func (p *pgSource) ScanRows(ctx context.Context, table string, columns []Column, fn func([]any) error) error {
	rows, err := p.conn.Query(ctx, selectSQL(QuoteIdent, table, columns, pgTextTypes))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return err
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the underlying connection.
func (p *pgSource) Close(ctx context.Context) error { return p.conn.Close(ctx) }

// QuoteIdent quotes a Postgres identifier, doubling embedded quotes. It is
// the single quoting rule for every identifier sent to or written for
// Postgres.
func QuoteIdent(name string) string { return pgx.Identifier{name}.Sanitize() }

// pgTextTypes are selected as col::text by ScanRows.
var pgTextTypes = map[string]bool{"json": true, "jsonb": true}

// selectSQL builds SELECT <cols> FROM <table> with dialect-specific quoting.
// Columns whose type is in asText are cast to text.
func selectSQL(quote func(string) string, table string, columns []Column, asText map[string]bool) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quote(c.Name)
		if asText[c.Type] {
			cols[i] += "::text"
		}
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + quote(table)
}

// IsPgError reports whether err carries a server-side Postgres error and
// returns its SQLSTATE.
func IsPgError(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	return pgErr.SQLState(), true
}

// newPgSourceFromConn constructs a pgSource from a pgConnLike fake.
// Used exclusively in unit tests.
func newPgSourceFromConn(c pgConnLike) *pgSource { return &pgSource{conn: c} }
