// This file provides portable sources over database/sql for SQLite, SQL
// Server and MySQL. They only support raw row scanning; the INSERT text is
// rendered locally since these engines have no quote_literal with Postgres
// semantics.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	_ "modernc.org/sqlite"
)

//
// =======================
//  Testability-first seams
// =======================
//
// sqlDBCore is the minimal subset of *sql.DB we use. It must match *sql.DB.
//

type sqlDBCore interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Close() error
}

// dialect captures the catalog queries and identifier quoting of one engine.
type dialect struct {
	driver      string
	listTables  string
	listColumns string
	quote       func(string) string
	// tableArgs and columnArgs adapt (schema[, table]) to the placeholders of
	// listTables and listColumns.
	tableArgs  func(schema string) []any
	columnArgs func(schema, table string) []any
}

func schemaArg(schema string) []any { return []any{schema} }

var sqliteDialect = dialect{
	driver: DriverSQLite,
	listTables: `
	SELECT name
	FROM sqlite_master
	WHERE type = 'table'
	AND name NOT LIKE 'sqlite_%'
	ORDER BY name`,
	listColumns: `
	SELECT name, type
	FROM pragma_table_info(?)
	ORDER BY cid`,
	quote: doubleQuoteIdent,
	// sqlite has no schemas.
	tableArgs:  func(string) []any { return nil },
	columnArgs: func(_, table string) []any { return []any{table} },
}

var sqlServerDialect = dialect{
	driver: DriverSQLServer,
	listTables: `
	SELECT TABLE_NAME
	FROM INFORMATION_SCHEMA.TABLES
	WHERE TABLE_SCHEMA = @p1
	AND TABLE_TYPE = 'BASE TABLE'
	ORDER BY TABLE_NAME`,
	listColumns: `
	SELECT COLUMN_NAME, DATA_TYPE
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = @p1
	AND TABLE_NAME = @p2
	ORDER BY ORDINAL_POSITION`,
	quote:      bracketIdent,
	tableArgs:  schemaArg,
	columnArgs: func(schema, table string) []any { return []any{schema, table} },
}

var mysqlDialect = dialect{
	driver: DriverMySQL,
	listTables: `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
	AND table_type = 'BASE TABLE'
	ORDER BY table_name`,
	listColumns: `
	SELECT column_name, data_type
	FROM information_schema.columns
	WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
	AND table_name = ?
	ORDER BY ordinal_position`,
	quote:      backtickIdent,
	tableArgs:  schemaArg,
	columnArgs: func(schema, table string) []any { return []any{schema, table} },
}

// sqlSource implements Source on top of database/sql.
type sqlSource struct {
	db sqlDBCore
	d  dialect
}

// NewSQLite opens a SQLite database file (or "file::memory:").
func NewSQLite(ctx context.Context, dsn string) (Source, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	return openSQL(ctx, "sqlite", dsn, sqliteDialect)
}

// NewSQLServer opens a SQL Server connection via go-mssqldb.
func NewSQLServer(ctx context.Context, dsn string) (Source, error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	return openSQL(ctx, "sqlserver", dsn, sqlServerDialect)
}

// NewMySQL opens a MySQL connection. parseTime is forced on so DATETIME
// values arrive as time.Time.
func NewMySQL(ctx context.Context, dsn string) (Source, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return openSQL(ctx, "mysql", cfg.FormatDSN(), mysqlDialect)
}

func openSQL(ctx context.Context, driverName, dsn string, d dialect) (Source, error) {
	sdb, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.driver, err)
	}
	// One connection: the dump is sequential and in-memory SQLite databases
	// are per connection.
	sdb.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sdb.PingContext(pingCtx); err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.driver, err)
	}
	return &sqlSource{db: sdb, d: d}, nil
}

func (s *sqlSource) ListTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.d.listTables, s.d.tableArgs(schema)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *sqlSource) ListColumns(ctx context.Context, schema, table string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, s.d.listColumns, s.d.columnArgs(schema, table)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, err
		}
		c.Type = strings.ToLower(c.Type)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *sqlSource) CountRows(ctx context.Context, table string) (string, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.d.quote(table)).Scan(&n); err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

func (s *sqlSource) QueryLines(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v.String)
	}
	return out, rows.Err()
}

func (s *sqlSource) ScanRows(ctx context.Context, table string, columns []Column, fn func([]any) error) error {
	rows, err := s.db.QueryContext(ctx, selectSQL(s.d.quote, table, columns, nil))
	if err != nil {
		return err
	}
	defer rows.Close()

	vals := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *sqlSource) Close(context.Context) error { return s.db.Close() }

func doubleQuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func bracketIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func backtickIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
