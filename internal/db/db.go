package db

import (
	"context"
	"fmt"
)

// Column is one catalog column in ordinal order. Type is the declared type as
// reported by the catalog (information_schema.columns.data_type or the SQLite
// declared type), lowercased.
type Column struct {
	Name string
	Type string
}

// Source is the database being dumped. Every method is one round trip.
type Source interface {
	// ListTables returns base table names of schema in ascending order.
	ListTables(ctx context.Context, schema string) ([]string, error)
	// ListColumns returns the columns of table in ordinal order.
	ListColumns(ctx context.Context, schema, table string) ([]Column, error)
	// CountRows returns the row count of table as decimal text.
	CountRows(ctx context.Context, table string) (string, error)
	// QueryLines runs a single-column text query and returns one element per
	// row. NULL values come back as "".
	QueryLines(ctx context.Context, query string) ([]string, error)
	// ScanRows selects columns from table and calls fn once per row with the
	// driver-decoded values. The slice passed to fn is reused between rows.
	ScanRows(ctx context.Context, table string, columns []Column, fn func(values []any) error) error
	Close(ctx context.Context) error
}

// ServerFormatting reports whether a driver's Source can render INSERT text
// itself through QueryLines (quote_literal and friends).
func ServerFormatting(driver string) bool { return driver == DriverPostgres }

// Supported driver names.
const (
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
	DriverSQLServer = "sqlserver"
	DriverMySQL     = "mysql"
)

// Open connects the Source implementation for driver.
func Open(ctx context.Context, driver, dsn string) (Source, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgres(ctx, dsn)
	case DriverSQLite:
		return NewSQLite(ctx, dsn)
	case DriverSQLServer:
		return NewSQLServer(ctx, dsn)
	case DriverMySQL:
		return NewMySQL(ctx, dsn)
	default:
		return nil, &UnsupportedDriverError{Driver: driver}
	}
}

// UnsupportedDriverError is returned by Open for an unknown driver name.
type UnsupportedDriverError struct{ Driver string }

func (e *UnsupportedDriverError) Error() string {
	return fmt.Sprintf("unsupported driver %q", e.Driver)
}

// DefaultSchema is the schema dumped when none is configured.
func DefaultSchema(driver string) string {
	switch driver {
	case DriverPostgres:
		return "public"
	case DriverSQLServer:
		return "dbo"
	default:
		// mysql resolves "" to DATABASE(); sqlite has no schemas.
		return ""
	}
}
