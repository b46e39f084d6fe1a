package dump

import (
	"context"
	"errors"

	"proddump/internal/db"
	"proddump/internal/literal"
)

// Statements produces the INSERT text of one table. Dropped counts rows that
// yielded no statement because a raw column was NULL.
type Statements interface {
	Build(ctx context.Context, src db.Source, table string, columns []db.Column) (lines []string, dropped int, err error)
}

// ServerStatements delegates literal rendering to the database: it composes
// one formatting query per table and runs it through QueryLines.
type ServerStatements struct {
	Rules literal.Rules
}

func (s ServerStatements) Build(ctx context.Context, src db.Source, table string, columns []db.Column) ([]string, int, error) {
	rows, err := src.QueryLines(ctx, s.Rules.InsertQuery(table, columns))
	if err != nil {
		return nil, 0, err
	}
	lines := rows[:0]
	dropped := 0
	for _, r := range rows {
		if r == "" {
			dropped++
			continue
		}
		lines = append(lines, r)
	}
	return lines, dropped, nil
}

// LocalStatements scans raw values and renders them with a literal.Codec.
type LocalStatements struct {
	Codec literal.Codec
}

func (s LocalStatements) Build(ctx context.Context, src db.Source, table string, columns []db.Column) ([]string, int, error) {
	var lines []string
	dropped := 0
	err := src.ScanRows(ctx, table, columns, func(values []any) error {
		stmt, err := s.Codec.Statement(table, columns, values)
		if errors.Is(err, literal.ErrNullRaw) {
			dropped++
			return nil
		}
		if err != nil {
			return err
		}
		lines = append(lines, stmt)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return lines, dropped, nil
}

func defaultStatements() Statements {
	return ServerStatements{Rules: literal.DefaultRules()}
}
