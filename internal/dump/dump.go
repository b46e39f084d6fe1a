// Package dump builds a replayable data dump: every row of every base table
// in a schema as INSERT statements, framed by statements that suspend
// referential integrity during replay.
//
// The run is one sequential pass. The table list is fetched once; each table
// then costs three round trips (columns, count, statements). A failed table
// listing aborts the run before anything is written. Failures on a single
// table are recorded in its TableOutcome and the run moves on.
package dump

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"proddump/internal/db"
)

var (
	// ErrListTables aborts a run: no partial catalog is dumped.
	ErrListTables = errors.New("list tables")
	// ErrColumns and ErrNoColumns skip a single table.
	ErrColumns   = errors.New("list columns")
	ErrNoColumns = errors.New("table has no columns")
)

// UnknownCount is shown in a banner when the row count query fails.
const UnknownCount = "0"

// Options configures a Dumper. Zero values fall back to the defaults noted.
type Options struct {
	Schema     string             // "" means the catalog's default
	Exclude    []string           // table names never dumped
	Statements Statements         // default ServerStatements with literal.DefaultRules
	Now        func() time.Time   // header date; default time.Now
	Log        logrus.FieldLogger // default logrus.StandardLogger()
}

// TableOutcome records what happened to one catalog table.
type TableOutcome struct {
	Name       string
	Excluded   bool
	Skipped    error  // wraps ErrColumns or ErrNoColumns; nil when the table was dumped
	Count      string // banner text
	CountErr   error
	Statements int   // INSERT lines written
	Dropped    int   // rows without a statement (NULL raw column or blank line)
	InsertErr  error // statement round trip failed; the section is empty
}

// Dumped reports whether the table got a section in the output.
func (o TableOutcome) Dumped() bool { return !o.Excluded && o.Skipped == nil }

// Result is the outcome of a run.
type Result struct {
	Tables []TableOutcome
	Lines  []string
	Path   string // set once written
	Bytes  int
	Digest uint64 // see Digest; equal for equal data regardless of run date
}

// Statements returns the number of INSERT lines across all tables.
func (r *Result) Statements() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Statements
	}
	return n
}

// Dumped returns the number of tables that got a section.
func (r *Result) Dumped() int {
	n := 0
	for _, t := range r.Tables {
		if t.Dumped() {
			n++
		}
	}
	return n
}

// Dumper runs dumps against one Source.
type Dumper struct {
	src     db.Source
	opts    Options
	exclude map[string]bool
}

// New returns a Dumper reading from src.
func New(src db.Source, opts Options) *Dumper {
	if opts.Statements == nil {
		opts.Statements = defaultStatements()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	ex := make(map[string]bool, len(opts.Exclude))
	for _, t := range opts.Exclude {
		ex[t] = true
	}
	return &Dumper{src: src, opts: opts, exclude: ex}
}

// Build runs the whole pass in memory and returns the line sequence. It
// returns an error wrapping ErrListTables only when the table list cannot be
// fetched.
func (d *Dumper) Build(ctx context.Context) (*Result, error) {
	log := d.opts.Log

	tables, err := d.src.ListTables(ctx, d.opts.Schema)
	if err != nil {
		log.WithFields(errFields(err)).Error("Failed to get table list")
		return nil, fmt.Errorf("%w: %w", ErrListTables, err)
	}

	res := &Result{Lines: header(d.opts.Now())}
	for _, table := range tables {
		if d.exclude[table] {
			log.WithField("table", table).Debug("Excluded table")
			res.Tables = append(res.Tables, TableOutcome{Name: table, Excluded: true})
			continue
		}
		out, lines := d.table(ctx, table)
		res.Tables = append(res.Tables, out)
		res.Lines = append(res.Lines, lines...)
	}
	res.Lines = append(res.Lines, footer()...)
	return res, nil
}

// table dumps one table and returns its outcome and section lines.
func (d *Dumper) table(ctx context.Context, table string) (TableOutcome, []string) {
	log := d.opts.Log.WithField("table", table)
	log.Info("Processing table")
	out := TableOutcome{Name: table}

	columns, err := d.src.ListColumns(ctx, d.opts.Schema, table)
	if err != nil {
		log.WithFields(errFields(err)).Warn("Failed to get columns; skipping table")
		out.Skipped = fmt.Errorf("%w: %w", ErrColumns, err)
		return out, nil
	}
	if len(columns) == 0 {
		log.Warn("No columns; skipping table")
		out.Skipped = ErrNoColumns
		return out, nil
	}

	out.Count, out.CountErr = d.src.CountRows(ctx, table)
	if out.CountErr != nil {
		log.WithFields(errFields(out.CountErr)).Warn("Failed to count rows")
		out.Count = UnknownCount
	}
	lines := banner(table, out.Count)

	log.Debug("Generating INSERT statements")
	stmts, dropped, err := d.opts.Statements.Build(ctx, d.src, table, columns)
	if err != nil {
		log.WithFields(errFields(err)).Warn("Failed to generate INSERT statements")
		out.InsertErr = err
	}
	out.Dropped = dropped
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			out.Dropped++
			continue
		}
		lines = append(lines, s)
		out.Statements++
	}
	if out.Dropped > 0 {
		log.WithField("rows", out.Dropped).Warn("Rows without a statement (NULL raw column)")
	}
	return out, append(lines, "")
}

// Run builds the dump and writes it to path, overwriting any existing file.
// Nothing is written when Build fails.
func (d *Dumper) Run(ctx context.Context, path string) (*Result, error) {
	res, err := d.Build(ctx)
	if err != nil {
		return nil, err
	}
	n, err := WriteFile(path, res.Lines)
	if err != nil {
		return res, fmt.Errorf("write %s: %w", path, err)
	}
	sum := Digest(res.Lines)
	res.Path, res.Bytes, res.Digest = path, n, sum
	d.opts.Log.WithFields(logrus.Fields{
		"path":       path,
		"tables":     res.Dumped(),
		"statements": res.Statements(),
		"bytes":      n,
		"xxh3":       fmt.Sprintf("%016x", sum),
	}).Info("Complete production dump generated")
	return res, nil
}

// errFields adds the SQLSTATE of server-side errors to the log fields.
func errFields(err error) logrus.Fields {
	f := logrus.Fields{"error": err}
	if code, ok := db.IsPgError(err); ok {
		f["sqlstate"] = code
	}
	return f
}
