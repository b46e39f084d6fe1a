// Package skiplog writes a CSV report of every table that did not make it
// into the dump intact, one row per reason.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"proddump/internal/dump"
)

// Reasons recorded in the report.
const (
	ReasonExcluded   = "excluded"
	ReasonSkipped    = "skipped"
	ReasonCountError = "count_error"
	ReasonInsertErr  = "insert_error"
	ReasonDropped    = "dropped_rows"
)

// Header is the first row of every report.
var Header = []string{"reason", "table", "rows", "detail"}

// Stats counts report rows per reason.
type Stats struct {
	reasons map[string]int
	w       *csv.Writer
}

// NewStats creates path (and its parent directory) and writes the header.
// The returned close func flushes and closes the file.
func NewStats(path string) (*Stats, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return &Stats{reasons: make(map[string]int), w: w}, func() error {
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}, nil
}

// Add records one row.
func (s *Stats) Add(reason, table string, rows int, detail string) {
	s.reasons[reason]++
	_ = s.w.Write([]string{reason, table, strconv.Itoa(rows), detail})
}

// Count returns how many rows were recorded for reason.
func (s *Stats) Count(reason string) int { return s.reasons[reason] }

// AddOutcomes records every table outcome that deviates from a clean dump.
// A table can contribute more than one row (a failed count and dropped rows).
func (s *Stats) AddOutcomes(tables []dump.TableOutcome) {
	for _, t := range tables {
		switch {
		case t.Excluded:
			s.Add(ReasonExcluded, t.Name, 0, "")
			continue
		case t.Skipped != nil:
			s.Add(ReasonSkipped, t.Name, 0, t.Skipped.Error())
			continue
		}
		if t.CountErr != nil {
			s.Add(ReasonCountError, t.Name, 0, t.CountErr.Error())
		}
		if t.InsertErr != nil {
			s.Add(ReasonInsertErr, t.Name, 0, t.InsertErr.Error())
		}
		if t.Dropped > 0 {
			s.Add(ReasonDropped, t.Name, t.Dropped, "")
		}
	}
}

// Write is a convenience that creates path and records tables in one call.
func Write(path string, tables []dump.TableOutcome) (*Stats, error) {
	s, closeFn, err := NewStats(path)
	if err != nil {
		return nil, err
	}
	s.AddOutcomes(tables)
	if err := closeFn(); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return s, nil
}
