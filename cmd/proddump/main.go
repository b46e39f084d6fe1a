// Command proddump writes every row of every base table in a schema to
// complete_production_dump.sql as INSERT statements, wrapped so that replay
// suspends foreign-key and trigger enforcement.
//
// It serves as a thin composition layer with minimal logic and clear seams
// to enable hermetic tests. All side effects (source construction, clock,
// log output) are injected via Deps.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"proddump/internal/config"
	"proddump/internal/db"
	"proddump/internal/dump"
	"proddump/internal/literal"
	"proddump/internal/logging"
	"proddump/internal/skiplog"
)

// Deps holds injectable dependencies so run() is fully testable. In tests,
// we pass fakes here; in production, defaultDeps() provides real funcs.
type Deps struct {
	// Open connects the source database for a driver.
	Open func(ctx context.Context, driver, dsn string) (db.Source, error)

	Now    func() time.Time
	LogOut io.Writer
}

// defaultDeps wires production implementations. Tests should inject fakes.
func defaultDeps() Deps {
	return Deps{
		Open:   db.Open,
		Now:    time.Now,
		LogOut: os.Stderr,
	}
}

// run executes one dump given a config and injected Deps. It:
//
//  1. Validates the config and builds the logger.
//  2. Opens the source, decorated with the configured round-trip limits.
//  3. Picks server-side or local literal rendering.
//  4. Builds and writes the dump; per-table problems are logged and skipped.
//  5. Optionally writes the skip report.
func run(ctx context.Context, cfg *config.Config, deps Deps) (*dump.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, deps.LogOut)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"driver":      cfg.Driver,
		"schema":      cfg.Schema,
		"literalizer": cfg.Literalizer,
		"output":      cfg.Output,
	}).Info("Starting dump")

	src, err := deps.Open(ctx, cfg.Driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	defer func() {
		if err := src.Close(ctx); err != nil {
			logger.WithError(err).Warn("Close source")
		}
	}()

	var stmts dump.Statements = dump.ServerStatements{Rules: cfg.Rules()}
	if cfg.Literalizer == config.LiteralizerLocal {
		stmts = dump.LocalStatements{Codec: literal.Codec{Rules: cfg.Rules()}}
	}

	d := dump.New(db.WithLimits(src, cfg.Limits()), dump.Options{
		Schema:     cfg.Schema,
		Exclude:    cfg.Exclude,
		Statements: stmts,
		Now:        deps.Now,
		Log:        logger,
	})
	res, err := d.Run(ctx, cfg.Output)
	if err != nil {
		return nil, err
	}

	if cfg.SkipReport != "" {
		stats, err := skiplog.Write(cfg.SkipReport, res.Tables)
		if err != nil {
			// The dump itself is complete; a missing report is not fatal.
			logger.WithError(err).Warn("Failed to write skip report")
			return res, nil
		}
		logger.WithFields(logrus.Fields{
			"path":     cfg.SkipReport,
			"excluded": stats.Count(skiplog.ReasonExcluded),
			"skipped":  stats.Count(skiplog.ReasonSkipped),
		}).Info("Skip report written")
	}
	return res, nil
}

// main is intentionally tiny. It loads config, builds real deps, and runs.
// A run-aborting error is fatal; we log once and exit non-zero.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	if _, err := run(context.Background(), cfg, defaultDeps()); err != nil {
		logrus.Fatal(err)
	}
}
