// Package config centralizes dump configuration. All tunables are sourced
// from command-line flags with environment-variable fallbacks (12-factor
// friendly), optionally seeded from an INI file. Flags are defined first so
// that `-help` shows all available knobs and their defaults.
//
// Precedence, highest first: explicit flag, environment variable, INI file,
// built-in default.
//
// Typical usage:
//
//	cfg, err := config.Load() // reads os.Args and os.Environ
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-literalizer=local"})
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"proddump/internal/db"
	"proddump/internal/literal"
)

// Literalizer modes.
const (
	LiteralizerServer = "server"
	LiteralizerLocal  = "local"
)

// Config holds all process configuration derived from flags, environment
// variables and the optional INI file. The struct is not mutated after
// LoadFromArgs returns.
type Config struct {
	// Source database.
	DatabaseURL string // Connection string; "" lets the driver fail to connect.
	Driver      string // postgres, sqlite, sqlserver or mysql.
	Schema      string // Schema to dump; defaults per driver ("public" for postgres).

	// Output shape.
	Output      string   // Dump file path, overwritten on success.
	Exclude     []string // Tables never dumped.
	RawColumns  []string // Columns quoted directly with no NULL fallback.
	RawSuffix   string   // Column-name suffix that also marks a raw column.
	Literalizer string   // "server" (quote_literal on the database) or "local".

	// Round-trip limits.
	QueryTimeout time.Duration // Per round trip; 0 disables.
	MaxQPS       float64       // Round trips per second; 0 disables.

	SkipReport string // Optional CSV of excluded, skipped and degraded tables.
	LogLevel   string // logrus level name.
	ConfigFile string // Optional INI file.
}

// setting maps one flag to its environment variable and INI location.
type setting struct {
	flag, env, section, key string
}

var settings = []setting{
	{"database_url", "DATABASE_URL", "database", "url"},
	{"driver", "DUMP_DRIVER", "database", "driver"},
	{"schema", "DUMP_SCHEMA", "database", "schema"},
	{"output", "DUMP_OUTPUT", "dump", "output"},
	{"exclude", "DUMP_EXCLUDE", "dump", "exclude"},
	{"raw_columns", "DUMP_RAW_COLUMNS", "dump", "raw_columns"},
	{"raw_suffix", "DUMP_RAW_SUFFIX", "dump", "raw_suffix"},
	{"literalizer", "DUMP_LITERALIZER", "dump", "literalizer"},
	{"query_timeout", "DUMP_QUERY_TIMEOUT", "limits", "query_timeout"},
	{"max_qps", "DUMP_MAX_QPS", "limits", "max_qps"},
	{"skip_report", "DUMP_SKIP_REPORT", "dump", "skip_report"},
	{"log_level", "LOG_LEVEL", "log", "level"},
}

// DefaultOutput is the dump file name used when none is configured.
const DefaultOutput = "complete_production_dump.sql"

// LoadFromArgs builds a Config by defining flags on fs, wiring each flag to
// an environment-variable fallback via getenv, parsing args, and finally
// filling still-unset values from the INI file named by -config.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	// Inline helpers use the provided getenv to avoid touching process env.
	envOrDefaultFn := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	durationEnvOrDefaultFn := func(k string, d time.Duration) time.Duration {
		if v := getenv(k); v != "" {
			if dur, err := time.ParseDuration(v); err == nil {
				return dur
			}
		}
		return d
	}
	floatEnvOrDefaultFn := func(k string, d float64) float64 {
		if v := getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return d
	}

	var exclude, rawColumns string
	defaults := literal.DefaultRules()

	// Source database
	fs.StringVar(&cfg.DatabaseURL, "database_url", getenv("DATABASE_URL"), "Database connection string")
	fs.StringVar(&cfg.Driver, "driver", envOrDefaultFn("DUMP_DRIVER", db.DriverPostgres), "Database driver: postgres, sqlite, sqlserver or mysql")
	fs.StringVar(&cfg.Schema, "schema", getenv("DUMP_SCHEMA"), "Schema to dump (default: public for postgres, dbo for sqlserver)")

	// Output shape
	fs.StringVar(&cfg.Output, "output", envOrDefaultFn("DUMP_OUTPUT", DefaultOutput), "Dump file path (overwritten)")
	fs.StringVar(&exclude, "exclude", envOrDefaultFn("DUMP_EXCLUDE", "sessions"), "Comma-separated tables to skip")
	fs.StringVar(&rawColumns, "raw_columns", envOrDefaultFn("DUMP_RAW_COLUMNS", strings.Join(defaults.RawColumns, ",")), "Comma-separated columns quoted directly")
	fs.StringVar(&cfg.RawSuffix, "raw_suffix", envOrDefaultFn("DUMP_RAW_SUFFIX", defaults.RawSuffix), "Column-name suffix marking a raw column")
	fs.StringVar(&cfg.Literalizer, "literalizer", envOrDefaultFn("DUMP_LITERALIZER", LiteralizerServer), "Literal rendering: server or local")

	// Limits
	fs.DurationVar(&cfg.QueryTimeout, "query_timeout", durationEnvOrDefaultFn("DUMP_QUERY_TIMEOUT", 0), "Timeout per database round trip (0 = none)")
	fs.Float64Var(&cfg.MaxQPS, "max_qps", floatEnvOrDefaultFn("DUMP_MAX_QPS", 0), "Max database round trips per second (0 = unlimited)")

	// Misc
	fs.StringVar(&cfg.SkipReport, "skip_report", getenv("DUMP_SKIP_REPORT"), "Optional CSV report of tables not dumped intact")
	fs.StringVar(&cfg.LogLevel, "log_level", envOrDefaultFn("LOG_LEVEL", "info"), "Log level")
	fs.StringVar(&cfg.ConfigFile, "config", getenv("DUMP_CONFIG"), "Optional INI config file")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		explicit := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		for _, s := range settings {
			if getenv(s.env) != "" {
				explicit[s.flag] = true
			}
		}
		if err := applyFile(fs, cfg.ConfigFile, explicit); err != nil {
			return nil, err
		}
	}

	cfg.Exclude = splitList(exclude)
	cfg.RawColumns = splitList(rawColumns)
	if cfg.Schema == "" {
		cfg.Schema = db.DefaultSchema(cfg.Driver)
	}
	return cfg, nil
}

// Load is the production entry point. It wires the loader to the process
// flag set (flag.CommandLine), reads environment variables via os.Getenv,
// and parses os.Args[1:] as the CLI arguments.
func Load() (*Config, error) {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// Validate reports configuration that cannot produce a dump.
func (c *Config) Validate() error {
	var errs []error
	switch c.Driver {
	case db.DriverPostgres, db.DriverSQLite, db.DriverSQLServer, db.DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("unsupported -driver=%q", c.Driver))
	}
	switch c.Literalizer {
	case LiteralizerLocal:
	case LiteralizerServer:
		if !db.ServerFormatting(c.Driver) {
			errs = append(errs, fmt.Errorf("-literalizer=server needs -driver=postgres, got %q (use -literalizer=local)", c.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported -literalizer=%q", c.Literalizer))
	}
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("-output must not be empty"))
	}
	if c.QueryTimeout < 0 {
		errs = append(errs, errors.New("-query_timeout must not be negative"))
	}
	if c.MaxQPS < 0 {
		errs = append(errs, errors.New("-max_qps must not be negative"))
	}
	return errors.Join(errs...)
}

// Rules returns the raw-column rules for the literalizers.
func (c *Config) Rules() literal.Rules {
	return literal.Rules{RawColumns: c.RawColumns, RawSuffix: c.RawSuffix}
}

// Limits returns the per-round-trip limits for db.WithLimits.
func (c *Config) Limits() db.Limits {
	return db.Limits{Timeout: c.QueryTimeout, QPS: c.MaxQPS, Burst: 1}
}

// splitList splits a comma-separated list, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
