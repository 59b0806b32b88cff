// Package config centralizes application configuration. It follows a
// "clean" configuration pattern where all tunables live outside the
// code and are sourced from command-line flags with environment-variable
// fallbacks (12-factor friendly). Flags are defined first so that
// `-help` shows all available knobs and their defaults.
//
// Typical usage:
//
//	cfg, err := config.Load() // reads os.Args and os.Environ
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-workers=4"})
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TablePair names one CSV data file plus its metadata sidecar, and the
// logical table name documents extracted from it are tagged with in
// the sink.
type TablePair struct {
	Table string
	Data  string
	Meta  string
}

// Config holds all process configuration derived from flags and
// environment variables. All fields are plain values so the struct
// can be safely copied and used across goroutines after construction.
type Config struct {
	// Dir is the base directory every Data/Meta path in Tables is
	// resolved against (internal/pathutil.Resolve rejects ".." in
	// either half of the join).
	Dir string

	// Tables lists every CSV+metadata pair to import, parsed from
	// the -tables flag (or TABLES env var): "name=data.csv:meta.txt"
	// entries separated by commas.
	Tables []TablePair

	// DB describes the target database. For MSSQL a full DSN is required.
	// For Postgres, DSN is optional (it can be built from discrete parts).
	DBDriver   string // Database driver: "postgres" or "mssql".
	DSN        string // Full DSN (required for mssql; optional for postgres).
	DBUser     string // Database username (Postgres convenience).
	DBPassword string // Database password (Postgres convenience).
	DBHost     string // Database host (Postgres convenience).
	DBPort     string // Database port (Postgres convenience).
	DBName     string // Database name (Postgres convenience).

	// Import tunables control ingestion throughput.
	BatchSize int // Number of documents per CopyInto batch.
	Workers   int // Number of CSV+metadata pairs imported concurrently.

	// CheckpointDir is the pebble database directory used to skip
	// unchanged files across runs. Empty disables checkpointing.
	CheckpointDir string

	// Watch enables re-ingestion on file change (internal/watch).
	Watch bool

	// Schedule is a cron expression (robfig/cron/v3 syntax) for
	// periodic re-ingestion. Empty disables scheduling.
	Schedule string

	// DiagnosticsDir, if set, makes the importer write one line per
	// record whose field count didn't match its schema to a
	// diagnostics file under this directory (teacher's skipStats
	// idiom, kept at the CLI layer only — see SPEC_FULL.md §6).
	DiagnosticsDir string
}

// ParseTables parses the -tables flag syntax: comma-separated
// "name=data.csv:meta.txt" entries.
func ParseTables(spec string) ([]TablePair, error) {
	if spec == "" {
		return nil, nil
	}
	entries := strings.Split(spec, ",")
	pairs := make([]TablePair, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		nameRest := strings.SplitN(e, "=", 2)
		if len(nameRest) != 2 {
			return nil, fmt.Errorf("config: invalid table entry %q: want name=data:meta", e)
		}
		pathPair := strings.SplitN(nameRest[1], ":", 2)
		if len(pathPair) != 2 {
			return nil, fmt.Errorf("config: invalid table entry %q: want name=data:meta", e)
		}
		pairs = append(pairs, TablePair{
			Table: nameRest[0],
			Data:  pathPair[0],
			Meta:  pathPair[1],
		})
	}
	return pairs, nil
}

// LoadFromArgs builds a Config by defining flags on fs, wiring each flag
// to an environment-variable fallback via getenv, and then parsing args.
// This is the most testable entry point: callers supply a private FlagSet,
// a getenv func (often backed by a map), and a synthetic arg slice.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit CLI flags (in args) override the seeded defaults.
//
// The returned Config is fully populated; no further mutation occurs.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	// Inline helpers use the provided getenv to avoid touching process env.
	envOrDefaultFn := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOrDefaultFn := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOrDefaultFn := func(k string, d bool) bool {
		if v := strings.ToLower(getenv(k)); v != "" {
			switch v {
			case "1", "true", "yes", "on":
				return true
			case "0", "false", "no", "off":
				return false
			}
		}
		return d
	}

	// IO
	fs.StringVar(&cfg.Dir, "dir", envOrDefaultFn("DIR", "."), "Base directory for data/metadata paths")
	var tablesFlag string
	fs.StringVar(&tablesFlag, "tables", envOrDefaultFn("TABLES", ""), "Comma-separated name=data.csv:meta.txt entries")

	// DB connectivity
	fs.StringVar(&cfg.DBDriver, "db_driver", envOrDefaultFn("DB_DRIVER", "postgres"), "Database driver: 'postgres' or 'mssql'.")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN (required for mssql).")
	fs.StringVar(&cfg.DBUser, "db_user", envOrDefaultFn("DB_USER", "user"), "DB user")
	fs.StringVar(&cfg.DBPassword, "db_password", envOrDefaultFn("DB_PASSWORD", "password"), "DB password")
	fs.StringVar(&cfg.DBHost, "db_host", envOrDefaultFn("DB_HOST", "localhost"), "DB host")
	fs.StringVar(&cfg.DBPort, "db_port", envOrDefaultFn("DB_PORT", "5432"), "DB port")
	fs.StringVar(&cfg.DBName, "db_name", envOrDefaultFn("DB_NAME", "testdb"), "DB name")

	// Throughput
	fs.IntVar(&cfg.BatchSize, "batch_size", intEnvOrDefaultFn("BATCH_SIZE", 500), "Number of documents per CopyInto batch")
	fs.IntVar(&cfg.Workers, "workers", intEnvOrDefaultFn("WORKERS", 4), "Number of tables imported concurrently")

	// Resume / watch / schedule
	fs.StringVar(&cfg.CheckpointDir, "checkpoint_dir", envOrDefaultFn("CHECKPOINT_DIR", ""), "Pebble checkpoint database directory; empty disables checkpointing")
	fs.BoolVar(&cfg.Watch, "watch", boolEnvOrDefaultFn("WATCH", false), "Re-run the import when a watched file changes")
	fs.StringVar(&cfg.Schedule, "schedule", envOrDefaultFn("SCHEDULE", ""), "Cron expression for periodic re-import; empty disables scheduling")
	fs.StringVar(&cfg.DiagnosticsDir, "diagnostics_dir", envOrDefaultFn("DIAGNOSTICS_DIR", ""), "Directory for per-record schema-mismatch diagnostics; empty disables")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse args: %w", err)
	}

	tables, err := ParseTables(tablesFlag)
	if err != nil {
		return nil, err
	}
	cfg.Tables = tables
	return cfg, nil
}

// Load is the production entry point. It wires the loader to the process
// flag set (flag.CommandLine), reads environment variables via os.Getenv,
// and parses os.Args[1:] as the CLI arguments.
func Load() (*Config, error) {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}
