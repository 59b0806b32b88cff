// Command csvdocimport wires configuration, a database sink, and the
// CSV-to-document streaming façade together. It is a thin composition
// layer with minimal logic and clear seams to enable hermetic tests.
// All side effects (sleep, DB constructors) are injected via Deps.
//
// Design goals:
//   - Keep main() tiny and delegate to run() for testability.
//   - Avoid hidden globals and make behavior obvious from Deps.
//   - Prefer explicit, readable control flow over cleverness.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"csvdoc/internal/checkpoint"
	"csvdoc/internal/config"
	"csvdoc/internal/db"
	"csvdoc/internal/docsink"
	"csvdoc/internal/mmapfile"
	"csvdoc/internal/pathutil"
	"csvdoc/internal/stats"
	"csvdoc/internal/stream"
	"csvdoc/internal/watch"
)

// Deps holds injectable dependencies so run() is fully testable. Each
// field represents a boundary that would otherwise be "hard-coded" in
// main(). In tests, we pass fakes here; in production, defaultDeps()
// provides real funcs.
type Deps struct {
	NewPgDB  func(ctx context.Context, dsn string) (db.DB, error)
	NewSQLDB func(driver, dsn string) (db.DB, error)
	Sleep    func(d time.Duration)
}

// defaultDeps wires production implementations. Tests should inject fakes.
func defaultDeps() Deps {
	return Deps{
		NewPgDB:  db.NewPgDB,
		NewSQLDB: db.NewSQLDB,
		Sleep:    time.Sleep,
	}
}

// buildPgDSN constructs a Postgres DSN from discrete config fields when
// -dsn isn't supplied directly.
func buildPgDSN(cfg *config.Config) string {
	return "postgres://" + cfg.DBUser + ":" + cfg.DBPassword + "@" + cfg.DBHost + ":" + cfg.DBPort + "/" + cfg.DBName
}

func connect(ctx context.Context, cfg *config.Config, deps Deps) (db.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = buildPgDSN(cfg)
		}
		return deps.NewPgDB(ctx, dsn)
	case "mssql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("-dsn required for mssql")
		}
		return deps.NewSQLDB("sqlserver", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported -db_driver=%q", cfg.DBDriver)
	}
}

// openDiagnosticsFile opens (creating and truncating) the per-table file
// that records one raw line per record whose field count disagreed with
// its schema, mirroring the teacher's skipStats diagnostic output.
func openDiagnosticsFile(dir, table string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, table+".nonCompliant.log"))
}

// importTable opens one CSV+metadata pair, streams its documents into
// sink under table.Table, and, when ckpt is non-nil, skips the file
// entirely if its fingerprint matches the last successful run.
func importTable(ctx context.Context, cfg *config.Config, table config.TablePair, sink *docsink.Sink, ckpt *checkpoint.Store, runID string) (stats.Snapshot, error) {
	dataPath, err := pathutil.Resolve(cfg.Dir, table.Data)
	if err != nil {
		return stats.Snapshot{}, fmt.Errorf("table %s: %w", table.Table, err)
	}

	var fingerprint uint64
	var size int64
	if ckpt != nil {
		img, err := mmapfile.Open(dataPath)
		if err != nil {
			return stats.Snapshot{}, fmt.Errorf("table %s: %w", table.Table, err)
		}
		fingerprint = checkpoint.Fingerprint(img.Bytes())
		size = int64(len(img.Bytes()))
		unchanged, err := ckpt.Unchanged(table.Table, img.Bytes())
		_ = img.Close()
		if err != nil {
			return stats.Snapshot{}, fmt.Errorf("table %s: checkpoint: %w", table.Table, err)
		}
		if unchanged {
			slog.Info("csvdocimport: skipping unchanged file", "table", table.Table, "run_id", runID)
			return stats.Snapshot{}, nil
		}
	}

	s, err := stream.New(cfg.Dir, table.Data, table.Meta)
	if err != nil {
		return stats.Snapshot{}, fmt.Errorf("table %s: %w", table.Table, err)
	}
	if err := s.Open(); err != nil {
		return stats.Snapshot{}, fmt.Errorf("table %s: %w", table.Table, err)
	}
	defer s.Close()

	if cfg.DiagnosticsDir != "" {
		diag, err := openDiagnosticsFile(cfg.DiagnosticsDir, table.Table)
		if err != nil {
			return stats.Snapshot{}, fmt.Errorf("table %s: diagnostics: %w", table.Table, err)
		}
		defer diag.Close()
		s.OnNonCompliant(func(rec []byte) {
			diag.Write(rec)
			diag.Write([]byte("\n"))
		})
	}

	buf := make([]byte, 1<<20)
	var batch [][]byte
	for {
		n, err := s.Read(buf)
		if err != nil {
			return stats.Snapshot{}, fmt.Errorf("table %s: %w", table.Table, err)
		}
		if n == 0 {
			break
		}
		doc := make([]byte, n)
		copy(doc, buf[:n])
		batch = append(batch, doc)
		if len(batch) >= cfg.BatchSize {
			if _, err := sink.WriteAll(ctx, table.Table, batch); err != nil {
				return stats.Snapshot{}, fmt.Errorf("table %s: %w", table.Table, err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := sink.WriteAll(ctx, table.Table, batch); err != nil {
			return stats.Snapshot{}, fmt.Errorf("table %s: %w", table.Table, err)
		}
	}

	snap := s.Release()
	slog.Info("csvdocimport: table imported", "table", table.Table, "run_id", runID, "stats", snap)

	if ckpt != nil {
		rec := checkpoint.Record{Fingerprint: fingerprint, Size: size, Stats: snap}
		if err := ckpt.Save(table.Table, rec); err != nil {
			return snap, fmt.Errorf("table %s: save checkpoint: %w", table.Table, err)
		}
	}
	return snap, nil
}

// importAll imports every configured table concurrently, bounded by
// cfg.Workers, and returns the first error encountered (if any).
func importAll(ctx context.Context, cfg *config.Config, sink *docsink.Sink, ckpt *checkpoint.Store) error {
	if len(cfg.Tables) == 0 {
		return fmt.Errorf("no tables configured (-tables)")
	}

	runID := uuid.NewString()
	slog.Info("csvdocimport: run starting", "run_id", runID, "tables", len(cfg.Tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, table := range cfg.Tables {
		table := table
		g.Go(func() error {
			_, err := importTable(gctx, cfg, table, sink, ckpt, runID)
			return err
		})
	}
	return g.Wait()
}

// run executes the main program logic given a config and injected Deps.
//
//  1. Waits briefly (configurable via Deps.Sleep) to allow DB containers to start.
//  2. Connects to the configured sink and ensures its table exists.
//  3. Imports every configured table once.
//  4. If -watch or -schedule is set, re-imports on file change or cron tick
//     until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, deps Deps) error {
	deps.Sleep(5 * time.Second)

	conn, err := connect(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	sink := docsink.New(conn, cfg.BatchSize)
	if err := sink.EnsureTable(ctx); err != nil {
		return err
	}

	var ckpt *checkpoint.Store
	if cfg.CheckpointDir != "" {
		ckpt, err = checkpoint.Open(cfg.CheckpointDir)
		if err != nil {
			return err
		}
		defer ckpt.Close()
	}

	if err := importAll(ctx, cfg, sink, ckpt); err != nil {
		return err
	}

	if !cfg.Watch && cfg.Schedule == "" {
		return nil
	}

	reimport := func() {
		if err := importAll(ctx, cfg, sink, ckpt); err != nil {
			slog.Error("csvdocimport: scheduled import failed", "err", err)
		}
	}

	if cfg.Watch {
		paths := make([]string, 0, len(cfg.Tables)*2)
		for _, t := range cfg.Tables {
			dataPath, err := pathutil.Resolve(cfg.Dir, t.Data)
			if err != nil {
				return err
			}
			metaPath, err := pathutil.Resolve(cfg.Dir, t.Meta)
			if err != nil {
				return err
			}
			paths = append(paths, dataPath, metaPath)
		}
		w, err := watch.New(paths, func(string) { reimport() })
		if err != nil {
			return fmt.Errorf("csvdocimport: watch: %w", err)
		}
		defer w.Close()
	}

	if cfg.Schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.Schedule, reimport); err != nil {
			return fmt.Errorf("csvdocimport: invalid -schedule %q: %w", cfg.Schedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	<-ctx.Done()
	return nil
}

// main is intentionally tiny. It loads config, builds real deps, and runs.
// Any error is fatal; we log once and exit non-zero.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := run(context.Background(), cfg, defaultDeps()); err != nil {
		log.Fatal(err)
	}
}
