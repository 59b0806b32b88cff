// Package db provides database adapter implementations for Postgres (pgx)
// and MSSQL via standardized DB and Tx interfaces. This file contains
// the Postgres adapter, which wraps pgx.Conn/pgx.Tx while remaining testable
// via lightweight seams.
//
// Design goals:
//   - Allow mocking via the pgConnLike interface (for hermetic unit tests).
//   - Keep behavior minimal and predictable—no implicit retries.
//   - Surface errors directly; avoid wrapping for clarity.
//   - Maintain parity with the MSSQL adapter where possible.
package db

import (
	"context"

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
// enabling hermetic (non-networked) testing of the adapter.
//

type pgConnLike interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

//
// ===============
//  Core pgDB type
// ===============
//
// pgDB is the concrete Postgres adapter implementing the DB interface.
// It is intentionally minimal: it wraps Exec, BeginTx, and Close around
// pgx.Conn (via pgConnLike). This makes it both production-usable and
// trivially testable using a fake connection.
//

type pgDB struct{ conn pgConnLike }

// NewPgDB connects to Postgres using pgx.Connect and wraps the connection
// in a pgDB. Callers are responsible for closing it via Close().
func NewPgDB(ctx context.Context, dsn string) (DB, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &pgDB{conn: c}, nil
}

// Exec delegates to pgx.Conn.Exec, executing the provided SQL statement
// with the given arguments. It returns only the error for simplicity.
func (p *pgDB) Exec(ctx context.Context, q string, args ...any) error {
	_, err := p.conn.Exec(ctx, q, args...)
	return err
}

// BeginTx starts a transaction by calling pgx.Conn.Begin.
// It returns a pgTx wrapper that satisfies the Tx interface.
func (p *pgDB) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

// Close closes the underlying connection.
func (p *pgDB) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}

//
// =====================
//  Transaction wrapper
// =====================
//
// pgTx wraps pgx.Tx to implement our Tx interface. It provides uniform
// methods for Exec, CopyInto, Commit, and Rollback.
//

type pgTx struct {
	tx pgx.Tx
}

// Exec executes a SQL statement within the current transaction context.
// It discards the returned CommandTag, returning only error.
func (t *pgTx) Exec(ctx context.Context, q string, args ...any) error {
	_, err := t.tx.Exec(ctx, q, args...)
	return err
}

// CopyInto performs a bulk insert using Postgres's native COPY FROM mechanism.
// This is the fast path for high-throughput imports.
func (t *pgTx) CopyInto(ctx context.Context, table string, columns []string, rows [][]interface{}) (int64, error) {
	n, err := t.tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	return n, err
}

// Commit commits the active transaction.
func (t *pgTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

// Rollback aborts the active transaction.
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

//
// ==============================
//  Adapter Introspection Helpers
// ==============================
//
// AsPgConn extracts the underlying *pgx.Conn when available.
// This is used by components that need to use native pgx features
// (e.g., CopyFrom) directly while remaining adapter-agnostic.
//

func AsPgConn(d DB) (*pgx.Conn, bool) {
	p, ok := d.(*pgDB)
	if !ok {
		return nil, false
	}
	if real, ok := p.conn.(*pgx.Conn); ok {
		return real, true
	}
	return nil, false
}

//
// =======================
//  Test-only constructors
// =======================
//
// These helpers allow injection of fakes and test doubles for hermetic tests.
// Production code does not call them.
//

// newPgDBFromConn constructs a pgDB from a pgConnLike fake.
// Used exclusively in unit tests.
func newPgDBFromConn(c pgConnLike) *pgDB { return &pgDB{conn: c} }

// newPgTxForTest wraps a pgx.Tx fake into a pgTx for testing.
func newPgTxForTest(t pgx.Tx) *pgTx { return &pgTx{tx: t} }
