// Package docsink persists encoded documents into a relational sink
// (Postgres or MSSQL) through the teacher's generic db.DB/db.Tx
// adapters. It owns exactly one physical table shape, shared across
// all source files: one row per document, tagged with the logical
// table name the caller chose for that source.
package docsink

import (
	"context"
	"fmt"
	"time"

	"csvdoc/internal/db"
)

// Table is the physical table name docsink writes to.
const Table = "documents"

const createTableDDL = `CREATE TABLE IF NOT EXISTS documents (
	table_name text NOT NULL,
	payload bytea NOT NULL,
	inserted_at timestamptz NOT NULL
)`

// defaultBatchSize bounds how many rows go into a single CopyInto call
// when the caller doesn't specify one.
const defaultBatchSize = 500

// Sink writes encoded documents to a db.DB connection in batches.
type Sink struct {
	conn      db.DB
	batchSize int
}

// New returns a Sink writing through conn. A non-positive batchSize
// falls back to defaultBatchSize.
func New(conn db.DB, batchSize int) *Sink {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Sink{conn: conn, batchSize: batchSize}
}

// EnsureTable creates the documents table if it doesn't already exist.
func (s *Sink) EnsureTable(ctx context.Context) error {
	if err := s.conn.Exec(ctx, createTableDDL); err != nil {
		return fmt.Errorf("docsink: ensure table: %w", err)
	}
	return nil
}

// WriteAll persists docs tagged with sourceTable, batching writes at
// batchSize rows per transaction. It returns the number of rows
// successfully copied before the first error, if any.
func (s *Sink) WriteAll(ctx context.Context, sourceTable string, docs [][]byte) (int64, error) {
	var total int64
	for start := 0; start < len(docs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		n, err := s.writeBatch(ctx, sourceTable, docs[start:end])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Sink) writeBatch(ctx context.Context, sourceTable string, docs [][]byte) (int64, error) {
	tx, err := s.conn.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("docsink: begin: %w", err)
	}

	now := time.Now().UTC()
	rows := make([][]interface{}, len(docs))
	for i, d := range docs {
		rows[i] = []interface{}{sourceTable, d, now}
	}

	n, err := tx.CopyInto(ctx, Table, []string{"table_name", "payload", "inserted_at"}, rows)
	if err != nil {
		_ = tx.Rollback(ctx)
		return n, fmt.Errorf("docsink: copy: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return n, fmt.Errorf("docsink: commit: %w", err)
	}
	return n, nil
}
