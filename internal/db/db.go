package db

import "context"

// DB is a connection capable of starting transactions and executing DDL/DML.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) error
	BeginTx(ctx context.Context) (Tx, error)
	Close(ctx context.Context) error
}

// Tx (transaction) supports Exec, bulk inserts, and lifecycle.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) error
	CopyInto(ctx context.Context, table string, columns []string, rows [][]interface{}) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBFactory can mint a new DB connection per worker (for parallel ingestion).
type DBFactory func(ctx context.Context) (DB, error)
