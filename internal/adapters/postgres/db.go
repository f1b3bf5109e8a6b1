// Package postgres implements the storage ports on a pgx connection pool.
//
// All repositories share the same transaction-in-context mechanism:
// WithPropertyLock opens a transaction, stores it in the context, and every
// query helper picks the transaction up transparently. Code running outside
// a lock scope talks straight to the pool.
package postgres

import (
	"context"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgxpool.Pool and pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKeyType struct{}

var txKey = txKeyType{}

func contextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// dbFrom returns the ambient transaction when one is in the context,
// otherwise the pool itself.
func dbFrom(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// addressLockKey derives the bigint advisory-lock key for a normalized
// address. FNV-64a keeps the key stable across processes; pg_advisory
// locks need a signed 64-bit integer, so the raw sum is reinterpreted.
func addressLockKey(normalizedAddress string) int64 {
	h := fnv.New64a()
	h.Write([]byte(normalizedAddress))
	return int64(h.Sum64())
}
