// Package postgres implements the ledger store on PostgreSQL via pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store is the PostgreSQL ledger store.
type Store struct {
	queries
	pool Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(pool Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// WithTx runs fn with queries bound to one database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	return WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&queries{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// TxFn is a function executed within a transaction.
type TxFn func(tx pgx.Tx) error

// TxBeginner starts transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTx executes fn within a database transaction, committing on success
// and rolling back on error.
func WithTx(ctx context.Context, db TxBeginner, fn TxFn) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		// no-op after a successful commit
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.GetLogger().Errorw("Failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queries implements store.Queries against a pool or a transaction.
type queries struct {
	db DBTX
}

var _ store.Queries = (*queries)(nil)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapError converts driver errors into store sentinels.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", op, store.ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: referenced row missing: %w", op, store.ErrNotFound)
		case pgCheckViolation:
			return fmt.Errorf("%s: constraint %s: %w", op, pgErr.ConstraintName, store.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
