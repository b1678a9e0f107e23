package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"paranoid/internal/core/tx"
	"paranoid/pkg/logger"
)

var tracer = otel.Tracer("paranoid/tx")

var _ tx.Manager = (*TxManager)(nil)

// TxOptions configures the transactions opened by TxManager.
type TxOptions struct {
	IsolationLevel pgx.TxIsoLevel

	// LockTimeout bounds the wait on marker rows locked by a concurrent
	// delete or restore. Zero waits indefinitely.
	LockTimeout time.Duration
}

// DefaultTxOptions returns ReadCommitted with a 5s lock timeout.
// The closure snapshot and the marker writes share one transaction, and every
// marker write is an UPDATE, so overlapping cascades serialize on row locks.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: pgx.ReadCommitted,
		LockTimeout:    5 * time.Second,
	}
}

// TxManager keeps the open pgx.Tx in the context, so repositories and the
// marker store join it without passing it around.
type TxManager struct {
	pool *pgxpool.Pool
	opts TxOptions
}

// NewTxManager creates a transaction manager using DefaultTxOptions.
func NewTxManager(pool *Pool) *TxManager {
	return NewTxManagerWithOptions(pool.Pool, DefaultTxOptions())
}

// NewTxManagerWithOptions creates a transaction manager over a raw pool.
func NewTxManagerWithOptions(pool *pgxpool.Pool, opts TxOptions) *TxManager {
	return &TxManager{pool: pool, opts: opts}
}

type txKey struct{}

// RunInTransaction executes fn within a transaction. A call made while ctx
// already carries a transaction joins it; only the outermost call commits.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.InTransaction(ctx) {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(attribute.String("tx.isolation", string(m.opts.IsolationLevel))))
	defer span.End()

	if err := m.run(ctx, fn); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction rolled back")
		return err
	}
	return nil
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: m.opts.IsolationLevel})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if m.opts.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.opts.LockTimeout.Milliseconds())
		if _, err := pgTx.Exec(ctx, stmt); err != nil {
			m.rollback(ctx, pgTx, err)
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, pgTx)); err != nil {
		m.rollback(ctx, pgTx, err)
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// rollback uses a background context: ctx may already be cancelled.
func (m *TxManager) rollback(ctx context.Context, pgTx pgx.Tx, cause error) {
	if err := pgTx.Rollback(context.Background()); err != nil {
		logger.Error(ctx, "rollback failed", "error", err, "cause", cause)
	}
}

// InTransaction reports whether ctx carries an open transaction.
func (m *TxManager) InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}

// Querier is satisfied by both pgx.Tx and *pgxpool.Pool,
// so repos work inside and outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// GetQuerier returns the transaction carried by ctx, or the pool.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if pgTx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return pgTx
	}
	return m.pool
}
