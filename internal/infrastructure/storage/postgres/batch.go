package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchExecutor sends several statements in a single round-trip.
type BatchExecutor struct {
	txManager *TxManager
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(txManager *TxManager) *BatchExecutor {
	return &BatchExecutor{txManager: txManager}
}

// BatchQuery represents a query in a batch.
type BatchQuery struct {
	SQL  string
	Args []any
}

// ExecuteBatch runs queries in order and returns the rows affected by each.
// Outside a transaction the batch runs in its own transaction, so it is all-or-nothing either way.
func (e *BatchExecutor) ExecuteBatch(ctx context.Context, queries []BatchQuery) ([]int64, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	var affected []int64
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, q := range queries {
			batch.Queue(q.SQL, q.Args...)
		}

		results := e.txManager.GetQuerier(ctx).SendBatch(ctx, batch)

		affected = make([]int64, 0, len(queries))
		for i := range queries {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return fmt.Errorf("batch query %d failed: %w", i, err)
			}
			affected = append(affected, tag.RowsAffected())
		}
		return results.Close()
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}
