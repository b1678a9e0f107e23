// Package tx defines the transaction boundary used by delete and restore.
// Domain code depends on this interface; the postgres and memory storage
// adapters provide implementations.
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
//
// All writes issued with the ctx passed to fn commit together when fn returns nil
// and are discarded when it returns an error. Nested calls join the outer transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
