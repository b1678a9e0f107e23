package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paranoid/internal/core/entity"
	"paranoid/internal/domain"
)

func TestTransactionCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.db.RunInTransaction(ctx, func(ctx context.Context) error {
		o := &owner{BaseEntity: entity.NewBaseEntity(), Name: "ann"}
		if err := f.owners.Create(ctx, o); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		n, err := f.owners.Count(ctx, domain.VisibleOnly, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	})
	require.NoError(t, err)

	n, err := f.owners.Count(ctx, domain.VisibleOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransactionRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.db.RunInTransaction(ctx, func(ctx context.Context) error {
		o := &owner{BaseEntity: entity.NewBaseEntity(), Name: "ann"}
		if err := f.owners.Create(ctx, o); err != nil {
			return err
		}
		// Outside the transaction the row is not visible yet.
		n, err := f.owners.Count(context.Background(), domain.IncludeDeleted, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := f.owners.Count(ctx, domain.IncludeDeleted, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.db.RunInTransaction(ctx, func(ctx context.Context) error {
		err := f.db.RunInTransaction(ctx, func(ctx context.Context) error {
			return f.owners.Create(ctx, &owner{BaseEntity: entity.NewBaseEntity(), Name: "inner"})
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := f.owners.Count(ctx, domain.IncludeDeleted, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "inner work is discarded with the outer transaction")
}

func TestConcurrentWritersAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.db.RunInTransaction(ctx, func(ctx context.Context) error {
				return f.owners.Create(ctx, &owner{BaseEntity: entity.NewBaseEntity(), Name: "x"})
			})
		}()
	}
	wg.Wait()

	n, err := f.owners.Count(ctx, domain.IncludeDeleted, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)
}
