// Package memory is an in-process storage engine for soft-deletable records.
//
// Rows are kept per table and never mutated in place: every write stores a
// fresh copy. A transaction works on a private copy of the table maps and
// swaps it in on commit, so a failed transaction leaves nothing behind and
// plain reads never observe uncommitted state.
package memory

import (
	"context"
	"reflect"
	"sync"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/core/tx"
	"paranoid/internal/metadata"
)

var _ tx.Manager = (*DB)(nil)

type tables map[string]map[id.ID]entity.Record

// DB holds all tables of one registry.
type DB struct {
	registry *metadata.Registry

	// writeMu serializes transactions and autocommit writes.
	writeMu sync.Mutex
	// mu guards the committed tables pointer and autocommit mutation.
	mu        sync.RWMutex
	committed tables
}

// New creates an empty database with one table per registered entity.
func New(registry *metadata.Registry) *DB {
	db := &DB{
		registry:  registry,
		committed: make(tables),
	}
	for _, def := range registry.List() {
		db.committed[def.Table] = make(map[id.ID]entity.Record)
	}
	return db
}

// Registry returns the policy table the database was built from.
func (db *DB) Registry() *metadata.Registry {
	return db.registry
}

type txKey struct{}

type txState struct {
	tables tables
}

func txFrom(ctx context.Context) *txState {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return st
	}
	return nil
}

// RunInTransaction executes fn against a private copy of the tables.
// The copy replaces the committed state only when fn returns nil.
// Nested calls join the outer transaction.
func (db *DB) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	db.mu.RLock()
	st := &txState{tables: db.committed.clone()}
	db.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		return err
	}

	db.mu.Lock()
	db.committed = st.tables
	db.mu.Unlock()
	return nil
}

// read runs fn against the transaction's tables or the committed ones.
func (db *DB) read(ctx context.Context, fn func(t tables)) {
	if st := txFrom(ctx); st != nil {
		fn(st.tables)
		return
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn(db.committed)
}

// write runs fn against the transaction's tables, or autocommits against the committed ones.
func (db *DB) write(ctx context.Context, fn func(t tables) error) error {
	if st := txFrom(ctx); st != nil {
		return fn(st.tables)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	// Work on a copy so a failing fn leaves committed state untouched.
	work := db.committed.clone()
	if err := fn(work); err != nil {
		return err
	}

	db.mu.Lock()
	db.committed = work
	db.mu.Unlock()
	return nil
}

// clone copies the maps; rows are shared because stored rows are immutable.
func (t tables) clone() tables {
	out := make(tables, len(t))
	for name, rows := range t {
		cp := make(map[id.ID]entity.Record, len(rows))
		for k, v := range rows {
			cp[k] = v
		}
		out[name] = cp
	}
	return out
}

// cloneRecord returns a shallow copy of the struct behind r.
func cloneRecord(r entity.Record) entity.Record {
	v := reflect.ValueOf(r).Elem()
	c := reflect.New(v.Type())
	c.Elem().Set(v)
	return c.Interface().(entity.Record)
}
