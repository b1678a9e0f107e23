// Package domain provides the caller-facing data access contract for soft-deletable entities.
package domain

import (
	"context"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/domain/filter"
)

// --- Visibility ---

// Visibility selects which read path a query takes.
type Visibility int

const (
	// VisibleOnly is the default path: rows with a set marker are excluded.
	VisibleOnly Visibility = iota
	// IncludeDeleted is the unfiltered path: no marker predicate is applied.
	IncludeDeleted
)

func (v Visibility) String() string {
	if v == IncludeDeleted {
		return "include_deleted"
	}
	return "visible_only"
}

// --- Filter & Pagination ---

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// IDs filters by specific IDs
	IDs []id.ID

	// Conditions are ANDed together
	Conditions []filter.Item

	// OrderBy specifies sorting (e.g., "title", "-created_at"). Defaults to id.
	OrderBy string

	// Pagination, zero Limit means no limit
	Limit  int
	Offset int
}

// Where returns a filter holding only conditions.
func Where(conds ...filter.Item) ListFilter {
	return ListFilter{Conditions: conds}
}

// --- Repository Interfaces ---

// Repository is the storage boundary for one entity type.
// Every read takes the visibility explicitly; none of them touches the marker.
type Repository[T entity.Record] interface {
	// Create inserts a new record. A dangling reference yields a constraint violation.
	Create(ctx context.Context, e T) error

	// Update writes ordinary fields and updated_at. The marker is never written here.
	Update(ctx context.Context, e T) error

	// Get returns the first match ordered by id, or NotFound.
	Get(ctx context.Context, vis Visibility, conds []filter.Item) (T, error)

	// GetByID retrieves a record by primary key, or NotFound.
	GetByID(ctx context.Context, vis Visibility, id id.ID) (T, error)

	// List retrieves records matching the filter.
	List(ctx context.Context, vis Visibility, f ListFilter) ([]T, error)

	// Count returns the number of records matching conds.
	Count(ctx context.Context, vis Visibility, conds []filter.Item) (int64, error)
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeCreate  HookEvent = "before_create"
	AfterCreate   HookEvent = "after_create"
	BeforeUpdate  HookEvent = "before_update"
	AfterUpdate   HookEvent = "after_update"
	BeforeDelete  HookEvent = "before_delete"
	AfterDelete   HookEvent = "after_delete"
	BeforeRestore HookEvent = "before_restore"
	AfterRestore  HookEvent = "after_restore"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// OnBeforeCreate registers a hook to run before create.
func (r *HookRegistry[T]) OnBeforeCreate(hook Hook[T]) {
	r.On(BeforeCreate, hook)
}

// OnAfterCreate registers a hook to run after create.
func (r *HookRegistry[T]) OnAfterCreate(hook Hook[T]) {
	r.On(AfterCreate, hook)
}

// OnBeforeDelete registers a hook to run before delete.
func (r *HookRegistry[T]) OnBeforeDelete(hook Hook[T]) {
	r.On(BeforeDelete, hook)
}

// OnAfterDelete registers a hook to run after delete.
func (r *HookRegistry[T]) OnAfterDelete(hook Hook[T]) {
	r.On(AfterDelete, hook)
}

// OnBeforeRestore registers a hook to run before restore.
func (r *HookRegistry[T]) OnBeforeRestore(hook Hook[T]) {
	r.On(BeforeRestore, hook)
}

// OnAfterRestore registers a hook to run after restore.
func (r *HookRegistry[T]) OnAfterRestore(hook Hook[T]) {
	r.On(AfterRestore, hook)
}
