package domain

import (
	"context"
	"fmt"

	"paranoid/internal/core/apperror"
	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/core/tx"
	"paranoid/internal/domain/filter"
	"paranoid/internal/domain/softdelete"
	"paranoid/internal/metadata"
	"paranoid/pkg/logger"
	"paranoid/pkg/metrics"
)

// EntityService is the caller boundary for one soft-deletable type.
// Default-path accessors hide deleted rows; the *WithDeleted accessors do not.
type EntityService[T entity.Record] struct {
	def       metadata.EntityDef
	repo      Repository[T]
	operator  *softdelete.Operator
	txManager tx.Manager
	hooks     *HookRegistry[T]
}

// EntityServiceConfig configures the entity service.
type EntityServiceConfig[T entity.Record] struct {
	EntityName string
	Repo       Repository[T]
	Operator   *softdelete.Operator
	TxManager  tx.Manager
}

// NewEntityService creates a new entity service. The entity must be registered
// in the operator's registry.
func NewEntityService[T entity.Record](cfg EntityServiceConfig[T]) *EntityService[T] {
	return &EntityService[T]{
		def:       cfg.Operator.Registry().MustGet(cfg.EntityName),
		repo:      cfg.Repo,
		operator:  cfg.Operator,
		txManager: cfg.TxManager,
		hooks:     NewHookRegistry[T](),
	}
}

// Def returns the entity definition.
func (s *EntityService[T]) Def() metadata.EntityDef {
	return s.def
}

// Hooks returns the hook registry for external registration.
func (s *EntityService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

func (s *EntityService[T]) normalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func (s *EntityService[T]) normalizeGetErr(err error, key any) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.def.Name, key)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.def.Name)
}

func (s *EntityService[T]) runAfterHook(ctx context.Context, event HookEvent, e T) {
	if err := s.hooks.Run(ctx, event, e); err != nil {
		logger.Warn(ctx, "hook failed", "entity", s.def.Name, "event", string(event), "error", err)
	}
}

// checkConditions keeps marker columns out of default-path predicates,
// so no predicate can bring a deleted row back into view.
func (s *EntityService[T]) checkConditions(vis Visibility, conds []filter.Item) error {
	if vis == IncludeDeleted {
		return nil
	}
	for _, c := range conds {
		if s.def.IsMarkerColumn(c.Field) {
			return apperror.NewValidation("marker columns can only be filtered through the unfiltered path").
				WithDetail("entity", s.def.Name).
				WithDetail("field", c.Field)
		}
	}
	return nil
}

// --- Writes ---

// Create validates and inserts e. The marker always starts cleared.
func (s *EntityService[T]) Create(ctx context.Context, e T) error {
	e.Base().Prepare(entity.Now())
	e.ApplyMarker(entity.Active())

	if v, ok := any(e).(entity.Validatable); ok {
		if err := v.Validate(ctx); err != nil {
			return s.normalizeValidationErr(err)
		}
	}

	if err := s.hooks.Run(ctx, BeforeCreate, e); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, e); err != nil {
			return fmt.Errorf("create %s: %w", s.def.Name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.runAfterHook(ctx, AfterCreate, e)
	return nil
}

// Update writes ordinary fields of an existing record, deleted or not.
func (s *EntityService[T]) Update(ctx context.Context, e T) error {
	e.Base().Touch(entity.Now())

	if v, ok := any(e).(entity.Validatable); ok {
		if err := v.Validate(ctx); err != nil {
			return s.normalizeValidationErr(err)
		}
	}

	if err := s.hooks.Run(ctx, BeforeUpdate, e); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, e); err != nil {
			return fmt.Errorf("update %s: %w", s.def.Name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.runAfterHook(ctx, AfterUpdate, e)
	return nil
}

// Delete soft-deletes e (cascading per policy) and refreshes e's marker.
func (s *EntityService[T]) Delete(ctx context.Context, e T) (softdelete.Result, error) {
	if err := s.hooks.Run(ctx, BeforeDelete, e); err != nil {
		return softdelete.Result{}, err
	}

	res, err := s.operator.Delete(ctx, s.def.Name, e.Base().ID)
	if err != nil {
		return res, err
	}
	s.refreshMarker(ctx, e)

	if !res.NoOp {
		s.runAfterHook(ctx, AfterDelete, e)
	}
	return res, nil
}

// Restore clears e's marker together with what its cascade marked, and refreshes e.
func (s *EntityService[T]) Restore(ctx context.Context, e T) (softdelete.Result, error) {
	if err := s.hooks.Run(ctx, BeforeRestore, e); err != nil {
		return softdelete.Result{}, err
	}

	res, err := s.operator.Restore(ctx, s.def.Name, e.Base().ID)
	if err != nil {
		return res, err
	}
	s.refreshMarker(ctx, e)

	if !res.NoOp {
		s.runAfterHook(ctx, AfterRestore, e)
	}
	return res, nil
}

// DeleteByID soft-deletes the record with the given id.
func (s *EntityService[T]) DeleteByID(ctx context.Context, recordID id.ID) (softdelete.Result, error) {
	e, err := s.GetByIDWithDeleted(ctx, recordID)
	if err != nil {
		return softdelete.Result{}, err
	}
	return s.Delete(ctx, e)
}

// RestoreByID restores the record with the given id.
func (s *EntityService[T]) RestoreByID(ctx context.Context, recordID id.ID) (softdelete.Result, error) {
	e, err := s.GetByIDWithDeleted(ctx, recordID)
	if err != nil {
		return softdelete.Result{}, err
	}
	return s.Restore(ctx, e)
}

func (s *EntityService[T]) refreshMarker(ctx context.Context, e T) {
	stored, err := s.repo.GetByID(ctx, IncludeDeleted, e.Base().ID)
	if err != nil {
		logger.Warn(ctx, "refresh marker failed", "entity", s.def.Name, "id", e.Base().ID, "error", err)
		return
	}
	e.ApplyMarker(stored.Marker())
	e.Base().UpdatedAt = stored.Base().UpdatedAt
}

// --- Default path ---

// Get returns the first visible record matching conds, or NotFound.
func (s *EntityService[T]) Get(ctx context.Context, conds ...filter.Item) (T, error) {
	return s.get(ctx, VisibleOnly, conds)
}

// GetByID returns a visible record. Deleted and missing records are both NotFound.
func (s *EntityService[T]) GetByID(ctx context.Context, recordID id.ID) (T, error) {
	return s.getByID(ctx, VisibleOnly, recordID)
}

// List returns visible records.
func (s *EntityService[T]) List(ctx context.Context, f ListFilter) ([]T, error) {
	return s.list(ctx, VisibleOnly, f)
}

// All returns every visible record matching conds.
func (s *EntityService[T]) All(ctx context.Context, conds ...filter.Item) ([]T, error) {
	return s.list(ctx, VisibleOnly, Where(conds...))
}

// Count counts visible records.
func (s *EntityService[T]) Count(ctx context.Context, conds ...filter.Item) (int64, error) {
	return s.count(ctx, VisibleOnly, conds)
}

// DependentsOf returns visible records of this type referencing parentID
// through the parent's named relation.
func (s *EntityService[T]) DependentsOf(ctx context.Context, parent, relation string, parentID id.ID, conds ...filter.Item) ([]T, error) {
	return s.dependentsOf(ctx, VisibleOnly, parent, relation, parentID, conds)
}

// --- Unfiltered path ---

// GetWithDeleted returns the first record matching conds in any marker state.
func (s *EntityService[T]) GetWithDeleted(ctx context.Context, conds ...filter.Item) (T, error) {
	return s.get(ctx, IncludeDeleted, conds)
}

// GetByIDWithDeleted returns a record in any marker state.
func (s *EntityService[T]) GetByIDWithDeleted(ctx context.Context, recordID id.ID) (T, error) {
	return s.getByID(ctx, IncludeDeleted, recordID)
}

// ListWithDeleted returns records in any marker state.
func (s *EntityService[T]) ListWithDeleted(ctx context.Context, f ListFilter) ([]T, error) {
	return s.list(ctx, IncludeDeleted, f)
}

// AllWithDeleted returns every record matching conds in any marker state.
func (s *EntityService[T]) AllWithDeleted(ctx context.Context, conds ...filter.Item) ([]T, error) {
	return s.list(ctx, IncludeDeleted, Where(conds...))
}

// CountWithDeleted counts records in any marker state.
func (s *EntityService[T]) CountWithDeleted(ctx context.Context, conds ...filter.Item) (int64, error) {
	return s.count(ctx, IncludeDeleted, conds)
}

// DependentsOfWithDeleted is DependentsOf on the unfiltered path.
func (s *EntityService[T]) DependentsOfWithDeleted(ctx context.Context, parent, relation string, parentID id.ID, conds ...filter.Item) ([]T, error) {
	return s.dependentsOf(ctx, IncludeDeleted, parent, relation, parentID, conds)
}

// --- shared ---

func (s *EntityService[T]) get(ctx context.Context, vis Visibility, conds []filter.Item) (T, error) {
	var zero T
	if err := s.checkConditions(vis, conds); err != nil {
		return zero, err
	}
	metrics.ObserveRead(s.def.Name, vis.String())

	e, err := s.repo.Get(ctx, vis, conds)
	if err != nil {
		return zero, s.normalizeGetErr(err, nil)
	}
	return e, nil
}

func (s *EntityService[T]) getByID(ctx context.Context, vis Visibility, recordID id.ID) (T, error) {
	var zero T
	metrics.ObserveRead(s.def.Name, vis.String())

	e, err := s.repo.GetByID(ctx, vis, recordID)
	if err != nil {
		return zero, s.normalizeGetErr(err, recordID.String())
	}
	return e, nil
}

func (s *EntityService[T]) list(ctx context.Context, vis Visibility, f ListFilter) ([]T, error) {
	if err := s.checkConditions(vis, f.Conditions); err != nil {
		return nil, err
	}
	metrics.ObserveRead(s.def.Name, vis.String())

	items, err := s.repo.List(ctx, vis, f)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.def.Name, err)
	}
	return items, nil
}

func (s *EntityService[T]) count(ctx context.Context, vis Visibility, conds []filter.Item) (int64, error) {
	if err := s.checkConditions(vis, conds); err != nil {
		return 0, err
	}
	metrics.ObserveRead(s.def.Name, vis.String())

	n, err := s.repo.Count(ctx, vis, conds)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.def.Name, err)
	}
	return n, nil
}

func (s *EntityService[T]) dependentsOf(ctx context.Context, vis Visibility, parent, relation string, parentID id.ID, conds []filter.Item) ([]T, error) {
	edge, ok := s.operator.Registry().Relation(parent, relation)
	if !ok || edge.Dependent.Name != s.def.Name {
		return nil, apperror.NewValidation("unknown relation").
			WithDetail("parent", parent).
			WithDetail("relation", relation).
			WithDetail("entity", s.def.Name)
	}

	all := make([]filter.Item, 0, len(conds)+1)
	all = append(all, filter.Eq(edge.Relation.ForeignKey, parentID))
	all = append(all, conds...)
	return s.list(ctx, vis, Where(all...))
}
