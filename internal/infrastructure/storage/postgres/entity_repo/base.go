// Package entity_repo provides PostgreSQL implementations of the soft-delete
// repositories: a generic visibility-aware reader/writer per entity type and the
// marker store used by delete/restore.
package entity_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"paranoid/internal/core/apperror"
	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/domain"
	"paranoid/internal/domain/filter"
	"paranoid/internal/infrastructure/storage/columns"
	"paranoid/internal/infrastructure/storage/postgres"
	"paranoid/internal/metadata"
)

// Repo implements domain.Repository[T] for one table.
type Repo[T entity.Record] struct {
	txManager  *postgres.TxManager
	def        metadata.EntityDef
	selectCols []string
	newFn      func() T
}

var _ domain.Repository[entity.Record] = (*Repo[entity.Record])(nil)

// NewRepo creates a repository. Columns come from T's "db" tags.
func NewRepo[T entity.Record](txManager *postgres.TxManager, def metadata.EntityDef, newFn func() T) *Repo[T] {
	return &Repo[T]{
		txManager:  txManager,
		def:        def,
		selectCols: columns.Extract[T](),
		newFn:      newFn,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *Repo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts a new entity using its "db" tags.
func (r *Repo[T]) Create(ctx context.Context, e T) error {
	sql, args, err := r.insertQuery(e).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapWriteError(r.def.Name, fmt.Errorf("insert %s: %w", r.def.Table, err))
	}
	return nil
}

func (r *Repo[T]) insertQuery(e T) squirrel.InsertBuilder {
	data := columns.ToMap(e)
	values := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			values[col] = val
		}
	}
	return r.Builder().Insert(r.def.Table).SetMap(values)
}

// Update writes ordinary columns and updated_at. Identity, created_at and
// the marker are never part of the SET list.
func (r *Repo[T]) Update(ctx context.Context, e T) error {
	sql, args, err := r.updateQuery(e).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapWriteError(r.def.Name, fmt.Errorf("update %s: %w", r.def.Table, err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.def.Name, e.Base().ID.String())
	}
	return nil
}

func (r *Repo[T]) updateQuery(e T) squirrel.UpdateBuilder {
	data := columns.ToMap(e)
	values := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "created_at" || r.def.IsMarkerColumn(col) {
			continue
		}
		if val, ok := data[col]; ok {
			values[col] = val
		}
	}
	return r.Builder().
		Update(r.def.Table).
		SetMap(values).
		Where(squirrel.Eq{"id": e.Base().ID})
}

// baseSelect creates a SELECT builder on the given read path.
func (r *Repo[T]) baseSelect(vis domain.Visibility) squirrel.SelectBuilder {
	return visible(r.Builder().Select(r.selectCols...).From(r.def.Table), r.def, vis)
}

// visible adds the marker predicate for the default path.
func visible(q squirrel.SelectBuilder, def metadata.EntityDef, vis domain.Visibility) squirrel.SelectBuilder {
	if vis == domain.IncludeDeleted {
		return q
	}
	return q.Where(squirrel.Eq{def.MarkerColumn(): nil})
}

// Get returns the first match ordered by id.
func (r *Repo[T]) Get(ctx context.Context, vis domain.Visibility, conds []filter.Item) (T, error) {
	e := r.newFn()

	q, err := r.applyFilters(r.baseSelect(vis), conds)
	if err != nil {
		return e, err
	}
	sql, args, err := q.OrderBy("id ASC").Limit(1).ToSql()
	if err != nil {
		return e, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), e, sql, args...); err != nil {
		if postgres.IsNoRows(err) {
			return e, apperror.NewNotFound(r.def.Name, nil)
		}
		return e, fmt.Errorf("get %s: %w", r.def.Table, err)
	}
	return e, nil
}

// GetByID retrieves entity by ID.
func (r *Repo[T]) GetByID(ctx context.Context, vis domain.Visibility, entityID id.ID) (T, error) {
	e := r.newFn()

	sql, args, err := r.baseSelect(vis).
		Where(squirrel.Eq{"id": entityID}).
		Limit(1).
		ToSql()
	if err != nil {
		return e, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), e, sql, args...); err != nil {
		if postgres.IsNoRows(err) {
			return e, apperror.NewNotFound(r.def.Name, entityID.String())
		}
		return e, fmt.Errorf("get by id: %w", err)
	}
	return e, nil
}

// List retrieves entities with filtering and pagination.
func (r *Repo[T]) List(ctx context.Context, vis domain.Visibility, f domain.ListFilter) ([]T, error) {
	q, err := r.listQuery(vis, f)
	if err != nil {
		return nil, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.def.Table, err)
	}
	return items, nil
}

func (r *Repo[T]) listQuery(vis domain.Visibility, f domain.ListFilter) (squirrel.SelectBuilder, error) {
	q := r.baseSelect(vis)
	if len(f.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": f.IDs})
	}

	q, err := r.applyFilters(q, f.Conditions)
	if err != nil {
		return q, err
	}

	orderBy, err := r.parseOrderBy(f.OrderBy)
	if err != nil {
		return q, err
	}
	q = q.OrderBy(orderBy...)

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q, nil
}

// Count returns the number of matching rows.
func (r *Repo[T]) Count(ctx context.Context, vis domain.Visibility, conds []filter.Item) (int64, error) {
	q, err := r.countQuery(vis, conds)
	if err != nil {
		return 0, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var n int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.def.Table, err)
	}
	return n, nil
}

func (r *Repo[T]) countQuery(vis domain.Visibility, conds []filter.Item) (squirrel.SelectBuilder, error) {
	q := visible(r.Builder().Select("COUNT(*)").From(r.def.Table), r.def, vis)
	return r.applyFilters(q, conds)
}

// applyFilters translates predicates. Columns are whitelisted against the
// entity's own columns.
func (r *Repo[T]) applyFilters(q squirrel.SelectBuilder, items []filter.Item) (squirrel.SelectBuilder, error) {
	validCols := make(map[string]bool, len(r.selectCols))
	for _, col := range r.selectCols {
		validCols[col] = true
	}

	for _, item := range items {
		if !validCols[item.Field] {
			return q, apperror.NewValidation("unknown field").
				WithDetail("entity", r.def.Name).
				WithDetail("field", item.Field)
		}

		switch item.Operator {
		case filter.Equal, "":
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotEqual:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.LessOrEqual:
			q = q.Where(squirrel.LtOrEq{item.Field: item.Value})
		case filter.GreaterOrEqual:
			q = q.Where(squirrel.GtOrEq{item.Field: item.Value})
		case filter.Less:
			q = q.Where(squirrel.Lt{item.Field: item.Value})
		case filter.Greater:
			q = q.Where(squirrel.Gt{item.Field: item.Value})
		case filter.InList:
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotInList:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.IsNull:
			q = q.Where(squirrel.Eq{item.Field: nil})
		case filter.IsNotNull:
			q = q.Where(squirrel.NotEq{item.Field: nil})
		case filter.Contains:
			q = q.Where(squirrel.ILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)})
		case filter.NotContains:
			q = q.Where(squirrel.NotILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)})
		default:
			return q, apperror.NewValidation("unsupported operator").WithDetail("operator", string(item.Operator))
		}
	}

	return q, nil
}

// parseOrderBy renders ListFilter.OrderBy. id is always the final tie-breaker.
func (r *Repo[T]) parseOrderBy(orderBy string) ([]string, error) {
	o, err := domain.ParseOrderBy(orderBy, r.selectCols)
	if err != nil {
		return nil, err
	}

	direction := "ASC"
	if o.Desc {
		direction = "DESC"
	}
	if o.Field == "id" {
		return []string{"id " + direction}, nil
	}
	return []string{o.Field + " " + direction, "id ASC"}, nil
}
