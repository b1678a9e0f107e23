package memory

import (
	"context"
	"fmt"
	"sort"

	"paranoid/internal/core/apperror"
	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/domain"
	"paranoid/internal/domain/filter"
	"paranoid/internal/infrastructure/storage/columns"
	"paranoid/internal/metadata"
)

// Repo implements domain.Repository[T] for one entity type.
type Repo[T entity.Record] struct {
	db   *DB
	def  metadata.EntityDef
	cols []string
}

var _ domain.Repository[entity.Record] = (*Repo[entity.Record])(nil)

// NewRepo creates a repository for the registered entity def.
func NewRepo[T entity.Record](db *DB, def metadata.EntityDef) *Repo[T] {
	return &Repo[T]{db: db, def: def, cols: columns.Extract[T]()}
}

// Create inserts a copy of e.
func (r *Repo[T]) Create(ctx context.Context, e T) error {
	row := cloneRecord(e)
	if id.IsNil(row.Base().ID) {
		return apperror.NewValidation("id is required").WithDetail("entity", r.def.Name)
	}

	return r.db.write(ctx, func(t tables) error {
		rows := t[r.def.Table]
		if _, exists := rows[row.Base().ID]; exists {
			return apperror.NewConstraintViolation(r.def.Name, "duplicate primary key").
				WithDetail("id", row.Base().ID.String())
		}
		if err := r.checkReferences(t, row); err != nil {
			return err
		}
		rows[row.Base().ID] = row
		return nil
	})
}

// Update replaces ordinary fields. Marker and created_at keep their stored values.
func (r *Repo[T]) Update(ctx context.Context, e T) error {
	row := cloneRecord(e)

	return r.db.write(ctx, func(t tables) error {
		rows := t[r.def.Table]
		stored, ok := rows[row.Base().ID]
		if !ok {
			return apperror.NewNotFound(r.def.Name, row.Base().ID.String())
		}
		if err := r.checkReferences(t, row); err != nil {
			return err
		}
		row.ApplyMarker(stored.Marker())
		row.Base().CreatedAt = stored.Base().CreatedAt
		rows[row.Base().ID] = row
		return nil
	})
}

// checkReferences enforces foreign keys: every parent reference must resolve
// to an existing row, deleted or not.
func (r *Repo[T]) checkReferences(t tables, row entity.Record) error {
	values := columns.ToMap(row)
	for _, edge := range r.db.registry.ParentsOf(r.def.Name) {
		fk := edge.Relation.ForeignKey
		ref, _ := values[fk].(id.ID)
		if _, ok := t[edge.Parent.Table][ref]; !ok || id.IsNil(ref) {
			return apperror.NewConstraintViolation(r.def.Name,
				fmt.Sprintf("%s does not reference an existing %s", fk, edge.Parent.Name)).
				WithDetail("field", fk).
				WithDetail("parent", edge.Parent.Name)
		}
	}
	return nil
}

// Get returns the first match ordered by id.
func (r *Repo[T]) Get(ctx context.Context, vis domain.Visibility, conds []filter.Item) (T, error) {
	var zero T
	items, err := r.List(ctx, vis, domain.ListFilter{Conditions: conds, Limit: 1})
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, apperror.NewNotFound(r.def.Name, nil)
	}
	return items[0], nil
}

// GetByID retrieves a record by primary key.
func (r *Repo[T]) GetByID(ctx context.Context, vis domain.Visibility, recordID id.ID) (T, error) {
	var (
		zero  T
		found entity.Record
	)
	r.db.read(ctx, func(t tables) {
		found = t[r.def.Table][recordID]
	})
	if found == nil || !visible(found, vis) {
		return zero, apperror.NewNotFound(r.def.Name, recordID.String())
	}
	return cloneRecord(found).(T), nil
}

// List retrieves records matching the filter.
func (r *Repo[T]) List(ctx context.Context, vis domain.Visibility, f domain.ListFilter) ([]T, error) {
	order, err := domain.ParseOrderBy(f.OrderBy, r.cols)
	if err != nil {
		return nil, withEntity(err, r.def.Name)
	}

	rows, err := r.scan(ctx, vis, f.IDs, f.Conditions)
	if err != nil {
		return nil, err
	}
	sortRows(rows, order)

	if f.Offset > 0 {
		if f.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[f.Offset:]
		}
	}
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}

	items := make([]T, 0, len(rows))
	for _, row := range rows {
		items = append(items, cloneRecord(row.rec).(T))
	}
	return items, nil
}

// Count returns the number of matching records.
func (r *Repo[T]) Count(ctx context.Context, vis domain.Visibility, conds []filter.Item) (int64, error) {
	rows, err := r.scan(ctx, vis, nil, conds)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

type scanned struct {
	rec  entity.Record
	cols map[string]any
}

func (r *Repo[T]) scan(ctx context.Context, vis domain.Visibility, ids []id.ID, conds []filter.Item) ([]scanned, error) {
	if err := domain.CheckFields(conds, r.cols); err != nil {
		return nil, withEntity(err, r.def.Name)
	}

	var wanted map[id.ID]bool
	if len(ids) > 0 {
		wanted = make(map[id.ID]bool, len(ids))
		for _, v := range ids {
			wanted[v] = true
		}
	}

	var (
		out     []scanned
		scanErr error
	)
	r.db.read(ctx, func(t tables) {
		for rid, rec := range t[r.def.Table] {
			if wanted != nil && !wanted[rid] {
				continue
			}
			if !visible(rec, vis) {
				continue
			}
			cols := columns.ToMap(rec)
			ok, err := matches(cols, conds)
			if err != nil {
				scanErr = err
				return
			}
			if ok {
				out = append(out, scanned{rec: rec, cols: cols})
			}
		}
	})
	if scanErr != nil {
		return nil, scanErr
	}
	return out, nil
}

func visible(rec entity.Record, vis domain.Visibility) bool {
	return vis == domain.IncludeDeleted || !rec.Marker().IsDeleted()
}

// sortRows orders rows by o with id as the tie-breaker.
// NULLs sort last ascending and first descending, as in PostgreSQL.
func sortRows(rows []scanned, o domain.Order) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if o.Desc {
			a, b = b, a
		}
		if o.Field == "id" {
			return id.Less(a.rec.Base().ID, b.rec.Base().ID)
		}

		x, y := normalize(a.cols[o.Field]), normalize(b.cols[o.Field])
		switch {
		case x == nil && y != nil:
			return false
		case x != nil && y == nil:
			return true
		case x != nil && y != nil:
			if cmp, ok := compare(x, y); ok && cmp != 0 {
				return cmp < 0
			}
		}
		return id.Less(rows[i].rec.Base().ID, rows[j].rec.Base().ID)
	})
}

func withEntity(err error, name string) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.WithDetail("entity", name)
	}
	return err
}
