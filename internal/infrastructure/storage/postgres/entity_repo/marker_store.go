package entity_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"paranoid/internal/core/apperror"
	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/domain/softdelete"
	"paranoid/internal/infrastructure/storage/postgres"
	"paranoid/internal/metadata"
)

// MarkerStore implements softdelete.Store with plain single-row SQL.
type MarkerStore struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchExecutor
}

var _ softdelete.Store = (*MarkerStore)(nil)

// NewMarkerStore creates a marker store.
func NewMarkerStore(txManager *postgres.TxManager) *MarkerStore {
	return &MarkerStore{
		txManager: txManager,
		batch:     postgres.NewBatchExecutor(txManager),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (s *MarkerStore) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Marker reads the marker of one row without any visibility predicate and
// locks the row until the surrounding transaction ends.
func (s *MarkerStore) Marker(ctx context.Context, def metadata.EntityDef, recordID id.ID) (entity.MarkerState, error) {
	sql, args, err := s.markerQuery(def, recordID).ToSql()
	if err != nil {
		return entity.MarkerState{}, fmt.Errorf("build marker query: %w", err)
	}

	var (
		state     entity.MarkerState
		deletedAt *time.Time
		byCascade bool
	)
	row := s.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...)
	if def.Marker.CascadeColumn() != "" {
		err = row.Scan(&deletedAt, &byCascade)
	} else {
		err = row.Scan(&deletedAt)
	}
	if err != nil {
		if postgres.IsNoRows(err) {
			return state, apperror.NewNotFound(def.Name, recordID.String())
		}
		return state, fmt.Errorf("read marker %s: %w", def.Table, err)
	}

	if deletedAt != nil {
		state = entity.DeletedState(*deletedAt, byCascade)
	}
	return state, nil
}

func (s *MarkerStore) markerQuery(def metadata.EntityDef, recordID id.ID) squirrel.SelectBuilder {
	cols := []string{def.MarkerColumn()}
	if c := def.Marker.CascadeColumn(); c != "" {
		cols = append(cols, c)
	}
	return s.Builder().
		Select(cols...).
		From(def.Table).
		Where(squirrel.Eq{"id": recordID}).
		Suffix("FOR UPDATE")
}

// DependentIDs selects dependents of parentIDs by marker state, ordered by id.
func (s *MarkerStore) DependentIDs(ctx context.Context, edge metadata.Edge, parentIDs []id.ID, sel softdelete.Selector) ([]id.ID, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	// Without a cascade flag no row can have been marked by a cascade.
	if !sel.IsActive() && edge.Dependent.Marker.CascadeColumn() == "" {
		return nil, nil
	}

	sql, args, err := s.dependentsQuery(edge, parentIDs, sel).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dependents query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("load dependents %s: %w", edge.Dependent.Table, err)
	}
	return ids, nil
}

func (s *MarkerStore) dependentsQuery(edge metadata.Edge, parentIDs []id.ID, sel softdelete.Selector) squirrel.SelectBuilder {
	dep := edge.Dependent
	q := s.Builder().
		Select("id").
		From(dep.Table).
		Where(squirrel.Eq{edge.Relation.ForeignKey: parentIDs})

	if sel.IsActive() {
		q = q.Where(squirrel.Eq{dep.MarkerColumn(): nil})
	} else {
		q = q.
			Where(squirrel.Eq{dep.MarkerColumn(): sel.Stamp()}).
			Where(squirrel.Eq{dep.Marker.CascadeColumn(): true})
	}
	return q.OrderBy("id ASC")
}

// SetMarkers writes the marker with one UPDATE per row, sent as a single batch.
func (s *MarkerStore) SetMarkers(ctx context.Context, def metadata.EntityDef, ids []id.ID, state entity.MarkerState) error {
	if len(ids) == 0 {
		return nil
	}

	now := entity.Now()
	queries := make([]postgres.BatchQuery, 0, len(ids))
	for _, rid := range ids {
		sql, args, err := s.setMarkerQuery(def, rid, state, now).ToSql()
		if err != nil {
			return fmt.Errorf("build set marker: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}

	affected, err := s.batch.ExecuteBatch(ctx, queries)
	if err != nil {
		return fmt.Errorf("set marker %s: %w", def.Table, err)
	}
	for i, n := range affected {
		if n == 0 {
			return apperror.NewNotFound(def.Name, ids[i].String())
		}
	}
	return nil
}

func (s *MarkerStore) setMarkerQuery(def metadata.EntityDef, recordID id.ID, state entity.MarkerState, now time.Time) squirrel.UpdateBuilder {
	q := s.Builder().
		Update(def.Table).
		Set(def.MarkerColumn(), state.DeletedAt)
	if c := def.Marker.CascadeColumn(); c != "" {
		q = q.Set(c, state.IsDeleted() && state.ByCascade)
	}
	return q.
		Set("updated_at", now).
		Where(squirrel.Eq{"id": recordID})
}
