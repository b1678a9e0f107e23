package memory

import (
	"context"
	"sort"

	"paranoid/internal/core/apperror"
	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/domain/softdelete"
	"paranoid/internal/infrastructure/storage/columns"
	"paranoid/internal/metadata"
)

// MarkerStore implements softdelete.Store over the in-memory tables.
type MarkerStore struct {
	db *DB
}

var _ softdelete.Store = (*MarkerStore)(nil)

// NewMarkerStore creates a marker store over db.
func NewMarkerStore(db *DB) *MarkerStore {
	return &MarkerStore{db: db}
}

// Marker returns the marker of one row regardless of its state.
func (s *MarkerStore) Marker(ctx context.Context, def metadata.EntityDef, recordID id.ID) (entity.MarkerState, error) {
	var rec entity.Record
	s.db.read(ctx, func(t tables) {
		rec = t[def.Table][recordID]
	})
	if rec == nil {
		return entity.MarkerState{}, apperror.NewNotFound(def.Name, recordID.String())
	}
	return rec.Marker(), nil
}

// DependentIDs returns dependents of parentIDs selected by sel, ordered by id.
func (s *MarkerStore) DependentIDs(ctx context.Context, edge metadata.Edge, parentIDs []id.ID, sel softdelete.Selector) ([]id.ID, error) {
	parents := make(map[id.ID]bool, len(parentIDs))
	for _, p := range parentIDs {
		parents[p] = true
	}

	var out []id.ID
	s.db.read(ctx, func(t tables) {
		for rid, rec := range t[edge.Dependent.Table] {
			ref, _ := columns.ToMap(rec)[edge.Relation.ForeignKey].(id.ID)
			if parents[ref] && sel.Matches(rec.Marker()) {
				out = append(out, rid)
			}
		}
	})

	sort.Slice(out, func(i, j int) bool { return id.Less(out[i], out[j]) })
	return out, nil
}

// SetMarkers stores state on each row and bumps updated_at.
func (s *MarkerStore) SetMarkers(ctx context.Context, def metadata.EntityDef, ids []id.ID, state entity.MarkerState) error {
	now := entity.Now()
	return s.db.write(ctx, func(t tables) error {
		rows := t[def.Table]
		for _, rid := range ids {
			stored, ok := rows[rid]
			if !ok {
				return apperror.NewNotFound(def.Name, rid.String())
			}
			row := cloneRecord(stored)
			row.ApplyMarker(state)
			row.Base().Touch(now)
			rows[rid] = row
		}
		return nil
	})
}
