// Package softdelete implements delete and restore of soft-deletable records,
// including the cascade walk along relations declared in the metadata registry.
package softdelete

import (
	"context"
	"time"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/metadata"
)

// Store is the storage boundary used by the Operator.
// All methods ignore visibility: they see every row.
type Store interface {
	// Marker returns the marker state of one record, or NotFound if the row does not exist.
	Marker(ctx context.Context, def metadata.EntityDef, recordID id.ID) (entity.MarkerState, error)

	// DependentIDs returns ids of edge.Dependent rows whose foreign key is in
	// parentIDs and whose marker matches sel, ordered by id.
	DependentIDs(ctx context.Context, edge metadata.Edge, parentIDs []id.ID, sel Selector) ([]id.ID, error)

	// SetMarkers writes state to each listed record with one single-row update
	// per record. A missing row is NotFound.
	SetMarkers(ctx context.Context, def metadata.EntityDef, ids []id.ID, state entity.MarkerState) error
}

// Selector picks dependents by marker state.
type Selector struct {
	cascadedAt *time.Time
}

// Active selects dependents that are not deleted.
func Active() Selector {
	return Selector{}
}

// CascadedAt selects dependents deleted by a cascade stamped at t.
func CascadedAt(t time.Time) Selector {
	stamp := entity.Truncate(t)
	return Selector{cascadedAt: &stamp}
}

// IsActive reports whether the selector picks undeleted rows.
func (s Selector) IsActive() bool {
	return s.cascadedAt == nil
}

// Stamp returns the cascade stamp. Only meaningful when !IsActive().
func (s Selector) Stamp() time.Time {
	if s.cascadedAt == nil {
		return time.Time{}
	}
	return *s.cascadedAt
}

// Matches evaluates the selector against a marker state.
func (s Selector) Matches(m entity.MarkerState) bool {
	if s.cascadedAt == nil {
		return !m.IsDeleted()
	}
	return m.ByCascade && m.StampedAt(*s.cascadedAt)
}
