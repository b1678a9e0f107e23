package entity

import "time"

// Marker column names.
const (
	ColumnDeletedAt        = "deleted_at"
	ColumnDeleted          = "deleted"
	ColumnDeletedByCascade = "deleted_by_cascade"
)

// MarkerState is the soft-delete state of one record.
// A non-nil DeletedAt means the record is logically deleted.
type MarkerState struct {
	DeletedAt *time.Time
	// ByCascade is set when the stamp was applied by an ancestor's cascading delete.
	ByCascade bool
}

// Active is the state of a record that is not deleted.
func Active() MarkerState {
	return MarkerState{}
}

// DeletedState returns a deleted state stamped at t.
func DeletedState(t time.Time, byCascade bool) MarkerState {
	stamp := Truncate(t)
	return MarkerState{DeletedAt: &stamp, ByCascade: byCascade}
}

// IsDeleted reports whether the marker is set.
func (s MarkerState) IsDeleted() bool {
	return s.DeletedAt != nil
}

// StampedAt reports whether the marker is set to exactly t.
func (s MarkerState) StampedAt(t time.Time) bool {
	return s.DeletedAt != nil && s.DeletedAt.Equal(t)
}

// TimestampMark is the paranoid-style marker: a single nullable deleted_at column.
type TimestampMark struct {
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// IsDeleted returns true if the record has been soft-deleted.
func (m *TimestampMark) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Marker returns the current state. ByCascade is never recorded for this style.
func (m *TimestampMark) Marker() MarkerState {
	return MarkerState{DeletedAt: m.DeletedAt}
}

// ApplyMarker overwrites the stored state.
func (m *TimestampMark) ApplyMarker(s MarkerState) {
	m.DeletedAt = s.DeletedAt
}

// CascadeMark is the cascade-style marker: a nullable deleted column plus the
// flag telling whether the stamp came from a parent's cascade.
type CascadeMark struct {
	Deleted          *time.Time `db:"deleted" json:"deleted,omitempty"`
	DeletedByCascade bool       `db:"deleted_by_cascade" json:"-"`
}

// IsDeleted returns true if the record has been soft-deleted.
func (m *CascadeMark) IsDeleted() bool {
	return m.Deleted != nil
}

// Marker returns the current state.
func (m *CascadeMark) Marker() MarkerState {
	return MarkerState{DeletedAt: m.Deleted, ByCascade: m.DeletedByCascade}
}

// ApplyMarker overwrites the stored state.
func (m *CascadeMark) ApplyMarker(s MarkerState) {
	m.Deleted = s.DeletedAt
	m.DeletedByCascade = s.DeletedAt != nil && s.ByCascade
}
