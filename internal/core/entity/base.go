package entity

import (
	"context"
	"time"

	"paranoid/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Record is a persistent, soft-deletable row.
// Implemented by pointers to structs embedding BaseEntity and one marker type.
type Record interface {
	Base() *BaseEntity
	Marker() MarkerState
	ApplyMarker(state MarkerState)
}

// BaseEntity contains the identity and informational timestamps of every record.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	now := Now()
	return BaseEntity{
		ID:        id.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Base returns the embedded BaseEntity.
func (b *BaseEntity) Base() *BaseEntity {
	return b
}

// GetID returns the primary key.
func (b *BaseEntity) GetID() id.ID {
	return b.ID
}

// Prepare fills identity and timestamps that were left zero before insert.
func (b *BaseEntity) Prepare(now time.Time) {
	if id.IsNil(b.ID) {
		b.ID = id.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp.
func (b *BaseEntity) Touch(now time.Time) {
	b.UpdatedAt = now
}

// Now returns the current time in the precision stored by PostgreSQL timestamptz.
func Now() time.Time {
	return Truncate(time.Now())
}

// Truncate normalizes t to UTC microseconds so stamps compare equal after a round trip.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
