package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps every persisted loyalty
// record has.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch bumps UpdatedAt.
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// NewBaseEntity creates a base entity with a fresh ID stamped now.
func NewBaseEntity() BaseEntity {
	return NewBaseEntityAt(time.Now().UTC())
}

// NewBaseEntityAt creates a base entity stamped with the given time, so
// services with an injected clock produce reproducible timestamps.
func NewBaseEntityAt(now time.Time) BaseEntity {
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
