package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for identity-bearing records that are not
// aggregate roots
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
}

// BaseEntity provides common fields for entities
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// NewBaseEntity creates a new base entity with a generated ID
func NewBaseEntity(createdAt time.Time) BaseEntity {
	return NewBaseEntityWithID(uuid.New(), createdAt)
}

// NewBaseEntityWithID creates a base entity with a caller-chosen ID, used
// when the identity is derived from an upstream record such as an event
func NewBaseEntityWithID(id uuid.UUID, createdAt time.Time) BaseEntity {
	return BaseEntity{
		ID:        id,
		CreatedAt: createdAt,
	}
}
