package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
	AggregateType() string
}

// VersionedEvent extends DomainEvent with schema versioning support
type VersionedEvent interface {
	DomainEvent
	// SchemaVersion returns the version of the event schema, 1 when unset
	SchemaVersion() int
}

// BaseDomainEvent provides the envelope fields shared by all domain events.
// The fields are excluded from the event's own JSON so the serialized payload
// carries only the variant's facts; the serializer writes them as an envelope.
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"-"`
	Type      string    `json:"-"`
	Timestamp time.Time `json:"-"`
	AggID     string    `json:"-"`
	AggType   string    `json:"-"`
	Version   int       `json:"-"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() string {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// SchemaVersion returns the schema version of the event
func (e *BaseDomainEvent) SchemaVersion() int {
	if e.Version == 0 {
		return 1
	}
	return e.Version
}

// RestoreEnvelope overwrites the envelope fields, used when an event is
// rebuilt from its serialized form
func (e *BaseDomainEvent) RestoreEnvelope(base BaseDomainEvent) {
	*e = base
}

// NewBaseDomainEvent creates a new base domain event with schema version 1
func NewBaseDomainEvent(eventType, aggType, aggID string, occurredAt time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: occurredAt,
		AggID:     aggID,
		AggType:   aggType,
		Version:   1,
	}
}
