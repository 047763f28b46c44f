package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/backend/internal/domain/shared"
)

// Envelope is the wire form of a domain event, used both as the outbox
// payload and as the broker message body. Data holds only the variant's
// own fields.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// Upgrader rewrites the data of an event from one schema version to the next
type Upgrader func(data json.RawMessage) (json.RawMessage, error)

// envelopeRestorer is implemented by events embedding shared.BaseDomainEvent
type envelopeRestorer interface {
	RestoreEnvelope(base shared.BaseDomainEvent)
}

type eventSchema struct {
	typ       reflect.Type
	version   int
	upgraders map[int]Upgrader
}

// EventSerializer converts domain events to and from their envelope form.
// Stored events written under an older schema version are brought up to the
// current version through the registered upgraders before decoding.
type EventSerializer struct {
	mu      sync.RWMutex
	schemas map[string]*eventSchema
}

// NewEventSerializer creates a new event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		schemas: make(map[string]*eventSchema),
	}
}

// Register registers an event type for deserialization at schema version 1.
// The eventType should match what EventType() returns on the event.
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.schemas[eventType] = &eventSchema{
		typ:       t,
		version:   1,
		upgraders: make(map[int]Upgrader),
	}
}

// RegisterUpgrader adds the step from fromVersion to fromVersion+1 and makes
// fromVersion+1 the current version. Steps must be registered in order.
func (s *EventSerializer) RegisterUpgrader(eventType string, fromVersion int, up Upgrader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, ok := s.schemas[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	if fromVersion != schema.version {
		return fmt.Errorf("upgrader for %s must start at current version %d, got %d", eventType, schema.version, fromVersion)
	}
	schema.upgraders[fromVersion] = up
	schema.version = fromVersion + 1
	return nil
}

// CurrentVersion returns the schema version new events of the type are written with
func (s *EventSerializer) CurrentVersion(eventType string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[eventType]
	if !ok {
		return 0, false
	}
	return schema.version, true
}

// Serialize serializes a domain event into its JSON envelope
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	version := 1
	if v, ok := event.(shared.VersionedEvent); ok {
		version = v.SchemaVersion()
	}
	if current, ok := s.CurrentVersion(event.EventType()); ok {
		version = current
	}

	return json.Marshal(Envelope{
		ID:            event.EventID(),
		Type:          event.EventType(),
		OccurredAt:    event.OccurredAt().UTC(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		SchemaVersion: version,
		Data:          data,
	})
}

// Deserialize rebuilds a domain event from its JSON envelope
func (s *EventSerializer) Deserialize(payload []byte) (shared.DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return s.DeserializeEnvelope(env)
}

// DeserializeEnvelope decodes an already parsed envelope
func (s *EventSerializer) DeserializeEnvelope(env Envelope) (shared.DomainEvent, error) {
	s.mu.RLock()
	schema, ok := s.schemas[env.Type]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", env.Type)
	}

	version := env.SchemaVersion
	if version == 0 {
		version = 1
	}
	if version > schema.version {
		return nil, fmt.Errorf("event %s has schema version %d, newest known is %d", env.Type, version, schema.version)
	}

	data := env.Data
	for v := version; v < schema.version; v++ {
		up, ok := schema.upgraders[v]
		if !ok {
			return nil, fmt.Errorf("no upgrader for %s from version %d", env.Type, v)
		}
		upgraded, err := up(data)
		if err != nil {
			return nil, fmt.Errorf("failed to upgrade %s from version %d: %w", env.Type, v, err)
		}
		data = upgraded
	}

	eventPtr := reflect.New(schema.typ).Interface()
	if len(data) > 0 {
		if err := json.Unmarshal(data, eventPtr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
	}

	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("deserialized object does not implement DomainEvent")
	}
	restorer, ok := eventPtr.(envelopeRestorer)
	if !ok {
		return nil, fmt.Errorf("event %s cannot restore its envelope", env.Type)
	}
	restorer.RestoreEnvelope(shared.BaseDomainEvent{
		ID:        env.ID,
		Type:      env.Type,
		Timestamp: env.OccurredAt,
		AggID:     env.AggregateID,
		AggType:   env.AggregateType,
		Version:   schema.version,
	})

	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.schemas[eventType]
	return ok
}

// RegisteredTypes returns all registered event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.schemas))
	for t := range s.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
