package shared

// AggregateRoot is the base interface for all aggregate roots.
//
// Aggregates are single-writer objects: they carry no internal locking and
// callers must serialize mutation of one instance themselves, either by
// holding an AggregateLocker for the aggregate's identity or by owning the
// only in-memory copy for the duration of a unit of work.
type AggregateRoot interface {
	AggregateID() string
	AggregateType() string
}

// BaseAggregateRoot buffers the domain events raised by an aggregate until
// the owning application service drains them.
type BaseAggregateRoot[E DomainEvent] struct {
	domainEvents []E
}

// AddDomainEvent appends an event to the pending buffer
func (a *BaseAggregateRoot[E]) AddDomainEvent(event E) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns a copy of the pending events without draining them
func (a *BaseAggregateRoot[E]) GetDomainEvents() []E {
	out := make([]E, len(a.domainEvents))
	copy(out, a.domainEvents)
	return out
}

// ClearDomainEvents drops the pending events
func (a *BaseAggregateRoot[E]) ClearDomainEvents() {
	a.domainEvents = nil
}

// TakeDomainEvents returns the pending events in emission order and clears
// the buffer. A second call with no intervening mutation returns an empty slice.
func (a *BaseAggregateRoot[E]) TakeDomainEvents() []E {
	events := a.domainEvents
	a.domainEvents = nil
	if events == nil {
		return []E{}
	}
	return events
}
