package shared

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces collision-resistant identifiers for new aggregates
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random (v4) UUID strings
type UUIDGenerator struct{}

// NewID returns a new UUID v4 string
func (UUIDGenerator) NewID() string {
	return uuid.New().String()
}

// SequenceIDGenerator returns a fixed list of identifiers in order and then
// falls back to UUIDs. It exists so tests can pin aggregate identities.
type SequenceIDGenerator struct {
	mu  sync.Mutex
	ids []string
}

// NewSequenceIDGenerator creates a generator that yields ids in order
func NewSequenceIDGenerator(ids ...string) *SequenceIDGenerator {
	return &SequenceIDGenerator{ids: ids}
}

// NewID returns the next queued identifier
func (g *SequenceIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return uuid.New().String()
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id
}

// Clock supplies the current time to the domain
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant until advanced
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock creates a clock pinned to t
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now returns the pinned instant
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the pinned instant forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// AggregateLocker provides mutual exclusion keyed by aggregate identity for
// callers that load, mutate and save the same aggregate concurrently.
type AggregateLocker interface {
	// Acquire blocks until the lock for key is held or ctx is done. The
	// returned release function must be called exactly once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
