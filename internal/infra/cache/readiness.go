// Package cache keeps recently computed readiness views for quick reads.
// The engine stays the source of truth. Each entry remembers the athlete's
// latest journal seq when it was computed and is stale once the journal
// moves past it.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/events"
)

// DefaultTTL bounds how long an idle entry is kept.
const DefaultTTL = 15 * time.Minute

// Versions reports the latest journal seq for an athlete. *events.EventLog
// satisfies it.
type Versions interface {
	LastSeq(athleteID string) int64
}

type entry struct {
	view engine.Readiness
	seq  int64
}

// ReadinessCache is an LRU of readiness views keyed by athlete id.
type ReadinessCache struct {
	lru      *expirable.LRU[string, entry]
	versions Versions // optional
}

// NewReadinessCache creates a cache holding at most size athletes.
// Without versions, entries live until invalidated or expired.
func NewReadinessCache(size int, ttl time.Duration, versions Versions) *ReadinessCache {
	if size < 1 {
		size = 1
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReadinessCache{
		lru:      expirable.NewLRU[string, entry](size, nil, ttl),
		versions: versions,
	}
}

func (c *ReadinessCache) version(athleteID string) int64 {
	if c.versions == nil {
		return 0
	}
	return c.versions.LastSeq(athleteID)
}

// Get returns the cached view for an athlete if nothing was journaled for
// the athlete since it was computed.
func (c *ReadinessCache) Get(athleteID string) (engine.Readiness, bool) {
	e, ok := c.lru.Get(athleteID)
	if !ok {
		return engine.Readiness{}, false
	}
	if e.seq != c.version(athleteID) {
		c.lru.Remove(athleteID)
		return engine.Readiness{}, false
	}
	return e.view, true
}

// Set stores a view computed at the athlete's current journal seq.
func (c *ReadinessCache) Set(r engine.Readiness) {
	c.lru.Add(r.AthleteID, entry{view: r, seq: c.version(r.AthleteID)})
}

// Invalidate drops one athlete.
func (c *ReadinessCache) Invalidate(athleteID string) {
	c.lru.Remove(athleteID)
}

// Purge drops everything.
func (c *ReadinessCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached athletes.
func (c *ReadinessCache) Len() int {
	return c.lru.Len()
}

// GetOrCompute returns the cached view or the result of compute. A result is
// only stored when the journal did not move for the athlete while it was
// being computed.
func (c *ReadinessCache) GetOrCompute(athleteID string, compute func() (engine.Readiness, error)) (engine.Readiness, error) {
	if r, ok := c.Get(athleteID); ok {
		return r, nil
	}
	before := c.version(athleteID)
	r, err := compute()
	if err != nil {
		return engine.Readiness{}, err
	}
	if c.version(athleteID) == before {
		c.lru.Add(athleteID, entry{view: r, seq: before})
	}
	return r, nil
}

// Watch evicts entries as journal events arrive until ctx is done, so
// changed athletes do not hold LRU slots.
// ready is closed once the subscription is in place.
func (c *ReadinessCache) Watch(ctx context.Context, log *events.EventLog, ready chan<- struct{}) {
	ch, cancel := log.Subscribe(256)
	defer cancel()
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			c.Invalidate(e.AthleteID)
		}
	}
}
