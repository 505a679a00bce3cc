package hub

import (
	"sync"
	"time"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
)

// Connections tracks live connections and the time each was last heard from.
type Connections struct {
	// mu guards entries. Taken before Alarms.mu when both are held.
	mu sync.Mutex
	// entries maps a connection to its last heartbeat.
	entries map[alarm.ConnID]time.Time
}

// NewConnections creates an empty registry.
func NewConnections() *Connections {
	return &Connections{
		entries: make(map[alarm.ConnID]time.Time),
	}
}

// Upsert inserts id or refreshes its heartbeat.
func (c *Connections) Upsert(id alarm.ConnID, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = now
}

// Remove deletes id and reports whether it was present.
// Alarms owned by id are left alone; Pruner.Evict removes both.
func (c *Connections) Remove(id alarm.ConnID) bool {
	return c.removeWith(id, nil)
}

// Contains reports whether id is live.
func (c *Connections) Contains(id alarm.ConnID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[id]

	return ok
}

// LastHeartbeat returns when id was last heard from.
func (c *Connections) LastHeartbeat(id alarm.ConnID) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.entries[id]

	return ts, ok
}

// Len returns the number of live connections.
func (c *Connections) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Snapshot returns a copy of the live connection ids.
func (c *Connections) Snapshot() []alarm.ConnID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]alarm.ConnID, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}

	return ids
}

// isExpired reports whether a connection last heard from at lastHeartbeat
// is past its expiry window at now.
func isExpired(lastHeartbeat, now time.Time, window time.Duration) bool {
	return now.After(lastHeartbeat.Add(window))
}

// removeExpired deletes every expired entry. evicted runs for each removed id
// while the lock is still held.
func (c *Connections) removeExpired(now time.Time, window time.Duration, evicted func(alarm.ConnID)) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0

	for id, lastHeartbeat := range c.entries {
		if !isExpired(lastHeartbeat, now, window) {
			continue
		}

		delete(c.entries, id)

		if evicted != nil {
			evicted(id)
		}

		removed++
	}

	return removed
}

// removeWith deletes id and, if it was present, runs evicted under the lock.
func (c *Connections) removeWith(id alarm.ConnID, evicted func(alarm.ConnID)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return false
	}

	delete(c.entries, id)

	if evicted != nil {
		evicted(id)
	}

	return true
}

// whileLive runs fn with the lock held if id is live.
func (c *Connections) whileLive(id alarm.ConnID, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return false
	}

	fn()

	return true
}
