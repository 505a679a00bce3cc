package hub

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
)

// Alarms holds the active alarms keyed by name.
type Alarms struct {
	// mu guards entries. Never held while acquiring Connections.mu.
	mu sync.Mutex
	// entries maps an alarm name to the alarm.
	entries map[string]alarm.Alarm
}

// NewAlarms creates an empty registry.
func NewAlarms() *Alarms {
	return &Alarms{
		entries: make(map[string]alarm.Alarm),
	}
}

// Start sets the alarm called name, overwriting any previous one regardless of owner.
// The replaced alarm, if any, is returned.
func (a *Alarms) Start(name string, owner alarm.ConnID, now time.Time) (alarm.Alarm, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous, replaced := a.entries[name]
	a.entries[name] = alarm.Alarm{
		Name:      name,
		Owner:     owner,
		StartedAt: now,
	}

	return previous, replaced
}

// Stop removes the alarm called name. Stopping an unknown alarm is a no-op.
func (a *Alarms) Stop(name string) (alarm.Alarm, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	stopped, ok := a.entries[name]
	if ok {
		delete(a.entries, name)
	}

	return stopped, ok
}

// RemoveAllOwnedBy removes every alarm owned by owner and returns them.
func (a *Alarms) RemoveAllOwnedBy(owner alarm.ConnID) []alarm.Alarm {
	a.mu.Lock()
	defer a.mu.Unlock()

	var removed []alarm.Alarm

	for name, entry := range a.entries {
		if entry.Owner != owner {
			continue
		}

		delete(a.entries, name)
		removed = append(removed, entry)
	}

	return removed
}

// Get returns the alarm called name.
func (a *Alarms) Get(name string) (alarm.Alarm, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[name]

	return entry, ok
}

// Len returns the number of active alarms.
func (a *Alarms) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.entries)
}

// Top returns at most maxCount alarms, most recently started first.
// Alarms started at the same instant are ordered by name.
func (a *Alarms) Top(maxCount int) []alarm.Alarm {
	if maxCount <= 0 {
		return nil
	}

	a.mu.Lock()
	all := make([]alarm.Alarm, 0, len(a.entries))

	for _, entry := range a.entries {
		all = append(all, entry)
	}
	a.mu.Unlock()

	slices.SortStableFunc(all, func(x, y alarm.Alarm) int {
		if c := y.StartedAt.Compare(x.StartedAt); c != 0 {
			return c
		}

		return cmp.Compare(x.Name, y.Name)
	})

	if len(all) > maxCount {
		all = all[:maxCount]
	}

	return all
}

// RenderTop renders Top(maxCount) as a broadcast payload.
func (a *Alarms) RenderTop(maxCount int) string {
	return alarm.Render(a.Top(maxCount))
}
