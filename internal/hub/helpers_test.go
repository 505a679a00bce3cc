package hub

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
)

const (
	testExpiry    = 5 * time.Second
	testMaxAlarms = 4
)

var errTestSend = errors.New("connection unreachable")

// recordingSender is a Sender that keeps every payload per connection.
type recordingSender struct {
	mu sync.Mutex
	// sent holds payloads in delivery order.
	sent map[alarm.ConnID][]string
	// failing lists connections whose deliveries fail.
	failing map[alarm.ConnID]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		sent:    make(map[alarm.ConnID][]string),
		failing: make(map[alarm.ConnID]bool),
	}
}

// Send records payload for id unless id is marked as failing.
func (s *recordingSender) Send(id alarm.ConnID, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing[id] {
		return errTestSend
	}

	s.sent[id] = append(s.sent[id], payload)

	return nil
}

func (s *recordingSender) fail(id alarm.ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failing[id] = true
}

func (s *recordingSender) count(id alarm.ConnID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sent[id])
}

// last returns the most recent payload delivered to id.
func (s *recordingSender) last(t *testing.T, id alarm.ConnID) string {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	payloads := s.sent[id]
	require.NotEmpty(t, payloads, "no payload delivered to %s", id)

	return payloads[len(payloads)-1]
}

// fixture wires a dispatcher to in-memory registries and a fake clock.
type fixture struct {
	clock       *clockwork.FakeClock
	connections *Connections
	alarms      *Alarms
	pruner      *Pruner
	broadcaster *Broadcaster
	dispatcher  *Dispatcher
	sender      *recordingSender
}

func newFixture() *fixture {
	f := &fixture{
		clock:       clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 9, 0, 0, 0, time.Local)),
		connections: NewConnections(),
		alarms:      NewAlarms(),
		sender:      newRecordingSender(),
	}

	f.pruner = NewPruner(f.connections, f.alarms, f.clock, testExpiry, nil)
	f.broadcaster = NewBroadcaster(f.connections, f.alarms, f.sender, testMaxAlarms, nil)
	f.dispatcher = NewDispatcher(f.connections, f.alarms, f.pruner, f.broadcaster, f.clock, nil)

	return f
}

// requireConsistent fails the test if any alarm outlives its owner.
func requireConsistent(t *testing.T, connections *Connections, alarms *Alarms) {
	t.Helper()

	require.Empty(t, inconsistency(connections, alarms))
}

// inconsistency describes the first alarm whose owner is not live, or returns "".
// Both locks are held in the production order, so the check sees an atomic view.
func inconsistency(connections *Connections, alarms *Alarms) string {
	connections.mu.Lock()
	defer connections.mu.Unlock()

	alarms.mu.Lock()
	defer alarms.mu.Unlock()

	for name, a := range alarms.entries {
		if _, live := connections.entries[a.Owner]; !live {
			return fmt.Sprintf("alarm %q owned by evicted connection %s", name, a.Owner)
		}
	}

	return ""
}
