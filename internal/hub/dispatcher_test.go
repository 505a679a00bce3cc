package hub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
)

// TestDispatcher_StartBroadcastsToSender covers a single client starting an alarm.
func TestDispatcher_StartBroadcastsToSender(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	c1 := alarm.NewConnID()

	f.dispatcher.Open(ctx, c1)
	require.Zero(t, f.sender.count(c1), "open must not publish")

	f.dispatcher.Message(ctx, c1, "start:coffee")

	payload := f.sender.last(t, c1)
	require.Equal(t, "coffee\n  "+alarm.FormatTimestamp(f.clock.Now()), payload)
}

// TestDispatcher_CloseCascadesToOtherClients shows the closed client's alarm disappearing for the rest.
func TestDispatcher_CloseCascadesToOtherClients(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	c1, c2 := alarm.NewConnID(), alarm.NewConnID()

	f.dispatcher.Open(ctx, c1)
	f.dispatcher.Open(ctx, c2)
	f.dispatcher.Message(ctx, c1, "start:tea")
	require.Contains(t, f.sender.last(t, c2), "tea")

	f.dispatcher.Close(ctx, c1)

	require.Empty(t, f.sender.last(t, c2))
	require.Zero(t, f.alarms.Len())
	requireConsistent(t, f.connections, f.alarms)
}

// TestDispatcher_TopFourOfFive omits the earliest of five alarms.
func TestDispatcher_TopFourOfFive(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	c1 := alarm.NewConnID()

	f.dispatcher.Open(ctx, c1)

	for i := range 5 {
		if i > 0 {
			f.clock.Advance(500 * time.Millisecond)
		}

		f.dispatcher.Message(ctx, c1, fmt.Sprintf("start:timer-%d", i))
	}

	payload := f.sender.last(t, c1)
	lines := strings.Split(payload, "\n")

	require.Len(t, lines, 8)
	require.Equal(t, "timer-4", lines[0])
	require.Equal(t, "timer-1", lines[6])
	require.NotContains(t, payload, "timer-0")
	require.Equal(t, f.alarms.RenderTop(testMaxAlarms), payload)
}

// TestDispatcher_Stop removes known alarms and treats unknown ones as a no-op.
func TestDispatcher_Stop(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	c1, c2 := alarm.NewConnID(), alarm.NewConnID()

	f.dispatcher.Open(ctx, c1)
	f.dispatcher.Open(ctx, c2)
	f.dispatcher.Message(ctx, c1, "start:pizza")

	f.dispatcher.Message(ctx, c1, "stop:lasagna")
	require.Equal(t, 1, f.alarms.Len())

	// Any connection may stop an alarm by name.
	f.dispatcher.Message(ctx, c2, "stop:pizza")
	require.Zero(t, f.alarms.Len())
	require.Empty(t, f.sender.last(t, c1))
}

// TestDispatcher_UnknownMessageStillPublishes runs the standard post-action for garbage payloads.
func TestDispatcher_UnknownMessageStillPublishes(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	c1 := alarm.NewConnID()

	f.dispatcher.Open(ctx, c1)
	f.dispatcher.Message(ctx, c1, "hello there")

	require.Equal(t, 1, f.sender.count(c1))
	require.Empty(t, f.sender.last(t, c1))
}

// TestDispatcher_HeartbeatPublishesOnlyAfterPrune refreshes silently unless someone expired.
func TestDispatcher_HeartbeatPublishesOnlyAfterPrune(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	quiet, chatty := alarm.NewConnID(), alarm.NewConnID()

	f.dispatcher.Open(ctx, quiet)
	f.dispatcher.Open(ctx, chatty)
	f.dispatcher.Message(ctx, quiet, "start:eggs")
	require.Equal(t, 1, f.sender.count(chatty))

	f.clock.Advance(time.Second)
	f.dispatcher.Heartbeat(ctx, chatty)
	require.Equal(t, 1, f.sender.count(chatty), "heartbeat without prune must not publish")

	f.clock.Advance(testExpiry)
	f.dispatcher.Heartbeat(ctx, chatty)

	require.Equal(t, 2, f.sender.count(chatty))
	require.Empty(t, f.sender.last(t, chatty))
	require.False(t, f.connections.Contains(quiet))
	requireConsistent(t, f.connections, f.alarms)
}

// TestDispatcher_OverwriteAcrossOwners transfers an alarm to the last connection that started it.
func TestDispatcher_OverwriteAcrossOwners(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	connA, connB := alarm.NewConnID(), alarm.NewConnID()

	f.dispatcher.Open(ctx, connA)
	f.dispatcher.Open(ctx, connB)
	f.dispatcher.Message(ctx, connA, "start:x")

	f.clock.Advance(time.Second)
	f.dispatcher.Message(ctx, connB, "start:x")

	got, ok := f.alarms.Get("x")
	require.True(t, ok)
	require.Equal(t, connB, got.Owner)
	require.Equal(t, f.clock.Now(), got.StartedAt)

	// Closing the previous owner leaves the transferred alarm alone.
	f.dispatcher.Close(ctx, connA)

	_, ok = f.alarms.Get("x")
	require.True(t, ok)
}

// TestDispatcher_StartFromPrunedConnectionIgnored keeps alarms owned by live connections only.
func TestDispatcher_StartFromPrunedConnectionIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	ghost, other := alarm.NewConnID(), alarm.NewConnID()

	f.dispatcher.Open(ctx, ghost)
	f.clock.Advance(testExpiry + time.Second)
	f.dispatcher.Open(ctx, other)
	f.dispatcher.Heartbeat(ctx, other)
	require.False(t, f.connections.Contains(ghost))

	f.dispatcher.Message(ctx, ghost, "start:ghost-alarm")

	require.Zero(t, f.alarms.Len())
	require.Zero(t, f.sender.count(ghost))
	require.Empty(t, f.sender.last(t, other))
}

// TestDispatcher_SendFailureIsIsolated keeps delivering to everyone else when one send fails.
func TestDispatcher_SendFailureIsIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	broken := alarm.NewConnID()
	healthy := []alarm.ConnID{alarm.NewConnID(), alarm.NewConnID(), alarm.NewConnID()}

	f.dispatcher.Open(ctx, broken)
	f.sender.fail(broken)

	for _, id := range healthy {
		f.dispatcher.Open(ctx, id)
	}

	require.NotPanics(t, func() {
		f.dispatcher.Message(ctx, healthy[0], "start:rice")
	})

	for _, id := range healthy {
		require.Contains(t, f.sender.last(t, id), "rice")
	}

	require.Zero(t, f.sender.count(broken))
	require.True(t, f.connections.Contains(broken))
}

// TestDispatcher_ConcurrentEventsStayConsistent hammers the dispatcher from many goroutines
// while a checker verifies that no alarm is ever observed without its owner.
func TestDispatcher_ConcurrentEventsStayConsistent(t *testing.T) {
	t.Parallel()

	const (
		workers    = 16
		iterations = 200
	)

	f := newFixture()
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		done      = make(chan struct{})
		checker   = make(chan struct{})
		violation string
	)

	go func() {
		defer close(checker)

		for {
			select {
			case <-done:
				return
			default:
				if v := inconsistency(f.connections, f.alarms); v != "" {
					violation = v

					return
				}
			}
		}
	}()

	for w := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			id := alarm.NewConnID()
			f.dispatcher.Open(ctx, id)

			for i := range iterations {
				switch i % 5 {
				case 0:
					f.dispatcher.Message(ctx, id, fmt.Sprintf("start:w%d-%d", w, i%7))
				case 1:
					f.dispatcher.Heartbeat(ctx, id)
				case 2:
					f.dispatcher.Message(ctx, id, fmt.Sprintf("stop:w%d-%d", w, (i+3)%7))
				case 3:
					f.clock.Advance(time.Second)
				case 4:
					f.dispatcher.Message(ctx, id, "start:shared")
				}
			}

			if w%2 == 0 {
				f.dispatcher.Close(ctx, id)
			}
		}()
	}

	wg.Wait()
	close(done)
	<-checker

	require.Empty(t, violation)
	requireConsistent(t, f.connections, f.alarms)
}
