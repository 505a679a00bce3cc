package hub

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
)

// TestAlarms_TopOrdering returns the most recent alarms first and drops the oldest beyond the cap.
func TestAlarms_TopOrdering(t *testing.T) {
	t.Parallel()

	a := NewAlarms()
	owner := alarm.NewConnID()
	base := time.Unix(1000, 0)

	// Inserted out of order on purpose.
	for _, i := range []int{3, 1, 5, 2, 4} {
		a.Start(fmt.Sprintf("t%d", i), owner, base.Add(time.Duration(i)*time.Second))
	}

	top := a.Top(4)
	require.Len(t, top, 4)

	names := make([]string, 0, len(top))
	for _, entry := range top {
		names = append(names, entry.Name)
	}

	require.Equal(t, []string{"t5", "t4", "t3", "t2"}, names)
	require.Len(t, a.Top(10), 5)
	require.Empty(t, a.Top(0))
}

// TestAlarms_TopTiesAreDeterministic orders alarms started at the same instant by name.
func TestAlarms_TopTiesAreDeterministic(t *testing.T) {
	t.Parallel()

	a := NewAlarms()
	owner := alarm.NewConnID()
	ts := time.Unix(1000, 0)

	for _, name := range []string{"delta", "alpha", "charlie", "bravo"} {
		a.Start(name, owner, ts)
	}

	for range 10 {
		top := a.Top(3)
		require.Equal(t, "alpha", top[0].Name)
		require.Equal(t, "bravo", top[1].Name)
		require.Equal(t, "charlie", top[2].Name)
	}
}

// TestAlarms_StopIsIdempotent leaves the registry untouched when the name is unknown.
func TestAlarms_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	a := NewAlarms()
	a.Start("coffee", alarm.NewConnID(), time.Unix(1, 0))

	_, ok := a.Stop("tea")
	require.False(t, ok)
	require.Equal(t, 1, a.Len())

	stopped, ok := a.Stop("coffee")
	require.True(t, ok)
	require.Equal(t, "coffee", stopped.Name)

	_, ok = a.Stop("coffee")
	require.False(t, ok)
	require.Zero(t, a.Len())
}

// TestAlarms_StartOverwrites transfers ownership and timestamp to the last writer.
func TestAlarms_StartOverwrites(t *testing.T) {
	t.Parallel()

	a := NewAlarms()
	connA, connB := alarm.NewConnID(), alarm.NewConnID()
	t1, t2 := time.Unix(1, 0), time.Unix(2, 0)

	_, replaced := a.Start("x", connA, t1)
	require.False(t, replaced)

	previous, replaced := a.Start("x", connB, t2)
	require.True(t, replaced)
	require.Equal(t, connA, previous.Owner)

	require.Equal(t, 1, a.Len())

	got, ok := a.Get("x")
	require.True(t, ok)
	require.Equal(t, alarm.Alarm{Name: "x", Owner: connB, StartedAt: t2}, got)
}

// TestAlarms_RemoveAllOwnedBy only removes alarms of the given owner.
func TestAlarms_RemoveAllOwnedBy(t *testing.T) {
	t.Parallel()

	a := NewAlarms()
	mine, theirs := alarm.NewConnID(), alarm.NewConnID()

	a.Start("one", mine, time.Unix(1, 0))
	a.Start("two", mine, time.Unix(2, 0))
	a.Start("three", theirs, time.Unix(3, 0))

	removed := a.RemoveAllOwnedBy(mine)
	require.Len(t, removed, 2)
	require.Equal(t, 1, a.Len())

	_, ok := a.Get("three")
	require.True(t, ok)

	require.Empty(t, a.RemoveAllOwnedBy(alarm.NewConnID()))
}

// TestAlarms_RenderTop renders an empty registry as an empty payload.
func TestAlarms_RenderTop(t *testing.T) {
	t.Parallel()

	a := NewAlarms()
	require.Empty(t, a.RenderTop(testMaxAlarms))

	a.Start("coffee", alarm.NewConnID(), time.Date(2024, time.March, 1, 9, 30, 0, 0, time.Local))
	require.Equal(t, "coffee\n  Fri Mar 1 09:30:00", a.RenderTop(testMaxAlarms))
}
