package hub

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
	"github.com/oshokin/alarm-hub/internal/logger"
	"github.com/oshokin/alarm-hub/internal/metrics"
)

// Dispatcher reacts to transport events by updating the registries,
// pruning expired connections and publishing the alarm list.
// It is safe for concurrent use by every connection handler.
type Dispatcher struct {
	connections *Connections
	alarms      *Alarms
	pruner      *Pruner
	broadcaster *Broadcaster
	clock       clockwork.Clock
	metrics     *metrics.Hub
}

// NewDispatcher wires the registries and their collaborators together.
func NewDispatcher(
	connections *Connections,
	alarms *Alarms,
	pruner *Pruner,
	broadcaster *Broadcaster,
	clock clockwork.Clock,
	m *metrics.Hub,
) *Dispatcher {
	return &Dispatcher{
		connections: connections,
		alarms:      alarms,
		pruner:      pruner,
		broadcaster: broadcaster,
		clock:       clock,
		metrics:     m,
	}
}

// Open registers a new connection. Nothing is published until it sends something.
func (d *Dispatcher) Open(ctx context.Context, id alarm.ConnID) {
	d.connections.Upsert(id, d.clock.Now())
	logger.DebugKV(ctx, "Connection opened", "conn_id", id)
}

// Close forgets a connection and the alarms it owns, then publishes.
func (d *Dispatcher) Close(ctx context.Context, id alarm.ConnID) {
	d.pruner.Evict(ctx, id)
	logger.DebugKV(ctx, "Connection closed", "conn_id", id)

	d.pruner.Sweep(ctx)
	d.broadcaster.Publish(ctx)
}

// Message applies a client command, then publishes even if the payload was not understood.
func (d *Dispatcher) Message(ctx context.Context, id alarm.ConnID, payload string) {
	cmd := alarm.ParseCommand(payload)
	d.metrics.ObserveMessage(cmd.Kind.String())

	switch cmd.Kind {
	case alarm.CommandStart:
		d.start(ctx, id, cmd.Name)
	case alarm.CommandStop:
		d.stop(ctx, cmd.Name)
	case alarm.CommandUnknown:
		logger.DebugKV(ctx, "Unrecognized message ignored", "conn_id", id, "payload_bytes", len(payload))
	}

	d.pruner.Sweep(ctx)
	d.broadcaster.Publish(ctx)
}

// Heartbeat refreshes a connection and publishes only if the sweep evicted someone.
func (d *Dispatcher) Heartbeat(ctx context.Context, id alarm.ConnID) {
	d.connections.Upsert(id, d.clock.Now())

	if d.pruner.Sweep(ctx) {
		d.broadcaster.Publish(ctx)
	}
}

// start registers the alarm for id, provided id is still live.
// A connection already pruned cannot own alarms.
func (d *Dispatcher) start(ctx context.Context, id alarm.ConnID, name string) {
	var (
		now      = d.clock.Now()
		previous alarm.Alarm
		replaced bool
	)

	live := d.connections.whileLive(id, func() {
		previous, replaced = d.alarms.Start(name, id, now)
	})
	if !live {
		logger.WarnKV(ctx, "Start from pruned connection ignored", "conn_id", id, "alarm", name)

		return
	}

	logger.InfoKV(ctx, "Alarm started", "alarm", name, "started_at", alarm.FormatTimestamp(now), "conn_id", id)

	if replaced && previous.Owner != id {
		logger.InfoKV(ctx, "Alarm ownership transferred", "alarm", name, "from", previous.Owner, "to", id)
	}
}

func (d *Dispatcher) stop(ctx context.Context, name string) {
	stopped, ok := d.alarms.Stop(name)
	if !ok {
		return
	}

	logger.InfoKV(ctx, "Alarm stopped", "alarm", name, "started_at", alarm.FormatTimestamp(stopped.StartedAt))
}
