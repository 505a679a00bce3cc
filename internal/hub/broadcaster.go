package hub

import (
	"context"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
	"github.com/oshokin/alarm-hub/internal/logger"
	"github.com/oshokin/alarm-hub/internal/metrics"
)

// Sender delivers a text payload to one connection.
// Implementations must not block on a slow peer.
type Sender interface {
	Send(id alarm.ConnID, payload string) error
}

// Broadcaster pushes the current alarm list to every live connection.
type Broadcaster struct {
	connections *Connections
	alarms      *Alarms
	sender      Sender
	maxAlarms   int
	metrics     *metrics.Hub
}

// NewBroadcaster creates a broadcaster rendering at most maxAlarms alarms.
func NewBroadcaster(
	connections *Connections,
	alarms *Alarms,
	sender Sender,
	maxAlarms int,
	m *metrics.Hub,
) *Broadcaster {
	return &Broadcaster{
		connections: connections,
		alarms:      alarms,
		sender:      sender,
		maxAlarms:   maxAlarms,
		metrics:     m,
	}
}

// Publish renders the alarm list once and sends it to every live connection.
// An empty list is still sent.
func (b *Broadcaster) Publish(ctx context.Context) {
	payload := b.alarms.RenderTop(b.maxAlarms)
	recipients := b.connections.Snapshot()

	for _, id := range recipients {
		b.sendBestEffort(ctx, id, payload)
	}

	b.metrics.ObserveBroadcast()
	logger.DebugKV(ctx, "Alarm list published", "recipients", len(recipients), "bytes", len(payload))
}

// sendBestEffort delivers payload to one connection.
// A failure is logged and counted, never returned, and does not affect other recipients.
func (b *Broadcaster) sendBestEffort(ctx context.Context, id alarm.ConnID, payload string) {
	if err := b.sender.Send(id, payload); err != nil {
		b.metrics.ObserveSendFailure()
		logger.WarnKV(ctx, "Broadcast delivery dropped", "conn_id", id, "error", err)
	}
}
