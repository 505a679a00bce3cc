package hub

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
	"github.com/oshokin/alarm-hub/internal/logger"
	"github.com/oshokin/alarm-hub/internal/metrics"
)

// Pruner evicts connections and cascades the removal to the alarms they own.
type Pruner struct {
	connections *Connections
	alarms      *Alarms
	clock       clockwork.Clock
	expiry      time.Duration
	metrics     *metrics.Hub
}

// NewPruner creates a pruner expiring connections silent for longer than expiry.
func NewPruner(
	connections *Connections,
	alarms *Alarms,
	clock clockwork.Clock,
	expiry time.Duration,
	m *metrics.Hub,
) *Pruner {
	return &Pruner{
		connections: connections,
		alarms:      alarms,
		clock:       clock,
		expiry:      expiry,
		metrics:     m,
	}
}

// Sweep removes every expired connection together with its alarms and
// reports whether anything was evicted.
func (p *Pruner) Sweep(ctx context.Context) bool {
	var cascaded []alarm.Alarm

	evicted := p.connections.removeExpired(p.clock.Now(), p.expiry, func(id alarm.ConnID) {
		cascaded = append(cascaded, p.alarms.RemoveAllOwnedBy(id)...)
	})

	if evicted == 0 {
		return false
	}

	p.metrics.ObserveEviction(metrics.ReasonExpired, evicted)
	logger.InfoKV(ctx, "Expired connections pruned", "connections", evicted, "alarms", alarmNames(cascaded))

	return true
}

// Evict removes id and its alarms. It reports false if id was not live.
func (p *Pruner) Evict(ctx context.Context, id alarm.ConnID) bool {
	var cascaded []alarm.Alarm

	removed := p.connections.removeWith(id, func(owner alarm.ConnID) {
		cascaded = p.alarms.RemoveAllOwnedBy(owner)
	})

	if !removed {
		return false
	}

	p.metrics.ObserveEviction(metrics.ReasonClosed, 1)

	if len(cascaded) > 0 {
		logger.InfoKV(ctx, "Alarms of closed connection removed", "conn_id", id, "alarms", alarmNames(cascaded))
	}

	return true
}

func alarmNames(alarms []alarm.Alarm) []string {
	names := make([]string, 0, len(alarms))
	for _, a := range alarms {
		names = append(names, a.Name)
	}

	return names
}
