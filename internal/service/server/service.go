package server

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/alarm-hub/internal/api/websocket"
	"github.com/oshokin/alarm-hub/internal/config"
	"github.com/oshokin/alarm-hub/internal/hub"
	"github.com/oshokin/alarm-hub/internal/metrics"
)

// service owns the hub registries and wires them to the transport.
// It is unexported to keep process bootstrap separate from the hub itself.
type service struct {
	// connections and alarms are the only process-wide mutable state.
	connections *hub.Connections
	alarms      *hub.Alarms
	// dispatcher turns transport events into registry updates and broadcasts.
	dispatcher *hub.Dispatcher
	// transport carries websocket traffic and implements hub.Sender.
	transport *websocket.Transport
	// registry collects the hub metrics.
	registry *prometheus.Registry
}

// newService builds an empty hub configured by cfg.
func newService(cfg *config.Config, clock clockwork.Clock) *service {
	var (
		registry    = metrics.NewRegistry()
		connections = hub.NewConnections()
		alarms      = hub.NewAlarms()
		transport   = websocket.NewTransport(websocket.Options{
			WriteTimeout: cfg.WriteTimeout,
			SendBuffer:   cfg.SendBuffer,
		})
	)

	hubMetrics := metrics.NewHub(registry, metrics.Gauges{
		Connections: connections.Len,
		Alarms:      alarms.Len,
	})

	pruner := hub.NewPruner(connections, alarms, clock, cfg.ClientExpiry, hubMetrics)
	broadcaster := hub.NewBroadcaster(connections, alarms, transport, cfg.MaxAlarms, hubMetrics)

	return &service{
		connections: connections,
		alarms:      alarms,
		dispatcher:  hub.NewDispatcher(connections, alarms, pruner, broadcaster, clock, hubMetrics),
		transport:   transport,
		registry:    registry,
	}
}

// handler serves metrics on /metrics and websocket upgrades everywhere else.
func (s *service) handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(s.registry))
	mux.Handle("/", s.transport.Handler(ctx, s.dispatcher))

	return mux
}
