package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
	"github.com/oshokin/alarm-hub/internal/logger"
)

// EventHandler receives connection lifecycle events.
// Calls for one connection are sequential; calls for different connections are concurrent.
type EventHandler interface {
	Open(ctx context.Context, id alarm.ConnID)
	Close(ctx context.Context, id alarm.ConnID)
	Message(ctx context.Context, id alarm.ConnID, payload string)
	Heartbeat(ctx context.Context, id alarm.ConnID)
}

// Options configures the transport.
type Options struct {
	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration
	// SendBuffer is the number of payloads queued per connection.
	SendBuffer int
	// CheckOrigin overrides the upgrader origin check. Nil accepts any origin.
	CheckOrigin func(r *http.Request) bool
}

const (
	defaultWriteTimeout = 5 * time.Second
	defaultSendBuffer   = 16

	// maxMessageSize limits inbound frames.
	maxMessageSize = 64 << 10

	shutdownReason = "server shutting down"
)

var (
	// ErrUnknownConnection is returned by Send for ids without an open connection.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrSendBufferFull is returned by Send when the peer is not draining its queue.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrConnectionClosed is returned by Send when the peer is shutting down.
	ErrConnectionClosed = errors.New("connection closed")
	// errTransportClosed rejects upgrades after Shutdown.
	errTransportClosed = errors.New("transport closed")
)

// Transport upgrades HTTP requests to websocket connections and delivers payloads to them.
type Transport struct {
	upgrader websocket.Upgrader
	opts     Options

	mu     sync.RWMutex
	peers  map[alarm.ConnID]*peer
	closed bool

	// serving tracks connection handlers still running.
	serving sync.WaitGroup
}

// NewTransport creates a transport with no connections.
func NewTransport(opts Options) *Transport {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}

	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Transport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		opts:  opts,
		peers: make(map[alarm.ConnID]*peer),
	}
}

// Send queues payload for delivery to id. It never blocks.
func (t *Transport) Send(id alarm.ConnID, payload string) error {
	t.mu.RLock()
	p, ok := t.peers[id]
	t.mu.RUnlock()

	if !ok {
		return ErrUnknownConnection
	}

	return p.enqueue(payload)
}

// Len returns the number of open connections.
func (t *Transport) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.peers)
}

// Handler returns an http.Handler serving websocket upgrades.
// ctx carries the logger used for connection events.
func (t *Transport) Handler(ctx context.Context, events EventHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.serve(ctx, events, w, r)
	})
}

// Shutdown sends a close frame to every connection and waits for their handlers to return.
func (t *Transport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true

	peers := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.mu.Unlock()

	for _, p := range peers {
		p.stopGraceful(shutdownReason)
	}

	finished := make(chan struct{})

	go func() {
		t.serving.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transport) serve(ctx context.Context, events EventHandler, w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		logger.WarnKV(ctx, "Websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)

		return
	}

	id := alarm.NewConnID()
	ctx = logger.WithKV(ctx, "conn_id", id.String())

	p := newPeer(id, conn, t.opts.WriteTimeout, t.opts.SendBuffer)
	if err := t.register(p); err != nil {
		_ = conn.Close()

		return
	}

	defer t.serving.Done()

	conn.SetReadLimit(maxMessageSize)
	conn.SetPingHandler(t.pingHandler(ctx, events, conn, id))

	logger.DebugKV(ctx, "Websocket connected", "remote_addr", r.RemoteAddr)
	events.Open(ctx, id)
	p.start()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.DebugKV(ctx, "Websocket read stopped", "error", err)
			}

			break
		}

		if messageType == websocket.TextMessage {
			events.Message(ctx, id, string(data))
		}
	}

	t.unregister(id)
	p.stop()
	events.Close(ctx, id)
}

// pingHandler turns a ping frame into a heartbeat and answers with a pong.
func (t *Transport) pingHandler(
	ctx context.Context,
	events EventHandler,
	conn *websocket.Conn,
	id alarm.ConnID,
) func(string) error {
	return func(data string) error {
		events.Heartbeat(ctx, id)

		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(t.opts.WriteTimeout))
		if err == nil || errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}

		return err
	}
}

func (t *Transport) register(p *peer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errTransportClosed
	}

	t.peers[p.id] = p
	t.serving.Add(1)

	return nil
}

func (t *Transport) unregister(id alarm.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.peers, id)
}
