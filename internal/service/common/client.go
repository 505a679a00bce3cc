//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/alarm-hub/internal/config"
	"github.com/oshokin/alarm-hub/internal/domain/alarm"
)

// Client wraps a websocket connection to the alarm hub with protocol helpers.
type Client struct {
	// conn is the underlying websocket connection.
	conn *websocket.Conn
	// writeMu serializes data frames; control frames are safe without it.
	writeMu sync.Mutex

	// callTimeout bounds the handshake and every write.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets the handshake and write timeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial opens a websocket connection to the hub at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultWriteTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: client.callTimeout,
	}

	//nolint:bodyclose // The response body is owned by the websocket connection.
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial alarm hub: %w", err)
	}

	client.conn = conn

	return client, nil
}

// StartAlarm registers or refreshes the alarm called name.
func (c *Client) StartAlarm(name string) error {
	if err := c.writeText(alarm.StartMessage(name)); err != nil {
		return fmt.Errorf("start alarm: %w", err)
	}

	return nil
}

// StopAlarm removes the alarm called name.
func (c *Client) StopAlarm(name string) error {
	if err := c.writeText(alarm.StopMessage(name)); err != nil {
		return fmt.Errorf("stop alarm: %w", err)
	}

	return nil
}

// Heartbeat sends a ping frame, keeping the connection live on the hub.
func (c *Client) Heartbeat() error {
	if err := c.conn.WriteControl(websocket.PingMessage, nil, c.deadline()); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}

	return nil
}

// ReadUpdate blocks until the hub pushes an alarm list.
// Only one goroutine may call it at a time.
func (c *Client) ReadUpdate() (string, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("read update: %w", err)
		}

		if messageType == websocket.TextMessage {
			return string(data), nil
		}
	}
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, c.deadline())

	return c.conn.Close()
}

func (c *Client) writeText(payload string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(c.deadline()); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func (c *Client) deadline() time.Time {
	return time.Now().Add(c.callTimeout)
}
