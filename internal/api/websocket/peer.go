package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/alarm-hub/internal/domain/alarm"
)

// peer owns the write side of one connection.
type peer struct {
	id           alarm.ConnID
	conn         *websocket.Conn
	writeTimeout time.Duration
	// sendCh is never closed; done signals the writer to exit.
	sendCh   chan string
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newPeer(id alarm.ConnID, conn *websocket.Conn, writeTimeout time.Duration, buffer int) *peer {
	return &peer{
		id:           id,
		conn:         conn,
		writeTimeout: writeTimeout,
		sendCh:       make(chan string, buffer),
		done:         make(chan struct{}),
	}
}

// start launches the writer goroutine.
func (p *peer) start() {
	p.wg.Add(1)

	go p.run()
}

func (p *peer) run() {
	defer p.wg.Done()

	for {
		select {
		case payload := <-p.sendCh:
			_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))

			if err := p.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				// Unblocks the reader, which tears the connection down.
				_ = p.conn.Close()

				return
			}
		case <-p.done:
			return
		}
	}
}

// enqueue queues payload without blocking.
func (p *peer) enqueue(payload string) error {
	select {
	case <-p.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case p.sendCh <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// stop terminates the writer and closes the connection.
func (p *peer) stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
	p.wg.Wait()
}

// stopGraceful sends a close frame with reason before closing.
func (p *peer) stopGraceful(reason string) {
	p.stopOnce.Do(func() {
		close(p.done)

		// The writer must be gone before the close frame goes out.
		p.wg.Wait()

		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
		_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(p.writeTimeout))
		_ = p.conn.Close()
	})
	p.wg.Wait()
}
