// Package websocket is the transport of the alarm hub.
//
// Every upgraded connection gets a ConnID, a reader loop that turns text
// frames into messages and ping frames into heartbeats, and a writer goroutine
// draining a bounded queue. Send only enqueues, so a stalled peer can never
// hold up a broadcast to the others.
package websocket
