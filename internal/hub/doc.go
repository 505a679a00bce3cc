// Package hub keeps the authoritative set of live connections and active
// alarms and fans every change out to all live connections.
//
// Two registries are guarded by independent mutexes. Whenever both are
// needed, the connection lock is taken first and the alarm lock nested inside
// it, so no reader ever sees a connection gone while its alarms remain.
//
// Liveness is evaluated lazily: the Dispatcher sweeps expired connections on
// every inbound event, there is no background timer. A silent client can stay
// live past its expiry until the next event from any connection arrives.
package hub
