// Package client implements the alarm-client command.
//
// The command connects to the hub, optionally starts an alarm, keeps the
// connection live with heartbeats, prints every pushed alarm list and stops
// its alarm again on exit.
package client
