// Package alarm contains core domain types for the alarm hub.
//
// It defines ConnID (the identity of a live connection), Alarm (a named timer
// owned by one connection), the client command grammar and the text rendering
// pushed to clients on every broadcast.
package alarm
