package alarm

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConnID identifies a transport connection.
// It is assigned once when the connection is opened and compared by value.
type ConnID uuid.UUID

// NewConnID returns a fresh random connection identity.
func NewConnID() ConnID {
	return ConnID(uuid.New())
}

// String implements fmt.Stringer.
func (id ConnID) String() string {
	return uuid.UUID(id).String()
}

// Alarm is a named timer reported by a client.
type Alarm struct {
	// Name is the unique key of the alarm.
	Name string
	// Owner is the connection that started the alarm most recently.
	Owner ConnID
	// StartedAt is when the owner reported the start.
	StartedAt time.Time
}

// timestampLayout mirrors ctime(3) without the trailing year.
const timestampLayout = "Mon Jan 2 15:04:05"

// FormatTimestamp renders t in local time for broadcast payloads,
// e.g. "Wed Jun 3 21:49:08".
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(timestampLayout)
}

// Render joins alarms into the broadcast payload.
// Every alarm takes two lines: its name, then two spaces and the start time.
// An empty slice renders as an empty string.
func Render(alarms []Alarm) string {
	var b strings.Builder

	for i, a := range alarms {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString(a.Name)
		b.WriteString("\n  ")
		b.WriteString(FormatTimestamp(a.StartedAt))
	}

	return b.String()
}
