package alarm

import "strings"

// CommandKind enumerates the client messages the hub understands.
type CommandKind int

const (
	// CommandUnknown is any payload without a recognized prefix.
	CommandUnknown CommandKind = iota
	// CommandStart registers or refreshes an alarm.
	CommandStart
	// CommandStop removes an alarm.
	CommandStop
)

const (
	// StartPrefix precedes the alarm name in a start message.
	StartPrefix = "start:"
	// StopPrefix precedes the alarm name in a stop message.
	StopPrefix = "stop:"
)

// String implements fmt.Stringer.
func (k CommandKind) String() string {
	switch k {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Command is a parsed client message.
type Command struct {
	Kind CommandKind
	// Name is everything after the prefix, possibly empty.
	Name string
}

// ParseCommand classifies a text payload.
// Unrecognized payloads yield CommandUnknown and are not an error.
func ParseCommand(payload string) Command {
	if name, ok := strings.CutPrefix(payload, StartPrefix); ok {
		return Command{Kind: CommandStart, Name: name}
	}

	if name, ok := strings.CutPrefix(payload, StopPrefix); ok {
		return Command{Kind: CommandStop, Name: name}
	}

	return Command{Kind: CommandUnknown}
}

// StartMessage builds the wire form of a start command.
func StartMessage(name string) string {
	return StartPrefix + name
}

// StopMessage builds the wire form of a stop command.
func StopMessage(name string) string {
	return StopPrefix + name
}
