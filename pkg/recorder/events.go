package recorder

import "time"

type EventType int

const (
	RunStarted EventType = iota
	CheckpointReached
	ValueEmitted
	RunFinished
)

// Event is one line of a checkpoint trace.
type Event struct {
	ID         int64
	Timestamp  time.Time
	Type       EventType
	RunID      string
	Variant    string
	Tag        string      `json:",omitempty"`
	Args       []string    `json:",omitempty"`
	Checkpoint string      `json:",omitempty"`
	Ordinal    int         `json:",omitempty"`
	File       string      `json:",omitempty"`
	Line       int         `json:",omitempty"`
	Details    string      `json:",omitempty"` // emitted line, abort reason, etc.
	Vars       []VarRecord `json:",omitempty"`

	// Set on RunFinished only.
	Outcome     string `json:",omitempty"`
	Leaked      int    `json:",omitempty"`
	DoubleFrees int    `json:",omitempty"`
}

// String returns the string representation of the EventType
func (et EventType) String() string {
	switch et {
	case RunStarted:
		return "RunStarted"
	case CheckpointReached:
		return "CheckpointReached"
	case ValueEmitted:
		return "ValueEmitted"
	case RunFinished:
		return "RunFinished"
	default:
		return "Unknown"
	}
}

// CurrentTime is the clock events are stamped with.
var CurrentTime = time.Now
