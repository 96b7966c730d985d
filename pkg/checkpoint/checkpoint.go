package checkpoint

import (
	"fmt"
	"reflect"
)

// Checkpoint is one point in a run at which the live bindings form a stable snapshot.
type Checkpoint struct {
	Name    string
	Ordinal int // 1-based position in the run's trail
	Tag     Tag
	File    string
	Line    int
}

// Marker returns the source annotation for c.
func (c Checkpoint) Marker() Marker {
	return Marker{Tag: c.Tag, Name: c.Name}
}

func (c Checkpoint) String() string {
	return fmt.Sprintf("#%d %s (%s:%d)", c.Ordinal, c.Marker(), c.File, c.Line)
}

// Char is a single character. It is a distinct type so observers can tell
// characters apart from small integers.
type Char byte

// Binding associates a variable name with a pointer to the live variable.
type Binding struct {
	Name string
	Ref  any
}

// Bind creates a binding. ref must be a non-nil pointer to the variable.
func Bind(name string, ref any) Binding {
	if name == "" {
		panic("checkpoint: empty binding name")
	}
	v := reflect.ValueOf(ref)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		panic(fmt.Sprintf("checkpoint: binding %q needs a non-nil pointer, got %T", name, ref))
	}
	return Binding{Name: name, Ref: ref}
}

// Snapshot is the set of bindings that are live at a checkpoint. It is only
// valid while the observer's CheckpointReached call is in progress.
type Snapshot struct {
	RunID      string
	Variant    string
	Checkpoint Checkpoint
	Bindings   []Binding // entry-level bindings first, unit locals last
	Heap       *Heap
}

// Lookup finds the innermost binding with the given name.
func (s *Snapshot) Lookup(name string) (Binding, bool) {
	for i := len(s.Bindings) - 1; i >= 0; i-- {
		if s.Bindings[i].Name == name {
			return s.Bindings[i], true
		}
	}
	return Binding{}, false
}

// Names returns the visible binding names, innermost first, without shadowed duplicates.
func (s *Snapshot) Names() []string {
	seen := make(map[string]bool, len(s.Bindings))
	names := make([]string, 0, len(s.Bindings))
	for i := len(s.Bindings) - 1; i >= 0; i-- {
		n := s.Bindings[i].Name
		if seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}

// Outcome is the terminal state of a run.
type Outcome int

const (
	// Running means no terminal action has been taken yet
	Running Outcome = iota
	// CompletedNormally means the entry routine returned
	CompletedNormally
	// AbortedDeliberately means the fixture ended the run with an intentional abort
	AbortedDeliberately
	// Crashed is only ever observed from outside: the process died in a way
	// that is neither a normal exit nor the deliberate abort
	Crashed
)

// Terminal reports whether o is an end a fixture can choose.
func (o Outcome) Terminal() bool {
	return o == CompletedNormally || o == AbortedDeliberately
}

// String returns the string representation of the Outcome
func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case CompletedNormally:
		return "completed"
	case AbortedDeliberately:
		return "aborted"
	case Crashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "running":
		return Running, nil
	case "completed":
		return CompletedNormally, nil
	case "aborted":
		return AbortedDeliberately, nil
	case "crashed":
		return Crashed, nil
	}
	return Running, fmt.Errorf("unknown outcome %q", s)
}

// RunInfo describes a run to observers.
type RunInfo struct {
	ID          string
	Variant     string
	Tag         Tag
	Args        []string
	Outcome     Outcome
	AbortReason string
	Reached     int // number of checkpoints reached
	Leaked      int // heap buffers still live at the terminal action
	DoubleFrees int
}
