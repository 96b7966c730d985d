package replay

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/recorder"
)

// Replayer interface defines methods for replaying a recorded checkpoint trace
type Replayer interface {
	// LoadEvents loads recorded events into the replayer
	LoadEvents([]recorder.Event) error

	// ReplayForward replays all events from the current position
	ReplayForward() error

	// ReplayUntilBreakpoint replays events until a breakpoint is hit
	ReplayUntilBreakpoint(breakpointCheck func(event recorder.Event) bool) error

	// ReplayToEventIndex replays events up to the specified index
	ReplayToEventIndex(idx int) error

	// StepBackward steps backward from the current index
	// returns the new index after stepping back
	StepBackward(currentIdx int) (int, error)

	// CurrentIndex returns the current event index
	CurrentIndex() int

	// Events returns all loaded events
	Events() []recorder.Event
}

// BasicReplayer implements the Replayer interface
type BasicReplayer struct {
	events     []recorder.Event
	currentIdx int

	out  io.Writer
	pace time.Duration
	vars bool
}

// Option configures a BasicReplayer.
type Option func(*BasicReplayer)

// WithOutput sets where replayed events are printed. The default discards them.
func WithOutput(w io.Writer) Option {
	return func(r *BasicReplayer) { r.out = w }
}

// WithPace sleeps d between replayed events.
func WithPace(d time.Duration) Option {
	return func(r *BasicReplayer) { r.pace = d }
}

// WithVars prints the captured variables of every checkpoint.
func WithVars() Option {
	return func(r *BasicReplayer) { r.vars = true }
}

// NewBasicReplayer creates a new BasicReplayer
func NewBasicReplayer(opts ...Option) *BasicReplayer {
	r := &BasicReplayer{
		events:     []recorder.Event{},
		currentIdx: -1,
		out:        io.Discard,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// LoadEvents loads the given events into the replayer
func (r *BasicReplayer) LoadEvents(events []recorder.Event) error {
	r.events = events
	r.currentIdx = -1
	return nil
}

// ReplayForward replays all events from current position to the end
func (r *BasicReplayer) ReplayForward() error {
	return r.ReplayUntilBreakpoint(nil)
}

// ReplayUntilBreakpoint replays events until a breakpoint is hit
// If breakpointCheck is nil, replay all events
func (r *BasicReplayer) ReplayUntilBreakpoint(breakpointCheck func(event recorder.Event) bool) error {
	if len(r.events) == 0 {
		return nil
	}

	startIdx := r.currentIdx + 1
	if startIdx < 0 {
		startIdx = 0
	}

	for i := startIdx; i < len(r.events); i++ {
		event := r.events[i]

		// Check if this event hits a breakpoint BEFORE reporting
		if breakpointCheck != nil && breakpointCheck(event) {
			fmt.Fprintf(r.out, "Breakpoint hit at event %d (%s)\n", i, describe(event))
			r.currentIdx = i
			return nil
		}

		if err := r.print(i, event); err != nil {
			return err
		}

		r.currentIdx = i
		if r.pace > 0 {
			time.Sleep(r.pace)
		}
	}

	fmt.Fprintln(r.out, "Replay complete")
	return nil
}

func (r *BasicReplayer) print(i int, event recorder.Event) error {
	_, err := fmt.Fprintf(r.out, "[%s] Event %d: %s - %s\n",
		event.Timestamp.Format(time.RFC3339),
		event.ID,
		event.Type,
		describe(event))
	if err != nil {
		return errors.Wrapf(err, "printing event %d", i)
	}
	if r.vars && event.Type == recorder.CheckpointReached {
		for _, v := range event.Vars {
			fmt.Fprintf(r.out, "    <(%s) %s = %s>\n", v.Type, v.Name, v.Value)
		}
	}
	return nil
}

func describe(e recorder.Event) string {
	switch e.Type {
	case recorder.RunStarted:
		return fmt.Sprintf("%s [%s] %s", e.Variant, e.Tag, strings.Join(e.Args, " "))
	case recorder.CheckpointReached:
		return fmt.Sprintf("#%d @%s: %s", e.Ordinal, e.Tag, e.Checkpoint)
	case recorder.RunFinished:
		if e.Details != "" {
			return fmt.Sprintf("%s: %s", e.Outcome, e.Details)
		}
		return e.Outcome
	default:
		return e.Details
	}
}

// ReplayToEventIndex replays events up to the specified index
func (r *BasicReplayer) ReplayToEventIndex(idx int) error {
	if idx < 0 || idx >= len(r.events) {
		return nil
	}

	r.currentIdx = idx
	return nil
}

// StepBackward moves one step backward in the event log
func (r *BasicReplayer) StepBackward(currentIdx int) (int, error) {
	if currentIdx <= 0 {
		return 0, errors.New("already at the beginning")
	}

	newIdx := currentIdx - 1
	r.currentIdx = newIdx
	return newIdx, nil
}

// CurrentIndex returns the current event index
func (r *BasicReplayer) CurrentIndex() int {
	return r.currentIdx
}

// Events returns all loaded events
func (r *BasicReplayer) Events() []recorder.Event {
	return r.events
}

// Checkpoints returns the names of the checkpoints in the trace, in order.
func (r *BasicReplayer) Checkpoints() []string {
	var names []string
	for _, e := range r.events {
		if e.Type == recorder.CheckpointReached {
			names = append(names, e.Checkpoint)
		}
	}
	return names
}

// Outcome is the terminal outcome recorded in the trace, or Running when the
// trace has no RunFinished event.
func (r *BasicReplayer) Outcome() checkpoint.Outcome {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type != recorder.RunFinished {
			continue
		}
		if o, err := checkpoint.ParseOutcome(r.events[i].Outcome); err == nil {
			return o
		}
	}
	return checkpoint.Running
}

// AtCheckpoint is a breakpoint check matching the named checkpoint.
func AtCheckpoint(name string) func(recorder.Event) bool {
	return func(e recorder.Event) bool {
		return e.Type == recorder.CheckpointReached && e.Checkpoint == name
	}
}
