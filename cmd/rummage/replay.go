package main

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/debugger"
	"github.com/willibrandon/rummage/pkg/recorder"
	"github.com/willibrandon/rummage/pkg/replay"
	"github.com/willibrandon/rummage/pkg/verify"
)

type replayOptions struct {
	*rootOptions
	Breaks  []string
	From    int
	Back    int
	Pace    time.Duration
	Variant string
	Prints  []string
}

type replaySummary struct {
	Events      int            `json:"events"`
	Position    int            `json:"position"`
	Checkpoints []string       `json:"checkpoints"`
	Outcome     string         `json:"outcome"`
	Printed     []printedVar   `json:"printed,omitempty"`
	Report      *verify.Report `json:"report,omitempty"`
}

// printedVar is a variable as captured at the checkpoint replay stopped at.
type printedVar struct {
	Checkpoint string `json:"checkpoint"`
	Ordinal    int    `json:"ordinal"`
	recorder.VarRecord
}

func newReplayCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &replayOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <trace>",
		Short: "Replay a recorded checkpoint trace",
		Long: `Print a recorded trace event by event. Plain and zstd compressed traces
are both accepted.

--break stops at the first checkpoint matching a name pattern, an
"@tag: name" marker or a file:line location. --back then steps back through
the events before it. --print shows a variable as captured at the last
checkpoint at or before where replay stopped. --variant verifies the trace
as well.

Examples:
  rummage replay full.trace
  rummage replay full.trace --break test_pointer --back 2
  rummage replay full.trace --break test_pointer --print here --print text
  rummage replay basic.trace --variant basic -v`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Breaks, "break", "b", nil, "stop at a checkpoint, marker or file:line (repeatable)")
	cmd.Flags().IntVar(&opts.From, "from", -1, "skip to this event index before replaying")
	cmd.Flags().IntVar(&opts.Back, "back", 0, "steps to go back after stopping")
	cmd.Flags().DurationVar(&opts.Pace, "pace", 0, "delay between events")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "verify the trace against this variant")
	cmd.Flags().StringArrayVarP(&opts.Prints, "print", "p", nil, "print a captured variable where replay stopped (repeatable)")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *replayOptions, path string) error {
	events, err := recorder.LoadFile(path)
	if err != nil {
		return wrapExitError(exitCommandError, "reading trace", err)
	}

	bm := debugger.NewBreakpointManager()
	for _, b := range opts.Breaks {
		if _, err := bm.AddBreakpoint(b); err != nil {
			return wrapExitError(exitCommandError, "bad breakpoint", err)
		}
	}

	out := cmd.OutOrStdout()
	if opts.json() {
		out = io.Discard
	}
	ropts := []replay.Option{replay.WithOutput(out), replay.WithPace(opts.Pace)}
	if opts.Verbose {
		ropts = append(ropts, replay.WithVars())
	}
	r := replay.NewBasicReplayer(ropts...)
	if err := r.LoadEvents(events); err != nil {
		return wrapExitError(exitCommandError, "loading trace", err)
	}
	if err := r.ReplayToEventIndex(opts.From); err != nil {
		return wrapExitError(exitCommandError, "seeking", err)
	}

	var check func(recorder.Event) bool
	if len(opts.Breaks) > 0 {
		check = func(e recorder.Event) bool {
			return e.Type == recorder.CheckpointReached && bm.CheckBreakpoint(eventCheckpoint(e))
		}
	}
	if err := r.ReplayUntilBreakpoint(check); err != nil {
		return wrapExitError(exitCommandError, "replaying", err)
	}

	for i := 0; i < opts.Back; i++ {
		idx, err := r.StepBackward(r.CurrentIndex())
		if err != nil {
			fmt.Fprintln(out, err)
			break
		}
		e := r.Events()[idx]
		fmt.Fprintf(out, "Back to event %d: %s\n", idx, e.Type)
	}

	summary := replaySummary{
		Events:      len(events),
		Position:    r.CurrentIndex(),
		Checkpoints: r.Checkpoints(),
		Outcome:     r.Outcome().String(),
	}
	if len(opts.Prints) > 0 {
		printed, err := printVars(r.Events(), r.CurrentIndex(), opts.Prints)
		if err != nil {
			return wrapExitError(exitCommandError, "printing", err)
		}
		for _, p := range printed {
			fmt.Fprintf(out, "%s = %s (%s) at %s #%d\n", p.Name, p.Value, p.Type, p.Checkpoint, p.Ordinal)
		}
		summary.Printed = printed
	}
	if opts.Variant != "" {
		v, err := lookupVariant(opts.Variant)
		if err != nil {
			return err
		}
		summary.Report = verify.VerifyEvents(verify.ExpectationFor(v).Filter(checkpoint.CurrentOptions), events)
	}

	if opts.json() {
		if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
			return wrapExitError(exitCommandError, "writing summary", err)
		}
	} else if summary.Report != nil {
		if err := summary.Report.WriteText(out); err != nil {
			return wrapExitError(exitCommandError, "writing report", err)
		}
	}
	if summary.Report != nil {
		return reportsErr(summary.Report)
	}
	return nil
}

// printVars looks names up in the last checkpoint event at or before idx.
func printVars(events []recorder.Event, idx int, names []string) ([]printedVar, error) {
	if idx >= len(events) {
		idx = len(events) - 1
	}
	for ; idx >= 0; idx-- {
		if events[idx].Type == recorder.CheckpointReached {
			break
		}
	}
	if idx < 0 {
		return nil, errors.New("no checkpoint reached yet")
	}
	e := events[idx]
	printed := make([]printedVar, 0, len(names))
	for _, name := range names {
		v, ok := recorder.Lookup(e.Vars, name)
		if !ok {
			return nil, errors.Errorf("%s is not visible at %s #%d", name, e.Checkpoint, e.Ordinal)
		}
		printed = append(printed, printedVar{Checkpoint: e.Checkpoint, Ordinal: e.Ordinal, VarRecord: v})
	}
	return printed, nil
}

func eventCheckpoint(e recorder.Event) checkpoint.Checkpoint {
	return checkpoint.Checkpoint{
		Name:    e.Checkpoint,
		Ordinal: e.Ordinal,
		Tag:     checkpoint.Tag(e.Tag),
		File:    e.File,
		Line:    e.Line,
	}
}
