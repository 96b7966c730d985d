package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/debugger"
	"github.com/willibrandon/rummage/pkg/verify"
)

type attachOptions struct {
	*rootOptions
	Variant  string
	Breaks   []string
	MaxStops int
}

type attachResult struct {
	Checkpoints []debugger.RemoteCheckpoint `json:"checkpoints"`
	Exited      bool                        `json:"exited"`
	ExitStatus  int                         `json:"exit_status"`
	Report      *verify.Report              `json:"report"`
}

func newAttachCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &attachOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "attach <binary> [-- args...]",
		Short: "Trace a fixture binary under Delve and verify its checkpoints",
		Long: `Launch a fixture binary under a headless Delve server, stop at every
checkpoint, read the variables of the unit that reached it, and verify the
sequence and the exit status. Build the binary with -gcflags=all="-N -l" so
its locals survive. Requires dlv in PATH.

--break restricts the reported checkpoints to names or markers; the
expectation is restricted the same way.

Examples:
  rummage attach ./bin/basic --variant basic
  rummage attach ./bin/toplevel --variant toplevel --break '@loupe: break_main'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttach(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Variant, "variant", "", "fixture variant the binary runs (required)")
	_ = cmd.MarkFlagRequired("variant")
	cmd.Flags().StringArrayVarP(&opts.Breaks, "break", "b", nil, "checkpoint name pattern or \"@tag: name\" to report (repeatable)")
	cmd.Flags().IntVar(&opts.MaxStops, "max-stops", 0, "kill the target after this many stops (default: expected count plus slack)")

	return cmd
}

func runAttach(cmd *cobra.Command, opts *attachOptions, args []string) error {
	v, err := lookupVariant(opts.Variant)
	if err != nil {
		return err
	}

	bm := debugger.NewBreakpointManager()
	for _, b := range opts.Breaks {
		bp, err := bm.AddBreakpoint(b)
		if err != nil {
			return wrapExitError(exitCommandError, "bad breakpoint", err)
		}
		if bp.Type == debugger.LocationBreakpoint {
			return &exitError{Code: exitCommandError, Message: fmt.Sprintf("attach takes checkpoint breakpoints, not locations: %q", b)}
		}
	}

	exp := verify.ExpectationFor(v)
	maxStops := opts.MaxStops
	if maxStops <= 0 {
		maxStops = exp.Steps()
	}
	exp = restrict(exp, v.Tag, bm)

	dbg, err := debugger.NewDelveDebuggerWithArgs(cmd.Context(), args[0], args[1:], opts.logger)
	if err != nil {
		return wrapExitError(exitCommandError, "starting delve", err)
	}
	defer dbg.Close()

	res, err := dbg.Trace(cmd.Context(), bm, maxStops)
	if err != nil {
		return wrapExitError(exitCommandError, "tracing "+args[0], err)
	}

	report := &verify.Report{
		Variant:  v.Name,
		Expected: exp.Sequence,
		Observed: res.Names(),
		Outcome:  res.Outcome(),
	}
	report.Violations = verify.CheckSequence(exp, report.Observed, report.Outcome)

	if opts.json() {
		if err := writeJSON(cmd.OutOrStdout(), attachResult{
			Checkpoints: res.Checkpoints,
			Exited:      res.Exited,
			ExitStatus:  res.ExitStatus,
			Report:      report,
		}); err != nil {
			return wrapExitError(exitCommandError, "writing result", err)
		}
		return reportsErr(report)
	}

	writeRemote(cmd.OutOrStdout(), res, opts.Verbose)
	return writeReports(cmd.OutOrStdout(), opts.rootOptions, report)
}

// restrict keeps the expected names an enabled breakpoint reports.
func restrict(exp verify.Expectation, tag checkpoint.Tag, bm *debugger.BreakpointManager) verify.Expectation {
	var seq []string
	for _, name := range exp.Sequence {
		if bm.Matches(checkpoint.Checkpoint{Name: name, Tag: tag}) {
			seq = append(seq, name)
		}
	}
	exp.Sequence = seq
	return exp
}

func writeRemote(w io.Writer, res *debugger.TraceResult, locals bool) {
	for _, cp := range res.Checkpoints {
		fmt.Fprintf(w, "#%d %s %s:%d\n", cp.Ordinal, cp.Name, cp.File, cp.Line)
		if !locals {
			continue
		}
		for _, l := range cp.Locals {
			fmt.Fprintf(w, "    %s %s = %s\n", l.Name, l.Type, l.Value)
		}
	}
	if res.Exited {
		fmt.Fprintf(w, "exit status %d\n", res.ExitStatus)
	}
}
