package main

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/fixture"
	"github.com/willibrandon/rummage/pkg/recorder"
	"github.com/willibrandon/rummage/pkg/verify"
)

// selectionFlags override the RUMMAGE_ONLY and RUMMAGE_SKIP environment.
type selectionFlags struct {
	Only []string
	Skip []string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.Only, "only", nil, "checkpoint patterns to deliver (overrides RUMMAGE_ONLY)")
	cmd.Flags().StringSliceVar(&f.Skip, "skip", nil, "checkpoint patterns not to deliver (overrides RUMMAGE_SKIP)")
}

func (f *selectionFlags) options() checkpoint.Options {
	o := checkpoint.CurrentOptions
	if len(f.Only) > 0 {
		o.Only = f.Only
	}
	if len(f.Skip) > 0 {
		o.Skip = f.Skip
	}
	return o
}

func lookupVariant(name string) (fixture.Variant, error) {
	v, ok := fixture.Lookup(name)
	if !ok {
		return fixture.Variant{}, &exitError{Code: exitCommandError, Message: "unknown variant " + name}
	}
	return v, nil
}

type runOptions struct {
	*rootOptions
	selectionFlags
	Trace       string
	Compression string
	MaxSteps    int
	NoHooks     bool
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <variant> [args...]",
		Short: "Run a fixture variant in process and verify it",
		Long: `Run a fixture variant in this process with the verifier attached.

The variant sees "variant args..." as its argument vector. Every checkpoint is
checked for order, the default hooks inspect the variables live at each
checkpoint, and the outcome is compared with the variant's terminal outcome.

Examples:
  rummage run basic
  rummage run full --trace full.trace --compression zstd
  rummage run toplevel --only 'test_...' --no-hooks`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts, args)
		},
	}

	opts.selectionFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "also record the run to this trace file")
	cmd.Flags().StringVar(&opts.Compression, "compression", "none", "trace compression (none|zstd)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "stop checking after this many checkpoint deliveries")
	cmd.Flags().BoolVar(&opts.NoHooks, "no-hooks", false, "check ordering and outcome only")

	return cmd
}

func runRun(cmd *cobra.Command, opts *runOptions, args []string) error {
	v, err := lookupVariant(args[0])
	if err != nil {
		return err
	}

	sel := opts.selectionFlags.options()
	ropts := verify.RunOptions{
		Selection: &sel,
		MaxSteps:  opts.MaxSteps,
		Logger:    opts.logger,
	}
	if opts.NoHooks {
		ropts.Hooks = map[string]verify.Hook{}
	}
	if !opts.json() {
		ropts.Output = cmd.OutOrStdout()
	}

	if opts.Trace != "" {
		ct, err := recorder.ParseCompression(opts.Compression)
		if err != nil {
			return wrapExitError(exitCommandError, "bad flags", err)
		}
		rec, err := recorder.NewFileRecorderWithOptions(opts.Trace, recorder.FileRecorderOptions{CompressionType: ct})
		if err != nil {
			return wrapExitError(exitCommandError, "opening trace", err)
		}
		defer rec.Close()
		ropts.Recorder = rec
	}

	argv := append([]string{v.Name}, args[1:]...)
	report, err := verify.RunVariant(cmd.Context(), v, argv, ropts)
	if err != nil {
		return wrapExitError(exitCommandError, "running "+v.Name, err)
	}
	return writeReports(cmd.OutOrStdout(), opts.rootOptions, report)
}

type execOptions struct {
	*rootOptions
	Variant string
	Trace   string
}

func newExecCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &execOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <binary> [-- args...]",
		Short: "Run a fixture binary and verify the trace it records",
		Long: `Run a fixture binary as a child process with RUMMAGE_TRACE set, then
verify the recorded trace against the variant's expectation. The way the
child ended is checked too: a deliberate abort must kill it with SIGABRT, and
any other death is reported as a crash.

Examples:
  rummage exec ./bin/full --variant full
  RUMMAGE_SKIP=test_pointer rummage exec ./bin/full --variant full`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Variant, "variant", "", "fixture variant the binary runs (required)")
	_ = cmd.MarkFlagRequired("variant")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "keep the trace at this path instead of a temporary file")

	return cmd
}

func runExec(cmd *cobra.Command, opts *execOptions, args []string) error {
	v, err := lookupVariant(opts.Variant)
	if err != nil {
		return err
	}

	tracePath := opts.Trace
	if tracePath == "" {
		dir, err := os.MkdirTemp("", "rummage-exec-")
		if err != nil {
			return wrapExitError(exitCommandError, "creating trace directory", err)
		}
		defer os.RemoveAll(dir)
		tracePath = filepath.Join(dir, v.Name+".trace")
	} else if err := os.Remove(tracePath); err != nil && !os.IsNotExist(err) {
		return wrapExitError(exitCommandError, "clearing old trace", err)
	}

	ps, err := runChild(cmd.Context(), args[0], args[1:], tracePath, cmd.ErrOrStderr())
	if err != nil {
		return wrapExitError(exitCommandError, "running "+args[0], err)
	}
	exit := fixture.ExitOutcome(ps)
	opts.logger.Debug("child exited", zap.String("binary", args[0]), zap.Stringer("state", ps), zap.Stringer("outcome", exit))

	events, err := recorder.LoadFile(tracePath)
	if err != nil {
		return wrapExitError(exitCommandError, "reading trace", err)
	}
	exp := verify.ExpectationFor(v).Filter(checkpoint.CurrentOptions)
	report := verify.VerifyEvents(exp, events)
	report.Violations = append(report.Violations, verify.CheckExit(exp, exit)...)
	return writeReports(cmd.OutOrStdout(), opts.rootOptions, report)
}

// runChild runs a fixture binary with its trace directed at tracePath. A
// non-zero exit is part of the returned state, not an error.
func runChild(ctx context.Context, bin string, args []string, tracePath string, stderr io.Writer) (*os.ProcessState, error) {
	c := exec.CommandContext(ctx, bin, args...)
	c.Env = append(os.Environ(), fixture.TraceEnv+"="+tracePath)
	c.Stderr = stderr
	err := c.Run()
	if _, ok := err.(*exec.ExitError); ok {
		return c.ProcessState, nil
	}
	if err != nil {
		return nil, err
	}
	return c.ProcessState, nil
}
