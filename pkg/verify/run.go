package verify

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/fixture"
	"github.com/willibrandon/rummage/pkg/logging"
	"github.com/willibrandon/rummage/pkg/recorder"
)

// RunOptions configures an in-process verification run.
type RunOptions struct {
	// Hooks replaces DefaultHooks when non-nil.
	Hooks map[string]Hook
	// Selection restricts which checkpoints are delivered. The expectation
	// is filtered to match. Defaults to the environment selection.
	Selection *checkpoint.Options
	// MaxSteps overrides the expectation's delivery bound.
	MaxSteps int
	// Recorder, when set, also receives the run as trace events.
	Recorder recorder.Recorder
	// Output receives every emitted line.
	Output io.Writer
	Logger logging.Logger
}

// RunVariant runs v in this process with args as its argument vector and
// verifies it against ExpectationFor(v).
func RunVariant(ctx context.Context, v fixture.Variant, args []string, opts RunOptions) (*Report, error) {
	sel := checkpoint.CurrentOptions
	if opts.Selection != nil {
		sel = *opts.Selection
	}
	exp := ExpectationFor(v).Filter(sel)
	if opts.MaxSteps > 0 {
		exp.MaxSteps = opts.MaxSteps
	}
	return run(ctx, v, exp, args, sel, opts)
}

// RunScenario runs the scenario's variant in this process. opts.Selection
// and opts.MaxSteps are taken from the scenario.
func RunScenario(ctx context.Context, s *Scenario, opts RunOptions) (*Report, error) {
	v, ok := fixture.Lookup(s.Variant)
	if !ok {
		return nil, errors.Errorf("unknown variant %q", s.Variant)
	}
	exp, err := s.Expectation()
	if err != nil {
		return nil, err
	}
	if s.Hooks == "none" {
		opts.Hooks = map[string]Hook{}
	}
	args := s.Args
	if len(args) == 0 {
		args = []string{v.Name}
	}
	return run(ctx, v, exp, args, s.Selection(), opts)
}

func run(ctx context.Context, v fixture.Variant, exp Expectation, args []string,
	sel checkpoint.Options, opts RunOptions) (*Report, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.OrNop(opts.Logger)

	vopts := []Option{WithLogger(logger)}
	if opts.Hooks != nil {
		vopts = append(vopts, WithHooks(opts.Hooks))
	}
	if opts.Output != nil {
		vopts = append(vopts, WithOutput(opts.Output))
	}

	if opts.Recorder != nil {
		rec := recorder.NewObserver(opts.Recorder).WithLogger(logger)
		vopts = append(vopts, WithEmitter(rec.Emit))
		verifier := NewVerifier(exp, vopts...)
		// the recorder sees each checkpoint before the hook emits into it
		return execute(ctx, v, args, sel, checkpoint.Tee(rec, verifier), verifier, logger)
	}
	verifier := NewVerifier(exp, vopts...)
	return execute(ctx, v, args, sel, verifier, verifier, logger)
}

// execute runs v on its own goroutine. A unit cannot be interrupted, so on
// cancellation the goroutine is abandoned: it runs to its end, but nothing it
// reports after that point reaches obs.
func execute(ctx context.Context, v fixture.Variant, args []string, sel checkpoint.Options,
	obs checkpoint.Observer, verifier *Verifier, logger logging.Logger) (*Report, error) {
	g := &gate{obs: obs}
	run := checkpoint.NewRun(v.Name, v.Tag, g).WithOptions(sel)
	logger.Info("running variant", zap.String("variant", v.Name), zap.String("run", run.ID()))

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("variant %s panicked: %v", v.Name, r)
			}
		}()
		v.Execute(run, args)
		done <- nil
	}()

	select {
	case err := <-done:
		return verifier.Report(), err
	case <-ctx.Done():
		g.closed.Store(true)
		logger.Warn("abandoning variant", zap.String("variant", v.Name), zap.Error(ctx.Err()))
		return verifier.Report(), errors.Wrapf(ctx.Err(), "running %s", v.Name)
	}
}

// gate forwards to obs until closed. A callback already in flight when the
// gate closes still completes.
type gate struct {
	obs    checkpoint.Observer
	closed atomic.Bool
}

func (g *gate) RunStarted(info checkpoint.RunInfo) {
	if !g.closed.Load() {
		g.obs.RunStarted(info)
	}
}

func (g *gate) CheckpointReached(snap *checkpoint.Snapshot) {
	if !g.closed.Load() {
		g.obs.CheckpointReached(snap)
	}
}

func (g *gate) RunFinished(info checkpoint.RunInfo) {
	if !g.closed.Load() {
		g.obs.RunFinished(info)
	}
}

// VerifyEvents checks a recorded trace against exp. Hooks do not run: a
// trace holds rendered values, not live variables.
func VerifyEvents(exp Expectation, events []recorder.Event) *Report {
	r := &Report{
		Variant:  exp.Variant,
		Expected: append([]string(nil), exp.Sequence...),
		Outcome:  checkpoint.Running,
	}
	steps := 0
	for _, e := range events {
		switch e.Type {
		case recorder.RunStarted:
			r.RunID = e.RunID
		case recorder.CheckpointReached:
			steps++
			if steps <= exp.Steps() {
				r.Observed = append(r.Observed, e.Checkpoint)
			}
		case recorder.ValueEmitted:
			r.Emitted = append(r.Emitted, e.Details)
		case recorder.RunFinished:
			if o, err := checkpoint.ParseOutcome(e.Outcome); err == nil {
				r.Outcome = o
			}
			r.AbortReason = e.Details
			r.Violations = append(r.Violations, resourceViolations(e.Leaked, e.DoubleFrees)...)
		}
	}
	r.Violations = append(CheckSequence(exp, r.Observed, r.Outcome), r.Violations...)
	return r
}
