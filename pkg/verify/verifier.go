package verify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/inspect"
	"github.com/willibrandon/rummage/pkg/logging"
)

// Verifier checks a run against an Expectation as it happens.
type Verifier struct {
	exp     Expectation
	hooks   map[string]Hook
	logger  logging.Logger
	out     io.Writer
	emitter func(checkpoint.Checkpoint, string)

	mu         sync.Mutex
	started    checkpoint.RunInfo
	finished   *checkpoint.RunInfo
	observed   []string
	emitted    []string
	violations []Violation
	next       int // index of the next expected checkpoint
	steps      int
	exhausted  bool
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHooks replaces the default hooks. A nil map disables hooks.
func WithHooks(hooks map[string]Hook) Option {
	return func(v *Verifier) { v.hooks = hooks }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(v *Verifier) { v.logger = logging.OrNop(l) }
}

// WithOutput copies every emitted line to w.
func WithOutput(w io.Writer) Option {
	return func(v *Verifier) { v.out = w }
}

// WithEmitter forwards every emitted line to fn.
func WithEmitter(fn func(checkpoint.Checkpoint, string)) Option {
	return func(v *Verifier) { v.emitter = fn }
}

// NewVerifier returns a verifier for exp using DefaultHooks.
func NewVerifier(exp Expectation, opts ...Option) *Verifier {
	v := &Verifier{
		exp:    exp,
		hooks:  DefaultHooks(),
		logger: logging.Nop,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *Verifier) RunStarted(info checkpoint.RunInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.started = info
	v.logger.Debug("run started",
		zap.String("run", info.ID),
		zap.String("variant", info.Variant),
		zap.String("tag", string(info.Tag)))
}

func (v *Verifier) CheckpointReached(snap *checkpoint.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cp := snap.Checkpoint
	v.steps++
	if v.exhausted {
		return
	}
	if v.steps > v.exp.Steps() {
		v.exhaust()
		return
	}

	v.observed = append(v.observed, cp.Name)
	v.logger.Debug("checkpoint reached",
		zap.String("checkpoint", cp.Name),
		zap.Int("ordinal", cp.Ordinal),
		zap.String("file", cp.File),
		zap.Int("line", cp.Line))

	var vs []Violation
	v.next, vs = match(v.exp.Sequence, v.next, cp.Name, len(v.observed))
	for _, vi := range vs {
		v.add(vi)
	}

	if hook, ok := v.hooks[cp.Name]; ok && hook != nil {
		v.runHook(hook, snap)
	}
}

// exhaust gives up on the expected checkpoints not delivered within the
// step bound.
func (v *Verifier) exhaust() {
	v.exhausted = true
	v.logger.Warn("step bound reached", zap.Int("max_steps", v.exp.Steps()))
	for _, name := range v.exp.Sequence[v.next:] {
		v.add(missing(name))
	}
	v.next = len(v.exp.Sequence)
}

func (v *Verifier) runHook(hook Hook, snap *checkpoint.Snapshot) {
	cp := snap.Checkpoint
	ctx := &HookContext{
		Frame:  inspect.NewFrame(snap),
		Logger: v.logger,
		emit: func(line string) {
			v.emitted = append(v.emitted, line)
			if v.out != nil {
				fmt.Fprintln(v.out, line)
			}
			if v.emitter != nil {
				v.emitter(cp, line)
			}
		},
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("hook panicked: %v", r)
			}
		}()
		return hook(ctx)
	}()
	if err != nil {
		v.add(Violation{
			Kind:       HookFailed,
			Checkpoint: cp.Name,
			Ordinal:    cp.Ordinal,
			Message:    fmt.Sprintf("%s: %v", cp.Name, err),
		})
	}
}

func (v *Verifier) RunFinished(info checkpoint.RunInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.finished = &info
	for _, name := range v.exp.Sequence[v.next:] {
		v.add(missing(name))
	}
	v.next = len(v.exp.Sequence)
	if info.Outcome != v.exp.Outcome {
		v.add(outcomeMismatch(v.exp.Outcome, info.Outcome))
	}
	for _, vi := range resourceViolations(info.Leaked, info.DoubleFrees) {
		v.add(vi)
	}
	v.logger.Debug("run finished",
		zap.String("run", info.ID),
		zap.Stringer("outcome", info.Outcome),
		zap.Int("violations", len(v.violations)))
}

func (v *Verifier) add(vi Violation) {
	v.violations = append(v.violations, vi)
	v.logger.Warn("violation",
		zap.Stringer("kind", vi.Kind),
		zap.String("checkpoint", vi.Checkpoint),
		zap.String("message", vi.Message))
}

// Exhausted reports whether the step bound was hit.
func (v *Verifier) Exhausted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.exhausted
}

// Report summarises what was observed so far. A run that never finished is
// reported with outcome Running and its undelivered checkpoints as missing.
func (v *Verifier) Report() *Report {
	v.mu.Lock()
	defer v.mu.Unlock()

	r := &Report{
		Variant:    v.exp.Variant,
		RunID:      v.started.ID,
		Expected:   append([]string(nil), v.exp.Sequence...),
		Observed:   append([]string(nil), v.observed...),
		Outcome:    checkpoint.Running,
		Emitted:    append([]string(nil), v.emitted...),
		Violations: append([]Violation(nil), v.violations...),
	}
	if v.finished != nil {
		r.Outcome = v.finished.Outcome
		r.AbortReason = v.finished.AbortReason
		return r
	}
	for _, name := range v.exp.Sequence[v.next:] {
		r.Violations = append(r.Violations, missing(name))
	}
	if v.exp.Outcome != checkpoint.Running {
		r.Violations = append(r.Violations, outcomeMismatch(v.exp.Outcome, checkpoint.Running))
	}
	return r
}
