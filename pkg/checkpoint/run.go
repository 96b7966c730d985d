package checkpoint

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"
)

// Run is one execution of a fixture. It owns the ordered trail of checkpoints
// reached and the bindings that stay live for the whole run. A Run is used
// from a single goroutine.
type Run struct {
	id       string
	variant  string
	tag      Tag
	args     []string
	observer Observer
	options  Options
	heap     *Heap

	scope   []Binding
	trail   []Checkpoint
	started bool
	outcome Outcome
	reason  string
}

// NewRun creates a run. A nil observer falls back to the installed one.
func NewRun(variant string, tag Tag, obs Observer) *Run {
	if obs == nil {
		obs = Installed()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Run{
		id:       uuid.NewString(),
		variant:  variant,
		tag:      tag,
		observer: obs,
		options:  CurrentOptions,
		heap:     NewHeap(),
	}
}

// WithOptions overrides the observation options captured at creation.
func (r *Run) WithOptions(o Options) *Run {
	r.options = o
	return r
}

func (r *Run) ID() string      { return r.id }
func (r *Run) Variant() string { return r.variant }
func (r *Run) Tag() Tag        { return r.tag }
func (r *Run) Heap() *Heap     { return r.heap }
func (r *Run) Outcome() Outcome {
	return r.outcome
}

// Start announces the run to the observer. It is called implicitly by the
// first Declare or Checkpoint.
func (r *Run) Start(args []string) {
	if r.started {
		return
	}
	r.started = true
	r.args = append([]string(nil), args...)
	r.observer.RunStarted(r.Info())
}

// Declare makes bindings live until the returned release func is called.
// Releases must happen in reverse order of declaration.
func (r *Run) Declare(bindings ...Binding) (release func()) {
	r.mustBeRunning()
	r.Start(nil)
	mark := len(r.scope)
	r.scope = append(r.scope, bindings...)
	return func() {
		if len(r.scope) < mark+len(bindings) {
			panic("checkpoint: bindings released out of order")
		}
		r.scope = r.scope[:mark]
	}
}

// Checkpoint reaches the named checkpoint. locals are the bindings of the
// calling unit; they are visible in the snapshot together with everything
// declared on the run.
//
//go:noinline
func (r *Run) Checkpoint(name string, locals ...Binding) {
	r.mustBeRunning()
	if name == "" {
		panic("checkpoint: empty checkpoint name")
	}
	r.Start(nil)

	cp := Checkpoint{Name: name, Ordinal: len(r.trail) + 1, Tag: r.tag}
	if _, file, line, ok := runtime.Caller(1); ok {
		cp.File, cp.Line = file, line
	}
	r.trail = append(r.trail, cp)

	trap(name, cp.Ordinal)

	if !r.options.ShouldObserve(name) {
		return
	}
	bindings := make([]Binding, 0, len(r.scope)+len(locals))
	bindings = append(bindings, r.scope...)
	bindings = append(bindings, locals...)
	r.observer.CheckpointReached(&Snapshot{
		RunID:      r.id,
		Variant:    r.variant,
		Checkpoint: cp,
		Bindings:   bindings,
		Heap:       r.heap,
	})
}

// Names returns the names of the checkpoints reached so far, in order.
func (r *Run) Names() []string {
	names := make([]string, len(r.trail))
	for i, cp := range r.trail {
		names[i] = cp.Name
	}
	return names
}

// Complete ends the run normally.
func (r *Run) Complete() Outcome {
	return r.finish(CompletedNormally, "")
}

// Abort ends the run with a deliberate abort. No further checkpoints occur.
func (r *Run) Abort(reason string) Outcome {
	return r.finish(AbortedDeliberately, reason)
}

func (r *Run) finish(o Outcome, reason string) Outcome {
	r.mustBeRunning()
	r.Start(nil)
	r.outcome = o
	r.reason = reason
	r.scope = nil
	r.observer.RunFinished(r.Info())
	return o
}

// Info describes the run in its current state.
func (r *Run) Info() RunInfo {
	return RunInfo{
		ID:          r.id,
		Variant:     r.variant,
		Tag:         r.tag,
		Args:        r.args,
		Outcome:     r.outcome,
		AbortReason: r.reason,
		Reached:     len(r.trail),
		Leaked:      r.heap.Live(),
		DoubleFrees: r.heap.DoubleFrees(),
	}
}

func (r *Run) mustBeRunning() {
	if r.outcome != Running {
		panic(fmt.Sprintf("checkpoint: run %s already %s", r.id, r.outcome))
	}
}
