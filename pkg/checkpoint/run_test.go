package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	started  []RunInfo
	reached  []*Snapshot
	finished []RunInfo
	onReach  func(*Snapshot)
}

func (o *recordingObserver) RunStarted(info RunInfo) { o.started = append(o.started, info) }
func (o *recordingObserver) RunFinished(info RunInfo) {
	o.finished = append(o.finished, info)
}
func (o *recordingObserver) CheckpointReached(snap *Snapshot) {
	o.reached = append(o.reached, snap)
	if o.onReach != nil {
		o.onReach(snap)
	}
}

func TestRunOrdinals(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRun("unit", TagRummage, obs).WithOptions(DefaultOptions())
	r.Start([]string{"prog", "arg1"})

	r.Checkpoint("first")
	r.Checkpoint("second")
	r.Checkpoint("first")

	require.Len(t, obs.reached, 3)
	for i, snap := range obs.reached {
		assert.Equal(t, i+1, snap.Checkpoint.Ordinal)
		assert.Equal(t, TagRummage, snap.Checkpoint.Tag)
		assert.Equal(t, "run_test.go", filepath.Base(snap.Checkpoint.File))
		assert.Equal(t, r.ID(), snap.RunID)
	}
	assert.Equal(t, []string{"first", "second", "first"}, r.Names())
	require.Len(t, obs.started, 1)
	assert.Equal(t, []string{"prog", "arg1"}, obs.started[0].Args)
}

func TestRunScopes(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRun("unit", TagLoupe, obs).WithOptions(DefaultOptions())

	outer := 1
	release := r.Declare(Bind("x", &outer))

	inner := 2
	r.Checkpoint("shadowed", Bind("x", &inner), Bind("y", &inner))
	r.Checkpoint("entry_only")
	release()
	r.Checkpoint("empty")

	b, ok := obs.reached[0].Lookup("x")
	require.True(t, ok)
	assert.Equal(t, &inner, b.Ref)
	assert.Equal(t, []string{"y", "x"}, obs.reached[0].Names())

	b, ok = obs.reached[1].Lookup("x")
	require.True(t, ok)
	assert.Equal(t, &outer, b.Ref)
	_, ok = obs.reached[1].Lookup("y")
	assert.False(t, ok)

	assert.Empty(t, obs.reached[2].Bindings)
}

func TestRunObserverWritesThrough(t *testing.T) {
	someValue := 2
	point := &someValue
	obs := &recordingObserver{onReach: func(s *Snapshot) {
		b, _ := s.Lookup("point")
		**b.Ref.(**int) = 7
	}}
	r := NewRun("unit", TagLoupe, obs).WithOptions(DefaultOptions())
	r.Checkpoint("break_main", Bind("some_value", &someValue), Bind("point", &point))
	assert.Equal(t, 7, someValue)
}

func TestRunSelectiveDelivery(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRun("unit", TagLoupe, obs).WithOptions(Options{Enabled: true, Skip: []string{"b"}})
	r.Checkpoint("a")
	r.Checkpoint("b")
	r.Checkpoint("c")

	require.Len(t, obs.reached, 2)
	assert.Equal(t, 3, obs.reached[1].Checkpoint.Ordinal)
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
}

func TestRunTerminalOutcomes(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRun("unit", TagRummage, obs)
	r.Checkpoint("tests_done")
	assert.Equal(t, AbortedDeliberately, r.Abort("End of main reached"))

	require.Len(t, obs.finished, 1)
	info := obs.finished[0]
	assert.Equal(t, AbortedDeliberately, info.Outcome)
	assert.Equal(t, "End of main reached", info.AbortReason)
	assert.Equal(t, 1, info.Reached)

	assert.Panics(t, func() { r.Checkpoint("late") })
	assert.Panics(t, func() { r.Complete() })
}

func TestRunReportsLeaks(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRun("unit", TagRummage, obs)
	r.Heap().AllocInts(4)
	freed := r.Heap().AllocInts(2)
	require.NoError(t, freed.Free())
	r.Complete()

	assert.Equal(t, 1, obs.finished[0].Leaked)
	assert.Equal(t, 0, obs.finished[0].DoubleFrees)
}

func TestInstalledObserver(t *testing.T) {
	defer Install(nil)
	obs := &recordingObserver{}
	Install(obs)

	r := NewRun("unit", TagLoupe, nil).WithOptions(DefaultOptions())
	r.Checkpoint("x")
	assert.Len(t, obs.reached, 1)
}

func TestTee(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	r := NewRun("unit", TagLoupe, Tee(a, nil, b)).WithOptions(DefaultOptions())
	r.Checkpoint("x")
	r.Complete()
	assert.Len(t, a.reached, 1)
	assert.Len(t, b.reached, 1)
	assert.Len(t, b.finished, 1)
}

func TestBindRequiresPointer(t *testing.T) {
	assert.Panics(t, func() { Bind("x", 1) })
	assert.Panics(t, func() { Bind("x", (*int)(nil)) })
	assert.Panics(t, func() { Bind("", new(int)) })
}

func TestParseOutcome(t *testing.T) {
	for _, o := range []Outcome{Running, CompletedNormally, AbortedDeliberately, Crashed} {
		got, err := ParseOutcome(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	_, err := ParseOutcome("exploded")
	assert.Error(t, err)
}

func TestOutcomeTerminal(t *testing.T) {
	assert.True(t, CompletedNormally.Terminal())
	assert.True(t, AbortedDeliberately.Terminal())
	assert.False(t, Running.Terminal())
	assert.False(t, Crashed.Terminal(), "a crash is never chosen by a fixture")
}
