package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/fixture"
	"github.com/willibrandon/rummage/pkg/recorder"
)

func allCheckpoints() *checkpoint.Options {
	o := checkpoint.DefaultOptions()
	return &o
}

func runVariant(t *testing.T, v fixture.Variant, opts RunOptions) *Report {
	t.Helper()
	if opts.Selection == nil {
		opts.Selection = allCheckpoints()
	}
	report, err := RunVariant(context.Background(), v, []string{v.Name, "arg1", "arg2"}, opts)
	require.NoError(t, err)
	return report
}

func TestRunVariants(t *testing.T) {
	for _, v := range fixture.Variants() {
		t.Run(v.Name, func(t *testing.T) {
			report := runVariant(t, v, RunOptions{})
			assert.True(t, report.OK(), "violations: %v", report.Violations)
			assert.NoError(t, report.Err())
			assert.Equal(t, v.Expected(), report.Observed)
			assert.Equal(t, v.Terminal, report.Outcome)
			assert.NotEmpty(t, report.RunID)
		})
	}
}

func TestDefaultHooksCoverVariants(t *testing.T) {
	hooks := DefaultHooks()
	for _, v := range fixture.Variants() {
		for _, name := range v.Expected() {
			_, ok := hooks[name]
			if name == fixture.JustChecking {
				assert.False(t, ok, "just_checking is only order-checked")
				continue
			}
			assert.True(t, ok, "%s: no hook for %s", v.Name, name)
		}
	}
}

func TestFullAbortIsExpected(t *testing.T) {
	report := runVariant(t, fixture.Full, RunOptions{})
	assert.True(t, report.OK())
	assert.Equal(t, checkpoint.AbortedDeliberately, report.Outcome)
	assert.Equal(t, "End of main reached", report.AbortReason)
}

func TestTopLevelEmits(t *testing.T) {
	var out bytes.Buffer
	report := runVariant(t, fixture.TopLevel, RunOptions{Output: &out})
	require.True(t, report.OK(), "violations: %v", report.Violations)

	assert.Len(t, report.Emitted, 8)
	assert.Equal(t, strings.Join(report.Emitted, "\n")+"\n", out.String())

	for _, suffix := range []string{
		"<(int32) some_value = 2>",
		"<(int32) *point = 2>",
		"<(float32) array[3] = 3>",
		"<(float32) some_struct.avg_blorp = 3.14>",
		`<(SomeStruct) some_struct = (num_blorps = 56, avg_blorp = 3.14, just_some_chars = "look, it's a string!")>`,
		"<(TestStruct) a_struct = (a = 1, b = 3.5)>",
	} {
		found := false
		for _, line := range report.Emitted {
			if strings.HasSuffix(line, suffix) {
				found = true
				assert.Regexp(t, `^(variant|units)\.go:\d+ <`, line)
			}
		}
		assert.True(t, found, "no emitted line ends with %s", suffix)
	}
}

func TestBasicStructConstant(t *testing.T) {
	report := runVariant(t, fixture.Basic, RunOptions{})
	require.True(t, report.OK())
	require.NotEmpty(t, report.Emitted)
	assert.True(t, strings.HasSuffix(report.Emitted[0], "<(TestStruct) a_struct = (a = 1, b = 3.67)>"), report.Emitted[0])
}

func TestHookFailures(t *testing.T) {
	hooks := map[string]Hook{
		fixture.UnitInt: func(*HookContext) error { return errors.New("boom") },
		fixture.UnitBool: func(c *HookContext) error {
			_, err := c.Var("nothing")
			return err
		},
		fixture.UnitArray: func(*HookContext) error { panic("kaboom") },
	}
	report := runVariant(t, fixture.Basic, RunOptions{Hooks: hooks})

	require.Equal(t, 3, report.Count(HookFailed))
	assert.Equal(t, 3, len(report.Violations))
	assert.Equal(t, "test_int", report.Violations[0].Checkpoint)
	assert.Contains(t, report.Violations[1].Message, "not found")
	assert.Contains(t, report.Violations[2].Message, "kaboom")
	// a failing hook does not stop the run
	assert.Equal(t, fixture.Basic.Expected(), report.Observed)
}

func TestHookWritesThroughAlias(t *testing.T) {
	var seen int64
	hooks := map[string]Hook{
		fixture.BreakMain: func(c *HookContext) error {
			if c.Frame.Checkpoint().Ordinal != 2 {
				return nil
			}
			v, err := c.Var("some_value")
			if err != nil {
				return err
			}
			return v.Set(7)
		},
		fixture.DerefPointer: func(c *HookContext) error {
			point, err := c.Var("point")
			if err != nil {
				return err
			}
			v, err := point.Deref()
			if err != nil {
				return err
			}
			seen, err = v.Int()
			return err
		},
	}
	report := runVariant(t, fixture.TopLevel, RunOptions{Hooks: hooks})
	require.True(t, report.OK(), "violations: %v", report.Violations)
	assert.Equal(t, int64(7), seen)
}

func TestMaxSteps(t *testing.T) {
	report := runVariant(t, fixture.Basic, RunOptions{MaxSteps: 2, Hooks: map[string]Hook{}})
	assert.Equal(t, []string{"test_int", "test_float"}, report.Observed)
	require.Equal(t, 4, report.Count(MissingCheckpoint))
	assert.Equal(t, "missing checkpoint `test_bool`", report.Violations[0].Message)
	assert.Equal(t, 4, len(report.Violations))
}

func TestVerifierDirect(t *testing.T) {
	exp := Expectation{Variant: "demo", Sequence: []string{"a", "b", "c"}, Outcome: checkpoint.CompletedNormally}
	v := NewVerifier(exp, WithHooks(nil))

	r := checkpoint.NewRun("demo", checkpoint.TagLoupe, v).WithOptions(checkpoint.DefaultOptions())
	r.Checkpoint("a")
	r.Checkpoint("c")

	// before the run finishes, undelivered checkpoints count as missing
	partial := v.Report()
	assert.Equal(t, checkpoint.Running, partial.Outcome)
	assert.Equal(t, 1, partial.Count(OutcomeMismatch))

	r.Heap().AllocInts(3) // never freed
	r.Complete()

	report := v.Report()
	assert.Equal(t, []string{"a", "c"}, report.Observed)
	require.Equal(t, 1, report.Count(MissingCheckpoint))
	assert.Equal(t, "missing checkpoint `b`", report.Violations[0].Message)
	assert.Equal(t, 1, report.Count(ResourceMisuse))
	assert.Zero(t, report.Count(OutcomeMismatch))
	assert.False(t, v.Exhausted())
}

func TestRunWithRecorder(t *testing.T) {
	rec := recorder.NewInMemoryRecorder()
	report := runVariant(t, fixture.TopLevel, RunOptions{Recorder: rec})
	require.True(t, report.OK())

	events := rec.GetEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, recorder.RunStarted, events[0].Type)
	assert.Equal(t, recorder.RunFinished, events[len(events)-1].Type)

	// emitted lines follow the checkpoint that produced them
	var last string
	emitted := 0
	for _, e := range events {
		switch e.Type {
		case recorder.CheckpointReached:
			last = e.Checkpoint
		case recorder.ValueEmitted:
			emitted++
			assert.Equal(t, last, e.Checkpoint)
		}
	}
	assert.Equal(t, len(report.Emitted), emitted)

	replayed := VerifyEvents(ExpectationFor(fixture.TopLevel), events)
	assert.True(t, replayed.OK(), "violations: %v", replayed.Violations)
	assert.Equal(t, report.Observed, replayed.Observed)
	assert.Equal(t, report.Emitted, replayed.Emitted)
}

func TestVerifyEventsTruncated(t *testing.T) {
	rec := recorder.NewInMemoryRecorder()
	runVariant(t, fixture.Full, RunOptions{Recorder: rec})
	events := rec.GetEvents()

	// drop tests_done and RunFinished, as if the process was killed
	var cut []recorder.Event
	for _, e := range events {
		if e.Checkpoint == fixture.TestsDone || e.Type == recorder.RunFinished {
			continue
		}
		cut = append(cut, e)
	}
	report := VerifyEvents(ExpectationFor(fixture.Full), cut)
	assert.Equal(t, 1, report.Count(MissingCheckpoint))
	assert.Equal(t, 1, report.Count(OutcomeMismatch))
	assert.Equal(t, checkpoint.Running, report.Outcome)
}

func TestRunVariantCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunVariant(ctx, fixture.Basic, nil, RunOptions{Selection: allCheckpoints()})
	assert.ErrorIs(t, err, context.Canceled)
}

// abandonLogger closes abandoned when a run is given up on.
type abandonLogger struct {
	once      sync.Once
	abandoned chan struct{}
}

func (l *abandonLogger) Debug(string, ...zap.Field) {}
func (l *abandonLogger) Info(string, ...zap.Field)  {}
func (l *abandonLogger) Error(string, ...zap.Field) {}
func (l *abandonLogger) Warn(msg string, _ ...zap.Field) {
	if msg == "abandoning variant" {
		l.once.Do(func() { close(l.abandoned) })
	}
}

func TestCancelledRunStopsReporting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := &abandonLogger{abandoned: make(chan struct{})}

	var late atomic.Int32
	lateHook := func(*HookContext) error {
		late.Add(1)
		return nil
	}
	hooks := map[string]Hook{
		fixture.UnitFloat: func(*HookContext) error {
			cancel()
			<-logger.abandoned
			return nil
		},
		fixture.UnitBool:   lateHook,
		fixture.UnitStruct: lateHook,
		fixture.UnitArray:  lateHook,
		fixture.TestsDone:  lateHook,
	}

	report, err := RunVariant(ctx, fixture.Basic, nil, RunOptions{
		Hooks:     hooks,
		Selection: allCheckpoints(),
		Logger:    logger,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{fixture.UnitInt, fixture.UnitFloat}, report.Observed)
	assert.Equal(t, checkpoint.Running, report.Outcome)

	// the abandoned variant keeps going but its checkpoints are dropped
	assert.Never(t, func() bool { return late.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestReportOutput(t *testing.T) {
	report := runVariant(t, fixture.Basic, RunOptions{MaxSteps: 5, Hooks: map[string]Hook{}})

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "completed", decoded["outcome"])
	assert.Equal(t, false, decoded["ok"])
	violations := decoded["violations"].([]any)
	require.Len(t, violations, 1)
	assert.Equal(t, "missing_checkpoint", violations[0].(map[string]any)["kind"])

	var out bytes.Buffer
	require.NoError(t, report.WriteText(&out))
	assert.Equal(t, "FAIL basic: 5/6 checkpoints, outcome completed\n"+
		"  missing_checkpoint: missing checkpoint `tests_done`\n", out.String())
}
