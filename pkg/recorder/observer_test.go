package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

func TestObserverRecordsRun(t *testing.T) {
	rec := NewInMemoryRecorder()
	obs := NewObserver(rec)

	r := checkpoint.NewRun("demo", checkpoint.TagRummage, obs).WithOptions(checkpoint.DefaultOptions())
	r.Start([]string{"demo"})

	value := int32(41)
	release := r.Declare(checkpoint.Bind("value", &value))
	r.Checkpoint("first")
	value++
	r.Checkpoint("second", checkpoint.Bind("text", new(string)))
	release()
	r.Abort("stop")

	events := rec.GetEvents()
	require.Len(t, events, 4)

	assert.Equal(t, RunStarted, events[0].Type)
	assert.Equal(t, "rummage", events[0].Tag)
	assert.Equal(t, []string{"demo"}, events[0].Args)

	first, second := events[1], events[2]
	assert.Equal(t, "first", first.Checkpoint)
	assert.Equal(t, 1, first.Ordinal)
	assert.NotZero(t, first.Line)
	v, ok := Lookup(first.Vars, "value")
	require.True(t, ok)
	assert.Equal(t, "41", v.Value)
	assert.Equal(t, "int32", v.Type)

	// captured values are copies
	v, _ = Lookup(second.Vars, "value")
	assert.Equal(t, "42", v.Value)
	assert.Equal(t, []string{"text", "value"}, []string{second.Vars[0].Name, second.Vars[1].Name})

	last := events[3]
	assert.Equal(t, RunFinished, last.Type)
	assert.Equal(t, "aborted", last.Outcome)
	assert.Equal(t, "stop", last.Details)

	for i, e := range events {
		assert.Equal(t, int64(i+1), e.ID)
		assert.Equal(t, r.ID(), e.RunID)
		assert.Equal(t, "demo", e.Variant)
	}
}

func TestObserverEmit(t *testing.T) {
	rec := NewInMemoryRecorder()
	obs := NewObserver(rec)
	obs.Emit(checkpoint.Checkpoint{Name: "test_int", Ordinal: 3, File: "units.go", Line: 9}, "units.go:9 <(int32) one = 1>")

	events := rec.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, ValueEmitted, events[0].Type)
	assert.Equal(t, "test_int", events[0].Checkpoint)
	assert.Equal(t, "units.go:9 <(int32) one = 1>", events[0].Details)
}
