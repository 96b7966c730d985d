package fixture

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

type collector struct {
	names    []string
	finished []checkpoint.RunInfo
	onReach  func(*checkpoint.Snapshot)
}

func (c *collector) RunStarted(checkpoint.RunInfo) {}
func (c *collector) RunFinished(info checkpoint.RunInfo) {
	c.finished = append(c.finished, info)
}
func (c *collector) CheckpointReached(snap *checkpoint.Snapshot) {
	c.names = append(c.names, snap.Checkpoint.Name)
	if c.onReach != nil {
		c.onReach(snap)
	}
}

func execute(t *testing.T, v Variant, obs *collector, args ...string) *checkpoint.Run {
	t.Helper()
	if len(args) == 0 {
		args = []string{"/tmp/" + v.Name}
	}
	r := checkpoint.NewRun(v.Name, v.Tag, obs).WithOptions(checkpoint.DefaultOptions())
	outcome := v.Execute(r, args)
	require.Equal(t, v.Terminal, outcome)
	return r
}

func TestVariantSequences(t *testing.T) {
	tests := []struct {
		variant  Variant
		expected []string
		outcome  checkpoint.Outcome
	}{
		{
			variant: Full,
			expected: []string{"test_int", "test_float", "test_bool", "test_struct",
				"test_array", "test_pointer", "tests_done"},
			outcome: checkpoint.AbortedDeliberately,
		},
		{
			variant: Basic,
			expected: []string{"test_int", "test_float", "test_bool", "test_struct",
				"test_array", "tests_done"},
			outcome: checkpoint.CompletedNormally,
		},
		{
			variant: TopLevel,
			expected: []string{"just_checking", "break_main", "test_int", "test_float",
				"test_bool", "test_struct", "deref_pointer", "index_int_array",
				"just_checking", "struct_children", "break_main"},
			outcome: checkpoint.CompletedNormally,
		},
	}

	for _, tt := range tests {
		t.Run(tt.variant.Name, func(t *testing.T) {
			require.NoError(t, tt.variant.Validate())
			assert.Equal(t, tt.expected, tt.variant.Expected())

			obs := &collector{}
			r := execute(t, tt.variant, obs)
			assert.Equal(t, tt.expected, obs.names)
			assert.Equal(t, tt.expected, r.Names())

			require.Len(t, obs.finished, 1)
			info := obs.finished[0]
			assert.Equal(t, tt.outcome, info.Outcome)
			assert.Equal(t, len(tt.expected), info.Reached)
			assert.Zero(t, info.Leaked)
			assert.Zero(t, info.DoubleFrees)
		})
	}
}

func TestFullAbortReason(t *testing.T) {
	obs := &collector{}
	execute(t, Full, obs)
	require.Len(t, obs.finished, 1)
	assert.Equal(t, "End of main reached", obs.finished[0].AbortReason)
}

func TestVariantIdempotent(t *testing.T) {
	for _, v := range Variants() {
		first, second := &collector{}, &collector{}
		execute(t, v, first)
		execute(t, v, second)
		assert.Equal(t, first.names, second.names, v.Name)
	}
}

func TestVariantUnits(t *testing.T) {
	var names []string
	for _, u := range Basic.Units() {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"test_int", "test_float", "test_bool", "test_struct", "test_array"}, names)

	names = nil
	for _, u := range TopLevel.Units() {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"test_int", "test_float", "test_bool", "test_struct"}, names)
	assert.Len(t, Full.Units(), len(Catalogue()))
}

func TestValidateRejects(t *testing.T) {
	bad := []Variant{
		{Tag: checkpoint.TagLoupe, Terminal: checkpoint.CompletedNormally},
		{Name: "tag", Tag: "gdb", Terminal: checkpoint.CompletedNormally},
		{Name: "unknown", Tag: checkpoint.TagLoupe, Steps: []Step{unit("test_nothing")}, Terminal: checkpoint.CompletedNormally},
		{Name: "twice", Tag: checkpoint.TagLoupe, Steps: []Step{unit(UnitInt), unit(UnitInt)}, Terminal: checkpoint.CompletedNormally},
		{Name: "marker", Tag: checkpoint.TagLoupe, Steps: []Step{marker(UnitInt)}, Terminal: checkpoint.CompletedNormally},
		{Name: "running", Tag: checkpoint.TagLoupe},
	}
	for _, v := range bad {
		assert.Error(t, v.Validate(), v.Name)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"full", "basic", "toplevel"} {
		v, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, v.Name)
	}
	_, ok := Lookup("nope")
	assert.False(t, ok)

	var names []string
	for _, v := range Variants() {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"basic", "full", "toplevel"}, names)
}

func TestTags(t *testing.T) {
	assert.Equal(t, checkpoint.TagRummage, Full.Tag)
	assert.Equal(t, checkpoint.TagLoupe, Basic.Tag)
	assert.Equal(t, checkpoint.TagLoupe, TopLevel.Tag)
}

func TestStepMarkersMatchSequences(t *testing.T) {
	f, err := os.Open("variants.go")
	require.NoError(t, err)
	defer f.Close()

	locs, err := checkpoint.ScanMarkers(f, "variants.go")
	require.NoError(t, err)

	// the variants are declared in this order
	var want []checkpoint.Marker
	for _, v := range []Variant{Full, Basic, TopLevel} {
		for _, name := range v.Expected() {
			want = append(want, checkpoint.Marker{Tag: v.Tag, Name: name})
		}
	}
	got := make([]checkpoint.Marker, len(locs))
	for i, l := range locs {
		got[i] = l.Marker
	}
	assert.Equal(t, want, got)
}
