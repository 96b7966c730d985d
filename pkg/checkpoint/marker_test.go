package checkpoint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarker(t *testing.T) {
	tests := []struct {
		line string
		want Marker
		ok   bool
	}{
		{"    (void)0;  // @rummage: test_int", Marker{TagRummage, "test_int"}, true},
		{"(void)0; // @loupe:break_main", Marker{TagLoupe, "break_main"}, true},
		{"run.Checkpoint(\"x\") // @loupe :  struct_children   ", Marker{TagLoupe, "struct_children"}, true},
		{"// @gdb: test_int", Marker{}, false},
		{"// @rummage: test_int and more", Marker{}, false},
		{"int one = 1;", Marker{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseMarker(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkerString(t *testing.T) {
	assert.Equal(t, "@rummage: tests_done", Marker{TagRummage, "tests_done"}.String())
	m, ok := ParseMarker(Marker{TagLoupe, "deref_pointer"}.String())
	require.True(t, ok)
	assert.Equal(t, Marker{TagLoupe, "deref_pointer"}, m)
}

func TestScanMarkers(t *testing.T) {
	src := `void test_int() {
    int one = 1;
    (void)0;  // @rummage: test_int
}

void run_tests() {
    test_int();
    (void)0;  // @rummage: tests_done
}
`
	locs, err := ScanMarkers(strings.NewReader(src), "main.c")
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "main.c:3 @rummage: test_int", locs[0].String())
	assert.Equal(t, 8, locs[1].Line)
	assert.Equal(t, "tests_done", locs[1].Name)
}
