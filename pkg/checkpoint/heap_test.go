package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapAllocFree(t *testing.T) {
	h := NewHeap()
	b := h.AllocInts(10)
	require.Equal(t, 10, b.Len())
	assert.Equal(t, 1, h.Live())

	n, ok := h.Extent(addr(b.Ptr()))
	require.True(t, ok)
	assert.Equal(t, 10, n)

	require.NoError(t, b.Free())
	assert.Equal(t, 0, h.Live())
	assert.Nil(t, b.Data())
	assert.Nil(t, b.Ptr())

	_, ok = h.Extent(addr(&[]int32{0}[0]))
	assert.False(t, ok)
}

func TestHeapDoubleFree(t *testing.T) {
	h := NewHeap()
	b := h.AllocInts(1)
	require.NoError(t, b.Free())
	assert.ErrorIs(t, b.Free(), ErrDoubleFree)
	assert.Equal(t, 1, h.DoubleFrees())
}

func TestHeapRejectsEmptyAllocation(t *testing.T) {
	assert.Panics(t, func() { NewHeap().AllocInts(0) })
}
