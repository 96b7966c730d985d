package checkpoint

import (
	"errors"
	"reflect"
	"sync"
)

// ErrDoubleFree is returned when a buffer is released twice.
var ErrDoubleFree = errors.New("checkpoint: buffer released twice")

// Buffer is a heap-owned integer buffer. It is valid from allocation until Free.
type Buffer struct {
	heap *Heap
	id   int
	data []int32
}

// Data returns the backing storage, or nil once the buffer is released.
func (b *Buffer) Data() []int32 {
	return b.data
}

// Ptr returns a raw reference to the first element.
func (b *Buffer) Ptr() *int32 {
	if len(b.data) == 0 {
		return nil
	}
	return &b.data[0]
}

// Len returns the number of elements, 0 once released.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Free releases the buffer.
func (b *Buffer) Free() error {
	return b.heap.free(b)
}

// Heap tracks the live heap buffers of a run.
type Heap struct {
	mu          sync.Mutex
	nextID      int
	live        map[uintptr]*Buffer
	doubleFrees int
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{live: make(map[uintptr]*Buffer)}
}

// AllocInts allocates a zeroed buffer of n integers. n must be positive.
func (h *Heap) AllocInts(n int) *Buffer {
	if n <= 0 {
		panic("checkpoint: allocation size must be positive")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	b := &Buffer{heap: h, id: h.nextID, data: make([]int32, n)}
	h.live[addr(b.Ptr())] = b
	return b
}

func (h *Heap) free(b *Buffer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if b.data == nil {
		h.doubleFrees++
		return ErrDoubleFree
	}
	delete(h.live, addr(b.Ptr()))
	b.data = nil
	return nil
}

// Extent reports how many elements are addressable from p, which must point
// at the first element of a live buffer.
func (h *Heap) Extent(p uintptr) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.live[p]
	if !ok {
		return 0, false
	}
	return len(b.data), true
}

// Live returns the number of buffers not yet released.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// DoubleFrees returns how many Free calls hit an already released buffer.
func (h *Heap) DoubleFrees() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doubleFrees
}

func addr(p *int32) uintptr {
	return reflect.ValueOf(p).Pointer()
}
