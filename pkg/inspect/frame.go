package inspect

import (
	"fmt"
	"path/filepath"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

// Frame gives access to the variables visible at a checkpoint.
type Frame struct {
	snap *checkpoint.Snapshot
}

// NewFrame wraps a snapshot.
func NewFrame(snap *checkpoint.Snapshot) *Frame {
	return &Frame{snap: snap}
}

// Var looks up a visible variable by name.
func (f *Frame) Var(name string) (Value, error) {
	b, ok := f.snap.Lookup(name)
	if !ok {
		return Value{}, fmt.Errorf("variable %q at %s: %w", name, f.snap.Checkpoint.Name, ErrNotFound)
	}
	return ValueOf(b, f.snap.Heap), nil
}

// Vars returns every visible variable, innermost first.
func (f *Frame) Vars() []Value {
	names := f.snap.Names()
	vars := make([]Value, 0, len(names))
	for _, n := range names {
		v, _ := f.Var(n)
		vars = append(vars, v)
	}
	return vars
}

// Checkpoint is the checkpoint the frame was captured at.
func (f *Frame) Checkpoint() checkpoint.Checkpoint {
	return f.snap.Checkpoint
}

// Location is "file:line" of the checkpoint.
func (f *Frame) Location() string {
	return fmt.Sprintf("%s:%d", filepath.Base(f.snap.Checkpoint.File), f.snap.Checkpoint.Line)
}
