package checkpoint

// TrapFunction is the fully qualified name of the function every checkpoint
// passes through. Out-of-process observers set a breakpoint on it; its
// arguments carry the checkpoint name and ordinal, and the unit's locals are
// two frames up.
const TrapFunction = "github.com/willibrandon/rummage/pkg/checkpoint.trap"

// TrapFrameDepth is the frame of the code that reached the checkpoint,
// counted from the trap.
const TrapFrameDepth = 2

var trapSink int

//go:noinline
func trap(name string, ordinal int) {
	trapSink = ordinal + len(name)
}
