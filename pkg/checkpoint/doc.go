// Package checkpoint implements the checkpoint marker protocol.
//
// A fixture program reaches named checkpoints by calling (*Run).Checkpoint.
// At each checkpoint the set of live bindings is a stable snapshot that an
// observer may inspect (and write through) before the call returns. The
// observer is either registered in-process (Observer) or attached from the
// outside with a debugger that breaks on the trap function (TrapFunction).
//
// Checkpoint names are stable identifiers. Markers in source text use the
// form "@<tag>: <name>", where the tag only names the protocol version:
//
//	one := int32(1)
//	run.Checkpoint("test_int", checkpoint.Bind("one", &one)) // @rummage: test_int
//
// Every checkpoint is delivered synchronously and in order on the fixture's
// goroutine; returning from Observer.CheckpointReached resumes the fixture.
package checkpoint
