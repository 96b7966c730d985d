//go:build !windows

package fixture

import (
	"os"
	"runtime/debug"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

// AbortSignal ends the process on a deliberate abort.
const AbortSignal = unix.SIGABRT

// abort raises SIGABRT against the current process. With the traceback level
// at "crash" the runtime prints its dump and then re-raises the signal with
// the default disposition; at any other level it would exit with status 2,
// the same as an unrecovered panic.
func abort() {
	debug.SetTraceback("crash")
	_ = unix.Kill(unix.Getpid(), AbortSignal)
	// reached only when the signal is blocked
	os.Exit(128 + int(AbortSignal))
}

// ExitOutcome classifies how a fixture process ended.
func ExitOutcome(ps *os.ProcessState) checkpoint.Outcome {
	if ps == nil {
		return checkpoint.Running
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		if ws.Signal() == AbortSignal {
			return checkpoint.AbortedDeliberately
		}
		return checkpoint.Crashed
	}
	return ExitStatusOutcome(ps.ExitCode())
}

// ExitStatusOutcome classifies a bare exit status. Delve reports a process
// killed by a signal as the negated signal number; a shell reports it as
// 128 plus the number.
func ExitStatusOutcome(status int) checkpoint.Outcome {
	switch status {
	case 0:
		return checkpoint.CompletedNormally
	case -int(AbortSignal), 128 + int(AbortSignal):
		return checkpoint.AbortedDeliberately
	}
	return checkpoint.Crashed
}
