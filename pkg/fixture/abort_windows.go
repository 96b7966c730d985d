//go:build windows

package fixture

import (
	"os"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

// abortStatus is what the C runtime's abort() exits with on Windows.
const abortStatus = 3

func abort() {
	os.Exit(abortStatus)
}

// ExitOutcome classifies how a fixture process ended.
func ExitOutcome(ps *os.ProcessState) checkpoint.Outcome {
	if ps == nil {
		return checkpoint.Running
	}
	return ExitStatusOutcome(ps.ExitCode())
}

// ExitStatusOutcome classifies a bare exit status.
func ExitStatusOutcome(status int) checkpoint.Outcome {
	switch status {
	case 0:
		return checkpoint.CompletedNormally
	case abortStatus:
		return checkpoint.AbortedDeliberately
	}
	return checkpoint.Crashed
}
