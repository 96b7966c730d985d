//go:build !windows
// +build !windows

package debugger

import (
	"os/exec"
	"syscall"
)

// setupProcAttr puts dlv in its own process group so a terminal interrupt
// aimed at rummage does not reach the traced fixture before Close does.
func setupProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
