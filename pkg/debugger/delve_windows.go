//go:build windows

package debugger

import (
	"os/exec"
	"syscall"
)

// setupProcAttr runs dlv without a console window and in its own process
// group, so a console interrupt aimed at rummage does not reach the target
// before Close detaches.
func setupProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
