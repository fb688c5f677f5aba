//go:build !windows

package estimator

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the engine in its own group so helpers it spawns die with it
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative pid addresses the whole group
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
