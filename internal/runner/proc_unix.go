//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the runner in its own process group so the whole
// tree (npx, node, browsers) can be killed together.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// negative pid targets the group
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
