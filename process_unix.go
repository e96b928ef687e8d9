//go:build !windows

package vulpo

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts Firefox in its own process group so content and
// GPU child processes share its PGID and die with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// signalProcessGroup signals the whole Firefox process group.
// force=false sends SIGTERM, force=true sends SIGKILL.
func signalProcessGroup(cmd *exec.Cmd, force bool) {
	if cmd.Process == nil {
		return
	}
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	// Negative PID targets the entire process group
	_ = syscall.Kill(-cmd.Process.Pid, sig)
}
