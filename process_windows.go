//go:build windows

package vulpo

import (
	"os"
	"os/exec"
)

// setProcessGroup is a no-op on Windows; there are no Unix process
// groups to configure.
func setProcessGroup(cmd *exec.Cmd) {
}

// signalProcessGroup signals the main Firefox process on Windows and
// relies on Firefox's own cleanup for child processes.
func signalProcessGroup(cmd *exec.Cmd, force bool) {
	if cmd.Process == nil {
		return
	}
	if force {
		_ = cmd.Process.Kill()
	} else {
		_ = cmd.Process.Signal(os.Interrupt)
	}
}
