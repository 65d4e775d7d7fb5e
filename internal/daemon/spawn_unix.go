//go:build unix

package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

// configureDaemonProcess detaches the daemon into its own session so it
// survives the spawning command's exit.
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// sendStopSignal asks the daemon to shut down gracefully.
func sendStopSignal(process *os.Process) error {
	return process.Signal(syscall.SIGTERM)
}
