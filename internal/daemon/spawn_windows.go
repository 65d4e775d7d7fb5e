//go:build windows

package daemon

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// configureDaemonProcess detaches the daemon into its own process group so
// it survives the spawning command's exit.
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
		HideWindow:    true,
	}
}

// sendStopSignal asks the daemon to shut down gracefully. SIGTERM does not
// exist on Windows; CTRL_BREAK reaches the daemon's process group because
// it was started with CREATE_NEW_PROCESS_GROUP, so its group id is its pid.
func sendStopSignal(process *os.Process) error {
	return windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(process.Pid))
}
