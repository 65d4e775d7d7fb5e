//go:build unix

package lockfile

import (
	"errors"
	"syscall"
)

// ProcessRunning checks whether a process with the given pid exists.
// Signal 0 probes without delivering; EPERM means the process exists but
// belongs to another user, which still counts as running.
func ProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
