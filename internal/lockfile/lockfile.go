// Package lockfile provides the advisory file lock and process-liveness
// checks the daemon uses to guarantee at most one background process per
// workspace.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrLockBusy is returned when another process already holds the lock.
var ErrLockBusy = errors.New("lock already held by another process")

// Lock is an acquired advisory lock on a file. The lock lives as long as
// the file descriptor: it is released by Release or by process exit,
// whichever comes first, so a crashed holder never wedges the lock.
type Lock struct {
	f    *os.File
	path string
}

// Acquire takes an exclusive non-blocking lock on path, creating the file
// if needed, and records the caller's pid in it for diagnostics. Returns
// ErrLockBusy if another process holds the lock.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
		_ = f.Sync()
	}
	return &Lock{f: f, path: path}, nil
}

// Release unlocks and closes the lock file. The file itself is left in
// place; a leftover file without a holder is harmless.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := flockUnlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

// Path returns the lock file's path.
func (l *Lock) Path() string { return l.path }

// ReadPID reads the pid recorded in a lock file. Returns 0 when the file
// is missing or holds no pid.
func ReadPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
