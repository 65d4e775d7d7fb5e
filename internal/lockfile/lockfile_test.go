package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	// A second acquisition on its own descriptor must fail while held.
	if _, err := Acquire(path); !errors.Is(err, ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy, got %v", err)
	}

	if pid := ReadPID(path); pid != os.Getpid() {
		t.Errorf("lock file records pid %d, want %d", pid, os.Getpid())
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}

	// Released locks can be re-acquired.
	again, err := Acquire(path)
	if err != nil {
		t.Fatalf("failed to re-acquire after release: %v", err)
	}
	_ = again.Release()

	// Double release is harmless.
	if err := lock.Release(); err != nil {
		t.Errorf("double release errored: %v", err)
	}
}

func TestReadPIDMissingFile(t *testing.T) {
	if pid := ReadPID(filepath.Join(t.TempDir(), "nope")); pid != 0 {
		t.Errorf("expected 0 for missing file, got %d", pid)
	}
}

func TestProcessRunning(t *testing.T) {
	if !ProcessRunning(os.Getpid()) {
		t.Error("our own process should be running")
	}
	if ProcessRunning(0) || ProcessRunning(-1) {
		t.Error("non-positive pids are never running")
	}
	// PIDs above the kernel's default max are safe to treat as dead.
	if ProcessRunning(1 << 30) {
		t.Error("absurd pid should not be running")
	}
}
