// Package daemon runs the background flush process: a single per-workspace
// daemon that periodically persists session and timer state and proves its
// liveness through a heartbeat artifact. Foreground commands use the same
// artifact to decide whether a daemon is running, crashed, or absent.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pchaganti/ax-chain-link/internal/lockfile"
)

const (
	// DefaultFlushInterval is how often the daemon flushes and refreshes
	// its heartbeat.
	DefaultFlushInterval = 30 * time.Second

	// stalenessFactor scales the flush interval into the threshold past
	// which a heartbeat is considered stale.
	stalenessFactor = 3

	// StopFile is the control file whose appearance asks the daemon to
	// exit. Works even when signal delivery is unavailable.
	StopFile = "daemon.stop"

	// LockFile guards against two daemons racing past the heartbeat check.
	LockFile = "daemon.lock"

	// LogFile collects the daemon process's output. It is appended to,
	// never removed with the other artifacts.
	LogFile = "daemon.log"
)

var (
	// ErrAlreadyRunning means a daemon with a fresh heartbeat exists.
	ErrAlreadyRunning = errors.New("daemon already running")

	// ErrNotRunning means there is no daemon to stop.
	ErrNotRunning = errors.New("daemon not running")
)

// State classifies the daemon's observed condition.
type State string

const (
	StateRunning State = "running" // fresh heartbeat, live process
	StateStale   State = "stale"   // heartbeat present but old; likely a crash
	StateStopped State = "stopped" // no heartbeat artifact
)

// Coordinator manages the daemon lifecycle for one workspace directory.
type Coordinator struct {
	dir       string
	interval  time.Duration
	parentPID int

	// now and ticks are swappable for tests: a test can drive the loop
	// deterministically by feeding ticks itself.
	now   func() time.Time
	ticks <-chan time.Time
}

// NewCoordinator returns a Coordinator for the workspace directory (the
// .chainlink directory holding the store and daemon artifacts).
func NewCoordinator(dir string) *Coordinator {
	return &Coordinator{dir: dir, interval: DefaultFlushInterval, now: time.Now}
}

// SetInterval overrides the flush interval. Intended for tests and the
// daemon_interval config knob.
func (c *Coordinator) SetInterval(d time.Duration) {
	if d > 0 {
		c.interval = d
	}
}

// SetParentPID ties the spawned daemon's lifetime to another process: the
// daemon exits once that process is gone. Host agents pass their own pid so
// the daemon never outlives the session that wanted it.
func (c *Coordinator) SetParentPID(pid int) {
	if pid > 0 {
		c.parentPID = pid
	}
}

func (c *Coordinator) heartbeatPath() string { return filepath.Join(c.dir, HeartbeatFile) }
func (c *Coordinator) stopPath() string      { return filepath.Join(c.dir, StopFile) }
func (c *Coordinator) lockPath() string      { return filepath.Join(c.dir, LockFile) }

// Status reads the heartbeat artifact and classifies it. A heartbeat whose
// process is gone counts as stale no matter how fresh the timestamp.
func (c *Coordinator) Status() (State, *Heartbeat, error) {
	hb, err := readHeartbeat(c.heartbeatPath())
	if err != nil {
		// An unreadable artifact is treated like a stale one: the next
		// start reclaims it.
		return StateStale, nil, nil
	}
	if hb == nil {
		return StateStopped, nil, nil
	}
	if !hb.Fresh(c.now()) || !lockfile.ProcessRunning(hb.PID) {
		return StateStale, hb, nil
	}
	return StateRunning, hb, nil
}

// Start launches a background daemon process and returns without waiting
// for it. Fails with ErrAlreadyRunning when a live daemon exists. A stale
// heartbeat is reclaimed silently; crashes are expected, not user errors.
func (c *Coordinator) Start() error {
	state, _, err := c.Status()
	if err != nil {
		return err
	}
	switch state {
	case StateRunning:
		return ErrAlreadyRunning
	case StateStale:
		if err := c.removeArtifacts(); err != nil {
			return err
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	args := []string{"daemon", "run",
		"--dir", c.dir,
		"--interval", c.interval.String(),
	}
	if c.parentPID > 0 {
		args = append(args, "--parent", strconv.Itoa(c.parentPID))
	}
	cmd := exec.Command(exe, args...)
	// The detached child has no terminal; its output goes to the log.
	logf, err := os.OpenFile(filepath.Join(c.dir, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open daemon log: %w", err)
	}
	defer func() { _ = logf.Close() }()
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn daemon: %w", err)
	}
	// The child owns its own lifecycle from here. Release lets the parent
	// exit without reaping.
	return cmd.Process.Release()
}

// Stop asks the running daemon to exit and removes its artifacts. Fails
// with ErrNotRunning when no daemon artifact exists. A stale artifact is
// cleaned up and reported as success, since the daemon is already gone.
func (c *Coordinator) Stop() error {
	state, hb, err := c.Status()
	if err != nil {
		return err
	}
	switch state {
	case StateStopped:
		return ErrNotRunning
	case StateStale:
		return c.removeArtifacts()
	}

	// Both channels: the stop file reaches daemons that cannot receive
	// signals, the signal reaches daemons before their next poll.
	if f, err := os.Create(c.stopPath()); err == nil {
		_ = f.Close()
	}
	if proc, err := os.FindProcess(hb.PID); err == nil {
		_ = sendStopSignal(proc)
	}

	// Give the daemon one poll to exit on its own; then clean up whatever
	// it left behind.
	deadline := c.now().Add(5 * time.Second)
	for c.now().Before(deadline) {
		if _, err := os.Stat(c.heartbeatPath()); os.IsNotExist(err) {
			_ = os.Remove(c.stopPath())
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return c.removeArtifacts()
}

func (c *Coordinator) removeArtifacts() error {
	for _, p := range []string{c.heartbeatPath(), c.stopPath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}
