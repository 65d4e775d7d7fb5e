package daemon

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/pchaganti/ax-chain-link/internal/lockfile"
	"github.com/pchaganti/ax-chain-link/internal/storage"
)

// RunOptions tunes the daemon loop.
type RunOptions struct {
	// ParentPID, when set, makes the daemon exit once that process is
	// gone, so it never outlives the environment that spawned it.
	ParentPID int
}

// Run executes the daemon loop in the current process: flush the store and
// refresh the heartbeat every interval, until the context is cancelled, the
// stop file appears, or the watched parent exits. Returns ErrAlreadyRunning
// if another daemon holds the workspace lock.
func (c *Coordinator) Run(ctx context.Context, store storage.Storage, opts RunOptions) error {
	lock, err := lockfile.Acquire(c.lockPath())
	if errors.Is(err, lockfile.ErrLockBusy) {
		return ErrAlreadyRunning
	}
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	hb := &Heartbeat{
		PID:             os.Getpid(),
		StartedAt:       c.now().UTC(),
		IntervalSeconds: int(c.interval / time.Second),
	}
	hb.HeartbeatAt = hb.StartedAt
	if err := writeHeartbeat(c.heartbeatPath(), hb); err != nil {
		return err
	}

	// Stdout is the daemon log when spawned by Start.
	logger := log.New(os.Stdout, "", log.LstdFlags)
	logger.Printf("daemon started (pid %d, interval %s)", hb.PID, c.interval)

	// fsnotify turns the stop file into a prompt wakeup; the per-tick stat
	// below is the fallback for filesystems without notification support.
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if werr := watcher.Add(c.dir); werr != nil {
			_ = watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}
	if watcher != nil {
		defer func() { _ = watcher.Close() }()
	}

	ticks := c.ticks
	if ticks == nil {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	var events chan fsnotify.Event
	var watchErrs chan error
	if watcher != nil {
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			logger.Print("daemon stopping: context cancelled")
			return c.shutdown(store)
		case ev := <-events:
			if ev.Op.Has(fsnotify.Create) && filepath.Base(ev.Name) == StopFile {
				logger.Print("daemon stopping: stop file")
				return c.shutdown(store)
			}
		case <-watchErrs:
			// Watch failures degrade to the per-tick stat check.
		case <-ticks:
			if c.stopRequested(opts) {
				logger.Print("daemon stopping: stop requested")
				return c.shutdown(store)
			}
			if err := c.flushOnce(ctx, store); err != nil {
				// Log and try again next tick. The heartbeat still
				// refreshes: the daemon is alive, just losing the lock.
				logger.Printf("flush failed: %v", err)
			}
			hb.HeartbeatAt = c.now().UTC()
			if err := writeHeartbeat(c.heartbeatPath(), hb); err != nil {
				return err
			}
		}
	}
}

// stopRequested checks the tick-time exit conditions.
func (c *Coordinator) stopRequested(opts RunOptions) bool {
	if fileExists(c.stopPath()) {
		return true
	}
	if opts.ParentPID > 0 && !lockfile.ProcessRunning(opts.ParentPID) {
		return true
	}
	return false
}

// flushOnce flushes the store, retrying briefly over lock contention with
// the foreground command that may be writing at the same moment.
func (c *Coordinator) flushOnce(ctx context.Context, store storage.Storage) error {
	op := func() error {
		err := store.Flush(ctx)
		if err != nil && !storage.IsBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = c.interval / 2
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// shutdown flushes once more and removes the daemon artifacts.
func (c *Coordinator) shutdown(store storage.Storage) error {
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = store.Flush(flushCtx)
	return c.removeArtifacts()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
