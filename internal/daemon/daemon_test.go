package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pchaganti/ax-chain-link/internal/storage"
)

// flushStore counts Flush calls; the daemon loop touches nothing else on
// the storage interface.
type flushStore struct {
	storage.Storage
	flushes atomic.Int32
}

func (f *flushStore) Flush(ctx context.Context) error {
	f.flushes.Add(1)
	return nil
}

func TestHeartbeatRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), HeartbeatFile)

	now := time.Now().UTC().Truncate(time.Second)
	hb := &Heartbeat{PID: 1234, StartedAt: now, HeartbeatAt: now, IntervalSeconds: 30}
	require.NoError(t, writeHeartbeat(path, hb))

	got, err := readHeartbeat(path)
	require.NoError(t, err)
	assert.Equal(t, hb.PID, got.PID)
	assert.True(t, hb.HeartbeatAt.Equal(got.HeartbeatAt))
	assert.Equal(t, 30*time.Second, got.Interval())
}

func TestHeartbeatMissingFile(t *testing.T) {
	hb, err := readHeartbeat(filepath.Join(t.TempDir(), HeartbeatFile))
	require.NoError(t, err)
	assert.Nil(t, hb)
}

func TestHeartbeatForwardCompatible(t *testing.T) {
	path := filepath.Join(t.TempDir(), HeartbeatFile)

	// A future daemon may add fields; older readers must not choke.
	payload := map[string]any{
		"pid":            4321,
		"started_at":     time.Now().UTC(),
		"heartbeat_at":   time.Now().UTC(),
		"future_feature": "enabled",
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	hb, err := readHeartbeat(path)
	require.NoError(t, err)
	assert.Equal(t, 4321, hb.PID)
	// interval_seconds absent falls back to the default.
	assert.Equal(t, DefaultFlushInterval, hb.Interval())
}

func TestHeartbeatFreshness(t *testing.T) {
	now := time.Now()
	hb := &Heartbeat{HeartbeatAt: now, IntervalSeconds: 30}
	assert.True(t, hb.Fresh(now.Add(89*time.Second)))
	assert.False(t, hb.Fresh(now.Add(91*time.Second)))
}

func TestStatusTransitions(t *testing.T) {
	dir := t.TempDir()
	coord := NewCoordinator(dir)

	state, hb, err := coord.Status()
	require.NoError(t, err)
	assert.Equal(t, StateStopped, state)
	assert.Nil(t, hb)

	// Fresh heartbeat from a live process: running.
	now := time.Now().UTC()
	require.NoError(t, writeHeartbeat(coord.heartbeatPath(), &Heartbeat{
		PID: os.Getpid(), StartedAt: now, HeartbeatAt: now, IntervalSeconds: 30,
	}))
	state, hb, err = coord.Status()
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)
	require.NotNil(t, hb)

	// Old heartbeat: stale even though the process lives.
	require.NoError(t, writeHeartbeat(coord.heartbeatPath(), &Heartbeat{
		PID: os.Getpid(), StartedAt: now, HeartbeatAt: now.Add(-5 * time.Minute), IntervalSeconds: 30,
	}))
	state, _, err = coord.Status()
	require.NoError(t, err)
	assert.Equal(t, StateStale, state)

	// Fresh heartbeat from a dead process: stale too.
	require.NoError(t, writeHeartbeat(coord.heartbeatPath(), &Heartbeat{
		PID: 1 << 30, StartedAt: now, HeartbeatAt: now, IntervalSeconds: 30,
	}))
	state, _, err = coord.Status()
	require.NoError(t, err)
	assert.Equal(t, StateStale, state)
}

func TestStartAlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	coord := NewCoordinator(dir)

	now := time.Now().UTC()
	require.NoError(t, writeHeartbeat(coord.heartbeatPath(), &Heartbeat{
		PID: os.Getpid(), StartedAt: now, HeartbeatAt: now, IntervalSeconds: 30,
	}))

	assert.ErrorIs(t, coord.Start(), ErrAlreadyRunning)
}

func TestStopWhenStopped(t *testing.T) {
	coord := NewCoordinator(t.TempDir())
	assert.ErrorIs(t, coord.Stop(), ErrNotRunning)
}

func TestStopReclaimsStaleArtifact(t *testing.T) {
	dir := t.TempDir()
	coord := NewCoordinator(dir)

	now := time.Now().UTC()
	require.NoError(t, writeHeartbeat(coord.heartbeatPath(), &Heartbeat{
		PID: 1 << 30, StartedAt: now, HeartbeatAt: now.Add(-time.Hour), IntervalSeconds: 30,
	}))

	require.NoError(t, coord.Stop())
	_, err := os.Stat(coord.heartbeatPath())
	assert.True(t, os.IsNotExist(err), "stale artifact should be removed")
}

func TestRunFlushCycleAndStopFile(t *testing.T) {
	dir := t.TempDir()
	coord := NewCoordinator(dir)
	coord.SetInterval(50 * time.Millisecond)

	// Buffered so the final tick never blocks if the fsnotify path already
	// ended the loop.
	ticks := make(chan time.Time, 1)
	coord.ticks = ticks

	store := &flushStore{}
	done := make(chan error, 1)
	go func() {
		done <- coord.Run(context.Background(), store, RunOptions{})
	}()

	// The heartbeat artifact appears as soon as the loop starts.
	require.Eventually(t, func() bool {
		hb, err := readHeartbeat(coord.heartbeatPath())
		return err == nil && hb != nil && hb.PID == os.Getpid()
	}, 2*time.Second, 10*time.Millisecond)
	initial, err := readHeartbeat(coord.heartbeatPath())
	require.NoError(t, err)

	// One driven tick: exactly one flush and a refreshed heartbeat.
	ticks <- time.Now()
	require.Eventually(t, func() bool {
		return store.flushes.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		hb, err := readHeartbeat(coord.heartbeatPath())
		return err == nil && hb != nil && hb.HeartbeatAt.After(initial.HeartbeatAt)
	}, 2*time.Second, 10*time.Millisecond)

	// The stop file ends the loop on the next tick and cleans up.
	f, err := os.Create(coord.stopPath())
	require.NoError(t, err)
	require.NoError(t, f.Close())
	ticks <- time.Now()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon loop did not stop")
	}

	_, err = os.Stat(coord.heartbeatPath())
	assert.True(t, os.IsNotExist(err), "heartbeat should be removed on shutdown")
	_, err = os.Stat(coord.stopPath())
	assert.True(t, os.IsNotExist(err), "stop file should be removed on shutdown")
	// Shutdown performs a final flush.
	assert.GreaterOrEqual(t, store.flushes.Load(), int32(2))
}

func TestRunContextCancellation(t *testing.T) {
	dir := t.TempDir()
	coord := NewCoordinator(dir)
	coord.SetInterval(time.Hour) // only the context can end the loop

	ctx, cancel := context.WithCancel(context.Background())
	store := &flushStore{}
	done := make(chan error, 1)
	go func() {
		done <- coord.Run(ctx, store, RunOptions{})
	}()

	require.Eventually(t, func() bool {
		hb, err := readHeartbeat(coord.heartbeatPath())
		return err == nil && hb != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon loop ignored cancellation")
	}
}

func TestSecondRunBlockedByLock(t *testing.T) {
	dir := t.TempDir()

	first := NewCoordinator(dir)
	first.SetInterval(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &flushStore{}
	done := make(chan error, 1)
	go func() {
		done <- first.Run(ctx, store, RunOptions{})
	}()
	require.Eventually(t, func() bool {
		hb, err := readHeartbeat(first.heartbeatPath())
		return err == nil && hb != nil
	}, 2*time.Second, 10*time.Millisecond)

	second := NewCoordinator(dir)
	err := second.Run(context.Background(), &flushStore{}, RunOptions{})
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	<-done
}
func TestRunExitsWhenParentGone(t *testing.T) {
	dir := t.TempDir()
	coord := NewCoordinator(dir)
	coord.SetInterval(time.Hour)

	ticks := make(chan time.Time, 1)
	coord.ticks = ticks

	store := &flushStore{}
	done := make(chan error, 1)
	go func() {
		done <- coord.Run(context.Background(), store, RunOptions{ParentPID: 1 << 30})
	}()

	require.Eventually(t, func() bool {
		hb, err := readHeartbeat(coord.heartbeatPath())
		return err == nil && hb != nil
	}, 2*time.Second, 10*time.Millisecond)

	// The dead parent is noticed at the next tick.
	ticks <- time.Now()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon outlived its parent")
	}
	_, err := os.Stat(coord.heartbeatPath())
	assert.True(t, os.IsNotExist(err), "heartbeat should be removed on shutdown")
}

// brokenStore fails every flush so the loop's error handling is observable.
type brokenStore struct {
	storage.Storage
	flushes atomic.Int32
}

func (b *brokenStore) Flush(ctx context.Context) error {
	b.flushes.Add(1)
	return errors.New("disk trouble")
}

func TestRunSurvivesFlushFailure(t *testing.T) {
	dir := t.TempDir()
	coord := NewCoordinator(dir)
	coord.SetInterval(50 * time.Millisecond)

	ticks := make(chan time.Time, 1)
	coord.ticks = ticks

	store := &brokenStore{}
	done := make(chan error, 1)
	go func() {
		done <- coord.Run(context.Background(), store, RunOptions{})
	}()

	require.Eventually(t, func() bool {
		hb, err := readHeartbeat(coord.heartbeatPath())
		return err == nil && hb != nil
	}, 2*time.Second, 10*time.Millisecond)
	initial, err := readHeartbeat(coord.heartbeatPath())
	require.NoError(t, err)

	// A failed flush does not end the loop; the heartbeat still refreshes.
	ticks <- time.Now()
	require.Eventually(t, func() bool {
		return store.flushes.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		hb, err := readHeartbeat(coord.heartbeatPath())
		return err == nil && hb != nil && hb.HeartbeatAt.After(initial.HeartbeatAt)
	}, 2*time.Second, 10*time.Millisecond)

	f, err := os.Create(coord.stopPath())
	require.NoError(t, err)
	require.NoError(t, f.Close())
	ticks <- time.Now()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon loop did not stop")
	}
}
