// Package session implements the work-session lifecycle on top of the
// storage layer: a single active session at a time, handoff notes carried
// from one session to the next, and an elapsed-time timer against the issue
// being worked.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/types"
)

// Manager drives session transitions. All state lives in storage; the
// manager holds no state of its own, so concurrent processes see a
// consistent view through the store's transactions.
type Manager struct {
	store storage.Storage
}

// NewManager returns a Manager backed by store.
func NewManager(store storage.Storage) *Manager {
	return &Manager{store: store}
}

// Start opens a new session and returns it along with the handoff notes
// left by the previous session, so the caller can surface them. Fails with
// ErrAlreadyActive if a session is already open.
func (m *Manager) Start(ctx context.Context) (*types.Session, string, error) {
	var handoff string
	if last, err := m.store.LastEndedSession(ctx); err != nil {
		return nil, "", err
	} else if last != nil {
		handoff = last.HandoffNotes
	}

	sess, err := m.store.StartSession(ctx)
	if err != nil {
		return nil, "", err
	}
	return sess, handoff, nil
}

// Work points the active session at an issue. Fails with ErrNotFound if the
// issue does not exist or no session is active. Re-pointing at the same
// issue is a no-op.
func (m *Manager) Work(ctx context.Context, issueID int64) error {
	return m.store.SetSessionIssue(ctx, issueID)
}

// End closes the active session with optional handoff notes and stops any
// running timer. Fails with ErrNotFound when no session is active.
func (m *Manager) End(ctx context.Context, notes string) (*types.Session, error) {
	return m.store.EndSession(ctx, notes)
}

// StartTimer begins tracking time against an issue. A running timer is
// stopped and its duration recorded before the new one starts. Requires an
// active session; timers are part of the session state machine.
func (m *Manager) StartTimer(ctx context.Context, issueID int64) (*types.TimeEntry, error) {
	sess, err := m.store.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return nil, fmt.Errorf("no active session: %w", storage.ErrNotFound)
	}
	return m.store.StartTimer(ctx, issueID)
}

// StopTimer stops the running timer and returns the finished entry, or nil
// when no timer was running.
func (m *Manager) StopTimer(ctx context.Context) (*types.TimeEntry, error) {
	return m.store.StopTimer(ctx)
}

// Status is a point-in-time view of the session state machine.
type Status struct {
	Active  bool             `json:"active"`
	Session *types.Session   `json:"session,omitempty"`
	Timer   *types.TimeEntry `json:"timer,omitempty"`
	Elapsed time.Duration    `json:"elapsed,omitempty"`
}

// Status reports whether a session is active, which issue it is working,
// and the running timer's elapsed time if one is going. It never mutates
// state.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	sess, err := m.store.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{Active: sess.Active(), Session: sess}
	if !st.Active {
		return st, nil
	}

	timer, err := m.store.ActiveTimer(ctx)
	if err != nil {
		return nil, err
	}
	if timer.Running() {
		st.Timer = timer
		st.Elapsed = time.Since(timer.StartedAt)
	}
	return st, nil
}
