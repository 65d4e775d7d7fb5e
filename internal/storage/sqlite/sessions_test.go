package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/types"
)

func TestSingleActiveSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.StartSession(ctx)
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	if !sess.Active() {
		t.Fatal("new session should be active")
	}

	if _, err := store.StartSession(ctx); !errors.Is(err, storage.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}

	current, err := store.CurrentSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if current == nil || current.ID != sess.ID {
		t.Fatalf("current session wrong: %+v", current)
	}
}

func TestEndSessionHandoffRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.StartSession(ctx); err != nil {
		t.Fatal(err)
	}
	ended, err := store.EndSession(ctx, "auth flow half done, resume at token refresh")
	if err != nil {
		t.Fatalf("failed to end session: %v", err)
	}
	if ended.EndedAt == nil {
		t.Fatal("ended session missing timestamp")
	}

	last, err := store.LastEndedSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.HandoffNotes != "auth flow half done, resume at token refresh" {
		t.Fatalf("handoff notes lost: %+v", last)
	}

	// Ending again with nothing active fails.
	if _, err := store.EndSession(ctx, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// The next session can start now.
	next, err := store.StartSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if next.ID <= ended.ID {
		t.Errorf("session ids should advance: %d then %d", ended.ID, next.ID)
	}
}

func TestSetSessionIssue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	issue := mustCreate(t, store, &types.Issue{Title: "focus"})

	// Requires an active session.
	if err := store.SetSessionIssue(ctx, issue.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without session, got %v", err)
	}

	if _, err := store.StartSession(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSessionIssue(ctx, issue.ID); err != nil {
		t.Fatalf("failed to set session issue: %v", err)
	}
	// Same issue again is a no-op success.
	if err := store.SetSessionIssue(ctx, issue.ID); err != nil {
		t.Fatalf("repeat set failed: %v", err)
	}

	if err := store.SetSessionIssue(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing issue, got %v", err)
	}

	current, _ := store.CurrentSession(ctx)
	if current.ActiveIssueID == nil || *current.ActiveIssueID != issue.ID {
		t.Fatalf("active issue not recorded: %+v", current)
	}
}

func TestTimerImplicitStop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, &types.Issue{Title: "a"})
	b := mustCreate(t, store, &types.Issue{Title: "b"})

	first, err := store.StartTimer(ctx, a.ID)
	if err != nil {
		t.Fatalf("failed to start timer: %v", err)
	}
	if !first.Running() {
		t.Fatal("new timer should be running")
	}

	// Starting on another issue stops the first.
	second, err := store.StartTimer(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	active, err := store.ActiveTimer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != second.ID {
		t.Fatalf("expected second timer active, got %+v", active)
	}

	total, err := store.TotalTime(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total < 0 {
		t.Errorf("negative total time: %v", total)
	}

	stopped, err := store.StopTimer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stopped == nil || stopped.ID != second.ID || stopped.Running() {
		t.Fatalf("stop result wrong: %+v", stopped)
	}

	// Stop with nothing running is a no-op success.
	stopped, err = store.StopTimer(ctx)
	if err != nil || stopped != nil {
		t.Fatalf("idle stop: entry=%+v err=%v", stopped, err)
	}
}

func TestEndSessionStopsTimer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	issue := mustCreate(t, store, &types.Issue{Title: "work"})
	if _, err := store.StartSession(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.StartTimer(ctx, issue.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := store.EndSession(ctx, "done for today"); err != nil {
		t.Fatal(err)
	}

	active, err := store.ActiveTimer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Fatalf("timer survived session end: %+v", active)
	}

	total, err := store.TotalTime(ctx, issue.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total < 0 || total > time.Hour {
		t.Errorf("implausible total time: %v", total)
	}
}
