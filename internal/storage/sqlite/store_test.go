package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "issues.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreate(t *testing.T, store *Store, issue *types.Issue) *types.Issue {
	t.Helper()
	created, err := store.CreateIssue(context.Background(), issue)
	if err != nil {
		t.Fatalf("failed to create issue: %v", err)
	}
	return created
}

func TestCreateAndGetIssue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, store, &types.Issue{
		Title:       "Fix login flow",
		Description: "Token refresh races the redirect",
		Priority:    types.PriorityHigh,
	})
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if created.Status != types.StatusOpen {
		t.Errorf("expected open status, got %s", created.Status)
	}

	got, err := store.GetIssue(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to get issue: %v", err)
	}
	if got.Title != created.Title || got.Priority != types.PriorityHigh {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps set")
	}
}

func TestGetIssueNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetIssue(context.Background(), 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateIssueValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateIssue(ctx, &types.Issue{Title: ""})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty title, got %v", err)
	}

	_, err = store.CreateIssue(ctx, &types.Issue{Title: "x", Priority: "urgent"})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for bad priority, got %v", err)
	}
}

func TestCreateIssueMissingParent(t *testing.T) {
	store := newTestStore(t)

	missing := int64(999)
	_, err := store.CreateIssue(context.Background(), &types.Issue{Title: "orphan", ParentID: &missing})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestUpdateIssue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	issue := mustCreate(t, store, &types.Issue{Title: "before"})

	title := "after"
	priority := "critical"
	updated, err := store.UpdateIssue(ctx, issue.ID, storage.IssueUpdate{Title: &title, Priority: &priority})
	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if updated.Title != "after" || updated.Priority != types.PriorityCritical {
		t.Errorf("update not applied: %+v", updated)
	}

	empty := ""
	_, err = store.UpdateIssue(ctx, issue.ID, storage.IssueUpdate{Title: &empty})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty title, got %v", err)
	}
}

func TestCloseReopenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	issue := mustCreate(t, store, &types.Issue{Title: "cycle me"})

	changed, err := store.CloseIssue(ctx, issue.ID)
	if err != nil || !changed {
		t.Fatalf("close: changed=%v err=%v", changed, err)
	}
	got, _ := store.GetIssue(ctx, issue.ID)
	if got.Status != types.StatusClosed || got.ClosedAt == nil {
		t.Fatalf("expected closed with timestamp, got %+v", got)
	}

	// Closing again is a no-op success, not an error.
	changed, err = store.CloseIssue(ctx, issue.ID)
	if err != nil || changed {
		t.Fatalf("second close: changed=%v err=%v", changed, err)
	}

	changed, err = store.ReopenIssue(ctx, issue.ID)
	if err != nil || !changed {
		t.Fatalf("reopen: changed=%v err=%v", changed, err)
	}
	got, _ = store.GetIssue(ctx, issue.ID)
	if got.Status != types.StatusOpen || got.ClosedAt != nil {
		t.Fatalf("expected open with cleared closed_at, got %+v", got)
	}
}

func TestListIssuesFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, &types.Issue{Title: "a", Priority: types.PriorityHigh})
	b := mustCreate(t, store, &types.Issue{Title: "b"})
	mustCreate(t, store, &types.Issue{Title: "c"})

	if _, err := store.CloseIssue(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.AddLabel(ctx, a.ID, "bug"); err != nil {
		t.Fatal(err)
	}

	open, err := store.ListIssues(ctx, types.IssueFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open issues, got %d", len(open))
	}
	// Ascending id order.
	if open[0].ID > open[1].ID {
		t.Errorf("expected ascending ids, got %d, %d", open[0].ID, open[1].ID)
	}

	closed, err := store.ListIssues(ctx, types.IssueFilter{Status: "closed"})
	if err != nil {
		t.Fatal(err)
	}
	if len(closed) != 1 || closed[0].ID != b.ID {
		t.Fatalf("closed filter wrong: %+v", closed)
	}

	all, err := store.ListIssues(ctx, types.IssueFilter{Status: "all"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 issues for all, got %d", len(all))
	}

	labelled, err := store.ListIssues(ctx, types.IssueFilter{Label: "bug"})
	if err != nil {
		t.Fatal(err)
	}
	if len(labelled) != 1 || labelled[0].ID != a.ID {
		t.Fatalf("label filter wrong: %+v", labelled)
	}

	high, err := store.ListIssues(ctx, types.IssueFilter{Priority: "high"})
	if err != nil {
		t.Fatal(err)
	}
	if len(high) != 1 || high[0].ID != a.ID {
		t.Fatalf("priority filter wrong: %+v", high)
	}
}

func TestDeleteRequiresCascadeForChildren(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	parent := mustCreate(t, store, &types.Issue{Title: "parent"})
	child := mustCreate(t, store, &types.Issue{Title: "child", ParentID: &parent.ID})

	_, err := store.DeleteIssue(ctx, parent.ID, false)
	if !errors.Is(err, storage.ErrHasChildren) {
		t.Fatalf("expected ErrHasChildren, got %v", err)
	}

	deleted, err := store.DeleteIssue(ctx, parent.ID, true)
	if err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}
	if len(deleted) != 2 || deleted[0] != parent.ID || deleted[1] != child.ID {
		t.Fatalf("expected both ids, got %v", deleted)
	}

	if _, err := store.GetIssue(ctx, child.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("child should be gone, got %v", err)
	}
}

func TestDeleteRemovesAllReferences(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doomed := mustCreate(t, store, &types.Issue{Title: "doomed"})
	other := mustCreate(t, store, &types.Issue{Title: "survivor"})

	if err := store.AddBlocker(ctx, other.ID, doomed.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.AddLabel(ctx, doomed.ID, "stale"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddComment(ctx, doomed.ID, "notes"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.StartSession(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSessionIssue(ctx, doomed.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := store.DeleteIssue(ctx, doomed.ID, false); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	blockers, err := store.GetBlockers(ctx, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(blockers) != 0 {
		t.Errorf("dependency edge not removed: %v", blockers)
	}

	sess, err := store.CurrentSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess.ActiveIssueID != nil {
		t.Errorf("session still references deleted issue: %v", *sess.ActiveIssueID)
	}
}

func TestRecoverQuarantinesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issues.db")
	ctx := context.Background()

	// A file of garbage bytes is not a SQLite database.
	if err := os.WriteFile(path, []byte("this is not a database, not even close"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(ctx, path)
	if !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	store, quarantine, err := Recover(ctx, path)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := os.Stat(quarantine); err != nil {
		t.Errorf("quarantine file missing: %v", err)
	}
	if _, err := store.ListIssues(ctx, types.IssueFilter{}); err != nil {
		t.Errorf("fresh store not usable: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.db")
	store, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if store.Path() != path {
		t.Errorf("path mismatch: %s", store.Path())
	}
	if store.IsClosed() {
		t.Error("fresh store reports closed")
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !store.IsClosed() {
		t.Error("closed store reports open")
	}
	if err := store.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}
}
