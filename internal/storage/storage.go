// Package storage provides shared types for issue storage.
//
// The concrete storage implementation lives in the sqlite sub-package.
// This package holds the interface and error values that are referenced by
// both the sqlite implementation and its consumers (cmd/chainlink, the
// session manager, the daemon).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pchaganti/ax-chain-link/internal/types"
)

// ErrNotFound is returned when a referenced issue, milestone, or session
// does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrHasChildren is returned when deleting an issue with subissues without
// requesting a cascade. The operation aborts cleanly; nothing is deleted.
var ErrHasChildren = errors.New("issue has subissues")

// ErrAlreadyActive is returned when starting a session while another
// session is still open.
var ErrAlreadyActive = errors.New("a session is already active")

// ErrBusy is returned when the store's write lock could not be acquired
// within the bounded wait. The caller may retry with backoff.
var ErrBusy = errors.New("store is busy")

// ErrCorrupt is returned when the store file fails integrity checks on
// open. Recovery (quarantine and reinitialize) is explicit, never silent.
var ErrCorrupt = errors.New("store failed integrity check")

// Storage is the interface satisfied by *sqlite.Store.
// Consumers depend on this interface rather than on the concrete type so
// that alternative implementations (mocks, in-memory stores) can be
// substituted in tests.
type Storage interface {
	// Issue CRUD
	CreateIssue(ctx context.Context, issue *types.Issue) (*types.Issue, error)
	GetIssue(ctx context.Context, id int64) (*types.Issue, error)
	UpdateIssue(ctx context.Context, id int64, updates IssueUpdate) (*types.Issue, error)
	CloseIssue(ctx context.Context, id int64) (bool, error)
	ReopenIssue(ctx context.Context, id int64) (bool, error)
	DeleteIssue(ctx context.Context, id int64, cascade bool) ([]int64, error)
	ListIssues(ctx context.Context, filter types.IssueFilter) ([]*types.Issue, error)

	// Labels and comments
	AddLabel(ctx context.Context, issueID int64, label string) error
	RemoveLabel(ctx context.Context, issueID int64, label string) (bool, error)
	GetLabels(ctx context.Context, issueID int64) ([]string, error)
	AddComment(ctx context.Context, issueID int64, text string) (*types.Comment, error)
	GetComments(ctx context.Context, issueID int64) ([]*types.Comment, error)

	// Dependency graph
	AddBlocker(ctx context.Context, issueID, blockerID int64) error
	RemoveBlocker(ctx context.Context, issueID, blockerID int64) (bool, error)
	GetBlockers(ctx context.Context, issueID int64) ([]int64, error)
	GetBlocking(ctx context.Context, issueID int64) ([]int64, error)

	// Derived views (snapshot reads)
	ReadyIssues(ctx context.Context) ([]*types.Issue, error)
	BlockedIssues(ctx context.Context) ([]*types.BlockedIssue, error)
	Tree(ctx context.Context, statusFilter string) ([]*types.TreeNode, error)
	NextIssue(ctx context.Context) (*types.Issue, error)

	// Archival
	ArchiveIssue(ctx context.Context, id int64) error
	UnarchiveIssue(ctx context.Context, id int64) error
	ArchiveOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error)
	ListArchived(ctx context.Context) ([]*types.Issue, error)

	// Sessions and timers
	CurrentSession(ctx context.Context) (*types.Session, error)
	LastEndedSession(ctx context.Context) (*types.Session, error)
	StartSession(ctx context.Context) (*types.Session, error)
	EndSession(ctx context.Context, notes string) (*types.Session, error)
	SetSessionIssue(ctx context.Context, issueID int64) error
	ActiveTimer(ctx context.Context) (*types.TimeEntry, error)
	StartTimer(ctx context.Context, issueID int64) (*types.TimeEntry, error)
	StopTimer(ctx context.Context) (*types.TimeEntry, error)
	TotalTime(ctx context.Context, issueID int64) (time.Duration, error)

	// Milestones
	CreateMilestone(ctx context.Context, name, description string) (int64, error)
	GetMilestone(ctx context.Context, id int64) (*types.Milestone, error)
	ListMilestones(ctx context.Context, statusFilter string) ([]*types.Milestone, error)
	CloseMilestone(ctx context.Context, id int64) error
	AddToMilestone(ctx context.Context, milestoneID, issueID int64) error
	RemoveFromMilestone(ctx context.Context, milestoneID, issueID int64) error
	MilestoneIssues(ctx context.Context, milestoneID int64) ([]*types.Issue, error)

	// Maintenance
	Flush(ctx context.Context) error

	// Lifecycle
	Close() error
}

// IssueUpdate is a partial update: nil fields are left unchanged.
// Priority is carried as a plain string and validated by the store so
// that callers can pass user input straight through.
type IssueUpdate struct {
	Title       *string
	Description *string
	Priority    *string
}

// IsBusy reports whether err is, or wraps, a lock-contention condition.
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
