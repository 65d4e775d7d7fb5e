// Package types defines core data structures for the chainlink issue tracker.
package types

import (
	"fmt"
	"time"
)

// MaxTitleLength is the upper bound on issue and milestone titles.
const MaxTitleLength = 500

// Issue represents a trackable work item.
type Issue struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	ParentID    *int64     `json:"parent_id,omitempty"`
	Archived    bool       `json:"archived,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`

	// Populated on demand (Show, export); not filled by list queries.
	Labels   []string   `json:"labels,omitempty"`
	Comments []*Comment `json:"comments,omitempty"`
}

// Validate checks the issue's field values against the schema constraints.
func (i *Issue) Validate() error {
	if len(i.Title) == 0 {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if len(i.Title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("title must be %d characters or less (got %d)", MaxTitleLength, len(i.Title))}
	}
	if !i.Priority.IsValid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("invalid priority: %q (must be low, medium, high, or critical)", i.Priority)}
	}
	if !i.Status.IsValid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("invalid status: %q", i.Status)}
	}
	// closed_at invariant: set if and only if status is closed
	if i.Status == StatusClosed && i.ClosedAt == nil {
		return &ValidationError{Field: "closed_at", Reason: "closed issues must have a closed_at timestamp"}
	}
	if i.Status != StatusClosed && i.ClosedAt != nil {
		return &ValidationError{Field: "closed_at", Reason: "open issues cannot have a closed_at timestamp"}
	}
	return nil
}

// SetDefaults applies default values for omitted fields.
func (i *Issue) SetDefaults() {
	if i.Status == "" {
		i.Status = StatusOpen
	}
	if i.Priority == "" {
		i.Priority = PriorityMedium
	}
}

// Status is the lifecycle state of an issue.
type Status string

// Issue statuses. Archived is a separate flag, not a status: archived issues
// keep status=closed so unarchive restores them without guessing.
const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// IsValid returns true for a recognized status value.
func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusClosed
}

// Priority is the urgency bucket of an issue, stored as its lowercase token.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid returns true for one of the four recognized priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Weight returns the sort weight of the priority (higher is more urgent).
// Unrecognized values sort last.
func (p Priority) Weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Comment is an immutable note appended to an issue.
type Comment struct {
	ID        int64     `json:"id"`
	IssueID   int64     `json:"issue_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the singleton record of a bounded period of work.
// The id doubles as the session sequence number.
type Session struct {
	ID            int64      `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	ActiveIssueID *int64     `json:"active_issue_id,omitempty"`
	HandoffNotes  string     `json:"handoff_notes,omitempty"`
}

// Active reports whether the session is still open.
func (s *Session) Active() bool {
	return s != nil && s.EndedAt == nil
}

// TimeEntry is one span of tracked time against an issue.
type TimeEntry struct {
	ID              int64      `json:"id"`
	IssueID         int64      `json:"issue_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int64      `json:"duration_seconds,omitempty"`
}

// Running reports whether the entry is still accumulating time.
func (e *TimeEntry) Running() bool {
	return e != nil && e.EndedAt == nil
}

// Milestone groups issues toward a named goal.
type Milestone struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// BlockedIssue pairs an open issue with its open blockers.
type BlockedIssue struct {
	Issue    *Issue  `json:"issue"`
	Blockers []int64 `json:"blockers"`
}

// TreeNode is one issue in the hierarchy view with its filtered subtree.
type TreeNode struct {
	Issue    *Issue      `json:"issue"`
	Children []*TreeNode `json:"children,omitempty"`
}

// IssueFilter narrows list queries. Zero values mean "no constraint";
// StatusAll explicitly includes closed issues.
type IssueFilter struct {
	Status          string   // "open", "closed", "all", or "" (defaults to open)
	Label           string   // exact label match
	Priority        Priority // exact priority match
	IncludeArchived bool
}

// StatusAll is the filter token that matches open and closed issues alike.
const StatusAll = "all"
