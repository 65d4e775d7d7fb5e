package types

import (
	"strings"
	"testing"
	"time"
)

func TestIssueValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		issue   Issue
		wantErr string
	}{
		{
			name:  "valid",
			issue: Issue{Title: "fix the build", Status: StatusOpen, Priority: PriorityMedium},
		},
		{
			name:    "empty title",
			issue:   Issue{Title: "", Status: StatusOpen, Priority: PriorityMedium},
			wantErr: "title",
		},
		{
			name:    "title too long",
			issue:   Issue{Title: strings.Repeat("x", MaxTitleLength+1), Status: StatusOpen, Priority: PriorityMedium},
			wantErr: "title",
		},
		{
			name:    "bad priority",
			issue:   Issue{Title: "x", Status: StatusOpen, Priority: "urgent"},
			wantErr: "priority",
		},
		{
			name:    "closed without timestamp",
			issue:   Issue{Title: "x", Status: StatusClosed, Priority: PriorityMedium},
			wantErr: "closed_at",
		},
		{
			name:    "open with timestamp",
			issue:   Issue{Title: "x", Status: StatusOpen, Priority: PriorityMedium, ClosedAt: &now},
			wantErr: "closed_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.issue.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
			if verr.Field != tt.wantErr {
				t.Errorf("expected field %q, got %q", tt.wantErr, verr.Field)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	issue := Issue{Title: "x"}
	issue.SetDefaults()
	if issue.Status != StatusOpen || issue.Priority != PriorityMedium {
		t.Errorf("defaults wrong: %+v", issue)
	}
}

func TestPriorityWeight(t *testing.T) {
	order := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Weight() <= order[i-1].Weight() {
			t.Errorf("%s should outweigh %s", order[i], order[i-1])
		}
	}
	if Priority("urgent").IsValid() {
		t.Error("unknown priority token should be invalid")
	}
}

func TestSessionActive(t *testing.T) {
	var none *Session
	if none.Active() {
		t.Error("nil session is not active")
	}

	sess := &Session{ID: 1, StartedAt: time.Now()}
	if !sess.Active() {
		t.Error("session without ended_at should be active")
	}
	now := time.Now()
	sess.EndedAt = &now
	if sess.Active() {
		t.Error("ended session should not be active")
	}
}

func TestErrorMessages(t *testing.T) {
	verr := &ValidationError{Field: "title", Reason: "title is required"}
	if !strings.Contains(verr.Error(), "title is required") {
		t.Errorf("validation message wrong: %s", verr.Error())
	}

	cerr := &CycleError{IssueID: 3, BlockerID: 7}
	msg := cerr.Error()
	if !strings.Contains(msg, "3") || !strings.Contains(msg, "7") {
		t.Errorf("cycle message should name both issues: %s", msg)
	}
}
