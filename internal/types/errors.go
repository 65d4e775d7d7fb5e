package types

import "fmt"

// ValidationError reports malformed input: an empty title, an oversized
// field, or an unrecognized priority. It is always recoverable and is
// reported to the caller rather than retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// CycleError reports a dependency edge that would close a cycle. It carries
// the offending pair so callers can show which edge was rejected.
type CycleError struct {
	IssueID   int64
	BlockerID int64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cannot block #%d on #%d: would create a dependency cycle", e.IssueID, e.BlockerID)
}
