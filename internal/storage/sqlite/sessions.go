package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/types"
)

const sessionColumns = `id, started_at, ended_at, active_issue_id, handoff_notes`

func scanSession(row rowScanner) (*types.Session, error) {
	var sess types.Session
	var ended sql.NullTime
	var issueID sql.NullInt64
	err := row.Scan(&sess.ID, &sess.StartedAt, &ended, &issueID, &sess.HandoffNotes)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	if issueID.Valid {
		v := issueID.Int64
		sess.ActiveIssueID = &v
	}
	return &sess, nil
}

// CurrentSession returns the active session, or nil when none is open.
func (s *Store) CurrentSession(ctx context.Context) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE ended_at IS NULL
	`)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError("query current session", err)
	}
	return sess, nil
}

// LastEndedSession returns the most recently ended session, or nil when no
// session has ever ended. Its handoff notes carry context into the next
// session.
func (s *Store) LastEndedSession(ctx context.Context) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE ended_at IS NOT NULL
		ORDER BY ended_at DESC, id DESC LIMIT 1
	`)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError("query last session", err)
	}
	return sess, nil
}

// StartSession opens a new work session. Fails with ErrAlreadyActive if a
// session is already open; the partial unique index on sessions backs this
// up at the schema level.
func (s *Store) StartSession(ctx context.Context) (*types.Session, error) {
	var sess *types.Session
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		var active int
		err := conn.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM sessions WHERE ended_at IS NULL
		`).Scan(&active)
		if err != nil {
			return wrapDBError("check active session", err)
		}
		if active > 0 {
			return storage.ErrAlreadyActive
		}

		now := time.Now().UTC()
		result, err := conn.ExecContext(ctx, `
			INSERT INTO sessions (started_at) VALUES (?)
		`, now)
		if err != nil {
			if isConstraintError(err) {
				return storage.ErrAlreadyActive
			}
			return wrapDBError("start session", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get session id: %w", err)
		}
		sess = &types.Session{ID: id, StartedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// EndSession closes the active session, recording handoff notes for the
// next session to pick up. Any running timer stops with it. Fails with
// ErrNotFound when no session is active.
func (s *Store) EndSession(ctx context.Context, notes string) (*types.Session, error) {
	var sess *types.Session
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT `+sessionColumns+` FROM sessions WHERE ended_at IS NULL
		`)
		current, err := scanSession(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no active session: %w", storage.ErrNotFound)
		}
		if err != nil {
			return wrapDBError("query current session", err)
		}

		now := time.Now().UTC()
		if err := stopRunningTimer(ctx, conn, now); err != nil {
			return err
		}
		if _, err := conn.ExecContext(ctx, `
			UPDATE sessions SET ended_at = ?, handoff_notes = ? WHERE id = ?
		`, now, notes, current.ID); err != nil {
			return wrapDBError("end session", err)
		}

		current.EndedAt = &now
		current.HandoffNotes = notes
		sess = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SetSessionIssue records which issue the active session is focused on.
// Fails with ErrNotFound when no session is active or the issue is absent.
func (s *Store) SetSessionIssue(ctx context.Context, issueID int64) error {
	return s.runInTx(ctx, func(conn *sql.Conn) error {
		exists, err := issueExists(ctx, conn, issueID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("issue #%d: %w", issueID, storage.ErrNotFound)
		}

		result, err := conn.ExecContext(ctx, `
			UPDATE sessions SET active_issue_id = ? WHERE ended_at IS NULL
		`, issueID)
		if err != nil {
			return wrapDBError("set session issue", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("no active session: %w", storage.ErrNotFound)
		}
		return nil
	})
}

const timeEntryColumns = `id, issue_id, started_at, ended_at, duration_seconds`

func scanTimeEntry(row rowScanner) (*types.TimeEntry, error) {
	var entry types.TimeEntry
	var ended sql.NullTime
	var duration sql.NullInt64
	err := row.Scan(&entry.ID, &entry.IssueID, &entry.StartedAt, &ended, &duration)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		entry.EndedAt = &t
	}
	if duration.Valid {
		entry.DurationSeconds = duration.Int64
	}
	return &entry, nil
}

// ActiveTimer returns the running time entry, or nil when no timer runs.
func (s *Store) ActiveTimer(ctx context.Context) (*types.TimeEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+timeEntryColumns+` FROM time_entries WHERE ended_at IS NULL
	`)
	entry, err := scanTimeEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError("query active timer", err)
	}
	return entry, nil
}

// StartTimer begins tracking time against an issue. A timer already running
// against another issue is stopped first, so only one timer ever runs.
func (s *Store) StartTimer(ctx context.Context, issueID int64) (*types.TimeEntry, error) {
	var entry *types.TimeEntry
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		exists, err := issueExists(ctx, conn, issueID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("issue #%d: %w", issueID, storage.ErrNotFound)
		}

		now := time.Now().UTC()
		if err := stopRunningTimer(ctx, conn, now); err != nil {
			return err
		}

		result, err := conn.ExecContext(ctx, `
			INSERT INTO time_entries (issue_id, started_at) VALUES (?, ?)
		`, issueID, now)
		if err != nil {
			return wrapDBError("start timer", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get time entry id: %w", err)
		}
		entry = &types.TimeEntry{ID: id, IssueID: issueID, StartedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// StopTimer stops the running timer and returns the finished entry with its
// duration stamped. Returns nil without error when no timer is running.
func (s *Store) StopTimer(ctx context.Context) (*types.TimeEntry, error) {
	var entry *types.TimeEntry
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT `+timeEntryColumns+` FROM time_entries WHERE ended_at IS NULL
		`)
		running, err := scanTimeEntry(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return wrapDBError("query active timer", err)
		}

		now := time.Now().UTC()
		seconds := int64(now.Sub(running.StartedAt).Seconds())
		if seconds < 0 {
			seconds = 0
		}
		if _, err := conn.ExecContext(ctx, `
			UPDATE time_entries SET ended_at = ?, duration_seconds = ? WHERE id = ?
		`, now, seconds, running.ID); err != nil {
			return wrapDBError("stop timer", err)
		}

		running.EndedAt = &now
		running.DurationSeconds = seconds
		entry = running
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// stopRunningTimer finishes any open time entry as of now. Safe to call
// when no timer is running.
func stopRunningTimer(ctx context.Context, conn *sql.Conn, now time.Time) error {
	_, err := conn.ExecContext(ctx, `
		UPDATE time_entries
		SET ended_at = ?,
		    duration_seconds = CAST(MAX(0, strftime('%s', ?) - strftime('%s', started_at)) AS INTEGER)
		WHERE ended_at IS NULL
	`, now, now)
	if err != nil {
		return wrapDBError("stop running timer", err)
	}
	return nil
}

// TotalTime sums tracked time for an issue. A running timer counts up to
// now.
func (s *Store) TotalTime(ctx context.Context, issueID int64) (time.Duration, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)
	`, issueID).Scan(&exists)
	if err != nil {
		return 0, wrapDBError("check issue", err)
	}
	if !exists {
		return 0, fmt.Errorf("issue #%d: %w", issueID, storage.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT started_at, ended_at, duration_seconds FROM time_entries WHERE issue_id = ?
	`, issueID)
	if err != nil {
		return 0, wrapDBError("query time entries", err)
	}
	defer func() { _ = rows.Close() }()

	var total time.Duration
	now := time.Now().UTC()
	for rows.Next() {
		var started time.Time
		var ended sql.NullTime
		var seconds sql.NullInt64
		if err := rows.Scan(&started, &ended, &seconds); err != nil {
			return 0, err
		}
		switch {
		case seconds.Valid:
			total += time.Duration(seconds.Int64) * time.Second
		case !ended.Valid:
			if d := now.Sub(started); d > 0 {
				total += d
			}
		}
	}
	return total, rows.Err()
}
