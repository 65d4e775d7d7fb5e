package sqlite

import (
	"database/sql"
	"fmt"
)

// migration is one schema upgrade step. Each function must be idempotent:
// it probes the live schema and only applies what is missing, so databases
// created at any prior version converge on the current schema without data
// loss.
type migration struct {
	name string
	fn   func(db *sql.DB) error
}

var migrations = []migration{
	{"002_archived_column", migrateArchivedColumn},
	{"003_milestones", migrateMilestones},
	{"004_updated_at_backfill", migrateUpdatedAtBackfill},
}

// RunMigrations applies all pending migrations in order.
func RunMigrations(db *sql.DB) error {
	for _, m := range migrations {
		if err := m.fn(db); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

// columnExists probes PRAGMA table_info for a named column.
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table)) // #nosec G201 - table names are compile-time constants
	if err != nil {
		return false, fmt.Errorf("failed to check schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var cid int
		var name, typ string
		var notnull, pk int
		var dflt *string
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("failed to scan column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// migrateArchivedColumn adds the archived flag to issues.
// Databases from before archival support default every issue to unarchived.
func migrateArchivedColumn(db *sql.DB) error {
	exists, err := columnExists(db, "issues", "archived")
	if err != nil {
		return err
	}
	if !exists {
		if _, err := db.Exec(`ALTER TABLE issues ADD COLUMN archived INTEGER NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("failed to add archived column: %w", err)
		}
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_issues_archived ON issues(archived)`)
	return err
}

// migrateMilestones creates the milestone tables.
func migrateMilestones(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS milestones (
		    id INTEGER PRIMARY KEY AUTOINCREMENT,
		    name TEXT NOT NULL CHECK(length(name) > 0 AND length(name) <= 500),
		    description TEXT NOT NULL DEFAULT '',
		    status TEXT NOT NULL DEFAULT 'open' CHECK(status IN ('open', 'closed')),
		    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		    closed_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS milestone_issues (
		    milestone_id INTEGER NOT NULL,
		    issue_id INTEGER NOT NULL,
		    PRIMARY KEY (milestone_id, issue_id),
		    FOREIGN KEY (milestone_id) REFERENCES milestones(id) ON DELETE CASCADE,
		    FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_milestone_issues_issue ON milestone_issues(issue_id);
	`)
	return err
}

// migrateUpdatedAtBackfill adds updated_at to databases from before the
// column existed and fills it from created_at. ALTER TABLE cannot add a
// column with a CURRENT_TIMESTAMP default, so the column arrives nullable
// and writers stamp it explicitly.
func migrateUpdatedAtBackfill(db *sql.DB) error {
	exists, err := columnExists(db, "issues", "updated_at")
	if err != nil {
		return err
	}
	if !exists {
		if _, err := db.Exec(`ALTER TABLE issues ADD COLUMN updated_at DATETIME`); err != nil {
			return fmt.Errorf("failed to add updated_at column: %w", err)
		}
	}
	_, err = db.Exec(`UPDATE issues SET updated_at = created_at WHERE updated_at IS NULL`)
	return err
}
