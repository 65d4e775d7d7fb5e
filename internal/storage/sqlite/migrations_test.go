package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pchaganti/ax-chain-link/internal/types"
)

// v1Schema is the shape of databases written before archival, milestones,
// and updated_at existed.
const v1Schema = `
CREATE TABLE issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'open',
    priority TEXT NOT NULL DEFAULT 'medium',
    parent_id INTEGER REFERENCES issues(id),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    closed_at DATETIME
);
`

func TestMigrationsUpgradeOldDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.db")
	ctx := context.Background()

	raw, err := sql.Open("sqlite3", "file:"+path+"?_time_format=sqlite")
	if err != nil {
		t.Fatalf("failed to open raw database: %v", err)
	}
	if _, err := raw.Exec(v1Schema); err != nil {
		t.Fatalf("failed to create v1 schema: %v", err)
	}
	if _, err := raw.Exec(`INSERT INTO issues (title, priority) VALUES ('legacy issue', 'high')`); err != nil {
		t.Fatalf("failed to insert legacy row: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatal(err)
	}

	// Opening through New applies the base schema and all migrations.
	store, err := New(ctx, path)
	if err != nil {
		t.Fatalf("failed to upgrade old database: %v", err)
	}
	defer func() { _ = store.Close() }()

	for _, column := range []string{"archived", "updated_at"} {
		exists, err := columnExists(store.db, "issues", column)
		if err != nil {
			t.Fatal(err)
		}
		if !exists {
			t.Errorf("column %s missing after migration", column)
		}
	}

	// The legacy row survives with migration defaults applied.
	issue, err := store.GetIssue(ctx, 1)
	if err != nil {
		t.Fatalf("legacy issue lost: %v", err)
	}
	if issue.Title != "legacy issue" || issue.Priority != types.PriorityHigh {
		t.Errorf("legacy data mangled: %+v", issue)
	}
	if issue.Archived {
		t.Error("legacy issue should default to unarchived")
	}
	if issue.UpdatedAt.IsZero() {
		t.Error("updated_at not backfilled")
	}

	// New tables from migrations are usable.
	if _, err := store.CreateMilestone(ctx, "v1.0", ""); err != nil {
		t.Errorf("milestones table missing: %v", err)
	}

	// Re-running the whole pipeline is idempotent.
	if err := RunMigrations(store.db); err != nil {
		t.Errorf("migrations not idempotent: %v", err)
	}
}
