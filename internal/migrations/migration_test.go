package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupMigrationDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Migrations build on the base schema.
	schema := []string{
		`CREATE TABLE attributes (
			attribute_id TEXT PRIMARY KEY,
			note_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			is_deleted INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE branches (
			branch_id TEXT PRIMARY KEY,
			note_id TEXT NOT NULL,
			parent_note_id TEXT NOT NULL,
			is_deleted INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to create base schema: %v", err)
		}
	}
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var found string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("sqlite_master query failed: %v", err)
	}
	return true
}

func TestRunAppliesAllMigrations(t *testing.T) {
	db := setupMigrationDB(t)
	runner := NewRunner(db)

	if err := runner.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !tableExists(t, db, "note_revisions") {
		t.Error("note_revisions table missing after migrations")
	}

	status, err := runner.MigrationStatus()
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if len(status) == 0 {
		t.Fatal("Expected known migrations")
	}
	for _, s := range status {
		if !s.Applied {
			t.Errorf("Migration %s not applied", s.ID)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := setupMigrationDB(t)
	runner := NewRunner(db)

	if err := runner.Run(); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if err := runner.Run(); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != len(allMigrations()) {
		t.Errorf("schema_migrations rows = %d, want %d", count, len(allMigrations()))
	}
}

func TestUniquePlacementIndexEnforced(t *testing.T) {
	db := setupMigrationDB(t)
	if err := NewRunner(db).Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	insert := `INSERT INTO branches (branch_id, note_id, parent_note_id, is_deleted) VALUES (?, ?, ?, ?)`
	if _, err := db.Exec(insert, "b1", "n1", "p1", 0); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if _, err := db.Exec(insert, "b2", "n1", "p1", 0); err == nil {
		t.Error("Duplicate live placement must violate the unique index")
	}
	// A deleted row does not block re-placement.
	if _, err := db.Exec(insert, "b3", "n1", "p2", 1); err != nil {
		t.Fatalf("Deleted-row insert failed: %v", err)
	}
	if _, err := db.Exec(insert, "b4", "n1", "p2", 0); err != nil {
		t.Errorf("Live placement blocked by deleted row: %v", err)
	}
}

func TestRollbackRevertsMigration(t *testing.T) {
	db := setupMigrationDB(t)
	runner := NewRunner(db)
	if err := runner.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if err := runner.Rollback("001_note_revisions"); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if tableExists(t, db, "note_revisions") {
		t.Error("note_revisions table still present after rollback")
	}

	status, err := runner.MigrationStatus()
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	for _, s := range status {
		if s.ID == "001_note_revisions" && s.Applied {
			t.Error("Rolled-back migration still reported applied")
		}
	}

	// Running again re-applies it.
	if err := runner.Run(); err != nil {
		t.Fatalf("Re-run failed: %v", err)
	}
	if !tableExists(t, db, "note_revisions") {
		t.Error("Re-run did not restore the table")
	}
}

func TestRollbackUnknownMigration(t *testing.T) {
	db := setupMigrationDB(t)
	runner := NewRunner(db)
	if err := runner.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if err := runner.Rollback("999_unknown"); err == nil {
		t.Error("Expected error for unknown migration")
	}
}
