package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/trellis-notes/trellis/internal/config"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	tempDir := t.TempDir()

	cfg := &config.Config{
		DataDirectory: tempDir,
		DatabasePath:  filepath.Join(tempDir, "test.db"),
	}
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewCreatesDatabaseFile(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "test.db")

	cfg := &config.Config{DataDirectory: tempDir, DatabasePath: dbPath}
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Database file not created: %v", err)
	}
}

func TestSchemaTablesExist(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{"notes", "branches", "attributes", "note_revisions", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("Table %s missing: %v", table, err)
		}
	}
}

func TestRootNoteSeeded(t *testing.T) {
	db := setupTestDB(t)

	var title string
	err := db.QueryRow("SELECT title FROM notes WHERE note_id = 'root'").Scan(&title)
	if err != nil {
		t.Fatalf("Root note missing: %v", err)
	}
	if title != "root" {
		t.Errorf("Root title = %q", title)
	}

	// Reopening must not duplicate the seed.
	db.Close()
	db2 := setupTestDBAt(t, db.cfg)
	defer db2.Close()
	var count int
	if err := db2.QueryRow("SELECT COUNT(*) FROM notes WHERE note_id = 'root'").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Root seeded %d times", count)
	}
}

func setupTestDBAt(t *testing.T, cfg *config.Config) *DB {
	t.Helper()
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	return db
}

func TestMigrationsApplied(t *testing.T) {
	db := setupTestDB(t)

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("schema_migrations query failed: %v", err)
	}
	if count == 0 {
		t.Error("Expected applied migrations recorded")
	}

	// Migrations are idempotent across reopen.
	db.Close()
	db2 := setupTestDBAt(t, db.cfg)
	defer db2.Close()
	var count2 int
	if err := db2.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count2); err != nil {
		t.Fatalf("schema_migrations query failed: %v", err)
	}
	if count2 != count {
		t.Errorf("Migration count changed across reopen: %d -> %d", count, count2)
	}
}

func TestTransactionCommitDeliversChanges(t *testing.T) {
	db := setupTestDB(t)

	var delivered []EntityChange
	db.OnCommit(func(changes []EntityChange) { delivered = changes })

	err := db.Transaction(func(tx *Tx) error {
		_, err := tx.Exec(`
			INSERT INTO notes (note_id, title, date_created, date_modified, utc_date_created, utc_date_modified)
			VALUES ('n1', 'Test', datetime('now'), datetime('now'), datetime('now'), datetime('now'))`)
		if err != nil {
			return err
		}
		tx.RecordEntityChange("notes", "n1")
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	if len(delivered) != 1 || delivered[0].EntityName != "notes" || delivered[0].EntityID != "n1" {
		t.Errorf("Unexpected delivered changes: %v", delivered)
	}
}

func TestTransactionRollback(t *testing.T) {
	db := setupTestDB(t)

	rolledBack := false
	db.OnRollback(func() { rolledBack = true })
	db.OnCommit(func(changes []EntityChange) {
		t.Error("Commit hook must not fire for a failed transaction")
	})

	err := db.Transaction(func(tx *Tx) error {
		_, err := tx.Exec(`
			INSERT INTO notes (note_id, title, date_created, date_modified, utc_date_created, utc_date_modified)
			VALUES ('doomed', 'Doomed', datetime('now'), datetime('now'), datetime('now'), datetime('now'))`)
		if err != nil {
			return err
		}
		tx.RecordEntityChange("notes", "doomed")
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatal("Expected transaction error")
	}
	if !rolledBack {
		t.Error("Rollback hook did not fire")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM notes WHERE note_id = 'doomed'").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Error("Rolled-back insert persisted")
	}
}

func TestNestedTransactionPartialRollback(t *testing.T) {
	db := setupTestDB(t)

	var delivered []EntityChange
	db.OnCommit(func(changes []EntityChange) { delivered = changes })

	insert := func(tx *Tx, id string) error {
		_, err := tx.Exec(`
			INSERT INTO notes (note_id, title, date_created, date_modified, utc_date_created, utc_date_modified)
			VALUES (?, 'Nested', datetime('now'), datetime('now'), datetime('now'), datetime('now'))`, id)
		if err != nil {
			return err
		}
		tx.RecordEntityChange("notes", id)
		return nil
	}

	err := db.Transaction(func(tx *Tx) error {
		if err := insert(tx, "outer"); err != nil {
			return err
		}
		// Failed inner work rolls back to its savepoint only.
		nestedErr := tx.Transaction(func(tx *Tx) error {
			if err := insert(tx, "inner"); err != nil {
				return err
			}
			return fmt.Errorf("inner failure")
		})
		if nestedErr == nil {
			return fmt.Errorf("expected nested error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Outer transaction failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM notes WHERE note_id = 'outer'").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Error("Outer insert lost")
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM notes WHERE note_id = 'inner'").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Error("Savepoint rollback did not undo the inner insert")
	}

	if len(delivered) != 1 || delivered[0].EntityID != "outer" {
		t.Errorf("Expected only the outer change delivered, got %v", delivered)
	}
}

func TestConcurrentTransactionsStayIsolated(t *testing.T) {
	db := setupTestDB(t)

	var mu sync.Mutex
	var deliveries [][]EntityChange
	db.OnCommit(func(changes []EntityChange) {
		mu.Lock()
		deliveries = append(deliveries, changes)
		mu.Unlock()
	})

	// Concurrent writers must serialize on the outer transaction; a
	// caller arriving while another goroutine's transaction is open
	// blocks rather than joining it, so every commit delivers exactly
	// its own change.
	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conc%d", i)
			err := db.Transaction(func(tx *Tx) error {
				_, err := tx.Exec(`
					INSERT INTO notes (note_id, title, date_created, date_modified, utc_date_created, utc_date_modified)
					VALUES (?, 'Concurrent', datetime('now'), datetime('now'), datetime('now'), datetime('now'))`, id)
				if err != nil {
					return err
				}
				tx.RecordEntityChange("notes", id)
				return nil
			})
			if err != nil {
				t.Errorf("Transaction %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if len(deliveries) != writers {
		t.Fatalf("Commit deliveries = %d, want %d", len(deliveries), writers)
	}
	for _, changes := range deliveries {
		if len(changes) != 1 {
			t.Errorf("Delivery mixed changes from multiple transactions: %v", changes)
		}
	}
}

func TestReadOnlyDropsMutations(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		DataDirectory: tempDir,
		DatabasePath:  filepath.Join(tempDir, "test.db"),
	}

	// Initialize the schema with a writable handle first.
	rw, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rw.Close()

	roCfg := *cfg
	roCfg.ReadOnly = true
	db, err := New(&roCfg)
	if err != nil {
		t.Fatalf("Read-only New failed: %v", err)
	}
	defer db.Close()

	if !db.IsReadOnly() {
		t.Fatal("Expected read-only handle")
	}

	res, err := db.Exec(`
		INSERT INTO notes (note_id, title, date_created, date_modified, utc_date_created, utc_date_modified)
		VALUES ('ro', 'RO', datetime('now'), datetime('now'), datetime('now'), datetime('now'))`)
	if err != nil {
		t.Fatalf("Exec returned error instead of no-op: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 0 {
		t.Error("Read-only mutation affected rows")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM notes WHERE note_id = 'ro'").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Error("Read-only insert persisted")
	}

	// Selects still work.
	if err := db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&count); err != nil {
		t.Errorf("Read failed on read-only handle: %v", err)
	}
}

func TestPreparedStatementCache(t *testing.T) {
	db := setupTestDB(t)

	first, err := db.Prepare("SELECT COUNT(*) FROM notes")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	second, err := db.Prepare("SELECT COUNT(*) FROM notes")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if first != second {
		t.Error("Identical query text must reuse the cached statement")
	}
}
