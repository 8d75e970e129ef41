package models

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/trellis-notes/trellis/internal/config"
	"github.com/trellis-notes/trellis/internal/database"
	interrors "github.com/trellis-notes/trellis/internal/errors"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	tempDir := t.TempDir()

	cfg := &config.Config{
		DataDirectory: tempDir,
		DatabasePath:  filepath.Join(tempDir, "test.db"),
	}
	db, err := database.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestNote(t *testing.T, db *database.DB, title string) *Note {
	t.Helper()
	repo := NewNoteRepository(db)
	var note *Note
	err := db.Transaction(func(tx *database.Tx) error {
		var err error
		note, err = repo.Create(tx, title, "text", "text/html", "content of "+title)
		return err
	})
	if err != nil {
		t.Fatalf("Failed to create note: %v", err)
	}
	return note
}

func TestNoteCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepository(db)
	note := createTestNote(t, db, "Hello")

	if len(note.NoteID) != 12 {
		t.Errorf("NoteID length = %d, want 12", len(note.NoteID))
	}

	loaded, err := repo.GetByID(note.NoteID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded.Title != "Hello" || loaded.Content != "content of Hello" {
		t.Errorf("Loaded note mismatch: %+v", loaded)
	}
	if loaded.Type != "text" || loaded.Mime != "text/html" {
		t.Errorf("Defaults not applied: type=%s mime=%s", loaded.Type, loaded.Mime)
	}
}

func TestNoteCreateRejectsEmptyTitle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepository(db)

	err := db.Transaction(func(tx *database.Tx) error {
		_, err := repo.Create(tx, "", "text", "text/html", "")
		return err
	})
	if !errors.Is(err, interrors.ErrEmptyTitle) {
		t.Errorf("Expected ErrEmptyTitle, got %v", err)
	}
}

func TestNoteGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepository(db)

	_, err := repo.GetByID("nonexistent1")
	if !errors.Is(err, interrors.ErrNoteNotFound) {
		t.Errorf("Expected ErrNoteNotFound, got %v", err)
	}
}

func TestNoteUpdateSnapshotsRevision(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepository(db)
	note := createTestNote(t, db, "Draft")

	note.Title = "Final"
	note.Content = "revised"
	err := db.Transaction(func(tx *database.Tx) error {
		return repo.Update(tx, note)
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	loaded, err := repo.GetByID(note.NoteID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded.Title != "Final" || loaded.Content != "revised" {
		t.Errorf("Update not applied: %+v", loaded)
	}

	counts, err := repo.RevisionCounts()
	if err != nil {
		t.Fatalf("RevisionCounts failed: %v", err)
	}
	if counts[note.NoteID] != 1 {
		t.Errorf("Revision count = %d, want 1", counts[note.NoteID])
	}

	// The snapshot holds the pre-update state.
	var title, content string
	err = db.QueryRow(
		"SELECT title, content FROM note_revisions WHERE note_id = ?", note.NoteID,
	).Scan(&title, &content)
	if err != nil {
		t.Fatalf("Revision row missing: %v", err)
	}
	if title != "Draft" || content != "content of Draft" {
		t.Errorf("Revision holds %q/%q, want pre-update state", title, content)
	}
}

func TestNoteUpdateReadsThroughTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepository(db)
	note := createTestNote(t, db, "Chain")

	// The snapshot read must use the open transaction's connection; with
	// the pool capped at one connection a pool read would never return.
	// Two updates in one transaction exercise that read twice.
	err := db.Transaction(func(tx *database.Tx) error {
		note.Content = "second"
		if err := repo.Update(tx, note); err != nil {
			return err
		}
		note.Content = "third"
		return repo.Update(tx, note)
	})
	if err != nil {
		t.Fatalf("Update chain failed: %v", err)
	}

	counts, err := repo.RevisionCounts()
	if err != nil {
		t.Fatalf("RevisionCounts failed: %v", err)
	}
	if counts[note.NoteID] != 2 {
		t.Errorf("Revision count = %d, want 2", counts[note.NoteID])
	}

	// The second snapshot captured the first update's state, proving the
	// in-transaction read saw uncommitted rows.
	var contents []string
	rows, err := db.Query("SELECT content FROM note_revisions WHERE note_id = ? ORDER BY utc_date_created, content", note.NoteID)
	if err != nil {
		t.Fatalf("Revision query failed: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		contents = append(contents, c)
	}
	want := map[string]bool{"content of Chain": true, "second": true}
	for _, c := range contents {
		if !want[c] {
			t.Errorf("Unexpected revision content %q", c)
		}
	}
}

func TestNoteSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoteRepository(db)
	note := createTestNote(t, db, "Short Lived")

	err := db.Transaction(func(tx *database.Tx) error {
		return repo.SoftDelete(tx, note.NoteID)
	})
	if err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	loaded, err := repo.GetByID(note.NoteID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !loaded.IsDeleted {
		t.Error("Note not marked deleted")
	}

	// Deleting twice surfaces not-found.
	err = db.Transaction(func(tx *database.Tx) error {
		return repo.SoftDelete(tx, note.NoteID)
	})
	if !errors.Is(err, interrors.ErrNoteNotFound) {
		t.Errorf("Expected ErrNoteNotFound on double delete, got %v", err)
	}

	// Deleted notes stay out of LoadAll.
	notes, err := repo.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	for _, n := range notes {
		if n.NoteID == note.NoteID {
			t.Error("Deleted note returned by LoadAll")
		}
	}
}

func TestBranchMoveAndDelete(t *testing.T) {
	db := setupTestDB(t)
	branches := NewBranchRepository(db)
	a := createTestNote(t, db, "A")
	b := createTestNote(t, db, "B")

	var branch *Branch
	err := db.Transaction(func(tx *database.Tx) error {
		var err error
		branch, err = branches.Create(tx, b.NoteID, a.NoteID, "", 10)
		return err
	})
	if err != nil {
		t.Fatalf("Branch create failed: %v", err)
	}

	err = db.Transaction(func(tx *database.Tx) error {
		return branches.Move(tx, branch.BranchID, "root")
	})
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	moved, err := branches.GetByID(branch.BranchID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if moved.ParentNoteID != "root" {
		t.Errorf("ParentNoteID = %s after move", moved.ParentNoteID)
	}

	err = db.Transaction(func(tx *database.Tx) error {
		return branches.SoftDelete(tx, branch.BranchID)
	})
	if err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	err = db.Transaction(func(tx *database.Tx) error {
		return branches.Move(tx, branch.BranchID, a.NoteID)
	})
	if !errors.Is(err, interrors.ErrBranchNotFound) {
		t.Errorf("Expected ErrBranchNotFound moving a deleted branch, got %v", err)
	}
}

func TestAttributeTypeValidation(t *testing.T) {
	db := setupTestDB(t)
	attrs := NewAttributeRepository(db)
	note := createTestNote(t, db, "Owner")

	err := db.Transaction(func(tx *database.Tx) error {
		_, err := attrs.Create(tx, note.NoteID, "bookmark", "name", "", false, 0)
		return err
	})
	if err == nil {
		t.Error("Expected error for unknown attribute type")
	}

	for _, attrType := range []string{AttributeLabel, AttributeRelation} {
		err := db.Transaction(func(tx *database.Tx) error {
			_, err := attrs.Create(tx, note.NoteID, attrType, "name", "value", false, 0)
			return err
		})
		if err != nil {
			t.Errorf("Create %s failed: %v", attrType, err)
		}
	}
}

func TestAttributeUpdateValue(t *testing.T) {
	db := setupTestDB(t)
	attrs := NewAttributeRepository(db)
	note := createTestNote(t, db, "Owner")

	var attr *Attribute
	err := db.Transaction(func(tx *database.Tx) error {
		var err error
		attr, err = attrs.Create(tx, note.NoteID, AttributeLabel, "status", "draft", false, 0)
		return err
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err = db.Transaction(func(tx *database.Tx) error {
		return attrs.UpdateValue(tx, attr.AttributeID, "published")
	})
	if err != nil {
		t.Fatalf("UpdateValue failed: %v", err)
	}

	loaded, err := attrs.GetByID(attr.AttributeID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded.Value != "published" {
		t.Errorf("Value = %q", loaded.Value)
	}

	err = db.Transaction(func(tx *database.Tx) error {
		return attrs.UpdateValue(tx, "missing000001", "x")
	})
	if !errors.Is(err, interrors.ErrAttributeNotFound) {
		t.Errorf("Expected ErrAttributeNotFound, got %v", err)
	}
}

func TestAttributeAccessors(t *testing.T) {
	label := &Attribute{Type: AttributeLabel, Value: "fantasy"}
	if v, ok := label.LabelValue(); !ok || v != "fantasy" {
		t.Errorf("LabelValue = %q, %v", v, ok)
	}
	if _, ok := label.TargetNoteID(); ok {
		t.Error("Label must not expose a relation target")
	}

	rel := &Attribute{Type: AttributeRelation, Value: "abc123def456"}
	if v, ok := rel.TargetNoteID(); !ok || v != "abc123def456" {
		t.Errorf("TargetNoteID = %q, %v", v, ok)
	}
	if _, ok := rel.LabelValue(); ok {
		t.Error("Relation must not expose a label value")
	}
}
