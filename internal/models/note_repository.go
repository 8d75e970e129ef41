package models

import (
	"database/sql"
	"errors"
	"fmt"

	interrors "github.com/trellis-notes/trellis/internal/errors"
	"github.com/trellis-notes/trellis/internal/database"
)

type NoteRepository struct {
	db *database.DB
}

func NewNoteRepository(db *database.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteColumns = `note_id, title, type, mime, content, is_protected, is_deleted,
	date_created, date_modified, utc_date_created, utc_date_modified`

func scanNote(row interface{ Scan(...interface{}) error }) (*Note, error) {
	var n Note
	err := row.Scan(&n.NoteID, &n.Title, &n.Type, &n.Mime, &n.Content,
		&n.IsProtected, &n.IsDeleted,
		&n.DateCreated, &n.DateModified, &n.UTCDateCreated, &n.UTCDateModified)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create inserts a new note row inside tx and records the entity change.
func (r *NoteRepository) Create(tx *database.Tx, title, noteType, mime, content string) (*Note, error) {
	if title == "" {
		return nil, interrors.ErrEmptyTitle
	}
	if noteType == "" {
		noteType = "text"
	}
	if mime == "" {
		mime = "text/html"
	}

	note := &Note{
		NoteID:          NewEntityID(),
		Title:           title,
		Type:            noteType,
		Mime:            mime,
		Content:         content,
		DateCreated:     NowLocal(),
		DateModified:    NowLocal(),
		UTCDateCreated:  NowUTC(),
		UTCDateModified: NowUTC(),
	}

	_, err := tx.Exec(`
		INSERT INTO notes (note_id, title, type, mime, content, is_protected, is_deleted,
			date_created, date_modified, utc_date_created, utc_date_modified)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?)`,
		note.NoteID, note.Title, note.Type, note.Mime, note.Content,
		note.DateCreated, note.DateModified, note.UTCDateCreated, note.UTCDateModified,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	tx.RecordEntityChange("notes", note.NoteID)

	return note, nil
}

// GetByID loads a note row by its noteId.
func (r *NoteRepository) GetByID(noteID string) (*Note, error) {
	note, err := scanNote(r.db.QueryRow(
		"SELECT "+noteColumns+" FROM notes WHERE note_id = ?", noteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// LoadAll returns every non-deleted note. Used by the entity graph loader.
func (r *NoteRepository) LoadAll() ([]*Note, error) {
	rows, err := r.db.Query("SELECT " + noteColumns + " FROM notes WHERE is_deleted = 0")
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return notes, nil
}

// getForUpdate reads the current row through the transaction. The pool is
// capped at one connection, which the open transaction holds, so reading
// via r.db here would block until the transaction released it.
func (r *NoteRepository) getForUpdate(tx *database.Tx, noteID string) (*Note, error) {
	note, err := scanNote(tx.QueryRow(
		"SELECT "+noteColumns+" FROM notes WHERE note_id = ?", noteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// Update rewrites title and content, snapshotting the previous state as a
// revision first.
func (r *NoteRepository) Update(tx *database.Tx, note *Note) error {
	prev, err := r.getForUpdate(tx, note.NoteID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO note_revisions (revision_id, note_id, title, content, utc_date_created)
		VALUES (?, ?, ?, ?, ?)`,
		NewEntityID(), prev.NoteID, prev.Title, prev.Content, NowUTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to snapshot revision: %w", err)
	}

	note.DateModified = NowLocal()
	note.UTCDateModified = NowUTC()
	_, err = tx.Exec(`
		UPDATE notes SET title = ?, content = ?, mime = ?, is_protected = ?,
			date_modified = ?, utc_date_modified = ?
		WHERE note_id = ?`,
		note.Title, note.Content, note.Mime, note.IsProtected,
		note.DateModified, note.UTCDateModified, note.NoteID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	tx.RecordEntityChange("notes", note.NoteID)
	return nil
}

// SoftDelete marks the note deleted; the row is reclaimed later.
func (r *NoteRepository) SoftDelete(tx *database.Tx, noteID string) error {
	result, err := tx.Exec(
		"UPDATE notes SET is_deleted = 1, utc_date_modified = ? WHERE note_id = ? AND is_deleted = 0",
		NowUTC(), noteID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 && !r.db.IsReadOnly() {
		return interrors.ErrNoteNotFound
	}
	tx.RecordEntityChange("notes", noteID)
	return nil
}

// RevisionCounts returns the number of revisions per note.
func (r *NoteRepository) RevisionCounts() (map[string]int, error) {
	rows, err := r.db.Query("SELECT note_id, COUNT(*) FROM note_revisions GROUP BY note_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count revisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var noteID string
		var count int
		if err := rows.Scan(&noteID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan revision count: %w", err)
		}
		counts[noteID] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return counts, nil
}
