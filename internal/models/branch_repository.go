package models

import (
	"database/sql"
	"errors"
	"fmt"

	interrors "github.com/trellis-notes/trellis/internal/errors"
	"github.com/trellis-notes/trellis/internal/database"
)

type BranchRepository struct {
	db *database.DB
}

func NewBranchRepository(db *database.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

const branchColumns = `branch_id, note_id, parent_note_id, prefix, note_position, is_deleted, utc_date_modified`

func scanBranch(row interface{ Scan(...interface{}) error }) (*Branch, error) {
	var b Branch
	err := row.Scan(&b.BranchID, &b.NoteID, &b.ParentNoteID, &b.Prefix,
		&b.NotePosition, &b.IsDeleted, &b.UTCDateModified)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a branch edge (parentNoteId, noteId). Cycle validation is
// the caller's responsibility; it must happen before this runs.
func (r *BranchRepository) Create(tx *database.Tx, noteID, parentNoteID, prefix string, position int) (*Branch, error) {
	branch := &Branch{
		BranchID:        NewEntityID(),
		NoteID:          noteID,
		ParentNoteID:    parentNoteID,
		Prefix:          prefix,
		NotePosition:    position,
		UTCDateModified: NowUTC(),
	}

	_, err := tx.Exec(`
		INSERT INTO branches (branch_id, note_id, parent_note_id, prefix, note_position, is_deleted, utc_date_modified)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		branch.BranchID, branch.NoteID, branch.ParentNoteID, branch.Prefix,
		branch.NotePosition, branch.UTCDateModified,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create branch: %w", err)
	}
	tx.RecordEntityChange("branches", branch.BranchID)
	return branch, nil
}

// GetByID loads a branch row.
func (r *BranchRepository) GetByID(branchID string) (*Branch, error) {
	branch, err := scanBranch(r.db.QueryRow(
		"SELECT "+branchColumns+" FROM branches WHERE branch_id = ?", branchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrBranchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return branch, nil
}

// LoadAll returns every non-deleted branch. Used by the entity graph loader.
func (r *BranchRepository) LoadAll() ([]*Branch, error) {
	rows, err := r.db.Query("SELECT " + branchColumns + " FROM branches WHERE is_deleted = 0")
	if err != nil {
		return nil, fmt.Errorf("failed to load branches: %w", err)
	}
	defer rows.Close()

	var branches []*Branch
	for rows.Next() {
		branch, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, branch)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return branches, nil
}

// Move repoints a branch at a new parent. Cycle validation happens before
// this is called.
func (r *BranchRepository) Move(tx *database.Tx, branchID, newParentNoteID string) error {
	result, err := tx.Exec(
		"UPDATE branches SET parent_note_id = ?, utc_date_modified = ? WHERE branch_id = ? AND is_deleted = 0",
		newParentNoteID, NowUTC(), branchID,
	)
	if err != nil {
		return fmt.Errorf("failed to move branch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 && !r.db.IsReadOnly() {
		return interrors.ErrBranchNotFound
	}
	tx.RecordEntityChange("branches", branchID)
	return nil
}

// SoftDelete marks a branch deleted.
func (r *BranchRepository) SoftDelete(tx *database.Tx, branchID string) error {
	result, err := tx.Exec(
		"UPDATE branches SET is_deleted = 1, utc_date_modified = ? WHERE branch_id = ? AND is_deleted = 0",
		NowUTC(), branchID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 && !r.db.IsReadOnly() {
		return interrors.ErrBranchNotFound
	}
	tx.RecordEntityChange("branches", branchID)
	return nil
}
