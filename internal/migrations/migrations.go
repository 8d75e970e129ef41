package migrations

import (
	"database/sql"
	"fmt"
)

// allMigrations returns all available migrations in order
func allMigrations() []Migration {
	return []Migration{
		{
			ID:          "001_note_revisions",
			Description: "Add note revision snapshots",
			Up:          migration001Up,
			Down:        migration001Down,
		},
		{
			ID:          "002_attribute_value_index",
			Description: "Index attribute (name, value) pairs for search",
			Up:          migration002Up,
			Down:        migration002Down,
		},
		{
			ID:          "003_unique_placement",
			Description: "Enforce at most one live branch per (note, parent) pair",
			Up:          migration003Up,
			Down:        migration003Down,
		},
		// Add new migrations here in chronological order
	}
}

// migration001Up adds the note_revisions table. Updates snapshot the
// previous title and content here before overwriting the note row.
func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS note_revisions (
			revision_id TEXT PRIMARY KEY,
			note_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			utc_date_created TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create note_revisions table: %w", err)
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_note_revisions_note_id ON note_revisions (note_id)`)
	if err != nil {
		return fmt.Errorf("failed to create note_revisions index: %w", err)
	}
	return nil
}

func migration001Down(tx *sql.Tx) error {
	if _, err := tx.Exec("DROP INDEX IF EXISTS idx_note_revisions_note_id"); err != nil {
		return fmt.Errorf("failed to drop note_revisions index: %w", err)
	}
	if _, err := tx.Exec("DROP TABLE IF EXISTS note_revisions"); err != nil {
		return fmt.Errorf("failed to drop note_revisions table: %w", err)
	}
	return nil
}

func migration002Up(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_attributes_name_value ON attributes (name, value)`)
	if err != nil {
		return fmt.Errorf("failed to create attribute value index: %w", err)
	}
	return nil
}

func migration002Down(tx *sql.Tx) error {
	if _, err := tx.Exec("DROP INDEX IF EXISTS idx_attributes_name_value"); err != nil {
		return fmt.Errorf("failed to drop attribute value index: %w", err)
	}
	return nil
}

func migration003Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_placement
		ON branches (note_id, parent_note_id) WHERE is_deleted = 0
	`)
	if err != nil {
		return fmt.Errorf("failed to create placement index: %w", err)
	}
	return nil
}

func migration003Down(tx *sql.Tx) error {
	if _, err := tx.Exec("DROP INDEX IF EXISTS idx_branches_placement"); err != nil {
		return fmt.Errorf("failed to drop placement index: %w", err)
	}
	return nil
}
