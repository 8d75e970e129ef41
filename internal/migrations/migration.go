package migrations

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/trellis-notes/trellis/internal/logger"
)

// Migration is one schema change applied past the base schema.
type Migration struct {
	ID          string                 // Unique identifier (e.g., "001_note_revisions")
	Description string                 // Human-readable description
	Up          func(tx *sql.Tx) error // Migration function
	Down        func(tx *sql.Tx) error // Rollback function (optional)
}

// Runner applies pending migrations in ID order, each inside its own
// transaction, recording them in schema_migrations.
type Runner struct {
	db         *sql.DB
	migrations []Migration
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{
		db:         db,
		migrations: allMigrations(),
	}
}

func (r *Runner) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (r *Runner) appliedMigrations() (map[string]bool, error) {
	rows, err := r.db.Query("SELECT id FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan migration id: %w", err)
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

func (r *Runner) recordMigration(tx *sql.Tx, migration Migration) error {
	_, err := tx.Exec(
		"INSERT INTO schema_migrations (id, description, applied_at) VALUES (?, ?, ?)",
		migration.ID, migration.Description, time.Now().UTC())
	return err
}

// Run applies all pending migrations.
func (r *Runner) Run() error {
	if err := r.createMigrationsTable(); err != nil {
		return err
	}

	applied, err := r.appliedMigrations()
	if err != nil {
		return err
	}

	sort.Slice(r.migrations, func(i, j int) bool {
		return r.migrations[i].ID < r.migrations[j].ID
	})

	pending := 0
	for _, migration := range r.migrations {
		if applied[migration.ID] {
			logger.Debug("Migration %s already applied, skipping", migration.ID)
			continue
		}

		logger.Info("Running migration: %s - %s", migration.ID, migration.Description)

		tx, err := r.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to start transaction for migration %s: %w", migration.ID, err)
		}

		if err := migration.Up(tx); err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				logger.Error("Failed to rollback transaction: %v", rollbackErr)
			}
			return fmt.Errorf("migration %s failed: %w", migration.ID, err)
		}

		if err := r.recordMigration(tx, migration); err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				logger.Error("Failed to rollback transaction: %v", rollbackErr)
			}
			return fmt.Errorf("failed to record migration %s: %w", migration.ID, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", migration.ID, err)
		}

		pending++
	}

	if pending > 0 {
		logger.Info("Applied %d migrations", pending)
	}
	return nil
}

// Status is the applied state of one migration.
type Status struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Applied     bool   `json:"applied"`
}

// MigrationStatus reports the applied state of every known migration.
func (r *Runner) MigrationStatus() ([]Status, error) {
	applied, err := r.appliedMigrations()
	if err != nil {
		return nil, err
	}

	var status []Status
	for _, migration := range r.migrations {
		status = append(status, Status{
			ID:          migration.ID,
			Description: migration.Description,
			Applied:     applied[migration.ID],
		})
	}
	return status, nil
}

// Rollback reverts one applied migration, if it supports rollback.
func (r *Runner) Rollback(migrationID string) error {
	var target *Migration
	for i := range r.migrations {
		if r.migrations[i].ID == migrationID {
			target = &r.migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s not found", migrationID)
	}
	if target.Down == nil {
		return fmt.Errorf("migration %s does not support rollback", migrationID)
	}

	applied, err := r.appliedMigrations()
	if err != nil {
		return err
	}
	if !applied[migrationID] {
		return fmt.Errorf("migration %s is not applied", migrationID)
	}

	logger.Info("Rolling back migration: %s - %s", target.ID, target.Description)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction for rollback %s: %w", migrationID, err)
	}

	if err := target.Down(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			logger.Error("Failed to rollback transaction: %v", rollbackErr)
		}
		return fmt.Errorf("rollback %s failed: %w", migrationID, err)
	}

	if _, err := tx.Exec("DELETE FROM schema_migrations WHERE id = ?", migrationID); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			logger.Error("Failed to rollback transaction: %v", rollbackErr)
		}
		return fmt.Errorf("failed to remove migration record %s: %w", migrationID, err)
	}

	return tx.Commit()
}
