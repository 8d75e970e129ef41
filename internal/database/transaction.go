package database

import (
	"database/sql"
	"fmt"

	"github.com/trellis-notes/trellis/internal/logger"
)

// EntityChange records one entity mutated inside a transaction.
type EntityChange struct {
	EntityName string // "notes", "branches" or "attributes"
	EntityID   string
}

// Tx is the explicit transaction context threaded through the persistence
// API. DB.Transaction owns the real SQL transaction; nested work runs under
// named savepoints through Tx.Transaction, so a nested failure rolls back
// to its savepoint without touching the outer transaction.
type Tx struct {
	db      *DB
	tx      *sql.Tx
	depth   int
	changes []EntityChange
}

// Transaction runs fn inside a new transaction, serialized against every
// other writer on writeMu. Nesting is never inferred from shared state:
// code already holding a *Tx must call its Transaction method, so a
// concurrent caller can only block here, never join a stranger's
// transaction.
func (db *DB) Transaction(fn func(tx *Tx) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	sqlTx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Tx{db: db, tx: sqlTx}

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			logger.Error("Rollback failed: %v", rbErr)
		}
		// The in-memory graph may already reflect mutations this
		// rollback undid; the hook triggers a full reload. Recorded
		// entity changes are discarded with the transaction.
		tx.changes = nil
		if db.onRollback != nil {
			db.onRollback()
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		tx.changes = nil
		if db.onRollback != nil {
			db.onRollback()
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if db.onCommit != nil && len(tx.changes) > 0 {
		db.onCommit(tx.changes)
	}
	return nil
}

// Transaction runs fn under a savepoint on this open transaction: success
// releases the savepoint, an error rolls back to it, undoing fn's writes
// and discarding its recorded entity changes while the outer transaction
// stays usable.
func (t *Tx) Transaction(fn func(tx *Tx) error) error {
	t.depth++
	name := fmt.Sprintf("sp_%d", t.depth)
	mark := len(t.changes)

	if _, err := t.tx.Exec("SAVEPOINT " + name); err != nil {
		t.depth--
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}

	if err := fn(t); err != nil {
		if _, rbErr := t.tx.Exec("ROLLBACK TO SAVEPOINT " + name); rbErr != nil {
			logger.Error("Rollback to savepoint %s failed: %v", name, rbErr)
		}
		if _, relErr := t.tx.Exec("RELEASE SAVEPOINT " + name); relErr != nil {
			logger.Error("Release of savepoint %s failed: %v", name, relErr)
		}
		// Changes recorded under the savepoint were undone with it.
		t.changes = t.changes[:mark]
		t.depth--
		return err
	}

	if _, err := t.tx.Exec("RELEASE SAVEPOINT " + name); err != nil {
		t.depth--
		return fmt.Errorf("failed to release savepoint %s: %w", name, err)
	}
	t.depth--
	return nil
}

// Exec runs a statement inside the transaction. On a read-only deployment
// mutating statements are logged and dropped with a zero-effect result.
func (t *Tx) Exec(query string, args ...interface{}) (sql.Result, error) {
	if t.db.readOnly && isMutating(query) {
		logger.Warn("Ignoring mutating statement on read-only database: %s", summarizeQuery(query))
		return noopResult{}, nil
	}
	return t.tx.Exec(query, args...)
}

// Query runs a read inside the transaction.
func (t *Tx) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.Query(query, args...)
}

// QueryRow runs a single-row read inside the transaction.
func (t *Tx) QueryRow(query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRow(query, args...)
}

// RecordEntityChange notes a mutated entity id. Recorded ids are delivered
// to the commit hook on success and discarded on rollback.
func (t *Tx) RecordEntityChange(entityName, entityID string) {
	t.changes = append(t.changes, EntityChange{EntityName: entityName, EntityID: entityID})
}
