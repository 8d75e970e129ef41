package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/trellis-notes/trellis/internal/config"
	"github.com/trellis-notes/trellis/internal/logger"
	"github.com/trellis-notes/trellis/internal/migrations"
)

type DB struct {
	conn     *sql.DB
	cfg      *config.Config
	readOnly bool

	stmtMu sync.Mutex
	stmts  map[string]*sql.Stmt

	// Single logical writer: all mutations run inside Transaction, which
	// holds writeMu for the duration of the outer transaction.
	writeMu sync.Mutex

	onCommit   func(changes []EntityChange)
	onRollback func()
}

func New(cfg *config.Config) (*DB, error) {
	dbDir := filepath.Dir(cfg.GetDatabasePath())
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	logger.Debug("Database path: %s", cfg.GetDatabasePath())

	conn, err := sql.Open("sqlite3", cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; one connection keeps savepoint nesting
	// on a single logical call stack.
	conn.SetMaxOpenConns(1)

	db := &DB{
		conn:     conn,
		cfg:      cfg,
		readOnly: cfg.ReadOnly,
		stmts:    make(map[string]*sql.Stmt),
	}
	if err := db.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

func (db *DB) initialize() error {
	// WAL keeps the database readable while a transaction writes.
	var journalMode string
	if err := db.conn.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	logger.Debug("Journal mode: %s", journalMode)

	if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if db.readOnly {
		logger.Info("Database opened in read-only mode; mutations will be rejected")
		return nil
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			note_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'text',
			mime TEXT NOT NULL DEFAULT 'text/html',
			content TEXT NOT NULL DEFAULT '',
			is_protected INTEGER NOT NULL DEFAULT 0,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			date_created TEXT NOT NULL,
			date_modified TEXT NOT NULL,
			utc_date_created TEXT NOT NULL,
			utc_date_modified TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS branches (
			branch_id TEXT PRIMARY KEY,
			note_id TEXT NOT NULL,
			parent_note_id TEXT NOT NULL,
			prefix TEXT NOT NULL DEFAULT '',
			note_position INTEGER NOT NULL DEFAULT 0,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			utc_date_modified TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attributes (
			attribute_id TEXT PRIMARY KEY,
			note_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('label', 'relation')),
			name TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			is_inheritable INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			utc_date_modified TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_branches_note_id ON branches (note_id)`,
		`CREATE INDEX IF NOT EXISTS idx_branches_parent_note_id ON branches (parent_note_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attributes_note_id ON attributes (note_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attributes_name ON attributes (name)`,
	}
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	// The root note anchors every note path.
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO notes
			(note_id, title, type, mime, date_created, date_modified, utc_date_created, utc_date_modified)
		VALUES ('root', 'root', 'text', 'text/html',
			datetime('now', 'localtime'), datetime('now', 'localtime'),
			datetime('now'), datetime('now'))
	`)
	if err != nil {
		return fmt.Errorf("failed to seed root note: %w", err)
	}

	return migrations.NewRunner(db.conn).Run()
}

// Prepare returns a cached prepared statement for the exact query text,
// preparing and caching it on first use.
func (db *DB) Prepare(query string) (*sql.Stmt, error) {
	db.stmtMu.Lock()
	defer db.stmtMu.Unlock()

	if stmt, ok := db.stmts[query]; ok {
		return stmt, nil
	}

	stmt, err := db.conn.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	db.stmts[query] = stmt
	return stmt, nil
}

// Query runs a cached prepared statement and returns its rows.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	stmt, err := db.Prepare(query)
	if err != nil {
		return nil, err
	}
	return stmt.Query(args...)
}

// QueryRow runs a cached prepared statement expected to return one row.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	stmt, err := db.Prepare(query)
	if err != nil {
		// Fall through to the connection so the caller still gets a
		// scannable row carrying the error.
		return db.conn.QueryRow(query, args...)
	}
	return stmt.QueryRow(args...)
}

// Exec runs a statement outside any transaction. Mutating statements on a
// read-only deployment are logged and dropped, returning a zero-effect
// result instead of an error.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	if db.readOnly && isMutating(query) {
		logger.Warn("Ignoring mutating statement on read-only database: %s", summarizeQuery(query))
		return noopResult{}, nil
	}
	stmt, err := db.Prepare(query)
	if err != nil {
		return nil, err
	}
	return stmt.Exec(args...)
}

func isMutating(query string) bool {
	q := strings.TrimSpace(strings.ToUpper(query))
	return strings.HasPrefix(q, "INSERT") ||
		strings.HasPrefix(q, "UPDATE") ||
		strings.HasPrefix(q, "DELETE") ||
		strings.HasPrefix(q, "REPLACE")
}

func summarizeQuery(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if len(q) > 80 {
		q = q[:80] + "..."
	}
	return q
}

// noopResult is the zero-effect result returned for mutations that were
// rejected by the read-only guard.
type noopResult struct{}

func (noopResult) LastInsertId() (int64, error) { return 0, nil }
func (noopResult) RowsAffected() (int64, error) { return 0, nil }

// OnCommit registers a hook receiving the entity changes recorded by each
// successfully committed outer transaction.
func (db *DB) OnCommit(fn func(changes []EntityChange)) {
	db.onCommit = fn
}

// OnRollback registers a hook invoked after a failed transaction has been
// rolled back. The entity graph uses this to reload, since the in-memory
// cache may have observed mutations the rollback undid.
func (db *DB) OnRollback(fn func()) {
	db.onRollback = fn
}

func (db *DB) IsReadOnly() bool {
	return db.readOnly
}

func (db *DB) Close() error {
	db.stmtMu.Lock()
	for _, stmt := range db.stmts {
		_ = stmt.Close()
	}
	db.stmts = make(map[string]*sql.Stmt)
	db.stmtMu.Unlock()

	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}
