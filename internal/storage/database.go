package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// MigrateUser creates the per-user store tables.
// It is idempotent and can be run multiple times safely.
func MigrateUser(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS chat_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			window_index INTEGER NOT NULL,
			conversation_id TEXT NOT NULL,
			agent TEXT,
			mode TEXT,
			model TEXT,
			embedding TEXT,
			db_source TEXT,
			db_name TEXT,
			title TEXT,
			user_query TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_window
			ON chat_history(window_index, id);`,
		`CREATE TABLE IF NOT EXISTS document_uploads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			tmp_name TEXT NOT NULL,
			org_name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// MigrateAudit creates the shared audit store tables. Identical rows to the
// per-user store, keyed additionally by user identity.
func MigrateAudit(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS chat_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user TEXT NOT NULL,
			window_index INTEGER NOT NULL,
			conversation_id TEXT NOT NULL,
			agent TEXT,
			mode TEXT,
			model TEXT,
			embedding TEXT,
			db_source TEXT,
			db_name TEXT,
			title TEXT,
			user_query TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS document_uploads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			tmp_name TEXT NOT NULL,
			org_name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
