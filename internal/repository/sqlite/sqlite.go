// Package sqlite implements the participant repository on SQLite.
//
// The original deployment of this experiment used a hosted document
// database; a single-server consent gate does not need one. SQLite gives us
// the same keyed-record semantics as an embedded file (or ":memory:" in
// tests) with zero infrastructure.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// SQLite — works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements
// repository.ParticipantRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping forces an immediate connection so a bad path or permissions
	// problem surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// needed since every request reads-then-writes one record.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the participants table.
//
// cookie_response, report_text, toggle_response and report_llm_text are
// nullable on purpose: NULL is the "no decision recorded yet" state the
// consent popups key off. llm_consent defaults to 1 (true) at creation.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS participants (
			id              TEXT PRIMARY KEY,
			prolific_id     TEXT NOT NULL UNIQUE,
			session_id      TEXT,
			cookie_response TEXT,
			report_text     TEXT,
			llm_consent     INTEGER NOT NULL DEFAULT 1,
			toggle_response INTEGER,
			report_llm_text TEXT,
			timestamp       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_participants_session_id ON participants(session_id);
	`)
	if err != nil {
		return fmt.Errorf("creating participants table: %w", err)
	}

	return nil
}
