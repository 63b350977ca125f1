// Package sqlite persists the bearer credential at rest in a local SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection pool. Writes are serialized through a single
// connection to avoid "database is locked" errors; the store holds one small
// table, so a larger pool buys nothing.
type DB struct {
	Conn *sql.DB
	path string
}

// Open creates the SQLite database at dbPath with WAL mode, busy timeout,
// synchronous NORMAL and foreign keys enabled.
func Open(dbPath string) (*DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Conn: conn, path: dbPath}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	if err := db.Conn.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
