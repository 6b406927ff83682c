package secrets

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS account_state (
    id   INTEGER PRIMARY KEY CHECK (id = 1),
    blob TEXT NOT NULL
);
`

// SQLite stores the account blob in a single-row SQLite table.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically; idempotent.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Read returns the stored blob, or ErrNotFound if the row is absent.
func (s *SQLite) Read() (string, error) {
	var blob string
	err := s.db.QueryRow("SELECT blob FROM account_state WHERE id = 1").Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read account state: %w", err)
	}
	return blob, nil
}

// Write stores the blob, replacing any previous value.
func (s *SQLite) Write(blob string) error {
	_, err := s.db.Exec(
		"INSERT INTO account_state (id, blob) VALUES (1, ?) ON CONFLICT (id) DO UPDATE SET blob = excluded.blob",
		blob,
	)
	if err != nil {
		return fmt.Errorf("write account state: %w", err)
	}
	return nil
}

// Clear removes the stored blob.
func (s *SQLite) Clear() error {
	if _, err := s.db.Exec("DELETE FROM account_state WHERE id = 1"); err != nil {
		return fmt.Errorf("clear account state: %w", err)
	}
	return nil
}
