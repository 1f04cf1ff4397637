package repl

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// History persists REPL input lines to a sqlite3 database so a
// session can be replayed or inspected after the fact. Nothing in the
// evaluator depends on it; it is purely an ambient CLI convenience.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if necessary) the sqlite3 database at
// path and ensures its schema exists.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			line TEXT NOT NULL,
			entered_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Append records one entered line.
func (h *History) Append(line string) error {
	_, err := h.db.Exec(`INSERT INTO history (line) VALUES (?)`, line)
	return err
}

// Recent returns the last n lines entered, most recent first.
func (h *History) Recent(n int) ([]string, error) {
	rows, err := h.db.Query(`SELECT line FROM history ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (h *History) Close() error {
	return h.db.Close()
}
