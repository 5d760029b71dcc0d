// Package store keeps a durable ledger of publish outcomes in SQLite. The
// JSON reports are the per-run audit artifacts; this answers "what happened
// lately" without scanning them.
package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

// History records one row per terminal attempt sequence.
type History struct {
	db *sql.DB
}

// Entry is one recorded publish outcome.
type Entry struct {
	ID         int64
	Title      string
	Tags       []string
	Status     types.Status
	Success    bool
	Error      string
	DryRun     bool
	ReportPath string
	CreatedAt  time.Time
}

// Open creates (if needed) and opens the history database.
func Open(dbPath string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return h, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS publishes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		tags TEXT,
		status TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		error TEXT,
		dry_run BOOLEAN,
		report_path TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_publishes_created_at ON publishes(created_at);
	CREATE INDEX IF NOT EXISTS idx_publishes_status ON publishes(status);
	`

	_, err := h.db.Exec(schema)
	return err
}

// Record inserts one publish outcome.
func (h *History) Record(e *Entry) error {
	tagsJSON, _ := json.Marshal(e.Tags)

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := h.db.Exec(`
		INSERT INTO publishes (title, tags, status, success, error, dry_run, report_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Title, string(tagsJSON), string(e.Status), e.Success, e.Error, e.DryRun, e.ReportPath, e.CreatedAt)

	return err
}

// Recent returns the most recent entries, newest first.
func (h *History) Recent(limit int) ([]Entry, error) {
	rows, err := h.db.Query(`
		SELECT id, title, tags, status, success, error, dry_run, report_path, created_at
		FROM publishes
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var tagsJSON, status string

		err := rows.Scan(&e.ID, &e.Title, &tagsJSON, &status, &e.Success, &e.Error, &e.DryRun, &e.ReportPath, &e.CreatedAt)
		if err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(tagsJSON), &e.Tags)
		e.Status = types.Status(status)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
