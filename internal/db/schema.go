package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS submissions (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    student TEXT NOT NULL,
    assignment TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_assignment ON submissions(assignment, seq);

CREATE TABLE IF NOT EXISTS similarity_results (
    submission_id TEXT PRIMARY KEY REFERENCES submissions(id),
    plagiarised INTEGER NOT NULL,
    exact INTEGER NOT NULL,
    partial INTEGER NOT NULL,
    matching_words TEXT NOT NULL,
    report_path TEXT,
    alert INTEGER NOT NULL DEFAULT 0,
    checked_at TEXT NOT NULL
);
`

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps writers serialized and ":memory:" databases shared
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
