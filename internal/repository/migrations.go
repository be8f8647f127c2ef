package repository

import (
	"context"
	"fmt"
)

// Timestamps are RFC3339 text in both dialects so rows scan the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS import_jobs (
		id            TEXT PRIMARY KEY,
		source_path   TEXT NOT NULL,
		filename      TEXT NOT NULL,
		format        TEXT NOT NULL,
		status        TEXT NOT NULL,
		pages         INTEGER NOT NULL DEFAULT 0,
		method        TEXT,
		error_message TEXT,
		started_at    TEXT NOT NULL,
		finished_at   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_import_jobs_status ON import_jobs(status)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		job_id          TEXT NOT NULL REFERENCES import_jobs(id) ON DELETE CASCADE,
		seq             INTEGER NOT NULL,
		day             INTEGER,
		weekday         TEXT,
		start_time      TEXT,
		end_time        TEXT,
		status          TEXT NOT NULL,
		missing_weekday BOOLEAN NOT NULL DEFAULT FALSE,
		missing_day     BOOLEAN NOT NULL DEFAULT FALSE,
		record_date     TEXT,
		year            INTEGER,
		month           INTEGER,
		break_time      TEXT,
		errors_json     TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (job_id, seq)
	)`,
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
