package entity

import (
	"time"

	"github.com/google/uuid"
)

// ImportJob represents one processed attendance document for data transfer between layers.
type ImportJob struct {
	ID           uuid.UUID  `json:"id"`
	SourcePath   string     `json:"source_path"`
	Filename     string     `json:"filename"`
	Format       string     `json:"format"`
	Status       string     `json:"status"`
	Pages        int        `json:"pages"`
	Method       *string    `json:"method,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// StoredRecord is an attendance record persisted for a job, with its validation errors.
type StoredRecord struct {
	JobID  uuid.UUID        `json:"job_id"`
	Seq    int              `json:"seq"`
	Record AttendanceRecord `json:"record"`
	Errors []string         `json:"errors,omitempty"`
}
