package constants

// JobStatus is the canonical status for rows in import_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued    JobStatus = "QUEUED"    // waiting for a worker
	JobStatusRunning   JobStatus = "RUNNING"   // in progress
	JobStatusExtracted JobStatus = "EXTRACTED" // records reconstructed and validated
	JobStatusSubmitted JobStatus = "SUBMITTED" // valid records replayed into the web form
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)

// IsTerminal reports whether no further stage will touch the job.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSubmitted || s == JobStatusFailed
}
