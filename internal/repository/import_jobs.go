package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

type ImportJobRepository interface {
	Start(ctx context.Context, sourcePath, filename, format string) (*entity.ImportJob, error)
	MarkRunning(ctx context.Context, jobID uuid.UUID) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, pages int, method string) error
	MarkSubmitted(ctx context.Context, jobID uuid.UUID) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ImportJob, error)
	List(ctx context.Context, filter JobFilter) ([]entity.ImportJob, error)
}

// JobFilter narrows List. A zero Limit means 50.
type JobFilter struct {
	Status string
	Limit  int
}

type importJobRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewImportJobRepository(db *DB, log *slog.Logger) ImportJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &importJobRepo{db: db, log: log, now: time.Now}
}

func (r *importJobRepo) Start(ctx context.Context, sourcePath, filename, format string) (*entity.ImportJob, error) {
	job := &entity.ImportJob{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Filename:   filename,
		Format:     format,
		Status:     string(constants.JobStatusQueued),
		StartedAt:  r.now().UTC(),
	}
	_, err := r.db.exec(ctx,
		`INSERT INTO import_jobs (id, source_path, filename, format, status, pages, started_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		job.ID.String(), job.SourcePath, job.Filename, job.Format, job.Status, formatTime(job.StartedAt),
	)
	if err != nil {
		r.log.Error("import_job.start.failed", "source_path", sourcePath, "error", err)
		return nil, common.NewAppError("DB_ERROR", "insert import job", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("import_job.started", "job_id", job.ID, "format", format, "filename", filename)
	return job, nil
}

func (r *importJobRepo) MarkRunning(ctx context.Context, jobID uuid.UUID) error {
	return r.setStatus(ctx, jobID, constants.JobStatusRunning, nil, false)
}

func (r *importJobRepo) MarkSubmitted(ctx context.Context, jobID uuid.UUID) error {
	return r.setStatus(ctx, jobID, constants.JobStatusSubmitted, nil, true)
}

func (r *importJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, pages int, method string) error {
	res, err := r.db.exec(ctx,
		`UPDATE import_jobs SET status = ?, pages = ?, method = ?, finished_at = ? WHERE id = ?`,
		string(constants.JobStatusExtracted), pages, method, formatTime(r.now()), jobID.String(),
	)
	if err := checkUpdated(res, err, jobID); err != nil {
		r.log.Error("import_job.finish.failed", "job_id", jobID, "error", err)
		return err
	}
	r.log.Info("import_job.extracted", "job_id", jobID, "pages", pages, "method", method)
	return nil
}

func (r *importJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	if err := r.setStatus(ctx, jobID, constants.JobStatusFailed, &message, true); err != nil {
		return err
	}
	r.log.Warn("import_job.failed", "job_id", jobID, "error", message)
	return nil
}

func (r *importJobRepo) setStatus(ctx context.Context, jobID uuid.UUID, status constants.JobStatus, message *string, finished bool) error {
	var finishedAt any
	if finished {
		finishedAt = formatTime(r.now())
	}
	res, err := r.db.exec(ctx,
		`UPDATE import_jobs SET status = ?, error_message = COALESCE(?, error_message), finished_at = COALESCE(?, finished_at) WHERE id = ?`,
		string(status), message, finishedAt, jobID.String(),
	)
	if err := checkUpdated(res, err, jobID); err != nil {
		r.log.Error("import_job.status.failed", "job_id", jobID, "status", status, "error", err)
		return err
	}
	return nil
}

const jobColumns = `id, source_path, filename, format, status, pages, method, error_message, started_at, finished_at`

func (r *importJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ImportJob, error) {
	row := r.db.queryRow(ctx, `SELECT `+jobColumns+` FROM import_jobs WHERE id = ?`, jobID.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "import job "+jobID.String(), common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "get import job", errors.Join(common.ErrDatabase, err))
	}
	return job, nil
}

func (r *importJobRepo) List(ctx context.Context, filter JobFilter) ([]entity.ImportJob, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + jobColumns + ` FROM import_jobs`
	args := []any{}
	if filter.Status != "" {
		q += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	q += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.query(ctx, q, args...)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list import jobs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	jobs := []entity.ImportJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*entity.ImportJob, error) {
	var (
		job                 entity.ImportJob
		id, started         string
		method, errMsg, fin sql.NullString
	)
	if err := s.Scan(&id, &job.SourcePath, &job.Filename, &job.Format, &job.Status, &job.Pages, &method, &errMsg, &started, &fin); err != nil {
		return nil, err
	}
	var err error
	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	if job.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if method.Valid {
		job.Method = &method.String
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	if fin.Valid {
		t, err := parseTime(fin.String)
		if err != nil {
			return nil, err
		}
		job.FinishedAt = &t
	}
	return &job, nil
}

func checkUpdated(res sql.Result, err error, jobID uuid.UUID) error {
	if err != nil {
		return common.NewAppError("DB_ERROR", "update import job", errors.Join(common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", "import job "+jobID.String(), common.ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
