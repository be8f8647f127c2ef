package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

type RecordRepository interface {
	// ReplaceRecords swaps the job's stored records for recs in one transaction.
	ReplaceRecords(ctx context.Context, jobID uuid.UUID, recs []entity.StoredRecord) error
	ListRecords(ctx context.Context, jobID uuid.UUID) ([]entity.StoredRecord, error)
}

type recordRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRecordRepository(db *DB, log *slog.Logger) RecordRepository {
	if log == nil {
		log = slog.Default()
	}
	return &recordRepo{db: db, log: log}
}

func (r *recordRepo) ReplaceRecords(ctx context.Context, jobID uuid.UUID, recs []entity.StoredRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_ERROR", "begin", errors.Join(common.ErrDatabase, err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, r.db.rebind(`DELETE FROM attendance_records WHERE job_id = ?`), jobID.String()); err != nil {
		return common.NewAppError("DB_ERROR", "clear records", errors.Join(common.ErrDatabase, err))
	}

	stmt, err := tx.PrepareContext(ctx, r.db.rebind(`INSERT INTO attendance_records (
		job_id, seq, day, weekday, start_time, end_time, status, missing_weekday, missing_day,
		record_date, year, month, break_time, errors_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return common.NewAppError("DB_ERROR", "prepare insert", errors.Join(common.ErrDatabase, err))
	}
	defer stmt.Close()

	for _, sr := range recs {
		errs := sr.Errors
		if errs == nil {
			errs = []string{}
		}
		errJSON, jerr := json.Marshal(errs)
		if jerr != nil {
			err = jerr
			return err
		}
		rec := sr.Record
		if _, err = stmt.ExecContext(ctx,
			jobID.String(), sr.Seq,
			nullInt(rec.Day), nullString((*string)(rec.Weekday)),
			nullString(rec.StartTime), nullString(rec.EndTime),
			string(rec.Status), rec.MissingWeekday, rec.MissingDay,
			nullString(rec.Date), nullInt(rec.Year), nullInt(rec.Month), nullString(rec.BreakTime),
			string(errJSON),
		); err != nil {
			return common.NewAppError("DB_ERROR", fmt.Sprintf("insert record %d", sr.Seq), errors.Join(common.ErrDatabase, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return common.NewAppError("DB_ERROR", "commit", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("records.replaced", "job_id", jobID, "records", len(recs))
	return nil
}

func (r *recordRepo) ListRecords(ctx context.Context, jobID uuid.UUID) ([]entity.StoredRecord, error) {
	rows, err := r.db.query(ctx, `SELECT seq, day, weekday, start_time, end_time, status, missing_weekday, missing_day,
		record_date, year, month, break_time, errors_json
		FROM attendance_records WHERE job_id = ? ORDER BY seq`, jobID.String())
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list records", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	out := []entity.StoredRecord{}
	for rows.Next() {
		var sr entity.StoredRecord
		var day, year, month sql.NullInt64
		var weekday, start, end, date, brk sql.NullString
		var status, errJSON string
		if err := rows.Scan(&sr.Seq, &day, &weekday, &start, &end, &status,
			&sr.Record.MissingWeekday, &sr.Record.MissingDay, &date, &year, &month, &brk, &errJSON); err != nil {
			return nil, err
		}
		sr.JobID = jobID
		sr.Record.Day = intPtr(day)
		if weekday.Valid {
			sr.Record.Weekday = entity.Ptr(entity.Weekday(weekday.String))
		}
		sr.Record.StartTime = strPtr(start)
		sr.Record.EndTime = strPtr(end)
		sr.Record.Status = entity.Status(status)
		sr.Record.Date = strPtr(date)
		sr.Record.Year = intPtr(year)
		sr.Record.Month = intPtr(month)
		sr.Record.BreakTime = strPtr(brk)
		if err := json.Unmarshal([]byte(errJSON), &sr.Errors); err != nil {
			return nil, fmt.Errorf("decode errors of record %d: %w", sr.Seq, err)
		}
		if len(sr.Errors) == 0 {
			sr.Errors = nil
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
