package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/normalize"
)

const sheetName = "Attendance"

var headers = []string{
	"Day",
	"Weekday",
	"Date",
	"Start",
	"End",
	"Break",
	"Work Hours",
	"Status",
	"Missing Weekday",
	"Missing Day",
	"Errors",
}

// RecordSource lists the stored records of an import job in sequence order.
type RecordSource interface {
	ListRecords(ctx context.Context, jobID uuid.UUID) ([]entity.StoredRecord, error)
}

// Service produces XLSX bytes for record exports.
type Service struct {
	records RecordSource
	now     func() time.Time
	logger  *slog.Logger
}

func NewService(records RecordSource, now func() time.Time, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{records: records, now: now, logger: logger}
}

// Row is one exported record with its validation errors.
type Row struct {
	Record entity.AttendanceRecord
	Errors []string
}

// RowsFromValidation lays out a validation result in input order.
func RowsFromValidation(recs []entity.AttendanceRecord, res entity.ValidationResult) []Row {
	rows := make([]Row, len(recs))
	for i, r := range recs {
		rows[i] = Row{Record: r}
	}
	for _, inv := range res.InvalidRecords {
		if inv.Index >= 0 && inv.Index < len(rows) {
			rows[inv.Index].Errors = inv.Errors
		}
	}
	return rows
}

// ExportJobXLSX returns the workbook for every record stored under jobID.
func (s *Service) ExportJobXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	if s.records == nil {
		return nil, fmt.Errorf("export: no record source configured")
	}
	stored, err := s.records.ListRecords(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	rows := make([]Row, len(stored))
	for i, sr := range stored {
		rows[i] = Row{Record: sr.Record, Errors: sr.Errors}
	}
	b, err := s.RecordsXLSX(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.job.ok", "job_id", jobID.String(), "rows", len(rows))
	return b, nil
}

// RecordsXLSX returns an XLSX workbook with one row per record.
func (s *Service) RecordsXLSX(rows []Row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheetName, 1, 1, style)
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, Split: false, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	now := s.now()
	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		rec := r.Record

		if rec.Day != nil {
			write(1, *rec.Day)
		}
		write(2, deref(rec.Weekday))
		if rec.Day != nil || rec.Date != nil {
			date, _ := normalize.BuildDate(rec, now)
			write(3, date)
		}
		write(4, deref(rec.StartTime))
		write(5, deref(rec.EndTime))
		write(6, deref(rec.BreakTime))
		if h, ok := workHours(rec); ok {
			write(7, h)
		}
		write(8, string(rec.Status))
		write(9, rec.MissingWeekday)
		write(10, rec.MissingDay)
		write(11, strings.Join(r.Errors, "; "))
	}

	_ = f.SetColWidth(sheetName, "A", "B", 8)
	_ = f.SetColWidth(sheetName, "C", "C", 12)
	_ = f.SetColWidth(sheetName, "D", "G", 10)
	_ = f.SetColWidth(sheetName, "H", "J", 14)
	_ = f.SetColWidth(sheetName, "K", "K", 60)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// workHours is blank unless both times are present; a missing break counts as none.
func workHours(rec entity.AttendanceRecord) (float64, bool) {
	if rec.StartTime == nil || rec.EndTime == nil {
		return 0, false
	}
	brk := "00:00"
	if rec.BreakTime != nil && *rec.BreakTime != "" {
		brk = *rec.BreakTime
	}
	return normalize.WorkHours(*rec.StartTime, *rec.EndTime, brk)
}

func deref[T ~string](p *T) string {
	if p == nil {
		return ""
	}
	return string(*p)
}
