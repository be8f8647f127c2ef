// Package sheet imports attendance rows from spreadsheets. Columns are found by
// header keywords, falling back to the first four columns.
package sheet

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/normalize"
)

// Column roles, in detection priority order.
const (
	ColDate = iota
	ColStart
	ColEnd
	ColBreak
	numRoles
)

var headerPatterns = [numRoles][]*regexp.Regexp{
	ColDate:  compileAll(`日付`, `date`, `年月日`, `日`),
	ColStart: compileAll(`出勤`, `開始`, `start`, `出社`, `始業`),
	ColEnd:   compileAll(`退勤`, `終了`, `end`, `退社`, `終業`),
	ColBreak: compileAll(`休憩`, `break`, `休み`),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Columns holds the detected column index per role; -1 means absent.
type Columns [numRoles]int

// DetectColumns assigns each header cell to the first unassigned role whose
// keywords it matches. Roles left unassigned default to their position when the
// sheet is wide enough.
func DetectColumns(header []string, width int) Columns {
	cols := Columns{-1, -1, -1, -1}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for role := range numRoles {
			if cols[role] != -1 {
				continue
			}
			if matchesAny(headerPatterns[role], name) {
				cols[role] = i
				break
			}
		}
	}
	for role := range numRoles {
		if cols[role] == -1 && (role == ColDate || width > role) {
			cols[role] = role
		}
	}
	return cols
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Extractor reads one sheet of a workbook into records.
type Extractor struct {
	now    func() time.Time
	logger *slog.Logger
}

func NewExtractor(now func() time.Time, logger *slog.Logger) *Extractor {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{now: now, logger: logger}
}

// Extract reads sheetName, or the first sheet when empty. Rows are kept only when
// their date, start and end all normalize; a missing break becomes 00:00.
func (x *Extractor) Extract(path, sheetName string) ([]entity.AttendanceRecord, error) {
	if ext := constants.NormalizeExt(filepath.Ext(path)); ext != "xlsx" {
		// excelize reads OOXML only; legacy .xls has to be re-saved
		return nil, common.NewAppError("UNSUPPORTED", fmt.Sprintf("cannot read %q workbooks", ext), common.ErrUnsupported)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, common.NewAppError("SHEET_READ", "open workbook", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			x.logger.Warn("sheet.close_failed", "path", path, "error", err)
		}
	}()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, common.NewAppError("SHEET_READ", "workbook has no sheets", common.ErrInvalidInput)
		}
		sheetName = sheets[0]
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, common.NewAppError("SHEET_READ", "read sheet "+sheetName, err)
	}
	recs := x.FromRows(rows)
	x.logger.Info("sheet.extract.ok", "path", path, "sheet", sheetName, "rows", len(rows), "records", len(recs))
	return recs, nil
}

// FromRows maps a header row plus data rows to records.
func (x *Extractor) FromRows(rows [][]string) []entity.AttendanceRecord {
	recs := []entity.AttendanceRecord{}
	if len(rows) == 0 {
		return recs
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	cols := DetectColumns(rows[0], width)
	now := x.now()

	for i, row := range rows[1:] {
		date, okDate := x.dateCell(cell(row, cols[ColDate]), now)
		start, okStart := timeCell(cell(row, cols[ColStart]))
		end, okEnd := timeCell(cell(row, cols[ColEnd]))
		if !okDate || !okStart || !okEnd {
			x.logger.Debug("sheet.row.skipped", "row", i+2)
			continue
		}
		brk, ok := timeCell(cell(row, cols[ColBreak]))
		if !ok {
			brk = "00:00"
		}
		recs = append(recs, newRecord(date, start, end, brk))
	}
	return recs
}

func newRecord(date, start, end, brk string) entity.AttendanceRecord {
	rec := entity.AttendanceRecord{
		Date:      entity.Ptr(date),
		StartTime: entity.Ptr(start),
		EndTime:   entity.Ptr(end),
		BreakTime: entity.Ptr(brk),
	}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		rec.Day = entity.Ptr(t.Day())
		rec.Year = entity.Ptr(t.Year())
		rec.Month = entity.Ptr(int(t.Month()))
		rec.Weekday = entity.Ptr(entity.WeekdayOf(t.Weekday()))
	} else {
		rec.MissingDay = true
	}
	rec.MissingWeekday = rec.Weekday == nil
	rec.Status = entity.DeriveStatus(false, rec.StartTime, rec.EndTime)
	return rec
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// dateCell accepts formatted dates and raw Excel serial numbers.
func (x *Extractor) dateCell(v string, now time.Time) (string, bool) {
	if v == "" {
		return "", false
	}
	if d, ok := normalize.Date(v, now); ok {
		return d, true
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial >= 1 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// reDayFraction is an unformatted time cell; two decimals would be a dotted clock.
var reDayFraction = regexp.MustCompile(`^0\.\d{3,}$`)

// timeCell accepts clock text and raw Excel day fractions.
func timeCell(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	if reDayFraction.MatchString(v) {
		frac, _ := strconv.ParseFloat(v, 64)
		minutes := int(math.Round(frac * 24 * 60))
		return fmt.Sprintf("%02d:%02d", minutes/60%24, minutes%60), true
	}
	return normalize.Time(v)
}
