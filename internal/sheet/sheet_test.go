package sheet

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

func testExtractor() *Extractor {
	now := func() time.Time { return time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC) }
	return NewExtractor(now, slog.New(slog.DiscardHandler))
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	path := filepath.Join(t.TempDir(), "attendance.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestDetectColumns(t *testing.T) {
	assert.Equal(t, Columns{0, 1, 2, 3}, DetectColumns([]string{"日付", "出勤", "退勤", "休憩"}, 4))
	assert.Equal(t, Columns{1, 2, 3, 0}, DetectColumns([]string{"Break", "Date", "Start", "End"}, 4))
	// the date keywords win for 出勤日 because date is checked first
	assert.Equal(t, Columns{0, 1, 2, -1}, DetectColumns([]string{"出勤日", "始業", "終業"}, 3))
	assert.Equal(t, Columns{0, -1, -1, -1}, DetectColumns([]string{"memo"}, 1))
	assert.Equal(t, Columns{0, 1, 2, 3}, DetectColumns([]string{"a", "b", "c", "d", "e"}, 5), "positional fallback")
}

func TestExtractWorkbook(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"日付", "出勤時刻", "退勤時刻", "休憩"},
		{"2024/10/01", "9:00", "18:00", "1:00"},
		{"2024/10/02", "9.30", "", ""},
		{"2024年10月3日", "0900", "1800"},
		{"45567", "0.375", "0.750"},
		{"", "9:00", "18:00"},
	})

	recs, err := testExtractor().Extract(path, "")
	require.NoError(t, err)
	require.Len(t, recs, 3)

	first := recs[0]
	assert.Equal(t, "2024-10-01", *first.Date)
	assert.Equal(t, 1, *first.Day)
	assert.Equal(t, 2024, *first.Year)
	assert.Equal(t, 10, *first.Month)
	assert.Equal(t, entity.Tuesday, *first.Weekday)
	assert.Equal(t, "09:00", *first.StartTime)
	assert.Equal(t, "18:00", *first.EndTime)
	assert.Equal(t, "01:00", *first.BreakTime)
	assert.Equal(t, entity.StatusPresent, first.Status)
	assert.False(t, first.MissingDay)
	assert.False(t, first.MissingWeekday)

	assert.Equal(t, "2024-10-03", *recs[1].Date)
	assert.Equal(t, entity.Thursday, *recs[1].Weekday)
	assert.Equal(t, "00:00", *recs[1].BreakTime, "break defaults when absent")

	assert.Equal(t, "2024-10-02", *recs[2].Date, "serial date")
	assert.Equal(t, "09:00", *recs[2].StartTime)
	assert.Equal(t, "18:00", *recs[2].EndTime)
}

func TestExtractNamedSheetMissing(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"日付"}})
	_, err := testExtractor().Extract(path, "March")
	assert.Error(t, err)
}

func TestExtractRejectsLegacyXLS(t *testing.T) {
	_, err := testExtractor().Extract("old.xls", "")
	assert.ErrorIs(t, err, common.ErrUnsupported)
}

func TestFromRowsEmpty(t *testing.T) {
	recs := testExtractor().FromRows(nil)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestTimeCell(t *testing.T) {
	for in, want := range map[string]string{
		"0.375":  "09:00",
		"0.5":    "",
		"0.30":   "00:30",
		"17:45":  "17:45",
		"  ":     "",
		"0.9993": "23:59",
	} {
		got, ok := timeCell(in)
		if want == "" {
			assert.False(t, ok, in)
			continue
		}
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
}
