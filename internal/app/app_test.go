package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/archive"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
)

func TestClockUsesCalendar(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Calendar = common.CalendarConfig{Year: 2025, Month: 2}
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Clock(&cfg)())
}

func TestProcessorEndToEndWithSheet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	cfg := common.DefaultConfig()
	cfg.Database.DSN = filepath.Join(dir, "a.db")
	cfg.Calendar = common.CalendarConfig{Year: 2024, Month: 10}

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"日付", "出勤", "退勤", "休憩"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"2024/10/01", "9:00", "18:00", "1:00"}))
	src := filepath.Join(dir, "oct.xlsx")
	require.NoError(t, f.SaveAs(src))

	store, err := OpenStore(ctx, cfg.Database, logger)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	archDir := filepath.Join(dir, "archive")
	p := NewProcessor(&cfg, logger, store, archive.NewLocal(archDir, logger))
	res, err := p.ProcessFile(ctx, src)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Validation.Summary.Valid)

	job, err := store.Jobs.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.JobStatusExtracted), job.Status)

	_, err = os.Stat(filepath.Join(archDir, res.JobID.String(), "oct.xlsx"))
	assert.NoError(t, err)
}
