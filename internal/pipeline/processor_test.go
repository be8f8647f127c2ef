package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/ocr"
	"github.com/joseph-ayodele/attendance-tracker/internal/repository"
)

var discard = slog.New(slog.DiscardHandler)

type fakeText struct {
	res ocr.ExtractionResult
	err error
}

func (f fakeText) Extract(context.Context, string) (ocr.ExtractionResult, error) { return f.res, f.err }

type fakeSheet struct{ recs []entity.AttendanceRecord }

func (f fakeSheet) Extract(string, string) ([]entity.AttendanceRecord, error) { return f.recs, nil }

type fakeArchive struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeArchive) Archive(_ context.Context, id uuid.UUID, path string) (string, error) {
	f.calls = append(f.calls, id)
	return "archive/" + filepath.Base(path), f.err
}

func pages(texts ...string) ocr.ExtractionResult {
	res := ocr.ExtractionResult{Method: ocr.MethodPDFText, SourceType: constants.PDF}
	for i, t := range texts {
		res.Pages = append(res.Pages, ocr.Page{Number: i + 1, Text: t, Method: ocr.MethodPDFText})
	}
	return res
}

func openRepos(t *testing.T) (repository.ImportJobRepository, repository.RecordRepository) {
	t.Helper()
	db, err := repository.Open(context.Background(), repository.Config{DSN: filepath.Join(t.TempDir(), "p.db")}, discard)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return repository.NewImportJobRepository(db, discard), repository.NewRecordRepository(db, discard)
}

func TestExtractFileConcatenatesPages(t *testing.T) {
	p := NewProcessor(Deps{Text: fakeText{res: pages("1\n月\n09:00\n18:00", "1\n火\n10:00\n19:00\n2\n水\n欠勤")}}, discard)

	res, err := p.ExtractFile(context.Background(), "/in/oct.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.PDF, res.Format)
	assert.Equal(t, 2, res.Pages)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "09:00", *res.Records[0].StartTime)
	assert.Equal(t, "10:00", *res.Records[1].StartTime)
	assert.Equal(t, entity.StatusOff, res.Records[2].Status)
	assert.Equal(t, 3, res.Validation.Summary.Total)
	require.Len(t, res.Missing, 0)
}

func TestExtractFileSheet(t *testing.T) {
	recs := []entity.AttendanceRecord{{Day: entity.Ptr(1), StartTime: entity.Ptr("09:00"), EndTime: entity.Ptr("18:00"), Status: entity.StatusPresent}}
	p := NewProcessor(Deps{Sheet: fakeSheet{recs: recs}}, discard)

	res, err := p.ExtractFile(context.Background(), "/in/oct.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "sheet", res.Method)
	assert.Equal(t, recs, res.Records)
}

func TestExtractFileUnsupported(t *testing.T) {
	_, err := NewProcessor(Deps{}, discard).ExtractFile(context.Background(), "/in/notes.docx")
	assert.ErrorIs(t, err, common.ErrUnsupported)
}

func TestProcessFileStoresRecordsAndArchives(t *testing.T) {
	ctx := context.Background()
	jobs, records := openRepos(t)
	arch := &fakeArchive{}
	p := NewProcessor(Deps{
		Text:    fakeText{res: pages("1\n月\n09:00\n18:00\n2\n火\n06:00\n23:30")},
		Jobs:    jobs,
		Records: records,
		Archive: arch,
	}, discard)

	res, err := p.ProcessFile(ctx, "/in/oct.pdf")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{res.JobID}, arch.calls)

	job, err := jobs.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.JobStatusExtracted), job.Status)
	assert.Equal(t, 1, job.Pages)
	assert.Equal(t, "/in/oct.pdf", job.SourcePath)

	stored, err := records.ListRecords(ctx, res.JobID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Empty(t, stored[0].Errors)
	assert.NotEmpty(t, stored[1].Errors)
}

func TestProcessUploadRecordsOriginalSource(t *testing.T) {
	ctx := context.Background()
	jobs, records := openRepos(t)
	dir := t.TempDir()
	p := NewProcessor(Deps{Text: fakeText{res: pages("1\n月\n09:00\n18:00")}, Jobs: jobs, Records: records}, discard)

	res, err := p.ProcessUpload(ctx, filepath.Join(dir, "upload-1.pdf"), "march.pdf")
	require.NoError(t, err)

	job, err := jobs.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, "march.pdf", job.SourcePath)
	assert.Equal(t, "march.pdf", job.Filename)
	assert.Equal(t, constants.PDF, job.Format)
}

type failingRecords struct{ repository.RecordRepository }

func (failingRecords) ReplaceRecords(context.Context, uuid.UUID, []entity.StoredRecord) error {
	return errors.New("disk full")
}

type failingFinish struct{ repository.ImportJobRepository }

func (failingFinish) FinishFailure(context.Context, uuid.UUID, string) error {
	return errors.New("db closed")
}

func TestProcessFileKeepsFinishFailureError(t *testing.T) {
	jobs, records := openRepos(t)
	p := NewProcessor(Deps{
		Text:    fakeText{res: pages("1\n月\n09:00\n18:00")},
		Jobs:    failingFinish{jobs},
		Records: failingRecords{records},
	}, discard)

	_, err := p.ProcessFile(context.Background(), "/in/oct.pdf")
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.ErrorContains(t, err, "db closed")
}

func TestProcessFileArchiveFailureOnlyWarns(t *testing.T) {
	jobs, records := openRepos(t)
	p := NewProcessor(Deps{
		Text:    fakeText{res: pages("1\n月\n09:00\n18:00")},
		Jobs:    jobs,
		Records: records,
		Archive: &fakeArchive{err: errors.New("bucket gone")},
	}, discard)

	res, err := p.ProcessFile(context.Background(), "/in/oct.pdf")
	require.NoError(t, err)
	assert.Contains(t, res.Warnings, "archive: bucket gone")
}

func TestProcessFileRecordsFailure(t *testing.T) {
	ctx := context.Background()
	jobs, records := openRepos(t)
	p := NewProcessor(Deps{
		Text:    fakeText{err: common.ErrExternalTool},
		Jobs:    jobs,
		Records: records,
	}, discard)

	res, err := p.ProcessFile(ctx, "/in/oct.pdf")
	require.ErrorIs(t, err, common.ErrExternalTool)

	job, err := jobs.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.JobStatusFailed), job.Status)
	require.NotNil(t, job.ErrorMessage)
}

func TestStoredRecords(t *testing.T) {
	id := uuid.New()
	recs := []entity.AttendanceRecord{{Day: entity.Ptr(1)}, {Day: entity.Ptr(2)}}
	v := entity.ValidationResult{InvalidRecords: []entity.InvalidRecord{{Index: 1, Errors: []string{"bad"}}}}

	out := StoredRecords(id, recs, v)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[1].Seq)
	assert.Nil(t, out[0].Errors)
	assert.Equal(t, []string{"bad"}, out[1].Errors)
}
