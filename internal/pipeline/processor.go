// Package pipeline runs a document through recognition, reconstruction and
// validation, and records the outcome as an import job.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/ocr"
	"github.com/joseph-ayodele/attendance-tracker/internal/reconstruct"
	"github.com/joseph-ayodele/attendance-tracker/internal/repository"
	"github.com/joseph-ayodele/attendance-tracker/internal/validate"
)

// TextExtractor is stage 1 for scans: file -> per-page text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// SheetExtractor reads records straight from a workbook.
type SheetExtractor interface {
	Extract(path, sheetName string) ([]entity.AttendanceRecord, error)
}

// Archiver keeps a copy of a processed source document.
type Archiver interface {
	Archive(ctx context.Context, jobID uuid.UUID, path string) (string, error)
}

// Deps are the collaborators of a Processor. Jobs, Records and Archive may be nil
// for runs that only extract.
type Deps struct {
	Text      TextExtractor
	Sheet     SheetExtractor
	Engine    *reconstruct.Engine
	Validator *validate.Validator
	Jobs      repository.ImportJobRepository
	Records   repository.RecordRepository
	Archive   Archiver
}

type Processor struct {
	deps   Deps
	logger *slog.Logger
}

func NewProcessor(deps Deps, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Engine == nil {
		deps.Engine = reconstruct.New(logger)
	}
	if deps.Validator == nil {
		deps.Validator = validate.New()
	}
	return &Processor{deps: deps, logger: logger}
}

// Result is everything one document produced.
type Result struct {
	JobID      uuid.UUID                 `json:"job_id,omitzero"`
	Format     string                    `json:"format"`
	Method     string                    `json:"method"`
	Pages      int                       `json:"pages"`
	Records    []entity.AttendanceRecord `json:"records"`
	Validation entity.ValidationResult   `json:"validation"`
	Missing    []entity.MissingData      `json:"missing"`
	Warnings   []string                  `json:"warnings,omitempty"`
}

// ExtractFile recognizes, reconstructs and validates path without persisting
// anything. Each page is reconstructed on its own and the page sequences are
// concatenated.
func (p *Processor) ExtractFile(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	format := constants.MapExtToFormat(filepath.Ext(path))
	res := Result{Format: format}

	switch format {
	case constants.IMAGE, constants.PDF:
		if p.deps.Text == nil {
			return res, fmt.Errorf("pipeline: no text extractor configured")
		}
		text, err := p.deps.Text.Extract(ctx, path)
		res.Warnings = text.Warnings
		if err != nil {
			return res, err
		}
		res.Method = text.Method
		res.Pages = len(text.Pages)
		res.Records = []entity.AttendanceRecord{}
		for _, page := range text.Pages {
			recs := p.deps.Engine.FromText(page.Text)
			p.logger.Debug("pipeline.page", "path", path, "page", page.Number, "records", len(recs), "confidence", page.Confidence)
			res.Records = append(res.Records, recs...)
		}
	case constants.SHEET:
		if p.deps.Sheet == nil {
			return res, fmt.Errorf("pipeline: no sheet extractor configured")
		}
		recs, err := p.deps.Sheet.Extract(path, "")
		if err != nil {
			return res, err
		}
		res.Method = "sheet"
		res.Pages = 1
		res.Records = recs
	default:
		return res, common.NewAppError("UNSUPPORTED", fmt.Sprintf("unsupported file %q", filepath.Base(path)), common.ErrUnsupported)
	}

	res.Validation = p.deps.Validator.ValidateRecords(res.Records)
	res.Missing = validate.CheckMissing(res.Records)
	p.logger.Info("pipeline.extract.ok",
		"path", path,
		"format", format,
		"pages", res.Pages,
		"records", len(res.Records),
		"invalid", res.Validation.Summary.Invalid,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ProcessFile runs ExtractFile inside an import job: the job is started, the
// records are stored with their validation errors, and the source is archived.
// Returns the job ID even on failure once the job exists.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Result, error) {
	return p.ProcessUpload(ctx, path, path)
}

// ProcessUpload is ProcessFile for a temporary copy at path whose original
// location is source. The job records source, not path.
func (p *Processor) ProcessUpload(ctx context.Context, path, source string) (Result, error) {
	if p.deps.Jobs == nil || p.deps.Records == nil {
		return Result{}, fmt.Errorf("pipeline: repositories not configured")
	}
	job, err := p.deps.Jobs.Start(ctx, source, filepath.Base(source), constants.MapExtToFormat(filepath.Ext(path)))
	if err != nil {
		return Result{}, err
	}
	ctx = common.WithJobID(ctx, job.ID.String())
	logger := p.logger.With("job_id", job.ID.String())

	if err := p.deps.Jobs.MarkRunning(ctx, job.ID); err != nil {
		return Result{JobID: job.ID}, err
	}

	res, err := p.ExtractFile(ctx, path)
	res.JobID = job.ID
	if err != nil {
		logger.Error("pipeline.process.failed", "path", path, "error", err)
		if ferr := p.deps.Jobs.FinishFailure(context.WithoutCancel(ctx), job.ID, err.Error()); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return res, err
	}

	if err := p.deps.Records.ReplaceRecords(ctx, job.ID, StoredRecords(job.ID, res.Records, res.Validation)); err != nil {
		if ferr := p.deps.Jobs.FinishFailure(context.WithoutCancel(ctx), job.ID, err.Error()); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return res, err
	}
	if err := p.deps.Jobs.FinishSuccess(ctx, job.ID, res.Pages, res.Method); err != nil {
		return res, err
	}

	if p.deps.Archive != nil {
		if loc, err := p.deps.Archive.Archive(ctx, job.ID, path); err != nil {
			// the job itself succeeded
			res.Warnings = append(res.Warnings, "archive: "+err.Error())
			logger.Warn("pipeline.archive.failed", "path", path, "error", err)
		} else {
			logger.Debug("pipeline.archive.ok", "location", loc)
		}
	}
	logger.Info("pipeline.process.ok", "path", path, "records", len(res.Records))
	return res, nil
}

// StoredRecords pairs records with their validation errors in sequence order.
func StoredRecords(jobID uuid.UUID, recs []entity.AttendanceRecord, v entity.ValidationResult) []entity.StoredRecord {
	byIndex := make(map[int][]string, len(v.InvalidRecords))
	for _, inv := range v.InvalidRecords {
		byIndex[inv.Index] = inv.Errors
	}
	out := make([]entity.StoredRecord, len(recs))
	for i, r := range recs {
		out[i] = entity.StoredRecord{JobID: jobID, Seq: i, Record: r, Errors: byIndex[i]}
	}
	return out
}
