// Package app wires configuration into the processing stack shared by the CLI
// and the daemon.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/attendance-tracker/internal/archive"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/ocr"
	"github.com/joseph-ayodele/attendance-tracker/internal/pipeline"
	"github.com/joseph-ayodele/attendance-tracker/internal/reconstruct"
	"github.com/joseph-ayodele/attendance-tracker/internal/repository"
	"github.com/joseph-ayodele/attendance-tracker/internal/sheet"
	"github.com/joseph-ayodele/attendance-tracker/internal/validate"
)

// Store bundles the database and its repositories.
type Store struct {
	DB      *repository.DB
	Jobs    repository.ImportJobRepository
	Records repository.RecordRepository
}

// OpenStore opens and migrates the configured database.
func OpenStore(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	db, err := repository.Open(ctx, repository.Config{
		DSN:          cfg.DSN,
		MaxOpenConns: cfg.MaxOpenConns,
		BusyTimeout:  cfg.BusyTimeout,
		DialTimeout:  3 * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &Store{
		DB:      db,
		Jobs:    repository.NewImportJobRepository(db, logger),
		Records: repository.NewRecordRepository(db, logger),
	}, nil
}

func (s *Store) Close() {
	if s != nil && s.DB != nil {
		s.DB.Close()
	}
}

// Clock returns the calendar clock: the configured year/month or now.
func Clock(cfg *common.Config) func() time.Time {
	return cfg.Calendar.Clock(time.Now)
}

// Validator builds a validator on the calendar clock.
func Validator(cfg *common.Config) *validate.Validator {
	return validate.New(validate.WithClock(Clock(cfg)))
}

// NewProcessor assembles the pipeline. store and arch may be nil for
// extract-only use.
func NewProcessor(cfg *common.Config, logger *slog.Logger, store *Store, arch archive.Store, opts ...ocr.Option) *pipeline.Processor {
	deps := pipeline.Deps{
		Text:      ocr.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger, opts...),
		Sheet:     sheet.NewExtractor(Clock(cfg), logger),
		Engine:    reconstruct.New(logger),
		Validator: Validator(cfg),
	}
	if store != nil {
		deps.Jobs = store.Jobs
		deps.Records = store.Records
	}
	if arch != nil {
		deps.Archive = arch
	}
	return pipeline.NewProcessor(deps, logger)
}
