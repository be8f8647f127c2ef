// Package ocr turns attendance documents into per-page text. Images go through
// tesseract; PDFs use their text layer and fall back to rasterize-and-OCR for pages
// that have none.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
)

// Extraction methods recorded on pages and jobs.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
	MethodMixed    = "pdf-mixed"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "jpn+eng"
	TessdataDir   string
	PSM           int // 6 treats the sheet as one uniform block
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit
	Workers       int // parallel page OCR, default 1

	// Preprocess converts images to grayscale and upscales small scans before OCR.
	Preprocess bool
	// MinTextRunes is the number of non-space runes below which a PDF page's
	// text layer counts as empty. Default 8.
	MinTextRunes int
	TempDir      string

	EnableTSVConfidence bool
}

// ConfigFrom maps the application OCR section onto an extractor config.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Pdftoppm:      c.PdftoppmBin,
		Tesseract:     c.TesseractBin,
		TesseractLang: c.Lang,
		TessdataDir:   c.TessdataDir,
		PSM:           c.PSM,
		DPI:           c.DPI,
		MaxPages:      c.MaxPages,
		Workers:       c.Workers,
		Preprocess:    c.Preprocess,
		TempDir:       c.TempDir,
	}
}

// Page is the recognized text of one page, 1-based.
type Page struct {
	Number     int
	Text       string
	Method     string
	Confidence float32
}

type ExtractionResult struct {
	Pages      []Page
	SourceType string // constants.PDF | constants.IMAGE
	Method     string
	Language   string
	Duration   time.Duration
	Warnings   []string
}

// Texts returns page texts in page order.
func (r ExtractionResult) Texts() []string {
	out := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.Text
	}
	return out
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner; tests use it to stub tesseract and pdftoppm.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "jpn+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MinTextRunes <= 0 {
		cfg.MinTextRunes = 8
	}
	e := &Extractor{cfg: cfg, runner: ExecRunner{Logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("ocr.extract.start", "path", path, "ext", ext)

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		e.logger.Error("ocr.extract.unsupported", "extension", ext)
		return ExtractionResult{}, common.NewAppError("UNSUPPORTED", fmt.Sprintf("cannot recognize %q files", ext), common.ErrUnsupported)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	e.logger.Info("ocr.extract.ok",
		"path", path,
		"method", res.Method,
		"pages", len(res.Pages),
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
