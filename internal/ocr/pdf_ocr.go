package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"unicode"

	"github.com/dslipak/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF, Language: e.cfg.TesseractLang}

	layer, err := e.pdfTextLayer(path)
	if err != nil {
		// encrypted or damaged text layer; the rasterizer may still cope
		res.Warnings = append(res.Warnings, err.Error())
		e.logger.Warn("ocr.pdf.text_layer_failed", "path", path, "error", err)
		pages, warn, err := e.pdfToOCR(ctx, path, nil)
		res.Warnings = append(res.Warnings, warn...)
		res.Pages = pages
		res.Method = MethodPDFOCR
		return res, err
	}

	var scanned []int
	pages := make([]Page, len(layer))
	for i, txt := range layer {
		txt = Normalize(txt)
		pages[i] = Page{Number: i + 1, Text: txt, Method: MethodPDFText, Confidence: heuristicConfidence(txt)}
		if !hasText(txt, e.cfg.MinTextRunes) {
			scanned = append(scanned, i+1)
		}
	}

	switch {
	case len(scanned) == 0:
		res.Method = MethodPDFText
	case len(scanned) == len(pages):
		res.Method = MethodPDFOCR
	default:
		res.Method = MethodMixed
	}

	if len(scanned) > 0 {
		e.logger.Debug("ocr.pdf.rasterize", "path", path, "pages", scanned)
		ocrPages, warn, err := e.pdfToOCR(ctx, path, scanned)
		res.Warnings = append(res.Warnings, warn...)
		if err != nil {
			return res, err
		}
		for _, p := range ocrPages {
			pages[p.Number-1] = p
		}
	}
	res.Pages = pages
	return res, nil
}

// pdfTextLayer returns the embedded text of each page, capped at MaxPages.
func (e *Extractor) pdfTextLayer(path string) (texts []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	// the pdf package panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf text layer: %v", r)
		}
	}()

	r, err := pdf.NewReader(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := r.NumPage()
	if e.cfg.MaxPages > 0 && n > e.cfg.MaxPages {
		n = e.cfg.MaxPages
	}
	texts = make([]string, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d text: %w", i, err)
		}
		texts[i-1] = txt
	}
	return texts, nil
}

// pdfToOCR rasterizes the given 1-based pages (all pages when nil) and OCRs them in
// parallel. One failed page fails the document.
func (e *Extractor) pdfToOCR(ctx context.Context, path string, only []int) ([]Page, []string, error) {
	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "att-pp-*")
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.pdf.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	images, warn, err := e.rasterize(ctx, path, tmpDir, only)
	if err != nil {
		return nil, warn, err
	}

	pages := make([]Page, len(images))
	warns := make([][]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, img := range images {
		g.Go(func() error {
			p, w, err := e.recognize(gctx, img.path, img.number)
			if err != nil {
				return fmt.Errorf("page %d: %w", img.number, err)
			}
			p.Method = MethodPDFOCR
			pages[i] = p
			warns[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, warn, err
	}
	for _, w := range warns {
		warn = append(warn, w...)
	}
	return pages, warn, nil
}

type pageImage struct {
	number int
	path   string
}

func (e *Extractor) rasterize(ctx context.Context, path, dir string, only []int) ([]pageImage, []string, error) {
	dpi := strconv.Itoa(e.cfg.DPI)
	if only == nil {
		prefix := filepath.Join(dir, "page")
		args := []string{"-r", dpi, "-png"}
		if e.cfg.MaxPages > 0 {
			args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
		}
		// pdftoppm -r 300 -png <in.pdf> <tmp/page>
		if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, path, prefix)...); err != nil {
			return nil, []string{string(errb)}, common.NewAppError("OCR_FAILED", "pdftoppm", fmt.Errorf("%w: %v", common.ErrExternalTool, err))
		}
		// prefix-1.png, prefix-2.png, ... zero padded on long documents
		matches, _ := filepath.Glob(prefix + "-*.png")
		sort.Strings(matches)
		if len(matches) == 0 {
			return nil, []string{"pdftoppm produced no images"}, common.NewAppError("OCR_FAILED", "no pages rendered", common.ErrExternalTool)
		}
		out := make([]pageImage, len(matches))
		for i, m := range matches {
			out[i] = pageImage{number: i + 1, path: m}
		}
		return out, nil, nil
	}

	out := make([]pageImage, 0, len(only))
	for _, n := range only {
		prefix := filepath.Join(dir, fmt.Sprintf("p%03d", n))
		num := strconv.Itoa(n)
		// -singlefile writes exactly <prefix>.png
		args := []string{"-r", dpi, "-png", "-f", num, "-l", num, "-singlefile", path, prefix}
		if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
			return nil, []string{string(errb)}, common.NewAppError("OCR_FAILED", "pdftoppm page "+num, fmt.Errorf("%w: %v", common.ErrExternalTool, err))
		}
		out = append(out, pageImage{number: n, path: prefix + ".png"})
	}
	return out, nil, nil
}

func hasText(s string, min int) bool {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
			if n >= min {
				return true
			}
		}
	}
	return false
}
