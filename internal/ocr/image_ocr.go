package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
)

// minOCRHeight is the pixel height small scans are upscaled to before recognition.
const minOCRHeight = 1200

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.IMAGE, Method: MethodImageOCR, Language: e.cfg.TesseractLang}

	src := path
	if e.cfg.Preprocess {
		out, cleanup, err := e.preprocess(path)
		if err != nil {
			// recognition still works on the original, just worse
			res.Warnings = append(res.Warnings, err.Error())
			e.logger.Warn("ocr.preprocess.failed", "path", path, "error", err)
		} else {
			defer cleanup()
			src = out
		}
	}

	page, warn, err := e.recognize(ctx, src, 1)
	res.Warnings = append(res.Warnings, warn...)
	if err != nil {
		return res, err
	}
	res.Pages = []Page{page}
	return res, nil
}

// preprocess writes a grayscale copy of path, upscaled when short, to a temp file.
func (e *Extractor) preprocess(path string) (string, func(), error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", nil, fmt.Errorf("open image: %w", err)
	}
	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}
	gray = imaging.Sharpen(gray, 0.5)

	tmp, err := os.CreateTemp(e.cfg.TempDir, "att-pre-*.png")
	if err != nil {
		return "", nil, err
	}
	name := tmp.Name()
	_ = tmp.Close()
	cleanup := func() { _ = os.Remove(name) }
	if err := imaging.Save(gray, name); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("save preprocessed image: %w", err)
	}
	return name, cleanup, nil
}

// recognize OCRs one image into a page, blending in TSV confidence when enabled.
func (e *Extractor) recognize(ctx context.Context, img string, number int) (Page, []string, error) {
	txt, warn, err := e.tesseractOCR(ctx, img)
	if err != nil {
		return Page{Number: number}, warn, err
	}
	txt = Normalize(txt)

	var ocrConf float32
	if e.cfg.EnableTSVConfidence {
		c, err := e.tesseractTSVConfidence(ctx, img)
		if err != nil {
			warn = append(warn, err.Error())
		}
		ocrConf = c
	}
	return Page{
		Number:     number,
		Text:       txt,
		Method:     MethodImageOCR,
		Confidence: blendConfidence(ocrConf, heuristicConfidence(txt)),
	}, warn, nil
}

func (e *Extractor) tesseractArgs(path string) []string {
	// tesseract <file> stdout -l <lang> [--psm n] [--tessdata-dir d]
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, common.NewAppError("OCR_FAILED", "tesseract", fmt.Errorf("%w: %v", common.ErrExternalTool, err))
	}
	return string(out), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	args := append(e.tesseractArgs(path), "tsv")
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}

// meanTSVConfidence averages the conf column, skipping the header and non-word rows.
func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		conf := cols[10]
		if conf == "" || conf == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(conf, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
