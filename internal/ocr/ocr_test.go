package ocr

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/attendance-tracker/constants"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
)

// fakeRunner answers tesseract with canned text keyed by image base name and makes
// pdftoppm write empty page images.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	texts   map[string]string
	pages   int
	failOn  string
	seenImg []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	if name == f.failOn {
		return nil, []byte("boom"), errors.New("exit status 1")
	}
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), nil, 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		img := args[0]
		f.mu.Lock()
		f.seenImg = append(f.seenImg, img)
		f.mu.Unlock()
		if args[len(args)-1] == "tsv" {
			return []byte("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
				"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\t25\n" +
				"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\t木\n"), nil, nil
		}
		return []byte(f.texts[filepath.Base(img)]), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %s", name)
}

func newTestExtractor(r Runner, cfg Config) *Extractor {
	cfg.TempDir = ""
	return NewExtractor(cfg, slog.New(slog.DiscardHandler), WithRunner(r))
}

func TestExtractImage(t *testing.T) {
	r := &fakeRunner{texts: map[string]string{"sheet.png": "２５\r\n木\n9:3O\n17.30\n"}}
	e := newTestExtractor(r, Config{PSM: 6, TessdataDir: "/td"})

	res, err := e.Extract(context.Background(), "/in/sheet.png")
	require.NoError(t, err)
	assert.Equal(t, constants.IMAGE, res.SourceType)
	assert.Equal(t, MethodImageOCR, res.Method)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, "25\n木\n9:30\n17.30", res.Pages[0].Text)
	assert.Equal(t, []string{"25\n木\n9:30\n17.30"}, res.Texts())

	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"tesseract", "/in/sheet.png", "stdout", "-l", "jpn+eng", "--psm", "6", "--tessdata-dir", "/td"}, r.calls[0])
}

func TestExtractImagePreprocessUsesTempCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	require.NoError(t, imaging.Save(imaging.New(40, 30, color.White), src))

	r := &fakeRunner{texts: map[string]string{}}
	e := newTestExtractor(r, Config{Preprocess: true})

	_, err := e.Extract(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, r.seenImg, 1)
	assert.NotEqual(t, src, r.seenImg[0])
	_, statErr := os.Stat(r.seenImg[0])
	assert.True(t, os.IsNotExist(statErr), "preprocessed copy is removed")
}

func TestExtractImageTSVConfidence(t *testing.T) {
	r := &fakeRunner{texts: map[string]string{"a.png": "1\n月\n9.00\n18.00"}}
	e := newTestExtractor(r, Config{EnableTSVConfidence: true})

	res, err := e.Extract(context.Background(), "a.png")
	require.NoError(t, err)
	heur := heuristicConfidence(res.Pages[0].Text)
	assert.InDelta(t, 0.7*0.8+0.3*heur, res.Pages[0].Confidence, 1e-6)
}

func TestExtractPDFFallsBackToRasterOCR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not really a pdf"), 0o644))

	r := &fakeRunner{pages: 2, texts: map[string]string{
		"page-1.png": "1\n月\n9.00\n18.00",
		"page-2.png": "2\n火\n休",
	}}
	e := newTestExtractor(r, Config{Workers: 2, DPI: 200})

	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, constants.PDF, res.SourceType)
	assert.Equal(t, MethodPDFOCR, res.Method)
	assert.NotEmpty(t, res.Warnings, "text layer failure is reported")
	require.Len(t, res.Pages, 2)
	assert.Equal(t, 1, res.Pages[0].Number)
	assert.Equal(t, "1\n月\n9.00\n18.00", res.Pages[0].Text)
	assert.Equal(t, "2\n火\n休", res.Pages[1].Text)

	assert.Equal(t, []string{"pdftoppm", "-r", "200", "-png"}, r.calls[0][:4])
}

func TestExtractPDFToolFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-broken"), 0o644))

	e := newTestExtractor(&fakeRunner{failOn: "pdftoppm"}, Config{})
	_, err := e.Extract(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExternalTool)
}

func TestExtractUnsupported(t *testing.T) {
	e := newTestExtractor(&fakeRunner{}, Config{})
	_, err := e.Extract(context.Background(), "notes.docx")
	assert.ErrorIs(t, err, common.ErrUnsupported)
}

func TestNormalize(t *testing.T) {
	in := "１\t月 \n\n\n\n-----\n９：００\n18.O0 \n本日"
	assert.Equal(t, "1 月\n\n9:00\n18.00\n本日", Normalize(in))
	assert.Equal(t, "Osaka", Normalize("Osaka"), "words are left alone")
}

func TestHasText(t *testing.T) {
	assert.False(t, hasText(" \n\t ", 1))
	assert.False(t, hasText("1 2 3", 4))
	assert.True(t, hasText("1 2 3 4", 4))
}

func TestHeuristicConfidence(t *testing.T) {
	sheet := strings.Repeat("1\n月\n9.00\n18.00\n2\n火\n9.00\n18.00\n3\n水\n", 4)
	assert.Greater(t, heuristicConfidence(sheet), heuristicConfidence("lorem ipsum"))
	assert.LessOrEqual(t, heuristicConfidence(sheet), float32(1.0))
}

func TestMeanTSVConfidence(t *testing.T) {
	tsv := "header\n5\t1\t1\t1\t1\t1\t0\t0\t1\t1\t-1\t\n5\t1\t1\t1\t1\t1\t0\t0\t1\t1\t50\tx\n"
	assert.InDelta(t, 0.5, meanTSVConfidence(tsv), 1e-6)
	assert.Zero(t, meanTSVConfidence(""))
}
