package ocr

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

var (
	reClock   = regexp.MustCompile(`\d{1,2}[.:]\d{2}`)
	reDayLine = regexp.MustCompile(`(?m)^\d{1,2}\D{0,2}$`)
)

// heuristicConfidence scores how much a page looks like an attendance sheet: day
// lines, weekday glyphs and clock readings each add to a small base.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2)
	if n := len(reDayLine.FindAllString(txt, -1)); n >= 3 {
		score += 0.2
	}
	if strings.ContainsFunc(txt, entity.IsWeekday) {
		score += 0.15
	}
	if n := len(reClock.FindAllString(txt, -1)); n >= 2 {
		score += 0.25
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// blendConfidence weights tesseract's own word confidence over the heuristic when
// it is known.
func blendConfidence(ocrConf, heurConf float32) float32 {
	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
