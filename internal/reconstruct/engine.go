// Package reconstruct rebuilds a dense per-day attendance table from the flat,
// spatially disordered token sequence produced by text recognition.
//
// The scan is day-anchored: the first occurrence of each day number anchors that day,
// every day from 1 to the highest anchor is emitted exactly once in ascending order,
// and days without an anchor become placeholder records flagged MissingDay.
package reconstruct

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/attendance-tracker/internal/classify"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/normalize"
)

// maxTimesPerDay caps collected times: the first is the start, the second the end.
const maxTimesPerDay = 2

// Engine runs the reconstruction and reports each decision to its logger.
type Engine struct {
	logger *slog.Logger
}

// New returns an Engine. A nil logger discards the decision log.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger}
}

// Tokenize splits recognized text into trimmed, non-blank lines.
func Tokenize(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	tokens := make([]string, 0, len(lines))
	for _, ln := range lines {
		if s := strings.TrimSpace(ln); s != "" {
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// Reconstruct runs the day-anchored scan without logging.
func Reconstruct(tokens []string) []entity.AttendanceRecord {
	return New(nil).Reconstruct(tokens)
}

// FromText tokenizes text and reconstructs it.
func FromText(text string) []entity.AttendanceRecord {
	return Reconstruct(Tokenize(text))
}

// FromText tokenizes text and reconstructs it.
func (e *Engine) FromText(text string) []entity.AttendanceRecord {
	return e.Reconstruct(Tokenize(text))
}

// Reconstruct returns one record per day in [1, max anchored day], or an empty
// slice when no token classifies as a day number.
func (e *Engine) Reconstruct(tokens []string) []entity.AttendanceRecord {
	e.logger.Debug("reconstruct.start", "tokens", len(tokens))

	anchors, maxDay := locateAnchors(tokens)
	if len(anchors) == 0 {
		e.logger.Warn("reconstruct.no_day_anchors", "tokens", len(tokens))
		return []entity.AttendanceRecord{}
	}
	e.logger.Debug("reconstruct.range", "anchors", len(anchors), "min_day", minKey(anchors), "max_day", maxDay)

	records := make([]entity.AttendanceRecord, 0, maxDay)
	for day := 1; day <= maxDay; day++ {
		idx, ok := anchors[day]
		if !ok {
			e.logger.Debug("reconstruct.gap_fill", "day", day)
			records = append(records, placeholder(day))
			continue
		}
		rec := e.anchoredRecord(tokens, day, idx)
		records = append(records, rec)
	}

	e.logger.Debug("reconstruct.done", "records", len(records))
	return records
}

// locateAnchors maps each day value to the index of its first occurrence.
func locateAnchors(tokens []string) (map[int]int, int) {
	anchors := make(map[int]int)
	maxDay := 0
	for i, tok := range tokens {
		d, ok := classify.Day(tok)
		if !ok {
			continue
		}
		if _, seen := anchors[d]; seen {
			continue
		}
		anchors[d] = i
		if d > maxDay {
			maxDay = d
		}
	}
	return anchors, maxDay
}

func minKey(m map[int]int) int {
	lo := 0
	for k := range m {
		if lo == 0 || k < lo {
			lo = k
		}
	}
	return lo
}

func placeholder(day int) entity.AttendanceRecord {
	return entity.AttendanceRecord{
		Day:            entity.Ptr(day),
		Status:         entity.StatusOff,
		MissingWeekday: true,
		MissingDay:     true,
	}
}

func (e *Engine) anchoredRecord(tokens []string, day, idx int) entity.AttendanceRecord {
	weekday, scanStart := lookaheadWeekday(tokens, idx)
	boundary := nextDayBoundary(tokens, day, idx)
	scan := scanWindow(tokens, scanStart, boundary)

	rec := entity.AttendanceRecord{
		Day:            entity.Ptr(day),
		Weekday:        weekday,
		StartTime:      scan.start(),
		EndTime:        scan.end(),
		MissingWeekday: weekday == nil,
	}
	rec.Status = entity.DeriveStatus(scan.absent, rec.StartTime, rec.EndTime)

	e.logger.Debug("reconstruct.record",
		"day", day,
		"anchor_index", idx,
		"weekday", deref(weekday),
		"scan_start", scanStart,
		"boundary", boundary,
		"start_time", deref(rec.StartTime),
		"end_time", deref(rec.EndTime),
		"absent", scan.absent,
		"status", rec.Status,
	)
	return rec
}

// lookaheadWeekday inspects the token after the anchor and returns the weekday, if any,
// and the index where the time scan starts. Ties on a non-weekday token:
// a time token is scanned, a day token leaves the window empty, noise is skipped.
func lookaheadWeekday(tokens []string, idx int) (*entity.Weekday, int) {
	next := idx + 1
	if next >= len(tokens) {
		return nil, next
	}
	tok := tokens[next]
	if w, ok := classify.Weekday(tok); ok {
		return &w, next + 1
	}
	switch {
	case classify.ContainsTime(tok):
		return nil, next
	case classify.IsDay(tok):
		return nil, len(tokens)
	default:
		return nil, next + 1
	}
}

// nextDayBoundary returns the index of the first token after idx that is a day number
// greater than day, or len(tokens).
func nextDayBoundary(tokens []string, day, idx int) int {
	for j := idx + 1; j < len(tokens); j++ {
		if d, ok := classify.Day(tokens[j]); ok && d > day {
			return j
		}
	}
	return len(tokens)
}

// windowScan accumulates what one day's scan window holds.
type windowScan struct {
	times  []string
	absent bool
}

func (w windowScan) start() *string { return w.at(0) }
func (w windowScan) end() *string   { return w.at(1) }

func (w windowScan) at(i int) *string {
	if i < len(w.times) {
		return entity.Ptr(w.times[i])
	}
	return nil
}

// scanWindow walks tokens[from:to]. An absence marker flags the day but does not stop
// the walk; only the first two times that normalize are kept.
func scanWindow(tokens []string, from, to int) windowScan {
	var w windowScan
	for j := from; j < to; j++ {
		w = scanToken(w, tokens[j])
	}
	return w
}

func scanToken(w windowScan, tok string) windowScan {
	if classify.Absence(tok) {
		w.absent = true
	}
	for _, raw := range classify.TimeCandidates(tok) {
		if len(w.times) >= maxTimesPerDay {
			break
		}
		if t, ok := normalize.Time(raw); ok {
			w.times = append(w.times, t)
		}
	}
	return w
}

func deref[T ~string](p *T) string {
	if p == nil {
		return ""
	}
	return string(*p)
}
