// Package classify decides what a single OCR token denotes: a day-of-month number,
// a weekday glyph, a time of day, or an absence marker.
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/normalize"
)

var (
	// a token opening with a clock reading ("9.30", "18:30") or made of a bare HHMM run
	// is time data, never a day number
	reLeadingTime = regexp.MustCompile(`^\d{1,2}[.:]\d{2}`)
	reBareClock   = regexp.MustCompile(`^\d{4}$`)
	reDayDigits   = regexp.MustCompile(`\d{1,2}`)
	reTimeSubstr  = regexp.MustCompile(`\d{1,2}[.:]\d{2}`)
	reAbsence     = regexp.MustCompile(`^欠$|欠勤|休(暇|日|業|吸)`)
)

// absenceRoot marks leave or a holiday.
const absenceRoot = "休"

// weekdayCorrections maps glyphs OCR commonly returns in place of a weekday.
var weekdayCorrections = map[string]entity.Weekday{
	"本": entity.Thursday,
	"未": entity.Thursday,
	"末": entity.Thursday,
	"大": entity.Tuesday,
	"氷": entity.Wednesday,
	"永": entity.Wednesday,
	"士": entity.Saturday,
	"上": entity.Saturday,
	"目": entity.Sunday,
	"曰": entity.Sunday,
	"円": entity.Monday,
	"全": entity.Friday,
}

// Day returns the day-of-month a token denotes. Symbol noise ("27)", "1 !") is tolerated.
func Day(tok string) (int, bool) {
	s := strings.TrimSpace(normalize.Fold(tok))
	if s == "" {
		return 0, false
	}
	if reLeadingTime.MatchString(s) || reBareClock.MatchString(s) {
		return 0, false
	}
	m := reDayDigits.FindString(s)
	if m == "" {
		return 0, false
	}
	d, err := strconv.Atoi(m)
	if err != nil || d < 1 || d > 31 {
		return 0, false
	}
	return d, true
}

// IsDay reports whether tok classifies as a day number.
func IsDay(tok string) bool {
	_, ok := Day(tok)
	return ok
}

// Weekday returns the weekday a token denotes. The correction table is consulted first,
// then every character of the token, then the first character alone.
func Weekday(tok string) (entity.Weekday, bool) {
	if tok == "" {
		return "", false
	}
	if w, ok := weekdayCorrections[stripNoise(tok)]; ok {
		return w, true
	}
	for _, r := range tok {
		if entity.IsWeekday(r) {
			return entity.Weekday(string(r)), true
		}
	}
	first := []rune(tok)[0]
	if entity.IsWeekday(first) {
		return entity.Weekday(string(first)), true
	}
	return "", false
}

// Absence reports whether tok marks a day off. Compounds tolerate OCR glyphs appended
// or prepended to the marker.
func Absence(tok string) bool {
	return strings.Contains(tok, absenceRoot) || reAbsence.MatchString(tok)
}

// ContainsTime reports whether tok embeds an H.MM or H:MM substring.
func ContainsTime(tok string) bool {
	return reTimeSubstr.MatchString(normalize.Fold(tok))
}

// TimeCandidates returns every H.MM / H:MM substring of tok in order of appearance.
// Candidates are not range-checked; see normalize.Time.
func TimeCandidates(tok string) []string {
	return reTimeSubstr.FindAllString(normalize.Fold(tok), -1)
}

// stripNoise drops whitespace, punctuation and symbols around a glyph: "(本)" -> "本".
func stripNoise(tok string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, tok)
}
