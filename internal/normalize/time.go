package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// timeMatcher extracts an (hour, minute) pair from s, or reports no match.
type timeMatcher func(s string) (hour, minute int, ok bool)

var (
	reDotTime   = regexp.MustCompile(`(\d{1,2})\.(\d{2})`)
	reColonTime = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	reKanjiTime = regexp.MustCompile(`(\d{1,2})時(\d{2})分`)
	reBareTime  = regexp.MustCompile(`\d{4}`)
)

// timeMatchers are tried in order; separator forms beat the 時/分 form, which beats bare HHMM.
var timeMatchers = []timeMatcher{
	pairMatcher(reDotTime),
	pairMatcher(reColonTime),
	pairMatcher(reKanjiTime),
	bareMatcher,
}

func pairMatcher(re *regexp.Regexp) timeMatcher {
	return func(s string) (int, int, bool) {
		m := re.FindStringSubmatch(s)
		if m == nil {
			return 0, 0, false
		}
		h, err1 := strconv.Atoi(m[1])
		mm, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return h, mm, true
	}
}

func bareMatcher(s string) (int, int, bool) {
	m := reBareTime.FindString(s)
	if m == "" {
		return 0, 0, false
	}
	h, _ := strconv.Atoi(m[:2])
	mm, _ := strconv.Atoi(m[2:])
	return h, mm, true
}

// Fold maps fullwidth digits and punctuation to ASCII so OCR output such as "９：３０"
// is matched by the ASCII patterns.
func Fold(s string) string {
	return width.Fold.String(s)
}

// Time normalizes a fuzzy time spelling to HH:MM.
// A rule whose match is out of range (hour > 23 or minute > 59) falls through to the next rule.
func Time(raw string) (string, bool) {
	s := strings.TrimSpace(Fold(raw))
	if s == "" {
		return "", false
	}
	for _, match := range timeMatchers {
		h, m, ok := match(s)
		if !ok {
			continue
		}
		if h >= 0 && h <= 23 && m >= 0 && m <= 59 {
			return fmt.Sprintf("%02d:%02d", h, m), true
		}
	}
	return "", false
}

// TimePtr is Time returning nil when absent.
func TimePtr(raw string) *string {
	if t, ok := Time(raw); ok {
		return &t
	}
	return nil
}
