package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateMatcher extracts year, month and day from s. now supplies a missing year.
type dateMatcher func(s string, now time.Time) (y, m, d int, ok bool)

var (
	reYMD      = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
	reMDY      = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
	reMD       = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})`)
	reKanjiYMD = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	reYear     = regexp.MustCompile(`\d{4}`)
)

var dateMatchers = []dateMatcher{
	orderedMatcher(reYMD, 1, 2, 3),
	orderedMatcher(reMDY, 3, 1, 2),
	monthDayMatcher,
	orderedMatcher(reKanjiYMD, 1, 2, 3),
}

// strictDateLayouts are tried on the whole trimmed string when no pattern matched.
var strictDateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006"}

func orderedMatcher(re *regexp.Regexp, yi, mi, di int) dateMatcher {
	return func(s string, _ time.Time) (int, int, int, bool) {
		g := re.FindStringSubmatch(s)
		if g == nil {
			return 0, 0, 0, false
		}
		y, _ := strconv.Atoi(g[yi])
		m, _ := strconv.Atoi(g[mi])
		d, _ := strconv.Atoi(g[di])
		return y, m, d, true
	}
}

// monthDayMatcher handles "9/30"; the year comes from any 4-digit run elsewhere ("2025生 9/30").
func monthDayMatcher(s string, now time.Time) (int, int, int, bool) {
	g := reMD.FindStringSubmatch(s)
	if g == nil {
		return 0, 0, 0, false
	}
	m, _ := strconv.Atoi(g[1])
	d, _ := strconv.Atoi(g[2])
	y := now.Year()
	if ys := reYear.FindString(s); ys != "" {
		y, _ = strconv.Atoi(ys)
	}
	return y, m, d, true
}

// Date normalizes a fuzzy date spelling to YYYY-MM-DD.
// Pattern matches are formatted as found; only the strict layouts validate the calendar.
func Date(raw string, now time.Time) (string, bool) {
	s := strings.TrimSpace(Fold(raw))
	if s == "" {
		return "", false
	}
	for _, match := range dateMatchers {
		if y, m, d, ok := match(s, now); ok {
			return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
		}
	}
	for _, layout := range strictDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
