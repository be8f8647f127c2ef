package ocr

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ \t]*[_\-|=]{3,}[ \t]*$`)
	// a clock reading where tesseract saw the letter O for a zero, e.g. "9:3O"
	reClockWithO = regexp.MustCompile(`^[0-9Oo]{1,2}[.:][0-9Oo]{2}$`)
)

// Normalize cleans recognizer output line by line. It applies NFKC so fullwidth
// digits and colons become ASCII, drops ruler lines, and repairs O-for-0 inside clock
// readings. Line structure is kept since every line becomes a token.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		ln := strings.TrimSpace(lines[i])
		if reClockWithO.MatchString(ln) && strings.ContainsAny(ln, "0123456789") {
			ln = strings.NewReplacer("O", "0", "o", "0").Replace(ln)
		}
		lines[i] = ln
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
