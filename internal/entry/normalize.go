package entry

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/vodnote/internal/timecode"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeText trims surrounding whitespace from note text.
// Interior newlines are kept.
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeTimestamp clamps negative and NaN offsets to zero and large ones
// to timecode.MaxSeconds.
func NormalizeTimestamp(seconds float64) float64 {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	if seconds > timecode.MaxSeconds {
		return timecode.MaxSeconds
	}
	return seconds
}

// Preview collapses whitespace and cuts text to at most max runes for one-line listings.
// An ellipsis marks truncation. max <= 0 disables truncation.
func Preview(text string, max int) string {
	s := whitespaceRegex.ReplaceAllString(strings.TrimSpace(text), " ")
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
