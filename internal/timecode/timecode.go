// Package timecode converts between playback offsets and the "mm:ss" /
// "h:mm:ss" text written in notes.
package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MaxSeconds is the largest offset accepted or rendered, a little under 32
// years. Anything beyond it is not a position in a video.
const MaxSeconds = 1e9

// NoNoteText stands in for the note when a line carries only a timestamp.
const NoNoteText = "(メモなし)"

// leadingStamp matches an optional "[", optional "hours:", "minutes:seconds",
// then "]", whitespace or end of line. The rest of the line is the note.
var leadingStamp = regexp.MustCompile(`^\s*\[?(?:(\d+):)?(\d+):(\d{1,2})(?:\]|\s|$)\s*(.*)$`)

// Format renders seconds as zero-padded "mm:ss". Fractions are truncated and
// minutes are never folded into hours, so 3600 formats as "60:00".
func Format(seconds float64) string {
	switch {
	case math.IsNaN(seconds) || seconds < 0:
		seconds = 0
	case seconds > MaxSeconds:
		seconds = MaxSeconds
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Parse reads a leading timestamp from line and returns its offset in seconds
// and the trimmed remainder. ok is false when the line does not start with one
// or the offset exceeds MaxSeconds.
func Parse(line string) (seconds float64, text string, ok bool) {
	m := leadingStamp.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}

	var hours int64
	if m[1] != "" {
		h, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, "", false
		}
		hours = h
	}
	minutes, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, "", false
	}
	secs, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return 0, "", false
	}

	// Summed as floats so oversized groups cannot wrap negative.
	seconds = float64(hours)*3600 + float64(minutes)*60 + float64(secs)
	if seconds > MaxSeconds {
		return 0, "", false
	}

	text = strings.TrimSpace(m[4])
	if text == "" {
		text = NoNoteText
	}
	return seconds, text, true
}

// ParseOffset reads a bare offset typed by a user: "mm:ss", "h:mm:ss",
// optionally bracketed, or plain seconds ("90", "12.5").
func ParseOffset(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || v < 0 || v > MaxSeconds {
			return 0, false
		}
		return v, true
	}
	seconds, text, ok := Parse(s)
	if !ok || text != NoNoteText {
		return 0, false
	}
	return seconds, true
}
