package logtext

import (
	"strings"

	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/timecode"
)

// FormatLine renders one entry as "[mm:ss] text".
func FormatLine(e entry.Entry) string {
	return "[" + timecode.Format(e.Timestamp) + "] " + e.Text
}

// FormatBody renders entries one per line, in the order given.
func FormatBody(entries []entry.Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = FormatLine(e)
	}
	return strings.Join(lines, "\n")
}

// FormatForRewrite prefixes the body with the rewrite instructions so the
// result can be pasted into an LLM and the answer imported back.
func FormatForRewrite(entries []entry.Entry, preamble string) string {
	return preamble + FormatBody(entries)
}
