// Package logtext converts between the log collection and free-form
// timestamped text, in both directions.
package logtext

import (
	"strings"

	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/errors"
	"github.com/hpungsan/vodnote/internal/timecode"
)

// ParseBlock turns a multi-line block into drafts, one per line that starts
// with a timestamp, in input order. Blank and unrecognised lines are skipped.
// A block that yields nothing returns ErrNothingRecognized.
func ParseBlock(text string) ([]entry.Draft, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var drafts []entry.Draft
	nonBlank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		nonBlank++

		seconds, note, ok := timecode.Parse(line)
		if !ok {
			continue
		}
		drafts = append(drafts, entry.Draft{Timestamp: seconds, Text: note})
	}

	if len(drafts) == 0 {
		return nil, errors.NewNothingRecognized(nonBlank)
	}
	return drafts, nil
}
