package entry

import (
	"encoding/json"
	"fmt"
)

// Encode serialises the collection as the persisted JSON array of {id, timestamp, text}.
func Encode(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

// Decode parses a persisted collection. Records with empty text are dropped and
// timestamps are clamped; IDs are returned as stored (the store re-mints
// missing or duplicate ones).
func Decode(data []byte) ([]Entry, error) {
	var raw []Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		e.Text = NormalizeText(e.Text)
		if e.Text == "" {
			continue
		}
		e.Timestamp = NormalizeTimestamp(e.Timestamp)
		entries = append(entries, e)
	}
	return entries, nil
}
