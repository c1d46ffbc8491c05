package entry

import "sort"

// Entry is one timestamped note anchored to a playback offset.
type Entry struct {
	// ID is a ULID minted by the log store; stable for the entry's lifetime
	ID string `json:"id"`

	// Timestamp is the offset into the video in seconds (non-negative)
	Timestamp float64 `json:"timestamp"`

	// Text is the note content; never empty after trimming
	Text string `json:"text"`
}

// Draft is a (timestamp, text) pair that has not been assigned an ID yet.
// Import parsing produces drafts; the log store turns them into entries.
type Draft struct {
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
}

// SortByTimestamp orders entries by Timestamp, keeping insertion order on ties.
func SortByTimestamp(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
}

// IsSorted reports whether entries are in non-decreasing timestamp order.
func IsSorted(entries []Entry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp < entries[i-1].Timestamp {
			return false
		}
	}
	return true
}
