// Package videoref extracts the 11-character video identifier from pasted URL text.
package videoref

import (
	"regexp"
	"strings"
)

// idPattern covers watch?v=, youtu.be/, embed/, v/, e/, live/, shorts/ and
// generic channel/user paths ending in the identifier. First match wins.
var idPattern = regexp.MustCompile(
	`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/|youtube\.com/live/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`,
)

// Resolve returns the video identifier found in text, or false when there is none.
// No attempt is made to check that the video exists.
func Resolve(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	m := idPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// WatchURL returns the canonical watch URL for an identifier.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
