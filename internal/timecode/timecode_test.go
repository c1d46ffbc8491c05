package timecode

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{5, "00:05"},
		{65.9, "01:05"},
		{3599, "59:59"},
		{3600, "60:00"},
		{3902, "65:02"},
		{6000, "100:00"},
		{-1, "00:00"},
		{math.NaN(), "00:00"},
		{MaxSeconds, "16666666:40"},
		{1e300, "16666666:40"},
		{math.Inf(1), "16666666:40"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.seconds), func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.seconds))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		seconds float64
		text    string
		ok      bool
	}{
		{"hours bracketed", "[1:05:02] checked the gap", 3902, "checked the gap", true},
		{"no brackets", "02:30 no brackets", 150, "no brackets", true},
		{"not a timestamp", "not a timestamp", 0, "", false},
		{"bracket glued to text", "[00:10]first", 10, "first", true},
		{"leading whitespace", "   [00:05] second", 5, "second", true},
		{"single digit minutes", "1:05 peek", 65, "peek", true},
		{"long minutes", "[100:00] late round", 6000, "late round", true},
		{"bare timestamp", "[00:42]", 42, NoNoteText, true},
		{"bare timestamp with spaces", "03:00    ", 180, NoNoteText, true},
		{"trailing text trimmed", "00:01   eco round   ", 1, "eco round", true},
		{"digits run into seconds", "00:105 nope", 0, "", false},
		{"missing seconds", "[12:] nope", 0, "", false},
		{"timestamp mid line", "note at 01:00", 0, "", false},
		{"empty", "", 0, "", false},
		{"japanese note", "[00:12] エイムがぶれている", 12, "エイムがぶれている", true},
		{"hours wrap int64", "[2562047788015216:00:00] x", 0, "", false},
		{"minutes wrap int64", "[0:9223372036854775807:00] y", 0, "", false},
		{"beyond max offset", "[277778:00:00] z", 0, "", false},
		{"at max offset", "[277777:46:40] edge", MaxSeconds, "edge", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seconds, text, ok := Parse(tt.line)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.seconds, seconds)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	texts := []string{"first", "a b c", "[bracketed] note", "12:00 looks like a stamp"}
	for _, seconds := range []int{0, 1, 59, 60, 61, 599, 3599, 3600, 3902, 35999, 360000} {
		for _, text := range texts {
			line := Format(float64(seconds)) + " " + text
			got, gotText, ok := Parse(line)
			require.True(t, ok, "line %q", line)
			assert.Equal(t, float64(seconds), got, "line %q", line)
			assert.Equal(t, text, gotText, "line %q", line)
		}
	}
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{
		"[", "]", ":", "::", "[::]", "99999999999999999999999:00 overflow",
		"\x00\x01", "[1:2:3:4] x", "[2562047788015216:00:00] x", "[0:9223372036854775807:00] y", "　[00:01]　全角スペース", "00:00\n",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			seconds, _, ok := Parse(in)
			if ok {
				assert.GreaterOrEqual(t, seconds, float64(0))
			}
		}, "input %q", in)
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"90", 90, true},
		{"12.5", 12.5, true},
		{"1:30", 90, true},
		{"[1:00:00]", 3600, true},
		{"-3", 0, false},
		{"1e300", 0, false},
		{"+Inf", 0, false},
		{"1e9", MaxSeconds, true},
		{"1:30 with text", 0, false},
		{"soon", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOffset(tt.in)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
