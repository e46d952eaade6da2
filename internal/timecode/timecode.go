// Package timecode converts between playback positions in milliseconds and the
// M:SS.mmm marker text used in lyric rows.
package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var markerPattern = regexp.MustCompile(`^(\d{1,3}):(\d{2})\.(\d+)$`)

// Parse reads M:SS.mmm or MM:SS.mmm. Three minute digits are accepted so that
// anything Format produces below 1000 minutes parses back. Fractions shorter
// than three digits are right padded with zeros and longer ones are
// truncated, never rounded. Malformed text reports false.
func Parse(text string) (int64, bool) {
	parts := markerPattern.FindStringSubmatch(strings.TrimSpace(text))
	if parts == nil {
		return 0, false
	}

	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, false
	}
	millis, err := strconv.ParseInt(fraction(parts[3]), 10, 64)
	if err != nil {
		return 0, false
	}

	return (minutes*60+seconds)*1000 + millis, true
}

// Format renders ms as M:SS.mmm with unpadded minutes. Negative values clamp to zero.
func Format(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, (ms%60000)/1000, ms%1000)
}

// FormatClock renders ms as MM:SS.mmm for the elapsed time readout.
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms%60000)/1000, ms%1000)
}

// Normalize forces the fraction of a well formed marker to exactly three
// digits and trims whitespace. Minutes keep whatever padding they had.
func Normalize(text string) (string, bool) {
	parts := markerPattern.FindStringSubmatch(strings.TrimSpace(text))
	if parts == nil {
		return text, false
	}
	return parts[1] + ":" + parts[2] + "." + fraction(parts[3]), true
}

// IsCanonical reports whether text is already in the exact form rows are saved in.
func IsCanonical(text string) bool {
	parts := markerPattern.FindStringSubmatch(text)
	return parts != nil && len(parts[3]) == 3
}

func fraction(digits string) string {
	if len(digits) >= 3 {
		return digits[:3]
	}
	return digits + strings.Repeat("0", 3-len(digits))
}
