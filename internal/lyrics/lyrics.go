// Package lyrics holds the lyric rows being edited: the LRC text codec, the
// thread-safe row store and the audio tag reader/writer.
package lyrics

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"karolbroda.com/lyricsync/internal/timecode"
)

// Row is one lyric line. Marker is the M:SS.mmm start time, or "" while the
// line has not been timed yet.
type Row struct {
	Marker string
	Text   string
}

func (r Row) Timed() bool {
	return strings.TrimSpace(r.Marker) != ""
}

// ParseLRC turns LRC text into rows. Timed lines get a normalised marker;
// lines without a time tag become untimed rows. Blank lines, tag-only lines
// and LRC header tags such as [ar:...] are skipped.
func ParseLRC(raw string) []Row {
	if raw == "" {
		return nil
	}

	lines := strings.Split(raw, "\n")
	rows := make([]Row, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(trimmed, "[") {
			rows = append(rows, Row{Text: trimmed})
			continue
		}

		timePart, text := splitLrcLine(trimmed)
		if timePart == "" || text == "" {
			continue
		}

		if _, err := parseLrcTime(timePart); err != nil {
			continue
		}

		rows = append(rows, Row{Marker: normalizeMarker(timePart), Text: text})
	}

	return rows
}

var leadingTimestamp = regexp.MustCompile(`^\s*\[?\s*\d{1,2}:\d{2}(?:\.\d{1,3})?\s*\]?\s*`)

// ParsePlain turns pasted text into untimed rows. A byte order mark, blank
// lines and leading timestamps such as [00:09.60] are dropped and runs of
// whitespace collapse to one space.
func ParsePlain(raw string) []Row {
	raw = strings.TrimPrefix(raw, "\ufeff")

	var rows []Row
	for _, line := range strings.Split(raw, "\n") {
		line = leadingTimestamp.ReplaceAllString(strings.TrimSuffix(line, "\r"), "")
		text := strings.Join(strings.Fields(line), " ")
		if text == "" {
			continue
		}
		rows = append(rows, Row{Text: text})
	}
	return rows
}

// FormatLRC renders rows as LRC. Untimed rows are written without a tag.
func FormatLRC(rows []Row) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		if row.Timed() {
			b.WriteString("[" + strings.TrimSpace(row.Marker) + "]")
		}
		b.WriteString(strings.TrimSpace(row.Text))
	}
	return b.String()
}

func splitLrcLine(line string) (string, string) {
	endIndex := strings.Index(line, "]")
	if endIndex <= 1 {
		return "", ""
	}

	timePart := line[1:endIndex]
	textPart := strings.TrimSpace(line[endIndex+1:])
	if textPart == "" {
		return "", ""
	}

	return timePart, textPart
}

// parseLrcTime accepts mm:ss.xx and hh:mm:ss.xx and returns milliseconds.
func parseLrcTime(raw string) (int64, error) {
	if ms, ok := timecode.Parse(raw); ok {
		return ms, nil
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s", raw)
	}

	var hours, minutes, seconds float64
	var err error

	if len(parts) == 3 {
		if hours, err = parseFloatSafe(parts[0]); err != nil {
			return 0, err
		}
		parts = parts[1:]
	}
	if minutes, err = parseFloatSafe(parts[0]); err != nil {
		return 0, err
	}
	if seconds, err = parseFloatSafe(parts[1]); err != nil {
		return 0, err
	}

	total := hours*3600 + minutes*60 + seconds
	if total < 0 {
		return 0, errors.New("negative time not allowed")
	}

	return int64(total * 1000), nil
}

func parseFloatSafe(s string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", s, err)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("time field %q is not finite", s)
	}
	return value, nil
}
