// Package highlight finds the lyric row whose time interval contains the
// playback position.
package highlight

import "karolbroda.com/lyricsync/internal/timecode"

// ActiveRow returns the row i with starts[i] <= ms < starts[i+1], where the
// last row is open ended, or -1 when ms precedes the first start.
//
// Starts are taken as given: they are not sorted or checked for monotonicity
// and the first row whose interval matches wins.
func ActiveRow(starts []int64, ms int64) int {
	for i, start := range starts {
		if i == len(starts)-1 {
			if ms >= start {
				return i
			}
			break
		}
		if start <= ms && ms < starts[i+1] {
			return i
		}
	}
	return -1
}

// StartsFromText decodes row markers; blank or malformed markers start at 0.
func StartsFromText(markers []string) []int64 {
	starts := make([]int64, len(markers))
	for i, marker := range markers {
		ms, ok := timecode.Parse(marker)
		if ok {
			starts[i] = ms
		}
	}
	return starts
}

// Tracker remembers the last reported row so callers can react to changes only.
// It is not safe for concurrent use.
type Tracker struct {
	current int
	primed  bool
}

func NewTracker() *Tracker {
	return &Tracker{current: -1}
}

// Update classifies ms and reports whether the active row differs from the
// previous call. The first call always reports a change.
func (t *Tracker) Update(starts []int64, ms int64) (int, bool) {
	row := ActiveRow(starts, ms)
	changed := !t.primed || row != t.current
	t.current = row
	t.primed = true
	return row, changed
}

func (t *Tracker) Current() int { return t.current }

func (t *Tracker) Reset() {
	t.current = -1
	t.primed = false
}
