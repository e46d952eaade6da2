// Package markers decides which lyric row receives the next timestamp marker
// and which one loses it. It works on slot snapshots only; applying the result
// to the row store is left to the caller.
package markers

import (
	"strings"

	"karolbroda.com/lyricsync/internal/timecode"
)

type Slot struct {
	Filled bool
	Ms     int64
}

func Empty() Slot { return Slot{} }

func Filled(ms int64) Slot { return Slot{Filled: true, Ms: ms} }

// SlotsFromText builds slots from marker cell text. Any non-blank text counts
// as filled, even when it does not parse (its time is then 0).
func SlotsFromText(texts []string) []Slot {
	slots := make([]Slot, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		ms, _ := timecode.Parse(text)
		slots[i] = Filled(ms)
	}
	return slots
}

type Assignment struct {
	Row  int
	Text string
}

type Engine struct {
	// PreferForward breaks distance ties toward the row after the reference.
	PreferForward bool
}

func New() *Engine {
	return &Engine{PreferForward: true}
}

// AssignNearestEmpty picks the empty slot closest to refIndex and formats
// targetMs for it. A negative or out of range refIndex selects the first
// empty slot. It reports false when every slot is filled.
func (e *Engine) AssignNearestEmpty(slots []Slot, targetMs int64, refIndex int) (Assignment, bool) {
	best := -1

	if refIndex < 0 || refIndex >= len(slots) {
		for i, slot := range slots {
			if !slot.Filled {
				best = i
				break
			}
		}
	} else {
		bestDist := 0
		for i, slot := range slots {
			if slot.Filled {
				continue
			}
			dist := i - refIndex
			if dist < 0 {
				dist = -dist
			}
			switch {
			case best < 0 || dist < bestDist:
				best, bestDist = i, dist
			case dist == bestDist && e.PreferForward:
				// rows are visited in ascending order, so i is the later row
				best = i
			}
		}
	}

	if best < 0 {
		return Assignment{}, false
	}
	return Assignment{Row: best, Text: timecode.Format(targetMs)}, true
}

// RemoveLastFilled returns the highest filled row, or false when all are empty.
func (e *Engine) RemoveLastFilled(slots []Slot) (int, bool) {
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].Filled {
			return i, true
		}
	}
	return -1, false
}
