package ui

import "math"

const (
	scrollEase = 0.35
	glowDecay  = 0.85
)

// animState eases the lyric list towards its target scroll row and fades a
// glow on the active row after it changes.
type animState struct {
	scroll float64
	target float64
	glow   float64
}

func (a *animState) reset() {
	*a = animState{}
}

func (a *animState) rowChanged() {
	a.glow = 1
}

func (a *animState) scrollTo(top int, jump bool) {
	a.target = float64(top)
	if jump {
		a.scroll = a.target
	}
}

// step advances one frame and reports whether anything is still moving.
func (a *animState) step() bool {
	moving := false

	if d := a.target - a.scroll; math.Abs(d) < 0.05 {
		a.scroll = a.target
	} else {
		a.scroll += d * scrollEase
		moving = true
	}

	if a.glow > 0 {
		a.glow *= glowDecay
		if a.glow < 0.01 {
			a.glow = 0
		}
		moving = true
	}
	return moving
}

func (a *animState) top() int {
	return int(math.Round(a.scroll))
}
