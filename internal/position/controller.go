// Package position keeps an inverted seek control in step with a playing
// media stream. A sampler goroutine drives the control while the user is not
// touching it; user gestures drive debounced seeks while they are.
//
// The control runs from 0 to the track length and is inverted: its value is
// total-elapsed, so the low end stands for the end of the track.
package position

import (
	"context"
	"sync"
	"time"

	"karolbroda.com/lyricsync/internal/logger"
)

const (
	DefaultSampleInterval = 100 * time.Millisecond
	MinSampleInterval     = 10 * time.Millisecond
	DefaultSeekDebounce   = 150 * time.Millisecond

	stopTimeout = 500 * time.Millisecond
)

// Player is the part of the media player the controller needs. Calls are
// best effort; a length of 0 means the length is not known yet.
type Player interface {
	TimeMs() int64
	LengthMs() int64
	SetPositionMs(ms int64)
}

// Display receives programmatic writes. Implementations must not report these
// writes back as user gestures.
type Display interface {
	SetRange(totalMs int64)
	SetValue(value int64)
	SetElapsed(ms int64)
}

type Sample struct {
	PositionMs int64
	TotalMs    int64
}

// Listener is called with every sample, whether or not the user is seeking.
type Listener func(Sample)

type Options struct {
	SampleInterval time.Duration
	SeekDebounce   time.Duration
	Immediate      bool
}

// State is a snapshot of the controller's shared state.
type State struct {
	TotalMs    int64
	Value      int64
	Seeking    bool
	Pending    int64
	HasPending bool
	Immediate  bool
}

type timer interface {
	Stop() bool
}

type Controller struct {
	player    Player
	display   Display
	log       *logger.Logger
	interval  time.Duration
	debounce  time.Duration
	afterFunc func(time.Duration, func()) timer

	mu         sync.Mutex
	totalMs    int64
	lastLength int64
	value      int64
	seeking    bool
	pending    int64
	hasPending bool
	immediate  bool
	// pushed is the last value written to the display by the controller
	// itself, kept until a widget echoes it back.
	pushed     int64
	hasPushed  bool
	seekTimer  timer
	timerGen   uint64
	listeners  []Listener

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(player Player, display Display, log *logger.Logger, opts Options) *Controller {
	if display == nil {
		display = nopDisplay{}
	}
	if log == nil {
		log = logger.Discard()
	}

	interval := opts.SampleInterval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if interval < MinSampleInterval {
		interval = MinSampleInterval
	}

	debounce := opts.SeekDebounce
	if debounce <= 0 {
		debounce = DefaultSeekDebounce
	}

	return &Controller{
		player:    player,
		display:   display,
		log:       log,
		interval:  interval,
		debounce:  debounce,
		immediate: opts.Immediate,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
}

func (c *Controller) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Controller) SetImmediate(immediate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.immediate = immediate
}

func (c *Controller) Immediate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.immediate
}

func (c *Controller) SampleInterval() time.Duration { return c.interval }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		TotalMs:    c.totalMs,
		Value:      c.value,
		Seeking:    c.seeking,
		Pending:    c.pending,
		HasPending: c.hasPending,
		Immediate:  c.immediate,
	}
}

// effects collects the writes decided under c.mu so they can be applied
// after it is released. A display that calls back into the controller
// therefore cannot deadlock it.
type effects struct {
	setRange   bool
	rangeMax   int64
	setValue   bool
	value      int64
	setElapsed bool
	elapsed    int64
	seek       bool
	seekMs     int64
}

// pushLocked records a programmatic control write. It expects c.mu to be held.
func (c *Controller) pushLocked(e *effects, value int64) {
	e.setValue, e.value = true, value
	c.pushed, c.hasPushed = value, true
}

func (c *Controller) apply(e effects) {
	if e.setRange {
		c.display.SetRange(e.rangeMax)
	}
	if e.setValue {
		c.display.SetValue(e.value)
	}
	if e.setElapsed {
		c.display.SetElapsed(e.elapsed)
	}
	if e.seek && c.player != nil {
		c.log.Debug("seek to %dms", e.seekMs)
		c.player.SetPositionMs(e.seekMs)
	}
}

// OnSamplerTick maps a sampled position onto the control. The control is
// only written while idle; elapsed time and listeners are always updated.
func (c *Controller) OnSamplerTick(positionMs int64) {
	if positionMs < 0 {
		positionMs = 0
	}

	c.mu.Lock()
	e := effects{setElapsed: true, elapsed: positionMs}
	total := c.totalMs
	if !c.seeking && total > 0 {
		c.value = total - clamp(positionMs, 0, total)
		c.pushLocked(&e, c.value)
	}
	listeners := c.listeners
	c.mu.Unlock()

	c.apply(e)
	notify(listeners, Sample{PositionMs: positionMs, TotalMs: total})
}

// OnLengthChanged adopts a new track length (at least 1ms) and resets the
// control range. A pending seek that no longer fits is dropped.
func (c *Controller) OnLengthChanged(totalMs int64) {
	if totalMs < 1 {
		totalMs = 1
	}

	c.mu.Lock()
	c.totalMs = totalMs
	c.lastLength = totalMs
	e := effects{setRange: true, rangeMax: totalMs}

	if c.hasPending && c.pending > totalMs {
		c.stopTimerLocked()
		c.hasPending = false
	}

	if !c.seeking || c.value > totalMs {
		c.value = totalMs
		c.pushLocked(&e, totalMs)
	}
	c.mu.Unlock()

	c.apply(e)
}

// OnUserPressed marks the start of a gesture. Any pending seek is abandoned.
func (c *Controller) OnUserPressed() {
	c.mu.Lock()
	c.seeking = true
	c.stopTimerLocked()
	c.hasPending = false
	c.mu.Unlock()
}

// OnUserDragged handles movement of the control to value. In immediate mode
// the seek happens now; otherwise it is coalesced behind the debounce timer
// and only the latest value is used.
func (c *Controller) OnUserDragged(value int64) {
	c.mu.Lock()
	c.seeking = true
	e := c.moveLocked(value)
	c.mu.Unlock()

	c.apply(e)
}

// OnValueChanged is for widgets that report every value change, including
// programmatic ones. Changes arriving while idle, repeating the current value
// or repeating the last programmatic write are echoes and are ignored. The
// last case covers a sampler write that lands after a gesture began.
func (c *Controller) OnValueChanged(value int64) {
	c.mu.Lock()
	if c.hasPushed && value == c.pushed {
		c.hasPushed = false
		c.mu.Unlock()
		return
	}
	if !c.seeking || value == c.value {
		c.mu.Unlock()
		return
	}
	e := c.moveLocked(value)
	c.mu.Unlock()

	c.apply(e)
}

// moveLocked expects c.mu to be held.
func (c *Controller) moveLocked(value int64) effects {
	c.stopTimerLocked()
	c.hasPending = false

	if c.totalMs > 0 {
		value = clamp(value, 0, c.totalMs)
	}
	c.value = value
	e := effects{setValue: true, value: value}

	if c.immediate {
		e.seek, e.seekMs = true, c.seekTargetLocked(value)
		return e
	}

	c.pending = value
	c.hasPending = true
	c.startTimerLocked()
	return e
}

// OnUserReleased ends a gesture with one authoritative seek to the control's
// current value, whether or not the debounce timer already fired.
func (c *Controller) OnUserReleased() {
	var length int64
	if c.player != nil {
		length = c.player.LengthMs()
	}

	c.mu.Lock()
	c.seeking = false
	c.stopTimerLocked()
	c.hasPending = false

	var e effects
	if length > 0 && length != c.totalMs {
		c.totalMs = length
		c.lastLength = length
		c.value = clamp(c.value, 0, length)
		e.setRange, e.rangeMax = true, length
		c.pushLocked(&e, c.value)
	}

	if c.totalMs > 0 {
		e.seek, e.seekMs = true, c.seekTargetLocked(c.value)
	} else {
		c.log.Debug("release ignored: track length unknown")
	}
	c.mu.Unlock()

	c.apply(e)
}

// OnExternalStop resets the control after playback was stopped elsewhere.
func (c *Controller) OnExternalStop() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.hasPending = false
	c.seeking = false
	c.value = c.totalMs
	e := effects{setElapsed: true, elapsed: 0}
	c.pushLocked(&e, c.totalMs)
	c.mu.Unlock()

	c.apply(e)
}

// SeekTo jumps playback to ms and moves the control there without waiting
// for the next sample.
func (c *Controller) SeekTo(ms int64) {
	if ms < 0 {
		ms = 0
	}

	c.mu.Lock()
	total := c.totalMs
	if total > 0 {
		ms = clamp(ms, 0, total)
	}
	e := effects{seek: true, seekMs: ms, setElapsed: true, elapsed: ms}
	if !c.seeking && total > 0 {
		c.value = total - ms
		c.pushLocked(&e, c.value)
	}
	listeners := c.listeners
	c.mu.Unlock()

	c.apply(e)
	notify(listeners, Sample{PositionMs: ms, TotalMs: total})
}

// Reset forgets the track length and any gesture in progress, e.g. before
// another file is loaded.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.hasPending = false
	c.pending = 0
	c.seeking = false
	c.totalMs = 0
	c.lastLength = 0
	c.value = 0
	c.hasPushed = false
	c.mu.Unlock()
}

func (c *Controller) onDebounceFire(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen || !c.hasPending {
		c.mu.Unlock()
		return
	}
	e := effects{seek: true, seekMs: c.seekTargetLocked(c.pending)}
	c.hasPending = false
	c.seekTimer = nil
	c.mu.Unlock()

	c.apply(e)
}

// seekTargetLocked expects c.mu to be held.
func (c *Controller) seekTargetLocked(value int64) int64 {
	return clamp(c.totalMs-value, 0, c.totalMs)
}

// startTimerLocked expects c.mu to be held.
func (c *Controller) startTimerLocked() {
	c.timerGen++
	gen := c.timerGen
	c.seekTimer = c.afterFunc(c.debounce, func() {
		c.onDebounceFire(gen)
	})
}

// stopTimerLocked expects c.mu to be held. Bumping the generation makes a
// timer that already started firing a no-op.
func (c *Controller) stopTimerLocked() {
	c.timerGen++
	if c.seekTimer != nil {
		c.seekTimer.Stop()
		c.seekTimer = nil
	}
}

func notify(listeners []Listener, s Sample) {
	for _, l := range listeners {
		l(s)
	}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type nopDisplay struct{}

func (nopDisplay) SetRange(int64)   {}
func (nopDisplay) SetValue(int64)   {}
func (nopDisplay) SetElapsed(int64) {}
