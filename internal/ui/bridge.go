package ui

import "sync"

// DisplayState is what the position controller last wrote to the seek bar.
type DisplayState struct {
	TotalMs   int64
	Value     int64
	ElapsedMs int64
	Row       int
}

// Bridge receives controller and session writes on their goroutines and
// hands them to the bubbletea loop. Writes only store the latest state and
// raise a coalescing signal, so they never block and never re-enter the
// controller.
type Bridge struct {
	mu      sync.Mutex
	state   DisplayState
	changed chan struct{}
}

func NewBridge() *Bridge {
	return &Bridge{
		state:   DisplayState{Row: -1},
		changed: make(chan struct{}, 1),
	}
}

func (b *Bridge) SetRange(totalMs int64) {
	b.update(func(s *DisplayState) { s.TotalMs = totalMs })
}

func (b *Bridge) SetValue(value int64) {
	b.update(func(s *DisplayState) { s.Value = value })
}

func (b *Bridge) SetElapsed(ms int64) {
	b.update(func(s *DisplayState) { s.ElapsedMs = ms })
}

// RowChanged is registered with the session as its row change callback.
func (b *Bridge) RowChanged(row int) {
	b.update(func(s *DisplayState) { s.Row = row })
}

func (b *Bridge) Snapshot() DisplayState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Changed fires at least once after any write.
func (b *Bridge) Changed() <-chan struct{} {
	return b.changed
}

func (b *Bridge) update(fn func(*DisplayState)) {
	b.mu.Lock()
	fn(&b.state)
	b.mu.Unlock()

	select {
	case b.changed <- struct{}{}:
	default:
	}
}
