package position

import (
	"context"
	"time"
)

// Start launches the sampler. Calling Start on a running controller is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.sampleLoop(ctx, c.done)
}

// Stop halts the sampler, waiting at most 500ms for it, and cancels any
// pending debounced seek. A sampler that does not exit in time is logged and
// left to finish on its own.
func (c *Controller) Stop() {
	c.runMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.runMu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-time.After(stopTimeout):
			c.log.Warn("sampler did not stop within %s", stopTimeout)
		}
	}

	c.mu.Lock()
	c.stopTimerLocked()
	c.hasPending = false
	c.mu.Unlock()
}

func (c *Controller) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.cancel != nil
}

func (c *Controller) sampleLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

// sample reads the player once. Player failures surface as zero values, so a
// bad tick simply does nothing useful; a panic in a collaborator is logged
// and the loop keeps going.
func (c *Controller) sample() {
	if c.player == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("sampler tick failed: %v", r)
		}
	}()

	pos := c.player.TimeMs()
	length := c.player.LengthMs()

	c.mu.Lock()
	lengthChanged := length > 0 && length != c.lastLength
	c.mu.Unlock()

	if lengthChanged {
		c.OnLengthChanged(length)
	}
	c.OnSamplerTick(pos)
}
