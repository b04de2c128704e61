package stacker

import (
	"sync"
	"time"
)

// Host schedules animation frames. Every callback for one scene must run on a
// single goroutine, one at a time.
type Host interface {
	// RequestFrame runs fn once on the next frame with the time since the
	// previous frame.
	RequestFrame(fn func(dt time.Duration))
}

// ManualHost queues frame requests until Advance is called. Intended for tests.
type ManualHost struct {
	mu    sync.Mutex
	queue []func(time.Duration)
}

// RequestFrame queues fn for the next Advance.
func (h *ManualHost) RequestFrame(fn func(dt time.Duration)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, fn)
}

// Pending returns the number of queued callbacks.
func (h *ManualHost) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Advance runs one frame: every callback queued before the call, each with dt.
// Callbacks requested during the frame wait for the next Advance.
//
// Postcondition: returns the number of callbacks run.
func (h *ManualHost) Advance(dt time.Duration) int {
	h.mu.Lock()
	queue := h.queue
	h.queue = nil
	h.mu.Unlock()
	for _, fn := range queue {
		fn(dt)
	}
	return len(queue)
}

// RunUntilIdle advances frames of length dt until nothing is queued or
// maxFrames have run.
//
// Postcondition: returns the number of frames advanced.
func (h *ManualHost) RunUntilIdle(dt time.Duration, maxFrames int) int {
	frames := 0
	for frames < maxFrames && h.Pending() > 0 {
		h.Advance(dt)
		frames++
	}
	return frames
}

// TickerHost runs frames in real time on its own goroutine.
type TickerHost struct {
	mu    sync.Mutex
	queue []func(time.Duration)

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewTickerHost starts a host that runs a frame every interval.
//
// Precondition: interval must be positive.
func NewTickerHost(interval time.Duration) *TickerHost {
	if interval <= 0 {
		panic("stacker.NewTickerHost: interval must be positive")
	}
	h := &TickerHost{stop: make(chan struct{}), done: make(chan struct{})}
	go h.loop(interval)
	return h
}

// RequestFrame queues fn for the next tick.
func (h *TickerHost) RequestFrame(fn func(dt time.Duration)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, fn)
}

// Stop halts the ticker and waits for an in-flight frame to return. Queued
// callbacks are dropped.
func (h *TickerHost) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *TickerHost) loop(interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			h.mu.Lock()
			queue := h.queue
			h.queue = nil
			h.mu.Unlock()
			for _, fn := range queue {
				fn(dt)
			}
		}
	}
}
