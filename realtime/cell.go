package realtime

import "sync"

// Cell is a single-slot observable value. Writers overwrite, readers see the
// latest value, and subscribers receive latest-wins notifications: a slow
// subscriber skips intermediate values instead of blocking the writer.
type Cell[T any] struct {
	mu   sync.Mutex
	val  T
	subs map[chan T]struct{}
}

// NewCell creates a Cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		val:  initial,
		subs: make(map[chan T]struct{}),
	}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

// Set stores v and notifies every subscriber.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val = v
	for ch := range c.subs {
		// Drain the stale value, then deliver the fresh one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe registers a notification channel carrying the latest value. The
// returned cancel func must be called when the subscriber is done; the
// channel is closed by cancel.
func (c *Cell[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		_, ok := c.subs[ch]
		delete(c.subs, ch)
		c.mu.Unlock()
		if ok {
			close(ch)
		}
	}
	return ch, cancel
}
