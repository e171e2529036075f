package rate

import (
	"sync"
	"time"
)

// Debouncer serializes scan processing and suppresses re-entrant scans for a
// settle window after each scan completes. Safe for concurrent use.
type Debouncer struct {
	mu         sync.Mutex
	window     time.Duration
	inFlight   bool
	quietUntil time.Time

	now func() time.Time // test hook
}

// NewDebouncer creates a debouncer with the given settle window. A zero or
// negative window disables the post-scan quiet period but still enforces
// single-flight processing.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		now:    time.Now,
	}
}

// Acquire attempts to start processing a scan. It returns false while another
// scan is in flight or the settle window from the previous scan is still open.
func (d *Debouncer) Acquire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight || d.now().Before(d.quietUntil) {
		return false
	}
	d.inFlight = true
	return true
}

// Settle marks the in-flight scan as finished and opens the settle window.
// It must be called exactly once per successful Acquire, regardless of the
// scan outcome.
func (d *Debouncer) Settle() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inFlight = false
	if d.window > 0 {
		d.quietUntil = d.now().Add(d.window)
	}
}

// Reset clears both the in-flight flag and any open settle window.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inFlight = false
	d.quietUntil = time.Time{}
}
