package fps

import "time"

// DefaultInterval is the snapshot cadence.
const DefaultInterval = time.Second

// Window is a wall-clock gate deciding when the current window is flushed.
// It is purely time based: the number of samples never triggers a flush.
// Window is not safe for concurrent use; the ingest loop owns it.
type Window struct {
	interval time.Duration
	start    time.Time
}

// NewWindow starts a window at now. A non-positive interval uses DefaultInterval.
func NewWindow(interval time.Duration, now time.Time) *Window {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Window{interval: interval, start: now}
}

// Due reports whether at least one interval has elapsed since the last reset.
func (w *Window) Due(now time.Time) bool {
	return now.Sub(w.start) >= w.interval
}

// Reset begins a new window at now.
func (w *Window) Reset(now time.Time) { w.start = now }

// Interval returns the configured flush interval.
func (w *Window) Interval() time.Duration { return w.interval }
