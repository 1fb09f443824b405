package ui

import "time"

// DefaultDebounce is how long query edits must pause before a requery.
const DefaultDebounce = 120 * time.Millisecond

// Debounce tracks a pending action that becomes due once Delay has
// passed since the most recent Mark.
type Debounce struct {
	Delay   time.Duration
	pending bool
	last    time.Time
}

// Mark records an edit at now, restarting the window.
func (d *Debounce) Mark(now time.Time) {
	d.pending = true
	d.last = now
}

// Due reports whether the pending edit has been quiet for Delay.
func (d *Debounce) Due(now time.Time) bool {
	return d.pending && now.Sub(d.last) >= d.Delay
}

// Clear consumes the pending edit.
func (d *Debounce) Clear() {
	d.pending = false
}
