package browse

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet window before typed input is committed
const DefaultDebounce = 500 * time.Millisecond

// Debouncer fires once, on the trailing edge, with the last value it was
// given inside the quiet window.
type Debouncer struct {
	delay time.Duration
	fire  func(string)

	mu    sync.Mutex
	timer *time.Timer
	armed uint64
}

// NewDebouncer creates a disarmed debouncer
func NewDebouncer(delay time.Duration, fire func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, fire: fire}
}

// Trigger cancels any pending timer and arms a new one for value
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.armed++
	token := d.armed
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// a Trigger or Cancel that raced the timer wins
		if token != d.armed {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fire(value)
	})
}

// Cancel disarms a pending timer without firing
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.stopLocked()
	d.armed++
	d.mu.Unlock()
}

// Pending reports whether a timer is armed
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
