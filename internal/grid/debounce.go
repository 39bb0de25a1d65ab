package grid

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period applied to free-text input.
const DefaultDebounce = 300 * time.Millisecond

// Timer is a pending delayed task.
type Timer interface {
	Stop() bool
}

// Scheduler runs a function after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// RealScheduler schedules tasks on the runtime timer.
var RealScheduler Scheduler = realScheduler{}

// Debouncer runs only the most recently submitted task after a quiet period.
// Submitting a new task cancels a pending one.
type Debouncer struct {
	mu        sync.Mutex
	delay     time.Duration
	scheduler Scheduler
	pending   Timer
	gen       uint64
}

// NewDebouncer builds a Debouncer. A nil scheduler uses RealScheduler.
func NewDebouncer(delay time.Duration, scheduler Scheduler) *Debouncer {
	if scheduler == nil {
		scheduler = RealScheduler
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, scheduler: scheduler}
}

// Submit replaces any pending task with fn.
func (d *Debouncer) Submit(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = d.scheduler.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.gen++
}
