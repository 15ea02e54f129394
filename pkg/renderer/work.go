package renderer

import (
	"sync"
	"time"
)

// Counter is a mutex-guarded monotonic integer. Every Increase wakes all
// goroutines blocked in Wait.
type Counter struct {
	mu      sync.Mutex
	value   int
	changed chan struct{} // Closed and replaced on every change
}

// NewCounter creates a counter starting at zero
func NewCounter() *Counter {
	return &Counter{changed: make(chan struct{})}
}

// Increase adds one and returns the new value
func (c *Counter) Increase() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
	c.notify()
	return c.value
}

// Value returns the current value
func (c *Counter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Watch returns the current value and a channel closed on the next change
func (c *Counter) Watch() (int, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.changed
}

// Wait blocks until the counter changes or the timeout expires and returns the value
func (c *Counter) Wait(timeout time.Duration) int {
	_, changed := c.Watch()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-changed:
	case <-timer.C:
	}
	return c.Value()
}

// Reset sets the counter back to zero
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = 0
	c.notify()
}

// notify must be called with mu held
func (c *Counter) notify() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// WorkCoordinator hands out a fixed number of zero-based work units.
// One counter tracks claims, the other completions.
type WorkCoordinator struct {
	total     int
	next      *Counter
	completed *Counter
}

// NewWorkCoordinator creates a coordinator for total units
func NewWorkCoordinator(total int) *WorkCoordinator {
	return &WorkCoordinator{
		total:     total,
		next:      NewCounter(),
		completed: NewCounter(),
	}
}

// Total returns the number of units
func (w *WorkCoordinator) Total() int {
	return w.total
}

// Claim returns the next unit, or false once every unit has been handed out
func (w *WorkCoordinator) Claim() (int, bool) {
	n := w.next.Increase()
	if n > w.total {
		return 0, false
	}
	return n - 1, true
}

// Complete marks one claimed unit as finished and returns the completed count
func (w *WorkCoordinator) Complete() int {
	return w.completed.Increase()
}

// Completed returns the number of finished units
func (w *WorkCoordinator) Completed() int {
	return w.completed.Value()
}

// Drain claims every remaining unit without doing its work and marks it
// complete. It returns how many units were skipped.
func (w *WorkCoordinator) Drain() int {
	drained := 0
	for {
		if _, ok := w.Claim(); !ok {
			return drained
		}
		w.Complete()
		drained++
	}
}

// Run claims and processes units until none are left
func (w *WorkCoordinator) Run(work func(unit int)) {
	for {
		unit, ok := w.Claim()
		if !ok {
			return
		}
		work(unit)
		w.Complete()
	}
}

// Reset rewinds both counters for another render of the same size
func (w *WorkCoordinator) Reset() {
	w.next.Reset()
	w.completed.Reset()
}
