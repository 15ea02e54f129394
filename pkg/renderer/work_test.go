package renderer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterConcurrentIncrease(t *testing.T) {
	const goroutines, perGoroutine = 8, 1000
	c := NewCounter()

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.Increase()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine, c.Value())
}

func TestCounterWaitWakesOnIncrease(t *testing.T) {
	c := NewCounter()
	result := make(chan int)
	go func() {
		result <- c.Wait(10 * time.Second)
	}()

	// Increase until the waiter has observed a change
	for {
		c.Increase()
		select {
		case v := <-result:
			assert.GreaterOrEqual(t, v, 1)
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCounterWaitTimesOut(t *testing.T) {
	c := NewCounter()
	start := time.Now()
	v := c.Wait(20 * time.Millisecond)

	assert.Equal(t, 0, v)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestCounterReset(t *testing.T) {
	c := NewCounter()
	c.Increase()
	c.Increase()
	_, changed := c.Watch()

	c.Reset()

	assert.Equal(t, 0, c.Value())
	select {
	case <-changed:
	default:
		t.Fatal("Reset should wake watchers")
	}
}

func TestWorkCoordinatorClaimsEveryUnitOnce(t *testing.T) {
	const total = 500
	w := NewWorkCoordinator(total)

	var mu sync.Mutex
	seen := make(map[int]int)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(func(unit int) {
				mu.Lock()
				seen[unit]++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	require.Len(t, seen, total)
	for unit, count := range seen {
		assert.True(t, unit >= 0 && unit < total, "unit %d out of range", unit)
		assert.Equal(t, 1, count, "unit %d claimed %d times", unit, count)
	}
	assert.Equal(t, total, w.Completed())

	_, ok := w.Claim()
	assert.False(t, ok)
}

func TestWorkCoordinatorDrainAfterPartialWork(t *testing.T) {
	const total = 100
	w := NewWorkCoordinator(total)

	dispatched := 0
	for dispatched < 50 {
		_, ok := w.Claim()
		require.True(t, ok)
		w.Complete()
		dispatched++
	}

	drained := w.Drain()

	assert.Equal(t, total, dispatched+drained)
	assert.Equal(t, total, w.Completed())
	_, ok := w.Claim()
	assert.False(t, ok, "nothing may be dispatched after a drain")
}

func TestWorkCoordinatorDrainWhileWorkersRun(t *testing.T) {
	const total = 100
	w := NewWorkCoordinator(total)

	var mu sync.Mutex
	var dispatched []int
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(func(unit int) {
				mu.Lock()
				dispatched = append(dispatched, unit)
				mu.Unlock()
				if unit >= 50 {
					<-release
				}
			})
		}()
	}

	for w.Completed() < 50 {
		time.Sleep(time.Millisecond)
	}
	drained := w.Drain()
	close(release)
	wg.Wait()

	assert.Equal(t, total, w.Completed())
	assert.Equal(t, total, len(dispatched)+drained)
	assert.Less(t, len(dispatched), total)
	for _, unit := range dispatched {
		assert.Less(t, unit, total)
	}
}

func TestWorkCoordinatorReset(t *testing.T) {
	w := NewWorkCoordinator(3)
	w.Run(func(int) {})
	require.Equal(t, 3, w.Completed())

	w.Reset()

	unit, ok := w.Claim()
	assert.True(t, ok)
	assert.Equal(t, 0, unit)
	assert.Equal(t, 0, w.Completed())
}
