package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func TestWindow_RejectsNPlusOne(t *testing.T) {
	clock := newClock()
	w := NewWindow(3).WithClock(clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, w.Admit(), "admission %d", i+1)
		clock.Advance(time.Second)
	}
	assert.False(t, w.Admit())
	assert.Equal(t, 3, w.Len(), "rejected call must not be recorded")
}

func TestWindow_SlidesPastOldest(t *testing.T) {
	clock := newClock()
	w := NewWindow(2).WithClock(clock.Now)

	assert.True(t, w.Admit()) // t=0
	clock.Advance(30 * time.Second)
	assert.True(t, w.Admit()) // t=30
	clock.Advance(29 * time.Second)
	assert.False(t, w.Admit()) // t=59, both still inside

	clock.Advance(time.Second)
	assert.True(t, w.Admit(), "oldest stamp is exactly 60s old and pruned") // t=60
	assert.False(t, w.Admit())

	clock.Advance(30 * time.Second)
	assert.True(t, w.Admit()) // t=90, stamp from t=30 gone
}

func TestWindow_BurstIsCappedNotSmoothed(t *testing.T) {
	clock := newClock()
	w := NewWindow(5).WithClock(clock.Now)

	admitted := 0
	for i := 0; i < 20; i++ {
		if w.Admit() {
			admitted++
		}
	}
	assert.Equal(t, 5, admitted)
}

func TestWindow_NonPositiveLimitRejectsAll(t *testing.T) {
	w := NewWindow(0)
	assert.False(t, w.Admit())
	w.SetLimit(-1)
	assert.False(t, w.Admit())
}

func TestWindow_SetLimitAndReset(t *testing.T) {
	clock := newClock()
	w := NewWindow(1).WithClock(clock.Now)
	assert.True(t, w.Admit())
	assert.False(t, w.Admit())

	w.SetLimit(2)
	assert.Equal(t, 2, w.Limit())
	assert.True(t, w.Admit())
	assert.False(t, w.Admit())

	w.Reset()
	assert.Zero(t, w.Len())
	assert.True(t, w.Admit())
}

func TestWindow_ConcurrentAdmitNeverExceedsLimit(t *testing.T) {
	w := NewWindow(10)
	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.Admit() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), admitted.Load())
}
