package search

import (
	"sync"
	"sync/atomic"
	"time"
)

// control is the task-wide pause/stop state shared by every worker. Flags are
// atomics so the hot loop never takes the mutex; the mutex and condition
// variable are only used to park and wake paused workers.
type control struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool

	pausedFlag atomic.Bool
	stopped    atomic.Bool
	interval   atomic.Int64
}

func newControl(interval time.Duration) *control {
	c := &control{}
	c.cond = sync.NewCond(&c.mu)
	c.interval.Store(int64(interval))
	return c
}

// pause reports whether the call changed state.
func (c *control) pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || c.stopped.Load() {
		return false
	}
	c.paused = true
	c.pausedFlag.Store(true)
	return true
}

func (c *control) resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return false
	}
	c.paused = false
	c.pausedFlag.Store(false)
	c.cond.Broadcast()
	return true
}

func (c *control) stop() bool {
	if !c.stopped.CompareAndSwap(false, true) {
		return false
	}
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
	return true
}

func (c *control) isPaused() bool  { return c.pausedFlag.Load() }
func (c *control) isStopped() bool { return c.stopped.Load() }

// wait parks the caller while the task is paused. It returns false when the
// task was stopped. Wakes re-check both flags, so spurious wakeups are
// harmless.
func (c *control) wait() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.paused && !c.stopped.Load() {
		c.cond.Wait()
	}
	return !c.stopped.Load()
}

func (c *control) reportInterval() time.Duration {
	return time.Duration(c.interval.Load())
}

func (c *control) setReportInterval(d time.Duration) {
	c.interval.Store(int64(d))
}
