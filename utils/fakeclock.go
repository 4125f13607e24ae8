package utils

import (
	"sync"
	"time"
)

// FakeClock is a manually driven Clock. Advance delivers one tick per elapsed
// period to every live ticker and blocks until the tick is received.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*FakeTicker
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set jumps to t without firing tickers.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *FakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &FakeTicker{
		c:      make(chan time.Time),
		done:   make(chan struct{}),
		period: d,
		next:   c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*FakeTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		for !t.next.After(now) {
			t.next = t.next.Add(t.period)
			select {
			case t.c <- now:
			case <-t.done:
			}
		}
	}
}

// FakeTicker is the Ticker of a FakeClock.
type FakeTicker struct {
	c      chan time.Time
	done   chan struct{}
	once   sync.Once
	period time.Duration
	next   time.Time
}

func (t *FakeTicker) C() <-chan time.Time { return t.c }

func (t *FakeTicker) Stop() {
	t.once.Do(func() { close(t.done) })
}
