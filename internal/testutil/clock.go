package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock hands out a controllable time so stored timestamps are
// deterministic. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2025-06-10 14:00:00 UTC, the
// reference instant store tests compare created_at and updated_at
// against.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, so tests can order records and
// observe updated_at changing.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator hands out sequential ids ("id-1", "id-2", ...) so
// records are addressable by predictable names in assertions.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}
