package core

import (
	"sync"
	"time"
)

// UnixClock reports Unix seconds as the ledger height. Suitable for hosts
// without a block counter of their own.
type UnixClock struct{}

func (UnixClock) Height() uint64 {
	now := time.Now().Unix()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

// StepClock is a manually advanced ledger clock for block-driven hosts
// and deterministic tests.
type StepClock struct {
	mu     sync.Mutex
	height uint64
}

func NewStepClock(start uint64) *StepClock {
	return &StepClock{height: start}
}

func (c *StepClock) Height() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Advance moves the clock forward by steps and returns the new height.
func (c *StepClock) Advance(steps uint64) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height += steps
	return c.height
}

var (
	_ LedgerClock = UnixClock{}
	_ LedgerClock = (*StepClock)(nil)
)
