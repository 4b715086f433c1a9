// Package xsync implements some extra synchronization tools.
package xsync

import (
	"context"
	"sync"
)

// Latch can be triggered once and waited on by any number of goroutines. Unlike a
// sync.Once it can be Reset, so the same latch is reused across replays of a schedule.
type Latch struct {
	mu        sync.Mutex
	triggered bool
	wait      chan struct{}
}

// NewLatch returns an un-triggered latch.
func NewLatch() *Latch {
	return &Latch{wait: make(chan struct{})}
}

// Trigger the latch, releasing all waiters. Triggering more than once is a no-op.
func (l *Latch) Trigger() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.triggered {
		return
	}
	l.triggered = true
	close(l.wait)
}

// Test returns whether the latch has been triggered.
func (l *Latch) Test() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.triggered
}

// WaitChan returns a channel that is closed when the latch is triggered.
func (l *Latch) WaitChan() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wait
}

// Wait blocks until the latch is triggered or ctx is done.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.WaitChan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset re-arms a triggered latch. Resetting while there are waiters leaves them
// waiting for the next Trigger.
func (l *Latch) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.triggered {
		return
	}
	l.triggered = false
	l.wait = make(chan struct{})
}
