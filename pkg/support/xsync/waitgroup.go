package xsync

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrorWaitGroup is a WaitGroup-like synchronization primitive that also keeps the first
// error reported by the tasks it waits for. The count can be changed (new tasks added)
// while someone is waiting for it.
//
// It uses sync.Cond to coordinate changes.
type ErrorWaitGroup struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int64
	err   error
}

// NewErrorWaitGroup creates a new ErrorWaitGroup.
func NewErrorWaitGroup() *ErrorWaitGroup {
	wg := &ErrorWaitGroup{}
	wg.cond = sync.NewCond(&wg.mu)
	return wg
}

// Add changes the counter by the given delta.
// If the counter becomes zero, it broadcasts to all waiting goroutines.
// If the counter would go negative, it panics.
func (wg *ErrorWaitGroup) Add(delta int) {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	wg.count += int64(delta)
	if wg.count < 0 {
		panic(errors.Errorf("ErrorWaitGroup: negative counter"))
	}
	if wg.count == 0 {
		wg.cond.Broadcast()
	}
}

// Done decrements the counter by one, recording err if it is the first non-nil error.
func (wg *ErrorWaitGroup) Done(err error) {
	if err != nil {
		wg.mu.Lock()
		if wg.err == nil {
			wg.err = err
		}
		wg.mu.Unlock()
	}
	wg.Add(-1)
}

// Err returns the first error reported so far, without waiting.
func (wg *ErrorWaitGroup) Err() error {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	return wg.err
}

// Wait blocks until the counter is zero and returns the first error reported.
func (wg *ErrorWaitGroup) Wait() error {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	// sync.Cond.Wait() can have spurious wakeups.
	for wg.count > 0 {
		wg.cond.Wait()
	}
	return wg.err
}
