package simgo

import (
	"context"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Memory is a simulated memory region, in host or device.
type Memory struct {
	id    string
	place backends.Place
	data  []byte
	owned bool
}

var _ backends.Memory = &Memory{}

// ID implements backends.Memory.
func (m *Memory) ID() string { return m.id }

// Place implements backends.Memory.
func (m *Memory) Place() backends.Place { return m.place }

// Size implements backends.Memory.
func (m *Memory) Size() int { return len(m.data) }

// Bytes implements backends.Memory.
func (m *Memory) Bytes() []byte { return m.data }

// Alloc implements backends.Runtime.
func (b *Backend) Alloc(size int, place backends.Place) (backends.Memory, error) {
	if b.failAlloc {
		return nil, errors.Errorf("simulated allocation failure of %d bytes in %s", size, place)
	}
	if size <= 0 {
		return nil, errors.Errorf("invalid allocation size %d", size)
	}
	b.liveAllocations.Add(1)
	return &Memory{id: newID(), place: place, data: make([]byte, size), owned: true}, nil
}

// Free implements backends.Runtime. Freeing memory not allocated by Alloc, or freeing twice,
// is a no-op.
func (b *Backend) Free(mem backends.Memory) {
	m, ok := mem.(*Memory)
	if !ok || !m.owned {
		return
	}
	m.owned = false
	b.liveAllocations.Add(-1)
}

// Wrap data as device (or host) memory, without allocating. It is used to hand user data to
// collectives, and it's never accounted as a live allocation.
func Wrap(data []byte, place backends.Place) *Memory {
	return &Memory{id: newID(), place: place, data: data}
}

// Copy implements backends.Runtime.
func (b *Backend) Copy(ctx context.Context, src, dst backends.Buffer, numBytes int, attr backends.CopyAttr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if numBytes == 0 {
		return nil
	}
	if !src.IsValid() || !dst.IsValid() {
		return errors.Errorf("%s copy of %d bytes from %s to %s: invalid buffer", attr.Direction, numBytes, src, dst)
	}
	if src.Offset()+numBytes > src.Memory().Size() || dst.Offset()+numBytes > dst.Memory().Size() {
		return errors.Errorf("%s copy of %d bytes from %s to %s overflows memory", attr.Direction, numBytes, src, dst)
	}
	copy(dst.Bytes(numBytes), src.Bytes(numBytes))
	b.copies.Add(1)
	b.copiedBytes.Add(int64(numBytes))
	if klog.V(3).Enabled() {
		klog.Infof("sim: %s copy %d bytes %s -> %s", attr.Direction, numBytes, src, dst)
	}
	return nil
}

// Event is a simulated completion event, built on a resettable latch.
type Event struct {
	latch *xsync.Latch
}

var _ backends.Event = &Event{}

// NewEvent implements backends.Runtime.
func (b *Backend) NewEvent() backends.Event {
	return &Event{latch: xsync.NewLatch()}
}

// Signal implements backends.Event.
func (e *Event) Signal() { e.latch.Trigger() }

// Wait implements backends.Event.
func (e *Event) Wait(ctx context.Context) error { return e.latch.Wait(ctx) }

// IsSignaled implements backends.Event.
func (e *Event) IsSignaled() bool { return e.latch.Test() }

// Reset implements backends.Event.
func (e *Event) Reset() { e.latch.Reset() }
