package sched

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// EventManager creates and recycles the events of a schedule.
//
// Events are owned by the manager: entries only share references to them. All events are reset
// at the start of each execution of the schedule.
type EventManager struct {
	runtime backends.Runtime

	mu     sync.Mutex
	events []backends.Event
	free   []backends.Event
}

// Create returns a new, non-signaled event. Recycled events are reused first.
func (m *EventManager) Create() backends.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.free); n > 0 {
		ev := m.free[n-1]
		m.free = m.free[:n-1]
		ev.Reset()
		return ev
	}
	ev := m.runtime.NewEvent()
	m.events = append(m.events, ev)
	return ev
}

// Recycle returns ev to the manager, so it can be reused by Create. It's an error to use ev
// after recycling it.
func (m *EventManager) Recycle(ev backends.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.free = append(m.free, ev)
}

// Len returns the number of events created by the manager.
func (m *EventManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Reset all events to the non-signaled state.
func (m *EventManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		ev.Reset()
	}
}

// AllocParam describes a staging buffer allocation.
type AllocParam struct {
	// Size in bytes, it must be > 0.
	Size int

	// Place of the buffer: host buffers are used to stage device data for the network transport.
	Place backends.Place

	// Name used in logs.
	Name string
}

// Memory of a schedule: its event manager and the staging buffers it owns.
type Memory struct {
	runtime backends.Runtime
	events  *EventManager

	mu        sync.Mutex
	buffers   []backends.Memory
	allocated int
}

func newMemory(runtime backends.Runtime) *Memory {
	return &Memory{
		runtime: runtime,
		events:  &EventManager{runtime: runtime},
	}
}

// Events returns the event manager.
func (m *Memory) Events() *EventManager { return m.events }

// Buffers returns the staging buffers allocated so far.
func (m *Memory) Buffers() []backends.Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backends.Memory(nil), m.buffers...)
}

// AllocatedBytes returns the total size of the staging buffers allocated so far.
func (m *Memory) AllocatedBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocated
}

func (m *Memory) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.buffers {
		m.runtime.Free(mem)
	}
	m.buffers = nil
	m.allocated = 0
}

// AllocBuffer allocates a staging buffer owned by the schedule: it's freed with Schedule.Release.
//
// A size <= 0 panics: callers only allocate staging buffers once they know there is data to stage.
// Allocation failures are returned as errors, there is no retry.
func (s *Schedule) AllocBuffer(param AllocParam) (backends.Buffer, error) {
	if param.Size <= 0 {
		exceptions.Panicf("AllocBuffer(%q): invalid staging buffer size %d", param.Name, param.Size)
	}
	mem, err := s.runtime.Alloc(param.Size, param.Place)
	if err != nil {
		return backends.Buffer{}, errors.WithMessagef(err, "allocating %s staging buffer %q of %s",
			param.Place, param.Name, humanize.IBytes(uint64(param.Size)))
	}
	m := s.mem
	m.mu.Lock()
	m.buffers = append(m.buffers, mem)
	m.allocated += param.Size
	m.mu.Unlock()
	klog.V(1).Infof("schedule %s: allocated %s staging buffer %q of %s", s.id, param.Place, param.Name,
		humanize.IBytes(uint64(param.Size)))
	return backends.NewBuffer(mem), nil
}
