package sched

import (
	"context"
	"slices"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/gomlx/exceptions"
)

// NewCollectiveEntry appends an entry running the collective algorithm already built into inner,
// which must be a child schedule of s (see Schedule.NewChild).
func NewCollectiveEntry(s *Schedule, p coll.Param, algorithm string, inner *Schedule) *Entry {
	if inner == nil || inner.parent != s {
		exceptions.Panicf("NewCollectiveEntry(%s): inner schedule must be a child of schedule %s", p.CType, s.id)
	}
	return s.append(&Entry{
		kind:       KindCollective,
		name:       p.CType.String(),
		collective: &CollectiveArgs{Param: p, Algorithm: algorithm, Inner: inner},
	})
}

// NewCopyEntry appends a copy of count elements of dtype from src to dst.
//
// In single-list mode the entry waits for the events in wait (the accumulated wait list of the
// caller) before executing. In multi-list mode wait is ignored: ordering comes from barriers only.
// Either way the copy publishes a signal event (see Entry.SignalEvent), which callers append to
// their wait list.
//
// An invalid dst with count 0 is a no-op copy.
func NewCopyEntry(s *Schedule, src, dst backends.Buffer, count int, dtype dtypes.DType, attr backends.CopyAttr,
	wait []backends.Event) *Entry {
	if count < 0 {
		exceptions.Panicf("NewCopyEntry: negative count %d", count)
	}
	if dtype.Size() <= 0 {
		exceptions.Panicf("NewCopyEntry: invalid dtype %s", dtype)
	}
	if count > 0 && (!src.IsValid() || !dst.IsValid()) {
		exceptions.Panicf("NewCopyEntry: copy of %d x %s with invalid buffers (src=%s, dst=%s)", count, dtype, src, dst)
	}
	e := &Entry{
		kind: KindCopy,
		name: attr.Direction.String(),
		copy: &CopyArgs{Src: src, Dst: dst, Count: count, DType: dtype, Attr: attr},
	}
	if s.UseSingleList {
		e.wait = slices.Clone(wait)
	}
	s.append(e)
	e.SignalEvent()
	return e
}

// NewWaitEventsEntry appends an entry that waits for all the events.
func NewWaitEventsEntry(s *Schedule, events []backends.Event) *Entry {
	if len(events) == 0 {
		exceptions.Panicf("NewWaitEventsEntry: empty list of events")
	}
	for i, ev := range events {
		if ev == nil {
			exceptions.Panicf("NewWaitEventsEntry: event #%d is nil", i)
		}
	}
	return s.append(&Entry{kind: KindWaitEvents, waitEvents: slices.Clone(events)})
}

// NewSignalEventEntry appends an entry that signals ev.
func NewSignalEventEntry(s *Schedule, ev backends.Event) *Entry {
	if ev == nil {
		exceptions.Panicf("NewSignalEventEntry: nil event")
	}
	e := s.append(&Entry{kind: KindSignalEvent, signalEvent: ev})
	e.signal = ev
	return e
}

// NewHandleExchangeEntry appends an exchange of the IPC handles of mems among the ranks of comm.
// skipRank (if >= 0) publishes no handles.
func NewHandleExchangeEntry(s *Schedule, comm coll.Communicator, mems []backends.Memory, skipRank int) *Entry {
	if comm == nil {
		exceptions.Panicf("NewHandleExchangeEntry: nil communicator")
	}
	for i, mem := range mems {
		if mem == nil {
			exceptions.Panicf("NewHandleExchangeEntry: memory #%d is nil", i)
		}
	}
	return s.append(&Entry{
		kind:           KindHandleExchange,
		handleExchange: &HandleExchangeArgs{Comm: comm, Mems: slices.Clone(mems), SkipRank: skipRank},
	})
}

// NewBarrierEntry appends a cross-rank barrier on comm backed by the event at poolIndex of pool.
func NewBarrierEntry(s *Schedule, comm coll.Communicator, pool backends.EventPool, poolIndex int) *Entry {
	if comm == nil || pool == nil {
		exceptions.Panicf("NewBarrierEntry: communicator and event pool must be given")
	}
	if poolIndex < 0 || poolIndex >= pool.Size() {
		exceptions.Panicf("NewBarrierEntry: pool index %d out of range [0, %d)", poolIndex, pool.Size())
	}
	return s.append(&Entry{
		kind:    KindBarrier,
		barrier: &BarrierArgs{Comm: comm, Pool: pool, PoolIndex: poolIndex},
	})
}

// NewSubScheduleEntry appends an entry that runs child, a schedule nested in s, on a worker.
func NewSubScheduleEntry(s *Schedule, name string, child *Schedule) *Entry {
	if child == nil || child.parent != s {
		exceptions.Panicf("NewSubScheduleEntry(%q): sub-schedule must be a child of schedule %s", name, s.id)
	}
	return s.append(&Entry{kind: KindSubSchedule, name: name, subSchedule: child})
}

// NewFunctionEntry appends an entry that calls fn.
func NewFunctionEntry(s *Schedule, name string, fn func(ctx context.Context) error) *Entry {
	if fn == nil {
		exceptions.Panicf("NewFunctionEntry(%q): nil function", name)
	}
	return s.append(&Entry{kind: KindFunction, name: name, fn: fn})
}
