package sched

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/dtypes"
)

// EntryKind enumerates the variants of Entry.
type EntryKind int

//go:generate go tool enumer -type EntryKind -trimprefix=Kind -transform=snake -output=gen_entrykind_enumer.go entry.go

const (
	// KindCollective runs a collective algorithm, built into a nested schedule.
	KindCollective EntryKind = iota

	// KindCopy copies elements between two buffers.
	KindCopy

	// KindWaitEvents waits for a list of events.
	KindWaitEvents

	// KindSignalEvent signals an event.
	KindSignalEvent

	// KindHandleExchange exchanges IPC memory handles among the ranks of a communicator.
	KindHandleExchange

	// KindBarrier is a cross-rank barrier backed by an IPC event pool.
	KindBarrier

	// KindSubSchedule runs an independently built schedule on a worker.
	KindSubSchedule

	// KindFunction runs a function, used by the algorithms' building blocks.
	KindFunction
)

// Entry is one unit of work of a Schedule. It is a tagged variant: Kind tells which of the
// variant fields is set.
//
// Entries are created and appended by the factory functions (NewCopyEntry, NewBarrierEntry, ...).
type Entry struct {
	kind     EntryKind
	name     string
	sched    *Schedule
	index    int
	execMode ExecMode

	// wait lists the events the entry waits before executing.
	wait []backends.Event

	// signal is the event signaled when the entry finished executing, created on demand.
	signal backends.Event

	executions atomic.Int64

	collective     *CollectiveArgs
	copy           *CopyArgs
	waitEvents     []backends.Event
	signalEvent    backends.Event
	handleExchange *HandleExchangeArgs
	barrier        *BarrierArgs
	subSchedule    *Schedule
	fn             func(ctx context.Context) error
}

// CollectiveArgs of a KindCollective entry.
type CollectiveArgs struct {
	Param     coll.Param
	Algorithm string

	// Inner is the schedule the algorithm was built into. It's a child of the entry's schedule.
	Inner *Schedule
}

// CopyArgs of a KindCopy entry.
type CopyArgs struct {
	Src, Dst backends.Buffer
	Count    int
	DType    dtypes.DType
	Attr     backends.CopyAttr
}

// NumBytes copied.
func (c *CopyArgs) NumBytes() int {
	return c.Count * c.DType.Size()
}

// IsNoOp returns whether the copy moves nothing: a zero count or no destination.
func (c *CopyArgs) IsNoOp() bool {
	return c.Count == 0 || !c.Dst.IsValid()
}

// HandleExchangeArgs of a KindHandleExchange entry.
type HandleExchangeArgs struct {
	Comm     coll.Communicator
	Mems     []backends.Memory
	SkipRank int
}

// BarrierArgs of a KindBarrier entry.
type BarrierArgs struct {
	Comm      coll.Communicator
	Pool      backends.EventPool
	PoolIndex int
}

// Kind of the entry.
func (e *Entry) Kind() EntryKind { return e.kind }

// Name of the entry, for debugging and pretty-printing.
func (e *Entry) Name() string { return e.name }

// Schedule the entry was appended to.
func (e *Entry) Schedule() *Schedule { return e.sched }

// Index of the entry in its schedule.
func (e *Entry) Index() int { return e.index }

// ExecMode of the entry.
func (e *Entry) ExecMode() ExecMode { return e.execMode }

// WaitList returns the events the entry waits for before executing.
func (e *Entry) WaitList() []backends.Event { return e.wait }

// SignalEvent returns the event signaled when the entry finishes executing. It's created on
// first use, from the schedule's event manager.
func (e *Entry) SignalEvent() backends.Event {
	if e.signal == nil {
		e.signal = e.sched.mem.events.Create()
	}
	return e.signal
}

// HasSignalEvent returns whether the entry publishes a signal event.
func (e *Entry) HasSignalEvent() bool { return e.signal != nil }

// Executions returns how many times the entry was executed.
func (e *Entry) Executions() int { return int(e.executions.Load()) }

// Collective returns the arguments of a KindCollective entry, or nil.
func (e *Entry) Collective() *CollectiveArgs { return e.collective }

// Copy returns the arguments of a KindCopy entry, or nil.
func (e *Entry) Copy() *CopyArgs { return e.copy }

// Events returns the events waited by a KindWaitEvents entry, or signaled by a KindSignalEvent one.
func (e *Entry) Events() []backends.Event {
	if e.kind == KindSignalEvent {
		return []backends.Event{e.signalEvent}
	}
	return e.waitEvents
}

// HandleExchange returns the arguments of a KindHandleExchange entry, or nil.
func (e *Entry) HandleExchange() *HandleExchangeArgs { return e.handleExchange }

// Barrier returns the arguments of a KindBarrier entry, or nil.
func (e *Entry) Barrier() *BarrierArgs { return e.barrier }

// SubSchedule returns the schedule of a KindSubSchedule entry, or nil.
func (e *Entry) SubSchedule() *Schedule { return e.subSchedule }

// Describe returns a one-line description of the entry arguments.
func (e *Entry) Describe() string {
	switch e.kind {
	case KindCollective:
		return fmt.Sprintf("%s(%s) %d entries", e.collective.Algorithm, e.collective.Param, e.collective.Inner.Len())
	case KindCopy:
		c := e.copy
		if c.IsNoOp() {
			return fmt.Sprintf("%s no-op", c.Attr.Direction)
		}
		return fmt.Sprintf("%s %d x %s: %s -> %s", c.Attr.Direction, c.Count, c.DType, c.Src, c.Dst)
	case KindWaitEvents:
		return fmt.Sprintf("%d events", len(e.waitEvents))
	case KindSignalEvent:
		return "1 event"
	case KindHandleExchange:
		return fmt.Sprintf("%d handles, %d ranks, skip %d", len(e.handleExchange.Mems),
			e.handleExchange.Comm.Size(), e.handleExchange.SkipRank)
	case KindBarrier:
		return fmt.Sprintf("%d ranks, pool index %d", e.barrier.Comm.Size(), e.barrier.PoolIndex)
	case KindSubSchedule:
		return e.subSchedule.String()
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (e *Entry) String() string {
	s := e.kind.String()
	if e.name != "" && e.name != s {
		s += "[" + e.name + "]"
	}
	if e.execMode == ExecOnce {
		s += "(once)"
	}
	if desc := e.Describe(); desc != "" {
		s += ": " + desc
	}
	return s
}
