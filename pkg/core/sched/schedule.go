// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sched implements the Schedule of one logical collective call: an ordered list of
// entries (copies, event waits and signals, IPC handle exchanges, cross-rank barriers,
// collective algorithms and sub-schedules), partitioned into stages by barriers.
//
// Schedules are built synchronously, by appending entries with the New*Entry factory
// functions, and executed later with Schedule.Execute. Entries are never removed or
// reordered once appended.
//
// Execution modes:
//
//   - Single-list: every entry executes in append order, ordering among asynchronous work is
//     expressed with explicit event hand-off (see NewCopyEntry).
//   - Multi-list: entries within a stage may execute concurrently. Entries in different stages
//     (separated by AddBarrier) never do.
//
// A schedule is additionally "strict order" if any of its entries requires in-order device
// execution. Once set, strict order can't be unset, and it forces in-order execution.
package sched

import (
	"fmt"
	"slices"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/internal/workerspool"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// ExecMode of an entry in a cached schedule.
type ExecMode int

//go:generate go tool enumer -type ExecMode -trimprefix=Exec -transform=lower -output=gen_execmode_enumer.go schedule.go

const (
	// ExecRegular entries execute on every execution of the schedule.
	ExecRegular ExecMode = iota

	// ExecOnce entries execute only on the first execution of the schedule, e.g. IPC
	// handle exchanges of cached schedules.
	ExecOnce
)

// Options to create a new Schedule.
type Options struct {
	// SingleList selects the single-list execution mode.
	SingleList bool

	// Attr are the caller attributes of the collective call.
	Attr coll.Attr

	// Pool used to execute entries concurrently in multi-list mode, and to run sub-schedules.
	// If nil, a pool with unlimited parallelism is used.
	Pool *workerspool.Pool
}

// Schedule is the ordered container of entries and barriers of one collective call.
type Schedule struct {
	id       string
	runtime  backends.Runtime
	parent   *Schedule
	pool     *workerspool.Pool
	mem      *Memory
	attr     coll.Attr
	ownAttr  bool
	children []*Schedule

	// UseSingleList execution mode.
	UseSingleList bool

	strictOrder bool
	execMode    ExecMode

	entries []*Entry

	// barriers holds the positions in entries where barriers were added: a barrier at position
	// p separates entries[:p] from entries[p:].
	barriers []int

	executions int
	released   bool
}

// New creates an empty schedule to be executed with the given runtime.
func New(runtime backends.Runtime, opts Options) *Schedule {
	pool := opts.Pool
	if pool == nil {
		pool = workerspool.New(-1)
	}
	s := &Schedule{
		id:            uuid.NewString(),
		runtime:       runtime,
		pool:          pool,
		attr:          opts.Attr,
		ownAttr:       true,
		UseSingleList: opts.SingleList,
	}
	s.mem = newMemory(runtime)
	return s
}

// NewChild creates an empty schedule nested in s: it shares s's runtime, memory (events
// and staging buffers) and worker pool, and inherits its attributes. Child schedules are
// executed by the entries that embed them (collective and sub-schedule entries), never directly.
func (s *Schedule) NewChild(singleList bool) *Schedule {
	child := &Schedule{
		id:            uuid.NewString(),
		runtime:       s.runtime,
		parent:        s,
		pool:          s.pool,
		mem:           s.mem,
		UseSingleList: singleList,
	}
	s.children = append(s.children, child)
	return child
}

// NewChildWithAttr is like NewChild, but the child has its own attributes instead of
// inheriting s's.
func (s *Schedule) NewChildWithAttr(singleList bool, attr coll.Attr) *Schedule {
	child := s.NewChild(singleList)
	child.attr = attr
	child.ownAttr = true
	return child
}

// ID uniquely identifies the schedule.
func (s *Schedule) ID() string { return s.id }

// Runtime the schedule executes against.
func (s *Schedule) Runtime() backends.Runtime { return s.runtime }

// Parent returns the schedule s is nested in, or nil for a root schedule.
func (s *Schedule) Parent() *Schedule { return s.parent }

// Root returns the outermost schedule s is nested in (or s itself).
func (s *Schedule) Root() *Schedule {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// Pool used to execute the schedule.
func (s *Schedule) Pool() *workerspool.Pool { return s.pool }

// Attr returns the attributes of the collective call the schedule was built for.
func (s *Schedule) Attr() coll.Attr {
	for !s.ownAttr {
		s = s.parent
	}
	return s.attr
}

// IsCached returns whether the schedule is marked cacheable (Attr.ToCache).
func (s *Schedule) IsCached() bool { return s.Attr().ToCache }

// Memory of the schedule: its event manager and staging buffers.
func (s *Schedule) Memory() *Memory { return s.mem }

// SetStrictOrder marks the schedule, and every schedule it is nested in, as strict order.
// There is no way to unset it.
func (s *Schedule) SetStrictOrder() {
	for ; s != nil; s = s.parent {
		if !s.strictOrder {
			klog.V(2).Infof("schedule %s set to strict order", s.id)
		}
		s.strictOrder = true
	}
}

// IsStrictOrder returns whether the schedule must execute in strict order.
func (s *Schedule) IsStrictOrder() bool { return s.strictOrder }

// SetEntryExecMode sets the execution mode of the entries appended from now on.
func (s *Schedule) SetEntryExecMode(mode ExecMode) { s.execMode = mode }

// EntryExecMode returns the execution mode given to new entries.
func (s *Schedule) EntryExecMode() ExecMode { return s.execMode }

// Len returns the number of entries in the schedule.
func (s *Schedule) Len() int { return len(s.entries) }

// Entries of the schedule, in append order. The returned slice must not be modified.
func (s *Schedule) Entries() []*Entry { return s.entries }

// NumBarriers returns the number of barriers added to the schedule.
func (s *Schedule) NumBarriers() int { return len(s.barriers) }

// Children returns the schedules nested in s.
func (s *Schedule) Children() []*Schedule { return s.children }

// Executions returns how many times the schedule was executed.
func (s *Schedule) Executions() int { return s.executions }

// AddBarrier adds a barrier marker: entries appended afterwards never execute concurrently
// with the entries appended before.
func (s *Schedule) AddBarrier() {
	s.barriers = append(s.barriers, len(s.entries))
}

// Stages returns the entries partitioned by the barriers. Empty stages are omitted.
func (s *Schedule) Stages() [][]*Entry {
	stages := make([][]*Entry, 0, len(s.barriers)+1)
	start := 0
	for _, pos := range s.barriers {
		if pos > start {
			stages = append(stages, s.entries[start:pos])
		}
		start = pos
	}
	if start < len(s.entries) {
		stages = append(stages, s.entries[start:])
	}
	return stages
}

// StageOf returns the index (see Stages) of the stage where e lives, or -1 if e is not an
// entry of s.
func (s *Schedule) StageOf(e *Entry) int {
	idx := slices.Index(s.entries, e)
	if idx < 0 {
		return -1
	}
	stage := 0
	start := 0
	for _, pos := range s.barriers {
		if pos > idx {
			break
		}
		if pos > start {
			stage++
		}
		start = pos
	}
	return stage
}

// append e to the schedule. It's used by the factory functions.
func (s *Schedule) append(e *Entry) *Entry {
	if s.released {
		exceptions.Panicf("appending %s to released schedule %s", e.kind, s.id)
	}
	e.sched = s
	e.index = len(s.entries)
	e.execMode = s.execMode
	s.entries = append(s.entries, e)
	if klog.V(2).Enabled() {
		klog.Infof("schedule %s: appended #%d %s", s.id, e.index, e)
	}
	return e
}

// Release frees the staging buffers and events of the schedule. The schedule can't be executed
// or appended to afterwards. Releasing twice is a no-op.
//
// Only root schedules can be released: children are released with their root.
func (s *Schedule) Release() {
	if s.parent != nil {
		exceptions.Panicf("schedule %s is nested in %s: only root schedules can be released", s.id, s.Root().id)
	}
	if s.released {
		return
	}
	s.released = true
	s.mem.release()
}

// String implements fmt.Stringer.
func (s *Schedule) String() string {
	mode := "multi-list"
	if s.UseSingleList {
		mode = "single-list"
	}
	if s.strictOrder {
		mode += ", strict"
	}
	return fmt.Sprintf("Schedule(%s: %d entries, %d stages, %s)", s.id, len(s.entries), len(s.Stages()), mode)
}
