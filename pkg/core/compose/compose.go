// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package compose builds the schedule of a collective call out of entries: it inserts the
// selected algorithms (directly, wrapped or under strict order), event waits and signals,
// cross-rank barriers and IPC handle exchanges, and decomposes multi-node collectives into an
// intra-node device phase and a host-staged network phase (see Composer.AddScaleOut).
//
// Construction is synchronous and only appends to the schedule. Contract violations panic
// (with exceptions.Panicf), resource exhaustion (staging allocation) is returned as an error.
//
// Wait lists are the events an operation depends on under single-list execution: functions that
// extend them take the caller's list and return the updated one.
package compose

import (
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/algorithms"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/config"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/gomlx/collectives/pkg/core/selection"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Composer appends collective operations to schedules, for a given backend and configuration.
//
// It holds no mutable state: the same Composer can be used concurrently to build different
// schedules.
type Composer struct {
	backend  backends.Backend
	cfg      config.Config
	selector *selection.Selector
}

// New creates a Composer.
func New(backend backends.Backend, cfg config.Config) *Composer {
	return &Composer{
		backend:  backend,
		cfg:      cfg,
		selector: selection.New(cfg, backend),
	}
}

// Backend used by the composer.
func (c *Composer) Backend() backends.Backend { return c.backend }

// Config used by the composer.
func (c *Composer) Config() config.Config { return c.cfg }

// Selector used by the composer.
func (c *Composer) Selector() *selection.Selector { return c.selector }

// Env passed to algorithm builders.
func (c *Composer) Env() algorithms.Env {
	return algorithms.Env{Backend: c.backend, Config: c.cfg}
}

// AddCollEntry appends the collective p to s, using the strategy chosen by the selector:
//
//   - Device-topology: s (and every schedule it's nested in) is set to strict order, and the
//     algorithm is wrapped in a collective entry.
//   - Direct: the algorithm's entries are appended straight into s.
//   - Wrapped: the algorithm is built into a nested schedule, run by a collective entry.
//
// Unknown collective types panic.
func (c *Composer) AddCollEntry(s *sched.Schedule, p coll.Param) error {
	sel := c.selector.Select(selection.NewSelectorParam(s, p))
	if sel.Strategy == selection.StrategyDirect {
		if err := sel.Info.Builder(c.Env(), s, p); err != nil {
			return errors.WithMessagef(err, "building %s with algorithm %s", p.CType, sel.Algorithm)
		}
		return nil
	}
	inner := s.NewChild(s.UseSingleList)
	if sel.Strategy == selection.StrategyDeviceTopology {
		inner.SetStrictOrder()
	}
	if err := sel.Info.Builder(c.Env(), inner, p); err != nil {
		return errors.WithMessagef(err, "building %s with algorithm %s", p.CType, sel.Algorithm)
	}
	sched.NewCollectiveEntry(s, p, sel.Algorithm.String(), inner)
	return nil
}

// buildSched appends the algorithm selected for p straight into s, whatever the transport.
// It's the inline path of the network leg of a collective.
func (c *Composer) buildSched(s *sched.Schedule, p coll.Param) error {
	sel := c.selector.Select(selection.NewSelectorParam(s, p))
	if sel.Info.DeviceSide {
		s.SetStrictOrder()
	}
	if err := sel.Info.Builder(c.Env(), s, p); err != nil {
		return errors.WithMessagef(err, "building %s with algorithm %s", p.CType, sel.Algorithm)
	}
	return nil
}

// AddWaitEvents appends an entry waiting for the events, followed by a barrier. It's a no-op for an
// empty list.
func (c *Composer) AddWaitEvents(s *sched.Schedule, wait []backends.Event) {
	if len(wait) == 0 {
		return
	}
	sched.NewWaitEventsEntry(s, wait)
	s.AddBarrier()
}

// AddSignalEvent appends an entry signaling ev, followed by a barrier. It's a no-op for a nil event.
func (c *Composer) AddSignalEvent(s *sched.Schedule, ev backends.Event) {
	if ev == nil {
		return
	}
	sched.NewSignalEventEntry(s, ev)
	s.AddBarrier()
}

// AddNewSignalEvent creates an event with the schedule's event manager and appends an entry
// signaling it (see AddSignalEvent). It returns the new event.
func (c *Composer) AddNewSignalEvent(s *sched.Schedule) backends.Event {
	ev := s.Memory().Events().Create()
	c.AddSignalEvent(s, ev)
	return ev
}

// AddCommBarrier appends a cross-rank barrier among the ranks of comm, in a stage of its own.
//
// If an IPC event pool is given and barriers over pools are enabled, the barrier is backed by the
// event at poolIndex. Otherwise, it's a barrier collective.
func (c *Composer) AddCommBarrier(s *sched.Schedule, comm coll.Communicator, pool backends.EventPool, poolIndex int) error {
	s.AddBarrier()
	if pool != nil && c.cfg.EnableBarrierPool {
		sched.NewBarrierEntry(s, comm, pool, poolIndex)
	} else if err := c.AddCollEntry(s, coll.NewBarrierParam(comm)); err != nil {
		return err
	}
	s.AddBarrier()
	return nil
}

// AddCommBarrierEvents is like AddCommBarrier, but it is ordered with respect to the wait list:
// in single-list mode the barrier waits for the events in wait first. In both modes a new event is
// signaled after the barrier, and appended to the returned wait list.
func (c *Composer) AddCommBarrierEvents(s *sched.Schedule, comm coll.Communicator, wait []backends.Event,
	pool backends.EventPool, poolIndex int) ([]backends.Event, error) {
	s.AddBarrier()
	ev := s.Memory().Events().Create()
	if s.UseSingleList {
		c.AddWaitEvents(s, wait)
	}
	if err := c.AddCommBarrier(s, comm, pool, poolIndex); err != nil {
		return wait, err
	}
	c.AddSignalEvent(s, ev)
	s.AddBarrier()
	return append(wait, ev), nil
}

// AddHandleExchange appends the exchange of the IPC handles of mems among the ranks of comm.
//
// For cacheable schedules the exchange only executes once (sched.ExecOnce), and it's followed by a
// regular comm barrier, executed every time. Otherwise, it's the exchange followed by a barrier.
func (c *Composer) AddHandleExchange(s *sched.Schedule, comm coll.Communicator, mems []backends.Memory,
	skipRank int, pool backends.EventPool, poolIndex int) error {
	if !s.IsCached() {
		sched.NewHandleExchangeEntry(s, comm, mems, skipRank)
		s.AddBarrier()
		return nil
	}
	s.SetEntryExecMode(sched.ExecOnce)
	sched.NewHandleExchangeEntry(s, comm, mems, skipRank)
	s.AddBarrier()
	s.SetEntryExecMode(sched.ExecRegular)
	return c.AddCommBarrier(s, comm, pool, poolIndex)
}

// AddColl appends the network leg of a collective.
//
// In single-list mode it first waits for the events in wait, and signals a new event at the end,
// which is appended to the returned wait list.
//
// With multi-worker scale-out configured, the collective is built into a sub-schedule run by a worker:
// only Allreduce, Reduce, Alltoallv and Allgatherv are supported there, other types panic before
// anything is appended. Otherwise, the algorithm is appended inline.
func (c *Composer) AddColl(s *sched.Schedule, p coll.Param, wait []backends.Event) ([]backends.Event, error) {
	multiWorker := c.cfg.IsMultiWorker()
	var subParam coll.Param
	if multiWorker {
		subParam = newScaleOutParam(p)
	}
	if s.UseSingleList {
		c.AddWaitEvents(s, wait)
	}
	if multiWorker {
		klog.V(1).Infof("scale-out/multi-workers: sub-schedule for %s", p.CType)
		sub := s.NewChildWithAttr(s.UseSingleList, coll.Attr{})
		if err := c.buildSched(sub, subParam); err != nil {
			return wait, err
		}
		sched.NewSubScheduleEntry(s, "SCALEOUT", sub)
	} else if err := c.buildSched(s, p); err != nil {
		return wait, err
	}
	s.AddBarrier()
	if s.UseSingleList {
		wait = append(wait, c.AddNewSignalEvent(s))
	}
	return wait, nil
}

// checkMultiWorkerType panics if ctype can't be run by a multi-worker scale-out sub-schedule.
func checkMultiWorkerType(ctype coll.CollectiveType) {
	switch ctype {
	case coll.CollAllreduce, coll.CollReduce, coll.CollAlltoallv, coll.CollAllgatherv:
	default:
		exceptions.Panicf("scale-out/multi-workers: unsupported collective type %s", ctype)
	}
}

// newScaleOutParam creates the descriptor of the multi-worker network leg: a fresh descriptor of
// the same collective, that only inherits the scale-out flag. It panics for unsupported types.
func newScaleOutParam(p coll.Param) coll.Param {
	checkMultiWorkerType(p.CType)
	var sub coll.Param
	switch p.CType {
	case coll.CollAllreduce:
		sub = coll.NewAllreduceParam(p.SendBuf, p.RecvBuf, p.Count, p.DType, p.Reduction, p.Comm, p.Stream)
	case coll.CollReduce:
		sub = coll.NewReduceParam(p.SendBuf, p.RecvBuf, p.Count, p.DType, p.Reduction, p.Root, p.Comm, p.Stream)
	case coll.CollAlltoallv:
		sub = coll.NewAlltoallvParam(p.SendBuf, p.SendCounts, p.RecvBuf, p.RecvCounts, p.DType, p.Comm, p.Stream)
	case coll.CollAllgatherv:
		sub = coll.NewAllgathervParam(p.SendBuf, p.SendCount, p.RecvBuf, p.RecvCounts, p.DType, p.Comm, p.Stream)
	}
	sub.IsScaleOut = p.IsScaleOut
	return sub
}
