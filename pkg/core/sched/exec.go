package sched

import (
	"context"

	"github.com/gomlx/collectives/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Execute the schedule: its stages are executed in order, and entries within a stage either
// sequentially (single-list or strict order schedules) or concurrently on the worker pool.
//
// Events are reset before each execution. ExecOnce entries only run on the first execution.
// The first error aborts the execution: entries of later stages don't run.
//
// Only root schedules can be executed. A schedule must not be executed concurrently with itself.
func (s *Schedule) Execute(ctx context.Context) error {
	if s.parent != nil {
		return errors.Errorf("schedule %s is nested in %s: only root schedules can be executed", s.id, s.Root().id)
	}
	if s.released {
		return errors.Errorf("schedule %s was released", s.id)
	}
	s.mem.events.Reset()
	first := s.executions == 0
	s.executions++
	if err := s.run(ctx, first); err != nil {
		return errors.WithMessagef(err, "executing schedule %s (execution #%d)", s.id, s.executions)
	}
	return nil
}

// isSequential returns whether entries within a stage must run in append order.
func (s *Schedule) isSequential() bool {
	return s.UseSingleList || s.strictOrder || !s.pool.IsEnabled()
}

// run the stages of the schedule. first tells whether it is the first execution of the root schedule.
func (s *Schedule) run(ctx context.Context, first bool) error {
	sequential := s.isSequential()
	for stageIdx, stage := range s.Stages() {
		klog.V(2).Infof("schedule %s: stage %d with %d entries", s.id, stageIdx, len(stage))
		var err error
		if sequential || len(stage) == 1 {
			err = s.executeSequentially(ctx, stage, first)
		} else {
			err = s.executeParallel(ctx, stage, first)
		}
		if err != nil {
			return errors.WithMessagef(err, "stage %d", stageIdx)
		}
	}
	return nil
}

func (s *Schedule) executeSequentially(ctx context.Context, stage []*Entry, first bool) error {
	for _, e := range stage {
		if err := e.execute(ctx, first); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schedule) executeParallel(ctx context.Context, stage []*Entry, first bool) error {
	wg := xsync.NewErrorWaitGroup()
	for _, e := range stage {
		s.pool.Go(wg, func() error {
			if wg.Err() != nil {
				// Interrupted anyway.
				return nil
			}
			return e.execute(ctx, first)
		})
	}
	return wg.Wait()
}

// execute the entry: wait for its wait list, run it, and signal its event.
func (e *Entry) execute(ctx context.Context, first bool) error {
	if e.execMode == ExecOnce && !first {
		// Entries depending on it still need the signal.
		if e.signal != nil {
			e.signal.Signal()
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, ev := range e.wait {
		if err := ev.Wait(ctx); err != nil {
			return errors.WithMessagef(err, "entry #%d %s waiting for its wait list", e.index, e.kind)
		}
	}
	if err := e.run(ctx, first); err != nil {
		return errors.WithMessagef(err, "entry #%d %s", e.index, e)
	}
	e.executions.Add(1)
	if e.signal != nil {
		e.signal.Signal()
	}
	return nil
}

func (e *Entry) run(ctx context.Context, first bool) error {
	s := e.sched
	switch e.kind {
	case KindCollective:
		return e.collective.Inner.run(ctx, first)

	case KindCopy:
		c := e.copy
		if c.IsNoOp() {
			return nil
		}
		return s.runtime.Copy(ctx, c.Src, c.Dst, c.NumBytes(), c.Attr)

	case KindWaitEvents:
		for _, ev := range e.waitEvents {
			if err := ev.Wait(ctx); err != nil {
				return err
			}
		}
		return nil

	case KindSignalEvent:
		// Signaled by execute.
		return nil

	case KindHandleExchange:
		h := e.handleExchange
		return s.runtime.ExchangeHandles(ctx, h.Comm, h.Mems, h.SkipRank)

	case KindBarrier:
		b := e.barrier
		return s.runtime.PoolBarrier(ctx, b.Comm, b.Pool, b.PoolIndex)

	case KindSubSchedule:
		return e.runSubSchedule(ctx, first)

	case KindFunction:
		return e.fn(ctx)

	default:
		return errors.Errorf("unknown entry kind %s", e.kind)
	}
}

// runSubSchedule runs the sub-schedule on a worker of the pool, while the current worker sleeps.
func (e *Entry) runSubSchedule(ctx context.Context, first bool) error {
	pool := e.sched.pool
	done := make(chan error, 1)
	pool.WorkerIsAsleep()
	defer pool.WorkerRestarted()
	pool.WaitToStart(func() {
		done <- e.subSchedule.run(ctx, first)
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
