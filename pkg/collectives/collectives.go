package collectives

import (
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/compose"
	"github.com/gomlx/collectives/pkg/core/distributed"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Op holds the arguments of a collective call. Which fields are used depends on the collective,
// see the coll.Param fields of the same name.
type Op struct {
	// SendBuf and RecvBuf may be equal for in-place operations. Bcast uses RecvBuf on every rank
	// (and as the source on the root).
	SendBuf, RecvBuf backends.Buffer

	// SendBufs and RecvBufs are per-peer buffers of variable-count collectives, used when
	// Attr.IsVectorBuf is set.
	SendBufs, RecvBufs []backends.Buffer

	// Count is the number of elements of fixed-count collectives: per peer for Alltoall,
	// ReduceScatter, Gather and Scatter.
	Count int

	// SendCount is the number of elements contributed by the caller to Allgatherv.
	SendCount int

	// SendCounts and RecvCounts are the per-peer counts of Alltoallv and (RecvCounts only)
	// Allgatherv.
	SendCounts, RecvCounts []int

	DType     dtypes.DType
	Reduction coll.ReduceOp
	Root      int

	// Stream is the device execution context, nil for host-only execution.
	Stream *coll.Stream

	Attr  coll.Attr
	Hints coll.Hints

	// Wait are events the operation must wait for before it starts, typically returned by a
	// previous call.
	Wait []backends.Event
}

// param returns the descriptor of op for the collective type, on comm.
func (op Op) param(ctype coll.CollectiveType, comm coll.Communicator) coll.Param {
	p := coll.Param{
		CType:      ctype,
		SendBuf:    op.SendBuf,
		RecvBuf:    op.RecvBuf,
		Count:      op.Count,
		SendCount:  op.SendCount,
		SendCounts: op.SendCounts,
		RecvCounts: op.RecvCounts,
		DType:      op.DType,
		Reduction:  op.Reduction,
		Root:       op.Root,
		Comm:       comm,
		Stream:     op.Stream,
		HintAlgo:   op.Hints,
	}
	if op.Attr.IsVectorBuf {
		p.SendBufs, p.RecvBufs = op.SendBufs, op.RecvBufs
	}
	switch ctype {
	case coll.CollBcast:
		p = coll.NewBcastParam(op.RecvBuf, op.Count, op.DType, op.Root, comm, op.Stream)
		p.HintAlgo = op.Hints
	case coll.CollAlltoall:
		counts := make([]int, comm.Size())
		for i := range counts {
			counts[i] = op.Count
		}
		p.SendCounts, p.RecvCounts = counts, counts
	}
	return p
}

// Allreduce reduces the SendBuf of all ranks into the RecvBuf of every rank.
func (c *Communicator) Allreduce(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollAllreduce, op)
}

// Reduce reduces the SendBuf of all ranks into the RecvBuf of Root.
func (c *Communicator) Reduce(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollReduce, op)
}

// Bcast copies RecvBuf of Root to RecvBuf of every rank.
func (c *Communicator) Bcast(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollBcast, op)
}

// Allgatherv gathers SendCount elements of every rank into the RecvBuf of every rank, at the
// offsets given by RecvCounts.
func (c *Communicator) Allgatherv(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollAllgatherv, op)
}

// Alltoall sends Count elements to every rank, and receives Count elements from every rank.
func (c *Communicator) Alltoall(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollAlltoall, op)
}

// Alltoallv sends SendCounts[i] elements to rank i, and receives RecvCounts[i] elements from it.
func (c *Communicator) Alltoallv(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollAlltoallv, op)
}

// Gather concatenates Count elements of every rank into RecvBuf of Root.
func (c *Communicator) Gather(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollGather, op)
}

// Scatter sends the i-th Count elements of SendBuf of Root to rank i.
func (c *Communicator) Scatter(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollScatter, op)
}

// ReduceScatter reduces SendBuf (Count elements per rank) of all ranks, and rank i receives the
// i-th reduced block.
func (c *Communicator) ReduceScatter(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollReduceScatter, op)
}

// Barrier synchronizes all the ranks. Only the Attr, Hints and Wait fields of op are used.
func (c *Communicator) Barrier(op Op) (*sched.Schedule, []backends.Event, error) {
	return c.Build(coll.CollBarrier, op)
}

// Build the schedule of a collective call of the given type.
//
// For cacheable calls (op.Attr.ToCache) the schedule is built only once per cache key: later
// calls return the cached schedule and events, regardless of op.
//
// It returns the schedule, ready to execute, and the events signaled when it completes, to be
// waited on by later calls. Errors in the arguments, unsupported configurations and allocation
// failures are returned as errors: in that case no schedule is returned.
func (c *Communicator) Build(ctype coll.CollectiveType, op Op) (*sched.Schedule, []backends.Event, error) {
	p := op.param(ctype, c.world)
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	if op.Attr.ToCache {
		if op.Attr.CacheKey == "" {
			return nil, nil, errors.Errorf("%s: cacheable operations require a cache key", ctype)
		}
		if cached, found := c.cache.Get(op.Attr.CacheKey); found {
			klog.V(1).Infof("%s: using cached schedule %q", ctype, op.Attr.CacheKey)
			return cached.Schedule, cached.Events, nil
		}
	}

	s := sched.New(c.backend, sched.Options{SingleList: c.cfg.SingleList, Attr: op.Attr, Pool: c.pool})
	var events []backends.Event
	var err error
	if panicErr := exceptions.TryCatch[error](func() { events, err = c.plan(s, p, op.Wait) }); panicErr != nil {
		err = panicErr
	}
	if err != nil {
		s.Release()
		return nil, nil, errors.WithMessagef(err, "building %s", p)
	}
	klog.V(2).Infof("%s: built %s", ctype, s)
	if op.Attr.ToCache {
		cached := c.cache.Put(op.Attr.CacheKey, s, events)
		return cached.Schedule, cached.Events, nil
	}
	return s, events, nil
}

// plan appends the phases of the collective p to s, and returns the wait list extended with an
// event signaled at the end of the schedule.
func (c *Communicator) plan(s *sched.Schedule, p coll.Param, wait []backends.Event) ([]backends.Event, error) {
	comp := c.composer
	singleNode := c.topology.IsSingleNode()
	if isStaged(p.CType) {
		comp.CheckScaleOut(p, singleNode)
	}
	comp.AddWaitEvents(s, wait)
	var err error
	switch {
	case !compose.IsMultiNode(p, singleNode):
		if !singleNode {
			// Degenerate operations across nodes: no device-topology algorithm.
			p = p.AsScaleOut()
		}
		err = comp.AddCollEntry(s, p)

	case p.CType == coll.CollAllreduce && c.topology.DevicesPerNode() > 1:
		wait, err = c.hierarchicalAllreduce(s, p, wait)

	case isStaged(p.CType):
		global := compose.GlobalTarget{Comm: c.world, RecvBuf: p.RecvBuf, Root: p.Root}
		wait, err = comp.AddScaleOut(s, p, false, wait, backends.NewCopyAttr(backends.CopyH2D), global)

	default:
		err = comp.AddCollEntry(s, p.AsScaleOut())
	}
	if err != nil {
		return wait, err
	}
	s.AddBarrier()
	return append(wait, comp.AddNewSignalEvent(s)), nil
}

// isStaged returns whether the collective has a scale-out phase of its own across nodes. Other
// collectives run over the network as one algorithm.
func isStaged(ctype coll.CollectiveType) bool {
	switch ctype {
	case coll.CollAllreduce, coll.CollReduce, coll.CollAlltoall, coll.CollAlltoallv, coll.CollAllgatherv:
		return true
	default:
		return false
	}
}

// hierarchicalAllreduce appends an allreduce among the devices of the caller's node, followed by
// the scale-out allreduce of its result, in-place, among the ranks with the caller's local device
// index.
func (c *Communicator) hierarchicalAllreduce(s *sched.Schedule, p coll.Param, wait []backends.Event) ([]backends.Event, error) {
	intra := p
	intra.Comm = c.node
	if err := c.composer.AddCollEntry(s, intra); err != nil {
		return wait, err
	}
	s.AddBarrier()

	inter := p.InPlace(p.RecvBuf)
	inter.Comm = c.cross
	crossRanks := c.topology.GroupOf(c.Rank(), distributed.NodeAxis)
	return c.composer.AddScaleOut(s, inter, c.topology.IsSingleNode(crossRanks...), wait,
		backends.NewCopyAttr(backends.CopyH2D), compose.GlobalTarget{})
}
