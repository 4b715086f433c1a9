// Package topo implements device-topology algorithms for Allreduce, Bcast, Reduce and Allgatherv,
// used among the devices of one node with peer-to-peer access.
//
// Each rank first exchanges the IPC handles of its buffers with its peers (only once for cached
// schedules), synchronizes, moves the data, and synchronizes again before anyone reuses its
// buffers. The data movement itself uses the exchange of the communicator.
//
// Device-topology algorithms impose an ordering among the devices that the event graph doesn't
// express: schedules using them run in strict order.
package topo

import (
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/algorithms"
	"github.com/gomlx/collectives/pkg/core/algorithms/naive"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/compose"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/pkg/errors"
)

// Event pool indices used by the barriers of the algorithms.
const (
	handlesReadyEventIdx = iota
	dataReadyEventIdx
	numPoolEvents
)

func init() {
	for _, ctype := range []coll.CollectiveType{coll.CollAllreduce, coll.CollBcast, coll.CollReduce, coll.CollAllgatherv} {
		algorithms.Register(ctype, algorithms.AlgoTopo, algorithms.Info{Builder: Build, DeviceSide: true})
	}
}

// ipcMemories returns the distinct memories of the buffers of p, whose handles are exchanged.
func ipcMemories(p coll.Param) []backends.Memory {
	var mems []backends.Memory
	add := func(buf backends.Buffer) {
		if !buf.IsValid() {
			return
		}
		for _, mem := range mems {
			if mem.ID() == buf.Memory().ID() {
				return
			}
		}
		mems = append(mems, buf.Memory())
	}
	add(p.SendBuf)
	add(p.RecvBuf)
	for _, buf := range p.RecvBufs {
		add(buf)
	}
	return mems
}

// Build appends the device-topology algorithm for p to s.
func Build(env algorithms.Env, s *sched.Schedule, p coll.Param) error {
	if !env.Backend.PeerToPeer() {
		return errors.Errorf("topo %s: devices have no peer-to-peer access", p.CType)
	}
	s.SetStrictOrder()
	c := compose.New(env.Backend, env.Config)
	var pool backends.EventPool
	if env.Config.EnableBarrierPool {
		var err error
		pool, err = env.Backend.NewEventPool(p.Comm, numPoolEvents)
		if err != nil {
			return errors.WithMessagef(err, "topo %s: creating IPC event pool", p.CType)
		}
	}
	// The root of a Bcast doesn't read from its peers.
	skipRank := -1
	if p.CType == coll.CollBcast {
		skipRank = p.Root
	}
	if err := c.AddHandleExchange(s, p.Comm, ipcMemories(p), skipRank, pool, handlesReadyEventIdx); err != nil {
		return err
	}
	if err := naive.Build(env, s, p); err != nil {
		return err
	}
	return c.AddCommBarrier(s, p.Comm, pool, dataReadyEventIdx)
}
