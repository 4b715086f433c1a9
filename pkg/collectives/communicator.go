// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package collectives is the application-facing API: one method per collective operation, each
// building the schedule that executes it on the calling rank.
//
// A Communicator plans each call against the topology of its ranks: on a single node the
// collective is one (possibly device-topology) algorithm; across nodes the data is moved
// through the network by the scale-out phase, staged through host memory unless the transport
// addresses device memory directly. Allreduce across nodes with several devices per node is
// hierarchical: an intra-node allreduce followed by a cross-node allreduce among the devices with
// the same local index.
//
// Example (one goroutine per rank on the simulated backend):
//
//	backend := must.M1(simgo.New("transport=ofi"))
//	world := backend.NewWorld(must.M1(distributed.NewTopology(2, 4)))
//	comm := world.Comm(rank)
//	c := must.M1(collectives.New(backend, config.Default(), world.Topology(), comm,
//		func(group []int) backends.Communicator { return comm.Sub(group) }))
//	s, events, err := c.Allreduce(collectives.Op{SendBuf: send, RecvBuf: recv, Count: n,
//		DType: dtypes.Float32, Stream: stream})
//	...
//	err = s.Execute(ctx)
package collectives

import (
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/internal/workerspool"
	_ "github.com/gomlx/collectives/pkg/core/algorithms/naive"
	_ "github.com/gomlx/collectives/pkg/core/algorithms/ring"
	_ "github.com/gomlx/collectives/pkg/core/algorithms/topo"
	"github.com/gomlx/collectives/pkg/core/compose"
	"github.com/gomlx/collectives/pkg/core/config"
	"github.com/gomlx/collectives/pkg/core/distributed"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Splitter returns the sub-communicator of the given world ranks. Every member of the group
// calls it with the same group.
type Splitter func(group []int) backends.Communicator

// Communicator builds the schedules of the collective calls of one rank.
//
// Building is synchronous and only touches the schedule being built and the cache: a
// Communicator can be used from several goroutines.
type Communicator struct {
	backend  backends.Backend
	cfg      config.Config
	topology *distributed.Topology
	composer *compose.Composer
	pool     *workerspool.Pool
	cache    *Cache

	// world spans all the ranks of the topology; node the ranks of the caller's node; cross the
	// ranks with the same local device index as the caller, one per node.
	world, node, cross backends.Communicator
}

// New creates the Communicator of the rank world.Rank() of topology.
//
// The world communicator must span all the ranks of the topology, with its ranks laid out as in
// the topology (node-major). split is used to create the intra-node and cross-node
// sub-communicators.
func New(backend backends.Backend, cfg config.Config, topology *distributed.Topology, world backends.Communicator,
	split Splitter) (*Communicator, error) {
	if world.Size() != topology.NumRanks() {
		return nil, errors.Errorf("communicator %s has %d ranks, but topology %s has %d", world.ID(), world.Size(),
			topology, topology.NumRanks())
	}
	rank := world.Rank()
	c := &Communicator{
		backend:  backend,
		cfg:      cfg,
		topology: topology,
		composer: compose.New(backend, cfg),
		pool:     workerspool.New(cfg.MaxParallelism),
		cache:    NewCache(),
		world:    world,
		node:     split(topology.GroupOf(rank, distributed.DeviceAxis)),
		cross:    split(topology.GroupOf(rank, distributed.NodeAxis)),
	}
	klog.V(1).Infof("collectives: rank %d of %s, backend %s (transport %s)", rank, topology, backend.Name(),
		backend.TransportName())
	return c, nil
}

// Rank of the caller in the world communicator.
func (c *Communicator) Rank() int { return c.world.Rank() }

// Size of the world communicator.
func (c *Communicator) Size() int { return c.world.Size() }

// Backend used to build and execute the schedules.
func (c *Communicator) Backend() backends.Backend { return c.backend }

// Config used to plan the calls.
func (c *Communicator) Config() config.Config { return c.cfg }

// Topology of the ranks.
func (c *Communicator) Topology() *distributed.Topology { return c.topology }

// World communicator, spanning all ranks.
func (c *Communicator) World() backends.Communicator { return c.world }

// NodeComm is the communicator of the ranks in the caller's node.
func (c *Communicator) NodeComm() backends.Communicator { return c.node }

// CrossComm is the communicator of the ranks with the caller's local device index, one per node.
func (c *Communicator) CrossComm() backends.Communicator { return c.cross }

// Cache of cacheable schedules.
func (c *Communicator) Cache() *Cache { return c.cache }

// Close releases the cached schedules. Schedules returned for non-cacheable calls are owned by
// the caller, who must release them.
func (c *Communicator) Close() {
	c.cache.Release()
}
