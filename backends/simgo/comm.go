package simgo

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/distributed"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// World is a set of simulated ranks laid out in a Topology.
type World struct {
	backend  *Backend
	topology *distributed.Topology
	id       string
}

// NewWorld creates a world of ranks for the given topology.
func (b *Backend) NewWorld(topology *distributed.Topology) *World {
	return &World{backend: b, topology: topology, id: newID()}
}

// Topology of the world.
func (w *World) Topology() *distributed.Topology { return w.topology }

// Backend the world runs on.
func (w *World) Backend() *Backend { return w.backend }

// Comm returns the world communicator as seen by rank.
func (w *World) Comm(rank int) *Comm {
	ranks := make([]int, w.topology.NumRanks())
	for i := range ranks {
		ranks[i] = i
	}
	if rank < 0 || rank >= len(ranks) {
		exceptions.Panicf("World.Comm(%d): rank out of range for %s", rank, w.topology)
	}
	return &Comm{world: w, id: w.id + ":world", rank: rank, ranks: ranks}
}

// Comm is a communicator among ranks of a World, as seen by one of its ranks.
// It implements backends.Exchanger.
type Comm struct {
	world *World
	id    string
	rank  int

	// ranks are the world ranks of the members of the communicator, indexed by rank.
	ranks []int
}

var _ backends.Exchanger = &Comm{}

// Rank implements backends.Communicator.
func (c *Comm) Rank() int { return c.rank }

// Size implements backends.Communicator.
func (c *Comm) Size() int { return len(c.ranks) }

// ID implements backends.Communicator.
func (c *Comm) ID() string { return c.id }

// WorldRank returns the world rank of the caller.
func (c *Comm) WorldRank() int { return c.ranks[c.rank] }

// WorldRanks returns the world ranks of the members of the communicator, indexed by rank.
func (c *Comm) WorldRanks() []int { return slices.Clone(c.ranks) }

// String implements fmt.Stringer.
func (c *Comm) String() string {
	return fmt.Sprintf("Comm(rank %d of %v)", c.rank, c.ranks)
}

// Sub returns the sub-communicator of the given world ranks. The caller must be a member of the
// group, and all its members must be members of c.
//
// All ranks calling Sub with the same group get the same communicator ID.
func (c *Comm) Sub(group []int) *Comm {
	me := c.WorldRank()
	rank := slices.Index(group, me)
	if rank < 0 {
		exceptions.Panicf("Comm.Sub(%v): world rank %d is not a member of the group", group, me)
	}
	parts := make([]string, len(group))
	for i, worldRank := range group {
		if !slices.Contains(c.ranks, worldRank) {
			exceptions.Panicf("Comm.Sub(%v): world rank %d is not a member of %s", group, worldRank, c)
		}
		parts[i] = fmt.Sprint(worldRank)
	}
	return &Comm{
		world: c.world,
		id:    fmt.Sprintf("%s[%s]", c.world.id, strings.Join(parts, ",")),
		rank:  rank,
		ranks: slices.Clone(group),
	}
}

// AllToAll implements backends.Exchanger: parts[i] is sent to rank i.
//
// The k-th call to AllToAll from each rank of the communicator are matched to each other, so
// ranks must call it in the same order.
func (c *Comm) AllToAll(ctx context.Context, parts [][]byte) ([][]byte, error) {
	if parts != nil && len(parts) != c.Size() {
		return nil, errors.Errorf("AllToAll on %s: got %d parts, want one per rank", c, len(parts))
	}
	return c.world.backend.exchange(ctx, c, parts)
}

// Barrier blocks until every rank of the communicator called Barrier.
func (c *Comm) Barrier(ctx context.Context) error {
	_, err := c.AllToAll(ctx, nil)
	return err
}

// rendezvous of one collective exchange among the ranks of a communicator.
type rendezvous struct {
	deposits [][][]byte // deposits[sender][receiver]
	arrived  int
	left     int
	done     chan struct{}
	closed   bool
	err      error
}

func (r *rendezvous) release() {
	if !r.closed {
		r.closed = true
		close(r.done)
	}
}

func (r *rendezvous) abort(err error) {
	if r.err == nil {
		r.err = err
	}
	r.release()
}

// exchange matches the next call of each rank of comm.
func (b *Backend) exchange(ctx context.Context, comm *Comm, parts [][]byte) ([][]byte, error) {
	size := comm.Size()
	b.mu.Lock()
	if b.finalized {
		b.mu.Unlock()
		return nil, errors.New("simulated backend already finalized")
	}
	seqKey := fmt.Sprintf("%s#%d", comm.id, comm.rank)
	seq := b.sequences[seqKey]
	b.sequences[seqKey] = seq + 1
	key := fmt.Sprintf("%s@%d", comm.id, seq)
	r, found := b.rendezvous[key]
	if !found {
		r = &rendezvous{deposits: make([][][]byte, size), left: size, done: make(chan struct{})}
		b.rendezvous[key] = r
	}
	deposit := make([][]byte, size)
	for i, part := range parts {
		deposit[i] = slices.Clone(part)
	}
	r.deposits[comm.rank] = deposit
	r.arrived++
	if r.arrived == size {
		r.release()
	}
	b.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "waiting for ranks of %s", comm)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	received := make([][]byte, size)
	for sender := range size {
		received[sender] = r.deposits[sender][comm.rank]
	}
	r.left--
	if r.left == 0 {
		delete(b.rendezvous, key)
	}
	return received, nil
}

// asComm converts the communicator to a simulated one.
func asComm(comm backends.Communicator) (*Comm, error) {
	c, ok := comm.(*Comm)
	if !ok {
		return nil, errors.Errorf("communicator %T is not a simulated communicator", comm)
	}
	return c, nil
}

// ExchangeHandles implements backends.Runtime. Every rank takes part in the rendezvous, but
// skipRank publishes no handles.
func (b *Backend) ExchangeHandles(ctx context.Context, comm backends.Communicator, mems []backends.Memory, skipRank int) error {
	c, err := asComm(comm)
	if err != nil {
		return err
	}
	var parts [][]byte
	if c.rank != skipRank {
		ids := make([]string, len(mems))
		for i, mem := range mems {
			ids[i] = mem.ID()
		}
		handles := []byte(strings.Join(ids, ","))
		parts = make([][]byte, c.Size())
		for i := range parts {
			parts[i] = handles
		}
	}
	if _, err := c.AllToAll(ctx, parts); err != nil {
		return errors.WithMessagef(err, "exchanging IPC handles on %s", c)
	}
	b.handleExchanges.Add(1)
	return nil
}

// EventPool is a simulated IPC event pool.
type EventPool struct {
	commID string
	size   int
}

// Size implements backends.EventPool.
func (p *EventPool) Size() int { return p.size }

// NewEventPool implements backends.Runtime.
func (b *Backend) NewEventPool(comm backends.Communicator, size int) (backends.EventPool, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid event pool size %d", size)
	}
	return &EventPool{commID: comm.ID(), size: size}, nil
}

// PoolBarrier implements backends.Runtime.
func (b *Backend) PoolBarrier(ctx context.Context, comm backends.Communicator, pool backends.EventPool, idx int) error {
	c, err := asComm(comm)
	if err != nil {
		return err
	}
	p, ok := pool.(*EventPool)
	if !ok || p.commID != c.id {
		return errors.Errorf("event pool %v was not created for %s", pool, c)
	}
	if idx < 0 || idx >= p.size {
		return errors.Errorf("event pool index %d out of range [0, %d)", idx, p.size)
	}
	if err := c.Barrier(ctx); err != nil {
		return errors.WithMessagef(err, "pool barrier %d on %s", idx, c)
	}
	b.poolBarriers.Add(1)
	return nil
}
