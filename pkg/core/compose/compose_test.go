package compose_test

import (
	"context"
	"sync"
	"testing"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/backends/simgo"
	_ "github.com/gomlx/collectives/pkg/core/algorithms/naive"
	_ "github.com/gomlx/collectives/pkg/core/algorithms/ring"
	_ "github.com/gomlx/collectives/pkg/core/algorithms/topo"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/compose"
	"github.com/gomlx/collectives/pkg/core/config"
	"github.com/gomlx/collectives/pkg/core/distributed"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, config string) *simgo.Backend {
	b, err := simgo.New(config)
	require.NoError(t, err)
	t.Cleanup(b.Finalize)
	return b
}

func newWorld(b *simgo.Backend, numNodes, devicesPerNode int) *simgo.World {
	return b.NewWorld(must.M1(distributed.NewTopology(numNodes, devicesPerNode)))
}

func deviceBuf(data []byte) backends.Buffer {
	return backends.NewBuffer(simgo.Wrap(data, backends.PlaceDevice))
}

func filled(n int, value byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = value
	}
	return data
}

func entriesOf(s *sched.Schedule, kind sched.EntryKind) []*sched.Entry {
	var entries []*sched.Entry
	for _, e := range s.Entries() {
		if e.Kind() == kind {
			entries = append(entries, e)
		}
	}
	return entries
}

// runRanks runs fn concurrently for every rank, and checks that none returned an error.
func runRanks(t *testing.T, numRanks int, fn func(rank int) error) {
	var wg sync.WaitGroup
	errs := make([]error, numRanks)
	for rank := range numRanks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[rank] = fn(rank)
		}()
	}
	wg.Wait()
	for rank, err := range errs {
		require.NoErrorf(t, err, "rank %d", rank)
	}
}

var h2d = backends.NewCopyAttr(backends.CopyH2D)

func TestStagingOffsets(t *testing.T) {
	for _, counts := range [][]int{{2, 3, 1, 4}, {0, 2, 0, 3}, {0, 0, 0, 1}, {5}} {
		es := dtypes.Float32.Size()
		offsets, total := compose.StagingOffsets(counts, dtypes.Float32)
		sum := 0
		for _, count := range counts {
			sum += count * es
		}
		assert.Equal(t, sum, total, "counts=%v", counts)

		// Non-empty segments are contiguous and don't overlap.
		end := 0
		for peer, count := range counts {
			if count == 0 {
				continue
			}
			assert.Equal(t, end, offsets[peer], "counts=%v, peer=%d", counts, peer)
			end = offsets[peer] + count*es
		}
		assert.Equal(t, total, end)
	}
	offsets, total := compose.StagingOffsets([]int{2, 3, 1, 4}, dtypes.Float32)
	assert.Equal(t, []int{0, 8, 20, 24}, offsets)
	assert.Equal(t, 40, total)
}

func TestAllgathervStaging(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 2)
	c := compose.New(b, config.Default())
	recvCounts := []int{2, 3, 1, 4}
	es := dtypes.Float32.Size()
	const rank = 2
	send := deviceBuf(make([]byte, recvCounts[rank]*es))
	recv := deviceBuf(make([]byte, 10*es))
	in := coll.NewAllgathervParam(send, recvCounts[rank], recv, recvCounts, dtypes.Float32, world.Comm(rank),
		&coll.Stream{Device: 0})

	s := sched.New(b, sched.Options{})
	wait, err := c.AddScaleOut(s, in, world.Topology().IsSingleNode(), nil, h2d, compose.GlobalTarget{})
	require.NoError(t, err)
	assert.Empty(t, wait, "multi-list mode doesn't accumulate events")
	assert.Equal(t, 10*es, s.Memory().AllocatedBytes())

	copies := entriesOf(s, sched.KindCopy)
	require.Len(t, copies, 1+len(recvCounts))
	staged := copies[0].Copy()
	assert.True(t, staged.Src.Equal(send))
	assert.Equal(t, backends.PlaceHost, staged.Dst.Place())
	assert.Equal(t, (2+3)*es, staged.Dst.Offset())
	assert.Equal(t, backends.CopyD2H, staged.Attr.Direction)

	offset := 0
	for peer, e := range copies[1:] {
		args := e.Copy()
		assert.Equal(t, recvCounts[peer], args.Count)
		assert.Equal(t, offset, args.Src.Offset())
		assert.True(t, args.Dst.Equal(recv.Add(offset)))
		assert.Equal(t, backends.CopyH2D, args.Attr.Direction)
		offset += recvCounts[peer] * es
	}
}

func TestAllgathervStagedExecution(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 2)
	c := compose.New(b, config.Default())
	recvCounts := []int{2, 0, 1, 4}
	numRanks := len(recvCounts)
	recvs := make([][]byte, numRanks)
	runRanks(t, numRanks, func(rank int) error {
		recvs[rank] = make([]byte, 7)
		in := coll.NewAllgathervParam(deviceBuf(filled(recvCounts[rank], byte(rank+1))), recvCounts[rank],
			deviceBuf(recvs[rank]), recvCounts, dtypes.Uint8, world.Comm(rank), &coll.Stream{Device: rank % 2})
		s := sched.New(b, sched.Options{})
		defer s.Release()
		if _, err := c.AddScaleOut(s, in, false, nil, h2d, compose.GlobalTarget{}); err != nil {
			return err
		}
		for range 2 {
			if err := s.Execute(context.Background()); err != nil {
				return err
			}
		}
		return nil
	})
	want := []byte{1, 1, 3, 4, 4, 4, 4}
	for rank := range numRanks {
		assert.Equal(t, want, recvs[rank], "rank %d", rank)
	}
	assert.Equal(t, 0, b.LiveAllocations())
}

func TestAllreduceStagedExecution(t *testing.T) {
	for _, singleList := range []bool{true, false} {
		b := newBackend(t, "transport=ofi")
		world := newWorld(b, 3, 1)
		cfg := config.Default()
		cfg.SingleList = singleList
		c := compose.New(b, cfg)
		const count = 5
		recvs := make([][]byte, 3)
		runRanks(t, 3, func(rank int) error {
			recvs[rank] = make([]byte, count)
			in := coll.NewAllreduceParam(deviceBuf(filled(count, byte(rank+1))), deviceBuf(recvs[rank]), count,
				dtypes.Uint8, coll.ReduceSum, world.Comm(rank), nil)
			s := sched.New(b, sched.Options{SingleList: singleList})
			defer s.Release()
			wait, err := c.AddScaleOut(s, in, false, nil, h2d, compose.GlobalTarget{})
			if err != nil {
				return err
			}
			if singleList && len(wait) == 0 {
				t.Errorf("rank %d: single-list mode returned an empty wait list", rank)
			}
			return s.Execute(context.Background())
		})
		for rank := range 3 {
			assert.Equal(t, filled(count, 6), recvs[rank], "rank %d, singleList=%v", rank, singleList)
		}
	}
}

func TestReduceSingleNode(t *testing.T) {
	b := newBackend(t, "transport=shm")
	world := newWorld(b, 1, 4)
	c := compose.New(b, config.Default())
	const (
		numRanks = 4
		root     = 3
		count    = 4
	)
	out := make([]byte, count)
	schedules := make([]*sched.Schedule, numRanks)
	recvBufs := make([]backends.Buffer, numRanks)
	runRanks(t, numRanks, func(rank int) error {
		comm := world.Comm(rank)
		recvBufs[rank] = deviceBuf(make([]byte, count))
		p := coll.NewReduceParam(deviceBuf(filled(count, byte(rank+1))), recvBufs[rank], count, dtypes.Uint8,
			coll.ReduceSum, root, comm, nil)
		s := sched.New(b, sched.Options{})
		schedules[rank] = s
		if err := c.AddCollEntry(s, p); err != nil {
			return err
		}
		global := compose.GlobalTarget{Comm: comm, Root: root}
		if rank == root {
			global.RecvBuf = deviceBuf(out)
		}
		if _, err := c.AddScaleOut(s, p, world.Topology().IsSingleNode(), nil, h2d, global); err != nil {
			return err
		}
		return s.Execute(context.Background())
	})
	assert.Equal(t, filled(count, 1+2+3+4), out)

	for rank, s := range schedules {
		assert.Equal(t, 0, s.Memory().AllocatedBytes(), "no staging on a single node")
		assert.Empty(t, entriesOf(s, sched.KindCollective), "direct algorithms are not wrapped")
		assert.Len(t, entriesOf(s, sched.KindFunction), 1)
		copies := entriesOf(s, sched.KindCopy)
		if rank != root {
			assert.Empty(t, copies, "rank %d", rank)
			continue
		}
		require.Len(t, copies, 1)
		assert.True(t, copies[0].Copy().Src.Equal(recvBufs[rank]), "source is the local receive buffer")
	}
}

func TestReduceFinalCopyOnlyOnRoot(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 2)
	c := compose.New(b, config.Default())
	const root = 1
	for rank := range 4 {
		comm := world.Comm(rank)
		recv := deviceBuf(make([]byte, 8))
		out := deviceBuf(make([]byte, 8))
		p := coll.NewReduceParam(deviceBuf(make([]byte, 8)), recv, 8, dtypes.Uint8, coll.ReduceMax, root, comm, nil)
		s := sched.New(b, sched.Options{})
		_, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{Comm: comm, RecvBuf: out, Root: root})
		require.NoError(t, err)
		var intoOut int
		for _, e := range entriesOf(s, sched.KindCopy) {
			if e.Copy().Dst.Equal(out) && !e.Copy().IsNoOp() {
				intoOut++
			}
		}
		if rank == root {
			assert.Equal(t, 1, intoOut)
		} else {
			assert.Equal(t, 0, intoOut, "rank %d", rank)
		}
		s.Release()
	}

	// The root of the scale-out communicator is not the global root: it gets a no-op copy.
	cross := world.Comm(0).Sub(world.Topology().GroupOf(0, distributed.NodeAxis))
	p := coll.NewReduceParam(deviceBuf(make([]byte, 8)), deviceBuf(make([]byte, 8)), 8, dtypes.Uint8, coll.ReduceSum,
		0, cross, nil)
	s := sched.New(b, sched.Options{})
	_, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{Comm: world.Comm(0), Root: 2})
	require.NoError(t, err)
	copies := entriesOf(s, sched.KindCopy)
	require.NotEmpty(t, copies)
	assert.True(t, copies[len(copies)-1].Copy().IsNoOp())
}

func TestZeroCountIsNotMultiNode(t *testing.T) {
	b := newBackend(t, "")
	world := newWorld(b, 2, 1)
	c := compose.New(b, config.Default())
	p := coll.NewAllreduceParam(backends.Buffer{}, backends.Buffer{}, 0, dtypes.Float32, coll.ReduceSum,
		world.Comm(0), nil)
	assert.False(t, compose.IsMultiNode(p, world.Topology().IsSingleNode()))
	s := sched.New(b, sched.Options{})
	wait, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{})
	require.NoError(t, err)
	assert.Empty(t, wait)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Memory().AllocatedBytes())
}

func TestScaleOutDescriptorIsNeverStaged(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 1)
	c := compose.New(b, config.Default())
	recv := deviceBuf(make([]byte, 16))
	p := coll.NewAllreduceParam(deviceBuf(make([]byte, 16)), recv, 4, dtypes.Float32, coll.ReduceSum,
		world.Comm(0), nil).AsScaleOut()
	s := sched.New(b, sched.Options{})
	_, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Memory().AllocatedBytes())
	assert.Empty(t, entriesOf(s, sched.KindCopy))
	assert.NotEmpty(t, entriesOf(s, sched.KindFunction), "the network leg is still built")
}

func TestHMEMSkipsStaging(t *testing.T) {
	b := newBackend(t, "transport=ofi,hmem")
	world := newWorld(b, 2, 1)
	cfg := config.Default()
	cfg.UseHMEM = true
	c := compose.New(b, cfg)
	require.True(t, c.IsHMEMEnabled())
	p := coll.NewAllreduceParam(deviceBuf(make([]byte, 16)), deviceBuf(make([]byte, 16)), 4, dtypes.Float32,
		coll.ReduceSum, world.Comm(0), nil)
	s := sched.New(b, sched.Options{})
	_, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Memory().AllocatedBytes())
	assert.Empty(t, entriesOf(s, sched.KindCopy))
}

func TestMultiWorker(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 1)
	cfg := must.M1(config.Parse("workers=2"))
	c := compose.New(b, cfg)
	comm := world.Comm(0)

	// Unsupported types fail before anything is appended.
	for _, p := range []coll.Param{
		coll.NewBcastParam(deviceBuf(make([]byte, 4)), 4, dtypes.Uint8, 0, comm, nil),
		coll.NewAlltoallParam(deviceBuf(make([]byte, 2)), deviceBuf(make([]byte, 2)), 1, dtypes.Uint8, comm, nil),
	} {
		s := sched.New(b, sched.Options{})
		assert.Panics(t, func() { _, _ = c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{}) }, "%s", p.CType)
		assert.Panics(t, func() { _, _ = c.AddColl(s, p, nil) }, "%s", p.CType)
		assert.Equal(t, 0, s.Len(), "%s", p.CType)
		assert.Equal(t, 0, s.Memory().AllocatedBytes(), "%s", p.CType)
	}

	alltoall := coll.NewAlltoallParam(deviceBuf(make([]byte, 2)), deviceBuf(make([]byte, 2)), 1, dtypes.Uint8, comm, nil)
	assert.Panics(t, func() { c.CheckScaleOut(alltoall, false) })
	assert.NotPanics(t, func() { c.CheckScaleOut(alltoall, true) }, "no network phase on a single node")
	assert.NotPanics(t, func() { compose.New(b, config.Default()).CheckScaleOut(alltoall, false) })

	// Supported types get a sub-schedule with empty attributes.
	p := coll.NewAllreduceParam(deviceBuf(make([]byte, 4)), deviceBuf(make([]byte, 4)), 4, dtypes.Uint8,
		coll.ReduceSum, comm, nil)
	s := sched.New(b, sched.Options{Attr: coll.Attr{IsDeviceBuf: true}})
	_, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{})
	require.NoError(t, err)
	subs := entriesOf(s, sched.KindSubSchedule)
	require.Len(t, subs, 1)
	assert.Equal(t, "SCALEOUT", subs[0].Name())
	assert.Equal(t, coll.Attr{}, subs[0].SubSchedule().Attr())
	assert.NotZero(t, subs[0].SubSchedule().Len())
}

func TestMultiWorkerExecution(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 1)
	c := compose.New(b, must.M1(config.Parse("workers=2,parallelism=2")))
	recvs := make([][]byte, 2)
	runRanks(t, 2, func(rank int) error {
		recvs[rank] = make([]byte, 3)
		p := coll.NewAllreduceParam(deviceBuf([]byte{1, 2, 3}), deviceBuf(recvs[rank]), 3, dtypes.Int8,
			coll.ReduceProd, world.Comm(rank), nil)
		s := sched.New(b, sched.Options{})
		defer s.Release()
		if _, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{}); err != nil {
			return err
		}
		return s.Execute(context.Background())
	})
	for rank := range 2 {
		assert.Equal(t, []byte{1, 4, 9}, recvs[rank])
	}
}

func TestSingleListOrdering(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 2)
	recvCounts := []int{2, 3, 1, 4}
	for _, singleList := range []bool{true, false} {
		cfg := config.Default()
		cfg.SingleList = singleList
		c := compose.New(b, cfg)
		send := make([]backends.Buffer, len(recvCounts))
		recv := make([]backends.Buffer, len(recvCounts))
		for i, count := range recvCounts {
			send[i] = deviceBuf(make([]byte, 2*count))
			recv[i] = deviceBuf(make([]byte, 2*count))
		}
		p := coll.Param{CType: coll.CollAlltoallv, SendBufs: send, RecvBufs: recv, SendCounts: recvCounts,
			RecvCounts: recvCounts, DType: dtypes.Float16, Comm: world.Comm(1)}
		require.NoError(t, p.Validate())
		s := sched.New(b, sched.Options{SingleList: singleList, Attr: coll.Attr{IsVectorBuf: true}})
		_, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{})
		require.NoError(t, err)

		copies := entriesOf(s, sched.KindCopy)
		require.Len(t, copies, 2*len(recvCounts))
		for i := 1; i < len(copies); i++ {
			if singleList {
				assert.Contains(t, copies[i].WaitList(), copies[i-1].SignalEvent())
			} else {
				assert.Empty(t, copies[i].WaitList())
			}
		}
		// Staging copies are independent of each other: same stage.
		stage := s.StageOf(copies[0])
		for _, e := range copies[1:len(recvCounts)] {
			assert.Equal(t, stage, s.StageOf(e))
		}
		assert.Less(t, stage, s.StageOf(copies[len(recvCounts)]))
	}
}

func TestAddCollEntryStrategies(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		b := newBackend(t, "transport=shm")
		comm := newWorld(b, 1, 2).Comm(0)
		s := sched.New(b, sched.Options{})
		require.NoError(t, compose.New(b, config.Default()).AddCollEntry(s, coll.NewBarrierParam(comm)))
		assert.Empty(t, entriesOf(s, sched.KindCollective))
		assert.Len(t, entriesOf(s, sched.KindFunction), 1)
		assert.False(t, s.IsStrictOrder())
	})
	t.Run("wrapped", func(t *testing.T) {
		b := newBackend(t, "transport=ofi")
		comm := newWorld(b, 1, 2).Comm(0)
		s := sched.New(b, sched.Options{})
		require.NoError(t, compose.New(b, config.Default()).AddCollEntry(s, coll.NewBarrierParam(comm)))
		collectives := entriesOf(s, sched.KindCollective)
		require.Len(t, collectives, 1)
		assert.NotZero(t, collectives[0].Collective().Inner.Len())
		assert.False(t, s.IsStrictOrder())
	})
	t.Run("device-topology", func(t *testing.T) {
		b := newBackend(t, "transport=shm")
		comm := newWorld(b, 1, 2).Comm(0)
		s := sched.New(b, sched.Options{})
		p := coll.NewAllreduceParam(deviceBuf(make([]byte, 4)), deviceBuf(make([]byte, 4)), 4, dtypes.Uint8,
			coll.ReduceSum, comm, &coll.Stream{Device: 0})
		require.NoError(t, compose.New(b, config.Default()).AddCollEntry(s, p))
		collectives := entriesOf(s, sched.KindCollective)
		require.Len(t, collectives, 1)
		assert.Equal(t, "topo", collectives[0].Collective().Algorithm)
		assert.True(t, s.IsStrictOrder())
		assert.True(t, collectives[0].Collective().Inner.IsStrictOrder())
	})
	t.Run("unknown-type", func(t *testing.T) {
		b := newBackend(t, "")
		comm := newWorld(b, 1, 1).Comm(0)
		s := sched.New(b, sched.Options{})
		assert.Panics(t, func() {
			_ = compose.New(b, config.Default()).AddCollEntry(s, coll.Param{CType: coll.CollInvalid, Comm: comm})
		})
	})
}

func TestCommBarrier(t *testing.T) {
	b := newBackend(t, "transport=shm")
	comm := newWorld(b, 1, 1).Comm(0)
	pool := must.M1(b.NewEventPool(comm, 1))

	c := compose.New(b, config.Default())
	s := sched.New(b, sched.Options{})
	require.NoError(t, c.AddCommBarrier(s, comm, pool, 0))
	assert.Len(t, entriesOf(s, sched.KindBarrier), 1)

	// Without pool, or with pools disabled, it's a barrier collective.
	disabled := compose.New(b, must.M1(config.Parse("no_barrier_pool")))
	for _, tc := range []struct {
		c    *compose.Composer
		pool backends.EventPool
	}{{c, nil}, {disabled, pool}} {
		s := sched.New(b, sched.Options{})
		require.NoError(t, tc.c.AddCommBarrier(s, comm, tc.pool, 0))
		assert.Empty(t, entriesOf(s, sched.KindBarrier))
		assert.Len(t, entriesOf(s, sched.KindFunction), 1)
	}

	// With events: under single-list the barrier waits for the list.
	s = sched.New(b, sched.Options{SingleList: true})
	prior := s.Memory().Events().Create()
	wait, err := c.AddCommBarrierEvents(s, comm, []backends.Event{prior}, pool, 0)
	require.NoError(t, err)
	require.Len(t, wait, 2)
	assert.Same(t, prior, wait[0])
	kinds := make([]sched.EntryKind, s.Len())
	for i, e := range s.Entries() {
		kinds[i] = e.Kind()
	}
	assert.Equal(t, []sched.EntryKind{sched.KindWaitEvents, sched.KindBarrier, sched.KindSignalEvent}, kinds)

	s = sched.New(b, sched.Options{})
	wait, err = c.AddCommBarrierEvents(s, comm, nil, pool, 0)
	require.NoError(t, err)
	assert.Len(t, wait, 1)
	assert.Empty(t, entriesOf(s, sched.KindWaitEvents))
	require.NoError(t, s.Execute(context.Background()))
	assert.True(t, wait[0].IsSignaled())
}

func TestHandleExchangeCacheLaw(t *testing.T) {
	b := newBackend(t, "transport=shm")
	world := newWorld(b, 1, 2)
	c := compose.New(b, config.Default())
	const numExecutions = 5
	runRanks(t, 2, func(rank int) error {
		comm := world.Comm(rank)
		pool, err := b.NewEventPool(comm, 1)
		if err != nil {
			return err
		}
		s := sched.New(b, sched.Options{Attr: coll.Attr{ToCache: true, CacheKey: "exchange"}})
		defer s.Release()
		mem := simgo.Wrap(make([]byte, 8), backends.PlaceDevice)
		if err := c.AddHandleExchange(s, comm, []backends.Memory{mem}, -1, pool, 0); err != nil {
			return err
		}
		for range numExecutions {
			if err := s.Execute(context.Background()); err != nil {
				return err
			}
		}
		return nil
	})
	assert.Equal(t, 2, b.HandleExchanges(), "one exchange per rank")
	assert.Equal(t, 2*numExecutions, b.PoolBarriers(), "regular barriers run every execution")

	// Not cacheable: exchanged every time, no extra barrier.
	s := sched.New(b, sched.Options{})
	require.NoError(t, c.AddHandleExchange(s, world.Comm(0), nil, -1, nil, 0))
	require.Equal(t, 1, s.Len())
	assert.Equal(t, sched.ExecRegular, s.Entries()[0].ExecMode())
}

func TestStagingAllocationFailure(t *testing.T) {
	b := newBackend(t, "transport=ofi,fail_alloc")
	world := newWorld(b, 2, 1)
	c := compose.New(b, config.Default())
	p := coll.NewAllreduceParam(deviceBuf(make([]byte, 4)), deviceBuf(make([]byte, 4)), 1, dtypes.Float32,
		coll.ReduceSum, world.Comm(0), nil)
	s := sched.New(b, sched.Options{})
	_, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allreduce")
}

func TestZeroVectorCountsAreNotStaged(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 1)
	c := compose.New(b, config.Default())
	comm := world.Comm(0)
	buf := deviceBuf(make([]byte, 4))
	for _, p := range []coll.Param{
		coll.NewAllgathervParam(buf, 0, buf, []int{0, 0}, dtypes.Float32, comm, nil),
		coll.NewAlltoallvParam(buf, []int{0, 0}, buf, []int{0, 0}, dtypes.Float32, comm, nil),
		coll.NewAlltoallParam(buf, buf, 0, dtypes.Float32, comm, nil),
	} {
		assert.False(t, compose.IsMultiNode(p, false), "%s", p)
		s := sched.New(b, sched.Options{})
		wait, err := c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{})
		require.NoError(t, err)
		assert.Empty(t, wait)
		assert.Equal(t, 0, s.Len(), "%s", p)
		s.Release()
	}
	assert.Zero(t, b.LiveAllocations())
}

func TestZeroStagingSizePanics(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 1)
	c := compose.New(b, config.Default())
	// Inconsistent descriptor: a count > 0 but no per-peer receive counts.
	p := coll.NewAlltoallParam(deviceBuf(make([]byte, 4)), deviceBuf(make([]byte, 4)), 1, dtypes.Float32,
		world.Comm(0), nil)
	p.SendCounts, p.RecvCounts = []int{0, 0}, []int{0, 0}
	s := sched.New(b, sched.Options{})
	defer s.Release()
	assert.Panics(t, func() { _, _ = c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{}) })
}

func TestAsymmetricAlltoallvPanics(t *testing.T) {
	b := newBackend(t, "transport=ofi")
	world := newWorld(b, 2, 1)
	c := compose.New(b, config.Default())
	p := coll.NewAlltoallvParam(deviceBuf(make([]byte, 6)), []int{3, 3}, deviceBuf(make([]byte, 4)), []int{2, 2},
		dtypes.Uint8, world.Comm(0), nil)
	s := sched.New(b, sched.Options{})
	defer s.Release()
	assert.Panics(t, func() { _, _ = c.AddScaleOut(s, p, false, nil, h2d, compose.GlobalTarget{}) })
	assert.Zero(t, b.LiveAllocations(), "nothing is allocated")
}
