package topo_test

import (
	"context"
	"sync"
	"testing"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/backends/simgo"
	"github.com/gomlx/collectives/pkg/core/algorithms"
	"github.com/gomlx/collectives/pkg/core/algorithms/topo"
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

func device(data []byte) backends.Buffer {
	return backends.NewBuffer(simgo.Wrap(data, backends.PlaceDevice))
}

// run builds and executes the schedule of every rank concurrently.
func run(t *testing.T, numRanks, numExecutions int, build func(s *sched.Schedule, comm coll.Communicator) error,
	opts sched.Options, b *simgo.Backend) {
	world := b.NewWorld(must.M1(distributed.NewTopology(1, numRanks)))
	var wg sync.WaitGroup
	errs := make([]error, numRanks)
	for rank := range numRanks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := sched.New(b, opts)
			defer s.Release()
			if errs[rank] = build(s, world.Comm(rank)); errs[rank] != nil {
				return
			}
			for range numExecutions {
				if errs[rank] = s.Execute(context.Background()); errs[rank] != nil {
					return
				}
			}
		}()
	}
	wg.Wait()
	for rank, err := range errs {
		require.NoErrorf(t, err, "rank %d", rank)
	}
}

func TestAllreduceCached(t *testing.T) {
	b := must.M1(simgo.New("transport=shm"))
	defer b.Finalize()
	c := compose.New(b, config.Default())
	const (
		numRanks      = 3
		numExecutions = 3
	)
	recv := make([][]byte, numRanks)
	opts := sched.Options{Attr: coll.Attr{ToCache: true, CacheKey: "allreduce", IsDeviceBuf: true}}
	run(t, numRanks, numExecutions, func(s *sched.Schedule, comm coll.Communicator) error {
		rank := comm.Rank()
		recv[rank] = make([]byte, 4)
		p := coll.NewAllreduceParam(device([]byte{byte(rank), 1, 2, 3}), device(recv[rank]), 4, dtypes.Uint8,
			coll.ReduceSum, comm, &coll.Stream{Device: rank})
		if err := c.AddCollEntry(s, p); err != nil {
			return err
		}
		if !s.IsStrictOrder() {
			t.Errorf("rank %d: device-topology schedule is not in strict order", rank)
		}
		return nil
	}, opts, b)
	for rank := range numRanks {
		assert.Equal(t, []byte{0 + 1 + 2, 3, 6, 9}, recv[rank])
	}
	assert.Equal(t, numRanks, b.HandleExchanges(), "handles are exchanged once per rank")
	assert.Equal(t, numRanks*numExecutions*2, b.PoolBarriers())
}

func TestBcast(t *testing.T) {
	b := must.M1(simgo.New("transport=shm"))
	defer b.Finalize()
	env := algorithms.Env{Backend: b, Config: must.M1(config.Parse("no_barrier_pool"))}
	const (
		numRanks = 4
		root     = 2
	)
	data := make([][]byte, numRanks)
	run(t, numRanks, 2, func(s *sched.Schedule, comm coll.Communicator) error {
		rank := comm.Rank()
		data[rank] = make([]byte, 2)
		if rank == root {
			data[rank] = []byte{42, 43}
		}
		p := coll.NewBcastParam(device(data[rank]), 2, dtypes.Uint8, root, comm, &coll.Stream{Device: rank})
		if err := topo.Build(env, s, p); err != nil {
			return err
		}
		for _, e := range s.Entries() {
			if e.Kind() == sched.KindBarrier {
				t.Errorf("rank %d: pool barrier with barrier pools disabled", rank)
			}
			if e.Kind() == sched.KindHandleExchange && e.HandleExchange().SkipRank != root {
				t.Errorf("rank %d: the root must not publish its handles", rank)
			}
		}
		return nil
	}, sched.Options{}, b)
	for rank := range numRanks {
		assert.Equal(t, []byte{42, 43}, data[rank])
	}
	assert.Equal(t, 2*numRanks, b.HandleExchanges(), "not cacheable: exchanged on every execution")
	assert.Equal(t, 0, b.PoolBarriers())
}

func TestRequiresPeerToPeer(t *testing.T) {
	b := must.M1(simgo.New("transport=shm,no_p2p"))
	defer b.Finalize()
	comm := b.NewWorld(must.M1(distributed.NewTopology(1, 2))).Comm(0)
	s := sched.New(b, sched.Options{})
	p := coll.NewAllreduceParam(device(make([]byte, 4)), device(make([]byte, 4)), 4, dtypes.Uint8, coll.ReduceSum,
		comm, &coll.Stream{})
	err := topo.Build(algorithms.Env{Backend: b, Config: config.Default()}, s, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "peer-to-peer")
	assert.Equal(t, 0, s.Len())
}

func TestRegistered(t *testing.T) {
	for _, ctype := range []coll.CollectiveType{coll.CollAllreduce, coll.CollBcast, coll.CollReduce, coll.CollAllgatherv} {
		info, found := algorithms.Lookup(ctype, algorithms.AlgoTopo)
		require.True(t, found, "%s", ctype)
		assert.True(t, info.DeviceSide)
	}
	_, found := algorithms.Lookup(coll.CollAlltoallv, algorithms.AlgoTopo)
	assert.False(t, found)
}
