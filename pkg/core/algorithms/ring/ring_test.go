package ring_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/backends/simgo"
	"github.com/gomlx/collectives/pkg/core/algorithms"
	"github.com/gomlx/collectives/pkg/core/algorithms/ring"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/config"
	"github.com/gomlx/collectives/pkg/core/distributed"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	offsets, counts := ring.Chunks(10, 4)
	assert.Equal(t, []int{3, 3, 2, 2}, counts)
	assert.Equal(t, []int{0, 3, 6, 8}, offsets)

	offsets, counts = ring.Chunks(2, 3)
	assert.Equal(t, []int{1, 1, 0}, counts)
	assert.Equal(t, []int{0, 1, 2}, offsets)
}

func host(data []byte) backends.Buffer {
	return backends.NewBuffer(simgo.Wrap(data, backends.PlaceHost))
}

// execute builds p(rank) with builder on every rank, and executes the schedules twice.
func execute(t *testing.T, numRanks int, builder algorithms.Builder, p func(comm coll.Communicator) coll.Param) {
	b := must.M1(simgo.New(""))
	defer b.Finalize()
	world := b.NewWorld(must.M1(distributed.NewTopology(numRanks, 1)))
	env := algorithms.Env{Backend: b, Config: config.Default()}
	var wg sync.WaitGroup
	errs := make([]error, numRanks)
	for rank := range numRanks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := sched.New(b, sched.Options{})
			if errs[rank] = builder(env, s, p(world.Comm(rank))); errs[rank] != nil {
				return
			}
			for range 2 {
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

func TestAllreduce(t *testing.T) {
	for _, numRanks := range []int{1, 2, 3, 4} {
		for _, count := range []int{1, 2, 7} {
			for _, inPlace := range []bool{false, true} {
				t.Run(fmt.Sprintf("ranks=%d,count=%d,inPlace=%v", numRanks, count, inPlace), func(t *testing.T) {
					recv := make([][]byte, numRanks)
					execute(t, numRanks, ring.BuildAllreduce, func(comm coll.Communicator) coll.Param {
						rank := comm.Rank()
						send := make([]byte, count)
						for i := range send {
							send[i] = byte(rank + i)
						}
						if inPlace {
							recv[rank] = send
							return coll.NewAllreduceParam(host(send), host(send), count, dtypes.Uint8, coll.ReduceSum,
								comm, nil)
						}
						recv[rank] = make([]byte, count)
						return coll.NewAllreduceParam(host(send), host(recv[rank]), count, dtypes.Uint8, coll.ReduceSum,
							comm, nil)
					})
					want := make([]byte, count)
					for i := range want {
						for rank := range numRanks {
							want[i] += byte(rank + i)
						}
						if inPlace {
							// The second execution reduces the results of the first one.
							want[i] *= byte(numRanks)
						}
					}
					for rank := range numRanks {
						assert.Equal(t, want, recv[rank], "rank %d", rank)
					}
				})
			}
		}
	}
}

func TestAllgatherv(t *testing.T) {
	recvCounts := []int{3, 0, 1, 2}
	numRanks := len(recvCounts)
	recv := make([][]byte, numRanks)
	execute(t, numRanks, ring.BuildAllgatherv, func(comm coll.Communicator) coll.Param {
		rank := comm.Rank()
		send := make([]byte, recvCounts[rank])
		for i := range send {
			send[i] = byte(10*rank + i)
		}
		recv[rank] = make([]byte, 6)
		return coll.NewAllgathervParam(host(send), recvCounts[rank], host(recv[rank]), recvCounts, dtypes.Uint8, comm, nil)
	})
	for rank := range numRanks {
		assert.Equal(t, []byte{0, 1, 2, 20, 30, 31}, recv[rank])
	}
}

func TestRegistered(t *testing.T) {
	assert.Equal(t, algorithms.AlgoRing, algorithms.Default(coll.CollAllreduce))
	assert.Equal(t, algorithms.AlgoRing, algorithms.Default(coll.CollAllgatherv))
	_, found := algorithms.Lookup(coll.CollBcast, algorithms.AlgoRing)
	assert.False(t, found)
}
