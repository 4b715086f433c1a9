// Package ring implements ring algorithms for Allreduce and Allgatherv: ranks are arranged in a
// ring, and in each step every rank only sends to its right neighbor and receives from its left
// one.
//
// Allreduce is a reduce-scatter phase followed by an allgather phase, each of size-1 steps
// over chunks of about count/size elements.
package ring

import (
	"context"
	"fmt"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/algorithms"
	"github.com/gomlx/collectives/pkg/core/algorithms/naive"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/pkg/errors"
)

func init() {
	algorithms.Register(coll.CollAllreduce, algorithms.AlgoRing, algorithms.Info{Builder: BuildAllreduce})
	algorithms.Register(coll.CollAllgatherv, algorithms.AlgoRing, algorithms.Info{Builder: BuildAllgatherv})
}

// Chunks splits count elements in size chunks, returning the element offset and count of each.
// The first count%size chunks get one extra element.
func Chunks(count, size int) (offsets, counts []int) {
	offsets = make([]int, size)
	counts = make([]int, size)
	base, extra := count/size, count%size
	offset := 0
	for i := range size {
		counts[i] = base
		if i < extra {
			counts[i]++
		}
		offsets[i] = offset
		offset += counts[i]
	}
	return
}

// step appends one ring step: the caller sends sendData() to its right neighbor and hands
// what it received from its left neighbor to onRecv.
func step(s *sched.Schedule, name string, ex backends.Exchanger, sendData func() []byte, onRecv func([]byte) error) {
	rank, size := ex.Rank(), ex.Size()
	right, left := (rank+1)%size, (rank-1+size)%size
	sched.NewFunctionEntry(s, name, func(ctx context.Context) error {
		parts := make([][]byte, size)
		parts[right] = sendData()
		received, err := ex.AllToAll(ctx, parts)
		if err != nil {
			return errors.WithMessagef(err, "%s on rank %d", name, rank)
		}
		return onRecv(received[left])
	})
	s.AddBarrier()
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

// BuildAllreduce appends a ring allreduce to s.
func BuildAllreduce(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := naive.Exchanger(p)
	rank, size := ex.Rank(), ex.Size()
	es := p.ElementSize()
	numBytes := p.Count * es
	if numBytes == 0 {
		return nil
	}
	offsets, counts := Chunks(p.Count, size)
	chunk := func(idx int) []byte {
		return naive.BytesOf(p.RecvBuf.Add(offsets[idx]*es), counts[idx]*es)
	}

	if !p.IsInPlace() {
		sched.NewFunctionEntry(s, "ring_allreduce_init", func(context.Context) error {
			copy(p.RecvBuf.Bytes(numBytes), p.SendBuf.Bytes(numBytes))
			return nil
		})
		s.AddBarrier()
	}
	if size == 1 {
		return nil
	}

	// Reduce-scatter: after size-1 steps rank holds the reduced chunk (rank+1)%size.
	for i := range size - 1 {
		sendIdx, recvIdx := mod(rank-i, size), mod(rank-i-1, size)
		step(s, fmt.Sprintf("ring_reduce_scatter_%d", i), ex,
			func() []byte { return chunk(sendIdx) },
			func(data []byte) error { return naive.ReduceBytes(p.DType, p.Reduction, chunk(recvIdx), data) })
	}

	// Allgather of the reduced chunks.
	for i := range size - 1 {
		sendIdx, recvIdx := mod(rank+1-i, size), mod(rank-i, size)
		step(s, fmt.Sprintf("ring_allgather_%d", i), ex,
			func() []byte { return chunk(sendIdx) },
			func(data []byte) error {
				copy(chunk(recvIdx), data)
				return nil
			})
	}
	return nil
}

// BuildAllgatherv appends a ring allgatherv to s.
func BuildAllgatherv(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := naive.Exchanger(p)
	rank, size := ex.Rank(), ex.Size()
	es := p.ElementSize()
	segment := func(peer int) []byte {
		return naive.BytesOf(naive.RecvSegment(p, peer), p.RecvCounts[peer]*es)
	}

	if !p.IsInPlace() {
		sched.NewFunctionEntry(s, "ring_allgatherv_init", func(context.Context) error {
			own, ownCount := naive.OwnAllgathervData(p)
			if ownCount != p.RecvCounts[rank] {
				return errors.Errorf("ring_allgatherv: send_count=%d but recv_counts[%d]=%d", ownCount, rank, p.RecvCounts[rank])
			}
			copy(segment(rank), naive.BytesOf(own, ownCount*es))
			return nil
		})
		s.AddBarrier()
	}

	for i := range size - 1 {
		sendIdx, recvIdx := mod(rank-i, size), mod(rank-i-1, size)
		step(s, fmt.Sprintf("ring_allgatherv_%d", i), ex,
			func() []byte { return segment(sendIdx) },
			func(data []byte) error {
				if len(data) != p.RecvCounts[recvIdx]*es {
					return errors.Errorf("ring_allgatherv: received %d bytes for rank %d, expected %d elements",
						len(data), recvIdx, p.RecvCounts[recvIdx])
				}
				copy(segment(recvIdx), data)
				return nil
			})
	}
	return nil
}
