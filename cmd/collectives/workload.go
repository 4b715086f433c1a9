package main

import (
	"bytes"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/backends/simgo"
	"github.com/gomlx/collectives/pkg/collectives"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/distributed"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/gomlx/exceptions"
)

// workload holds the arguments of one collective call on every rank of a simulated world, and
// the expected contents of the receive buffers once it executed.
//
// Elements are uint8: rank r contributes the value r+1 (or a value derived from r and the peer
// for all-to-all operations), and reductions wrap around at 256.
type workload struct {
	ctype coll.CollectiveType
	ops   []collectives.Op

	// recv[rank] is the receive buffer of rank, and want[rank] its expected contents. A nil
	// want is not checked.
	recv, want [][]byte
}

func device(data []byte) backends.Buffer {
	return backends.NewBuffer(simgo.Wrap(data, backends.PlaceDevice))
}

func filled(n int, value byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = value
	}
	return data
}

// peerCount returns the number of elements sent by rank to peer in an all-to-all with per-peer
// counts: symmetric in rank and peer, so that send and receive counts match.
func peerCount(counts []int, rank, peer int) int {
	return counts[(rank+peer)%len(counts)]
}

// newWorkload creates the arguments of ctype for each rank of topology. count is the per-rank
// element count, counts the per-rank (or per-peer, for alltoallv) counts of variable
// collectives, defaulting to count.
func newWorkload(ctype coll.CollectiveType, topology *distributed.Topology, count int, counts []int, root int,
	attr coll.Attr, hints coll.Hints) *workload {
	n := topology.NumRanks()
	if len(counts) == 0 {
		counts = []int{count}
	}
	w := &workload{ctype: ctype, ops: make([]collectives.Op, n), recv: make([][]byte, n), want: make([][]byte, n)}
	sum := byte(0)
	for rank := range n {
		sum += byte(rank + 1)
	}
	for rank := range n {
		op := collectives.Op{
			DType:     dtypes.Uint8,
			Reduction: coll.ReduceSum,
			Root:      root,
			Count:     count,
			Stream:    &coll.Stream{Device: topology.LocalRank(rank)},
			Attr:      attr,
			Hints:     hints,
		}
		switch ctype {
		case coll.CollAllreduce, coll.CollReduce:
			w.recv[rank] = make([]byte, count)
			op.SendBuf, op.RecvBuf = device(filled(count, byte(rank+1))), device(w.recv[rank])
			if ctype == coll.CollAllreduce || rank == root {
				w.want[rank] = filled(count, sum)
			}

		case coll.CollBcast:
			w.recv[rank] = make([]byte, count)
			if rank == root {
				copy(w.recv[rank], filled(count, byte(root+1)))
			}
			op.RecvBuf = device(w.recv[rank])
			w.want[rank] = filled(count, byte(root+1))

		case coll.CollAllgatherv:
			recvCounts := make([]int, n)
			var want []byte
			for peer := range n {
				recvCounts[peer] = counts[peer%len(counts)]
				want = append(want, filled(recvCounts[peer], byte(peer+1))...)
			}
			w.recv[rank], w.want[rank] = make([]byte, len(want)), want
			op.SendBuf, op.SendCount = device(filled(recvCounts[rank], byte(rank+1))), recvCounts[rank]
			op.RecvBuf, op.RecvCounts = device(w.recv[rank]), recvCounts

		case coll.CollAlltoall, coll.CollAlltoallv:
			peerCounts := make([]int, n)
			var send, want []byte
			for peer := range n {
				peerCounts[peer] = count
				if ctype == coll.CollAlltoallv {
					peerCounts[peer] = peerCount(counts, rank, peer)
				}
				send = append(send, filled(peerCounts[peer], byte(rank*n+peer))...)
				want = append(want, filled(peerCounts[peer], byte(peer*n+rank))...)
			}
			w.recv[rank], w.want[rank] = make([]byte, len(want)), want
			op.SendBuf, op.RecvBuf = device(send), device(w.recv[rank])
			if ctype == coll.CollAlltoallv {
				op.SendCounts, op.RecvCounts = peerCounts, peerCounts
			}

		case coll.CollGather:
			op.SendBuf = device(filled(count, byte(rank+1)))
			if rank == root {
				var want []byte
				for peer := range n {
					want = append(want, filled(count, byte(peer+1))...)
				}
				w.recv[rank], w.want[rank] = make([]byte, len(want)), want
				op.RecvBuf = device(w.recv[rank])
			}

		case coll.CollScatter:
			if rank == root {
				var send []byte
				for peer := range n {
					send = append(send, filled(count, byte(peer+1))...)
				}
				op.SendBuf = device(send)
			}
			w.recv[rank] = make([]byte, count)
			op.RecvBuf = device(w.recv[rank])
			w.want[rank] = filled(count, byte(rank+1))

		case coll.CollReduceScatter:
			// Block b of the send buffer of rank r holds r+b+1.
			var send []byte
			for block := range n {
				send = append(send, filled(count, byte(rank+block+1))...)
			}
			w.recv[rank] = make([]byte, count)
			op.SendBuf, op.RecvBuf = device(send), device(w.recv[rank])
			total := byte(0)
			for sender := range n {
				total += byte(sender + rank + 1)
			}
			w.want[rank] = filled(count, total)

		case coll.CollBarrier:

		default:
			exceptions.Panicf("no workload for collective %s", ctype)
		}
		w.ops[rank] = op
	}
	return w
}

// mismatches returns the ranks whose receive buffer doesn't hold the expected values.
func (w *workload) mismatches() []int {
	var ranks []int
	for rank, want := range w.want {
		if want == nil {
			continue
		}
		if !bytes.Equal(w.recv[rank], want) {
			ranks = append(ranks, rank)
		}
	}
	return ranks
}

// reset clears the receive buffers, except the ones also used as input (Bcast).
func (w *workload) reset() {
	if w.ctype == coll.CollBcast {
		return
	}
	for _, recv := range w.recv {
		clear(recv)
	}
}
