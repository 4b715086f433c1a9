// Package naive implements exchange-based algorithms for every collective type: each rank sends
// its contribution to every rank that needs it, in one all-to-all exchange, and reductions are
// done locally, in rank order, so every rank computes bit-identical results.
//
// They are registered as both algorithms.AlgoNaive and algorithms.AlgoDirect, the latter can be
// appended straight into the caller's schedule on in-process transports.
package naive

import (
	"context"
	"slices"

	"github.com/gomlx/collectives/pkg/core/algorithms"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/pkg/errors"
)

// Builders of the naive algorithms, per collective type.
var Builders = map[coll.CollectiveType]algorithms.Builder{
	coll.CollAllgatherv:    buildAllgatherv,
	coll.CollAllreduce:     buildAllreduce,
	coll.CollAlltoall:      buildAlltoallv,
	coll.CollAlltoallv:     buildAlltoallv,
	coll.CollBarrier:       buildBarrier,
	coll.CollBcast:         buildBcast,
	coll.CollGather:        buildGather,
	coll.CollReduce:        buildReduce,
	coll.CollReduceScatter: buildReduceScatter,
	coll.CollScatter:       buildScatter,
}

func init() {
	for ctype, builder := range Builders {
		algorithms.Register(ctype, algorithms.AlgoNaive, algorithms.Info{Builder: builder})
		algorithms.Register(ctype, algorithms.AlgoDirect, algorithms.Info{Builder: builder, Direct: true})
	}
}

// Build appends the naive algorithm for p to s.
func Build(env algorithms.Env, s *sched.Schedule, p coll.Param) error {
	builder, found := Builders[p.CType]
	if !found {
		return errors.Errorf("naive: no algorithm for %s", p.CType)
	}
	return builder(env, s, p)
}

// appendExchange appends a function entry named after the collective, followed by a barrier:
// exchanges of the same communicator must be started in the same order by every rank, so they
// never share a stage.
func appendExchange(s *sched.Schedule, p coll.Param, fn func(ctx context.Context) error) {
	name := "naive_" + p.CType.String()
	sched.NewFunctionEntry(s, name, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return errors.WithMessagef(err, "%s on rank %d of %d", name, p.Comm.Rank(), p.Comm.Size())
		}
		return nil
	})
	s.AddBarrier()
}

// broadcastParts returns size parts all pointing to data.
func broadcastParts(data []byte, size int) [][]byte {
	parts := make([][]byte, size)
	for i := range parts {
		parts[i] = data
	}
	return parts
}

func buildBarrier(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := Exchanger(p)
	appendExchange(s, p, func(ctx context.Context) error {
		_, err := ex.AllToAll(ctx, nil)
		return err
	})
	return nil
}

func buildBcast(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := Exchanger(p)
	numBytes := p.Count * p.ElementSize()
	appendExchange(s, p, func(ctx context.Context) error {
		var parts [][]byte
		if ex.Rank() == p.Root {
			parts = broadcastParts(BytesOf(p.SendBuf, numBytes), ex.Size())
		}
		received, err := ex.AllToAll(ctx, parts)
		if err != nil {
			return err
		}
		if ex.Rank() != p.Root {
			copy(BytesOf(p.RecvBuf, numBytes), received[p.Root])
		}
		return nil
	})
	return nil
}

// reduceInto reduces the contributions, in rank order, into dst.
func reduceInto(p coll.Param, dst []byte, contributions [][]byte) error {
	copy(dst, contributions[0])
	for _, part := range contributions[1:] {
		if err := ReduceBytes(p.DType, p.Reduction, dst, part); err != nil {
			return err
		}
	}
	return nil
}

func buildAllreduce(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := Exchanger(p)
	numBytes := p.Count * p.ElementSize()
	appendExchange(s, p, func(ctx context.Context) error {
		received, err := ex.AllToAll(ctx, broadcastParts(BytesOf(p.SendBuf, numBytes), ex.Size()))
		if err != nil || numBytes == 0 {
			return err
		}
		return reduceInto(p, BytesOf(p.RecvBuf, numBytes), received)
	})
	return nil
}

func buildReduce(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := Exchanger(p)
	numBytes := p.Count * p.ElementSize()
	appendExchange(s, p, func(ctx context.Context) error {
		parts := make([][]byte, ex.Size())
		parts[p.Root] = BytesOf(p.SendBuf, numBytes)
		received, err := ex.AllToAll(ctx, parts)
		if err != nil || ex.Rank() != p.Root || numBytes == 0 {
			return err
		}
		return reduceInto(p, BytesOf(p.RecvBuf, numBytes), received)
	})
	return nil
}

// buildReduceScatter: Count is the number of elements received by each rank, the send buffer
// holds Count elements per rank.
func buildReduceScatter(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := Exchanger(p)
	numBytes := p.Count * p.ElementSize()
	appendExchange(s, p, func(ctx context.Context) error {
		parts := make([][]byte, ex.Size())
		for peer := range parts {
			if numBytes > 0 {
				parts[peer] = BytesOf(p.SendBuf.Add(peer*numBytes), numBytes)
			}
		}
		received, err := ex.AllToAll(ctx, parts)
		if err != nil || numBytes == 0 {
			return err
		}
		return reduceInto(p, BytesOf(p.RecvBuf, numBytes), received)
	})
	return nil
}

func buildGather(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := Exchanger(p)
	numBytes := p.Count * p.ElementSize()
	appendExchange(s, p, func(ctx context.Context) error {
		parts := make([][]byte, ex.Size())
		parts[p.Root] = BytesOf(p.SendBuf, numBytes)
		received, err := ex.AllToAll(ctx, parts)
		if err != nil || ex.Rank() != p.Root || numBytes == 0 {
			return err
		}
		for peer, part := range received {
			copy(BytesOf(p.RecvBuf.Add(peer*numBytes), numBytes), part)
		}
		return nil
	})
	return nil
}

func buildScatter(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := Exchanger(p)
	numBytes := p.Count * p.ElementSize()
	appendExchange(s, p, func(ctx context.Context) error {
		var parts [][]byte
		if ex.Rank() == p.Root && numBytes > 0 {
			parts = make([][]byte, ex.Size())
			for peer := range parts {
				parts[peer] = BytesOf(p.SendBuf.Add(peer*numBytes), numBytes)
			}
		}
		received, err := ex.AllToAll(ctx, parts)
		if err != nil || numBytes == 0 {
			return err
		}
		copy(BytesOf(p.RecvBuf, numBytes), received[p.Root])
		return nil
	})
	return nil
}

func buildAllgatherv(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := Exchanger(p)
	es := p.ElementSize()
	appendExchange(s, p, func(ctx context.Context) error {
		own, ownCount := OwnAllgathervData(p)
		data := slices.Clone(BytesOf(own, ownCount*es))
		received, err := ex.AllToAll(ctx, broadcastParts(data, ex.Size()))
		if err != nil {
			return err
		}
		for peer, part := range received {
			if len(part) != p.RecvCounts[peer]*es {
				return errors.Errorf("received %d bytes from rank %d, expected recv_counts[%d]=%d elements of %s",
					len(part), peer, peer, p.RecvCounts[peer], p.DType)
			}
			copy(BytesOf(RecvSegment(p, peer), len(part)), part)
		}
		return nil
	})
	return nil
}

// buildAlltoallv also serves Alltoall, whose constructor fills in the per-peer counts.
func buildAlltoallv(_ algorithms.Env, s *sched.Schedule, p coll.Param) error {
	ex := Exchanger(p)
	es := p.ElementSize()
	appendExchange(s, p, func(ctx context.Context) error {
		parts := make([][]byte, ex.Size())
		for peer := range parts {
			parts[peer] = BytesOf(SendSegment(p, peer), p.SendCounts[peer]*es)
		}
		received, err := ex.AllToAll(ctx, parts)
		if err != nil {
			return err
		}
		for peer, part := range received {
			if len(part) != p.RecvCounts[peer]*es {
				return errors.Errorf("received %d bytes from rank %d, expected recv_counts[%d]=%d elements of %s",
					len(part), peer, peer, p.RecvCounts[peer], p.DType)
			}
			copy(BytesOf(RecvSegment(p, peer), len(part)), part)
		}
		return nil
	})
	return nil
}
