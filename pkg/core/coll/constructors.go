package coll

import (
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/dtypes"
)

// NewAllreduceParam creates the descriptor of an Allreduce.
func NewAllreduceParam(send, recv backends.Buffer, count int, dtype dtypes.DType, op ReduceOp,
	comm Communicator, stream *Stream) Param {
	return Param{
		CType:     CollAllreduce,
		SendBuf:   send,
		RecvBuf:   recv,
		Count:     count,
		DType:     dtype,
		Reduction: op,
		Comm:      comm,
		Stream:    stream,
	}
}

// NewReduceParam creates the descriptor of a Reduce to root.
func NewReduceParam(send, recv backends.Buffer, count int, dtype dtypes.DType, op ReduceOp, root int,
	comm Communicator, stream *Stream) Param {
	p := NewAllreduceParam(send, recv, count, dtype, op, comm, stream)
	p.CType = CollReduce
	p.Root = root
	return p
}

// NewAlltoallvParam creates the descriptor of an Alltoallv.
func NewAlltoallvParam(send backends.Buffer, sendCounts []int, recv backends.Buffer, recvCounts []int,
	dtype dtypes.DType, comm Communicator, stream *Stream) Param {
	return Param{
		CType:      CollAlltoallv,
		SendBuf:    send,
		RecvBuf:    recv,
		SendCounts: sendCounts,
		RecvCounts: recvCounts,
		DType:      dtype,
		Comm:       comm,
		Stream:     stream,
	}
}

// NewAllgathervParam creates the descriptor of an Allgatherv.
func NewAllgathervParam(send backends.Buffer, sendCount int, recv backends.Buffer, recvCounts []int,
	dtype dtypes.DType, comm Communicator, stream *Stream) Param {
	return Param{
		CType:      CollAllgatherv,
		SendBuf:    send,
		RecvBuf:    recv,
		SendCount:  sendCount,
		RecvCounts: recvCounts,
		DType:      dtype,
		Comm:       comm,
		Stream:     stream,
	}
}

// NewBcastParam creates the descriptor of a broadcast of buf from root.
func NewBcastParam(buf backends.Buffer, count int, dtype dtypes.DType, root int, comm Communicator,
	stream *Stream) Param {
	return Param{
		CType:   CollBcast,
		SendBuf: buf,
		RecvBuf: buf,
		Count:   count,
		DType:   dtype,
		Root:    root,
		Comm:    comm,
		Stream:  stream,
	}
}

// NewBarrierParam creates the descriptor of a barrier over comm.
func NewBarrierParam(comm Communicator) Param {
	return Param{CType: CollBarrier, Comm: comm}
}

// NewAlltoallParam creates the descriptor of an Alltoall of count elements per peer.
//
// The per-peer counts are filled in with count, so the fixed-count all-to-all is staged exactly
// like an Alltoallv.
func NewAlltoallParam(send, recv backends.Buffer, count int, dtype dtypes.DType, comm Communicator,
	stream *Stream) Param {
	counts := make([]int, comm.Size())
	for i := range counts {
		counts[i] = count
	}
	return Param{
		CType:      CollAlltoall,
		SendBuf:    send,
		RecvBuf:    recv,
		Count:      count,
		SendCounts: counts,
		RecvCounts: counts,
		DType:      dtype,
		Comm:       comm,
		Stream:     stream,
	}
}
