// Package coll defines the descriptor of one collective invocation (Param) and the enums
// describing it.
package coll

import (
	"github.com/gomlx/collectives/backends"
)

// CollectiveType enumerates the collective operations.
type CollectiveType int

//go:generate go tool enumer -type CollectiveType -trimprefix=Coll -transform=lower -output=gen_collectivetype_enumer.go types.go

const (
	CollInvalid CollectiveType = iota
	CollAllgatherv
	CollAllreduce
	CollAlltoall
	CollAlltoallv
	CollBarrier
	CollBcast
	CollGather
	CollReduce
	CollReduceScatter
	CollScatter
)

// IsVector returns whether the collective has per-peer counts (recv_counts), or is staged
// per peer like one (Alltoall).
func (c CollectiveType) IsVector() bool {
	return c == CollAllgatherv || c == CollAlltoallv || c == CollAlltoall
}

// IsRooted returns whether the collective has a root rank.
func (c CollectiveType) IsRooted() bool {
	switch c {
	case CollBcast, CollReduce, CollGather, CollScatter:
		return true
	default:
		return false
	}
}

// IsReduction returns whether the collective applies a ReduceOp.
func (c CollectiveType) IsReduction() bool {
	return c == CollAllreduce || c == CollReduce || c == CollReduceScatter
}

// ReduceOp is the reduction operator of reduction collectives.
type ReduceOp int

//go:generate go tool enumer -type ReduceOp -trimprefix=Reduce -transform=lower -output=gen_reduceop_enumer.go types.go

const (
	ReduceSum ReduceOp = iota
	ReduceProd
	ReduceMin
	ReduceMax
)

// Communicator is the group of ranks a collective runs on.
type Communicator = backends.Communicator

// Stream is the device execution context an operation runs on. A nil *Stream means
// host-only execution.
type Stream struct {
	// Device is the device (local rank) the stream belongs to.
	Device int

	// InOrder streams execute submitted work in order.
	InOrder bool
}

// Attr are the caller attributes of a collective call.
type Attr struct {
	// ToCache marks the schedule as cacheable: it's built once and replayed, and one-time entries
	// (e.g. IPC handle exchange) are executed only on the first execution.
	ToCache bool

	// CacheKey identifies the cached schedule, required if ToCache is set.
	CacheKey string

	// IsVectorBuf indicates variable-count collectives use per-peer buffers (SendBufs/RecvBufs)
	// instead of one contiguous buffer.
	IsVectorBuf bool

	// IsDeviceBuf indicates the buffers live in device memory.
	IsDeviceBuf bool
}

// Hints are caller supplied algorithm preferences, keyed by collective type. Values are algorithm
// names (see package algorithms), "" means no preference.
type Hints map[CollectiveType]string

// For returns the hint for the given collective type, or "".
func (h Hints) For(ctype CollectiveType) string {
	if h == nil {
		return ""
	}
	return h[ctype]
}
