package coll

import (
	"fmt"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Param describes one collective invocation: the Operation Descriptor.
//
// It is a value type: it's constructed per call, read during schedule construction and then
// discarded. Derived descriptors (e.g. the scale-out leg of a call) are modified copies, the
// original is never changed.
type Param struct {
	CType CollectiveType

	// SendBuf and RecvBuf are borrowed references into caller-owned memory. They may alias
	// (in-place operations).
	SendBuf, RecvBuf backends.Buffer

	// SendBufs and RecvBufs are per-peer buffers for variable-count collectives when
	// Attr.IsVectorBuf is set, indexed by peer rank.
	SendBufs, RecvBufs []backends.Buffer

	// Count is the number of elements of fixed-count collectives.
	Count int

	// SendCount is the number of elements sent by this rank in Allgatherv.
	SendCount int

	// SendCounts and RecvCounts are per-peer element counts of variable collectives, of
	// length Comm.Size().
	SendCounts, RecvCounts []int

	DType     dtypes.DType
	Reduction ReduceOp

	// Root is only meaningful for rooted collectives (see CollectiveType.IsRooted).
	Root int

	Comm Communicator

	// Stream is the device execution context, nil for host-only execution.
	Stream *Stream

	// HintAlgo is the optional caller-supplied algorithm preference.
	HintAlgo Hints

	// IsScaleOut marks a descriptor that already represents the network-facing leg of a call.
	// It prevents staging the same data again.
	IsScaleOut bool
}

// String implements fmt.Stringer.
func (p Param) String() string {
	rank, size := -1, 0
	if p.Comm != nil {
		rank, size = p.Comm.Rank(), p.Comm.Size()
	}
	s := fmt.Sprintf("%s(count=%d, dtype=%s, rank=%d/%d", p.CType, p.Count, p.DType, rank, size)
	if p.CType.IsVector() {
		s += fmt.Sprintf(", recv_counts=%v", p.RecvCounts)
	}
	if p.CType.IsRooted() {
		s += fmt.Sprintf(", root=%d", p.Root)
	}
	if p.IsScaleOut {
		s += ", scale-out"
	}
	return s + ")"
}

// Validate checks the descriptor invariants. It returns an error naming the collective type and
// the failing condition.
func (p Param) Validate() error {
	if !p.CType.IsACollectiveType() || p.CType == CollInvalid {
		return errors.Errorf("invalid collective type %s", p.CType)
	}
	if p.Comm == nil {
		return errors.Errorf("%s: communicator is nil", p.CType)
	}
	if p.CType == CollBarrier {
		return nil
	}
	if p.DType.Size() <= 0 {
		return errors.Errorf("%s: invalid dtype %s", p.CType, p.DType)
	}
	size := p.Comm.Size()
	if p.CType.IsVector() {
		if p.RecvCounts == nil {
			return errors.Errorf("%s: recv_counts must not be nil for a variable-count collective", p.CType)
		}
		if len(p.RecvCounts) != size {
			return errors.Errorf("%s: recv_counts has %d entries, communicator has %d ranks",
				p.CType, len(p.RecvCounts), size)
		}
		if p.CType != CollAllgatherv && len(p.SendCounts) != size {
			return errors.Errorf("%s: send_counts has %d entries, communicator has %d ranks",
				p.CType, len(p.SendCounts), size)
		}
		for i, c := range p.RecvCounts {
			if c < 0 {
				return errors.Errorf("%s: recv_counts[%d]=%d is negative", p.CType, i, c)
			}
		}
		if p.CType == CollAllgatherv {
			if rank := p.Comm.Rank(); rank >= 0 && rank < size && p.SendCount != p.RecvCounts[rank] {
				return errors.Errorf("%s: send_count=%d differs from recv_counts[%d]=%d of this rank",
					p.CType, p.SendCount, rank, p.RecvCounts[rank])
			}
		}
	} else if p.Count < 0 {
		return errors.Errorf("%s: count=%d is negative", p.CType, p.Count)
	}
	if p.CType.IsRooted() && (p.Root < 0 || p.Root >= size) {
		return errors.Errorf("%s: root %d out of range for communicator of size %d", p.CType, p.Root, size)
	}
	return nil
}

// HasData returns whether the operation moves any element: a fixed count > 0, or per-peer
// counts summing to more than 0 for variable collectives.
func (p Param) HasData() bool {
	if p.CType == CollAlltoall {
		return p.Count > 0
	}
	if p.CType.IsVector() {
		return p.RecvCounts != nil && p.TotalRecvCount() > 0
	}
	return p.Count > 0
}

// ElementSize is the byte size of one element.
func (p Param) ElementSize() int {
	return p.DType.Size()
}

// TotalRecvCount returns the sum of RecvCounts.
func (p Param) TotalRecvCount() int {
	if p.RecvCounts == nil {
		exceptions.Panicf("%s: TotalRecvCount() with nil recv_counts", p.CType)
	}
	total := 0
	for _, c := range p.RecvCounts {
		total += c
	}
	return total
}

// RecvOffset returns the byte offset of peer's segment in a contiguous receive buffer:
// the sum of RecvCounts[0:peer] times the element size.
func (p Param) RecvOffset(peer int) int {
	if p.RecvCounts == nil {
		exceptions.Panicf("%s: RecvOffset(%d) with nil recv_counts", p.CType, peer)
	}
	offset := 0
	for _, c := range p.RecvCounts[:peer] {
		offset += c
	}
	return offset * p.ElementSize()
}

// SelectorBuffer returns the buffer used to characterize the operation for algorithm selection:
// the send buffer if present, otherwise the receive buffer.
func (p Param) SelectorBuffer() backends.Buffer {
	if p.SendBuf.IsValid() {
		return p.SendBuf
	}
	return p.RecvBuf
}

// SelectorCount returns the count used for algorithm selection: SendCount for Allgatherv,
// Count otherwise.
func (p Param) SelectorCount() int {
	if p.CType == CollAllgatherv {
		return p.SendCount
	}
	return p.Count
}

// AsScaleOut returns a copy of p marked as the network-facing leg of the call.
func (p Param) AsScaleOut() Param {
	p.IsScaleOut = true
	return p
}

// InPlace returns a copy of p with both send and receive buffers set to buf, and the per-peer
// buffers cleared: the data of all peers is laid out contiguously in buf.
func (p Param) InPlace(buf backends.Buffer) Param {
	p.SendBuf = buf
	p.RecvBuf = buf
	p.SendBufs = nil
	p.RecvBufs = nil
	return p
}

// IsInPlace returns whether send and receive buffers alias.
func (p Param) IsInPlace() bool {
	return p.SendBuf.IsValid() && p.SendBuf.Equal(p.RecvBuf)
}
