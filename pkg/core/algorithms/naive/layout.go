package naive

import (
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/exceptions"
)

// Exchanger returns the communicator of p as a backends.Exchanger. It panics if the
// communicator doesn't support point-to-point exchanges.
func Exchanger(p coll.Param) backends.Exchanger {
	ex, ok := p.Comm.(backends.Exchanger)
	if !ok {
		exceptions.Panicf("%s: communicator %T doesn't implement backends.Exchanger", p.CType, p.Comm)
	}
	return ex
}

// BytesOf returns the numBytes bytes at buf, or nil if numBytes is 0.
func BytesOf(buf backends.Buffer, numBytes int) []byte {
	if numBytes == 0 {
		return nil
	}
	return buf.Bytes(numBytes)
}

// RecvSegment returns where the data from peer is received, for variable-count collectives:
// the per-peer buffer if given, otherwise peer's offset in the contiguous receive buffer.
func RecvSegment(p coll.Param, peer int) backends.Buffer {
	if len(p.RecvBufs) > 0 {
		return p.RecvBufs[peer]
	}
	if p.RecvCounts[peer] == 0 {
		return backends.Buffer{}
	}
	return p.RecvBuf.Add(p.RecvOffset(peer))
}

// SendSegment returns the data sent to peer by an all-to-all: the per-peer buffer if given,
// otherwise peer's offset in the contiguous send buffer, computed from SendCounts.
func SendSegment(p coll.Param, peer int) backends.Buffer {
	if len(p.SendBufs) > 0 {
		return p.SendBufs[peer]
	}
	if p.SendCounts[peer] == 0 {
		return backends.Buffer{}
	}
	offset := 0
	for _, c := range p.SendCounts[:peer] {
		offset += c
	}
	return p.SendBuf.Add(offset * p.ElementSize())
}

// OwnAllgathervData returns the buffer and count of the data contributed by the caller to an
// Allgatherv. In-place operations (SendBuf equal to RecvBuf) have the caller's data already at
// its own segment of the receive buffer.
func OwnAllgathervData(p coll.Param) (backends.Buffer, int) {
	rank := p.Comm.Rank()
	if p.IsInPlace() {
		return RecvSegment(p, rank), p.RecvCounts[rank]
	}
	return p.SendBuf, p.SendCount
}
