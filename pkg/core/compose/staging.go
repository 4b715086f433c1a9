package compose

import (
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/gomlx/collectives/pkg/core/sched"
)

// StagingOffsets returns the byte offset of each peer's segment in a contiguous staging buffer,
// and the total size in bytes.
//
// Peers with a count of 0 contribute no bytes: their offset is the one of the next non-empty peer,
// and they get no copy entry.
func StagingOffsets(counts []int, dtype dtypes.DType) (offsets []int, total int) {
	es := dtype.Size()
	offsets = make([]int, len(counts))
	for peer, count := range counts {
		offsets[peer] = total
		if count == 0 {
			continue
		}
		total += count * es
	}
	return
}

// peerBuffers returns the per-peer buffers of a variable-count collective: perPeer if given,
// otherwise the segments of the contiguous buffer laid out by counts. Empty segments are
// invalid buffers.
func peerBuffers(contiguous backends.Buffer, perPeer []backends.Buffer, counts []int, dtype dtypes.DType) []backends.Buffer {
	if len(perPeer) > 0 {
		return perPeer
	}
	offsets, _ := StagingOffsets(counts, dtype)
	bufs := make([]backends.Buffer, len(counts))
	for peer, count := range counts {
		if count > 0 {
			bufs[peer] = contiguous.Add(offsets[peer])
		}
	}
	return bufs
}

// copyEntry appends one copy entry and returns the wait list extended with its signal event.
func copyEntry(s *sched.Schedule, src, dst backends.Buffer, count int, dtype dtypes.DType, attr backends.CopyAttr,
	wait []backends.Event) []backends.Event {
	e := sched.NewCopyEntry(s, src, dst, count, dtype, attr, wait)
	return append(wait, e.SignalEvent())
}

// copyEntriesWithOffset appends one copy entry per non-empty peer, between the peer's buffer and
// its segment of the contiguous buffer: from the peer buffers into the contiguous one, or the other
// way around for host-to-device copies.
//
// The copies touch disjoint byte ranges, so in multi-list mode they can run concurrently.
func copyEntriesWithOffset(s *sched.Schedule, bufs []backends.Buffer, contiguous backends.Buffer, counts []int,
	dtype dtypes.DType, attr backends.CopyAttr, wait []backends.Event) []backends.Event {
	offset := 0
	for peer, count := range counts {
		if count == 0 {
			continue
		}
		src, dst := bufs[peer], contiguous.Add(offset)
		if attr.Direction == backends.CopyH2D {
			src, dst = dst, src
		}
		wait = copyEntry(s, src, dst, count, dtype, attr, wait)
		offset += count * dtype.Size()
	}
	return wait
}

// stagingSize returns the size in bytes of the host buffer used to stage p: the sum of the
// receive counts for variable-count collectives, count otherwise.
func stagingSize(p coll.Param) int {
	if p.CType.IsVector() {
		return p.TotalRecvCount() * p.ElementSize()
	}
	return p.Count * p.ElementSize()
}
