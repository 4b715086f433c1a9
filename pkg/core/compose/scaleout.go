package compose

import (
	"github.com/dustin/go-humanize"
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GlobalTarget is where the result of a rooted operation finally lands: the root of the global
// communicator, which can differ from the root of the scale-out communicator.
type GlobalTarget struct {
	Comm    coll.Communicator
	RecvBuf backends.Buffer
	Root    int
}

// finalCopyTypes are the collectives whose result is copied back to device memory after being
// staged through host memory.
func finalCopyType(ctype coll.CollectiveType) bool {
	switch ctype {
	case coll.CollAllreduce, coll.CollAlltoall, coll.CollAlltoallv, coll.CollAllgatherv:
		return true
	default:
		return false
	}
}

// IsMultiNode returns whether p needs a network phase: its ranks are not confined to one node, and
// it carries data (a count > 0 for fixed-count collectives, per-peer counts for variable ones).
func IsMultiNode(p coll.Param, isSingleNode bool) bool {
	return !isSingleNode && p.HasData()
}

// CheckScaleOut panics if the network phase of p can't be built with the configuration: with
// multi-worker scale-out, only Allreduce, Reduce, Alltoallv and Allgatherv are supported.
// Callers use it before appending anything to the schedule.
func (c *Composer) CheckScaleOut(p coll.Param, isSingleNode bool) {
	if IsMultiNode(p, isSingleNode) && c.cfg.IsMultiWorker() {
		checkMultiWorkerType(p.CType)
	}
}

// IsHMEMEnabled returns whether device memory is addressed directly by the network transport:
// it's requested by the configuration and supported by the transport.
func (c *Composer) IsHMEMEnabled() bool {
	return c.cfg.UseHMEM && c.backend.SupportsHMEM()
}

// AddScaleOut appends the network phase of the collective in and the copies that move data between
// device memory and the network.
//
// If the operation spans more than one node and carries data:
//
//   - Without HMEM, the data is staged in a host buffer allocated by the schedule (the sum of
//     the receive counts for variable collectives, count otherwise): device-to-host copies (one
//     per non-empty peer for all-to-all, this rank's own segment for Allgatherv, one bulk copy
//     otherwise), then a barrier.
//   - The network leg runs in-place on the staged buffer (or on the device buffers with HMEM), with
//     a copy of the descriptor marked as scale-out, through AddColl.
//
// Descriptors already marked as scale-out are never staged again.
//
// Then, results are copied back to the caller's receive buffers with h2dAttr, where needed: for
// Allreduce, Alltoall(v) and Allgatherv when data was staged, and for Reduce on the root of
// in.Comm. For Reduce, only the rank that is global.Root of global.Comm receives data, into
// global.RecvBuf; the other ranks get a no-op copy. A barrier follows the final copies.
//
// It returns the updated wait list. Staging allocation failures are returned as errors.
func (c *Composer) AddScaleOut(s *sched.Schedule, in coll.Param, isSingleNode bool, wait []backends.Event,
	h2dAttr backends.CopyAttr, global GlobalTarget) ([]backends.Event, error) {
	p := in
	multiNode := IsMultiNode(in, isSingleNode)
	staged := multiNode && !c.IsHMEMEnabled() && !in.IsScaleOut
	isReduceRoot := in.CType == coll.CollReduce && in.Comm.Rank() == in.Root
	needsFinalCopy := (finalCopyType(in.CType) && staged) || isReduceRoot
	klog.V(1).Infof("scale-out %s: multi-node=%v, staged=%v, final copy=%v", in, multiNode, staged, needsFinalCopy)
	c.CheckScaleOut(in, isSingleNode)

	if multiNode {
		if staged {
			var err error
			wait, p, err = c.stageToHost(s, in, wait)
			if err != nil {
				return wait, err
			}
		}
		p = p.AsScaleOut()
		var err error
		if wait, err = c.AddColl(s, p, wait); err != nil {
			return wait, err
		}
	}

	if !needsFinalCopy {
		return wait, nil
	}
	if in.CType.IsVector() {
		dstBufs := peerBuffers(in.RecvBuf, in.RecvBufs, in.RecvCounts, in.DType)
		wait = copyEntriesWithOffset(s, dstBufs, p.RecvBuf, in.RecvCounts, in.DType, h2dAttr, wait)
	} else {
		src, dst, count := p.RecvBuf, in.RecvBuf, in.Count
		if in.CType == coll.CollReduce {
			if !multiNode {
				src = in.RecvBuf
			}
			if global.Comm != nil && global.Comm.Rank() == global.Root {
				dst = global.RecvBuf
			} else {
				dst, count = backends.Buffer{}, 0
			}
		}
		wait = copyEntry(s, src, dst, count, in.DType, h2dAttr, wait)
	}
	s.AddBarrier()
	return wait, nil
}

// stageToHost allocates the host staging buffer of in, appends the device-to-host copies into it,
// and returns the descriptor of the network leg, in-place on the staging buffer.
func (c *Composer) stageToHost(s *sched.Schedule, in coll.Param, wait []backends.Event) ([]backends.Event, coll.Param, error) {
	size := stagingSize(in)
	if size <= 0 {
		exceptions.Panicf("%s: unexpected size %d of the scale-out host buffer", in.CType, size)
	}
	if in.CType == coll.CollAlltoall || in.CType == coll.CollAlltoallv {
		// The staging buffer is sized by the receive counts: asymmetric volumes don't fit.
		if _, sendSize := StagingOffsets(in.SendCounts, in.DType); sendSize > size {
			exceptions.Panicf("%s: %d bytes sent don't fit the host buffer of %d bytes (sum of recv_counts), "+
				"asymmetric all-to-all volumes are not supported across nodes", in.CType, sendSize, size)
		}
	}
	host, err := s.AllocBuffer(sched.AllocParam{Size: size, Place: backends.PlaceHost, Name: "scaleout_" + in.CType.String()})
	if err != nil {
		return wait, in, errors.WithMessagef(err, "scale-out of %s", in.CType)
	}
	klog.V(1).Infof("scale-out %s: staging %s through host", in.CType, humanize.IBytes(uint64(size)))

	d2h := backends.NewCopyAttr(backends.CopyD2H)
	switch in.CType {
	case coll.CollAlltoall, coll.CollAlltoallv:
		srcBufs := peerBuffers(in.SendBuf, in.SendBufs, in.SendCounts, in.DType)
		wait = copyEntriesWithOffset(s, srcBufs, host, in.SendCounts, in.DType, d2h, wait)
	case coll.CollAllgatherv:
		rank := in.Comm.Rank()
		src, count := in.SendBuf, in.SendCount
		if in.IsInPlace() {
			src, count = peerBuffers(in.RecvBuf, in.RecvBufs, in.RecvCounts, in.DType)[rank], in.RecvCounts[rank]
		}
		wait = copyEntry(s, src, host.Add(in.RecvOffset(rank)), count, in.DType, d2h, wait)
	default:
		wait = copyEntry(s, in.SendBuf, host, in.Count, in.DType, d2h, wait)
	}
	s.AddBarrier()
	return wait, in.InPlace(host), nil
}
