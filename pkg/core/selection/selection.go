// Package selection decides how a collective is inserted into a schedule: which algorithm builds
// it, and whether it's appended directly, wrapped in a collective entry, or run as a device-topology
// algorithm under strict order.
//
// Selection is a function of the operation descriptor, the configuration and the capabilities of
// the backend only.
package selection

import (
	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/algorithms"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/config"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// SelectorParam holds the fields of a collective call that selection depends on.
type SelectorParam struct {
	CType coll.CollectiveType

	// Count is the element count of fixed-count collectives, and SendCount for Allgatherv.
	Count      int
	RecvCounts []int
	DType      dtypes.DType
	Comm       coll.Communicator
	Stream     *coll.Stream

	// Buf is the send buffer if present, otherwise the receive buffer.
	Buf backends.Buffer

	IsVectorBuf bool
	IsDeviceBuf bool

	// Hint is the caller's algorithm preference, by name.
	Hint string

	IsScaleOut bool
}

// NewSelectorParam creates the selector parameters of p, to be appended to s.
func NewSelectorParam(s *sched.Schedule, p coll.Param) SelectorParam {
	attr := s.Attr()
	buf := p.SelectorBuffer()
	return SelectorParam{
		CType:       p.CType,
		Count:       p.SelectorCount(),
		RecvCounts:  p.RecvCounts,
		DType:       p.DType,
		Comm:        p.Comm,
		Stream:      p.Stream,
		Buf:         buf,
		IsVectorBuf: attr.IsVectorBuf,
		IsDeviceBuf: attr.IsDeviceBuf || (buf.IsValid() && buf.Place() == backends.PlaceDevice),
		Hint:        p.HintAlgo.For(p.CType),
		IsScaleOut:  p.IsScaleOut,
	}
}

// Strategy used to insert a collective into a schedule.
type Strategy int

//go:generate go tool enumer -type Strategy -trimprefix=Strategy -transform=kebab -output=gen_strategy_enumer.go selection.go

const (
	// StrategyWrapped builds the algorithm into a nested schedule, run by a collective entry.
	StrategyWrapped Strategy = iota

	// StrategyDirect appends the algorithm's entries straight into the caller's schedule.
	StrategyDirect

	// StrategyDeviceTopology runs a device-topology algorithm: the whole schedule becomes strict order.
	StrategyDeviceTopology
)

// Selection is the result of Selector.Select.
type Selection struct {
	Strategy  Strategy
	Algorithm algorithms.Algorithm
	Info      algorithms.Info
}

// Selector of algorithms and strategies.
type Selector struct {
	cfg     config.Config
	backend backends.Backend
}

// New creates a Selector for the given configuration and backend.
func New(cfg config.Config, backend backends.Backend) *Selector {
	return &Selector{cfg: cfg, backend: backend}
}

// checkType panics for collective types that are not known.
func checkType(ctype coll.CollectiveType) {
	if !ctype.IsACollectiveType() || ctype == coll.CollInvalid {
		exceptions.Panicf("algorithm selection: unknown collective type %s", ctype)
	}
}

// isDeviceEligible returns whether a device-topology algorithm can run sp.
func (sel *Selector) isDeviceEligible(sp SelectorParam) bool {
	return !sp.IsScaleOut && sp.Stream != nil && sp.IsDeviceBuf && sel.backend.PeerToPeer()
}

// Algorithm selects the algorithm for sp: the caller's hint if possible, otherwise the
// configured default, otherwise a device-topology algorithm if sp is eligible, otherwise the
// registered default for the collective type.
//
// It panics if the collective type is unknown or has no registered algorithm.
func (sel *Selector) Algorithm(sp SelectorParam) algorithms.Algorithm {
	checkType(sp.CType)
	for _, hint := range []string{sp.Hint, sel.cfg.AlgorithmFor(sp.CType)} {
		if hint == "" {
			continue
		}
		algo, err := algorithms.ParseAlgorithm(hint)
		if err != nil {
			klog.Warningf("%s: ignoring algorithm hint: %v", sp.CType, err)
			continue
		}
		if algo == algorithms.AlgoAuto {
			break
		}
		if _, found := algorithms.Lookup(sp.CType, algo); !found {
			klog.Warningf("%s: algorithm %q not available, falling back", sp.CType, algo)
			continue
		}
		if algo == algorithms.AlgoTopo && !sel.isDeviceEligible(sp) {
			klog.Warningf("%s: algorithm %q requires device buffers on a stream with peer-to-peer access, falling back",
				sp.CType, algo)
			continue
		}
		return algo
	}
	if sel.isDeviceEligible(sp) {
		if _, found := algorithms.Lookup(sp.CType, algorithms.AlgoTopo); found {
			return algorithms.AlgoTopo
		}
	}
	algo := algorithms.Default(sp.CType)
	if algo == algorithms.AlgoAuto {
		exceptions.Panicf("algorithm selection: no algorithm registered for %s", sp.CType)
	}
	return algo
}

func (sel *Selector) info(sp SelectorParam) (algorithms.Algorithm, algorithms.Info) {
	algo := sel.Algorithm(sp)
	info, _ := algorithms.Lookup(sp.CType, algo)
	return algo, info
}

// IsDeviceSide returns whether the algorithm selected for sp is a device-topology one.
func (sel *Selector) IsDeviceSide(sp SelectorParam) bool {
	_, info := sel.info(sp)
	return info.DeviceSide
}

// IsDirect returns whether the algorithm selected for sp can be appended straight into the
// caller's schedule: the algorithm is direct-capable and the transport is in-process.
func (sel *Selector) IsDirect(sp SelectorParam) bool {
	_, info := sel.info(sp)
	return info.Direct && sel.backend.Kind() == backends.TransportInProcess
}

// Select the algorithm and the strategy for sp. It panics for unknown collective types.
func (sel *Selector) Select(sp SelectorParam) Selection {
	algo, info := sel.info(sp)
	selection := Selection{Strategy: StrategyWrapped, Algorithm: algo, Info: info}
	switch {
	case info.DeviceSide:
		selection.Strategy = StrategyDeviceTopology
	case info.Direct && sel.backend.Kind() == backends.TransportInProcess:
		selection.Strategy = StrategyDirect
	}
	klog.V(1).Infof("%s (count=%d, dtype=%s, scale-out=%v): selected %s, %s", sp.CType, sp.Count, sp.DType,
		sp.IsScaleOut, algo, selection.Strategy)
	return selection
}
