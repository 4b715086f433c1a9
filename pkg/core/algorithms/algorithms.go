// Package algorithms is the registry of collective algorithms: for each collective type, the
// algorithms that can build its schedule.
//
// The algorithms themselves live in sub-packages that register themselves during initialization:
// import them for their side effect. E.g.:
//
//	import (
//		_ "github.com/gomlx/collectives/pkg/core/algorithms/naive"
//		_ "github.com/gomlx/collectives/pkg/core/algorithms/ring"
//	)
//
// Schedule construction only uses algorithms through their Builder: it never implements the
// data exchange or the reductions itself.
package algorithms

import (
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/config"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/pkg/errors"
)

// Algorithm identifies a family of collective algorithms.
type Algorithm int

//go:generate go tool enumer -type Algorithm -trimprefix=Algo -transform=lower -output=gen_algorithm_enumer.go algorithms.go

const (
	// AlgoAuto lets the selector pick the algorithm.
	AlgoAuto Algorithm = iota

	// AlgoDirect are the exchange-based algorithms that can be appended straight into the caller's
	// schedule when the transport is in-process.
	AlgoDirect

	// AlgoNaive are the exchange-based algorithms, always run wrapped in a collective entry.
	AlgoNaive

	// AlgoRing are ring algorithms: every rank only exchanges with its neighbors.
	AlgoRing

	// AlgoTopo are device-topology algorithms, using peer-to-peer access among the devices
	// of a node. They require strict order.
	AlgoTopo
)

// ParseAlgorithm converts a name (case-insensitive) to an Algorithm. The empty string is AlgoAuto.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return AlgoAuto, nil
	}
	algo, err := AlgorithmString(name)
	if err != nil {
		return AlgoAuto, errors.Errorf("unknown collective algorithm %q, valid values are %s", name,
			strings.Join(AlgorithmStrings(), ", "))
	}
	return algo, nil
}

// Env is the environment an algorithm builds its schedule in.
type Env struct {
	Backend backends.Backend
	Config  config.Config
}

// Builder appends to s the entries executing the collective described by p.
//
// Builders only append entries and allocate schedule memory: the data is only touched when
// the schedule is executed.
type Builder func(env Env, s *sched.Schedule, p coll.Param) error

// Info about a registered algorithm.
type Info struct {
	Builder Builder

	// Direct algorithms can be appended straight into the caller's schedule, without a wrapping
	// collective entry, on in-process transports.
	Direct bool

	// DeviceSide algorithms depend on the device peer-to-peer topology, and require the whole
	// schedule to execute in strict order.
	DeviceSide bool
}

type key struct {
	ctype coll.CollectiveType
	algo  Algorithm
}

var (
	registryMu sync.RWMutex
	registry   = make(map[key]Info)
)

// Register an algorithm for the collective type. Registering twice replaces the previous one.
//
// To be safe, call Register during initialization of a package.
func Register(ctype coll.CollectiveType, algo Algorithm, info Info) {
	if info.Builder == nil {
		panic(errors.Errorf("algorithms.Register(%s, %s): nil builder", ctype, algo))
	}
	if algo == AlgoAuto {
		panic(errors.Errorf("algorithms.Register(%s): can't register %s", ctype, algo))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key{ctype, algo}] = info
}

// Lookup the algorithm registered for the collective type.
func Lookup(ctype coll.CollectiveType, algo Algorithm) (Info, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, found := registry[key{ctype, algo}]
	return info, found
}

// Registered returns the algorithms registered for the collective type, sorted.
func Registered(ctype coll.CollectiveType) []Algorithm {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var algos []Algorithm
	for k := range registry {
		if k.ctype == ctype {
			algos = append(algos, k.algo)
		}
	}
	slices.Sort(algos)
	return algos
}

// defaultPreference lists the algorithms, in order of preference, used when neither the caller
// nor the configuration asks for a specific one. Device-topology algorithms are never a default,
// the selector decides on those.
var defaultPreference = []Algorithm{AlgoRing, AlgoDirect, AlgoNaive}

// Default returns the preferred registered algorithm for the collective type, or AlgoAuto if
// none is registered.
func Default(ctype coll.CollectiveType) Algorithm {
	for _, algo := range defaultPreference {
		if _, found := Lookup(ctype, algo); found {
			return algo
		}
	}
	return AlgoAuto
}
