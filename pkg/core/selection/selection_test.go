package selection_test

import (
	"testing"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/backends/simgo"
	"github.com/gomlx/collectives/pkg/core/algorithms"
	_ "github.com/gomlx/collectives/pkg/core/algorithms/naive"
	_ "github.com/gomlx/collectives/pkg/core/algorithms/ring"
	_ "github.com/gomlx/collectives/pkg/core/algorithms/topo"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/config"
	"github.com/gomlx/collectives/pkg/core/distributed"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/gomlx/collectives/pkg/core/selection"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend *simgo.Backend
	comm    coll.Communicator
	sched   *sched.Schedule
	host    backends.Buffer
	device  backends.Buffer
	stream  *coll.Stream
}

func newFixture(t *testing.T, backendConfig string) *fixture {
	b, err := simgo.New(backendConfig)
	require.NoError(t, err)
	t.Cleanup(b.Finalize)
	world := b.NewWorld(must.M1(distributed.NewTopology(1, 2)))
	return &fixture{
		backend: b,
		comm:    world.Comm(0),
		sched:   sched.New(b, sched.Options{}),
		host:    backends.NewBuffer(simgo.Wrap(make([]byte, 64), backends.PlaceHost)),
		device:  backends.NewBuffer(simgo.Wrap(make([]byte, 64), backends.PlaceDevice)),
		stream:  &coll.Stream{Device: 0},
	}
}

func (f *fixture) allreduce(buf backends.Buffer, stream *coll.Stream) coll.Param {
	return coll.NewAllreduceParam(buf, buf, 16, dtypes.Float32, coll.ReduceSum, f.comm, stream)
}

func TestNewSelectorParam(t *testing.T) {
	f := newFixture(t, "")
	p := coll.NewAllgathervParam(backends.Buffer{}, 3, f.host, []int{3, 5}, dtypes.Int16, f.comm, nil)
	p.HintAlgo = coll.Hints{coll.CollAllgatherv: "naive"}
	sp := selection.NewSelectorParam(f.sched, p)
	assert.Equal(t, 3, sp.Count, "allgatherv selects on the send count")
	assert.True(t, sp.Buf.Equal(f.host), "the receive buffer is used without send buffer")
	assert.False(t, sp.IsDeviceBuf)
	assert.Equal(t, "naive", sp.Hint)

	vectorSched := sched.New(f.backend, sched.Options{Attr: coll.Attr{IsVectorBuf: true, IsDeviceBuf: true}})
	sp = selection.NewSelectorParam(vectorSched, p)
	assert.True(t, sp.IsVectorBuf)
	assert.True(t, sp.IsDeviceBuf)

	sp = selection.NewSelectorParam(f.sched, f.allreduce(f.device, nil))
	assert.True(t, sp.IsDeviceBuf, "device place of the buffer")
}

func TestAlgorithm(t *testing.T) {
	f := newFixture(t, "transport=shm")
	sel := selection.New(config.Default(), f.backend)
	algo := func(p coll.Param) algorithms.Algorithm {
		return sel.Algorithm(selection.NewSelectorParam(f.sched, p))
	}
	withHint := func(p coll.Param, hint string) coll.Param {
		p.HintAlgo = coll.Hints{p.CType: hint}
		return p
	}

	assert.Equal(t, algorithms.AlgoRing, algo(f.allreduce(f.host, nil)))
	assert.Equal(t, algorithms.AlgoDirect, algo(coll.NewBarrierParam(f.comm)))
	assert.Equal(t, algorithms.AlgoNaive, algo(withHint(f.allreduce(f.host, nil), "naive")))
	assert.Equal(t, algorithms.AlgoRing, algo(withHint(f.allreduce(f.host, nil), "bogus")), "invalid hints fall back")
	assert.Equal(t, algorithms.AlgoDirect, algo(withHint(coll.NewBarrierParam(f.comm), "ring")),
		"unregistered hints fall back")
	assert.Equal(t, algorithms.AlgoRing, algo(withHint(f.allreduce(f.host, nil), "topo")),
		"topo needs device buffers on a stream")

	// Device-topology.
	assert.Equal(t, algorithms.AlgoTopo, algo(f.allreduce(f.device, f.stream)))
	assert.Equal(t, algorithms.AlgoRing, algo(f.allreduce(f.device, nil)))
	assert.Equal(t, algorithms.AlgoRing, algo(f.allreduce(f.device, f.stream).AsScaleOut()))
	assert.Equal(t, algorithms.AlgoNaive, algo(withHint(f.allreduce(f.device, f.stream), "naive")))

	// Configured default, overridden by the caller's hint.
	sel = selection.New(config.Default().WithAlgorithm(coll.CollAllreduce, "direct"), f.backend)
	assert.Equal(t, algorithms.AlgoDirect, algo(f.allreduce(f.host, nil)))
	assert.Equal(t, algorithms.AlgoNaive, algo(withHint(f.allreduce(f.host, nil), "naive")))

	// Without peer-to-peer access there is no device-topology algorithm.
	noP2P := newFixture(t, "transport=shm,no_p2p")
	sel = selection.New(config.Default(), noP2P.backend)
	assert.Equal(t, algorithms.AlgoRing, sel.Algorithm(selection.NewSelectorParam(noP2P.sched,
		noP2P.allreduce(noP2P.device, noP2P.stream))))

	assert.Panics(t, func() { algo(coll.Param{CType: coll.CollInvalid, Comm: f.comm}) })
	assert.Panics(t, func() { algo(coll.Param{CType: coll.CollectiveType(1000), Comm: f.comm}) })
}

func TestSelect(t *testing.T) {
	for _, tc := range []struct {
		name          string
		backendConfig string
		param         func(f *fixture) coll.Param
		want          selection.Strategy
		wantAlgo      algorithms.Algorithm
	}{
		{"shm-barrier", "transport=shm", func(f *fixture) coll.Param { return coll.NewBarrierParam(f.comm) },
			selection.StrategyDirect, algorithms.AlgoDirect},
		{"ofi-barrier", "transport=ofi", func(f *fixture) coll.Param { return coll.NewBarrierParam(f.comm) },
			selection.StrategyWrapped, algorithms.AlgoDirect},
		{"shm-ring", "transport=shm", func(f *fixture) coll.Param { return f.allreduce(f.host, nil) },
			selection.StrategyWrapped, algorithms.AlgoRing},
		{"shm-topo", "transport=shm", func(f *fixture) coll.Param { return f.allreduce(f.device, f.stream) },
			selection.StrategyDeviceTopology, algorithms.AlgoTopo},
		{"ofi-topo", "transport=ofi", func(f *fixture) coll.Param {
			return coll.NewBcastParam(f.device, 4, dtypes.Uint8, 1, f.comm, f.stream)
		}, selection.StrategyDeviceTopology, algorithms.AlgoTopo},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.backendConfig)
			sel := selection.New(config.Default(), f.backend)
			sp := selection.NewSelectorParam(f.sched, tc.param(f))
			got := sel.Select(sp)
			assert.Equal(t, tc.want, got.Strategy)
			assert.Equal(t, tc.wantAlgo, got.Algorithm)
			assert.NotNil(t, got.Info.Builder)
			assert.Equal(t, tc.want == selection.StrategyDirect, sel.IsDirect(sp))
			assert.Equal(t, tc.want == selection.StrategyDeviceTopology, sel.IsDeviceSide(sp))
		})
	}
	assert.Equal(t, "device-topology", selection.StrategyDeviceTopology.String())
}
