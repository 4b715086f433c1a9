package coll_test

import (
	"testing"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComm struct{ rank, size int }

func (c fakeComm) Rank() int  { return c.rank }
func (c fakeComm) Size() int  { return c.size }
func (c fakeComm) ID() string { return "fake" }

type fakeMem struct {
	id   string
	data []byte
}

func (m *fakeMem) ID() string            { return m.id }
func (m *fakeMem) Place() backends.Place { return backends.PlaceDevice }
func (m *fakeMem) Size() int             { return len(m.data) }
func (m *fakeMem) Bytes() []byte         { return m.data }

func TestCollectiveType(t *testing.T) {
	assert.Equal(t, "allgatherv", coll.CollAllgatherv.String())
	assert.Equal(t, "reducescatter", coll.CollReduceScatter.String())
	ctype, err := coll.CollectiveTypeString("alltoallv")
	require.NoError(t, err)
	assert.Equal(t, coll.CollAlltoallv, ctype)
	_, err = coll.CollectiveTypeString("allsum")
	assert.Error(t, err)

	assert.True(t, coll.CollAllgatherv.IsVector())
	assert.True(t, coll.CollAlltoall.IsVector())
	assert.False(t, coll.CollAllreduce.IsVector())
	assert.True(t, coll.CollReduce.IsRooted())
	assert.False(t, coll.CollAllreduce.IsRooted())
	assert.True(t, coll.CollReduceScatter.IsReduction())

	assert.Equal(t, "max", coll.ReduceMax.String())
	op, err := coll.ReduceOpString("Prod")
	require.NoError(t, err)
	assert.Equal(t, coll.ReduceProd, op)
}

func TestValidate(t *testing.T) {
	comm := fakeComm{rank: 1, size: 4}
	buf := backends.NewBuffer(&fakeMem{id: "m", data: make([]byte, 64)})
	testCases := []struct {
		name    string
		param   coll.Param
		wantErr bool
	}{
		{"allreduce", coll.NewAllreduceParam(buf, buf, 4, dtypes.Float32, coll.ReduceSum, comm, nil), false},
		{"allreduce-negative", coll.NewAllreduceParam(buf, buf, -1, dtypes.Float32, coll.ReduceSum, comm, nil), true},
		{"allreduce-no-dtype", coll.NewAllreduceParam(buf, buf, 4, dtypes.InvalidDType, coll.ReduceSum, comm, nil), true},
		{"allgatherv", coll.NewAllgathervParam(buf, 3, buf, []int{2, 3, 1, 4}, dtypes.Int8, comm, nil), false},
		{"allgatherv-nil-counts", coll.NewAllgathervParam(buf, 3, buf, nil, dtypes.Int8, comm, nil), true},
		{"allgatherv-short-counts", coll.NewAllgathervParam(buf, 3, buf, []int{1, 2}, dtypes.Int8, comm, nil), true},
		{"allgatherv-send-count-mismatch", coll.NewAllgathervParam(buf, 4, buf, []int{2, 3, 1, 4}, dtypes.Int8, comm, nil), true},
		{"reduce-root-out-of-range", coll.NewReduceParam(buf, buf, 1, dtypes.Int32, coll.ReduceMax, 4, comm, nil), true},
		{"reduce", coll.NewReduceParam(buf, buf, 1, dtypes.Int32, coll.ReduceMax, 3, comm, nil), false},
		{"barrier", coll.NewBarrierParam(comm), false},
		{"no-comm", coll.Param{CType: coll.CollAllreduce, Count: 1, DType: dtypes.Float32}, true},
		{"invalid-type", coll.Param{Comm: comm}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.param.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.param.CType.String())
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOffsets(t *testing.T) {
	comm := fakeComm{rank: 2, size: 4}
	p := coll.NewAllgathervParam(backends.Buffer{}, 1, backends.Buffer{}, []int{2, 3, 1, 4}, dtypes.Float32, comm, nil)
	assert.Equal(t, 10, p.TotalRecvCount())
	assert.Equal(t, 0, p.RecvOffset(0))
	assert.Equal(t, 5*4, p.RecvOffset(2))
	assert.Equal(t, 6*4, p.RecvOffset(3))
	assert.Panics(t, func() {
		p.RecvCounts = nil
		_ = p.TotalRecvCount()
	})
}

func TestSelectorFields(t *testing.T) {
	comm := fakeComm{rank: 0, size: 2}
	send := backends.NewBuffer(&fakeMem{id: "send", data: make([]byte, 8)})
	recv := backends.NewBuffer(&fakeMem{id: "recv", data: make([]byte, 8)})

	p := coll.NewAllgathervParam(send, 3, recv, []int{3, 5}, dtypes.Int8, comm, nil)
	assert.Equal(t, 3, p.SelectorCount())
	assert.True(t, p.SelectorBuffer().Equal(send))

	p = coll.NewBcastParam(recv, 7, dtypes.Int8, 0, comm, nil)
	p.SendBuf = backends.Buffer{}
	assert.Equal(t, 7, p.SelectorCount())
	assert.True(t, p.SelectorBuffer().Equal(recv))
}

func TestDerivedCopies(t *testing.T) {
	comm := fakeComm{rank: 0, size: 2}
	send := backends.NewBuffer(&fakeMem{id: "send", data: make([]byte, 8)})
	host := backends.NewBuffer(&fakeMem{id: "host", data: make([]byte, 8)})
	p := coll.NewAlltoallParam(send, send, 2, dtypes.Int16, comm, nil)
	assert.Equal(t, []int{2, 2}, p.RecvCounts)
	assert.True(t, p.IsInPlace())

	scaleOut := p.InPlace(host).AsScaleOut()
	assert.True(t, scaleOut.IsScaleOut)
	assert.True(t, scaleOut.SendBuf.Equal(host))
	assert.False(t, p.IsScaleOut, "original descriptor must not change")
	assert.True(t, p.SendBuf.Equal(send))
}

func TestHasData(t *testing.T) {
	comm := fakeComm{rank: 0, size: 2}
	buf := backends.NewBuffer(&fakeMem{id: "m", data: make([]byte, 8)})
	assert.False(t, coll.NewAllgathervParam(buf, 0, buf, []int{0, 0}, dtypes.Int8, comm, nil).HasData())
	assert.True(t, coll.NewAllgathervParam(buf, 0, buf, []int{0, 2}, dtypes.Int8, comm, nil).HasData())
	assert.False(t, coll.NewAlltoallvParam(buf, []int{0, 0}, buf, []int{0, 0}, dtypes.Int8, comm, nil).HasData())
	assert.False(t, coll.NewAlltoallParam(buf, buf, 0, dtypes.Int8, comm, nil).HasData())
	assert.True(t, coll.NewAlltoallParam(buf, buf, 1, dtypes.Int8, comm, nil).HasData())
	assert.False(t, coll.NewAllreduceParam(buf, buf, 0, dtypes.Int8, coll.ReduceSum, comm, nil).HasData())
}
