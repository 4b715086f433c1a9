package naive

import (
	"math"
	"unsafe"

	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

type numeric interface {
	constraints.Integer | constraints.Float
}

// asSlice reinterprets data as a slice of T. len(data) must be a multiple of T's size, and data
// must be aligned to it.
func asSlice[T any](data []byte) []T {
	if len(data) == 0 {
		return nil
	}
	var t T
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), len(data)/int(unsafe.Sizeof(t)))
}

func reduceNumeric[T numeric](dst, src []T, op coll.ReduceOp) {
	switch op {
	case coll.ReduceSum:
		for i, v := range src {
			dst[i] += v
		}
	case coll.ReduceProd:
		for i, v := range src {
			dst[i] *= v
		}
	case coll.ReduceMin:
		for i, v := range src {
			dst[i] = min(dst[i], v)
		}
	case coll.ReduceMax:
		for i, v := range src {
			dst[i] = max(dst[i], v)
		}
	}
}

// reduceHalf reduces 16-bits floats by converting them to float32.
func reduceHalf(dst, src []uint16, op coll.ReduceOp, toFloat32 func(uint16) float32, fromFloat32 func(float32) uint16) {
	acc := make([]float32, len(dst))
	values := make([]float32, len(src))
	for i := range dst {
		acc[i] = toFloat32(dst[i])
		values[i] = toFloat32(src[i])
	}
	reduceNumeric(acc, values, op)
	for i, v := range acc {
		dst[i] = fromFloat32(v)
	}
}

func bfloat16ToFloat32(bits uint16) float32 {
	return math.Float32frombits(uint32(bits) << 16)
}

// float32ToBFloat16 rounds to the nearest even.
func float32ToBFloat16(v float32) uint16 {
	bits := math.Float32bits(v)
	if math.IsNaN(float64(v)) {
		return uint16(bits>>16) | 0x40
	}
	rounding := uint32(0x7FFF) + (bits>>16)&1
	return uint16((bits + rounding) >> 16)
}

// ReduceBytes reduces src into dst (dst = dst op src), both holding elements of dtype.
func ReduceBytes(dtype dtypes.DType, op coll.ReduceOp, dst, src []byte) error {
	if len(dst) != len(src) {
		return errors.Errorf("reduce %s of %s: mismatched sizes %d and %d bytes", op, dtype, len(dst), len(src))
	}
	switch dtype {
	case dtypes.Int8:
		reduceNumeric(asSlice[int8](dst), asSlice[int8](src), op)
	case dtypes.Int16:
		reduceNumeric(asSlice[int16](dst), asSlice[int16](src), op)
	case dtypes.Int32:
		reduceNumeric(asSlice[int32](dst), asSlice[int32](src), op)
	case dtypes.Int64:
		reduceNumeric(asSlice[int64](dst), asSlice[int64](src), op)
	case dtypes.Uint8:
		reduceNumeric(asSlice[uint8](dst), asSlice[uint8](src), op)
	case dtypes.Uint16:
		reduceNumeric(asSlice[uint16](dst), asSlice[uint16](src), op)
	case dtypes.Uint32:
		reduceNumeric(asSlice[uint32](dst), asSlice[uint32](src), op)
	case dtypes.Uint64:
		reduceNumeric(asSlice[uint64](dst), asSlice[uint64](src), op)
	case dtypes.Float32:
		reduceNumeric(asSlice[float32](dst), asSlice[float32](src), op)
	case dtypes.Float64:
		reduceNumeric(asSlice[float64](dst), asSlice[float64](src), op)
	case dtypes.Float16:
		reduceHalf(asSlice[uint16](dst), asSlice[uint16](src), op,
			func(bits uint16) float32 { return float16.Frombits(bits).Float32() },
			func(v float32) uint16 { return float16.Fromfloat32(v).Bits() })
	case dtypes.BFloat16:
		reduceHalf(asSlice[uint16](dst), asSlice[uint16](src), op, bfloat16ToFloat32, float32ToBFloat16)
	case dtypes.Bool:
		for i, v := range src {
			a, b := dst[i] != 0, v != 0
			var r bool
			switch op {
			case coll.ReduceSum, coll.ReduceMax:
				r = a || b
			case coll.ReduceProd, coll.ReduceMin:
				r = a && b
			}
			dst[i] = 0
			if r {
				dst[i] = 1
			}
		}
	default:
		return errors.Errorf("reduce %s: dtype %s not supported", op, dtype)
	}
	return nil
}
