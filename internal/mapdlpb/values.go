package mapdlpb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownValueType = errors.New("mapdlpb: unknown value type")
	ErrPayloadSize      = errors.New("mapdlpb: payload size is not a multiple of the element size")
	ErrValueRange       = errors.New("mapdlpb: value out of range for integer type")
)

// ValueType is the element type of a typed array payload.
type ValueType int32

const (
	ValueUnknown    ValueType = 0
	ValueInt32      ValueType = 1
	ValueInt64      ValueType = 2
	ValueInt16      ValueType = 3
	ValueFloat32    ValueType = 4
	ValueFloat64    ValueType = 5
	ValueComplex64  ValueType = 6
	ValueComplex128 ValueType = 7
)

func (v ValueType) String() string {
	switch v {
	case ValueInt32:
		return "int32"
	case ValueInt64:
		return "int64"
	case ValueInt16:
		return "int16"
	case ValueFloat32:
		return "float32"
	case ValueFloat64:
		return "float64"
	case ValueComplex64:
		return "complex64"
	case ValueComplex128:
		return "complex128"
	default:
		return fmt.Sprintf("unknown(%d)", int32(v))
	}
}

// Size is the width of one element in bytes, 0 when unknown.
func (v ValueType) Size() int {
	switch v {
	case ValueInt16:
		return 2
	case ValueInt32, ValueFloat32:
		return 4
	case ValueInt64, ValueFloat64, ValueComplex64:
		return 8
	case ValueComplex128:
		return 16
	}
	return 0
}

func (v ValueType) IsComplex() bool {
	return v == ValueComplex64 || v == ValueComplex128
}

// Letter is the APDL type letter used by *VEC, *DMAT and *SMAT.
// int16 has no APDL letter.
func (v ValueType) Letter() string {
	switch v {
	case ValueInt32:
		return "I"
	case ValueInt64:
		return "L"
	case ValueFloat32:
		return "F"
	case ValueFloat64:
		return "D"
	case ValueComplex64:
		return "C"
	case ValueComplex128:
		return "Z"
	}
	return ""
}

// ObjType identifies an APDLMath object kind.
type ObjType int32

const (
	ObjUnknown ObjType = 0
	ObjVec     ObjType = 1
	ObjDMat    ObjType = 2
	ObjSMat    ObjType = 3
)

func (o ObjType) String() string {
	switch o {
	case ObjVec:
		return "VEC"
	case ObjDMat:
		return "DMAT"
	case ObjSMat:
		return "SMAT"
	}
	return fmt.Sprintf("OBJ(%d)", int32(o))
}

// DecodeReal converts a little-endian payload of real or integer elements.
func DecodeReal(vt ValueType, payload []byte) ([]float64, error) {
	size := vt.Size()
	if size == 0 || vt.IsComplex() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownValueType, vt)
	}
	if len(payload)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes of %s", ErrPayloadSize, len(payload), vt)
	}
	out := make([]float64, len(payload)/size)
	for i := range out {
		p := payload[i*size:]
		switch vt {
		case ValueInt16:
			out[i] = float64(int16(binary.LittleEndian.Uint16(p)))
		case ValueInt32:
			out[i] = float64(int32(binary.LittleEndian.Uint32(p)))
		case ValueInt64:
			out[i] = float64(int64(binary.LittleEndian.Uint64(p)))
		case ValueFloat32:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
		case ValueFloat64:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(p))
		}
	}
	return out, nil
}

// DecodeComplex converts a payload of complex elements.
func DecodeComplex(vt ValueType, payload []byte) ([]complex128, error) {
	if !vt.IsComplex() {
		return nil, fmt.Errorf("%w: %s is not complex", ErrUnknownValueType, vt)
	}
	size := vt.Size()
	if len(payload)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes of %s", ErrPayloadSize, len(payload), vt)
	}
	out := make([]complex128, len(payload)/size)
	for i := range out {
		p := payload[i*size:]
		if vt == ValueComplex64 {
			re := math.Float32frombits(binary.LittleEndian.Uint32(p))
			im := math.Float32frombits(binary.LittleEndian.Uint32(p[4:]))
			out[i] = complex(float64(re), float64(im))
			continue
		}
		re := math.Float64frombits(binary.LittleEndian.Uint64(p))
		im := math.Float64frombits(binary.LittleEndian.Uint64(p[8:]))
		out[i] = complex(re, im)
	}
	return out, nil
}

// EncodeReal is the inverse of DecodeReal. Integer types truncate toward
// zero and reject values they cannot hold.
func EncodeReal(vt ValueType, values []float64) ([]byte, error) {
	size := vt.Size()
	if size == 0 || vt.IsComplex() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownValueType, vt)
	}
	out := make([]byte, len(values)*size)
	for i, v := range values {
		p := out[i*size:]
		switch vt {
		case ValueInt16:
			if !intFits(v, math.MinInt16, math.MaxInt16+1) {
				return nil, fmt.Errorf("%w: %s[%d] = %v", ErrValueRange, vt, i, v)
			}
			binary.LittleEndian.PutUint16(p, uint16(int16(v)))
		case ValueInt32:
			if !intFits(v, math.MinInt32, math.MaxInt32+1) {
				return nil, fmt.Errorf("%w: %s[%d] = %v", ErrValueRange, vt, i, v)
			}
			binary.LittleEndian.PutUint32(p, uint32(int32(v)))
		case ValueInt64:
			if !intFits(v, math.MinInt64, 1<<63) {
				return nil, fmt.Errorf("%w: %s[%d] = %v", ErrValueRange, vt, i, v)
			}
			binary.LittleEndian.PutUint64(p, uint64(int64(v)))
		case ValueFloat32:
			binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
		case ValueFloat64:
			binary.LittleEndian.PutUint64(p, math.Float64bits(v))
		}
	}
	return out, nil
}

// intFits reports whether v truncates into [lo, hi).
func intFits(v, lo, hi float64) bool {
	t := math.Trunc(v)
	return t >= lo && t < hi
}

func EncodeComplex(vt ValueType, values []complex128) ([]byte, error) {
	if !vt.IsComplex() {
		return nil, fmt.Errorf("%w: %s is not complex", ErrUnknownValueType, vt)
	}
	size := vt.Size()
	out := make([]byte, len(values)*size)
	for i, v := range values {
		p := out[i*size:]
		if vt == ValueComplex64 {
			binary.LittleEndian.PutUint32(p, math.Float32bits(float32(real(v))))
			binary.LittleEndian.PutUint32(p[4:], math.Float32bits(float32(imag(v))))
			continue
		}
		binary.LittleEndian.PutUint64(p, math.Float64bits(real(v)))
		binary.LittleEndian.PutUint64(p[8:], math.Float64bits(imag(v)))
	}
	return out, nil
}

// SplitChunks cuts raw into pieces of at most size bytes.
func SplitChunks(raw []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][]byte
	for i := 0; i < len(raw); i += size {
		end := i + size
		if end > len(raw) {
			end = len(raw)
		}
		out = append(out, raw[i:end])
	}
	return out
}

const (
	DefaultChunkSize     = 256 * 1024
	DefaultFileChunkSize = 1024 * 1024
)
