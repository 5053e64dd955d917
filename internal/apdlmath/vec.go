package apdlmath

import (
	"context"
	"fmt"
	"sync"

	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"github.com/danmuck/mapdlctl/internal/version"
	"gonum.org/v1/gonum/mat"
)

// Vec is a solver-side APDLMath vector.
type Vec struct {
	object

	mu   sync.Mutex
	size int
}

func (m *Math) vec(name string) *Vec {
	return &Vec{object: object{id: name, kind: mapdlpb.ObjVec, m: m}}
}

// Size is read from the solver once and cached.
func (v *Vec) Size(ctx context.Context) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.size > 0 {
		return v.size, nil
	}
	n, ok, err := v.m.s.ScalarParam(ctx, v.id+"_DIM")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrDeleted, v.id)
	}
	v.size = int(n)
	return v.size, nil
}

func (v *Vec) Copy(ctx context.Context) (*Vec, error) {
	name, err := v.copyTo(ctx)
	if err != nil {
		return nil, err
	}
	return v.m.vec(name), nil
}

// Add returns v + b as a new vector.
func (v *Vec) Add(ctx context.Context, b *Vec) (*Vec, error) {
	out, err := v.Copy(ctx)
	if err != nil {
		return nil, err
	}
	return out, out.Axpy(ctx, b, 1, 1)
}

// Sub returns v - b as a new vector.
func (v *Vec) Sub(ctx context.Context, b *Vec) (*Vec, error) {
	out, err := v.Copy(ctx)
	if err != nil {
		return nil, err
	}
	return out, out.Axpy(ctx, b, -1, 1)
}

func (v *Vec) Dot(ctx context.Context, b *Vec) (float64, error) {
	if err := v.m.cmd(ctx, "*DOT", v.id, b.id, scratchParam); err != nil {
		return 0, err
	}
	return v.m.scalar(ctx, scratchParam)
}

// At returns the value at zero-based index i.
func (v *Vec) At(ctx context.Context, i int) (float64, error) {
	if i < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeIndex, i)
	}
	if err := v.m.run(ctx, "%s=%s(%d)", scratchParam, v.id, i+1); err != nil {
		return 0, err
	}
	return v.m.scalar(ctx, scratchParam)
}

// HadamardProduct returns the element-wise product of v and b.
func (v *Vec) HadamardProduct(ctx context.Context, b *Vec) (*Vec, error) {
	have, err := v.m.s.ServerVersion(ctx)
	if err != nil {
		return nil, err
	}
	if err := version.Require("element-wise product", have, version.V0_4_0); err != nil {
		return nil, err
	}
	n, err := v.Size(ctx)
	if err != nil {
		return nil, err
	}
	nb, err := b.Size(ctx)
	if err != nil {
		return nil, err
	}
	if n != nb {
		return nil, fmt.Errorf("%w: vectors of size %d and %d", ErrSizeMismatch, n, nb)
	}
	l, err := v.letter(ctx)
	if err != nil {
		return nil, err
	}
	name := v.m.NewName()
	if err := v.m.cmd(ctx, "*VEC", name, l, "ALLOC", n); err != nil {
		return nil, err
	}
	if err := v.m.cmd(ctx, "*HPROD", v.id, b.id, name); err != nil {
		return nil, err
	}
	return v.m.vec(name), nil
}

// Values downloads the vector.
func (v *Vec) Values(ctx context.Context) (client.Values, error) {
	return v.m.s.VecData(ctx, v.id)
}

// AsVecDense downloads a real vector as a gonum vector.
func (v *Vec) AsVecDense(ctx context.Context) (*mat.VecDense, error) {
	vals, err := v.Values(ctx)
	if err != nil {
		return nil, err
	}
	if vals.Type.IsComplex() {
		return nil, fmt.Errorf("%w: %s holds %s values", ErrDataType, v.id, vals.Type)
	}
	if len(vals.Real) == 0 {
		return &mat.VecDense{}, nil
	}
	return mat.NewVecDense(len(vals.Real), vals.Real), nil
}
