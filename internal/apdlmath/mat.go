package apdlmath

import (
	"context"
	"fmt"
	"sync"

	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"github.com/danmuck/mapdlctl/internal/version"
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Mat is a solver-side dense (DMAT) or sparse (SMAT) matrix.
type Mat struct {
	object

	mu         sync.Mutex
	rows, cols int
}

func (m *Math) mat(name string, kind mapdlpb.ObjType) *Mat {
	return &Mat{object: object{id: name, kind: kind, m: m}}
}

func (a *Mat) Sparse() bool { return a.kind == mapdlpb.ObjSMat }

// Shape is read from the solver once and cached.
func (a *Mat) Shape(ctx context.Context) (int, int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rows > 0 {
		return a.rows, a.cols, nil
	}
	info, err := a.m.s.DataInfo(ctx, a.id)
	if err != nil {
		return 0, 0, err
	}
	a.rows, a.cols = int(info.Size1), int(info.Size2)
	return a.rows, a.cols, nil
}

// Sym reports whether the matrix is stored as symmetric. Servers before
// 0.5.0 do not expose the storage type and are assumed symmetric.
func (a *Mat) Sym(ctx context.Context) (bool, error) {
	have, err := a.m.s.ServerVersion(ctx)
	if err != nil {
		return false, err
	}
	if !version.Meets(have, version.V0_5_0) {
		a.m.log.Warn().Str("matrix", a.id).Str("server", have.String()).
			Msg("matrix symmetry not reported by this server, assuming symmetric")
		return true, nil
	}
	info, err := a.m.s.DataInfo(ctx, a.id)
	if err != nil {
		return false, err
	}
	// upper, lower, diagonal
	return info.Mattype >= 0 && info.Mattype <= 2, nil
}

func (a *Mat) Copy(ctx context.Context) (*Mat, error) {
	name, err := a.copyTo(ctx)
	if err != nil {
		return nil, err
	}
	return a.m.mat(name, a.kind), nil
}

// T returns the transpose as a new matrix.
func (a *Mat) T(ctx context.Context) (*Mat, error) {
	name, err := a.copyTo(ctx, "TRANS")
	if err != nil {
		return nil, err
	}
	return a.m.mat(name, a.kind), nil
}

// Col links zero-based column i as a vector. The vector shares storage with
// the matrix.
func (a *Mat) Col(ctx context.Context, i int) (*Vec, error) {
	if i < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeIndex, i)
	}
	l, err := a.letter(ctx)
	if err != nil {
		return nil, err
	}
	name := a.m.NewName()
	if err := a.m.cmd(ctx, "*VEC", name, l, "LINK", a.id, i+1); err != nil {
		return nil, err
	}
	return a.m.vec(name), nil
}

// MulVec returns a * v.
func (a *Mat) MulVec(ctx context.Context, v *Vec) (*Vec, error) {
	name := a.m.NewName()
	if err := a.m.cmd(ctx, "*MULT", a.id, "", v.id, "", name); err != nil {
		return nil, err
	}
	return a.m.vec(name), nil
}

// Mul returns a * b. The solver picks the storage of the product.
func (a *Mat) Mul(ctx context.Context, b *Mat) (*Mat, error) {
	name := a.m.NewName()
	if err := a.m.cmd(ctx, "*MULT", a.id, "", b.id, "", name); err != nil {
		return nil, err
	}
	return a.m.Mat(ctx, 0, 0, mapdlpb.ValueFloat64, InitNone, name)
}

// AsDense downloads a real matrix. Sparse matrices are expanded.
func (a *Mat) AsDense(ctx context.Context) (*mat.Dense, error) {
	data, err := a.m.s.MatData(ctx, a.id)
	if err != nil {
		return nil, err
	}
	switch {
	case data.Dense != nil:
		return data.Dense, nil
	case data.CSR != nil:
		return data.CSR.ToDense(), nil
	}
	return nil, fmt.Errorf("%w: %s is complex", ErrDataType, a.id)
}

// AsCSR downloads a real matrix in compressed sparse row form.
func (a *Mat) AsCSR(ctx context.Context) (*sparse.CSR, error) {
	data, err := a.m.s.MatData(ctx, a.id)
	if err != nil {
		return nil, err
	}
	switch {
	case data.CSR != nil:
		return data.CSR, nil
	case data.Dense != nil:
		r, c := data.Dense.Dims()
		dok := sparse.NewDOK(r, c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := data.Dense.At(i, j); v != 0 {
					dok.Set(i, j, v)
				}
			}
		}
		return dok.ToCSR(), nil
	}
	return nil, fmt.Errorf("%w: %s is complex", ErrDataType, a.id)
}

// AsCDense downloads a complex dense matrix.
func (a *Mat) AsCDense(ctx context.Context) (*mat.CDense, error) {
	data, err := a.m.s.MatData(ctx, a.id)
	if err != nil {
		return nil, err
	}
	if data.CDense == nil {
		return nil, fmt.Errorf("%w: %s is not a complex dense matrix", ErrDataType, a.id)
	}
	return data.CDense, nil
}
