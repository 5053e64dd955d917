package apdlmath

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/danmuck/mapdlctl/internal/apdl"
	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"github.com/danmuck/mapdlctl/internal/testutil/testlog"
	"github.com/danmuck/mapdlctl/internal/version"
	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type fakeSession struct {
	mu        sync.Mutex
	cmds      []string
	responses map[string]string
	scalars   map[string]float64
	infos     map[string]*mapdlpb.DataInfoResponse
	vecs      map[string]client.Values
	mats      map[string]*client.Matrix
	ver       version.Version
	files     []string
	uploaded  []string

	scalarCalls int
}

func newFake() *fakeSession {
	return &fakeSession{
		responses: map[string]string{},
		scalars:   map[string]float64{},
		infos:     map[string]*mapdlpb.DataInfoResponse{},
		vecs:      map[string]client.Values{},
		mats:      map[string]*client.Matrix{},
		ver:       version.V0_5_0,
	}
}

func (f *fakeSession) take() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.cmds
	f.cmds = nil
	return out
}

func (f *fakeSession) Run(_ context.Context, cmd string, _ ...client.RunOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return f.responses[cmd], nil
}

func (f *fakeSession) ScalarParam(_ context.Context, name string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scalarCalls++
	v, ok := f.scalars[name]
	return v, ok, nil
}

func (f *fakeSession) DataInfo(_ context.Context, name string) (*mapdlpb.DataInfoResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.infos[name]
	if !ok {
		return nil, fmt.Errorf("no object %s", name)
	}
	return info, nil
}

func (f *fakeSession) VecData(_ context.Context, name string) (client.Values, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vecs[name], nil
}

func (f *fakeSession) MatData(_ context.Context, name string) (*client.Matrix, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mats[name]
	if !ok {
		return nil, fmt.Errorf("no matrix %s", name)
	}
	return m, nil
}

func (f *fakeSession) SetVecData(_ context.Context, name string, vals client.Values) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vecs[name] = vals
	return nil
}

func (f *fakeSession) SetMatData(_ context.Context, name string, _ mapdlpb.ValueType, m mat.Matrix) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mats[name] = &client.Matrix{Dense: mat.DenseCopyOf(m)}
	return nil
}

func (f *fakeSession) ServerVersion(context.Context) (version.Version, error) {
	return f.ver, nil
}

func (f *fakeSession) Upload(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, path)
	return filepath.Base(path), nil
}

func (f *fakeSession) ListFiles(context.Context) ([]string, error) {
	return f.files, nil
}

func dense(stype mapdlpb.ValueType, rows, cols int64) *mapdlpb.DataInfoResponse {
	return &mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjDMat, Stype: stype, Size1: rows, Size2: cols}
}

func vecInfo(size int64) *mapdlpb.DataInfoResponse {
	return &mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjVec, Stype: mapdlpb.ValueFloat64, Size1: size}
}

func TestNewNameIsSixUpperLetters(t *testing.T) {
	testlog.Start(t)
	m := New(newFake())
	re := regexp.MustCompile(`^[A-Z]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		name := m.NewName()
		require.Regexp(t, re, name)
		seen[name] = true
	}
	require.Greater(t, len(seen), 40)
}

func TestVecAllocationAndInit(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	m := New(f)
	ctx := context.Background()

	z, err := m.Zeros(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, []string{"*VEC," + z.ID() + ",D,ALLOC,5", "*INIT," + z.ID() + ",ZERO"}, f.take())

	o, err := m.Ones(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"*VEC," + o.ID() + ",D,ALLOC,2", "*INIT," + o.ID() + ",CONST,1"}, f.take())

	r, err := m.Vec(ctx, 3, mapdlpb.ValueInt32, InitRand, "")
	require.NoError(t, err)
	require.Equal(t, []string{"*VEC," + r.ID() + ",I,ALLOC,3", "*INIT," + r.ID() + ",RAND"}, f.take())

	_, err = m.Vec(ctx, 3, mapdlpb.ValueInt16, InitNone, "")
	require.ErrorIs(t, err, ErrDataType)

	_, err = m.Vec(ctx, 3, mapdlpb.ValueFloat64, InitNone, "BAD:NAME")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestVecWrapsExistingObject(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.infos["EXIST"] = vecInfo(3)
	m := New(f)

	v, err := m.Vec(context.Background(), 3, mapdlpb.ValueFloat64, InitNone, "EXIST")
	require.NoError(t, err)
	require.Equal(t, "EXIST", v.ID())
	require.Empty(t, f.take())
}

func TestVecArithmetic(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.infos["A"] = vecInfo(4)
	f.scalars[scratchParam] = 3
	m := New(f)
	ctx := context.Background()
	a, b := m.vec("A"), m.vec("B")

	sum, err := a.Add(ctx, b)
	require.NoError(t, err)
	require.Equal(t, []string{"*VEC," + sum.ID() + ",D,COPY,A", "*AXPY,1,0,B,1,0," + sum.ID()}, f.take())

	diff, err := m.Subtract(ctx, a, b)
	require.NoError(t, err)
	require.Equal(t, []string{"*VEC," + diff.ID() + ",D,COPY,A", "*AXPY,-1,0,B,1,0," + diff.ID()}, f.take())

	dot, err := m.Dot(ctx, a, b)
	require.NoError(t, err)
	require.Equal(t, 3.0, dot)
	require.Equal(t, []string{"*DOT,A,B,PY_VAL"}, f.take())

	nrm, err := a.Norm(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 3.0, nrm)
	require.Equal(t, []string{"*NRM,A,NRM2,PY_VAL"}, f.take())

	_, err = a.Norm(ctx, "fro")
	require.ErrorIs(t, err, ErrInvalidArg)

	at, err := a.At(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 3.0, at)
	require.Equal(t, []string{"PY_VAL=A(3)"}, f.take())

	_, err = a.At(ctx, -1)
	require.ErrorIs(t, err, ErrNegativeIndex)

	require.NoError(t, a.Scale(ctx, 2))
	require.NoError(t, a.Div(ctx, 4))
	require.ErrorIs(t, a.Div(ctx, 0), ErrInvalidArg)
	require.Equal(t, []string{"*SCAL,A,2", "*SCAL,A,0.25"}, f.take())

	_, err = m.Add(ctx, a, m.mat("M", mapdlpb.ObjDMat))
	require.ErrorIs(t, err, ErrInvalidArg)
}

func TestVecSizeCachedAndDeleted(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.scalars["A_DIM"] = 4
	m := New(f)
	ctx := context.Background()
	a := m.vec("A")

	for i := 0; i < 3; i++ {
		n, err := a.Size(ctx)
		require.NoError(t, err)
		require.Equal(t, 4, n)
	}
	require.Equal(t, 1, f.scalarCalls)

	_, err := m.vec("GONE").Size(ctx)
	require.ErrorIs(t, err, ErrDeleted)
}

func TestHadamardRequiresVersionAndSizes(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.infos["A"] = vecInfo(3)
	f.scalars["A_DIM"] = 3
	f.scalars["B_DIM"] = 3
	f.scalars["C_DIM"] = 5
	m := New(f)
	ctx := context.Background()

	f.ver = version.V0_3_0
	_, err := m.vec("A").HadamardProduct(ctx, m.vec("B"))
	var verr *version.VersionError
	require.True(t, errors.As(err, &verr))

	f.ver = version.V0_4_0
	_, err = m.vec("A").HadamardProduct(ctx, m.vec("C"))
	require.ErrorIs(t, err, ErrSizeMismatch)

	f.take()
	out, err := m.vec("A").HadamardProduct(ctx, m.vec("B"))
	require.NoError(t, err)
	require.Equal(t, []string{"*VEC," + out.ID() + ",D,ALLOC,3", "*HPROD,A,B," + out.ID()}, f.take())
}

func TestVecValuesAsVecDense(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.vecs["A"] = client.Values{Type: mapdlpb.ValueFloat64, Real: []float64{1, 2, 3}}
	f.vecs["Z"] = client.Values{Type: mapdlpb.ValueComplex128, Complex: []complex128{1i}}
	m := New(f)
	ctx := context.Background()

	v, err := m.vec("A").AsVecDense(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, v.Len())
	require.Equal(t, 2.0, v.AtVec(1))

	_, err = m.vec("Z").AsVecDense(ctx)
	require.ErrorIs(t, err, ErrDataType)
}

func TestMatOperations(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.infos["A"] = dense(mapdlpb.ValueFloat64, 3, 2)
	m := New(f)
	ctx := context.Background()

	a, err := m.Mat(ctx, 0, 0, mapdlpb.ValueFloat64, InitNone, "A")
	require.NoError(t, err)
	require.False(t, a.Sparse())

	rows, cols, err := a.Shape(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, rows)
	require.Equal(t, 2, cols)

	at, err := a.T(ctx)
	require.NoError(t, err)
	col, err := a.Col(ctx, 1)
	require.NoError(t, err)
	prod, err := a.MulVec(ctx, m.vec("V"))
	require.NoError(t, err)
	require.Equal(t, []string{
		"*DMAT," + at.ID() + ",D,COPY,A,TRANS",
		"*VEC," + col.ID() + ",D,LINK,A,2",
		"*MULT,A,,V,," + prod.ID(),
	}, f.take())

	_, err = a.Col(ctx, -1)
	require.ErrorIs(t, err, ErrNegativeIndex)

	f.infos["V"] = vecInfo(2)
	_, err = m.Mat(ctx, 0, 0, mapdlpb.ValueFloat64, InitNone, "V")
	require.ErrorIs(t, err, client.ErrInvalidObjectType)

	z, err := m.ZerosMat(ctx, 2, 4)
	require.NoError(t, err)
	require.Equal(t, []string{"*DMAT," + z.ID() + ",D,ALLOC,2,4", "*INIT," + z.ID() + ",ZERO"}, f.take())
}

func TestMatSym(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.infos["K"] = &mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjSMat, Stype: mapdlpb.ValueFloat64, Mattype: 3}
	m := New(f)
	ctx := context.Background()
	k := m.mat("K", mapdlpb.ObjSMat)

	f.ver = version.V0_4_0
	sym, err := k.Sym(ctx)
	require.NoError(t, err)
	require.True(t, sym)

	f.ver = version.V0_5_0
	sym, err = k.Sym(ctx)
	require.NoError(t, err)
	require.False(t, sym)

	f.infos["K"].Mattype = 1
	sym, err = k.Sym(ctx)
	require.NoError(t, err)
	require.True(t, sym)
}

func TestSparseUploadBuildsCSR(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	m := New(f)
	ctx := context.Background()

	csr := sparse.NewCSR(2, 2, []int{0, 1, 2}, []int{0, 1}, []float64{2, 3})
	k, err := m.Sparse(ctx, csr, true, "K")
	require.NoError(t, err)
	require.True(t, k.Sparse())
	require.Equal(t, []float64{2, 3}, f.vecs["K_DATA"].Real)
	require.Equal(t, mapdlpb.ValueInt64, f.vecs["K_IND"].Type)
	require.Equal(t, []float64{1, 2, 3}, f.vecs["K_IND"].Real)
	require.Equal(t, mapdlpb.ValueInt32, f.vecs["K_PTR"].Type)
	require.Equal(t, []float64{1, 2}, f.vecs["K_PTR"].Real)
	require.Equal(t, []string{"*SMAT,K,D,ALLOC,CSR,K_IND,K_PTR,K_DATA,TRUE"}, f.take())

	rect := sparse.NewCSR(2, 3, []int{0, 1, 1}, []int{2}, []float64{1})
	_, err = m.Sparse(ctx, rect, false, "R")
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestMatrixConversions(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	m := New(f)
	ctx := context.Background()

	a, err := m.Matrix(ctx, mat.NewDense(2, 2, []float64{1, 0, 0, 4}), "A")
	require.NoError(t, err)
	csr, err := a.AsCSR(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, csr.NNZ())
	require.Equal(t, 4.0, csr.At(1, 1))

	f.mats["S"] = &client.Matrix{CSR: sparse.NewCSR(2, 2, []int{0, 1, 2}, []int{1, 0}, []float64{5, 6})}
	d, err := m.mat("S", mapdlpb.ObjSMat).AsDense(ctx)
	require.NoError(t, err)
	require.Equal(t, 5.0, d.At(0, 1))
	require.Equal(t, 6.0, d.At(1, 0))

	f.mats["C"] = &client.Matrix{CDense: mat.NewCDense(1, 1, []complex128{1 + 1i})}
	_, err = m.mat("C", mapdlpb.ObjDMat).AsDense(ctx)
	require.ErrorIs(t, err, ErrDataType)
	cd, err := m.mat("C", mapdlpb.ObjDMat).AsCDense(ctx)
	require.NoError(t, err)
	require.Equal(t, 1+1i, cd.At(0, 0))
}

func TestLoadFromFullFile(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	m := New(f)
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "local.full")
	require.NoError(t, os.WriteFile(local, []byte("full"), 0o644))
	k, err := m.Stiff(ctx, local, "K")
	require.NoError(t, err)
	require.Equal(t, []string{local}, f.uploaded)
	require.Equal(t, []string{"*SMAT,K,D,IMPORT,FULL,local.full,STIFF"}, f.take())

	_, err = m.Mass(ctx, "remote.full", "M")
	require.ErrorIs(t, err, apdl.ErrFileNotFound)

	f.files = []string{"remote.full"}
	_, err = m.Damp(ctx, "remote.full", "C")
	require.NoError(t, err)
	back, err := m.GetVec(ctx, "remote.full", "back", "")
	require.NoError(t, err)
	rhs, err := m.RHS(ctx, "remote.full", "")
	require.NoError(t, err)
	require.Equal(t, []string{
		"*SMAT,C,D,IMPORT,FULL,remote.full,DAMP",
		"*VEC," + back.ID() + ",I,IMPORT,FULL,remote.full,BACK",
		"*VEC," + rhs.ID() + ",D,IMPORT,FULL,remote.full,RHS",
	}, f.take())

	_, err = m.GetVec(ctx, "remote.full", "STIFF", "")
	require.ErrorIs(t, err, ErrInvalidArg)
	require.True(t, k.Sparse())
}

func TestEigsSelectsAlgorithm(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.infos["K"] = &mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjSMat, Stype: mapdlpb.ValueFloat64, Size1: 6, Size2: 6}
	f.infos["M"] = &mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjSMat, Stype: mapdlpb.ValueFloat64, Size1: 6, Size2: 6}
	m := New(f)
	ctx := context.Background()
	k, mm := m.mat("K", mapdlpb.ObjSMat), m.mat("M", mapdlpb.ObjSMat)

	ev, phi, err := m.Eigs(ctx, 4, k, EigOptions{M: mm})
	require.NoError(t, err)
	require.Equal(t, []string{
		"/SOLU",
		"ANTYPE,MODAL",
		"MODOPT,LANB,4,,",
		"*VEC," + ev.ID() + ",D,ALLOC,0",
		"*DMAT," + phi.ID() + ",D,ALLOC,6,4",
		"*EIG,K,M,," + ev.ID() + "," + phi.ID(),
	}, f.take())

	f.infos["M"].Mattype = 3
	given := m.mat("PHI", mapdlpb.ObjDMat)
	_, _, err = m.Eigs(ctx, 2, k, EigOptions{M: mm, Fmax: 100, Phi: given})
	require.NoError(t, err)
	cmds := f.take()
	require.Equal(t, "MODOPT,UNSYM,2,,100", cmds[2])
	require.True(t, strings.HasSuffix(cmds[len(cmds)-1], ",PHI"))

	_, _, err = m.Eigs(ctx, 2, k, EigOptions{M: mm, C: m.mat("C", mapdlpb.ObjSMat), Phi: given})
	require.NoError(t, err)
	cmds = f.take()
	require.Equal(t, "MODOPT,DAMP,2,,", cmds[2])
	require.True(t, strings.HasPrefix(cmds[len(cmds)-1], "*EIG,K,M,C,"))

	_, _, err = m.Eigs(ctx, 2, k, EigOptions{})
	require.ErrorIs(t, err, ErrInvalidArg)
}

func TestCompFreeAndStatus(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.responses["*STATUS,MATH"] = strings.Join([]string{
		"APDLMATH PARAMETER STATUS-  (      2 PARAMETERS DEFINED)",
		"",
		"  Name                   Type            Mem. (MB)       Dims            Workspace",
		"",
		"   AAAAAA                 VEC             0.000           4               1",
		"   BBBBBB                 DMAT            0.001           [3:2]           1",
	}, "\n")
	m := New(f)
	ctx := context.Background()
	a := m.mat("A", mapdlpb.ObjDMat)

	require.NoError(t, m.SVD(ctx, a, "", m.vec("S"), nil))
	require.NoError(t, m.MGS(ctx, a, "1e-6"))
	require.NoError(t, m.Sparsify(ctx, a, "1e-8"))
	require.NoError(t, m.Free(ctx))
	require.Equal(t, []string{
		"*COMP,A,SVD,,S,",
		"*COMP,A,MGS,1e-6",
		"*COMP,A,SPARSE,1e-8",
		"*FREE,ALL",
	}, f.take())

	objs, err := m.Objects(ctx)
	require.NoError(t, err)
	require.Equal(t, "VEC", objs["AAAAAA"].Type)
	require.Equal(t, []int{4}, objs["AAAAAA"].Shape)
	require.Equal(t, []int{3, 2}, objs["BBBBBB"].Shape)
}

func TestSolverFactorizeAndSolve(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.infos["B"] = vecInfo(3)
	m := New(f)
	ctx := context.Background()

	s := m.Solver("S")
	_, err := s.Solve(ctx, m.vec("B"), nil)
	require.ErrorIs(t, err, ErrInvalidArg)

	require.NoError(t, s.Factorize(ctx, m.mat("A", mapdlpb.ObjDMat), ""))
	x, err := s.Solve(ctx, m.vec("B"), nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"*LSENGINE,LAPACK,S,A",
		"*LSFACTOR,S",
		"*VEC," + x.ID() + ",D,COPY,B",
		"*LSBAC,S,B," + x.ID(),
	}, f.take())

	sp, err := m.Factorize(ctx, m.mat("K", mapdlpb.ObjSMat))
	require.NoError(t, err)
	require.Equal(t, []string{"*LSENGINE,DSP," + sp.ID() + ",K", "*LSFACTOR," + sp.ID()}, f.take())
}

func TestWrapTypesExistingObjects(t *testing.T) {
	testlog.Start(t)
	f := newFake()
	f.infos["V"] = vecInfo(3)
	f.infos["S"] = &mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjSMat, Stype: mapdlpb.ValueFloat64}
	f.infos["H"] = &mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjVec, Stype: mapdlpb.ValueInt16}
	m := New(f)
	ctx := context.Background()

	v, err := m.Wrap(ctx, "V")
	require.NoError(t, err)
	require.IsType(t, &Vec{}, v)

	s, err := m.Wrap(ctx, "S")
	require.NoError(t, err)
	require.Equal(t, mapdlpb.ObjSMat, s.Kind())

	_, err = m.Wrap(ctx, "H")
	require.ErrorIs(t, err, ErrDataType)

	_, err = m.Wrap(ctx, "MISSING")
	require.Error(t, err)
}
