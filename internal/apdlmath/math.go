// Package apdlmath proxies APDLMath vectors, matrices and linear solvers
// that live in the solver's memory. Handles carry only a name; every
// operation is a command on the session.
package apdlmath

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/mapdlctl/internal/apdl"
	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"github.com/danmuck/mapdlctl/internal/observability"
	"github.com/danmuck/mapdlctl/internal/version"
	"github.com/james-bowman/sparse"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrDataType      = errors.New("apdlmath: data type not supported")
	ErrSizeMismatch  = errors.New("apdlmath: inconsistent sizes")
	ErrNegativeIndex = errors.New("apdlmath: negative indices not permitted")
	ErrDeleted       = errors.New("apdlmath: object has been deleted in the solver")
	ErrInvalidName   = errors.New("apdlmath: invalid object name")
	ErrInvalidArg    = errors.New("apdlmath: invalid argument")
)

// scratchParam receives scalar results such as *DOT and *NRM.
const scratchParam = "PY_VAL"

// Session is the part of a solver session the proxies need.
// *client.Client satisfies it.
type Session interface {
	Run(ctx context.Context, command string, opts ...client.RunOption) (string, error)
	ScalarParam(ctx context.Context, name string) (float64, bool, error)
	DataInfo(ctx context.Context, name string) (*mapdlpb.DataInfoResponse, error)
	VecData(ctx context.Context, name string) (client.Values, error)
	MatData(ctx context.Context, name string) (*client.Matrix, error)
	SetVecData(ctx context.Context, name string, vals client.Values) error
	SetMatData(ctx context.Context, name string, vt mapdlpb.ValueType, m mat.Matrix) error
	ServerVersion(ctx context.Context) (version.Version, error)
	Upload(ctx context.Context, path string) (string, error)
	ListFiles(ctx context.Context) ([]string, error)
}

// Init selects how a new vector or matrix is filled.
type Init int

const (
	InitNone Init = iota
	InitZeros
	InitOnes
	InitRand
)

// Math creates and combines APDLMath objects on one session.
type Math struct {
	s   Session
	log zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(s Session) *Math {
	return &Math{
		s:   s,
		log: observability.Component("apdlmath"),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewName returns a random 6 letter upper case object name.
func (m *Math) NewName() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, 6)
	for i := range b {
		b[i] = letters[m.rng.Intn(len(letters))]
	}
	return string(b)
}

func (m *Math) run(ctx context.Context, format string, args ...any) error {
	_, err := m.s.Run(ctx, fmt.Sprintf(format, args...), client.Mute())
	return err
}

func (m *Math) cmd(ctx context.Context, label string, args ...any) error {
	_, err := m.s.Run(ctx, apdl.Command(label, args...), client.Mute())
	return err
}

func (m *Math) scalar(ctx context.Context, name string) (float64, error) {
	v, ok, err := m.s.ScalarParam(ctx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("apdlmath: parameter %s not defined", name)
	}
	return v, nil
}

func letter(vt mapdlpb.ValueType) (string, error) {
	l := vt.Letter()
	if l == "" {
		return "", fmt.Errorf("%w: %s", ErrDataType, vt)
	}
	return l, nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" || strings.Contains(name, ":") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (m *Math) nameOr(name string) (string, error) {
	if name == "" {
		return m.NewName(), nil
	}
	return name, checkName(name)
}

// Vec allocates a vector of size n. When name already exists in the solver
// the existing vector is wrapped instead.
func (m *Math) Vec(ctx context.Context, n int, vt mapdlpb.ValueType, init Init, name string) (*Vec, error) {
	l, err := letter(vt)
	if err != nil {
		return nil, err
	}
	exists := false
	if name != "" {
		if err := checkName(name); err != nil {
			return nil, err
		}
		_, ierr := m.s.DataInfo(ctx, name)
		exists = ierr == nil
	} else {
		name = m.NewName()
	}
	if !exists {
		if err := m.run(ctx, "*VEC,%s,%s,ALLOC,%d", name, l, n); err != nil {
			return nil, err
		}
	}
	v := m.vec(name)
	return v, v.initialize(ctx, init)
}

// Mat allocates a dense nrow x ncol matrix, or wraps the existing dense or
// sparse matrix called name.
func (m *Math) Mat(ctx context.Context, nrow, ncol int, vt mapdlpb.ValueType, init Init, name string) (*Mat, error) {
	if name != "" {
		if err := checkName(name); err != nil {
			return nil, err
		}
		info, err := m.s.DataInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		switch info.Objtype {
		case mapdlpb.ObjDMat, mapdlpb.ObjSMat:
			return m.mat(name, info.Objtype), nil
		}
		return nil, fmt.Errorf("%w: %s is %s", client.ErrInvalidObjectType, name, info.Objtype)
	}
	l, err := letter(vt)
	if err != nil {
		return nil, err
	}
	name = m.NewName()
	if err := m.run(ctx, "*DMAT,%s,%s,ALLOC,%d,%d", name, l, nrow, ncol); err != nil {
		return nil, err
	}
	out := m.mat(name, mapdlpb.ObjDMat)
	return out, out.initialize(ctx, init)
}

func (m *Math) Zeros(ctx context.Context, n int) (*Vec, error) {
	return m.Vec(ctx, n, mapdlpb.ValueFloat64, InitZeros, "")
}

func (m *Math) Ones(ctx context.Context, n int) (*Vec, error) {
	return m.Vec(ctx, n, mapdlpb.ValueFloat64, InitOnes, "")
}

func (m *Math) Rand(ctx context.Context, n int) (*Vec, error) {
	return m.Vec(ctx, n, mapdlpb.ValueFloat64, InitRand, "")
}

func (m *Math) ZerosMat(ctx context.Context, nrow, ncol int) (*Mat, error) {
	return m.Mat(ctx, nrow, ncol, mapdlpb.ValueFloat64, InitZeros, "")
}

func (m *Math) OnesMat(ctx context.Context, nrow, ncol int) (*Mat, error) {
	return m.Mat(ctx, nrow, ncol, mapdlpb.ValueFloat64, InitOnes, "")
}

func (m *Math) RandMat(ctx context.Context, nrow, ncol int) (*Mat, error) {
	return m.Mat(ctx, nrow, ncol, mapdlpb.ValueFloat64, InitRand, "")
}

// SetVec uploads vals into a new or existing vector.
func (m *Math) SetVec(ctx context.Context, vals client.Values, name string) (*Vec, error) {
	name, err := m.nameOr(name)
	if err != nil {
		return nil, err
	}
	if _, err := letter(vals.Type); err != nil {
		return nil, err
	}
	if err := m.s.SetVecData(ctx, name, vals); err != nil {
		return nil, err
	}
	return m.vec(name), nil
}

// Matrix uploads a dense real matrix.
func (m *Math) Matrix(ctx context.Context, dense mat.Matrix, name string) (*Mat, error) {
	name, err := m.nameOr(name)
	if err != nil {
		return nil, err
	}
	if err := m.s.SetMatData(ctx, name, mapdlpb.ValueFloat64, dense); err != nil {
		return nil, err
	}
	return m.mat(name, mapdlpb.ObjDMat), nil
}

// Sparse uploads a square CSR matrix through its data, row pointer and
// column index vectors, then assembles it with *SMAT. sym marks the
// matrix as upper triangular storage of a symmetric matrix.
func (m *Math) Sparse(ctx context.Context, csr *sparse.CSR, sym bool, name string) (*Mat, error) {
	name, err := m.nameOr(name)
	if err != nil {
		return nil, err
	}
	rows, cols := csr.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: sparse matrices must be square, got %dx%d", ErrSizeMismatch, rows, cols)
	}
	raw := csr.RawMatrix()

	dataName, indName, ptrName := name+"_DATA", name+"_IND", name+"_PTR"
	if _, err := m.SetVec(ctx, client.Values{Type: mapdlpb.ValueFloat64, Real: raw.Data}, dataName); err != nil {
		return nil, err
	}
	// Solver indexing is 1-based.
	if _, err := m.SetVec(ctx, client.Values{Type: mapdlpb.ValueInt64, Real: oneBased(raw.Indptr)}, indName); err != nil {
		return nil, err
	}
	if _, err := m.SetVec(ctx, client.Values{Type: mapdlpb.ValueInt32, Real: oneBased(raw.Ind)}, ptrName); err != nil {
		return nil, err
	}
	flag := "FALSE"
	if sym {
		flag = "TRUE"
	}
	if err := m.run(ctx, "*SMAT,%s,D,ALLOC,CSR,%s,%s,%s,%s", name, indName, ptrName, dataName, flag); err != nil {
		return nil, err
	}
	return m.mat(name, mapdlpb.ObjSMat), nil
}

func oneBased(idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, v := range idx {
		out[i] = float64(v + 1)
	}
	return out
}

// LoadFile makes fname available to the solver: a local file is uploaded,
// otherwise it must already be in the solver's working directory.
func (m *Math) LoadFile(ctx context.Context, fname string) (string, error) {
	if _, err := os.Stat(fname); err == nil {
		return m.s.Upload(ctx, fname)
	}
	base := filepath.Base(fname)
	files, err := m.s.ListFiles(ctx)
	if err != nil {
		return "", err
	}
	if !slices.Contains(files, base) {
		return "", fmt.Errorf("%w: %s", apdl.ErrFileNotFound, fname)
	}
	return base, nil
}

func (m *Math) loadMatrix(ctx context.Context, fname, matID, name string) (*Mat, error) {
	name, err := m.nameOr(name)
	if err != nil {
		return nil, err
	}
	fname, err = m.LoadFile(ctx, fname)
	if err != nil {
		return nil, err
	}
	m.log.Debug().Str("matrix", matID).Str("file", fname).Msg("importing matrix")
	if err := m.run(ctx, "*SMAT,%s,D,IMPORT,FULL,%s,%s", name, fname, matID); err != nil {
		return nil, err
	}
	return m.mat(name, mapdlpb.ObjSMat), nil
}

// Stiff loads the stiffness matrix from a .full file.
func (m *Math) Stiff(ctx context.Context, fname, name string) (*Mat, error) {
	return m.loadMatrix(ctx, fname, "STIFF", name)
}

func (m *Math) Mass(ctx context.Context, fname, name string) (*Mat, error) {
	return m.loadMatrix(ctx, fname, "MASS", name)
}

func (m *Math) Damp(ctx context.Context, fname, name string) (*Mat, error) {
	return m.loadMatrix(ctx, fname, "DAMP", name)
}

// GetVec loads a vector from a .full file. matID is RHS, GVEC, BACK or
// FORWARD; the mapping vectors are integer.
func (m *Math) GetVec(ctx context.Context, fname, matID, name string) (*Vec, error) {
	matID = strings.ToUpper(matID)
	vt := mapdlpb.ValueFloat64
	switch matID {
	case "RHS", "GVEC":
	case "BACK", "FORWARD":
		vt = mapdlpb.ValueInt32
	default:
		return nil, fmt.Errorf("%w: vector id %q, want RHS, GVEC, BACK or FORWARD", ErrInvalidArg, matID)
	}
	name, err := m.nameOr(name)
	if err != nil {
		return nil, err
	}
	fname, err = m.LoadFile(ctx, fname)
	if err != nil {
		return nil, err
	}
	if err := m.run(ctx, "*VEC,%s,%s,IMPORT,FULL,%s,%s", name, vt.Letter(), fname, matID); err != nil {
		return nil, err
	}
	return m.vec(name), nil
}

// RHS loads the load vector from a .full file.
func (m *Math) RHS(ctx context.Context, fname, name string) (*Vec, error) {
	return m.GetVec(ctx, fname, "RHS", name)
}

func (m *Math) Dot(ctx context.Context, a, b *Vec) (float64, error) {
	return a.Dot(ctx, b)
}

// Add returns a + b as a new object of a's kind.
func (m *Math) Add(ctx context.Context, a, b Object) (Object, error) {
	return combine(ctx, a, b, 1)
}

// Subtract returns a - b as a new object of a's kind.
func (m *Math) Subtract(ctx context.Context, a, b Object) (Object, error) {
	return combine(ctx, a, b, -1)
}

func combine(ctx context.Context, a, b Object, sign int) (Object, error) {
	switch x := a.(type) {
	case *Vec:
		y, ok := b.(*Vec)
		if !ok {
			return nil, fmt.Errorf("%w: cannot combine a vector with %T", ErrInvalidArg, b)
		}
		if sign > 0 {
			return x.Add(ctx, y)
		}
		return x.Sub(ctx, y)
	case *Mat:
		out, err := x.Copy(ctx)
		if err != nil {
			return nil, err
		}
		return out, out.Axpy(ctx, b, float64(sign), 1)
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidArg, a)
}

func (m *Math) Norm(ctx context.Context, o Object, order string) (float64, error) {
	return o.base().Norm(ctx, order)
}

// Factorize creates a solver and factorizes mat with the default engine.
func (m *Math) Factorize(ctx context.Context, a *Mat) (*Solver, error) {
	s := m.Solver("")
	return s, s.Factorize(ctx, a, "")
}

// EigOptions configures Eigs. M is required unless C is set.
type EigOptions struct {
	M, C, Phi  *Mat
	Algo       string
	Fmin, Fmax float64
}

// Eigs solves the eigenproblem for k and returns the eigenvalues and the
// mode shapes. Symmetric problems default to LANB, unsymmetric ones to UNSYM
// and damped ones to DAMP. A nil Phi is allocated with nev columns.
func (m *Math) Eigs(ctx context.Context, nev int, k *Mat, opts EigOptions) (*Vec, *Mat, error) {
	algo, cid := opts.Algo, ""
	if opts.C != nil {
		cid, algo = opts.C.ID(), "DAMP"
	} else {
		if opts.M == nil {
			return nil, nil, fmt.Errorf("%w: eigenproblem needs a mass matrix", ErrInvalidArg)
		}
		ksym, err := k.Sym(ctx)
		if err != nil {
			return nil, nil, err
		}
		msym, err := opts.M.Sym(ctx)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case !ksym || !msym:
			algo = "UNSYM"
		case algo == "":
			algo = "LANB"
		}
	}
	mid := ""
	if opts.M != nil {
		mid = opts.M.ID()
	}

	if err := m.cmd(ctx, apdl.Solu()); err != nil {
		return nil, nil, err
	}
	if err := m.cmd(ctx, apdl.Antype("MODAL")); err != nil {
		return nil, nil, err
	}
	if err := m.cmd(ctx, apdl.Modopt(algo, nev, optionalFloat(opts.Fmin), optionalFloat(opts.Fmax))); err != nil {
		return nil, nil, err
	}
	ev, err := m.Vec(ctx, 0, mapdlpb.ValueFloat64, InitNone, "")
	if err != nil {
		return nil, nil, err
	}
	phi := opts.Phi
	if phi == nil {
		rows, _, err := k.Shape(ctx)
		if err != nil {
			return nil, nil, err
		}
		if phi, err = m.Mat(ctx, rows, nev, mapdlpb.ValueFloat64, InitNone, ""); err != nil {
			return nil, nil, err
		}
	}
	if err := m.cmd(ctx, "*EIG", k.ID(), mid, cid, ev.ID(), phi.ID()); err != nil {
		return nil, nil, err
	}
	return ev, phi, nil
}

func optionalFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}

// SVD computes the singular value decomposition of a in place.
func (m *Math) SVD(ctx context.Context, a *Mat, thresh string, sig, v *Vec) error {
	sigID, vID := "", ""
	if sig != nil {
		sigID = sig.ID()
	}
	if v != nil {
		vID = v.ID()
	}
	return m.run(ctx, "*COMP,%s,SVD,%s,%s,%s", a.ID(), thresh, sigID, vID)
}

// MGS orthogonalizes the columns of a with modified Gram-Schmidt.
func (m *Math) MGS(ctx context.Context, a *Mat, thresh string) error {
	return m.run(ctx, "*COMP,%s,MGS,%s", a.ID(), thresh)
}

// Sparsify drops values of a below thresh relative to the largest.
func (m *Math) Sparsify(ctx context.Context, a *Mat, thresh string) error {
	return m.run(ctx, "*COMP,%s,SPARSE,%s", a.ID(), thresh)
}

// Free deletes every APDLMath object in the session.
func (m *Math) Free(ctx context.Context) error {
	return m.run(ctx, "*FREE,ALL")
}

// Status returns the *STATUS,MATH listing.
func (m *Math) Status(ctx context.Context) (string, error) {
	return m.s.Run(ctx, "*STATUS,MATH", client.Unmute())
}

// Objects parses Status into the defined APDLMath objects.
func (m *Math) Objects(ctx context.Context) (map[string]apdl.Parameter, error) {
	out, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return apdl.ParseStatus(out)
}

func (m *Math) Solver(name string) *Solver {
	if name == "" {
		name = m.NewName()
	}
	return &Solver{id: name, m: m}
}

// Wrap returns a handle to the existing object name, typed by the solver.
func (m *Math) Wrap(ctx context.Context, name string) (Object, error) {
	info, err := m.s.DataInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, err := letter(info.Stype); err != nil {
		return nil, err
	}
	switch info.Objtype {
	case mapdlpb.ObjVec:
		return m.vec(name), nil
	case mapdlpb.ObjDMat, mapdlpb.ObjSMat:
		return m.mat(name, info.Objtype), nil
	}
	return nil, fmt.Errorf("%w: %s is %s", client.ErrInvalidObjectType, name, info.Objtype)
}
