package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/danmuck/mapdlctl/internal/apdl"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"github.com/danmuck/mapdlctl/internal/version"
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// GetValue is the result of a *GET query.
type GetValue struct {
	Number float64
	Text   string
	IsText bool
}

func (v GetValue) String() string {
	if v.IsText {
		return v.Text
	}
	return strconv.FormatFloat(v.Number, 'g', -1, 64)
}

// Get queries a single solver value, for example
// Get(ctx, "NODE", 1, "LOC", nil, "X", nil).
func (c *Client) Get(ctx context.Context, entity string, entnum any, item1 string, it1num any, item2 string, it2num any) (GetValue, error) {
	return c.GetRaw(ctx, apdl.Get(entity, entnum, item1, it1num, item2, it2num))
}

// GetRaw sends an already formatted *GET body.
func (c *Client) GetRaw(ctx context.Context, getcmd string) (GetValue, error) {
	if c.InNonInteractive() {
		return GetValue{}, ErrNonInteractiveGet
	}
	var resp *mapdlpb.GetResponse
	err := c.call("Get", func() error {
		var err error
		resp, err = c.stub.Get(ctx, &mapdlpb.GetRequest{Getcmd: getcmd})
		return err
	})
	if err != nil {
		return GetValue{}, err
	}
	switch resp.Type {
	case mapdlpb.GetDouble:
		return GetValue{Number: resp.Dval}, nil
	case mapdlpb.GetString:
		return GetValue{Text: resp.Sval, IsText: true}, nil
	}
	return GetValue{}, fmt.Errorf("%w: *GET,%s: check the entity is valid in the active processor",
		apdl.ErrInvalidRoutine, getcmd)
}

// ScalarParam reads a scalar parameter. ok is false when the parameter is
// not defined.
func (c *Client) ScalarParam(ctx context.Context, name string) (float64, bool, error) {
	vals, err := c.Parameter(ctx, name)
	if err != nil {
		return 0, false, err
	}
	if len(vals) == 0 {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return 0, false, fmt.Errorf("client: scalar %s: %w", name, err)
	}
	return v, true, nil
}

// Parameter returns the raw values of a parameter as the server prints them.
func (c *Client) Parameter(ctx context.Context, name string) ([]string, error) {
	var resp *mapdlpb.ParameterResponse
	err := c.call("GetParameter", func() error {
		var err error
		resp, err = c.stub.GetParameter(ctx, &mapdlpb.ParameterRequest{Name: name})
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp.Val, nil
}

// Variable returns the values of a POST26 time-history variable.
func (c *Client) Variable(ctx context.Context, inum int) ([]string, error) {
	var resp *mapdlpb.ParameterResponse
	err := c.call("GetVariable", func() error {
		var err error
		resp, err = c.stub.GetVariable(ctx, &mapdlpb.VariableRequest{Inum: int32(inum)})
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp.Val, nil
}

// VGet streams a *VGET query as float64 values.
func (c *Client) VGet(ctx context.Context, entity string, entnum any, item1 string, it1num any, item2 string, it2num any, kloop any) ([]float64, error) {
	if c.InNonInteractive() {
		return nil, ErrNonInteractiveGet
	}
	var stream mapdlpb.ChunkStream
	err := c.call("VGet2", func() error {
		var err error
		stream, err = c.stub.VGet2(ctx, &mapdlpb.GetRequest{Getcmd: apdl.VGet(entity, entnum, item1, it1num, item2, it2num, kloop)})
		return err
	})
	if err != nil {
		return nil, err
	}
	vt, raw, err := c.readChunks("VGet2", stream)
	if err != nil {
		return nil, err
	}
	if vt == mapdlpb.ValueUnknown {
		vt = mapdlpb.ValueFloat64
	}
	return mapdlpb.DecodeReal(vt, raw)
}

// Nodes streams node coordinates as a flat float64 array.
func (c *Client) Nodes(ctx context.Context) ([]float64, error) {
	var stream mapdlpb.ChunkStream
	err := c.call("Nodes", func() error {
		var err error
		stream, err = c.stub.Nodes(ctx, &mapdlpb.StreamRequest{ChunkSize: mapdlpb.DefaultChunkSize})
		return err
	})
	if err != nil {
		return nil, err
	}
	vt, raw, err := c.readChunks("Nodes", stream)
	if err != nil {
		return nil, err
	}
	if vt == mapdlpb.ValueUnknown {
		vt = mapdlpb.ValueFloat64
	}
	return mapdlpb.DecodeReal(vt, raw)
}

// readChunks concatenates a chunk stream. The value type is taken from the
// first chunk that carries one.
func (c *Client) readChunks(method string, stream mapdlpb.ChunkStream) (mapdlpb.ValueType, []byte, error) {
	var raw []byte
	vt := mapdlpb.ValueUnknown
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return vt, raw, nil
		}
		if err != nil {
			return vt, nil, c.translate(method, err)
		}
		if vt == mapdlpb.ValueUnknown {
			vt = chunk.ValueType
		}
		raw = append(raw, chunk.Payload...)
	}
}

func (c *Client) DataInfo(ctx context.Context, name string) (*mapdlpb.DataInfoResponse, error) {
	var resp *mapdlpb.DataInfoResponse
	err := c.call("GetDataInfo", func() error {
		var err error
		resp, err = c.stub.GetDataInfo(ctx, &mapdlpb.ParameterRequest{Name: name})
		return err
	})
	return resp, err
}

// Values is a downloaded APDLMath array. Exactly one of Real and Complex is
// set, according to Type.
type Values struct {
	Type    mapdlpb.ValueType
	Real    []float64
	Complex []complex128
}

func (v Values) Len() int {
	if v.Type.IsComplex() {
		return len(v.Complex)
	}
	return len(v.Real)
}

func decodeValues(vt mapdlpb.ValueType, raw []byte) (Values, error) {
	if vt.IsComplex() {
		vals, err := mapdlpb.DecodeComplex(vt, raw)
		return Values{Type: vt, Complex: vals}, err
	}
	vals, err := mapdlpb.DecodeReal(vt, raw)
	return Values{Type: vt, Real: vals}, err
}

// VecData downloads an APDLMath vector.
func (c *Client) VecData(ctx context.Context, name string) (Values, error) {
	info, err := c.DataInfo(ctx, name)
	if err != nil {
		return Values{}, err
	}
	var stream mapdlpb.ChunkStream
	err = c.call("GetVecData", func() error {
		var err error
		stream, err = c.stub.GetVecData(ctx, &mapdlpb.ParameterRequest{Name: name})
		return err
	})
	if err != nil {
		return Values{}, err
	}
	_, raw, err := c.readChunks("GetVecData", stream)
	if err != nil {
		return Values{}, err
	}
	return decodeValues(info.Stype, raw)
}

// Matrix is a downloaded APDLMath matrix. Dense real data fills Dense,
// dense complex data fills CDense and sparse data fills CSR.
type Matrix struct {
	Info   *mapdlpb.DataInfoResponse
	Dense  *mat.Dense
	CDense *mat.CDense
	CSR    *sparse.CSR
}

func (m *Matrix) Dims() (int, int) {
	return int(m.Info.Size1), int(m.Info.Size2)
}

// MatData downloads an APDLMath matrix. Dense data arrives column-major.
// Sparse matrices are read through their ::ROWS, ::COLS and ::VALS vectors.
func (c *Client) MatData(ctx context.Context, name string) (*Matrix, error) {
	info, err := c.DataInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, cols := int(info.Size1), int(info.Size2)

	switch info.Objtype {
	case mapdlpb.ObjDMat:
		var stream mapdlpb.ChunkStream
		err := c.call("GetMatData", func() error {
			var err error
			stream, err = c.stub.GetMatData(ctx, &mapdlpb.ParameterRequest{Name: name})
			return err
		})
		if err != nil {
			return nil, err
		}
		_, raw, err := c.readChunks("GetMatData", stream)
		if err != nil {
			return nil, err
		}
		vals, err := decodeValues(info.Stype, raw)
		if err != nil {
			return nil, err
		}
		if vals.Len() != rows*cols {
			return nil, fmt.Errorf("%w: %s has %d values for %dx%d", mapdlpb.ErrPayloadSize, name, vals.Len(), rows, cols)
		}
		out := &Matrix{Info: info}
		if vals.Type.IsComplex() {
			out.CDense = mat.NewCDense(rows, cols, columnToRowMajor(vals.Complex, rows, cols))
		} else {
			out.Dense = mat.NewDense(rows, cols, columnToRowMajor(vals.Real, rows, cols))
		}
		return out, nil

	case mapdlpb.ObjSMat:
		if info.Stype.IsComplex() {
			return nil, fmt.Errorf("%w: complex sparse matrix %s", ErrUnsupportedDataType, name)
		}
		indptr, err := c.intVec(ctx, name+"::ROWS")
		if err != nil {
			return nil, err
		}
		indices, err := c.intVec(ctx, name+"::COLS")
		if err != nil {
			return nil, err
		}
		vals, err := c.VecData(ctx, name+"::VALS")
		if err != nil {
			return nil, err
		}
		if len(indptr) != rows+1 || len(indices) != len(vals.Real) {
			return nil, fmt.Errorf("%w: inconsistent CSR arrays for %s", mapdlpb.ErrPayloadSize, name)
		}
		return &Matrix{Info: info, CSR: sparse.NewCSR(rows, cols, indptr, indices, vals.Real)}, nil
	}
	return nil, fmt.Errorf("%w: %q is %s", ErrInvalidObjectType, name, info.Objtype)
}

func (c *Client) intVec(ctx context.Context, name string) ([]int, error) {
	vals, err := c.VecData(ctx, name)
	if err != nil {
		return nil, err
	}
	if vals.Type.IsComplex() {
		return nil, fmt.Errorf("%w: complex index vector %s", ErrUnsupportedDataType, name)
	}
	out := make([]int, len(vals.Real))
	for i, v := range vals.Real {
		out[i] = int(math.Round(v))
	}
	return out, nil
}

func columnToRowMajor[T any](data []T, rows, cols int) []T {
	out := make([]T, len(data))
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			out[i*cols+j] = data[j*rows+i]
		}
	}
	return out
}

// SetVecData uploads values into vector name, creating or replacing it.
func (c *Client) SetVecData(ctx context.Context, name string, vals Values) error {
	var raw []byte
	var err error
	if vals.Type.IsComplex() {
		raw, err = mapdlpb.EncodeComplex(vals.Type, vals.Complex)
	} else {
		raw, err = mapdlpb.EncodeReal(vals.Type, vals.Real)
	}
	if err != nil {
		return err
	}

	var stream mapdlpb.SetVecDataStream
	err = c.call("SetVecData", func() error {
		var err error
		stream, err = c.stub.SetVecData(ctx)
		return err
	})
	if err != nil {
		return err
	}
	for _, chunk := range uploadChunks(raw, mapdlpb.DefaultChunkSize) {
		req := &mapdlpb.SetVecDataRequest{
			Vname: name,
			Stype: vals.Type,
			Size:  int64(vals.Len()),
			Chunk: &mapdlpb.Chunk{Payload: chunk, Size: int64(len(chunk))},
		}
		if err := stream.Send(req); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return c.translate("SetVecData", err)
		}
	}
	if _, err := stream.CloseAndRecv(); err != nil {
		return c.translate("SetVecData", err)
	}
	return nil
}

// SetMatData uploads a dense real matrix. The server stores it column-major.
func (c *Client) SetMatData(ctx context.Context, name string, vt mapdlpb.ValueType, m mat.Matrix) error {
	if err := c.RequireVersion(ctx, "dense matrix upload", version.V0_4_0); err != nil {
		return err
	}
	if vt.IsComplex() || vt == mapdlpb.ValueUnknown {
		return fmt.Errorf("%w: %s", ErrUnsupportedDataType, vt)
	}
	rows, cols := m.Dims()
	colMajor := make([]float64, 0, rows*cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			colMajor = append(colMajor, m.At(i, j))
		}
	}
	raw, err := mapdlpb.EncodeReal(vt, colMajor)
	if err != nil {
		return err
	}

	var stream mapdlpb.SetMatDataStream
	err = c.call("SetMatData", func() error {
		var err error
		stream, err = c.stub.SetMatData(ctx)
		return err
	})
	if err != nil {
		return err
	}
	for _, chunk := range uploadChunks(raw, mapdlpb.DefaultChunkSize) {
		req := &mapdlpb.SetMatDataRequest{
			Mname: name,
			Stype: vt,
			Nrow:  int64(rows),
			Ncol:  int64(cols),
			Chunk: &mapdlpb.Chunk{Payload: chunk, Size: int64(len(chunk))},
		}
		if err := stream.Send(req); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return c.translate("SetMatData", err)
		}
	}
	if _, err := stream.CloseAndRecv(); err != nil {
		return c.translate("SetMatData", err)
	}
	return nil
}

// uploadChunks always yields at least one chunk so the header fields reach
// the server for empty arrays.
func uploadChunks(raw []byte, size int) [][]byte {
	chunks := mapdlpb.SplitChunks(raw, size)
	if len(chunks) == 0 {
		return [][]byte{{}}
	}
	return chunks
}
