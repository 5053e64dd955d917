// Package fakemapdl is an in-process stand-in for a solver's gRPC service.
// Command output is scripted per test through Handler.
package fakemapdl

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 4 << 20

// Object is an APDLMath object held by the fake server.
type Object struct {
	Info    mapdlpb.DataInfoResponse
	Payload []byte
}

type Server struct {
	mapdlpb.UnimplementedMapdlServiceServer

	// Handler produces the response for one command. Nil answers "".
	Handler func(cmd string) string
	Version string

	mu        sync.Mutex
	commands  []string
	inputs    []string
	ctrls     []string
	params    map[string][]string
	variables map[int32][]string
	gets      map[string]*mapdlpb.GetResponse
	vgets     map[string][]float64
	objects   map[string]*Object
	files     map[string][]byte
	nodes     []float64
	exited    bool

	lis    *bufconn.Listener
	grpc   *grpc.Server
	health *health.Server
}

func New() *Server {
	return &Server{
		Version:   "0.5.1",
		params:    map[string][]string{},
		variables: map[int32][]string{},
		gets:      map[string]*mapdlpb.GetResponse{},
		vgets:     map[string][]float64{},
		objects:   map[string]*Object{},
		files:     map[string][]byte{},
	}
}

// Start serves s over an in-memory listener until the test ends.
func Start(t testing.TB, s *Server) *Server {
	t.Helper()
	s.lis = bufconn.Listen(bufSize)
	s.grpc = grpc.NewServer(grpc.ForceServerCodec(mapdlpb.Codec{}))
	s.health = health.NewServer()
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	mapdlpb.RegisterMapdlServiceServer(s.grpc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	go func() {
		_ = s.grpc.Serve(s.lis)
	}()
	t.Cleanup(s.Stop)
	return s
}

// Dialer connects to the in-memory listener regardless of address.
func (s *Server) Dialer() func(context.Context, string) (net.Conn, error) {
	return func(ctx context.Context, _ string) (net.Conn, error) {
		return s.lis.DialContext(ctx)
	}
}

// Stop tears the server down, which clients observe as Unavailable.
func (s *Server) Stop() {
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpc != nil {
		s.grpc.Stop()
	}
}

func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Inputs are the contents of every input file the server ran, in order.
func (s *Server) Inputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.inputs...)
}

func (s *Server) Ctrls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ctrls...)
}

func (s *Server) Exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

func (s *Server) SetParameter(name string, vals ...string) {
	s.mu.Lock()
	s.params[strings.ToUpper(name)] = vals
	s.mu.Unlock()
}

func (s *Server) SetVariable(inum int32, vals ...string) {
	s.mu.Lock()
	s.variables[inum] = vals
	s.mu.Unlock()
}

func (s *Server) SetGet(getcmd string, resp *mapdlpb.GetResponse) {
	s.mu.Lock()
	s.gets[getcmd] = resp
	s.mu.Unlock()
}

func (s *Server) SetVGet(getcmd string, vals []float64) {
	s.mu.Lock()
	s.vgets[getcmd] = vals
	s.mu.Unlock()
}

func (s *Server) SetNodes(coords []float64) {
	s.mu.Lock()
	s.nodes = coords
	s.mu.Unlock()
}

func (s *Server) SetFile(name string, raw []byte) {
	s.mu.Lock()
	s.files[name] = raw
	s.mu.Unlock()
}

func (s *Server) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.files[name]
	return raw, ok
}

func (s *Server) Object(name string) (*Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[strings.ToUpper(name)]
	return o, ok
}

func (s *Server) PutObject(name string, o *Object) {
	s.mu.Lock()
	s.objects[strings.ToUpper(name)] = o
	s.mu.Unlock()
}

func (s *Server) DeleteObject(name string) {
	s.mu.Lock()
	delete(s.objects, strings.ToUpper(name))
	s.mu.Unlock()
}

// SetVector stores a float64 vector.
func (s *Server) SetVector(name string, vals []float64) {
	raw, _ := mapdlpb.EncodeReal(mapdlpb.ValueFloat64, vals)
	s.PutObject(name, &Object{
		Info:    mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjVec, Stype: mapdlpb.ValueFloat64, Size1: int64(len(vals)), Size2: 1},
		Payload: raw,
	})
}

// SetDense stores a float64 matrix given in row-major order. The payload is
// kept column-major like the solver does.
func (s *Server) SetDense(name string, rows, cols int, rowMajor []float64) {
	colMajor := make([]float64, 0, rows*cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			colMajor = append(colMajor, rowMajor[i*cols+j])
		}
	}
	raw, _ := mapdlpb.EncodeReal(mapdlpb.ValueFloat64, colMajor)
	s.PutObject(name, &Object{
		Info:    mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjDMat, Stype: mapdlpb.ValueFloat64, Size1: int64(rows), Size2: int64(cols)},
		Payload: raw,
	})
}

// SetSparse stores a CSR matrix and its ::ROWS, ::COLS and ::VALS vectors.
func (s *Server) SetSparse(name string, rows, cols int, indptr, indices []int, vals []float64, mattype int32) {
	s.PutObject(name, &Object{Info: mapdlpb.DataInfoResponse{
		Objtype: mapdlpb.ObjSMat,
		Stype:   mapdlpb.ValueFloat64,
		Size1:   int64(rows),
		Size2:   int64(cols),
		Nnz:     int64(len(vals)),
		Mattype: mattype,
	}})
	s.putIntVector(name+"::ROWS", indptr)
	s.putIntVector(name+"::COLS", indices)
	s.SetVector(name+"::VALS", vals)
}

func (s *Server) putIntVector(name string, vals []int) {
	f := make([]float64, len(vals))
	for i, v := range vals {
		f[i] = float64(v)
	}
	raw, _ := mapdlpb.EncodeReal(mapdlpb.ValueInt32, f)
	s.PutObject(name, &Object{
		Info:    mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjVec, Stype: mapdlpb.ValueInt32, Size1: int64(len(vals)), Size2: 1},
		Payload: raw,
	})
}

func (s *Server) run(cmd string) string {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	h := s.Handler
	s.mu.Unlock()
	if h == nil {
		return ""
	}
	return h(cmd)
}

func (s *Server) SendCommand(_ context.Context, req *mapdlpb.CmdRequest) (*mapdlpb.CmdResponse, error) {
	out := s.run(req.Command)
	if req.Opt == "MUTE" {
		out = ""
	}
	return &mapdlpb.CmdResponse{Response: out}, nil
}

func (s *Server) SendCommandS(req *mapdlpb.CmdRequest, stream mapdlpb.CmdResponseSender) error {
	out := s.run(req.Command)
	for _, line := range strings.SplitAfter(out, "\n") {
		if line == "" {
			continue
		}
		if err := stream.Send(&mapdlpb.CmdResponse{CmdOut: []string{line}}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) InputFileS(req *mapdlpb.InputFileRequest, stream mapdlpb.CmdResponseSender) error {
	raw, ok := s.File(req.Filename)
	if !ok {
		return stream.Send(&mapdlpb.CmdResponse{CmdOut: []string{
			" *** ERROR ***\n Unable to open file " + req.Filename + "\n",
		}})
	}
	s.mu.Lock()
	s.inputs = append(s.inputs, string(raw))
	s.mu.Unlock()
	out := []string{" /INPUT FILE= " + req.Filename + "  LINE=       0\n"}
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if resp := s.run(strings.TrimSpace(line)); resp != "" {
			out = append(out, resp+"\n")
		}
	}
	return stream.Send(&mapdlpb.CmdResponse{CmdOut: out})
}

func (s *Server) Ctrl(_ context.Context, req *mapdlpb.CtrlRequest) (*mapdlpb.CtrlResponse, error) {
	s.mu.Lock()
	s.ctrls = append(s.ctrls, req.Ctrl)
	s.mu.Unlock()
	switch strings.ToUpper(req.Ctrl) {
	case "VERSION":
		return &mapdlpb.CtrlResponse{Response: s.Version}, nil
	case "EXIT":
		s.mu.Lock()
		s.exited = true
		s.mu.Unlock()
		return nil, status.Error(codes.Unavailable, "solver exiting")
	}
	return &mapdlpb.CtrlResponse{}, nil
}

func (s *Server) GetParameter(_ context.Context, req *mapdlpb.ParameterRequest) (*mapdlpb.ParameterResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &mapdlpb.ParameterResponse{Val: s.params[strings.ToUpper(req.Name)]}, nil
}

func (s *Server) GetVariable(_ context.Context, req *mapdlpb.VariableRequest) (*mapdlpb.ParameterResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &mapdlpb.ParameterResponse{Val: s.variables[req.Inum]}, nil
}

func (s *Server) Get(_ context.Context, req *mapdlpb.GetRequest) (*mapdlpb.GetResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp, ok := s.gets[req.Getcmd]; ok {
		return resp, nil
	}
	return &mapdlpb.GetResponse{Type: mapdlpb.GetInvalid}, nil
}

func (s *Server) VGet2(req *mapdlpb.GetRequest, stream mapdlpb.ChunkSender) error {
	s.mu.Lock()
	vals := s.vgets[req.Getcmd]
	s.mu.Unlock()
	raw, err := mapdlpb.EncodeReal(mapdlpb.ValueFloat64, vals)
	if err != nil {
		return err
	}
	return sendChunks(stream, raw, mapdlpb.ValueFloat64, mapdlpb.DefaultChunkSize)
}

func (s *Server) Nodes(req *mapdlpb.StreamRequest, stream mapdlpb.ChunkSender) error {
	s.mu.Lock()
	vals := s.nodes
	s.mu.Unlock()
	raw, err := mapdlpb.EncodeReal(mapdlpb.ValueFloat64, vals)
	if err != nil {
		return err
	}
	return sendChunks(stream, raw, mapdlpb.ValueFloat64, int(req.ChunkSize))
}

func (s *Server) GetDataInfo(_ context.Context, req *mapdlpb.ParameterRequest) (*mapdlpb.DataInfoResponse, error) {
	o, ok := s.Object(req.Name)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "object %s not found", req.Name)
	}
	info := o.Info
	return &info, nil
}

func (s *Server) GetVecData(req *mapdlpb.ParameterRequest, stream mapdlpb.ChunkSender) error {
	return s.streamObject(req.Name, stream)
}

func (s *Server) GetMatData(req *mapdlpb.ParameterRequest, stream mapdlpb.ChunkSender) error {
	return s.streamObject(req.Name, stream)
}

func (s *Server) streamObject(name string, stream mapdlpb.ChunkSender) error {
	o, ok := s.Object(name)
	if !ok {
		return status.Errorf(codes.NotFound, "object %s not found", name)
	}
	return sendChunks(stream, o.Payload, o.Info.Stype, mapdlpb.DefaultChunkSize)
}

func sendChunks(stream mapdlpb.ChunkSender, raw []byte, vt mapdlpb.ValueType, size int) error {
	for _, part := range mapdlpb.SplitChunks(raw, size) {
		if err := stream.Send(&mapdlpb.Chunk{Payload: part, Size: int64(len(part)), ValueType: vt}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) SetVecData(stream mapdlpb.SetVecDataReceiver) error {
	var (
		name string
		info mapdlpb.DataInfoResponse
		raw  []byte
	)
	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		name = req.Vname
		info = mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjVec, Stype: req.Stype, Size1: req.Size, Size2: 1}
		if req.Chunk != nil {
			raw = append(raw, req.Chunk.Payload...)
		}
	}
	s.PutObject(name, &Object{Info: info, Payload: raw})
	return stream.SendAndClose(&mapdlpb.EmptyResponse{})
}

func (s *Server) SetMatData(stream mapdlpb.SetMatDataReceiver) error {
	var (
		name string
		info mapdlpb.DataInfoResponse
		raw  []byte
	)
	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		name = req.Mname
		info = mapdlpb.DataInfoResponse{Objtype: mapdlpb.ObjDMat, Stype: req.Stype, Size1: req.Nrow, Size2: req.Ncol}
		if req.Chunk != nil {
			raw = append(raw, req.Chunk.Payload...)
		}
	}
	s.PutObject(name, &Object{Info: info, Payload: raw})
	return stream.SendAndClose(&mapdlpb.EmptyResponse{})
}

func (s *Server) UploadFile(stream mapdlpb.UploadFileReceiver) error {
	var (
		name string
		raw  []byte
	)
	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		name = req.FileName
		if req.Chunk != nil {
			raw = append(raw, req.Chunk.Payload...)
		}
	}
	s.SetFile(name, raw)
	return stream.SendAndClose(&mapdlpb.UploadFileResponse{Length: int64(len(raw))})
}

func (s *Server) DownloadFile(req *mapdlpb.DownloadFileRequest, stream mapdlpb.DownloadFileSender) error {
	raw, ok := s.File(req.Name)
	if !ok {
		return nil
	}
	for _, part := range mapdlpb.SplitChunks(raw, int(req.ChunkSize)) {
		if err := stream.Send(&mapdlpb.DownloadFileResponse{Chunk: &mapdlpb.Chunk{Payload: part, Size: int64(len(part))}}); err != nil {
			return err
		}
	}
	return nil
}
