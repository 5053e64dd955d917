package mapdlpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "ansys.api.mapdl.v0.MapdlService"

const (
	MethodSendCommand  = "/" + ServiceName + "/SendCommand"
	MethodSendCommandS = "/" + ServiceName + "/SendCommandS"
	MethodInputFileS   = "/" + ServiceName + "/InputFileS"
	MethodCtrl         = "/" + ServiceName + "/Ctrl"
	MethodGetParameter = "/" + ServiceName + "/GetParameter"
	MethodGetVariable  = "/" + ServiceName + "/GetVariable"
	MethodGet          = "/" + ServiceName + "/Get"
	MethodVGet2        = "/" + ServiceName + "/VGet2"
	MethodGetDataInfo  = "/" + ServiceName + "/GetDataInfo"
	MethodGetVecData   = "/" + ServiceName + "/GetVecData"
	MethodGetMatData   = "/" + ServiceName + "/GetMatData"
	MethodSetVecData   = "/" + ServiceName + "/SetVecData"
	MethodSetMatData   = "/" + ServiceName + "/SetMatData"
	MethodUploadFile   = "/" + ServiceName + "/UploadFile"
	MethodDownloadFile = "/" + ServiceName + "/DownloadFile"
	MethodNodes        = "/" + ServiceName + "/Nodes"
)

// MapdlServiceClient is the client API for the MAPDL gRPC service.
type MapdlServiceClient interface {
	SendCommand(ctx context.Context, in *CmdRequest, opts ...grpc.CallOption) (*CmdResponse, error)
	SendCommandS(ctx context.Context, in *CmdRequest, opts ...grpc.CallOption) (CmdResponseStream, error)
	InputFileS(ctx context.Context, in *InputFileRequest, opts ...grpc.CallOption) (CmdResponseStream, error)
	Ctrl(ctx context.Context, in *CtrlRequest, opts ...grpc.CallOption) (*CtrlResponse, error)
	GetParameter(ctx context.Context, in *ParameterRequest, opts ...grpc.CallOption) (*ParameterResponse, error)
	GetVariable(ctx context.Context, in *VariableRequest, opts ...grpc.CallOption) (*ParameterResponse, error)
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error)
	VGet2(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (ChunkStream, error)
	GetDataInfo(ctx context.Context, in *ParameterRequest, opts ...grpc.CallOption) (*DataInfoResponse, error)
	GetVecData(ctx context.Context, in *ParameterRequest, opts ...grpc.CallOption) (ChunkStream, error)
	GetMatData(ctx context.Context, in *ParameterRequest, opts ...grpc.CallOption) (ChunkStream, error)
	SetVecData(ctx context.Context, opts ...grpc.CallOption) (SetVecDataStream, error)
	SetMatData(ctx context.Context, opts ...grpc.CallOption) (SetMatDataStream, error)
	UploadFile(ctx context.Context, opts ...grpc.CallOption) (UploadFileStream, error)
	DownloadFile(ctx context.Context, in *DownloadFileRequest, opts ...grpc.CallOption) (DownloadFileStream, error)
	Nodes(ctx context.Context, in *StreamRequest, opts ...grpc.CallOption) (ChunkStream, error)
}

type CmdResponseStream interface {
	Recv() (*CmdResponse, error)
	grpc.ClientStream
}

type ChunkStream interface {
	Recv() (*Chunk, error)
	grpc.ClientStream
}

type DownloadFileStream interface {
	Recv() (*DownloadFileResponse, error)
	grpc.ClientStream
}

type SetVecDataStream interface {
	Send(*SetVecDataRequest) error
	CloseAndRecv() (*EmptyResponse, error)
	grpc.ClientStream
}

type SetMatDataStream interface {
	Send(*SetMatDataRequest) error
	CloseAndRecv() (*EmptyResponse, error)
	grpc.ClientStream
}

type UploadFileStream interface {
	Send(*UploadFileRequest) error
	CloseAndRecv() (*UploadFileResponse, error)
	grpc.ClientStream
}

var (
	serverStreamDesc = grpc.StreamDesc{ServerStreams: true}
	clientStreamDesc = grpc.StreamDesc{ClientStreams: true}
)

type mapdlServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMapdlServiceClient(cc grpc.ClientConnInterface) MapdlServiceClient {
	return &mapdlServiceClient{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
}

func (c *mapdlServiceClient) invoke(ctx context.Context, method string, in, out Message, opts []grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, in, out, callOptions(opts)...)
}

func (c *mapdlServiceClient) serverStream(ctx context.Context, method string, in Message, opts []grpc.CallOption) (grpc.ClientStream, error) {
	stream, err := c.cc.NewStream(ctx, &serverStreamDesc, method, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}

func (c *mapdlServiceClient) SendCommand(ctx context.Context, in *CmdRequest, opts ...grpc.CallOption) (*CmdResponse, error) {
	out := new(CmdResponse)
	if err := c.invoke(ctx, MethodSendCommand, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mapdlServiceClient) SendCommandS(ctx context.Context, in *CmdRequest, opts ...grpc.CallOption) (CmdResponseStream, error) {
	stream, err := c.serverStream(ctx, MethodSendCommandS, in, opts)
	if err != nil {
		return nil, err
	}
	return &cmdResponseStream{stream}, nil
}

func (c *mapdlServiceClient) InputFileS(ctx context.Context, in *InputFileRequest, opts ...grpc.CallOption) (CmdResponseStream, error) {
	stream, err := c.serverStream(ctx, MethodInputFileS, in, opts)
	if err != nil {
		return nil, err
	}
	return &cmdResponseStream{stream}, nil
}

func (c *mapdlServiceClient) Ctrl(ctx context.Context, in *CtrlRequest, opts ...grpc.CallOption) (*CtrlResponse, error) {
	out := new(CtrlResponse)
	if err := c.invoke(ctx, MethodCtrl, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mapdlServiceClient) GetParameter(ctx context.Context, in *ParameterRequest, opts ...grpc.CallOption) (*ParameterResponse, error) {
	out := new(ParameterResponse)
	if err := c.invoke(ctx, MethodGetParameter, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mapdlServiceClient) GetVariable(ctx context.Context, in *VariableRequest, opts ...grpc.CallOption) (*ParameterResponse, error) {
	out := new(ParameterResponse)
	if err := c.invoke(ctx, MethodGetVariable, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mapdlServiceClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error) {
	out := new(GetResponse)
	if err := c.invoke(ctx, MethodGet, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mapdlServiceClient) VGet2(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (ChunkStream, error) {
	stream, err := c.serverStream(ctx, MethodVGet2, in, opts)
	if err != nil {
		return nil, err
	}
	return &chunkStream{stream}, nil
}

func (c *mapdlServiceClient) GetDataInfo(ctx context.Context, in *ParameterRequest, opts ...grpc.CallOption) (*DataInfoResponse, error) {
	out := new(DataInfoResponse)
	if err := c.invoke(ctx, MethodGetDataInfo, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mapdlServiceClient) GetVecData(ctx context.Context, in *ParameterRequest, opts ...grpc.CallOption) (ChunkStream, error) {
	stream, err := c.serverStream(ctx, MethodGetVecData, in, opts)
	if err != nil {
		return nil, err
	}
	return &chunkStream{stream}, nil
}

func (c *mapdlServiceClient) GetMatData(ctx context.Context, in *ParameterRequest, opts ...grpc.CallOption) (ChunkStream, error) {
	stream, err := c.serverStream(ctx, MethodGetMatData, in, opts)
	if err != nil {
		return nil, err
	}
	return &chunkStream{stream}, nil
}

func (c *mapdlServiceClient) SetVecData(ctx context.Context, opts ...grpc.CallOption) (SetVecDataStream, error) {
	stream, err := c.cc.NewStream(ctx, &clientStreamDesc, MethodSetVecData, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &setVecDataStream{stream}, nil
}

func (c *mapdlServiceClient) SetMatData(ctx context.Context, opts ...grpc.CallOption) (SetMatDataStream, error) {
	stream, err := c.cc.NewStream(ctx, &clientStreamDesc, MethodSetMatData, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &setMatDataStream{stream}, nil
}

func (c *mapdlServiceClient) UploadFile(ctx context.Context, opts ...grpc.CallOption) (UploadFileStream, error) {
	stream, err := c.cc.NewStream(ctx, &clientStreamDesc, MethodUploadFile, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &uploadFileStream{stream}, nil
}

func (c *mapdlServiceClient) DownloadFile(ctx context.Context, in *DownloadFileRequest, opts ...grpc.CallOption) (DownloadFileStream, error) {
	stream, err := c.serverStream(ctx, MethodDownloadFile, in, opts)
	if err != nil {
		return nil, err
	}
	return &downloadFileStream{stream}, nil
}

func (c *mapdlServiceClient) Nodes(ctx context.Context, in *StreamRequest, opts ...grpc.CallOption) (ChunkStream, error) {
	stream, err := c.serverStream(ctx, MethodNodes, in, opts)
	if err != nil {
		return nil, err
	}
	return &chunkStream{stream}, nil
}

type cmdResponseStream struct{ grpc.ClientStream }

func (x *cmdResponseStream) Recv() (*CmdResponse, error) {
	m := new(CmdResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type chunkStream struct{ grpc.ClientStream }

func (x *chunkStream) Recv() (*Chunk, error) {
	m := new(Chunk)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type downloadFileStream struct{ grpc.ClientStream }

func (x *downloadFileStream) Recv() (*DownloadFileResponse, error) {
	m := new(DownloadFileResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type setVecDataStream struct{ grpc.ClientStream }

func (x *setVecDataStream) Send(m *SetVecDataRequest) error { return x.ClientStream.SendMsg(m) }

func (x *setVecDataStream) CloseAndRecv() (*EmptyResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(EmptyResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type setMatDataStream struct{ grpc.ClientStream }

func (x *setMatDataStream) Send(m *SetMatDataRequest) error { return x.ClientStream.SendMsg(m) }

func (x *setMatDataStream) CloseAndRecv() (*EmptyResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(EmptyResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type uploadFileStream struct{ grpc.ClientStream }

func (x *uploadFileStream) Send(m *UploadFileRequest) error { return x.ClientStream.SendMsg(m) }

func (x *uploadFileStream) CloseAndRecv() (*UploadFileResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(UploadFileResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// MapdlServiceServer is the server API. It exists so tests and local tools
// can stand up an in-process stand-in for a solver.
type MapdlServiceServer interface {
	SendCommand(context.Context, *CmdRequest) (*CmdResponse, error)
	SendCommandS(*CmdRequest, CmdResponseSender) error
	InputFileS(*InputFileRequest, CmdResponseSender) error
	Ctrl(context.Context, *CtrlRequest) (*CtrlResponse, error)
	GetParameter(context.Context, *ParameterRequest) (*ParameterResponse, error)
	GetVariable(context.Context, *VariableRequest) (*ParameterResponse, error)
	Get(context.Context, *GetRequest) (*GetResponse, error)
	VGet2(*GetRequest, ChunkSender) error
	GetDataInfo(context.Context, *ParameterRequest) (*DataInfoResponse, error)
	GetVecData(*ParameterRequest, ChunkSender) error
	GetMatData(*ParameterRequest, ChunkSender) error
	SetVecData(SetVecDataReceiver) error
	SetMatData(SetMatDataReceiver) error
	UploadFile(UploadFileReceiver) error
	DownloadFile(*DownloadFileRequest, DownloadFileSender) error
	Nodes(*StreamRequest, ChunkSender) error
}

type CmdResponseSender interface {
	Send(*CmdResponse) error
	grpc.ServerStream
}

type ChunkSender interface {
	Send(*Chunk) error
	grpc.ServerStream
}

type DownloadFileSender interface {
	Send(*DownloadFileResponse) error
	grpc.ServerStream
}

type SetVecDataReceiver interface {
	Recv() (*SetVecDataRequest, error)
	SendAndClose(*EmptyResponse) error
	grpc.ServerStream
}

type SetMatDataReceiver interface {
	Recv() (*SetMatDataRequest, error)
	SendAndClose(*EmptyResponse) error
	grpc.ServerStream
}

type UploadFileReceiver interface {
	Recv() (*UploadFileRequest, error)
	SendAndClose(*UploadFileResponse) error
	grpc.ServerStream
}

// UnimplementedMapdlServiceServer can be embedded to satisfy the interface
// with methods that return codes.Unimplemented.
type UnimplementedMapdlServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedMapdlServiceServer) SendCommand(context.Context, *CmdRequest) (*CmdResponse, error) {
	return nil, unimplemented("SendCommand")
}
func (UnimplementedMapdlServiceServer) SendCommandS(*CmdRequest, CmdResponseSender) error {
	return unimplemented("SendCommandS")
}
func (UnimplementedMapdlServiceServer) InputFileS(*InputFileRequest, CmdResponseSender) error {
	return unimplemented("InputFileS")
}
func (UnimplementedMapdlServiceServer) Ctrl(context.Context, *CtrlRequest) (*CtrlResponse, error) {
	return nil, unimplemented("Ctrl")
}
func (UnimplementedMapdlServiceServer) GetParameter(context.Context, *ParameterRequest) (*ParameterResponse, error) {
	return nil, unimplemented("GetParameter")
}
func (UnimplementedMapdlServiceServer) GetVariable(context.Context, *VariableRequest) (*ParameterResponse, error) {
	return nil, unimplemented("GetVariable")
}
func (UnimplementedMapdlServiceServer) Get(context.Context, *GetRequest) (*GetResponse, error) {
	return nil, unimplemented("Get")
}
func (UnimplementedMapdlServiceServer) VGet2(*GetRequest, ChunkSender) error {
	return unimplemented("VGet2")
}
func (UnimplementedMapdlServiceServer) GetDataInfo(context.Context, *ParameterRequest) (*DataInfoResponse, error) {
	return nil, unimplemented("GetDataInfo")
}
func (UnimplementedMapdlServiceServer) GetVecData(*ParameterRequest, ChunkSender) error {
	return unimplemented("GetVecData")
}
func (UnimplementedMapdlServiceServer) GetMatData(*ParameterRequest, ChunkSender) error {
	return unimplemented("GetMatData")
}
func (UnimplementedMapdlServiceServer) SetVecData(SetVecDataReceiver) error {
	return unimplemented("SetVecData")
}
func (UnimplementedMapdlServiceServer) SetMatData(SetMatDataReceiver) error {
	return unimplemented("SetMatData")
}
func (UnimplementedMapdlServiceServer) UploadFile(UploadFileReceiver) error {
	return unimplemented("UploadFile")
}
func (UnimplementedMapdlServiceServer) DownloadFile(*DownloadFileRequest, DownloadFileSender) error {
	return unimplemented("DownloadFile")
}
func (UnimplementedMapdlServiceServer) Nodes(*StreamRequest, ChunkSender) error {
	return unimplemented("Nodes")
}

// RegisterMapdlServiceServer attaches srv to s. The server must be built
// with grpc.ForceServerCodec(Codec{}).
func RegisterMapdlServiceServer(s grpc.ServiceRegistrar, srv MapdlServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unary[T any, P interface{ *T }](method string, call func(MapdlServiceServer, context.Context, P) (any, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := P(new(T))
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(MapdlServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(P))
		})
	}
}

func serverStream[T any, P interface{ *T }](call func(MapdlServiceServer, P, grpc.ServerStream) error) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		in := P(new(T))
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return call(srv.(MapdlServiceServer), in, stream)
	}
}

type cmdResponseSender struct{ grpc.ServerStream }

func (x *cmdResponseSender) Send(m *CmdResponse) error { return x.ServerStream.SendMsg(m) }

type chunkSender struct{ grpc.ServerStream }

func (x *chunkSender) Send(m *Chunk) error { return x.ServerStream.SendMsg(m) }

type downloadFileSender struct{ grpc.ServerStream }

func (x *downloadFileSender) Send(m *DownloadFileResponse) error { return x.ServerStream.SendMsg(m) }

type setVecDataReceiver struct{ grpc.ServerStream }

func (x *setVecDataReceiver) Recv() (*SetVecDataRequest, error) {
	m := new(SetVecDataRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (x *setVecDataReceiver) SendAndClose(m *EmptyResponse) error { return x.ServerStream.SendMsg(m) }

type setMatDataReceiver struct{ grpc.ServerStream }

func (x *setMatDataReceiver) Recv() (*SetMatDataRequest, error) {
	m := new(SetMatDataRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (x *setMatDataReceiver) SendAndClose(m *EmptyResponse) error { return x.ServerStream.SendMsg(m) }

type uploadFileReceiver struct{ grpc.ServerStream }

func (x *uploadFileReceiver) Recv() (*UploadFileRequest, error) {
	m := new(UploadFileRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (x *uploadFileReceiver) SendAndClose(m *UploadFileResponse) error {
	return x.ServerStream.SendMsg(m)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MapdlServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendCommand", Handler: unary[CmdRequest](MethodSendCommand,
			func(s MapdlServiceServer, ctx context.Context, in *CmdRequest) (any, error) { return s.SendCommand(ctx, in) })},
		{MethodName: "Ctrl", Handler: unary[CtrlRequest](MethodCtrl,
			func(s MapdlServiceServer, ctx context.Context, in *CtrlRequest) (any, error) { return s.Ctrl(ctx, in) })},
		{MethodName: "GetParameter", Handler: unary[ParameterRequest](MethodGetParameter,
			func(s MapdlServiceServer, ctx context.Context, in *ParameterRequest) (any, error) {
				return s.GetParameter(ctx, in)
			})},
		{MethodName: "GetVariable", Handler: unary[VariableRequest](MethodGetVariable,
			func(s MapdlServiceServer, ctx context.Context, in *VariableRequest) (any, error) {
				return s.GetVariable(ctx, in)
			})},
		{MethodName: "Get", Handler: unary[GetRequest](MethodGet,
			func(s MapdlServiceServer, ctx context.Context, in *GetRequest) (any, error) { return s.Get(ctx, in) })},
		{MethodName: "GetDataInfo", Handler: unary[ParameterRequest](MethodGetDataInfo,
			func(s MapdlServiceServer, ctx context.Context, in *ParameterRequest) (any, error) {
				return s.GetDataInfo(ctx, in)
			})},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "SendCommandS", ServerStreams: true, Handler: serverStream[CmdRequest](
			func(s MapdlServiceServer, in *CmdRequest, stream grpc.ServerStream) error {
				return s.SendCommandS(in, &cmdResponseSender{stream})
			})},
		{StreamName: "InputFileS", ServerStreams: true, Handler: serverStream[InputFileRequest](
			func(s MapdlServiceServer, in *InputFileRequest, stream grpc.ServerStream) error {
				return s.InputFileS(in, &cmdResponseSender{stream})
			})},
		{StreamName: "VGet2", ServerStreams: true, Handler: serverStream[GetRequest](
			func(s MapdlServiceServer, in *GetRequest, stream grpc.ServerStream) error {
				return s.VGet2(in, &chunkSender{stream})
			})},
		{StreamName: "GetVecData", ServerStreams: true, Handler: serverStream[ParameterRequest](
			func(s MapdlServiceServer, in *ParameterRequest, stream grpc.ServerStream) error {
				return s.GetVecData(in, &chunkSender{stream})
			})},
		{StreamName: "GetMatData", ServerStreams: true, Handler: serverStream[ParameterRequest](
			func(s MapdlServiceServer, in *ParameterRequest, stream grpc.ServerStream) error {
				return s.GetMatData(in, &chunkSender{stream})
			})},
		{StreamName: "DownloadFile", ServerStreams: true, Handler: serverStream[DownloadFileRequest](
			func(s MapdlServiceServer, in *DownloadFileRequest, stream grpc.ServerStream) error {
				return s.DownloadFile(in, &downloadFileSender{stream})
			})},
		{StreamName: "Nodes", ServerStreams: true, Handler: serverStream[StreamRequest](
			func(s MapdlServiceServer, in *StreamRequest, stream grpc.ServerStream) error {
				return s.Nodes(in, &chunkSender{stream})
			})},
		{StreamName: "SetVecData", ClientStreams: true, Handler: func(srv any, stream grpc.ServerStream) error {
			return srv.(MapdlServiceServer).SetVecData(&setVecDataReceiver{stream})
		}},
		{StreamName: "SetMatData", ClientStreams: true, Handler: func(srv any, stream grpc.ServerStream) error {
			return srv.(MapdlServiceServer).SetMatData(&setMatDataReceiver{stream})
		}},
		{StreamName: "UploadFile", ClientStreams: true, Handler: func(srv any, stream grpc.ServerStream) error {
			return srv.(MapdlServiceServer).UploadFile(&uploadFileReceiver{stream})
		}},
	},
	Metadata: "ansys/api/mapdl/v0/mapdl.proto",
}
