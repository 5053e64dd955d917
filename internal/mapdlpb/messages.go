package mapdlpb

import "google.golang.org/protobuf/encoding/protowire"

// CmdRequest carries one APDL command line.
type CmdRequest struct {
	Command   string
	Opt       string
	ChunkSize int32
}

func (m *CmdRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Command)
	b = appendString(b, 2, m.Opt)
	b = appendInt(b, 3, int64(m.ChunkSize))
	return b, nil
}

func (m *CmdRequest) Unmarshal(b []byte) error {
	*m = CmdRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(typ, b)
			m.Command = v
			return n, err
		case 2:
			v, n, err := consumeString(typ, b)
			m.Opt = v
			return n, err
		case 3:
			v, n, err := consumeInt(typ, b)
			m.ChunkSize = int32(v)
			return n, err
		}
		return 0, nil
	})
}

// CmdResponse is the solver text output for a command. Streaming RPCs
// split long output across CmdOut entries.
type CmdResponse struct {
	Response string
	CmdOut   []string
}

func (m *CmdResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Response)
	for _, line := range m.CmdOut {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, line)
	}
	return b, nil
}

func (m *CmdResponse) Unmarshal(b []byte) error {
	*m = CmdResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(typ, b)
			m.Response = v
			return n, err
		case 2:
			v, n, err := consumeString(typ, b)
			m.CmdOut = append(m.CmdOut, v)
			return n, err
		}
		return 0, nil
	})
}

type InputFileRequest struct {
	Filename string
	Opt      string
}

func (m *InputFileRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Filename)
	b = appendString(b, 2, m.Opt)
	return b, nil
}

func (m *InputFileRequest) Unmarshal(b []byte) error {
	*m = InputFileRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(typ, b)
			m.Filename = v
			return n, err
		case 2:
			v, n, err := consumeString(typ, b)
			m.Opt = v
			return n, err
		}
		return 0, nil
	})
}

// CtrlRequest issues a server control verb such as VERSION or EXIT.
type CtrlRequest struct {
	Ctrl string
	Opt1 string
	Opt2 string
}

func (m *CtrlRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Ctrl)
	b = appendString(b, 2, m.Opt1)
	b = appendString(b, 3, m.Opt2)
	return b, nil
}

func (m *CtrlRequest) Unmarshal(b []byte) error {
	*m = CtrlRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(typ, b)
			m.Ctrl = v
			return n, err
		case 2:
			v, n, err := consumeString(typ, b)
			m.Opt1 = v
			return n, err
		case 3:
			v, n, err := consumeString(typ, b)
			m.Opt2 = v
			return n, err
		}
		return 0, nil
	})
}

type CtrlResponse struct {
	Response string
}

func (m *CtrlResponse) Marshal() ([]byte, error) {
	return appendString(nil, 1, m.Response), nil
}

func (m *CtrlResponse) Unmarshal(b []byte) error {
	*m = CtrlResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeString(typ, b)
			m.Response = v
			return n, err
		}
		return 0, nil
	})
}

type EmptyResponse struct{}

func (m *EmptyResponse) Marshal() ([]byte, error) { return nil, nil }

func (m *EmptyResponse) Unmarshal(b []byte) error {
	return decodeFields(b, func(protowire.Number, protowire.Type, []byte) (int, error) { return 0, nil })
}

type ParameterRequest struct {
	Name  string
	Array bool
}

func (m *ParameterRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Name)
	b = appendBool(b, 2, m.Array)
	return b, nil
}

func (m *ParameterRequest) Unmarshal(b []byte) error {
	*m = ParameterRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(typ, b)
			m.Name = v
			return n, err
		case 2:
			v, n, err := consumeInt(typ, b)
			m.Array = v != 0
			return n, err
		}
		return 0, nil
	})
}

type ParameterResponse struct {
	Val []string
}

func (m *ParameterResponse) Marshal() ([]byte, error) {
	var b []byte
	for _, v := range m.Val {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b, nil
}

func (m *ParameterResponse) Unmarshal(b []byte) error {
	*m = ParameterResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeString(typ, b)
			m.Val = append(m.Val, v)
			return n, err
		}
		return 0, nil
	})
}

type VariableRequest struct {
	Inum int32
}

func (m *VariableRequest) Marshal() ([]byte, error) {
	return appendInt(nil, 1, int64(m.Inum)), nil
}

func (m *VariableRequest) Unmarshal(b []byte) error {
	*m = VariableRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeInt(typ, b)
			m.Inum = int32(v)
			return n, err
		}
		return 0, nil
	})
}

type GetRequest struct {
	Getcmd string
}

func (m *GetRequest) Marshal() ([]byte, error) {
	return appendString(nil, 1, m.Getcmd), nil
}

func (m *GetRequest) Unmarshal(b []byte) error {
	*m = GetRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeString(typ, b)
			m.Getcmd = v
			return n, err
		}
		return 0, nil
	})
}

// GetType tags which of the GetResponse value fields is populated.
type GetType int32

const (
	GetInvalid GetType = 0
	GetDouble  GetType = 1
	GetString  GetType = 2
)

type GetResponse struct {
	Type GetType
	Dval float64
	Sval string
}

func (m *GetResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt(b, 1, int64(m.Type))
	b = appendDouble(b, 2, m.Dval)
	b = appendString(b, 3, m.Sval)
	return b, nil
}

func (m *GetResponse) Unmarshal(b []byte) error {
	*m = GetResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeInt(typ, b)
			m.Type = GetType(v)
			return n, err
		case 2:
			v, n, err := consumeDouble(typ, b)
			m.Dval = v
			return n, err
		case 3:
			v, n, err := consumeString(typ, b)
			m.Sval = v
			return n, err
		}
		return 0, nil
	})
}

// DataInfoResponse describes an APDLMath object held by the server.
type DataInfoResponse struct {
	Objtype ObjType
	Stype   ValueType
	Size1   int64
	Size2   int64
	Nnz     int64
	Mattype int32
}

func (m *DataInfoResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendInt(b, 1, int64(m.Objtype))
	b = appendInt(b, 2, int64(m.Stype))
	b = appendInt(b, 3, m.Size1)
	b = appendInt(b, 4, m.Size2)
	b = appendInt(b, 5, m.Nnz)
	b = appendInt(b, 6, int64(m.Mattype))
	return b, nil
}

func (m *DataInfoResponse) Unmarshal(b []byte) error {
	*m = DataInfoResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num < 1 || num > 6 {
			return 0, nil
		}
		v, n, err := consumeInt(typ, b)
		switch num {
		case 1:
			m.Objtype = ObjType(v)
		case 2:
			m.Stype = ValueType(v)
		case 3:
			m.Size1 = v
		case 4:
			m.Size2 = v
		case 5:
			m.Nnz = v
		case 6:
			m.Mattype = int32(v)
		}
		return n, err
	})
}

// Chunk is one slice of a binary payload. ValueType is set on typed
// array streams and left unknown on file transfers.
type Chunk struct {
	Payload   []byte
	Size      int64
	ValueType ValueType
}

func (m *Chunk) Marshal() ([]byte, error) {
	var b []byte
	b = appendBytes(b, 1, m.Payload)
	b = appendInt(b, 2, m.Size)
	b = appendInt(b, 3, int64(m.ValueType))
	return b, nil
}

func (m *Chunk) Unmarshal(b []byte) error {
	*m = Chunk{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(typ, b)
			m.Payload = v
			return n, err
		case 2:
			v, n, err := consumeInt(typ, b)
			m.Size = v
			return n, err
		case 3:
			v, n, err := consumeInt(typ, b)
			m.ValueType = ValueType(v)
			return n, err
		}
		return 0, nil
	})
}

type UploadFileRequest struct {
	FileName string
	Chunk    *Chunk
}

func (m *UploadFileRequest) Marshal() ([]byte, error) {
	b := appendString(nil, 1, m.FileName)
	if m.Chunk != nil {
		return appendMessage(b, 2, m.Chunk)
	}
	return b, nil
}

func (m *UploadFileRequest) Unmarshal(b []byte) error {
	*m = UploadFileRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(typ, b)
			m.FileName = v
			return n, err
		case 2:
			m.Chunk = new(Chunk)
			return consumeMessage(typ, b, m.Chunk)
		}
		return 0, nil
	})
}

type UploadFileResponse struct {
	Length int64
}

func (m *UploadFileResponse) Marshal() ([]byte, error) {
	return appendInt(nil, 1, m.Length), nil
}

func (m *UploadFileResponse) Unmarshal(b []byte) error {
	*m = UploadFileResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeInt(typ, b)
			m.Length = v
			return n, err
		}
		return 0, nil
	})
}

type DownloadFileRequest struct {
	Name      string
	ChunkSize int64
}

func (m *DownloadFileRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Name)
	b = appendInt(b, 2, m.ChunkSize)
	return b, nil
}

func (m *DownloadFileRequest) Unmarshal(b []byte) error {
	*m = DownloadFileRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(typ, b)
			m.Name = v
			return n, err
		case 2:
			v, n, err := consumeInt(typ, b)
			m.ChunkSize = v
			return n, err
		}
		return 0, nil
	})
}

type DownloadFileResponse struct {
	Chunk *Chunk
}

func (m *DownloadFileResponse) Marshal() ([]byte, error) {
	if m.Chunk == nil {
		return nil, nil
	}
	return appendMessage(nil, 1, m.Chunk)
}

func (m *DownloadFileResponse) Unmarshal(b []byte) error {
	*m = DownloadFileResponse{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			m.Chunk = new(Chunk)
			return consumeMessage(typ, b, m.Chunk)
		}
		return 0, nil
	})
}

type SetVecDataRequest struct {
	Vname string
	Stype ValueType
	Size  int64
	Chunk *Chunk
}

func (m *SetVecDataRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Vname)
	b = appendInt(b, 2, int64(m.Stype))
	b = appendInt(b, 3, m.Size)
	if m.Chunk != nil {
		return appendMessage(b, 4, m.Chunk)
	}
	return b, nil
}

func (m *SetVecDataRequest) Unmarshal(b []byte) error {
	*m = SetVecDataRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(typ, b)
			m.Vname = v
			return n, err
		case 2:
			v, n, err := consumeInt(typ, b)
			m.Stype = ValueType(v)
			return n, err
		case 3:
			v, n, err := consumeInt(typ, b)
			m.Size = v
			return n, err
		case 4:
			m.Chunk = new(Chunk)
			return consumeMessage(typ, b, m.Chunk)
		}
		return 0, nil
	})
}

type SetMatDataRequest struct {
	Mname string
	Stype ValueType
	Nrow  int64
	Ncol  int64
	Chunk *Chunk
}

func (m *SetMatDataRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Mname)
	b = appendInt(b, 2, int64(m.Stype))
	b = appendInt(b, 3, m.Nrow)
	b = appendInt(b, 4, m.Ncol)
	if m.Chunk != nil {
		return appendMessage(b, 5, m.Chunk)
	}
	return b, nil
}

func (m *SetMatDataRequest) Unmarshal(b []byte) error {
	*m = SetMatDataRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(typ, b)
			m.Mname = v
			return n, err
		case 2:
			v, n, err := consumeInt(typ, b)
			m.Stype = ValueType(v)
			return n, err
		case 3:
			v, n, err := consumeInt(typ, b)
			m.Nrow = v
			return n, err
		case 4:
			v, n, err := consumeInt(typ, b)
			m.Ncol = v
			return n, err
		case 5:
			m.Chunk = new(Chunk)
			return consumeMessage(typ, b, m.Chunk)
		}
		return 0, nil
	})
}

type StreamRequest struct {
	ChunkSize int64
}

func (m *StreamRequest) Marshal() ([]byte, error) {
	return appendInt(nil, 1, m.ChunkSize), nil
}

func (m *StreamRequest) Unmarshal(b []byte) error {
	*m = StreamRequest{}
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeInt(typ, b)
			m.ChunkSize = v
			return n, err
		}
		return 0, nil
	})
}
