package mapdlpb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Codec marshals the hand-encoded messages of this package and falls back
// to generated protobuf messages (health checks share the connection).
type Codec struct{}

func (Codec) Name() string { return "proto" }

func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Message:
		return m.Marshal()
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("mapdlpb: cannot marshal %T", v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Message:
		return m.Unmarshal(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("mapdlpb: cannot unmarshal into %T", v)
}
