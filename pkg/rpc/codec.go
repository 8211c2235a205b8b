package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype under which the JSON codec is
// registered. Clients opt in per call with grpc.CallContentSubtype(CodecName).
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals plain Go structs as JSON. Protobuf messages still go
// through the protobuf wire format: the standard gRPC health service shares
// our servers and its payloads are proto messages.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	if v == nil {
		return fmt.Errorf("rpc: cannot unmarshal into nil value")
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return CodecName }
