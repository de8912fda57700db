package lobbypb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype for the JSON codec. Clients must dial
// with grpc.CallContentSubtype(CodecName); the server forces it via
// grpc.ForceServerCodec(Codec{}).
const CodecName = "json"

// Codec serializes messages as JSON. The Lobby service predates any proto
// toolchain in this repo, so the wire format is plain JSON over gRPC framing.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(Codec{})
}
