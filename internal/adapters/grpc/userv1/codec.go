package userv1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName は UserService のメッセージを運ぶ gRPC コーデック名です。
// content-type は application/grpc+json になります。
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
