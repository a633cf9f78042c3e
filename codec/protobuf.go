package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtoList encodes a response sequence as a google.protobuf.ListValue whose
// elements are all string values. Useful when the bytes are consumed by
// non-Go tooling that already speaks protobuf well-known types.
type ProtoList struct{}

var _ Codec[[]string] = ProtoList{}

func (ProtoList) Encode(vs []string) ([]byte, error) {
	l := &structpb.ListValue{Values: make([]*structpb.Value, len(vs))}
	for i, v := range vs {
		l.Values[i] = structpb.NewStringValue(v)
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(l)
}

func (ProtoList) Decode(b []byte) ([]string, error) {
	var l structpb.ListValue
	if err := proto.Unmarshal(b, &l); err != nil {
		return nil, err
	}
	out := make([]string, len(l.Values))
	for i, v := range l.Values {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("codec: list element %d is not a string", i)
		}
		out[i] = s.StringValue
	}
	return out, nil
}
