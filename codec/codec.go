package codec

import "fmt"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Sequence returns the named codec for response sequences.
// Known names: "json", "cbor", "msgpack", "protobuf". "" selects cbor.
func Sequence(name string) (Codec[[]string], error) {
	switch name {
	case "", "cbor":
		return NewCBOR[[]string](false)
	case "json":
		return JSON[[]string]{}, nil
	case "msgpack":
		return Msgpack[[]string]{}, nil
	case "protobuf", "proto":
		return ProtoList{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
