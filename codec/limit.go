package codec

import "fmt"

// LimitCodec wraps another codec and refuses payloads larger than MaxBytes
// in both directions. A prefix memo shares memory with the rest of the
// process, so one enormous record should not be able to evict everything.
// MaxBytes <= 0 disables the limit.
type LimitCodec[V any] struct {
	Inner    Codec[V]
	MaxBytes int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxBytes > 0 && len(b) > c.MaxBytes {
		return nil, fmt.Errorf("codec: payload too large: %d > %d", len(b), c.MaxBytes)
	}
	return b, nil
}

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxBytes > 0 && len(b) > c.MaxBytes {
		var zero V
		return zero, fmt.Errorf("codec: payload too large: %d > %d", len(b), c.MaxBytes)
	}
	return c.Inner.Decode(b)
}
