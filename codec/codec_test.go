package codec

import (
	"strings"
	"testing"
)

func TestSequenceCodecsPreserveOrder(t *testing.T) {
	in := []string{"first", "", "line\nbreak", "ünïcode", "last"}
	for _, name := range []string{"json", "cbor", "msgpack", "protobuf"} {
		t.Run(name, func(t *testing.T) {
			c, err := Sequence(name)
			if err != nil {
				t.Fatalf("Sequence(%q): %v", name, err)
			}
			b, err := c.Encode(in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			out, err := c.Decode(b)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(out) != len(in) {
				t.Fatalf("len %d want %d", len(out), len(in))
			}
			for i := range in {
				if out[i] != in[i] {
					t.Fatalf("[%d] = %q want %q", i, out[i], in[i])
				}
			}
		})
	}
}

func TestSequenceUnknown(t *testing.T) {
	if _, err := Sequence("yaml"); err == nil {
		t.Fatal("expected error for unknown codec")
	}
}

func TestDeterministicCBORIsStable(t *testing.T) {
	c := MustCBOR[map[string]float64](true)
	m := map[string]float64{"temperature": 0.7, "top_p": 0.9, "a": 1}
	first, err := c.Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, _ := c.Encode(m)
		if string(again) != string(first) {
			t.Fatalf("deterministic encoding changed between calls")
		}
	}
}

func TestLimitCodecRejectsOversized(t *testing.T) {
	lc := LimitCodec[[]string]{Inner: JSON[[]string]{}, MaxBytes: 16}
	b, _ := JSON[[]string]{}.Encode([]string{strings.Repeat("x", 64)})
	if _, err := lc.Decode(b); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := lc.Encode([]string{strings.Repeat("x", 64)}); err == nil {
		t.Fatal("expected size error on encode")
	}
	small, _ := lc.Encode([]string{"ok"})
	if _, err := lc.Decode(small); err != nil {
		t.Fatalf("small payload should decode: %v", err)
	}
}

func TestProtoListRejectsNonString(t *testing.T) {
	// ListValue{values: [Value{number_value: 1.0}]}
	bad := []byte{0x0a, 0x09, 0x11, 0, 0, 0, 0, 0, 0, 0xf0, 0x3f}
	if _, err := (ProtoList{}).Decode(bad); err == nil {
		t.Fatal("expected error for non-string element")
	}
}
