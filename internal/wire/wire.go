package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version    byte = 1
	kindRecord byte = 1
	headerLen       = 4 + 1 + 1 + 4
)

var (
	ErrCorrupt = errors.New("samplecache: corrupt record")
	magic4     = [...]byte{'S', 'M', 'P', 'L'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record:
//
//	magic(4) | ver(1) | kind(1=record) | n(u32 be)
//	vlen(u32 be) | value(vlen) * n
//
// Values are kept in index order. A record is always rewritten whole
// (temp file + rename), so decoding is strict: truncation or trailing
// bytes mean the file was not produced by EncodeRecord.
func EncodeRecord(values []string) []byte {
	total := headerLen
	for _, v := range values {
		total += 4 + len(v)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(values)))
	buf.Write(u4[:])

	for _, v := range values {
		binary.BigEndian.PutUint32(u4[:], uint32(len(v)))
		buf.Write(u4[:])
		buf.WriteString(v)
	}
	return buf.Bytes()
}

// RecordLen reads only the header and returns the number of values.
func RecordLen(b []byte) (int, error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return 0, ErrCorrupt
	}
	return int(binary.BigEndian.Uint32(b[6:10])), nil
}

func DecodeRecord(b []byte) ([]string, error) {
	n, err := RecordLen(b)
	if err != nil {
		return nil, err
	}
	off := headerLen

	// every value needs at least its 4 byte length prefix
	if n > (len(b)-off)/4 {
		return nil, ErrCorrupt
	}
	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen < 0 || vlen > len(b)-off { // overflow-safe bound check
			return nil, ErrCorrupt
		}
		values = append(values, string(b[off:off+vlen]))
		off += vlen
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}
	return values, nil
}
