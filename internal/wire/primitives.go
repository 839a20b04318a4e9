// Package wire implements OrientDB's fixed-width binary primitives: the
// big-endian short/int/long used for session ids, opcodes and protocol
// framing, and the length-prefixed string/bytes shared by the handshake and
// the operation catalog. These are distinct from the varint+zigzag encoding
// used inside serialized records (see package record).
package wire

import (
	"encoding/binary"

	"github.com/MyMedsAndMe/orientwire/record"
)

// ErrIncomplete is record.ErrIncomplete, re-exported so callers that only
// touch the wire package don't need to import record as well.
var ErrIncomplete = record.ErrIncomplete

// PutShort appends a big-endian 2-byte signed integer.
func PutShort(buf []byte, v int16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	return append(buf, b[:]...)
}

// PutInt appends a big-endian 4-byte signed integer.
func PutInt(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

// PutLong appends a big-endian 8-byte signed integer.
func PutLong(buf []byte, v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

// PutByte appends a single byte.
func PutByte(buf []byte, v byte) []byte {
	return append(buf, v)
}

// PutBool appends a single 0/1 byte.
func PutBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

// PutString appends a 4-byte signed length followed by the UTF-8 bytes of s.
func PutString(buf []byte, s string) []byte {
	buf = PutInt(buf, int32(len(s)))
	return append(buf, s...)
}

// PutNullString appends the -1 length sentinel that denotes a null string.
func PutNullString(buf []byte) []byte {
	return PutInt(buf, -1)
}

// PutBytes appends a 4-byte signed length followed by raw bytes.
func PutBytes(buf []byte, b []byte) []byte {
	buf = PutInt(buf, int32(len(b)))
	return append(buf, b...)
}

// Raw appends payload verbatim, with no length prefix. Used to splice an
// already-framed command payload into a request.
func Raw(buf []byte, payload []byte) []byte {
	return append(buf, payload...)
}

// ReadByte reads a single byte.
func ReadByte(b []byte) (byte, []byte, error) {
	if len(b) < 1 {
		return 0, b, ErrIncomplete
	}
	return b[0], b[1:], nil
}

// ReadBool reads a single 0/1 byte.
func ReadBool(b []byte) (bool, []byte, error) {
	v, rest, err := ReadByte(b)
	if err != nil {
		return false, b, err
	}
	return v != 0, rest, nil
}

// ReadShort reads a big-endian 2-byte signed integer.
func ReadShort(b []byte) (int16, []byte, error) {
	if len(b) < 2 {
		return 0, b, ErrIncomplete
	}
	return int16(binary.BigEndian.Uint16(b)), b[2:], nil
}

// ReadInt reads a big-endian 4-byte signed integer.
func ReadInt(b []byte) (int32, []byte, error) {
	if len(b) < 4 {
		return 0, b, ErrIncomplete
	}
	return int32(binary.BigEndian.Uint32(b)), b[4:], nil
}

// ReadLong reads a big-endian 8-byte signed integer.
func ReadLong(b []byte) (int64, []byte, error) {
	if len(b) < 8 {
		return 0, b, ErrIncomplete
	}
	return int64(binary.BigEndian.Uint64(b)), b[8:], nil
}

// ReadString reads a 4-byte length prefix followed by that many bytes.
// A negative length (-1) yields "" and the bytes after the prefix, with
// ok=false to signal a null string.
func ReadString(b []byte) (s string, rest []byte, ok bool, err error) {
	n, rest, err := ReadInt(b)
	if err != nil {
		return "", b, false, err
	}
	if n < 0 {
		return "", rest, false, nil
	}
	if len(rest) < int(n) {
		return "", b, false, ErrIncomplete
	}
	return string(rest[:n]), rest[n:], true, nil
}

// ReadBytes reads a 4-byte length prefix followed by that many raw bytes.
// A length of -1 yields (nil, rest, false, nil).
func ReadBytes(b []byte) (data []byte, rest []byte, ok bool, err error) {
	n, rest, err := ReadInt(b)
	if err != nil {
		return nil, b, false, err
	}
	if n < 0 {
		return nil, rest, false, nil
	}
	if len(rest) < int(n) {
		return nil, b, false, ErrIncomplete
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, rest[n:], true, nil
}
