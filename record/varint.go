package record

import "errors"

// ErrIncomplete signals that a decode needs more bytes than are currently
// available. It propagates up to the session layer, which appends fresh
// socket reads and retries the same parse.
var ErrIncomplete = errors.New("orientwire: incomplete buffer")

const maxVarintBytes = 10 // enough for any zig-zagged int64

// EncodeVarint writes u as a protobuf-style base-128 varint, least
// significant group first.
func EncodeVarint(u uint64) []byte {
	var buf [maxVarintBytes]byte
	n := 0
	for u >= 0x80 {
		buf[n] = byte(u) | 0x80
		u >>= 7
		n++
	}
	buf[n] = byte(u)
	n++
	out := make([]byte, n)
	copy(out, buf[:n])
	return out
}

// DecodeVarint reads a base-128 varint from the front of b, returning the
// decoded value and the number of bytes consumed. It returns ErrIncomplete
// if b is exhausted before a terminating byte (high bit clear) is seen.
func DecodeVarint(b []byte) (uint64, int, error) {
	var u uint64
	for i := 0; i < maxVarintBytes; i++ {
		if i >= len(b) {
			return 0, 0, ErrIncomplete
		}
		c := b[i]
		u |= uint64(c&0x7f) << (7 * uint(i))
		if c&0x80 == 0 {
			return u, i + 1, nil
		}
	}
	return 0, 0, errors.New("orientwire: varint too long")
}

// ZigZagEncode maps a signed 64-bit integer onto the unsigned range so that
// small-magnitude values, positive or negative, produce few varint bytes.
func ZigZagEncode(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

// ZigZagDecode reverses ZigZagEncode.
func ZigZagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// EncodeZigZag is the composition used throughout the record format: every
// integer field inside a serialized record (header lengths, property ids,
// short/int/long values, collection counts) goes through this path.
func EncodeZigZag(n int64) []byte {
	return EncodeVarint(ZigZagEncode(n))
}

// DecodeZigZag reverses EncodeZigZag, returning the signed value and the
// number of bytes consumed.
func DecodeZigZag(b []byte) (int64, int, error) {
	u, n, err := DecodeVarint(b)
	if err != nil {
		return 0, 0, err
	}
	return ZigZagDecode(u), n, nil
}
