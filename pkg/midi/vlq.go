package midi

import (
	"fmt"
	"io"
)

// MaxVarint is the largest value a variable-length quantity can hold in a MIDI file.
const MaxVarint = 0x0FFFFFFF

const maxVarintLen = 4

// DecodeVarint reads a variable-length quantity from the start of buf and returns
// the value and the number of bytes consumed.
func DecodeVarint(buf []byte) (x uint32, n int, err error) {
	for _, b := range buf {
		if n == maxVarintLen {
			return 0, n, ErrVarintTooLong
		}
		x = x<<7 | uint32(b&0x7F)
		n++
		if b&0x80 == 0 {
			return x, n, nil
		}
	}

	if n == maxVarintLen {
		return 0, n, ErrVarintTooLong
	}
	return 0, n, io.ErrUnexpectedEOF
}

// readVarint is the streaming form of DecodeVarint.
func readVarint(r io.ByteReader) (x uint32, n int, err error) {
	for n < maxVarintLen {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && n > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, n, err
		}
		x = x<<7 | uint32(b&0x7F)
		n++
		if b&0x80 == 0 {
			return x, n, nil
		}
	}
	return 0, n, ErrVarintTooLong
}

// EncodeVarint returns the minimal variable-length encoding of v.
func EncodeVarint(v uint32) ([]byte, error) {
	if v > MaxVarint {
		return nil, fmt.Errorf("%w - varint %#x exceeds %#x", ErrValueRange, v, MaxVarint)
	}
	return appendVarint(make([]byte, 0, varintLen(v)), v), nil
}

// appendVarint expects v <= MaxVarint.
func appendVarint(dst []byte, v uint32) []byte {
	n := varintLen(v)
	for i := n - 1; i >= 0; i-- {
		b := byte(v>>(7*uint(i))) & 0x7F
		if i > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}

func varintLen(v uint32) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	default:
		return 4
	}
}
