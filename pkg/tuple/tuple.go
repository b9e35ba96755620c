// Package tuple implements the order-preserving byte encoding used for
// every key in the store: concatenations of byte strings and signed
// 64-bit integers pack into a byte string such that encoding two tuples
// and comparing the results bytewise gives the same answer as comparing
// the tuples element-by-element. This is the standard tuple-layer
// technique used by ordered key-value stores (FoundationDB's tuple layer
// is the canonical example).
package tuple

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	tagBytes = 0x01
	tagInt   = 0x0c
)

// ErrCorrupt is returned when a decode sees a byte sequence that doesn't
// match the tuple grammar.
var ErrCorrupt = errors.New("tuple: corrupt encoding")

// Elem is one element of a tuple: either []byte or int64.
type Elem interface{}

// Bytes wraps a byte string element for Encode. A nil or empty slice is
// rejected by the caller where the schema requires non-empty strings;
// the codec itself only requires the element be representable.
type Bytes []byte

// Int is a signed 64-bit integer element for Encode.
type Int int64

// Encode packs elements into an order-preserving byte string.
func Encode(elems ...Elem) []byte {
	var out []byte
	for _, e := range elems {
		switch v := e.(type) {
		case Bytes:
			out = append(out, encodeBytes([]byte(v))...)
		case []byte:
			out = append(out, encodeBytes(v)...)
		case string:
			out = append(out, encodeBytes([]byte(v))...)
		case Int:
			out = append(out, encodeInt(int64(v))...)
		case int64:
			out = append(out, encodeInt(v)...)
		default:
			panic(fmt.Sprintf("tuple: unsupported element type %T", e))
		}
	}
	return out
}

func encodeBytes(b []byte) []byte {
	out := make([]byte, 0, len(b)+2)
	out = append(out, tagBytes)
	for _, c := range b {
		if c == 0x00 {
			out = append(out, 0x00, 0xFF)
		} else {
			out = append(out, c)
		}
	}
	out = append(out, 0x00)
	return out
}

func encodeInt(v int64) []byte {
	out := make([]byte, 9)
	out[0] = tagInt
	// Flip the sign bit so that two's-complement ordering matches
	// unsigned bytewise ordering of the encoded representation.
	binary.BigEndian.PutUint64(out[1:], uint64(v)^0x8000000000000000)
	return out
}

// Decode unpacks a byte string produced by Encode back into its elements,
// in order. It fails if buf contains anything that isn't a well-formed
// sequence of tagged elements.
func Decode(buf []byte) ([]Elem, error) {
	var elems []Elem
	for len(buf) > 0 {
		tag := buf[0]
		rest := buf[1:]
		switch tag {
		case tagBytes:
			val, consumed, err := decodeBytes(rest)
			if err != nil {
				return nil, err
			}
			elems = append(elems, Bytes(val))
			buf = rest[consumed:]
		case tagInt:
			if len(rest) < 8 {
				return nil, fmt.Errorf("%w: truncated integer", ErrCorrupt)
			}
			raw := binary.BigEndian.Uint64(rest[:8])
			elems = append(elems, Int(int64(raw^0x8000000000000000)))
			buf = rest[8:]
		default:
			return nil, fmt.Errorf("%w: unknown tag 0x%02x", ErrCorrupt, tag)
		}
	}
	return elems, nil
}

// decodeBytes reads an escaped, null-terminated byte string starting at
// buf[0], returning the unescaped value and the number of bytes of buf
// consumed (including the terminator).
func decodeBytes(buf []byte) ([]byte, int, error) {
	var out []byte
	i := 0
	for i < len(buf) {
		c := buf[i]
		if c != 0x00 {
			out = append(out, c)
			i++
			continue
		}
		// c == 0x00: either an escaped embedded null (followed by 0xFF)
		// or the terminator.
		if i+1 < len(buf) && buf[i+1] == 0xFF {
			out = append(out, 0x00)
			i += 2
			continue
		}
		// Terminator.
		return out, i + 1, nil
	}
	return nil, 0, fmt.Errorf("%w: unterminated byte string", ErrCorrupt)
}

// Range returns the half-open byte range [begin, end) containing exactly
// the keys whose tuple encoding shares the given prefix elements. 0xFF
// cannot begin a subsequent tuple element (every element tag is <=
// 0x0c, and escaped/terminator bytes inside a string element never
// appear at the start of the next element either), so appending it to
// begin is always a strict upper bound for the prefixed keyspace.
func Range(prefix ...Elem) (begin, end []byte) {
	begin = Encode(prefix...)
	end = make([]byte, len(begin)+1)
	copy(end, begin)
	end[len(begin)] = 0xFF
	return begin, end
}
