package primitive

import (
	"encoding/binary"
	"math"

	"github.com/rob-gra/go-bacnet/bacerr"
)

// EncodeApplicationUnsigned appends an application-tagged unsigned integer
// in canonical (minimum-width) form: the shortest big-endian encoding that
// represents n, 1 to 4 octets.
func EncodeApplicationUnsigned(buf []byte, n uint32) []byte {
	body := unsignedBytes(n)
	buf = EncodeTag(buf, TagApplication, tagUnsigned, uint32(len(body)))
	return append(buf, body...)
}

// EncodeContextUnsigned appends a context-tagged unsigned integer.
func EncodeContextUnsigned(buf []byte, tagNumber uint8, n uint32) []byte {
	body := unsignedBytes(n)
	buf = EncodeTag(buf, TagContext, tagNumber, uint32(len(body)))
	return append(buf, body...)
}

func unsignedBytes(n uint32) []byte {
	switch {
	case n <= 0xFF:
		return []byte{byte(n)}
	case n <= 0xFFFF:
		return []byte{byte(n >> 8), byte(n)}
	case n <= 0xFFFFFF:
		return []byte{byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

// DecodeUnsigned decodes an unsigned integer body of the given length,
// accepting any legal width up to 4 octets regardless of how it was
// encoded.
func DecodeUnsigned(buf []byte, length int) (uint32, error) {
	if length < 1 || length > 4 {
		return 0, bacerr.ErrInvalidLength
	}
	if len(buf) < length {
		return 0, bacerr.ErrTruncated
	}
	var v uint32
	for _, b := range buf[:length] {
		v = v<<8 | uint32(b)
	}
	return v, nil
}

// EncodeApplicationSigned appends an application-tagged signed integer in
// canonical two's-complement, minimum-width-with-sign form: -128 fits in
// one octet, 128 needs two.
func EncodeApplicationSigned(buf []byte, n int32) []byte {
	body := signedBytes(n)
	buf = EncodeTag(buf, TagApplication, tagSigned, uint32(len(body)))
	return append(buf, body...)
}

// EncodeContextSigned appends a context-tagged signed integer.
func EncodeContextSigned(buf []byte, tagNumber uint8, n int32) []byte {
	body := signedBytes(n)
	buf = EncodeTag(buf, TagContext, tagNumber, uint32(len(body)))
	return append(buf, body...)
}

func signedBytes(n int32) []byte {
	switch {
	case n >= -128 && n <= 127:
		return []byte{byte(n)}
	case n >= -32768 && n <= 32767:
		return []byte{byte(n >> 8), byte(n)}
	case n >= -8388608 && n <= 8388607:
		return []byte{byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

// DecodeSigned decodes a two's-complement signed integer body, sign
// extending from whatever width was used on the wire (1-4 octets).
func DecodeSigned(buf []byte, length int) (int32, error) {
	if length < 1 || length > 4 {
		return 0, bacerr.ErrInvalidLength
	}
	if len(buf) < length {
		return 0, bacerr.ErrTruncated
	}
	var v int32
	if buf[0]&0x80 != 0 {
		v = -1 // sign-extend
	}
	for _, b := range buf[:length] {
		v = v<<8 | int32(b)
	}
	return v, nil
}

// EncodeApplicationReal appends an application-tagged IEEE-754 single
// precision real, big-endian, always 4 octets.
func EncodeApplicationReal(buf []byte, f float32) []byte {
	buf = EncodeTag(buf, TagApplication, tagReal, 4)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(f))
	return append(buf, tmp[:]...)
}

// EncodeContextReal appends a context-tagged IEEE-754 single precision real.
func EncodeContextReal(buf []byte, tagNumber uint8, f float32) []byte {
	buf = EncodeTag(buf, TagContext, tagNumber, 4)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(f))
	return append(buf, tmp[:]...)
}

// DecodeReal decodes a 4-octet big-endian IEEE-754 single precision real.
func DecodeReal(buf []byte) (float32, error) {
	if len(buf) < 4 {
		return 0, bacerr.ErrTruncated
	}
	return math.Float32frombits(binary.BigEndian.Uint32(buf[:4])), nil
}

// EncodeApplicationDouble appends an application-tagged IEEE-754 double
// precision real, big-endian, always 8 octets.
func EncodeApplicationDouble(buf []byte, f float64) []byte {
	buf = EncodeTag(buf, TagApplication, tagDouble, 8)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(f))
	return append(buf, tmp[:]...)
}

// DecodeDouble decodes an 8-octet big-endian IEEE-754 double precision real.
func DecodeDouble(buf []byte) (float64, error) {
	if len(buf) < 8 {
		return 0, bacerr.ErrTruncated
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:8])), nil
}

// EncodeApplicationEnumerated appends an application-tagged enumerated
// value, encoded with the same canonical unsigned width rule.
func EncodeApplicationEnumerated(buf []byte, n uint32) []byte {
	body := unsignedBytes(n)
	buf = EncodeTag(buf, TagApplication, tagEnumerated, uint32(len(body)))
	return append(buf, body...)
}

// EncodeContextEnumerated appends a context-tagged enumerated value.
func EncodeContextEnumerated(buf []byte, tagNumber uint8, n uint32) []byte {
	body := unsignedBytes(n)
	buf = EncodeTag(buf, TagContext, tagNumber, uint32(len(body)))
	return append(buf, body...)
}

// DecodeEnumerated decodes an enumerated value; wire shape is identical to
// an unsigned integer.
func DecodeEnumerated(buf []byte, length int) (uint32, error) {
	return DecodeUnsigned(buf, length)
}

// EncodeApplicationNull appends an application-tagged null (a single tag
// octet, LVT 0, and no value octets).
func EncodeApplicationNull(buf []byte) []byte {
	return EncodeTag(buf, TagApplication, tagNull, 0)
}

// EncodeApplicationBoolean appends an application-tagged boolean. The
// value is carried in the LVT nibble itself: no value octets follow.
func EncodeApplicationBoolean(buf []byte, v bool) []byte {
	var lvt uint32
	if v {
		lvt = 1
	}
	return EncodeTag(buf, TagApplication, tagBoolean, lvt)
}

// EncodeContextBoolean appends a context-tagged boolean. Context-tagged
// booleans are not LVT-packed: they carry one value octet (0 or 1), per
// ASHRAE 135 clause 20.2.3.
func EncodeContextBoolean(buf []byte, tagNumber uint8, v bool) []byte {
	buf = EncodeTag(buf, TagContext, tagNumber, 1)
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}
