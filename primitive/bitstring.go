package primitive

import "github.com/rob-gra/go-bacnet/bacerr"

// BitString is a bit-packed value. Bits is stored MSB-first within each
// byte; UnusedBits (0-7) counts padding bits in the final byte, per
// ASHRAE 135 clause 20.2.10.
type BitString struct {
	Bits       []byte
	UnusedBits uint8
}

// Len returns the number of significant bits.
func (b BitString) Len() int {
	return len(b.Bits)*8 - int(b.UnusedBits)
}

// Bit reports bit i (0-indexed, MSB-first) of the string.
func (b BitString) Bit(i int) bool {
	if i < 0 || i >= b.Len() {
		return false
	}
	return b.Bits[i/8]&(0x80>>uint(i%8)) != 0
}

// EncodeApplicationBitString appends an application-tagged bit string: one
// octet of unused-bit count followed by the packed data octets.
func EncodeApplicationBitString(buf []byte, b BitString) []byte {
	buf = EncodeTag(buf, TagApplication, tagBitString, uint32(len(b.Bits)+1))
	return appendBitString(buf, b)
}

// EncodeContextBitString appends a context-tagged bit string.
func EncodeContextBitString(buf []byte, tagNumber uint8, b BitString) []byte {
	buf = EncodeTag(buf, TagContext, tagNumber, uint32(len(b.Bits)+1))
	return appendBitString(buf, b)
}

func appendBitString(buf []byte, b BitString) []byte {
	buf = append(buf, b.UnusedBits&0x07)
	return append(buf, b.Bits...)
}

// DecodeBitString decodes a bit string body of the given total length
// (unused-bit count octet included).
func DecodeBitString(buf []byte, length int) (BitString, error) {
	if length < 1 {
		return BitString{}, bacerr.ErrInvalidLength
	}
	if len(buf) < length {
		return BitString{}, bacerr.ErrTruncated
	}
	unused := buf[0]
	if unused > 7 {
		return BitString{}, bacerr.ErrOutOfRange
	}
	data := make([]byte, length-1)
	copy(data, buf[1:length])
	return BitString{Bits: data, UnusedBits: unused}, nil
}
