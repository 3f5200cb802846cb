// Package primitive encodes and decodes the BACnet tag+length+value (TLV)
// grammar: ASHRAE 135 clause 20.2. Every exported function is a pure
// function over byte slices: encoders
// append to (and return) a []byte, never writing past the destination's
// capacity beyond what append itself grows, and decoders never read past
// the supplied slice.
package primitive

import (
	"github.com/pkg/errors"
	"github.com/rob-gra/go-bacnet/bacerr"
)

// TagClass distinguishes an application-tagged primitive from a
// context-tagged one. See ASHRAE 135 clause 20.2.1.
type TagClass bool

const (
	TagApplication TagClass = false
	TagContext     TagClass = true
)

// Tag is a decoded tag header: class, tag number (application type or
// context tag number) and either a length/value/type nibble or, for
// opening/closing tags, a sentinel.
type Tag struct {
	Class   TagClass
	Number  uint8
	LVT     uint32 // length, or the value itself for boolean application tags
	Opening bool
	Closing bool
}

const (
	lvtExtendedLength = 5 // LVT value signalling a following extended-length encoding
	lenExtended1      = 254
	lenExtended4      = 255
)

// EncodeTag appends a tag header for a non-extended tag number (< 15).
// For context tags with number >= 15 use EncodeTagExtended.
func EncodeTag(buf []byte, class TagClass, number uint8, lvt uint32) []byte {
	if number >= 15 {
		return EncodeTagExtended(buf, class, number, lvt)
	}
	b := number << 4
	if class == TagContext {
		b |= 0x08
	}
	if lvt >= lvtExtendedLength {
		b |= lvtExtendedLength
		return encodeExtendedLength(append(buf, b), lvt)
	}
	return append(buf, b|byte(lvt))
}

// EncodeTagExtended appends a tag header whose tag number is encoded in a
// trailing octet (number >= 15), per ASHRAE 135 clause 20.2.1.2(b).
func EncodeTagExtended(buf []byte, class TagClass, number uint8, lvt uint32) []byte {
	b := byte(0xF0)
	if class == TagContext {
		b |= 0x08
	}
	if lvt < lvtExtendedLength {
		b |= byte(lvt)
	} else {
		b |= lvtExtendedLength
	}
	buf = append(buf, b, number)
	if lvt >= lvtExtendedLength {
		buf = encodeExtendedLength(buf, lvt)
	}
	return buf
}

// EncodeOpeningTag appends a context-tagged opening tag (LVT nibble 0x6).
func EncodeOpeningTag(buf []byte, number uint8) []byte {
	return encodeConstructed(buf, number, 0x6)
}

// EncodeClosingTag appends a context-tagged closing tag (LVT nibble 0x7).
func EncodeClosingTag(buf []byte, number uint8) []byte {
	return encodeConstructed(buf, number, 0x7)
}

func encodeConstructed(buf []byte, number uint8, nibble byte) []byte {
	if number >= 15 {
		return append(buf, 0xF0|0x08|nibble, number)
	}
	return append(buf, (number<<4)|0x08|nibble)
}

func encodeExtendedLength(buf []byte, lvt uint32) []byte {
	switch {
	case lvt < lenExtended1:
		return append(buf, byte(lvt))
	case lvt <= 0xFFFF:
		return append(buf, lenExtended1, byte(lvt>>8), byte(lvt))
	default:
		return append(buf, lenExtended4,
			byte(lvt>>24), byte(lvt>>16), byte(lvt>>8), byte(lvt))
	}
}

// DecodeTagNumberAndValue decodes one tag header (one byte, plus an
// extended tag-number byte and/or extended-length bytes as needed) and
// returns the tag plus the number of bytes consumed.
func DecodeTagNumberAndValue(buf []byte) (Tag, int, error) {
	if len(buf) < 1 {
		return Tag{}, 0, bacerr.ErrTruncated
	}
	first := buf[0]
	t := Tag{Class: TagClass(first&0x08 != 0)}
	consumed := 1

	number := first >> 4
	if number == 0x0F {
		if len(buf) < 2 {
			return Tag{}, 0, errors.Wrap(bacerr.ErrTruncated, "extended tag number")
		}
		t.Number = buf[1]
		consumed++
	} else {
		t.Number = number
	}

	lvt := first & 0x07
	switch {
	case t.Class == TagContext && lvt == 0x06:
		t.Opening = true
		return t, consumed, nil
	case t.Class == TagContext && lvt == 0x07:
		t.Closing = true
		return t, consumed, nil
	case lvt < lvtExtendedLength:
		t.LVT = uint32(lvt)
		return t, consumed, nil
	}

	rest := buf[consumed:]
	if len(rest) < 1 {
		return Tag{}, 0, errors.Wrap(bacerr.ErrTruncated, "extended length")
	}
	switch rest[0] {
	case lenExtended4:
		if len(rest) < 5 {
			return Tag{}, 0, errors.Wrap(bacerr.ErrTruncated, "4-octet extended length")
		}
		t.LVT = uint32(rest[1])<<24 | uint32(rest[2])<<16 | uint32(rest[3])<<8 | uint32(rest[4])
		consumed += 5
	case lenExtended1:
		if len(rest) < 3 {
			return Tag{}, 0, errors.Wrap(bacerr.ErrTruncated, "2-octet extended length")
		}
		t.LVT = uint32(rest[1])<<8 | uint32(rest[2])
		consumed += 3
	default:
		t.LVT = uint32(rest[0])
		consumed++
	}
	return t, consumed, nil
}

// IsOpeningTagNumber reports whether buf begins with an opening tag of the
// given context tag number, without consuming it.
func IsOpeningTagNumber(buf []byte, number uint8) bool {
	tag, _, err := DecodeTagNumberAndValue(buf)
	return err == nil && tag.Class == TagContext && tag.Opening && tag.Number == number
}

// IsContextTagNumber reports whether buf begins with a context tag of the
// given number, without consuming it.
func IsContextTagNumber(buf []byte, number uint8) bool {
	tag, _, err := DecodeTagNumberAndValue(buf)
	return err == nil && tag.Class == TagContext && !tag.Opening && !tag.Closing && tag.Number == number
}

// IsClosingTagNumber reports whether buf begins with a closing tag of the
// given context tag number, without consuming it.
func IsClosingTagNumber(buf []byte, number uint8) bool {
	tag, _, err := DecodeTagNumberAndValue(buf)
	return err == nil && tag.Class == TagContext && tag.Closing && tag.Number == number
}

// DecodeIsClosingTagNumber matches a closing tag and reports whether the
// header was malformed in a specific way: an LVT nibble of 0x0F (the
// extended-tag-number escape) that appears where a closing tag for the
// number we expect should be. That case is an error, not a skip.
func DecodeIsClosingTagNumber(buf []byte, number uint8) (bool, error) {
	if len(buf) < 1 {
		return false, bacerr.ErrTruncated
	}
	if buf[0]&0x07 == 0x07 && buf[0]>>4 == 0x0F {
		return false, errors.Wrap(bacerr.ErrInvalidTag, "extended tag number before closing tag")
	}
	return IsClosingTagNumber(buf, number), nil
}
