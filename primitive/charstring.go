package primitive

import "github.com/rob-gra/go-bacnet/bacerr"

// CharacterSet is the character-set code carried in the first octet of a
// character-string value, ASHRAE 135 clause 20.2.9.
type CharacterSet uint8

const (
	CharsetUTF8      CharacterSet = 0
	CharsetDBCS      CharacterSet = 1
	CharsetJISX0208  CharacterSet = 3
	CharsetUCS4      CharacterSet = 4
	CharsetUCS2      CharacterSet = 5
	CharsetISO8859_1 CharacterSet = 6
)

// CharacterString pairs a declared encoding with its raw bytes. The core
// never transcodes: it preserves whatever encoding the wire declared,
// end-to-end.
type CharacterString struct {
	Encoding CharacterSet
	Bytes    []byte
}

// EncodeApplicationCharacterString appends an application-tagged character
// string: one octet of character-set code followed by the raw bytes.
func EncodeApplicationCharacterString(buf []byte, s CharacterString) []byte {
	buf = EncodeTag(buf, TagApplication, tagCharacterString, uint32(len(s.Bytes)+1))
	return appendCharacterString(buf, s)
}

// EncodeContextCharacterString appends a context-tagged character string.
func EncodeContextCharacterString(buf []byte, tagNumber uint8, s CharacterString) []byte {
	buf = EncodeTag(buf, TagContext, tagNumber, uint32(len(s.Bytes)+1))
	return appendCharacterString(buf, s)
}

func appendCharacterString(buf []byte, s CharacterString) []byte {
	buf = append(buf, byte(s.Encoding))
	return append(buf, s.Bytes...)
}

// DecodeCharacterString decodes a character-string body of the given total
// length (encoding octet included).
func DecodeCharacterString(buf []byte, length int) (CharacterString, error) {
	if length < 1 {
		return CharacterString{}, bacerr.ErrInvalidLength
	}
	if len(buf) < length {
		return CharacterString{}, bacerr.ErrTruncated
	}
	data := make([]byte, length-1)
	copy(data, buf[1:length])
	return CharacterString{Encoding: CharacterSet(buf[0]), Bytes: data}, nil
}

// NewUTF8String is a convenience constructor for the common case.
func NewUTF8String(s string) CharacterString {
	return CharacterString{Encoding: CharsetUTF8, Bytes: []byte(s)}
}

// String returns the raw bytes reinterpreted as a Go string, regardless of
// declared encoding: callers that need encoding-aware decoding must inspect
// Encoding themselves.
func (s CharacterString) String() string {
	return string(s.Bytes)
}
