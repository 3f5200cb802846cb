package primitive

import "github.com/rob-gra/go-bacnet/bacerr"

// EncodeApplicationOctetString appends an application-tagged octet string.
func EncodeApplicationOctetString(buf []byte, v []byte) []byte {
	buf = EncodeTag(buf, TagApplication, tagOctetString, uint32(len(v)))
	return append(buf, v...)
}

// EncodeContextOctetString appends a context-tagged octet string.
func EncodeContextOctetString(buf []byte, tagNumber uint8, v []byte) []byte {
	buf = EncodeTag(buf, TagContext, tagNumber, uint32(len(v)))
	return append(buf, v...)
}

// DecodeOctetString decodes an octet-string body of the given length.
func DecodeOctetString(buf []byte, length int) ([]byte, error) {
	if length < 0 {
		return nil, bacerr.ErrInvalidLength
	}
	if len(buf) < length {
		return nil, bacerr.ErrTruncated
	}
	out := make([]byte, length)
	copy(out, buf[:length])
	return out, nil
}
