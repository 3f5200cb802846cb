package asdu

import "github.com/rob-gra/go-bacnet/primitive"

// EncodeErrorBody appends the two application-tagged enumerated values an
// Error PDU carries: error-class then error-code, ASHRAE 135 clause 18.9.
func EncodeErrorBody(buf []byte, class ErrorClass, code ErrorCode) []byte {
	buf = primitive.EncodeApplicationEnumerated(buf, uint32(class))
	buf = primitive.EncodeApplicationEnumerated(buf, uint32(code))
	return buf
}

// DecodeErrorBody parses an Error PDU's parameter bytes back into the
// class/code pair.
func DecodeErrorBody(params []byte) (ErrorClass, ErrorCode, error) {
	tag, n, err := primitive.DecodeTagNumberAndValue(params)
	if err != nil {
		return 0, 0, err
	}
	class, err := primitive.DecodeEnumerated(params[n:], int(tag.LVT))
	if err != nil {
		return 0, 0, err
	}
	off := n + int(tag.LVT)

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return 0, 0, err
	}
	off += n
	code, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
	if err != nil {
		return 0, 0, err
	}
	return ErrorClass(class), ErrorCode(code), nil
}
