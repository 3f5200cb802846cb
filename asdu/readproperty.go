package asdu

import (
	"github.com/pkg/errors"
	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/primitive"
)

// ReadPropertyRequest is the parsed body of a ReadProperty confirmed
// request, ASHRAE 135 clause 15.5.
type ReadPropertyRequest struct {
	ObjectID   primitive.ObjectID
	PropertyID uint32
	ArrayIndex *uint32
}

// EncodeReadPropertyRequest appends the ReadProperty request parameters.
func EncodeReadPropertyRequest(buf []byte, v ReadPropertyRequest) []byte {
	buf = primitive.EncodeContextObjectID(buf, 0, v.ObjectID)
	buf = primitive.EncodeContextEnumerated(buf, 1, v.PropertyID)
	if v.ArrayIndex != nil {
		buf = primitive.EncodeContextUnsigned(buf, 2, *v.ArrayIndex)
	}
	return buf
}

// DecodeReadPropertyRequest parses a ReadProperty request body.
func DecodeReadPropertyRequest(params []byte) (ReadPropertyRequest, error) {
	var v ReadPropertyRequest
	off := 0

	if _, n, err := expectContextTag(params[off:], 0); err != nil {
		return ReadPropertyRequest{}, err
	} else {
		off += n
	}
	oid, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return ReadPropertyRequest{}, err
	}
	v.ObjectID = oid
	off += 4

	tag, n, err := expectContextTag(params[off:], 1)
	if err != nil {
		return ReadPropertyRequest{}, err
	}
	off += n
	prop, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
	if err != nil {
		return ReadPropertyRequest{}, err
	}
	v.PropertyID = prop
	off += int(tag.LVT)

	if off < len(params) && primitive.IsContextTagNumber(params[off:], 2) {
		tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return ReadPropertyRequest{}, err
		}
		off += n
		idx, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
		if err != nil {
			return ReadPropertyRequest{}, err
		}
		v.ArrayIndex = &idx
	}
	return v, nil
}

// ReadPropertyACK is the parsed complex-ack body for ReadProperty. Values
// holds one element normally, or more than one when PropertyID names an
// array read without an ArrayIndex.
type ReadPropertyACK struct {
	ObjectID   primitive.ObjectID
	PropertyID uint32
	ArrayIndex *uint32
	Values     []Value
}

// EncodeReadPropertyACK appends the ReadProperty complex-ack parameters.
func EncodeReadPropertyACK(buf []byte, v ReadPropertyACK) []byte {
	buf = primitive.EncodeContextObjectID(buf, 0, v.ObjectID)
	buf = primitive.EncodeContextEnumerated(buf, 1, v.PropertyID)
	if v.ArrayIndex != nil {
		buf = primitive.EncodeContextUnsigned(buf, 2, *v.ArrayIndex)
	}
	buf = primitive.EncodeOpeningTag(buf, 3)
	for _, val := range v.Values {
		buf = EncodeValue(buf, val)
	}
	buf = primitive.EncodeClosingTag(buf, 3)
	return buf
}

// DecodeReadPropertyACK parses a ReadProperty complex-ack body.
func DecodeReadPropertyACK(params []byte) (ReadPropertyACK, error) {
	var v ReadPropertyACK
	off := 0

	if _, n, err := expectContextTag(params[off:], 0); err != nil {
		return ReadPropertyACK{}, err
	} else {
		off += n
	}
	oid, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return ReadPropertyACK{}, err
	}
	v.ObjectID = oid
	off += 4

	tag, n, err := expectContextTag(params[off:], 1)
	if err != nil {
		return ReadPropertyACK{}, err
	}
	off += n
	prop, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
	if err != nil {
		return ReadPropertyACK{}, err
	}
	v.PropertyID = prop
	off += int(tag.LVT)

	if primitive.IsContextTagNumber(params[off:], 2) {
		tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return ReadPropertyACK{}, err
		}
		off += n
		idx, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
		if err != nil {
			return ReadPropertyACK{}, err
		}
		v.ArrayIndex = &idx
		off += int(tag.LVT)
	}

	if !primitive.IsOpeningTagNumber(params[off:], 3) {
		return ReadPropertyACK{}, errors.Wrap(bacerr.ErrInvalidTag, "read-property-ack: expected opening tag 3")
	}
	_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return ReadPropertyACK{}, err
	}
	off += n

	for !primitive.IsClosingTagNumber(params[off:], 3) {
		val, consumed, err := DecodeValue(params[off:])
		if err != nil {
			return ReadPropertyACK{}, err
		}
		v.Values = append(v.Values, val)
		off += consumed
		if off >= len(params) {
			return ReadPropertyACK{}, bacerr.ErrUnexpectedEndOfFrame
		}
	}
	return v, nil
}

// WritePropertyRequest is the parsed body of a WriteProperty confirmed
// request, ASHRAE 135 clause 15.9.
type WritePropertyRequest struct {
	ObjectID   primitive.ObjectID
	PropertyID uint32
	ArrayIndex *uint32
	Value      Value
	Priority   *uint32
}

// EncodeWritePropertyRequest appends the WriteProperty request parameters.
func EncodeWritePropertyRequest(buf []byte, v WritePropertyRequest) []byte {
	buf = primitive.EncodeContextObjectID(buf, 0, v.ObjectID)
	buf = primitive.EncodeContextEnumerated(buf, 1, v.PropertyID)
	if v.ArrayIndex != nil {
		buf = primitive.EncodeContextUnsigned(buf, 2, *v.ArrayIndex)
	}
	buf = primitive.EncodeOpeningTag(buf, 3)
	buf = EncodeValue(buf, v.Value)
	buf = primitive.EncodeClosingTag(buf, 3)
	if v.Priority != nil {
		buf = primitive.EncodeContextUnsigned(buf, 4, *v.Priority)
	}
	return buf
}

// DecodeWritePropertyRequest parses a WriteProperty request body.
func DecodeWritePropertyRequest(params []byte) (WritePropertyRequest, error) {
	var v WritePropertyRequest
	off := 0

	if _, n, err := expectContextTag(params[off:], 0); err != nil {
		return WritePropertyRequest{}, err
	} else {
		off += n
	}
	oid, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return WritePropertyRequest{}, err
	}
	v.ObjectID = oid
	off += 4

	tag, n, err := expectContextTag(params[off:], 1)
	if err != nil {
		return WritePropertyRequest{}, err
	}
	off += n
	prop, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
	if err != nil {
		return WritePropertyRequest{}, err
	}
	v.PropertyID = prop
	off += int(tag.LVT)

	if primitive.IsContextTagNumber(params[off:], 2) {
		tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return WritePropertyRequest{}, err
		}
		off += n
		idx, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
		if err != nil {
			return WritePropertyRequest{}, err
		}
		v.ArrayIndex = &idx
		off += int(tag.LVT)
	}

	if !primitive.IsOpeningTagNumber(params[off:], 3) {
		return WritePropertyRequest{}, errors.Wrap(bacerr.ErrInvalidTag, "write-property: expected opening tag 3")
	}
	_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return WritePropertyRequest{}, err
	}
	off += n

	val, consumed, err := DecodeValue(params[off:])
	if err != nil {
		return WritePropertyRequest{}, err
	}
	v.Value = val
	off += consumed

	if !primitive.IsClosingTagNumber(params[off:], 3) {
		return WritePropertyRequest{}, errors.Wrap(bacerr.ErrInvalidTag, "write-property: expected closing tag 3")
	}
	_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return WritePropertyRequest{}, err
	}
	off += n

	if off < len(params) {
		tag, n, err = expectContextTag(params[off:], 4)
		if err != nil {
			return WritePropertyRequest{}, err
		}
		off += n
		prio, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
		if err != nil {
			return WritePropertyRequest{}, err
		}
		v.Priority = &prio
	}
	return v, nil
}

// expectContextTag decodes one tag header and validates it is a
// non-opening/closing context tag with the given number.
func expectContextTag(buf []byte, number uint8) (primitive.Tag, int, error) {
	tag, n, err := primitive.DecodeTagNumberAndValue(buf)
	if err != nil {
		return primitive.Tag{}, 0, err
	}
	if tag.Class != primitive.TagContext || tag.Opening || tag.Closing || tag.Number != number {
		return primitive.Tag{}, 0, errors.Wrapf(bacerr.ErrInvalidTag, "expected context tag %d", number)
	}
	return tag, n, nil
}
