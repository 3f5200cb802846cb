package asdu

import (
	"github.com/pkg/errors"
	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/primitive"
)

// CovPropertyValue is one (property-id, [array-index], value) triple
// carried by Unconfirmed-COV-Notification, ASHRAE 135 clause 13.1.
type CovPropertyValue struct {
	PropertyID uint32
	ArrayIndex *uint32
	Value      Value
}

// UnconfirmedCOVNotification is Unconfirmed-COV-Notification's body.
type UnconfirmedCOVNotification struct {
	ProcessID     uint32
	DeviceID      primitive.ObjectID
	ObjectID      primitive.ObjectID
	TimeRemaining uint32
	Values        []CovPropertyValue
}

// EncodeUnconfirmedCOVNotification appends the service parameters.
func EncodeUnconfirmedCOVNotification(buf []byte, v UnconfirmedCOVNotification) []byte {
	buf = primitive.EncodeContextUnsigned(buf, 0, v.ProcessID)
	buf = primitive.EncodeContextObjectID(buf, 1, v.DeviceID)
	buf = primitive.EncodeContextObjectID(buf, 2, v.ObjectID)
	buf = primitive.EncodeContextUnsigned(buf, 3, v.TimeRemaining)
	buf = primitive.EncodeOpeningTag(buf, 4)
	for _, pv := range v.Values {
		buf = primitive.EncodeContextEnumerated(buf, 0, pv.PropertyID)
		if pv.ArrayIndex != nil {
			buf = primitive.EncodeContextUnsigned(buf, 1, *pv.ArrayIndex)
		}
		buf = primitive.EncodeOpeningTag(buf, 2)
		buf = EncodeValue(buf, pv.Value)
		buf = primitive.EncodeClosingTag(buf, 2)
	}
	buf = primitive.EncodeClosingTag(buf, 4)
	return buf
}

// DecodeUnconfirmedCOVNotification parses the service parameters.
func DecodeUnconfirmedCOVNotification(params []byte) (UnconfirmedCOVNotification, error) {
	var v UnconfirmedCOVNotification
	off := 0

	tag, n, err := expectContextTag(params[off:], 0)
	if err != nil {
		return UnconfirmedCOVNotification{}, err
	}
	off += n
	pid, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return UnconfirmedCOVNotification{}, err
	}
	v.ProcessID = pid
	off += int(tag.LVT)

	if _, n, err := expectContextTag(params[off:], 1); err != nil {
		return UnconfirmedCOVNotification{}, err
	} else {
		off += n
	}
	did, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return UnconfirmedCOVNotification{}, err
	}
	v.DeviceID = did
	off += 4

	if _, n, err := expectContextTag(params[off:], 2); err != nil {
		return UnconfirmedCOVNotification{}, err
	} else {
		off += n
	}
	oid, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return UnconfirmedCOVNotification{}, err
	}
	v.ObjectID = oid
	off += 4

	tag, n, err = expectContextTag(params[off:], 3)
	if err != nil {
		return UnconfirmedCOVNotification{}, err
	}
	off += n
	remain, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return UnconfirmedCOVNotification{}, err
	}
	v.TimeRemaining = remain
	off += int(tag.LVT)

	if !primitive.IsOpeningTagNumber(params[off:], 4) {
		return UnconfirmedCOVNotification{}, errors.Wrap(bacerr.ErrInvalidTag, "cov-notification: expected opening tag 4")
	}
	_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return UnconfirmedCOVNotification{}, err
	}
	off += n

	for !primitive.IsClosingTagNumber(params[off:], 4) {
		tag, n, err = expectContextTag(params[off:], 0)
		if err != nil {
			return UnconfirmedCOVNotification{}, err
		}
		off += n
		propID, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
		if err != nil {
			return UnconfirmedCOVNotification{}, err
		}
		off += int(tag.LVT)

		pv := CovPropertyValue{PropertyID: propID}
		if primitive.IsContextTagNumber(params[off:], 1) {
			tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
			if err != nil {
				return UnconfirmedCOVNotification{}, err
			}
			off += n
			idx, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
			if err != nil {
				return UnconfirmedCOVNotification{}, err
			}
			pv.ArrayIndex = &idx
			off += int(tag.LVT)
		}

		_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return UnconfirmedCOVNotification{}, err
		}
		off += n
		val, consumed, err := DecodeValue(params[off:])
		if err != nil {
			return UnconfirmedCOVNotification{}, err
		}
		pv.Value = val
		off += consumed

		_, n, err = primitive.DecodeTagNumberAndValue(params[off:]) // closing tag 2
		if err != nil {
			return UnconfirmedCOVNotification{}, err
		}
		off += n

		v.Values = append(v.Values, pv)
	}
	return v, nil
}
