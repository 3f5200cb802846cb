package asdu

import (
	"github.com/pkg/errors"
	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/primitive"
)

// PropertyReference names one property (and optional array index) within a
// ReadPropertyMultiple request or WritePropertyMultiple write-list.
type PropertyReference struct {
	PropertyID uint32
	ArrayIndex *uint32
}

// ReadAccessSpecification is one object's property list within a
// ReadPropertyMultiple request, ASHRAE 135 clause 15.7.
type ReadAccessSpecification struct {
	ObjectID   primitive.ObjectID
	Properties []PropertyReference
}

// EncodeReadPropertyMultipleRequest appends the list of read-access
// specifications.
func EncodeReadPropertyMultipleRequest(buf []byte, specs []ReadAccessSpecification) []byte {
	for _, spec := range specs {
		buf = primitive.EncodeContextObjectID(buf, 0, spec.ObjectID)
		buf = primitive.EncodeOpeningTag(buf, 1)
		for _, p := range spec.Properties {
			buf = primitive.EncodeContextEnumerated(buf, 0, p.PropertyID)
			if p.ArrayIndex != nil {
				buf = primitive.EncodeContextUnsigned(buf, 1, *p.ArrayIndex)
			}
		}
		buf = primitive.EncodeClosingTag(buf, 1)
	}
	return buf
}

// DecodeReadPropertyMultipleRequest parses a ReadPropertyMultiple request
// body: zero or more read-access specifications until the buffer ends.
func DecodeReadPropertyMultipleRequest(params []byte) ([]ReadAccessSpecification, error) {
	var specs []ReadAccessSpecification
	off := 0
	for off < len(params) {
		spec, consumed, err := decodeReadAccessSpecification(params[off:])
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
		off += consumed
	}
	return specs, nil
}

func decodeReadAccessSpecification(params []byte) (ReadAccessSpecification, int, error) {
	var spec ReadAccessSpecification
	off := 0

	if _, n, err := expectContextTag(params[off:], 0); err != nil {
		return ReadAccessSpecification{}, 0, err
	} else {
		off += n
	}
	oid, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return ReadAccessSpecification{}, 0, err
	}
	spec.ObjectID = oid
	off += 4

	if !primitive.IsOpeningTagNumber(params[off:], 1) {
		return ReadAccessSpecification{}, 0, errors.Wrap(bacerr.ErrInvalidTag, "rpm: expected opening tag 1")
	}
	_, n, err := primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return ReadAccessSpecification{}, 0, err
	}
	off += n

	for !primitive.IsClosingTagNumber(params[off:], 1) {
		tag, n, err := expectContextTag(params[off:], 0)
		if err != nil {
			return ReadAccessSpecification{}, 0, err
		}
		off += n
		propID, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
		if err != nil {
			return ReadAccessSpecification{}, 0, err
		}
		off += int(tag.LVT)

		ref := PropertyReference{PropertyID: propID}
		if primitive.IsContextTagNumber(params[off:], 1) {
			tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
			if err != nil {
				return ReadAccessSpecification{}, 0, err
			}
			off += n
			idx, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
			if err != nil {
				return ReadAccessSpecification{}, 0, err
			}
			ref.ArrayIndex = &idx
			off += int(tag.LVT)
		}
		spec.Properties = append(spec.Properties, ref)
		if off >= len(params) {
			return ReadAccessSpecification{}, 0, bacerr.ErrUnexpectedEndOfFrame
		}
	}
	_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return ReadAccessSpecification{}, 0, err
	}
	off += n
	return spec, off, nil
}

// PropertyValue pairs one property reference with its read result (Values)
// or, on a per-property failure, an error class/code instead.
type PropertyValue struct {
	PropertyReference
	Values     []Value
	ErrorClass *ErrorClass
	ErrorCode  *ErrorCode
}

// ReadAccessResult is one object's results within a ReadPropertyMultiple
// complex-ack, ASHRAE 135 clause 15.7.
type ReadAccessResult struct {
	ObjectID primitive.ObjectID
	Results  []PropertyValue
}

// EncodeReadPropertyMultipleACK appends the list of read-access results.
func EncodeReadPropertyMultipleACK(buf []byte, results []ReadAccessResult) []byte {
	for _, r := range results {
		buf = primitive.EncodeContextObjectID(buf, 0, r.ObjectID)
		buf = primitive.EncodeOpeningTag(buf, 1)
		for _, pv := range r.Results {
			buf = primitive.EncodeContextEnumerated(buf, 2, pv.PropertyID)
			if pv.ArrayIndex != nil {
				buf = primitive.EncodeContextUnsigned(buf, 3, *pv.ArrayIndex)
			}
			if pv.ErrorClass != nil && pv.ErrorCode != nil {
				buf = primitive.EncodeOpeningTag(buf, 5)
				buf = primitive.EncodeApplicationEnumerated(buf, uint32(*pv.ErrorClass))
				buf = primitive.EncodeApplicationEnumerated(buf, uint32(*pv.ErrorCode))
				buf = primitive.EncodeClosingTag(buf, 5)
				continue
			}
			buf = primitive.EncodeOpeningTag(buf, 4)
			for _, v := range pv.Values {
				buf = EncodeValue(buf, v)
			}
			buf = primitive.EncodeClosingTag(buf, 4)
		}
		buf = primitive.EncodeClosingTag(buf, 1)
	}
	return buf
}

// DecodeReadPropertyMultipleACK parses a ReadPropertyMultiple complex-ack
// body.
func DecodeReadPropertyMultipleACK(params []byte) ([]ReadAccessResult, error) {
	var out []ReadAccessResult
	off := 0
	for off < len(params) {
		var r ReadAccessResult
		if _, n, err := expectContextTag(params[off:], 0); err != nil {
			return nil, err
		} else {
			off += n
		}
		oid, err := primitive.DecodeObjectID(params[off:])
		if err != nil {
			return nil, err
		}
		r.ObjectID = oid
		off += 4

		if !primitive.IsOpeningTagNumber(params[off:], 1) {
			return nil, errors.Wrap(bacerr.ErrInvalidTag, "rpm-ack: expected opening tag 1")
		}
		_, n, err := primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return nil, err
		}
		off += n

		for !primitive.IsClosingTagNumber(params[off:], 1) {
			tag, n, err := expectContextTag(params[off:], 2)
			if err != nil {
				return nil, err
			}
			off += n
			propID, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
			if err != nil {
				return nil, err
			}
			off += int(tag.LVT)

			pv := PropertyValue{PropertyReference: PropertyReference{PropertyID: propID}}
			if primitive.IsContextTagNumber(params[off:], 3) {
				tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
				if err != nil {
					return nil, err
				}
				off += n
				idx, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
				if err != nil {
					return nil, err
				}
				pv.ArrayIndex = &idx
				off += int(tag.LVT)
			}

			switch {
			case primitive.IsOpeningTagNumber(params[off:], 4):
				_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
				if err != nil {
					return nil, err
				}
				off += n
				for !primitive.IsClosingTagNumber(params[off:], 4) {
					v, consumed, err := DecodeValue(params[off:])
					if err != nil {
						return nil, err
					}
					pv.Values = append(pv.Values, v)
					off += consumed
				}
				_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
				if err != nil {
					return nil, err
				}
				off += n
			case primitive.IsOpeningTagNumber(params[off:], 5):
				_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
				if err != nil {
					return nil, err
				}
				off += n
				cls, consumed, err := DecodeValue(params[off:])
				if err != nil {
					return nil, err
				}
				off += consumed
				code, consumed, err := DecodeValue(params[off:])
				if err != nil {
					return nil, err
				}
				off += consumed
				ec := ErrorClass(cls.Enumerated)
				ecode := ErrorCode(code.Enumerated)
				pv.ErrorClass = &ec
				pv.ErrorCode = &ecode
				_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
				if err != nil {
					return nil, err
				}
				off += n
			default:
				return nil, errors.Wrap(bacerr.ErrInvalidTag, "rpm-ack: expected opening tag 4 or 5")
			}
			r.Results = append(r.Results, pv)
		}
		_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return nil, err
		}
		off += n
		out = append(out, r)
	}
	return out, nil
}

// WriteAccessSpecification is one object's property writes within a
// WritePropertyMultiple request, ASHRAE 135 clause 15.10.
type WriteAccessSpecification struct {
	ObjectID primitive.ObjectID
	Values   []WritePropertyValue
}

// WritePropertyValue is one property, optional array index, value and
// optional priority within a WriteAccessSpecification.
type WritePropertyValue struct {
	PropertyReference
	Value    Value
	Priority *uint32
}

// EncodeWritePropertyMultipleRequest appends the list of write-access
// specifications.
func EncodeWritePropertyMultipleRequest(buf []byte, specs []WriteAccessSpecification) []byte {
	for _, spec := range specs {
		buf = primitive.EncodeContextObjectID(buf, 0, spec.ObjectID)
		buf = primitive.EncodeOpeningTag(buf, 1)
		for _, wv := range spec.Values {
			buf = primitive.EncodeContextEnumerated(buf, 0, wv.PropertyID)
			if wv.ArrayIndex != nil {
				buf = primitive.EncodeContextUnsigned(buf, 1, *wv.ArrayIndex)
			}
			buf = primitive.EncodeOpeningTag(buf, 2)
			buf = EncodeValue(buf, wv.Value)
			buf = primitive.EncodeClosingTag(buf, 2)
			if wv.Priority != nil {
				buf = primitive.EncodeContextUnsigned(buf, 3, *wv.Priority)
			}
		}
		buf = primitive.EncodeClosingTag(buf, 1)
	}
	return buf
}

// DecodeWritePropertyMultipleRequest parses a WritePropertyMultiple
// request body.
func DecodeWritePropertyMultipleRequest(params []byte) ([]WriteAccessSpecification, error) {
	var specs []WriteAccessSpecification
	off := 0
	for off < len(params) {
		var spec WriteAccessSpecification
		if _, n, err := expectContextTag(params[off:], 0); err != nil {
			return nil, err
		} else {
			off += n
		}
		oid, err := primitive.DecodeObjectID(params[off:])
		if err != nil {
			return nil, err
		}
		spec.ObjectID = oid
		off += 4

		if !primitive.IsOpeningTagNumber(params[off:], 1) {
			return nil, errors.Wrap(bacerr.ErrInvalidTag, "wpm: expected opening tag 1")
		}
		_, n, err := primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return nil, err
		}
		off += n

		for !primitive.IsClosingTagNumber(params[off:], 1) {
			tag, n, err := expectContextTag(params[off:], 0)
			if err != nil {
				return nil, err
			}
			off += n
			propID, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
			if err != nil {
				return nil, err
			}
			off += int(tag.LVT)

			wv := WritePropertyValue{PropertyReference: PropertyReference{PropertyID: propID}}
			if primitive.IsContextTagNumber(params[off:], 1) {
				tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
				if err != nil {
					return nil, err
				}
				off += n
				idx, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
				if err != nil {
					return nil, err
				}
				wv.ArrayIndex = &idx
				off += int(tag.LVT)
			}

			if !primitive.IsOpeningTagNumber(params[off:], 2) {
				return nil, errors.Wrap(bacerr.ErrInvalidTag, "wpm: expected opening tag 2")
			}
			_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
			if err != nil {
				return nil, err
			}
			off += n
			val, consumed, err := DecodeValue(params[off:])
			if err != nil {
				return nil, err
			}
			wv.Value = val
			off += consumed
			if !primitive.IsClosingTagNumber(params[off:], 2) {
				return nil, errors.Wrap(bacerr.ErrInvalidTag, "wpm: expected closing tag 2")
			}
			_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
			if err != nil {
				return nil, err
			}
			off += n

			if off < len(params) && primitive.IsContextTagNumber(params[off:], 3) {
				tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
				if err != nil {
					return nil, err
				}
				off += n
				prio, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
				if err != nil {
					return nil, err
				}
				wv.Priority = &prio
				off += int(tag.LVT)
			}
			spec.Values = append(spec.Values, wv)
			if off >= len(params) {
				return nil, bacerr.ErrUnexpectedEndOfFrame
			}
		}
		_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return nil, err
		}
		off += n
		specs = append(specs, spec)
	}
	return specs, nil
}
