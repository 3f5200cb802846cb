package asdu

import (
	"github.com/pkg/errors"
	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/primitive"
)

// ValueKind discriminates Value, the closed tagged sum over application
// values.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBoolean
	KindUnsigned
	KindSigned
	KindReal
	KindDouble
	KindOctetString
	KindCharacterString
	KindBitString
	KindEnumerated
	KindDate
	KindTime
	KindObjectID
)

// Value is one BACnet application-tagged primitive, tagged by Kind. Only
// the field matching Kind is meaningful.
type Value struct {
	Kind            ValueKind
	Bool            bool
	Unsigned        uint32
	Signed          int32
	Real            float32
	Double          float64
	OctetString     []byte
	CharacterString primitive.CharacterString
	BitString       primitive.BitString
	Enumerated      uint32
	Date            primitive.Date
	Time            primitive.Time
	ObjectID        primitive.ObjectID
}

// EncodeValue appends the application-tagged encoding of v.
func EncodeValue(buf []byte, v Value) []byte {
	switch v.Kind {
	case KindNull:
		return primitive.EncodeApplicationNull(buf)
	case KindBoolean:
		return primitive.EncodeApplicationBoolean(buf, v.Bool)
	case KindUnsigned:
		return primitive.EncodeApplicationUnsigned(buf, v.Unsigned)
	case KindSigned:
		return primitive.EncodeApplicationSigned(buf, v.Signed)
	case KindReal:
		return primitive.EncodeApplicationReal(buf, v.Real)
	case KindDouble:
		return primitive.EncodeApplicationDouble(buf, v.Double)
	case KindOctetString:
		return primitive.EncodeApplicationOctetString(buf, v.OctetString)
	case KindCharacterString:
		return primitive.EncodeApplicationCharacterString(buf, v.CharacterString)
	case KindBitString:
		return primitive.EncodeApplicationBitString(buf, v.BitString)
	case KindEnumerated:
		return primitive.EncodeApplicationEnumerated(buf, v.Enumerated)
	case KindDate:
		return primitive.EncodeApplicationDate(buf, v.Date)
	case KindTime:
		return primitive.EncodeApplicationTime(buf, v.Time)
	case KindObjectID:
		return primitive.EncodeApplicationObjectID(buf, v.ObjectID)
	default:
		return buf
	}
}

// DecodeValue decodes one application-tagged primitive from buf and returns
// it plus the number of bytes consumed (header + body).
func DecodeValue(buf []byte) (Value, int, error) {
	tag, n, err := primitive.DecodeTagNumberAndValue(buf)
	if err != nil {
		return Value{}, 0, err
	}
	if tag.Class != primitive.TagApplication {
		return Value{}, 0, errors.Wrap(bacerr.ErrInvalidTag, "expected application-tagged value")
	}
	body := buf[n:]

	switch tag.Number {
	case primitive.TagNumberNull:
		return Value{Kind: KindNull}, n, nil
	case primitive.TagNumberBoolean:
		return Value{Kind: KindBoolean, Bool: tag.LVT != 0}, n, nil
	case primitive.TagNumberUnsigned:
		u, err := primitive.DecodeUnsigned(body, int(tag.LVT))
		return Value{Kind: KindUnsigned, Unsigned: u}, n + int(tag.LVT), err
	case primitive.TagNumberSigned:
		s, err := primitive.DecodeSigned(body, int(tag.LVT))
		return Value{Kind: KindSigned, Signed: s}, n + int(tag.LVT), err
	case primitive.TagNumberReal:
		f, err := primitive.DecodeReal(body)
		return Value{Kind: KindReal, Real: f}, n + 4, err
	case primitive.TagNumberDouble:
		f, err := primitive.DecodeDouble(body)
		return Value{Kind: KindDouble, Double: f}, n + 8, err
	case primitive.TagNumberOctetString:
		o, err := primitive.DecodeOctetString(body, int(tag.LVT))
		return Value{Kind: KindOctetString, OctetString: o}, n + int(tag.LVT), err
	case primitive.TagNumberCharacterString:
		cs, err := primitive.DecodeCharacterString(body, int(tag.LVT))
		return Value{Kind: KindCharacterString, CharacterString: cs}, n + int(tag.LVT), err
	case primitive.TagNumberBitString:
		bs, err := primitive.DecodeBitString(body, int(tag.LVT))
		return Value{Kind: KindBitString, BitString: bs}, n + int(tag.LVT), err
	case primitive.TagNumberEnumerated:
		e, err := primitive.DecodeEnumerated(body, int(tag.LVT))
		return Value{Kind: KindEnumerated, Enumerated: e}, n + int(tag.LVT), err
	case primitive.TagNumberDate:
		d, err := primitive.DecodeDate(body)
		return Value{Kind: KindDate, Date: d}, n + 4, err
	case primitive.TagNumberTime:
		t, err := primitive.DecodeTime(body)
		return Value{Kind: KindTime, Time: t}, n + 4, err
	case primitive.TagNumberObjectID:
		o, err := primitive.DecodeObjectID(body)
		return Value{Kind: KindObjectID, ObjectID: o}, n + 4, err
	default:
		return Value{}, 0, errors.Wrapf(bacerr.ErrInvalidTag, "unrecognized application tag %d", tag.Number)
	}
}
