package asdu

import (
	"github.com/pkg/errors"
	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/primitive"
)

// EncodeWhoIs appends the Who-Is service parameters. lowLimit and highLimit
// must both be nil or both non-nil; the limits appear together or not at
// all.
func EncodeWhoIs(buf []byte, lowLimit, highLimit *uint32) []byte {
	if lowLimit == nil || highLimit == nil {
		return buf
	}
	buf = primitive.EncodeContextUnsigned(buf, 0, *lowLimit)
	buf = primitive.EncodeContextUnsigned(buf, 1, *highLimit)
	return buf
}

// DecodeWhoIs parses the Who-Is parameters, enforcing that the limits
// appear together or not at all.
func DecodeWhoIs(params []byte) (lowLimit, highLimit *uint32, err error) {
	if len(params) == 0 {
		return nil, nil, nil
	}
	tag, n, err := primitive.DecodeTagNumberAndValue(params)
	if err != nil {
		return nil, nil, err
	}
	if tag.Class != primitive.TagContext || tag.Number != 0 {
		return nil, nil, errors.Wrap(bacerr.ErrInvalidTag, "who-is: expected low-limit")
	}
	lo, err := primitive.DecodeUnsigned(params[n:], int(tag.LVT))
	if err != nil {
		return nil, nil, err
	}
	off := n + int(tag.LVT)

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return nil, nil, err
	}
	if tag.Class != primitive.TagContext || tag.Number != 1 {
		return nil, nil, errors.Wrap(bacerr.ErrInvalidTag, "who-is: expected high-limit")
	}
	off += n
	hi, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return nil, nil, err
	}
	return &lo, &hi, nil
}

// IAm is the parsed body of an I-Am service, ASHRAE 135 clause 16.10.
type IAm struct {
	DeviceID      primitive.ObjectID
	MaxAPDULength uint32
	Segmentation  Segmentation
	VendorID      uint32
}

// EncodeIAm appends the I-Am service parameters. All four fields are
// application-tagged, in fixed order.
func EncodeIAm(buf []byte, v IAm) []byte {
	buf = primitive.EncodeApplicationObjectID(buf, v.DeviceID)
	buf = primitive.EncodeApplicationUnsigned(buf, v.MaxAPDULength)
	buf = primitive.EncodeApplicationEnumerated(buf, uint32(v.Segmentation))
	buf = primitive.EncodeApplicationUnsigned(buf, v.VendorID)
	return buf
}

// DecodeIAm parses the I-Am service parameters.
func DecodeIAm(params []byte) (IAm, error) {
	var v IAm
	off := 0

	tag, n, err := primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return IAm{}, err
	}
	off += n
	v.DeviceID, err = primitive.DecodeObjectID(params[off:])
	if err != nil {
		return IAm{}, err
	}
	off += 4

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return IAm{}, err
	}
	off += n
	maxAPDU, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return IAm{}, err
	}
	v.MaxAPDULength = maxAPDU
	off += int(tag.LVT)

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return IAm{}, err
	}
	off += n
	seg, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
	if err != nil {
		return IAm{}, err
	}
	v.Segmentation = Segmentation(seg)
	off += int(tag.LVT)

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return IAm{}, err
	}
	off += n
	vendor, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return IAm{}, err
	}
	v.VendorID = vendor

	return v, nil
}

// WhoHas carries either an optional device-instance range plus exactly one
// of object-id or object-name, ASHRAE 135 clause 16.9.
type WhoHas struct {
	LowLimit, HighLimit *uint32
	ObjectID            *primitive.ObjectID
	ObjectName          *string
}

// EncodeWhoHas appends the Who-Has service parameters.
func EncodeWhoHas(buf []byte, v WhoHas) []byte {
	if v.LowLimit != nil && v.HighLimit != nil {
		buf = primitive.EncodeContextUnsigned(buf, 0, *v.LowLimit)
		buf = primitive.EncodeContextUnsigned(buf, 1, *v.HighLimit)
	}
	switch {
	case v.ObjectID != nil:
		buf = primitive.EncodeContextObjectID(buf, 2, *v.ObjectID)
	case v.ObjectName != nil:
		buf = primitive.EncodeContextCharacterString(buf, 3, primitive.NewUTF8String(*v.ObjectName))
	}
	return buf
}

// DecodeWhoHas parses the Who-Has service parameters, rejecting a body that
// carries both or neither of object-id/object-name.
func DecodeWhoHas(params []byte) (WhoHas, error) {
	var v WhoHas
	off := 0

	if off < len(params) && primitive.IsContextTagNumber(params[off:], 0) {
		tag, n, err := primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return WhoHas{}, err
		}
		off += n
		lo, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
		if err != nil {
			return WhoHas{}, err
		}
		off += int(tag.LVT)
		v.LowLimit = &lo

		tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return WhoHas{}, err
		}
		off += n
		hi, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
		if err != nil {
			return WhoHas{}, err
		}
		off += int(tag.LVT)
		v.HighLimit = &hi
	}

	if off >= len(params) {
		return WhoHas{}, errors.Wrap(bacerr.ErrInvalidTag, "who-has: missing object-id/object-name")
	}
	tag, n, err := primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return WhoHas{}, err
	}
	off += n
	switch tag.Number {
	case 2:
		oid, err := primitive.DecodeObjectID(params[off:])
		if err != nil {
			return WhoHas{}, err
		}
		v.ObjectID = &oid
		off += 4
	case 3:
		cs, err := primitive.DecodeCharacterString(params[off:], int(tag.LVT))
		if err != nil {
			return WhoHas{}, err
		}
		s := cs.String()
		v.ObjectName = &s
		off += int(tag.LVT)
	default:
		return WhoHas{}, errors.Wrap(bacerr.ErrInvalidTag, "who-has: unexpected tag")
	}
	if off < len(params) {
		return WhoHas{}, errors.Wrap(bacerr.ErrInvalidTag, "who-has: both object-id and object-name present")
	}
	return v, nil
}

// IHave is the parsed body of an I-Have service, ASHRAE 135 clause 16.8.
type IHave struct {
	DeviceID   primitive.ObjectID
	ObjectID   primitive.ObjectID
	ObjectName string
}

// EncodeIHave appends the I-Have service parameters, all application-tagged.
func EncodeIHave(buf []byte, v IHave) []byte {
	buf = primitive.EncodeApplicationObjectID(buf, v.DeviceID)
	buf = primitive.EncodeApplicationObjectID(buf, v.ObjectID)
	buf = primitive.EncodeApplicationCharacterString(buf, primitive.NewUTF8String(v.ObjectName))
	return buf
}

// DecodeIHave parses the I-Have service parameters.
func DecodeIHave(params []byte) (IHave, error) {
	var v IHave
	off := 0
	for i := 0; i < 2; i++ {
		_, n, err := primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return IHave{}, err
		}
		off += n
		oid, err := primitive.DecodeObjectID(params[off:])
		if err != nil {
			return IHave{}, err
		}
		if i == 0 {
			v.DeviceID = oid
		} else {
			v.ObjectID = oid
		}
		off += 4
	}
	tag, n, err := primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return IHave{}, err
	}
	off += n
	cs, err := primitive.DecodeCharacterString(params[off:], int(tag.LVT))
	if err != nil {
		return IHave{}, err
	}
	v.ObjectName = cs.String()
	return v, nil
}

// DateTime pairs a BACnet date and time, used by Time-Synchronization and
// UTC-Time-Synchronization, ASHRAE 135 clause 16.4/16.5.
type DateTime struct {
	Date primitive.Date
	Time primitive.Time
}

// EncodeTimeSynchronization appends the date+time service parameters shared
// by Time-Synchronization and UTC-Time-Synchronization.
func EncodeTimeSynchronization(buf []byte, v DateTime) []byte {
	buf = primitive.EncodeApplicationDate(buf, v.Date)
	buf = primitive.EncodeApplicationTime(buf, v.Time)
	return buf
}

// DecodeTimeSynchronization parses a Time-Synchronization or
// UTC-Time-Synchronization body.
func DecodeTimeSynchronization(params []byte) (DateTime, error) {
	_, n, err := primitive.DecodeTagNumberAndValue(params)
	if err != nil {
		return DateTime{}, err
	}
	off := n
	date, err := primitive.DecodeDate(params[off:])
	if err != nil {
		return DateTime{}, err
	}
	off += 4

	_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return DateTime{}, err
	}
	off += n
	t, err := primitive.DecodeTime(params[off:])
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{Date: date, Time: t}, nil
}

// WhoAmI is the 2020-addenda discovery request: vendor-id, a model name
// and a serial number identify the device asking the question.
type WhoAmI struct {
	VendorID uint32
	Model    string
	Serial   string
}

// EncodeWhoAmI appends the Who-Am-I service parameters, each context-tagged
// per ASHRAE 135-2020 addendum bn.
func EncodeWhoAmI(buf []byte, v WhoAmI) []byte {
	buf = primitive.EncodeContextUnsigned(buf, 0, v.VendorID)
	buf = primitive.EncodeContextCharacterString(buf, 1, primitive.NewUTF8String(v.Model))
	buf = primitive.EncodeContextCharacterString(buf, 2, primitive.NewUTF8String(v.Serial))
	return buf
}

// DecodeWhoAmI parses the Who-Am-I service parameters.
func DecodeWhoAmI(params []byte) (WhoAmI, error) {
	var v WhoAmI
	off := 0

	tag, n, err := primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return WhoAmI{}, err
	}
	off += n
	vendor, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return WhoAmI{}, err
	}
	v.VendorID = vendor
	off += int(tag.LVT)

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return WhoAmI{}, err
	}
	off += n
	cs, err := primitive.DecodeCharacterString(params[off:], int(tag.LVT))
	if err != nil {
		return WhoAmI{}, err
	}
	v.Model = cs.String()
	off += int(tag.LVT)

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return WhoAmI{}, err
	}
	off += n
	cs, err = primitive.DecodeCharacterString(params[off:], int(tag.LVT))
	if err != nil {
		return WhoAmI{}, err
	}
	v.Serial = cs.String()
	return v, nil
}

// YouAre is the 2020-addenda reply to Who-Am-I: it answers with the
// resolved device-id and MAC so the asking device can configure itself.
type YouAre struct {
	VendorID uint32
	Model    string
	Serial   string
	DeviceID primitive.ObjectID
	MAC      []byte
}

// EncodeYouAre appends the You-Are service parameters.
func EncodeYouAre(buf []byte, v YouAre) []byte {
	buf = primitive.EncodeContextUnsigned(buf, 0, v.VendorID)
	buf = primitive.EncodeContextCharacterString(buf, 1, primitive.NewUTF8String(v.Model))
	buf = primitive.EncodeContextCharacterString(buf, 2, primitive.NewUTF8String(v.Serial))
	buf = primitive.EncodeContextObjectID(buf, 3, v.DeviceID)
	if v.MAC != nil {
		buf = primitive.EncodeContextOctetString(buf, 4, v.MAC)
	}
	return buf
}

// DecodeYouAre parses the You-Are service parameters. MAC is nil when
// absent.
func DecodeYouAre(params []byte) (YouAre, error) {
	var v YouAre
	off := 0

	tag, n, err := primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return YouAre{}, err
	}
	off += n
	vendor, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return YouAre{}, err
	}
	v.VendorID = vendor
	off += int(tag.LVT)

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return YouAre{}, err
	}
	off += n
	cs, err := primitive.DecodeCharacterString(params[off:], int(tag.LVT))
	if err != nil {
		return YouAre{}, err
	}
	v.Model = cs.String()
	off += int(tag.LVT)

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return YouAre{}, err
	}
	off += n
	cs, err = primitive.DecodeCharacterString(params[off:], int(tag.LVT))
	if err != nil {
		return YouAre{}, err
	}
	v.Serial = cs.String()
	off += int(tag.LVT)

	tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return YouAre{}, err
	}
	off += n
	oid, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return YouAre{}, err
	}
	v.DeviceID = oid
	off += 4

	if off < len(params) {
		tag, n, err = primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return YouAre{}, err
		}
		off += n
		mac, err := primitive.DecodeOctetString(params[off:], int(tag.LVT))
		if err != nil {
			return YouAre{}, err
		}
		v.MAC = mac
	}
	return v, nil
}
