package primitive

import "github.com/rob-gra/go-bacnet/bacerr"

// Unspecified is the sentinel octet meaning "don't care"/"any" in every
// Date and Time field, per ASHRAE 135 clause 20.2.12/20.2.13.
const Unspecified = 255

// Date is a BACnet date: a year offset from 1900 (255 = unspecified),
// month (1-12, 13=odd, 14=even, 255=unspecified), day of month (1-31, or
// 32/33/34 for last/odd/even day, 255=unspecified) and ISO day of week
// (1=Monday..7=Sunday, 255=unspecified).
type Date struct {
	Year      uint8
	Month     uint8
	Day       uint8
	DayOfWeek uint8
}

// EncodeApplicationDate appends an application-tagged date, 4 octets.
func EncodeApplicationDate(buf []byte, d Date) []byte {
	buf = EncodeTag(buf, TagApplication, tagDate, 4)
	return appendDate(buf, d)
}

// EncodeContextDate appends a context-tagged date.
func EncodeContextDate(buf []byte, tagNumber uint8, d Date) []byte {
	buf = EncodeTag(buf, TagContext, tagNumber, 4)
	return appendDate(buf, d)
}

func appendDate(buf []byte, d Date) []byte {
	return append(buf, d.Year, d.Month, d.Day, d.DayOfWeek)
}

// DecodeDate decodes a 4-octet date body.
func DecodeDate(buf []byte) (Date, error) {
	if len(buf) < 4 {
		return Date{}, bacerr.ErrTruncated
	}
	return Date{buf[0], buf[1], buf[2], buf[3]}, nil
}

// Time is a BACnet time: hour, minute, second, hundredths, each 0-99 with
// 255 meaning unspecified.
type Time struct {
	Hour       uint8
	Minute     uint8
	Second     uint8
	Hundredths uint8
}

// EncodeApplicationTime appends an application-tagged time, 4 octets.
func EncodeApplicationTime(buf []byte, t Time) []byte {
	buf = EncodeTag(buf, TagApplication, tagTime, 4)
	return appendTime(buf, t)
}

// EncodeContextTime appends a context-tagged time.
func EncodeContextTime(buf []byte, tagNumber uint8, t Time) []byte {
	buf = EncodeTag(buf, TagContext, tagNumber, 4)
	return appendTime(buf, t)
}

func appendTime(buf []byte, t Time) []byte {
	return append(buf, t.Hour, t.Minute, t.Second, t.Hundredths)
}

// DecodeTime decodes a 4-octet time body.
func DecodeTime(buf []byte) (Time, error) {
	if len(buf) < 4 {
		return Time{}, bacerr.ErrTruncated
	}
	return Time{buf[0], buf[1], buf[2], buf[3]}, nil
}
