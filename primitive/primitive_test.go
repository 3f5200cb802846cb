package primitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsignedRoundTrip(t *testing.T) {
	for _, n := range []uint32{0, 1, 255, 256, 65535, 65536, 16777215, 16777216, 0xFFFFFFFF} {
		buf := EncodeApplicationUnsigned(nil, n)
		tag, consumed, err := DecodeTagNumberAndValue(buf)
		require.NoError(t, err)
		got, err := DecodeUnsigned(buf[consumed:], int(tag.LVT))
		require.NoError(t, err)
		assert.Equal(t, n, got, "round trip for %d", n)
	}
}

func TestUnsignedCanonicalWidth(t *testing.T) {
	cases := []struct {
		n    uint32
		size int
	}{
		{0, 1}, {255, 1}, {256, 2}, {65535, 2}, {65536, 3}, {16777216, 4},
	}
	for _, c := range cases {
		buf := EncodeApplicationUnsigned(nil, c.n)
		tag, _, err := DecodeTagNumberAndValue(buf)
		require.NoError(t, err)
		assert.EqualValues(t, c.size, tag.LVT, "canonical width for %d", c.n)
	}
}

func TestSignedRoundTrip(t *testing.T) {
	for _, n := range []int32{0, -1, 127, -128, 128, -129, 32767, -32768, 32768, -2147483648, 2147483647} {
		buf := EncodeApplicationSigned(nil, n)
		tag, consumed, err := DecodeTagNumberAndValue(buf)
		require.NoError(t, err)
		got, err := DecodeSigned(buf[consumed:], int(tag.LVT))
		require.NoError(t, err)
		assert.Equal(t, n, got, "round trip for %d", n)
	}
}

func TestSignedCanonicalWidth(t *testing.T) {
	// -128 fits in one octet, 128 needs two.
	buf := EncodeApplicationSigned(nil, -128)
	tag, _, _ := DecodeTagNumberAndValue(buf)
	assert.EqualValues(t, 1, tag.LVT)

	buf = EncodeApplicationSigned(nil, 128)
	tag, _, _ = DecodeTagNumberAndValue(buf)
	assert.EqualValues(t, 2, tag.LVT)
}

func TestRealRoundTrip(t *testing.T) {
	for _, f := range []float32{0, 1.5, -1.5, 3.1415927, -1e30} {
		buf := EncodeApplicationReal(nil, f)
		tag, consumed, err := DecodeTagNumberAndValue(buf)
		require.NoError(t, err)
		assert.EqualValues(t, 4, tag.LVT)
		got, err := DecodeReal(buf[consumed:])
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestDoubleRoundTrip(t *testing.T) {
	buf := EncodeApplicationDouble(nil, 2.718281828)
	tag, consumed, err := DecodeTagNumberAndValue(buf)
	require.NoError(t, err)
	assert.EqualValues(t, 8, tag.LVT)
	got, err := DecodeDouble(buf[consumed:])
	require.NoError(t, err)
	assert.Equal(t, 2.718281828, got)
}

func TestObjectIDRoundTrip(t *testing.T) {
	o := NewObjectID(8, 260) // device 260
	buf := EncodeApplicationObjectID(nil, o)
	tag, consumed, err := DecodeTagNumberAndValue(buf)
	require.NoError(t, err)
	assert.EqualValues(t, 4, tag.LVT)
	got, err := DecodeObjectID(buf[consumed:])
	require.NoError(t, err)
	assert.Equal(t, o, got)
}

func TestObjectIDPacking(t *testing.T) {
	o := NewObjectID(8, 260)
	assert.Equal(t, uint32(8)<<22|260, o.Pack())
	assert.Equal(t, o, UnpackObjectID(o.Pack()))
}

func TestBitStringRoundTrip(t *testing.T) {
	b := BitString{Bits: []byte{0b10110000}, UnusedBits: 4}
	buf := EncodeApplicationBitString(nil, b)
	tag, consumed, err := DecodeTagNumberAndValue(buf)
	require.NoError(t, err)
	got, err := DecodeBitString(buf[consumed:], int(tag.LVT))
	require.NoError(t, err)
	assert.Equal(t, b, got)
	assert.Equal(t, 4, got.Len())
	assert.True(t, got.Bit(0))
	assert.False(t, got.Bit(1))
	assert.True(t, got.Bit(2))
}

func TestCharacterStringRoundTrip(t *testing.T) {
	s := NewUTF8String("SampleDevice")
	buf := EncodeApplicationCharacterString(nil, s)
	tag, consumed, err := DecodeTagNumberAndValue(buf)
	require.NoError(t, err)
	got, err := DecodeCharacterString(buf[consumed:], int(tag.LVT))
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, "SampleDevice", got.String())
}

func TestOctetStringRoundTrip(t *testing.T) {
	v := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	buf := EncodeApplicationOctetString(nil, v)
	tag, consumed, err := DecodeTagNumberAndValue(buf)
	require.NoError(t, err)
	got, err := DecodeOctetString(buf[consumed:], int(tag.LVT))
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestDateTimeRoundTrip(t *testing.T) {
	d := Date{Year: 124, Month: 3, Day: 15, DayOfWeek: 5}
	buf := EncodeApplicationDate(nil, d)
	_, consumed, err := DecodeTagNumberAndValue(buf)
	require.NoError(t, err)
	gotD, err := DecodeDate(buf[consumed:])
	require.NoError(t, err)
	assert.Equal(t, d, gotD)

	tm := Time{Hour: 13, Minute: 5, Second: 59, Hundredths: 0}
	buf = EncodeApplicationTime(nil, tm)
	_, consumed, err = DecodeTagNumberAndValue(buf)
	require.NoError(t, err)
	gotT, err := DecodeTime(buf[consumed:])
	require.NoError(t, err)
	assert.Equal(t, tm, gotT)
}

func TestDecodeTruncatedTag(t *testing.T) {
	_, _, err := DecodeTagNumberAndValue(nil)
	assert.Error(t, err)
}

func TestDecodeNeverReadsPastSlice(t *testing.T) {
	// A tag claiming extended length but with no following bytes must fail
	// cleanly, not panic or read out of bounds.
	buf := []byte{0x2D} // context tag 2, LVT nibble 5 (extended)
	_, _, err := DecodeTagNumberAndValue(buf)
	assert.Error(t, err)
}

func TestClosingTagEscapeIsError(t *testing.T) {
	// LVT 0x0F (extended tag number escape) where a closing tag number is
	// expected is an error, not a silent skip.
	buf := []byte{0xF7, 0x02} // 0xF byte>>4 nibble, low nibble 0x7 (closing-looking) but high nibble signals extended tag number escape
	_, err := DecodeIsClosingTagNumber(buf, 2)
	assert.Error(t, err)
}

func TestEncodeDecodeContextRoundTrip(t *testing.T) {
	buf := EncodeContextUnsigned(nil, 3, 4194303)
	tag, consumed, err := DecodeTagNumberAndValue(buf)
	require.NoError(t, err)
	assert.Equal(t, TagContext, tag.Class)
	assert.EqualValues(t, 3, tag.Number)
	got, err := DecodeUnsigned(buf[consumed:], int(tag.LVT))
	require.NoError(t, err)
	assert.EqualValues(t, 4194303, got)
}
