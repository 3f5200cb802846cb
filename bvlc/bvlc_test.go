package bvlc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rob-gra/go-bacnet/bacerr"
)

func TestOriginalUnicastNPDURoundTrip(t *testing.T) {
	npdu := []byte{0x01, 0x00, 0x10, 0x08}
	buf := Encode(nil, Message{Function: FuncOriginalUnicastNPDU, Payload: npdu})

	assert.Equal(t, []byte{0x81, 0x0A, 0x00, 0x08}, buf[:4])

	m, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, FuncOriginalUnicastNPDU, m.Function)
	assert.Equal(t, npdu, m.Payload)
}

func TestOriginalBroadcastNPDUHeader(t *testing.T) {
	buf := Encode(nil, Message{Function: FuncOriginalBroadcastNPDU, Payload: []byte{0x01, 0x20}})
	assert.Equal(t, byte(0x81), buf[0])
	assert.Equal(t, byte(0x0B), buf[1])
	assert.Equal(t, 6, len(buf))
}

func TestForwardedNPDUCarriesOrigin(t *testing.T) {
	origin := BIPAddress{IP: [4]byte{192, 168, 1, 44}, Port: 0xBAC0}
	npdu := []byte{0x01, 0x00}
	buf := Encode(nil, Message{Function: FuncForwardedNPDU, Origin: origin, Payload: npdu})

	m, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, origin, m.Origin)
	assert.Equal(t, npdu, m.Payload)
}

func TestRegisterForeignDeviceTTL(t *testing.T) {
	buf := Encode(nil, Message{Function: FuncRegisterForeignDevice, TTL: 300})
	assert.Equal(t, []byte{0x81, 0x05, 0x00, 0x06, 0x01, 0x2C}, buf)

	m, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(300), m.TTL)
}

func TestResultRoundTrip(t *testing.T) {
	buf := Encode(nil, Message{Function: FuncResult, Result: ResultRegisterForeignDeviceNAK})
	m, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, ResultRegisterForeignDeviceNAK, m.Result)
}

func TestDecodeRejectsWrongType(t *testing.T) {
	_, err := Decode([]byte{0x82, 0x0A, 0x00, 0x04})
	assert.ErrorIs(t, err, bacerr.ErrInvalidTag)
}

func TestDecodeRejectsOverlongDeclaredLength(t *testing.T) {
	_, err := Decode([]byte{0x81, 0x0A, 0x00, 0x10, 0x01})
	assert.ErrorIs(t, err, bacerr.ErrInvalidLength)
}

func TestDecodeTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{0x81, 0x0A})
	assert.ErrorIs(t, err, bacerr.ErrTruncated)
}

func TestBVLC6UnicastRoundTrip(t *testing.T) {
	m := Message6{
		Function:    Func6OriginalUnicastNPDU,
		Source:      VMAC{0x00, 0x00, 0x01},
		Destination: VMAC{0x00, 0x00, 0x02},
		Payload:     []byte{0x01, 0x00, 0x10, 0x08},
	}
	buf := Encode6(nil, m)
	assert.Equal(t, byte(0x82), buf[0])

	got, err := Decode6(buf)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestBVLC6ForwardedNPDUCarriesFullOrigin(t *testing.T) {
	var origin BIP6Address
	origin.IP[15] = 0x44
	origin.Port = 0xBAC0
	buf := Encode6(nil, Message6{Function: Func6ForwardedNPDU, Origin: origin, Payload: []byte{0x01, 0x00}})

	got, err := Decode6(buf)
	require.NoError(t, err)
	assert.Equal(t, origin, got.Origin)
	assert.Equal(t, []byte{0x01, 0x00}, got.Payload)
}

func TestBVLC6RegisterForeignDevice(t *testing.T) {
	buf := Encode6(nil, Message6{Function: Func6RegisterForeignDevice, Source: VMAC{1, 2, 3}, TTL: 60})
	got, err := Decode6(buf)
	require.NoError(t, err)
	assert.Equal(t, VMAC{1, 2, 3}, got.Source)
	assert.Equal(t, uint16(60), got.TTL)
}

func TestBVLC6DistributeBroadcast(t *testing.T) {
	buf := Encode6(nil, Message6{Function: Func6DistributeBroadcastToNetwork, Source: VMAC{9, 9, 9}, Payload: []byte{0x01, 0x20}})
	got, err := Decode6(buf)
	require.NoError(t, err)
	assert.Equal(t, VMAC{9, 9, 9}, got.Source)
	assert.Equal(t, []byte{0x01, 0x20}, got.Payload)
}
