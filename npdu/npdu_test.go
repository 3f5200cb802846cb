package npdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	dest := Address{Net: 2002}
	dest.MACLen = uint8(copy(dest.MAC[:], []byte{0x01}))
	src := Address{Net: 0}

	apdu := []byte{0x10, 0x08}
	buf := Encode(nil, &dest, &src, Data{Priority: PriorityNormal})
	buf = append(buf, apdu...)

	gotDest, _, _, off, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, dest.Net, gotDest.Net)
	assert.Equal(t, apdu, buf[off:])
}

func TestEncodeDecodeNoSpecifiers(t *testing.T) {
	apdu := []byte{0x10, 0x00}
	buf := Encode(nil, nil, nil, Data{})
	buf = append(buf, apdu...)

	dest, src, _, off, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, NetworkLocal, dest.Net)
	assert.Equal(t, NetworkLocal, src.Net)
	assert.Equal(t, apdu, buf[off:])
}

func TestRouterLocalDelivery(t *testing.T) {
	buf := Encode(nil, nil, nil, Data{})
	buf = append(buf, 0x10, 0x08)

	r := &Router{}
	_, _, _, body, local, err := r.Route(buf)
	require.NoError(t, err)
	assert.True(t, local)
	assert.Equal(t, []byte{0x10, 0x08}, body)
}

func TestRouterDiscardsForeignNetwork(t *testing.T) {
	dest := Address{Net: 99}
	buf := Encode(nil, &dest, nil, Data{})
	buf = append(buf, 0x10, 0x08)

	r := &Router{}
	_, _, _, _, local, err := r.Route(buf)
	require.NoError(t, err)
	assert.False(t, local)
}

func TestRouterGlobalBroadcastIsLocal(t *testing.T) {
	dest := Address{Net: NetworkGlobalBroadcast}
	buf := Encode(nil, &dest, nil, Data{})
	buf = append(buf, 0x10, 0x08)

	r := &Router{}
	_, _, _, _, local, err := r.Route(buf)
	require.NoError(t, err)
	assert.True(t, local)
}

func TestRouterNetworkLayerMessageBypassesAPDU(t *testing.T) {
	mt := NetWhoIsRouterToNetwork
	buf := Encode(nil, nil, nil, Data{NetworkLayerMessage: true, MessageType: &mt})

	var gotBody []byte
	r := &Router{NetworkLayerHandler: func(_ Data, _ Address, body []byte) {
		gotBody = body
	}}
	_, _, _, _, local, err := r.Route(buf)
	require.NoError(t, err)
	assert.False(t, local)
	assert.Equal(t, []byte{}, gotBody)
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	_, _, _, _, err := Decode([]byte{0x02, 0x00})
	assert.Error(t, err)
}

func TestDecodeTruncated(t *testing.T) {
	_, _, _, _, err := Decode([]byte{0x01})
	assert.Error(t, err)
}

func TestAddressEqual(t *testing.T) {
	a := NewMACAddress([]byte{1, 2, 3})
	b := NewMACAddress([]byte{1, 2, 3})
	c := NewMACAddress([]byte{1, 2, 4})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
