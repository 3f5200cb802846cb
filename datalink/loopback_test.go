package datalink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rob-gra/go-bacnet/npdu"
)

func TestLoopbackSelfEcho(t *testing.T) {
	a := NewLoopback(npdu.NewMACAddress([]byte{1}))
	require.NoError(t, a.Init(Config{}))

	n, err := a.SendPDU(npdu.Address{}, npdu.Data{}, []byte{0x10, 0x08})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	buf := make([]byte, 32)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	read, from, err := a.Receive(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x08}, buf[:read])
	assert.True(t, from.Equal(a.MyAddress()))
}

func TestLoopbackPeerToPeer(t *testing.T) {
	a := NewLoopback(npdu.NewMACAddress([]byte{1}))
	b := NewLoopback(npdu.NewMACAddress([]byte{2}))
	a.Peer, b.Peer = b, a

	_, err := a.SendPDU(npdu.Address{}, npdu.Data{}, []byte{0xAA})
	require.NoError(t, err)

	buf := make([]byte, 32)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, from, err := b.Receive(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, buf[:n])
	assert.True(t, from.Equal(a.MyAddress()))
}

func TestLoopbackReceiveTimesOutWithoutData(t *testing.T) {
	a := NewLoopback(npdu.NewMACAddress([]byte{1}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := a.Receive(ctx, make([]byte, 8))
	assert.Error(t, err)
}
