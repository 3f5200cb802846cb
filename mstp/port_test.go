package mstp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rob-gra/go-bacnet/datalink"
	"github.com/rob-gra/go-bacnet/npdu"
)

func TestPortEncodesAndReceivesPDU(t *testing.T) {
	connA, connB := net.Pipe()
	defer connA.Close()
	defer connB.Close()

	cfgA := DefaultConfig(1)
	cfgB := DefaultConfig(2)
	a := NewPort(connA, cfgA, nil)
	b := NewPort(connB, cfgB, nil)

	// Drive station 1's master straight to sole-mastership so its outbound
	// queue actually gets sent instead of waiting out a full Tno_token
	// sweep; set before Init starts the driving goroutine to avoid racing
	// it.
	a.master.soleMaster = true
	a.master.nextStation = 1
	a.master.state = StateIdle

	require.NoError(t, a.Init(datalink.Config{}))
	require.NoError(t, b.Init(datalink.Config{}))
	defer a.Cleanup()
	defer b.Cleanup()

	dest := npdu.NewMACAddress([]byte{2})
	n, err := a.SendPDU(dest, npdu.Data{}, []byte{0xAA, 0xBB})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	buf := make([]byte, 32)
	read, from, err := b.Receive(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, buf[:read])
	assert.Equal(t, uint8(1), from.MAC[0])
}

func TestPortBroadcastAddressIsStation0xFF(t *testing.T) {
	connA, connB := net.Pipe()
	defer connA.Close()
	defer connB.Close()
	p := NewPort(connA, DefaultConfig(5), nil)
	_ = connB
	assert.Equal(t, uint8(0xFF), p.BroadcastAddress().MAC[0])
	assert.Equal(t, uint8(5), p.MyAddress().MAC[0])
}
