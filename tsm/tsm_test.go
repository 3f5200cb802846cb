package tsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rob-gra/go-bacnet/npdu"
)

func TestAllocateFreeRoundTrip(t *testing.T) {
	m, err := New(DefaultConfig())
	require.NoError(t, err)

	id, err := m.Allocate(npdu.Address{}, npdu.Data{}, []byte{0x01})
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.True(t, m.Busy(id))

	m.Free(id)
	assert.False(t, m.Busy(id))
}

func TestAllocateExhaustion(t *testing.T) {
	m, err := New(Config{MaxTransactions: 2, APDUTimeout: time.Second, Retries: 1})
	require.NoError(t, err)

	_, err = m.Allocate(npdu.Address{}, npdu.Data{}, nil)
	require.NoError(t, err)
	_, err = m.Allocate(npdu.Address{}, npdu.Data{}, nil)
	require.NoError(t, err)
	_, err = m.Allocate(npdu.Address{}, npdu.Data{}, nil)
	assert.Error(t, err)
}

func TestOnAckUnknownInvokeIDIsSilentlyDropped(t *testing.T) {
	m, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, m.OnAck(200))
}

// TestConfirmedRequestRetryScenario: apdu_timeout=3000ms,
// apdu_retries=3, no reply ever arrives. Expect three retransmissions of
// the identical APDU spaced 3000ms apart, then one Timeout callback, then
// the slot is free.
func TestConfirmedRequestRetryScenario(t *testing.T) {
	m, err := New(Config{MaxTransactions: 255, APDUTimeout: 3000 * time.Millisecond, Retries: 3})
	require.NoError(t, err)

	apdu := []byte{0x00, 0x0F, 0x01, 0x0C}
	id, err := m.Allocate(npdu.Address{Net: 0}, npdu.Data{}, apdu)
	require.NoError(t, err)

	var resends [][]byte
	var timedOut []uint8

	tick := func(d time.Duration) {
		m.OnTick(d, func(_ npdu.Address, _ npdu.Data, sent []byte) {
			resends = append(resends, sent)
		}, func(invokeID uint8) {
			timedOut = append(timedOut, invokeID)
		})
	}

	// Advance in 100ms steps so a single tick never straddles two
	// 3000ms boundaries.
	for elapsed := time.Duration(0); elapsed < 3000*time.Millisecond*4; elapsed += 100 * time.Millisecond {
		tick(100 * time.Millisecond)
	}

	require.Len(t, resends, 3, "exactly three retransmissions before timeout")
	for _, sent := range resends {
		assert.Equal(t, apdu, sent)
	}
	require.Len(t, timedOut, 1)
	assert.Equal(t, id, timedOut[0])
	assert.False(t, m.Busy(id))
}
