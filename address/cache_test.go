package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/npdu"
)

func TestAddGetRoundTrip(t *testing.T) {
	c := New(4)
	addr := npdu.NewMACAddress([]byte{192, 168, 1, 10, 0xBA, 0xC0})
	require.NoError(t, c.Add(260, addr, 480))

	got, maxAPDU, ok := c.Get(260)
	require.True(t, ok)
	assert.True(t, addr.Equal(got))
	assert.EqualValues(t, 480, maxAPDU)
	assert.Equal(t, 1, c.Count())
}

func TestBindRequestNotBound(t *testing.T) {
	c := New(4)
	_, _, err := c.BindRequest(999)
	assert.ErrorIs(t, err, bacerr.ErrNotBound)
}

func TestEvictsOldestNonHeldWhenFull(t *testing.T) {
	c := New(2)
	require.NoError(t, c.Add(1, npdu.Address{}, 50))
	require.NoError(t, c.Add(2, npdu.Address{}, 50))
	require.NoError(t, c.Add(3, npdu.Address{}, 50)) // evicts device 1

	_, _, ok := c.Get(1)
	assert.False(t, ok)
	_, _, ok = c.Get(2)
	assert.True(t, ok)
	_, _, ok = c.Get(3)
	assert.True(t, ok)
}

func TestCacheFullWhenAllHeld(t *testing.T) {
	c := New(1)
	require.NoError(t, c.Add(1, npdu.Address{}, 50))
	c.Hold(1, true)

	err := c.Add(2, npdu.Address{}, 50)
	assert.ErrorIs(t, err, bacerr.ErrCacheFull)
}

// TestTTLExpiry reproduces the scenario: add device 1234 with TTL 60s,
// advance 59 ticks (still present), advance one more (removed, re-bind
// yields NotBound).
func TestTTLExpiry(t *testing.T) {
	c := New(4)
	require.NoError(t, c.AddWithTTL(1234, npdu.Address{}, 50, 60))

	for i := 0; i < 59; i++ {
		c.OnTick()
	}
	_, _, ok := c.Get(1234)
	assert.True(t, ok, "entry should survive 59 ticks of a 60s TTL")

	c.OnTick()
	_, _, ok = c.Get(1234)
	assert.False(t, ok, "entry should expire on the 60th tick")

	_, _, err := c.BindRequest(1234)
	assert.ErrorIs(t, err, bacerr.ErrNotBound)
}

func TestHeldEntryNeverAges(t *testing.T) {
	c := New(4)
	require.NoError(t, c.AddWithTTL(5, npdu.Address{}, 50, 1))
	c.Hold(5, true)
	for i := 0; i < 1000; i++ {
		c.OnTick()
	}
	_, _, ok := c.Get(5)
	assert.True(t, ok)
}

// TestUnboundedIAmNeverExceedsCapacity is property 7: under an unbounded
// stream of bindings, the cache never exceeds capacity and never evicts a
// held entry.
func TestUnboundedIAmNeverExceedsCapacity(t *testing.T) {
	c := New(8)
	require.NoError(t, c.Add(1, npdu.Address{}, 50))
	c.Hold(1, true)

	for i := uint32(2); i < 10000; i++ {
		_ = c.Add(i, npdu.Address{}, 50)
		assert.LessOrEqual(t, c.Count(), 8)
	}
	_, _, ok := c.Get(1)
	assert.True(t, ok, "held entry must never be evicted")
}
