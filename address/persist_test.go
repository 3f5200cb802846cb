package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/npdu"
)

type memStore struct {
	blob []byte
}

func (m *memStore) Save(blob []byte) error { m.blob = blob; return nil }
func (m *memStore) Load() ([]byte, error)  { return m.blob, nil }

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	c := New(8)
	addr1 := npdu.NewMACAddress([]byte{192, 168, 1, 44, 0xBA, 0xC0})
	addr2 := npdu.Address{Net: 200, Len: 1, Adr: [npdu.MaxAdrLen]byte{7}}
	require.NoError(t, c.Add(260, addr1, 480))
	require.NoError(t, c.Add(1234, addr2, 1476))
	c.Hold(1234, true)

	var s memStore
	require.NoError(t, c.Snapshot(&s))

	restored := New(8)
	require.NoError(t, restored.Restore(&s))

	got, maxAPDU, ok := restored.Get(260)
	require.True(t, ok)
	assert.True(t, addr1.Equal(got))
	assert.Equal(t, uint32(480), maxAPDU)

	got, maxAPDU, ok = restored.Get(1234)
	require.True(t, ok)
	assert.True(t, addr2.Equal(got))
	assert.Equal(t, uint32(1476), maxAPDU)
}

func TestRestorePreservesHeldFlag(t *testing.T) {
	c := New(4)
	require.NoError(t, c.Add(99, npdu.NewMACAddress([]byte{1}), 50))
	c.Hold(99, true)

	var s memStore
	require.NoError(t, c.Snapshot(&s))

	restored := New(4)
	require.NoError(t, restored.Restore(&s))

	// A held entry never ages out.
	for i := 0; i < DefaultTTLSeconds*2; i++ {
		restored.OnTick()
	}
	_, _, ok := restored.Get(99)
	assert.True(t, ok)
}

func TestRestoreRejectsTruncatedBlob(t *testing.T) {
	var s memStore
	c := New(4)
	require.NoError(t, c.Add(99, npdu.NewMACAddress([]byte{1}), 50))
	require.NoError(t, c.Snapshot(&s))

	s.blob = s.blob[:len(s.blob)-2]
	assert.ErrorIs(t, New(4).Restore(&s), bacerr.ErrTruncated)
}

func TestRestoreRejectsUnknownVersion(t *testing.T) {
	s := memStore{blob: []byte{9, 0, 0}}
	assert.ErrorIs(t, New(4).Restore(&s), bacerr.ErrOutOfRange)
}
