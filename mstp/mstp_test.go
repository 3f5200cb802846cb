package mstp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHeaderCRCAnnexGSample reproduces the ASHRAE 135 Annex G sample: the header
// CRC of {frame-type=0, dest=255, src=0, length=0} is 0x91.
func TestHeaderCRCAnnexGSample(t *testing.T) {
	got := HeaderCRC([]byte{0, 255, 0, 0, 0})
	assert.Equal(t, byte(0x91), got)
}

// TestDataCRCEmptyString:
// the data CRC of the empty string is 0xFFFF after complement.
func TestDataCRCEmptyString(t *testing.T) {
	got := DataCRC(nil)
	assert.Equal(t, uint16(0xFFFF), got)
}

func TestDataCRCRoundTripAgainstLengthEncoding(t *testing.T) {
	payload := []byte{0x01, 0x0C, 0x02, 0x00, 0x01, 0x04}
	crc := DataCRC(payload)
	assert.NotEqual(t, uint16(0), crc)
}

func frameBytes(frameType, dest, src byte, data []byte) []byte {
	length := len(data)
	header := []byte{frameType, dest, src, byte(length >> 8), byte(length)}
	hdrCRC := HeaderCRC(header)
	out := []byte{preambleByte1, preambleByte2}
	out = append(out, header...)
	out = append(out, hdrCRC)
	if length > 0 {
		out = append(out, data...)
		dCRC := DataCRC(data)
		out = append(out, byte(dCRC), byte(dCRC>>8))
	}
	return out
}

func TestReceiverTokenFrame(t *testing.T) {
	r := NewReceiver(nil)
	wire := frameBytes(byte(FrameToken), 1, 2, nil)

	var got *Frame
	for _, b := range wire {
		if f := r.PutByte(b); f != nil {
			got = f
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, FrameToken, got.Type)
	assert.Equal(t, uint8(1), got.Destination)
	assert.Equal(t, uint8(2), got.Source)
	assert.Empty(t, got.Data)
}

func TestReceiverDataFrameWithPayload(t *testing.T) {
	r := NewReceiver(nil)
	payload := []byte{0xAA, 0xBB, 0xCC}
	wire := frameBytes(byte(FrameBACnetDataNotExpectReply), 255, 5, payload)

	var got *Frame
	for _, b := range wire {
		if f := r.PutByte(b); f != nil {
			got = f
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, FrameBACnetDataNotExpectReply, got.Type)
	assert.Equal(t, payload, got.Data)
}

func TestReceiverRejectsCorruptHeaderCRC(t *testing.T) {
	r := NewReceiver(nil)
	wire := frameBytes(byte(FrameToken), 1, 2, nil)
	wire[len(wire)-1] ^= 0xFF // corrupt the header CRC byte

	var got *Frame
	for _, b := range wire {
		if f := r.PutByte(b); f != nil {
			got = f
		}
	}
	assert.Nil(t, got)
}

func TestReceiverRejectsCorruptDataCRC(t *testing.T) {
	r := NewReceiver(nil)
	wire := frameBytes(byte(FrameBACnetDataNotExpectReply), 1, 2, []byte{0x01, 0x02})
	wire[len(wire)-1] ^= 0xFF

	var got *Frame
	for _, b := range wire {
		if f := r.PutByte(b); f != nil {
			got = f
		}
	}
	assert.Nil(t, got)
}

func TestReceiverAbortResetsToIdle(t *testing.T) {
	r := NewReceiver(nil)
	r.PutByte(preambleByte1)
	r.PutByte(preambleByte2)
	assert.True(t, r.Active())
	r.Abort()
	assert.False(t, r.Active())
}

// TestSoleMasterTokenCycle: a lone master station scans for
// peers, finds none, declares itself sole master, and then cycles forever
// through Idle/UseToken/DoneWithToken.
func TestSoleMasterTokenCycle(t *testing.T) {
	cfg := DefaultConfig(1)
	m := NewMaster(cfg)
	m.Start()
	require.Equal(t, StateIdle, m.State())

	var polled []uint8
	send := func(o Outgoing) {
		if o.Type == FramePollForMaster {
			polled = append(polled, o.Destination)
		}
	}

	// A full 127-candidate sweep at
	// Tusage_timeout=20ms per candidate plus the initial Tno_token wait runs
	// closer to 3s, so the test budgets generously rather than pinning the
	// scenario's rounded figure.
	deadline := 4 * time.Second
	step := 5 * time.Millisecond
	sawPollForMaster := false
	for elapsed := time.Duration(0); elapsed < deadline; elapsed += step {
		if m.State() == StatePollForMaster {
			sawPollForMaster = true
		}
		m.OnTick(step, send)
	}

	require.True(t, sawPollForMaster, "must pass through PollForMaster")
	assert.True(t, m.SoleMaster())
	assert.Equal(t, uint8(1), m.nextStation)
	require.NotEmpty(t, polled)
	assert.Equal(t, uint8(2), polled[0], "first poll candidate is next_station+1")

	// Once settled, the FSM must keep cycling through exactly these three
	// states forever while the bus stays silent.
	seen := map[MasterState]bool{}
	for i := 0; i < 50; i++ {
		seen[m.State()] = true
		m.OnTick(step, send)
	}
	for s := range seen {
		assert.Contains(t, []MasterState{StateIdle, StateUseToken, StateDoneWithToken}, s)
	}
}

func TestConfigValidDefaultsOutOfRangeFields(t *testing.T) {
	cfg := Config{ThisStation: 3, MaxMaster: 200, MaxInfoFrames: 0, ReplyDelay: time.Second}
	require.NoError(t, cfg.Valid())
	assert.Equal(t, uint8(127), cfg.MaxMaster)
	assert.Equal(t, uint8(1), cfg.MaxInfoFrames)
	assert.Equal(t, 250*time.Millisecond, cfg.ReplyDelay)
}
