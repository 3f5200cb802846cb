package mstp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sink collects everything a Master asks to transmit or deliver.
type sink struct {
	sent      []Outgoing
	delivered []Frame
}

func (s *sink) send(o Outgoing) { s.sent = append(s.sent, o) }
func (s *sink) deliver(f Frame) { s.delivered = append(s.delivered, f) }

func startedMaster(station uint8) *Master {
	m := NewMaster(DefaultConfig(station))
	m.Start()
	return m
}

func TestTokenAddressedHereEntersUseToken(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FrameToken, Destination: 3, Source: 7}, s.send, s.deliver)
	assert.Equal(t, StateUseToken, m.State())
}

func TestTokenForAnotherStationIsIgnored(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FrameToken, Destination: 9, Source: 7}, s.send, s.deliver)
	assert.Equal(t, StateIdle, m.State())
}

func TestPollForMasterIsAnsweredFromIdle(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FramePollForMaster, Destination: 3, Source: 7}, s.send, s.deliver)
	require.Len(t, s.sent, 1)
	assert.Equal(t, FrameReplyToPollForMaster, s.sent[0].Type)
	assert.Equal(t, uint8(7), s.sent[0].Destination)
}

func TestDataExpectingReplyEntersAnswerDataRequest(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FrameBACnetDataExpectingReply, Destination: 3, Source: 7, Data: []byte{0x01}}, s.send, s.deliver)
	assert.Equal(t, StateAnswerDataRequest, m.State())
	require.Len(t, s.delivered, 1)
	assert.Equal(t, []byte{0x01}, s.delivered[0].Data)
}

func TestAnswerDataRequestSendsReplyPostponedOnDelayExpiry(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FrameBACnetDataExpectingReply, Destination: 3, Source: 7}, s.send, s.deliver)

	for elapsed := time.Duration(0); elapsed <= 250*time.Millisecond; elapsed += 10 * time.Millisecond {
		m.OnTick(10*time.Millisecond, s.send)
	}
	require.NotEmpty(t, s.sent)
	last := s.sent[len(s.sent)-1]
	assert.Equal(t, FrameReplyPostponed, last.Type)
	assert.Equal(t, uint8(7), last.Destination)
	assert.Equal(t, StateIdle, m.State())
}

func TestAnswerDataRequestReplyDeliveredShortCircuitsDelay(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FrameBACnetDataExpectingReply, Destination: 3, Source: 7}, s.send, s.deliver)

	m.ReplyDelivered(s.send, Outgoing{Type: FrameBACnetDataNotExpectReply, Destination: 7, Data: []byte{0x20}})
	require.Len(t, s.sent, 1)
	assert.Equal(t, FrameBACnetDataNotExpectReply, s.sent[0].Type)
	assert.Equal(t, StateIdle, m.State())
}

func TestWaitForReplyTimesOutToDoneWithToken(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FrameToken, Destination: 3, Source: 7}, s.send, s.deliver)
	require.Equal(t, StateUseToken, m.State())

	m.NextOutbound = func() *Outgoing {
		m.NextOutbound = nil
		return &Outgoing{Type: FrameBACnetDataExpectingReply, Destination: 9, Data: []byte{0x05}}
	}
	m.OnTick(time.Millisecond, s.send)
	require.Equal(t, StateWaitForReply, m.State())

	for elapsed := time.Duration(0); elapsed <= TreplyTimeout; elapsed += 10 * time.Millisecond {
		m.OnTick(10*time.Millisecond, s.send)
	}
	assert.Equal(t, StateDoneWithToken, m.State())
}

func TestWaitForReplyAcceptsReplyAndMovesToDoneWithToken(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FrameToken, Destination: 3, Source: 7}, s.send, s.deliver)
	m.NextOutbound = func() *Outgoing {
		m.NextOutbound = nil
		return &Outgoing{Type: FrameBACnetDataExpectingReply, Destination: 9}
	}
	m.OnTick(time.Millisecond, s.send)
	require.Equal(t, StateWaitForReply, m.State())

	m.OnFrame(Frame{Type: FrameBACnetDataNotExpectReply, Destination: 3, Source: 9, Data: []byte{0x30}}, s.send, s.deliver)
	require.Len(t, s.delivered, 1)
	assert.Equal(t, StateDoneWithToken, m.State())
}

func TestWaitForReplyPostponedReturnsImmediately(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FrameToken, Destination: 3, Source: 7}, s.send, s.deliver)
	m.NextOutbound = func() *Outgoing {
		m.NextOutbound = nil
		return &Outgoing{Type: FrameBACnetDataExpectingReply, Destination: 9}
	}
	m.OnTick(time.Millisecond, s.send)

	m.OnFrame(Frame{Type: FrameReplyPostponed, Destination: 3, Source: 9}, s.send, s.deliver)
	assert.Equal(t, StateDoneWithToken, m.State())
}

func TestPassTokenRetriesThenGivesUpToNoToken(t *testing.T) {
	m := startedMaster(3)
	var s sink
	m.OnFrame(Frame{Type: FrameToken, Destination: 3, Source: 7}, s.send, s.deliver)
	m.OnTick(time.Millisecond, s.send) // UseToken with nothing queued -> DoneWithToken
	m.OnTick(time.Millisecond, s.send) // DoneWithToken -> PassToken, first token frame out

	tokens := 0
	for _, o := range s.sent {
		if o.Type == FrameToken {
			tokens++
		}
	}
	require.Equal(t, 1, tokens)

	// Silence past Tusage_timeout triggers one retry, then NoToken.
	for elapsed := time.Duration(0); elapsed <= 2*TusageTimeout+10*time.Millisecond; elapsed += 5 * time.Millisecond {
		m.OnTick(5*time.Millisecond, s.send)
	}
	tokens = 0
	for _, o := range s.sent {
		if o.Type == FrameToken {
			tokens++
		}
	}
	assert.Equal(t, 2, tokens, "exactly one token retry")
	assert.Equal(t, StateNoToken, m.State())
}

func TestReplyToPollUpdatesNextStation(t *testing.T) {
	m := startedMaster(1)
	var s sink

	// Drive into PollForMaster via the no-token silence path.
	for elapsed := time.Duration(0); elapsed <= TnoToken+time.Duration(1)*Tslot; elapsed += 10 * time.Millisecond {
		m.OnTick(10*time.Millisecond, s.send)
	}
	require.Equal(t, StatePollForMaster, m.State())

	m.OnFrame(Frame{Type: FrameReplyToPollForMaster, Destination: 1, Source: 5}, s.send, s.deliver)
	assert.Equal(t, uint8(5), m.nextStation)
	assert.False(t, m.SoleMaster())
	assert.Equal(t, StateDoneWithToken, m.State())
}
