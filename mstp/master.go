package mstp

import (
	"time"

	"github.com/rob-gra/go-bacnet/bnetlog"
)

// MasterState is the token-passing FSM's state, ASHRAE 135 Clause 9.5.3.
type MasterState int

const (
	StateInitialize MasterState = iota
	StateIdle
	StateUseToken
	StateWaitForReply
	StateDoneWithToken
	StatePassToken
	StateNoToken
	StatePollForMaster
	StateAnswerDataRequest
)

func (s MasterState) String() string {
	switch s {
	case StateInitialize:
		return "Initialize"
	case StateIdle:
		return "Idle"
	case StateUseToken:
		return "UseToken"
	case StateWaitForReply:
		return "WaitForReply"
	case StateDoneWithToken:
		return "DoneWithToken"
	case StatePassToken:
		return "PassToken"
	case StateNoToken:
		return "NoToken"
	case StatePollForMaster:
		return "PollForMaster"
	case StateAnswerDataRequest:
		return "AnswerDataRequest"
	default:
		return "Unknown"
	}
}

// Timers, ASHRAE 135 Clause 9.5.
const (
	TnoToken      = 500 * time.Millisecond
	TusageTimeout = 20 * time.Millisecond
	TreplyTimeout = 255 * time.Millisecond
	Tslot         = 10 * time.Millisecond
	TframeAbort   = 60 * time.Millisecond
	NretryToken   = 1
)

// Config configures one MS/TP master-node port.
type Config struct {
	ThisStation   uint8 // 0-127
	MaxMaster     uint8 // <= 127
	MaxInfoFrames uint8
	Baud          uint32
	ReplyDelay    time.Duration // Treply_delay <= 250ms
}

// DefaultConfig returns a Config with a single, max-master=127 segment and
// one info frame held per token visit, the common minimal deployment.
func DefaultConfig(thisStation uint8) Config {
	return Config{
		ThisStation:   thisStation,
		MaxMaster:     127,
		MaxInfoFrames: 1,
		Baud:          38400,
		ReplyDelay:    250 * time.Millisecond,
	}
}

// Valid defaults and range-checks cfg in place.
func (c *Config) Valid() error {
	if c.MaxMaster > 127 {
		c.MaxMaster = 127
	}
	if c.MaxInfoFrames == 0 {
		c.MaxInfoFrames = 1
	}
	if c.ReplyDelay <= 0 || c.ReplyDelay > 250*time.Millisecond {
		c.ReplyDelay = 250 * time.Millisecond
	}
	return nil
}

// Outgoing is a frame the Master FSM wants transmitted. Send is supplied by
// the caller (the owning stack value); Master never touches the datalink
// itself.
type Outgoing struct {
	Type        FrameType
	Destination uint8
	Data        []byte
}

// Send transmits one frame; Deliver hands a locally-addressed data frame to
// the NPDU layer for further processing.
type Send func(Outgoing)
type Deliver func(Frame)

// Master implements the token-passing FSM for one MS/TP port.
type Master struct {
	cfg Config

	state       MasterState
	nextStation uint8
	pollStation uint8
	soleMaster  bool
	tokenCount  int
	frameCount  uint8

	silenceTimer time.Duration
	replyTimer   time.Duration
	usageTimer   time.Duration
	retryCount   int

	pendingReply *Frame

	// NextOutbound, if set, lets the owning Port hand the FSM a queued
	// application frame to send while it holds the token; nil means
	// nothing is queued.
	NextOutbound func() *Outgoing

	log bnetlog.Log
}

// NewMaster builds a Master in the Initialize state. cfg is validated (and
// defaulted) in place.
func NewMaster(cfg Config) *Master {
	cfg.Valid()
	return &Master{
		cfg:         cfg,
		state:       StateInitialize,
		nextStation: cfg.ThisStation,
		pollStation: cfg.ThisStation,
		log:         bnetlog.New("mstp.master"),
	}
}

// State returns the FSM's current state, mainly for tests and diagnostics.
func (m *Master) State() MasterState {
	return m.state
}

// SoleMaster reports whether a full poll-for-master sweep has found no
// other masters on the bus.
func (m *Master) SoleMaster() bool {
	return m.soleMaster
}

// Start transitions out of Initialize into Idle, per ASHRAE 135 the FSM's
// entry point.
func (m *Master) Start() {
	if m.state == StateInitialize {
		m.state = StateIdle
		m.silenceTimer = 0
	}
}

// OnFrame feeds one completed MS/TP frame (from a Receiver) into the FSM.
// deliver is called for any frame addressed to this station that the
// application layer should see.
func (m *Master) OnFrame(f Frame, send Send, deliver Deliver) {
	m.silenceTimer = 0

	switch m.state {
	case StateIdle:
		m.handleIdleFrame(f, send, deliver)
	case StateWaitForReply:
		m.handleWaitForReplyFrame(f, deliver)
	case StatePassToken:
		// Any traffic seen right after passing the token means it was heard;
		// the FSM watches the bus in OnTick via usageTimer rather than here.
	case StateNoToken, StatePollForMaster:
		m.handlePollFrame(f)
	}
}

func (m *Master) handleIdleFrame(f Frame, send Send, deliver Deliver) {
	switch f.Type {
	case FrameToken:
		if f.Destination == m.cfg.ThisStation {
			m.state = StateUseToken
			m.frameCount = 0
			m.tokenCount = 0
		}
	case FramePollForMaster:
		if f.Destination == m.cfg.ThisStation {
			send(Outgoing{Type: FrameReplyToPollForMaster, Destination: f.Source})
		}
	case FrameBACnetDataExpectingReply, FrameTestRequest:
		if f.Destination == m.cfg.ThisStation {
			m.state = StateAnswerDataRequest
			m.replyTimer = m.cfg.ReplyDelay
			m.pendingReply = &f
			deliver(f)
		}
	case FrameBACnetDataNotExpectReply:
		if f.Destination == m.cfg.ThisStation || f.Destination == 0xFF {
			deliver(f)
		}
	case FrameReplyToPollForMaster:
		m.soleMaster = false
	}
}

// handleWaitForReplyFrame handles a frame seen while this station awaits the
// reply to a data frame it just sent. MS/TP carries the reply APDU opaquely
// inside a BACnet-data-(not-)expecting-reply frame; matching it to the
// outstanding request is the NPDU/APDU layer's job (via TSM), not this
// FSM's, so any such frame addressed here ends the wait.
func (m *Master) handleWaitForReplyFrame(f Frame, deliver Deliver) {
	if f.Destination != m.cfg.ThisStation {
		return
	}
	switch f.Type {
	case FrameReplyPostponed:
		m.state = StateDoneWithToken
	case FrameBACnetDataExpectingReply, FrameBACnetDataNotExpectReply, FrameTestResponse:
		deliver(f)
		m.state = StateDoneWithToken
	}
}

func (m *Master) handlePollFrame(f Frame) {
	if f.Type == FrameReplyToPollForMaster {
		m.nextStation = f.Source
		m.soleMaster = false
		m.state = StateDoneWithToken
	}
}

// OnTick advances every running timer by elapsed and drives the FSM's
// time-based transitions: usage/reply timeouts, Tno_token, and Tslot-paced
// polling.
func (m *Master) OnTick(elapsed time.Duration, send Send) {
	m.silenceTimer += elapsed

	switch m.state {
	case StateInitialize:
		m.Start()
	case StateIdle:
		m.onIdleTick(send)
	case StateUseToken:
		m.onUseToken(send)
	case StateWaitForReply:
		m.replyTimer -= elapsed
		if m.replyTimer <= 0 {
			m.log.Debug("reply timeout on station %d", m.cfg.ThisStation)
			m.state = StateDoneWithToken
		}
	case StateDoneWithToken:
		if m.soleMaster && m.nextStation == m.cfg.ThisStation {
			// Nothing else to pass the token to: go back through Idle and
			// immediately reclaim it.
			m.state = StateIdle
			break
		}
		if m.tokenCount >= 50 {
			m.tokenCount = 0
			m.pollStation = m.nextStation
			m.state = StatePollForMaster
			break
		}
		m.tokenCount++
		m.state = StatePassToken
		m.usageTimer = TusageTimeout
		send(Outgoing{Type: FrameToken, Destination: m.nextStation})
	case StatePassToken:
		m.usageTimer -= elapsed
		if m.usageTimer <= 0 {
			if m.retryCount < NretryToken {
				m.retryCount++
				m.usageTimer = TusageTimeout
				send(Outgoing{Type: FrameToken, Destination: m.nextStation})
				break
			}
			m.retryCount = 0
			m.state = StateNoToken
			m.silenceTimer = 0
		}
	case StateNoToken:
		threshold := TnoToken + time.Duration(m.cfg.ThisStation)*Tslot
		if m.silenceTimer >= threshold {
			m.pollStation = (m.cfg.ThisStation + 1) % (uint8(m.cfg.MaxMaster) + 1)
			m.state = StatePollForMaster
			m.silenceTimer = 0
			send(Outgoing{Type: FramePollForMaster, Destination: m.pollStation})
			m.usageTimer = TusageTimeout
		}
	case StatePollForMaster:
		m.usageTimer -= elapsed
		if m.usageTimer <= 0 {
			next := (m.pollStation + 1) % (uint8(m.cfg.MaxMaster) + 1)
			if next == m.cfg.ThisStation || m.pollStation == m.cfg.ThisStation {
				m.soleMaster = true
				m.nextStation = m.cfg.ThisStation
				m.state = StateUseToken
				break
			}
			m.pollStation = next
			send(Outgoing{Type: FramePollForMaster, Destination: m.pollStation})
			m.usageTimer = TusageTimeout
		}
	case StateAnswerDataRequest:
		m.replyTimer -= elapsed
		if m.replyTimer <= 0 {
			send(Outgoing{Type: FrameReplyPostponed, Destination: m.pendingReplySource()})
			m.state = StateIdle
		}
	}
}

func (m *Master) pendingReplySource() uint8 {
	if m.pendingReply != nil {
		return m.pendingReply.Source
	}
	return 0
}

// onIdleTick handles the FSM's two ways out of Idle: a sole master
// immediately reclaiming the token it just released, or a poll-for-master
// sweep once the bus has been silent for the Tno_token + N*Tslot
// threshold.
func (m *Master) onIdleTick(send Send) {
	if m.soleMaster && m.nextStation == m.cfg.ThisStation {
		m.state = StateUseToken
		m.frameCount = 0
		return
	}
	threshold := TnoToken + time.Duration(m.cfg.ThisStation)*Tslot
	if m.silenceTimer >= threshold {
		m.pollStation = (m.cfg.ThisStation + 1) % (uint8(m.cfg.MaxMaster) + 1)
		m.state = StatePollForMaster
		m.silenceTimer = 0
		send(Outgoing{Type: FramePollForMaster, Destination: m.pollStation})
		m.usageTimer = TusageTimeout
	}
}

func (m *Master) onUseToken(send Send) {
	if m.frameCount >= m.cfg.MaxInfoFrames {
		m.state = StateDoneWithToken
		return
	}
	if m.NextOutbound != nil {
		if out := m.NextOutbound(); out != nil {
			m.frameCount++
			send(*out)
			if out.Type == FrameBACnetDataExpectingReply || out.Type == FrameTestRequest {
				m.state = StateWaitForReply
				m.replyTimer = TreplyTimeout
			}
			return
		}
	}
	m.state = StateDoneWithToken
}

// ReplyDelivered signals that AnswerDataRequest's pending reply has been
// produced by the application layer and should be sent now rather than
// waiting out Treply_delay.
func (m *Master) ReplyDelivered(send Send, reply Outgoing) {
	if m.state != StateAnswerDataRequest {
		return
	}
	send(reply)
	m.state = StateIdle
	m.pendingReply = nil
}
