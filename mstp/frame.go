// Package mstp implements the MS/TP datalink, ASHRAE 135 clause 9: the
// frame-synchronisation receive FSM that turns a byte stream into framed
// PDUs, and the token-passing master-node FSM that drives bus access on
// top of it. Both are pure state machines fed one byte or
// one tick at a time; they own no goroutines and perform no I/O
// themselves, keeping the protocol machinery and the transport in
// separate layers.
package mstp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rob-gra/go-bacnet/bnetlog"
)

// FrameType identifies the MS/TP frame-type octet, ASHRAE 135 Table 9-1.
type FrameType uint8

const (
	FrameToken                    FrameType = 0
	FramePollForMaster            FrameType = 1
	FrameReplyToPollForMaster     FrameType = 2
	FrameTestRequest              FrameType = 3
	FrameTestResponse             FrameType = 4
	FrameBACnetDataExpectingReply FrameType = 5
	FrameBACnetDataNotExpectReply FrameType = 6
	FrameReplyPostponed           FrameType = 7
)

// IsProprietary reports whether t is a vendor-specific frame type (>= 128),
// which the FSM passes through transparently.
func (t FrameType) IsProprietary() bool {
	return t >= 128
}

const (
	preambleByte1 = 0x55
	preambleByte2 = 0xFF
	headerLen     = 5 // frame-type, destination, source, length-hi, length-lo
)

// receiveState is the frame-synchronisation FSM's state, ASHRAE 135
// clause 9.5.2.
type receiveState int

const (
	stateIdle receiveState = iota
	statePreamble
	stateHeader
	stateHeaderCRC
	stateData
	stateDataCRC
	stateFrameReady
	stateAborted
)

// Frame is one fully-synchronised MS/TP frame delivered to the caller.
type Frame struct {
	Type        FrameType
	Destination uint8
	Source      uint8
	Data        []byte
}

// Metrics are the frame-sync FSM's Prometheus counters:
// malformed inbound frames update counters only and never reach the
// application.
type Metrics struct {
	InvalidFrameCount prometheus.Counter
	FrameAbortCount   prometheus.Counter
}

// NewMetrics registers the two frame-sync counters under reg, labelled by
// the owning station's MAC address.
func NewMetrics(reg prometheus.Registerer, station uint8) *Metrics {
	m := &Metrics{
		InvalidFrameCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bacnet",
			Subsystem:   "mstp",
			Name:        "invalid_frame_total",
			Help:        "MS/TP frames dropped for header or data CRC failure.",
			ConstLabels: prometheus.Labels{"station": stationLabel(station)},
		}),
		FrameAbortCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "bacnet",
			Subsystem:   "mstp",
			Name:        "frame_abort_total",
			Help:        "MS/TP frame-sync resets caused by Tframe_abort silence.",
			ConstLabels: prometheus.Labels{"station": stationLabel(station)},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.InvalidFrameCount, m.FrameAbortCount)
	}
	return m
}

func stationLabel(station uint8) string {
	const hex = "0123456789abcdef"
	return string([]byte{'0', 'x', hex[station>>4], hex[station&0xf]})
}

// Receiver drives the frame-synchronisation FSM one octet at a time.
type Receiver struct {
	state   receiveState
	header  [headerLen]byte
	headerN int
	hdrCRC  byte
	data    []byte
	dataLen int
	dataCRC uint16

	metrics *Metrics
	log     bnetlog.Log
}

// NewReceiver builds a Receiver. metrics may be nil, in which case counters
// are not recorded (e.g. in tests).
func NewReceiver(metrics *Metrics) *Receiver {
	return &Receiver{metrics: metrics, log: bnetlog.New("mstp")}
}

// PutByte folds one received octet into the FSM. It returns the completed
// frame once one is ready; frame is nil on every other call.
func (r *Receiver) PutByte(b byte) (frame *Frame) {
	switch r.state {
	case stateIdle:
		if b == preambleByte1 {
			r.state = statePreamble
		}
	case statePreamble:
		if b == preambleByte2 {
			r.state = stateHeader
			r.headerN = 0
			r.hdrCRC = HeaderCRCInit
		} else {
			r.state = stateIdle
		}
	case stateHeader:
		r.header[r.headerN] = b
		r.hdrCRC = HeaderCRCStep(b, r.hdrCRC)
		r.headerN++
		if r.headerN == headerLen {
			r.state = stateHeaderCRC
		}
	case stateHeaderCRC:
		expect := reflect8(r.hdrCRC) ^ 0xFF
		if b != expect {
			r.invalidFrame("header CRC mismatch")
			r.state = stateIdle
			return nil
		}
		length := int(r.header[3])<<8 | int(r.header[4])
		if length == 0 {
			return r.completeFrame()
		}
		r.dataLen = length
		r.data = make([]byte, 0, length)
		r.dataCRC = DataCRCInit
		r.state = stateData
	case stateData:
		r.data = append(r.data, b)
		r.dataCRC = DataCRCStep(b, r.dataCRC)
		if len(r.data) == r.dataLen {
			r.state = stateDataCRC
			r.headerN = 0 // reuse as a 2-byte CRC counter
		}
	case stateDataCRC:
		r.headerN++
		if r.headerN == 1 {
			// low byte received first, per the wire format; kept in the
			// header-CRC register, which is free once the header checked out
			r.hdrCRC = b
			return nil
		}
		expect := reflect16(r.dataCRC) ^ 0xFFFF
		got := uint16(r.hdrCRC) | uint16(b)<<8
		if got != expect {
			r.invalidFrame("data CRC mismatch")
			r.state = stateIdle
			return nil
		}
		return r.completeFrame()
	}
	return nil
}

// EncodeFrame serializes a frame for transmission: preamble, 5-byte header,
// header CRC, and (if data is non-empty) the data followed by its CRC, low
// byte first. It is the mirror image of Receiver.PutByte's parse.
func EncodeFrame(frameType FrameType, destination, source uint8, data []byte) []byte {
	header := [headerLen]byte{
		byte(frameType), destination, source,
		byte(len(data) >> 8), byte(len(data)),
	}
	out := make([]byte, 0, 2+headerLen+1+len(data)+2)
	out = append(out, preambleByte1, preambleByte2)
	out = append(out, header[:]...)
	out = append(out, HeaderCRC(header[:]))
	if len(data) > 0 {
		out = append(out, data...)
		crc := DataCRC(data)
		out = append(out, byte(crc), byte(crc>>8))
	}
	return out
}

func (r *Receiver) completeFrame() *Frame {
	f := &Frame{
		Type:        FrameType(r.header[0]),
		Destination: r.header[1],
		Source:      r.header[2],
		Data:        r.data,
	}
	r.reset()
	return f
}

// Abort resets the FSM to Idle after Tframe_abort elapses without a byte.
func (r *Receiver) Abort() {
	if r.state != stateIdle {
		if r.metrics != nil {
			r.metrics.FrameAbortCount.Inc()
		}
		r.log.Debug("frame abort: silence while in state %d", r.state)
	}
	r.reset()
}

// Active reports whether the FSM is mid-frame (i.e. a Tframe_abort timeout
// applies).
func (r *Receiver) Active() bool {
	return r.state != stateIdle
}

func (r *Receiver) reset() {
	r.state = stateIdle
	r.headerN = 0
	r.data = nil
	r.dataLen = 0
}

func (r *Receiver) invalidFrame(reason string) {
	if r.metrics != nil {
		r.metrics.InvalidFrameCount.Inc()
	}
	r.log.Debug("invalid frame: %s", reason)
}
