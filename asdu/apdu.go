package asdu

import (
	"github.com/pkg/errors"
	"github.com/rob-gra/go-bacnet/bacerr"
)

// PDU is the discriminated record produced by Decode: the invoke-id (where
// present), the service-choice byte, the service parameters slice, and any
// flags. Only the fields meaningful for Type are valid;
// the rest are zero.
type PDU struct {
	Type PDUType

	// Confirmed-Request only.
	SegmentedMessage          bool
	MoreFollows               bool
	SegmentedResponseAccepted bool
	MaxSegs                   MaxSegmentsAccepted
	MaxResp                   MaxAPDUAccepted

	// Confirmed-Request, Complex-ACK, Segment-ACK, Error, Reject, Abort.
	InvokeID uint8

	// Confirmed-Request / Complex-ACK (when segmented), Segment-ACK.
	SequenceNumber     uint8
	ProposedWindowSize uint8

	// Segment-ACK only.
	NegativeACK bool
	ServerAck   bool

	// Confirmed-Request, Unconfirmed-Request, Simple-ACK, Complex-ACK,
	// Error (service that errored).
	ServiceChoice uint8

	// Reject / Abort only.
	RejectReason    RejectReason
	AbortReason     AbortReason
	AbortedByServer bool

	// Error only.
	ErrorClass ErrorClass
	ErrorCode  ErrorCode

	// Service parameters / ack-parameters / error-parameters, whichever
	// applies to Type. Never includes the header bytes already consumed.
	Parameters []byte
}

const (
	segConfirmedMessage = 1 << 3
	segMoreFollows      = 1 << 2
	segResponseAccepted = 1 << 1

	segAckNAK = 1 << 1
	segAckSRV = 1 << 0

	abortServer = 1 << 0
)

// EncodeConfirmedRequest appends a Confirmed-Request PDU built from p and
// returns buf. p.Parameters holds the already-encoded service parameters.
func EncodeConfirmedRequest(buf []byte, p PDU) []byte {
	ctrl := byte(PDUConfirmedRequest) << 4
	if p.SegmentedMessage {
		ctrl |= segConfirmedMessage
	}
	if p.MoreFollows {
		ctrl |= segMoreFollows
	}
	if p.SegmentedResponseAccepted {
		ctrl |= segResponseAccepted
	}
	buf = append(buf, ctrl)
	buf = append(buf, byte(p.MaxSegs)<<4|byte(p.MaxResp))
	buf = append(buf, p.InvokeID)
	if p.SegmentedMessage {
		buf = append(buf, p.SequenceNumber, p.ProposedWindowSize)
	}
	buf = append(buf, p.ServiceChoice)
	buf = append(buf, p.Parameters...)
	return buf
}

// EncodeUnconfirmedRequest appends an Unconfirmed-Request PDU.
func EncodeUnconfirmedRequest(buf []byte, p PDU) []byte {
	buf = append(buf, byte(PDUUnconfirmedRequest)<<4)
	buf = append(buf, p.ServiceChoice)
	buf = append(buf, p.Parameters...)
	return buf
}

// EncodeSimpleACK appends a Simple-ACK PDU.
func EncodeSimpleACK(buf []byte, p PDU) []byte {
	buf = append(buf, byte(PDUSimpleACK)<<4)
	buf = append(buf, p.InvokeID, p.ServiceChoice)
	return buf
}

// EncodeComplexACK appends a Complex-ACK PDU.
func EncodeComplexACK(buf []byte, p PDU) []byte {
	ctrl := byte(PDUComplexACK) << 4
	if p.SegmentedMessage {
		ctrl |= segConfirmedMessage
	}
	if p.MoreFollows {
		ctrl |= segMoreFollows
	}
	buf = append(buf, ctrl, p.InvokeID)
	if p.SegmentedMessage {
		buf = append(buf, p.SequenceNumber, p.ProposedWindowSize)
	}
	buf = append(buf, p.ServiceChoice)
	buf = append(buf, p.Parameters...)
	return buf
}

// EncodeSegmentACK appends a Segment-ACK PDU.
func EncodeSegmentACK(buf []byte, p PDU) []byte {
	ctrl := byte(PDUSegmentACK) << 4
	if p.NegativeACK {
		ctrl |= segAckNAK
	}
	if p.ServerAck {
		ctrl |= segAckSRV
	}
	buf = append(buf, ctrl, p.InvokeID, p.SequenceNumber, p.ProposedWindowSize)
	return buf
}

// EncodeError appends an Error PDU.
func EncodeError(buf []byte, p PDU) []byte {
	buf = append(buf, byte(PDUError)<<4, p.InvokeID, p.ServiceChoice)
	buf = append(buf, p.Parameters...)
	return buf
}

// EncodeReject appends a Reject PDU.
func EncodeReject(buf []byte, p PDU) []byte {
	return append(buf, byte(PDUReject)<<4, p.InvokeID, byte(p.RejectReason))
}

// EncodeAbort appends an Abort PDU.
func EncodeAbort(buf []byte, p PDU) []byte {
	ctrl := byte(PDUAbort) << 4
	if p.AbortedByServer {
		ctrl |= abortServer
	}
	return append(buf, ctrl, p.InvokeID, byte(p.AbortReason))
}

// Decode parses a complete APDU (the bytes following the NPDU header) into
// a PDU record. It never reads past buf's end, returning
// bacerr.ErrTruncated for an empty buffer and
// bacerr.ErrUnexpectedEndOfFrame for a truncated header instead.
func Decode(buf []byte) (PDU, error) {
	if len(buf) < 1 {
		return PDU{}, bacerr.ErrTruncated
	}
	ctrl := buf[0]
	pduType := PDUType(ctrl >> 4)

	switch pduType {
	case PDUConfirmedRequest:
		return decodeConfirmedRequest(ctrl, buf)
	case PDUUnconfirmedRequest:
		if len(buf) < 2 {
			return PDU{}, bacerr.ErrUnexpectedEndOfFrame
		}
		return PDU{Type: pduType, ServiceChoice: buf[1], Parameters: buf[2:]}, nil
	case PDUSimpleACK:
		if len(buf) < 3 {
			return PDU{}, bacerr.ErrUnexpectedEndOfFrame
		}
		return PDU{Type: pduType, InvokeID: buf[1], ServiceChoice: buf[2]}, nil
	case PDUComplexACK:
		return decodeComplexACK(ctrl, buf)
	case PDUSegmentACK:
		if len(buf) < 4 {
			return PDU{}, bacerr.ErrUnexpectedEndOfFrame
		}
		return PDU{
			Type:               pduType,
			NegativeACK:        ctrl&segAckNAK != 0,
			ServerAck:          ctrl&segAckSRV != 0,
			InvokeID:           buf[1],
			SequenceNumber:     buf[2],
			ProposedWindowSize: buf[3],
		}, nil
	case PDUError:
		if len(buf) < 3 {
			return PDU{}, bacerr.ErrUnexpectedEndOfFrame
		}
		return PDU{Type: pduType, InvokeID: buf[1], ServiceChoice: buf[2], Parameters: buf[3:]}, nil
	case PDUReject:
		if len(buf) < 3 {
			return PDU{}, bacerr.ErrUnexpectedEndOfFrame
		}
		return PDU{Type: pduType, InvokeID: buf[1], RejectReason: RejectReason(buf[2])}, nil
	case PDUAbort:
		if len(buf) < 3 {
			return PDU{}, bacerr.ErrUnexpectedEndOfFrame
		}
		return PDU{
			Type:            pduType,
			AbortedByServer: ctrl&abortServer != 0,
			InvokeID:        buf[1],
			AbortReason:     AbortReason(buf[2]),
		}, nil
	default:
		return PDU{}, errors.Wrapf(bacerr.ErrInvalidTag, "unknown PDU type %d", pduType)
	}
}

func decodeConfirmedRequest(ctrl byte, buf []byte) (PDU, error) {
	if len(buf) < 3 {
		return PDU{}, bacerr.ErrUnexpectedEndOfFrame
	}
	p := PDU{
		Type:                      PDUConfirmedRequest,
		SegmentedMessage:          ctrl&segConfirmedMessage != 0,
		MoreFollows:               ctrl&segMoreFollows != 0,
		SegmentedResponseAccepted: ctrl&segResponseAccepted != 0,
		MaxSegs:                   MaxSegmentsAccepted(buf[1] >> 4),
		MaxResp:                   MaxAPDUAccepted(buf[1] & 0x0F),
		InvokeID:                  buf[2],
	}
	off := 3
	if p.SegmentedMessage {
		if len(buf) < off+2 {
			return PDU{}, bacerr.ErrUnexpectedEndOfFrame
		}
		p.SequenceNumber = buf[off]
		p.ProposedWindowSize = buf[off+1]
		off += 2
	}
	if len(buf) < off+1 {
		return PDU{}, bacerr.ErrUnexpectedEndOfFrame
	}
	p.ServiceChoice = buf[off]
	p.Parameters = buf[off+1:]
	return p, nil
}

func decodeComplexACK(ctrl byte, buf []byte) (PDU, error) {
	if len(buf) < 2 {
		return PDU{}, bacerr.ErrUnexpectedEndOfFrame
	}
	p := PDU{
		Type:             PDUComplexACK,
		SegmentedMessage: ctrl&segConfirmedMessage != 0,
		MoreFollows:      ctrl&segMoreFollows != 0,
		InvokeID:         buf[1],
	}
	off := 2
	if p.SegmentedMessage {
		if len(buf) < off+2 {
			return PDU{}, bacerr.ErrUnexpectedEndOfFrame
		}
		p.SequenceNumber = buf[off]
		p.ProposedWindowSize = buf[off+1]
		off += 2
	}
	if len(buf) < off+1 {
		return PDU{}, bacerr.ErrUnexpectedEndOfFrame
	}
	p.ServiceChoice = buf[off]
	p.Parameters = buf[off+1:]
	return p, nil
}
