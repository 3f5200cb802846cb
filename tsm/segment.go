package tsm

import (
	"github.com/pkg/errors"

	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/npdu"
)

// SlotState is the per-invoke-id sub-state of one outstanding transaction.
// A slot leaves Idle when Allocate (or AllocateSegmented) claims it and
// returns there when a terminal ACK arrives, the retry budget runs out, or
// a segmented exchange aborts.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotAwaitConfirmation
	SlotSegmentedRequest
	SlotSegmentedConfirmation
	SlotAborted
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "Idle"
	case SlotAwaitConfirmation:
		return "AwaitConfirmation"
	case SlotSegmentedRequest:
		return "SegmentedRequest"
	case SlotSegmentedConfirmation:
		return "SegmentedConfirmation"
	case SlotAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// State reports the sub-state of invokeID's slot, SlotIdle if unallocated.
func (t *TSM) State(invokeID uint8) SlotState {
	if !t.Busy(invokeID) {
		return SlotIdle
	}
	return t.slots[invokeID].state
}

// SegmentInfo carries the segmentation header fields of a received
// Complex-ACK.
type SegmentInfo struct {
	Segmented      bool
	MoreFollows    bool
	SequenceNumber uint8
	WindowSize     uint8
}

// AckOutcome tells the caller what to do after feeding a Complex-ACK into
// the slot. When Final is set the slot has been freed and Params holds the
// complete (reassembled, if segmented) ack body. When SendSegmentAck is set
// the caller must transmit a Segment-ACK for SequenceNumber with
// WindowSize.
type AckOutcome struct {
	Final          bool
	Params         []byte
	SendSegmentAck bool
	SequenceNumber uint8
	WindowSize     uint8
}

// OnComplexAck feeds a Complex-ACK (segmented or not) into invokeID's slot.
// An unsegmented ack is terminal. A segmented ack moves AwaitConfirmation
// to SegmentedConfirmation and accumulates each in-order segment until
// more-follows clears; out-of-order segments abort the transaction with
// ErrSegmentationMismatch. Unknown invoke-ids report ok=false and are
// otherwise ignored.
func (t *TSM) OnComplexAck(invokeID uint8, seg SegmentInfo, params []byte) (AckOutcome, bool, error) {
	if !t.Busy(invokeID) {
		return AckOutcome{}, false, nil
	}
	s := &t.slots[invokeID]

	if !seg.Segmented {
		body := params
		if s.state == SlotSegmentedConfirmation {
			// A peer must not switch back to unsegmented mid-stream.
			t.Free(invokeID)
			return AckOutcome{}, true, errors.Wrapf(bacerr.ErrSegmentationMismatch,
				"tsm: unsegmented ack during segmented confirmation of invoke-id %d", invokeID)
		}
		t.Free(invokeID)
		return AckOutcome{Final: true, Params: body}, true, nil
	}

	switch s.state {
	case SlotAwaitConfirmation:
		if seg.SequenceNumber != 0 {
			t.Free(invokeID)
			return AckOutcome{}, true, errors.Wrapf(bacerr.ErrSegmentationMismatch,
				"tsm: first segment of invoke-id %d has sequence %d", invokeID, seg.SequenceNumber)
		}
		s.state = SlotSegmentedConfirmation
		s.lastSeq = 0
		s.window = seg.WindowSize
		s.assembled = append(s.assembled[:0], params...)
		s.remaining = t.cfg.APDUTimeout
		if !seg.MoreFollows {
			body := s.assembled
			t.Free(invokeID)
			return AckOutcome{Final: true, Params: body, SendSegmentAck: true, SequenceNumber: 0, WindowSize: seg.WindowSize}, true, nil
		}
		return AckOutcome{SendSegmentAck: true, SequenceNumber: 0, WindowSize: seg.WindowSize}, true, nil

	case SlotSegmentedConfirmation:
		switch seg.SequenceNumber {
		case s.lastSeq:
			// Duplicate of the last segment: re-acknowledge, keep the body.
			return AckOutcome{SendSegmentAck: true, SequenceNumber: s.lastSeq, WindowSize: s.window}, true, nil
		case s.lastSeq + 1:
			s.lastSeq = seg.SequenceNumber
			s.assembled = append(s.assembled, params...)
			s.remaining = t.cfg.APDUTimeout
			if !seg.MoreFollows {
				body := s.assembled
				ack := AckOutcome{Final: true, Params: body, SendSegmentAck: true, SequenceNumber: seg.SequenceNumber, WindowSize: s.window}
				t.Free(invokeID)
				return ack, true, nil
			}
			return AckOutcome{SendSegmentAck: true, SequenceNumber: seg.SequenceNumber, WindowSize: s.window}, true, nil
		default:
			s.state = SlotAborted
			t.Free(invokeID)
			return AckOutcome{}, true, errors.Wrapf(bacerr.ErrSegmentationMismatch,
				"tsm: invoke-id %d expected segment %d, got %d", invokeID, s.lastSeq+1, seg.SequenceNumber)
		}

	default:
		return AckOutcome{}, true, nil
	}
}

// AllocateSegmented reserves a slot for a confirmed request whose body is
// split into segments. The caller transmits segments[0] itself (as the
// initial Confirmed-Request with more-follows set) and then feeds every
// received Segment-ACK through OnSegmentAck to obtain the next segment to
// send.
func (t *TSM) AllocateSegmented(dest npdu.Address, npduData npdu.Data, segments [][]byte) (uint8, error) {
	if len(segments) < 2 {
		return 0, errors.Wrap(bacerr.ErrSegmentationMismatch, "tsm: segmented request needs at least two segments")
	}
	id, err := t.Allocate(dest, npduData, segments[0])
	if err != nil {
		return 0, err
	}
	s := &t.slots[id]
	s.state = SlotSegmentedRequest
	s.txSegments = segments
	s.txNext = 1
	return id, nil
}

// OnSegmentAck feeds a received Segment-ACK into invokeID's slot and
// returns the next segment to transmit. Handing out the last segment moves
// the slot to awaiting the final confirmation, so a Segment-ACK that
// arrives after that returns next=nil with done=false; done=true is
// returned only when a negative ACK leaves no segment to resend. A
// negative ACK rewinds to the segment after the one the peer last saw.
func (t *TSM) OnSegmentAck(invokeID uint8, sequenceNumber uint8, negative bool) (next []byte, moreFollows bool, seq uint8, done bool, ok bool) {
	if !t.Busy(invokeID) {
		return nil, false, 0, false, false
	}
	s := &t.slots[invokeID]
	if s.state != SlotSegmentedRequest {
		return nil, false, 0, false, true
	}

	if negative {
		s.txNext = int(sequenceNumber) + 1
	}
	if s.txNext >= len(s.txSegments) {
		// Everything sent and acknowledged: the reply itself is still
		// outstanding.
		s.state = SlotAwaitConfirmation
		s.remaining = t.cfg.APDUTimeout
		s.retryCount = 0
		return nil, false, 0, true, true
	}

	seq = uint8(s.txNext)
	next = s.txSegments[s.txNext]
	s.txNext++
	moreFollows = s.txNext < len(s.txSegments)
	s.remaining = t.cfg.APDUTimeout
	if !moreFollows {
		s.state = SlotAwaitConfirmation
		s.retryCount = 0
	}
	return next, moreFollows, seq, false, true
}
