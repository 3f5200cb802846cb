// Package tsm implements the Transaction State Machine: the owner of every
// outstanding confirmed request's invoke-id, retry timer and retry count.
// TSM never calls the datalink directly; OnTick is handed a
// resend callback so the caller (the "stack" value) stays the sole owner of
// the transport.
package tsm

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/bnetlog"
	"github.com/rob-gra/go-bacnet/npdu"
)

// slot is one outstanding confirmed request.
type slot struct {
	busy       bool
	state      SlotState
	dest       npdu.Address
	npduData   npdu.Data
	apdu       []byte
	remaining  time.Duration
	retryCount int

	// Segmented-confirmation reassembly.
	assembled []byte
	lastSeq   uint8
	window    uint8

	// Segmented-request transmit queue.
	txSegments [][]byte
	txNext     int
}

// TSM owns a fixed array of invoke-id slots (1..MaxTransactions; 0 is
// reserved and never allocated).
type TSM struct {
	cfg      Config
	slots    []slot // indexed 1..cfg.MaxTransactions; slots[0] unused
	lastUsed uint8
	retry    backoff.ConstantBackOff
	log      bnetlog.Log
}

// New constructs a TSM. cfg is validated (and defaulted) in place.
func New(cfg Config) (*TSM, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	return &TSM{
		cfg:   cfg,
		slots: make([]slot, cfg.MaxTransactions+1),
		retry: backoff.ConstantBackOff{Interval: cfg.APDUTimeout},
		log:   bnetlog.New("tsm"),
	}, nil
}

// Allocate reserves a free invoke-id for a new confirmed request and records
// the APDU to resend on timeout, starting from the slot after the last one
// used.
func (t *TSM) Allocate(dest npdu.Address, npduData npdu.Data, apdu []byte) (uint8, error) {
	n := uint8(len(t.slots) - 1)
	for i := uint8(0); i < n; i++ {
		// cycle through 1..n, wrapping past the highest slot; the reserved
		// invoke-id 0 is never produced
		id := uint8((int(t.lastUsed)+int(i))%int(n) + 1)
		idx := int(id)
		if !t.slots[idx].busy {
			t.slots[idx] = slot{
				busy:      true,
				state:     SlotAwaitConfirmation,
				dest:      dest,
				npduData:  npduData,
				apdu:      apdu,
				remaining: time.Duration(t.retry.NextBackOff()),
			}
			t.lastUsed = id
			return id, nil
		}
	}
	return 0, bacerr.ErrNoFreeInvokeID
}

// SetAPDU replaces the retransmit image for invokeID's slot. Callers that
// only learn the invoke-id from Allocate use this to store the fully
// encoded request afterwards.
func (t *TSM) SetAPDU(invokeID uint8, apdu []byte) {
	if t.Busy(invokeID) {
		t.slots[invokeID].apdu = apdu
	}
}

// Free releases a slot. Idempotent.
func (t *TSM) Free(invokeID uint8) {
	if int(invokeID) < len(t.slots) {
		t.slots[invokeID] = slot{}
	}
}

// Busy reports whether invokeID currently owns a slot.
func (t *TSM) Busy(invokeID uint8) bool {
	return int(invokeID) < len(t.slots) && t.slots[invokeID].busy
}

// Resend is called by OnTick for every slot whose timer has expired and
// which has retries remaining.
type Resend func(dest npdu.Address, npduData npdu.Data, apdu []byte)

// Timeout is called by OnTick for a slot that has exhausted its retries.
type Timeout func(invokeID uint8)

// OnTick advances every busy slot's timer by elapsed. A slot whose timer
// reaches zero is retransmitted (via resend) and its timer reset, up to
// cfg.Retries times; past that it is freed and timeout is invoked.
func (t *TSM) OnTick(elapsed time.Duration, resend Resend, timeout Timeout) {
	for id := 1; id < len(t.slots); id++ {
		s := &t.slots[id]
		if !s.busy {
			continue
		}
		s.remaining -= elapsed
		if s.remaining > 0 {
			continue
		}
		if s.state == SlotSegmentedConfirmation || s.state == SlotSegmentedRequest {
			// A stalled segmented exchange is not retried; the whole
			// transaction aborts.
			t.log.Warn("invoke-id %d segment timeout in %s", id, s.state)
			t.Free(uint8(id))
			if timeout != nil {
				timeout(uint8(id))
			}
			continue
		}
		if s.retryCount < t.cfg.Retries {
			s.retryCount++
			s.remaining = time.Duration(t.retry.NextBackOff())
			t.log.Debug("resending invoke-id %d (attempt %d)", id, s.retryCount)
			if resend != nil {
				resend(s.dest, s.npduData, s.apdu)
			}
			continue
		}
		t.log.Warn("invoke-id %d timed out after %d retries", id, s.retryCount)
		t.Free(uint8(id))
		if timeout != nil {
			timeout(uint8(id))
		}
	}
}

// OnAck matches an incoming ACK/error/reject/abort to its slot and frees it.
// Unknown invoke-ids are silently dropped, reporting false.
func (t *TSM) OnAck(invokeID uint8) bool {
	if !t.Busy(invokeID) {
		return false
	}
	t.Free(invokeID)
	return true
}
