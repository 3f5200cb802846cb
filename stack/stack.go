package stack

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rob-gra/go-bacnet/address"
	"github.com/rob-gra/go-bacnet/asdu"
	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/bnetlog"
	"github.com/rob-gra/go-bacnet/datalink"
	"github.com/rob-gra/go-bacnet/dispatch"
	"github.com/rob-gra/go-bacnet/npdu"
	"github.com/rob-gra/go-bacnet/primitive"
	"github.com/rob-gra/go-bacnet/tsm"
)

// decodeErrorsTotal counts inbound APDUs (or service parameter bodies)
// that failed to decode, by error kind. An APDU that fails to decode is
// counted and dropped; service parameters that a confirmed handler fails
// to decode are counted and answered with a Reject.
var decodeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bacnet",
	Subsystem: "apdu",
	Name:      "decode_errors_total",
	Help:      "Inbound APDUs or service parameters that failed to decode, by error kind.",
}, []string{"kind"})

func init() {
	prometheus.MustRegister(decodeErrorsTotal)
}

func countDecodeError(err error) {
	switch {
	case errors.Is(err, bacerr.ErrTruncated):
		decodeErrorsTotal.WithLabelValues("truncated").Inc()
	case errors.Is(err, bacerr.ErrInvalidTag):
		decodeErrorsTotal.WithLabelValues("invalid_tag").Inc()
	case errors.Is(err, bacerr.ErrInvalidLength):
		decodeErrorsTotal.WithLabelValues("invalid_length").Inc()
	case errors.Is(err, bacerr.ErrOutOfRange):
		decodeErrorsTotal.WithLabelValues("out_of_range").Inc()
	case errors.Is(err, bacerr.ErrUnexpectedEndOfFrame):
		decodeErrorsTotal.WithLabelValues("unexpected_end_of_frame").Inc()
	default:
		decodeErrorsTotal.WithLabelValues("other").Inc()
	}
}

// Device is one running BACnet device: the owner of the address cache, the
// TSM, the dispatcher and a Datalink. It is the single worker that advances
// every other component.
type Device struct {
	cfg       Config
	DeviceID  uint32
	Transport datalink.Datalink

	Addresses *address.Cache
	TSM       *tsm.TSM
	Dispatch  *dispatch.Dispatcher

	pending     map[uint8]func(asdu.PDU, error)
	segServices map[uint8]asdu.ConfirmedService
	log         bnetlog.Log
}

// New constructs a Device. cfg is validated (and defaulted) in place.
func New(deviceID uint32, transport datalink.Datalink, cfg Config) (*Device, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	t, err := tsm.New(tsm.Config{
		MaxTransactions: int(cfg.MaxTSMTransactions),
		APDUTimeout:     cfg.APDUTimeout,
		Retries:         cfg.APDURetries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "stack: building tsm")
	}
	return &Device{
		cfg:         cfg,
		DeviceID:    deviceID,
		Transport:   transport,
		Addresses:   address.New(int(cfg.MaxAddressCache)),
		TSM:         t,
		Dispatch:    dispatch.New(),
		segServices: make(map[uint8]asdu.ConfirmedService),
		log:         bnetlog.New("stack"),
	}, nil
}

// SendUnconfirmed encodes and transmits an Unconfirmed-Request.
func (d *Device) SendUnconfirmed(dest npdu.Address, service asdu.UnconfirmedService, params []byte) error {
	apdu := asdu.EncodeUnconfirmedRequest(nil, asdu.PDU{
		ServiceChoice: uint8(service),
		Parameters:    params,
	})
	return d.transmit(dest, npdu.Data{}, apdu)
}

// SendConfirmed encodes a Confirmed-Request, allocates a TSM slot for it,
// and transmits it. A request body too large for one APDU is split into
// segments when the device supports transmit segmentation; otherwise the
// send fails before anything reaches the wire. The reply (ACK, error,
// reject or abort, or a Timeout) is delivered to onReply exactly once.
func (d *Device) SendConfirmed(dest npdu.Address, service asdu.ConfirmedService, params []byte, onReply func(asdu.PDU, error)) error {
	npduData := npdu.Data{DataExpectingReply: true}
	maxBody := int(d.cfg.MaxAPDULengthAccepted) - confirmedHeaderLen

	if len(params) > maxBody {
		if d.cfg.SegmentationSupported != asdu.SegmentationTransmit &&
			d.cfg.SegmentationSupported != asdu.SegmentationBoth {
			return errors.Wrapf(bacerr.ErrSegmentationMismatch,
				"stack: %d-octet request exceeds %d and transmit segmentation is off", len(params), maxBody)
		}
		return d.sendSegmented(dest, npduData, service, params, maxBody, onReply)
	}

	invokeID, err := d.TSM.Allocate(dest, npduData, nil)
	if err != nil {
		return err
	}
	apdu := d.encodeConfirmed(invokeID, service, params, false, false, 0)
	d.TSM.SetAPDU(invokeID, apdu)
	d.setPending(invokeID, onReply)
	return d.transmit(dest, npduData, apdu)
}

// confirmedHeaderLen is the worst-case Confirmed-Request header: control,
// max-segs/max-resp, invoke-id, sequence-number, window, service-choice.
const confirmedHeaderLen = 6

func (d *Device) encodeConfirmed(invokeID uint8, service asdu.ConfirmedService, params []byte, segmented, moreFollows bool, seq uint8) []byte {
	p := asdu.PDU{
		MaxSegs:       asdu.MaxSegmentsUnspecified,
		MaxResp:       asdu.MaxAPDUAcceptedFor(int(d.cfg.MaxAPDULengthAccepted)),
		InvokeID:      invokeID,
		ServiceChoice: uint8(service),
		Parameters:    params,
	}
	if d.cfg.SegmentationSupported == asdu.SegmentationReceive ||
		d.cfg.SegmentationSupported == asdu.SegmentationBoth {
		p.SegmentedResponseAccepted = true
	}
	if segmented {
		p.SegmentedMessage = true
		p.MoreFollows = moreFollows
		p.SequenceNumber = seq
		p.ProposedWindowSize = 1
	}
	return asdu.EncodeConfirmedRequest(nil, p)
}

func (d *Device) sendSegmented(dest npdu.Address, npduData npdu.Data, service asdu.ConfirmedService, params []byte, maxBody int, onReply func(asdu.PDU, error)) error {
	var segments [][]byte
	for off := 0; off < len(params); off += maxBody {
		end := off + maxBody
		if end > len(params) {
			end = len(params)
		}
		segments = append(segments, params[off:end])
	}
	invokeID, err := d.TSM.AllocateSegmented(dest, npduData, segments)
	if err != nil {
		return err
	}
	d.setPending(invokeID, onReply)
	d.segServices[invokeID] = service
	apdu := d.encodeConfirmed(invokeID, service, segments[0], true, true, 0)
	d.TSM.SetAPDU(invokeID, apdu)
	return d.transmit(dest, npduData, apdu)
}

func (d *Device) setPending(invokeID uint8, onReply func(asdu.PDU, error)) {
	if onReply == nil {
		return
	}
	if d.pending == nil {
		d.pending = make(map[uint8]func(asdu.PDU, error))
	}
	d.pending[invokeID] = onReply
}

func (d *Device) transmit(dest npdu.Address, data npdu.Data, apdu []byte) error {
	buf := npdu.Encode(nil, &dest, nil, data)
	buf = append(buf, apdu...)
	_, err := d.Transport.SendPDU(dest, data, buf)
	if err != nil {
		return errors.Wrap(err, "stack: send failed")
	}
	return nil
}

// OnTick advances the TSM's retry timers; the TSM takes fine-grained
// ticks. The address cache is aged separately by OnAddressCacheTick, which
// assumes one-second ticks.
func (d *Device) OnTick(elapsed time.Duration) {
	d.TSM.OnTick(elapsed, func(dest npdu.Address, npduData npdu.Data, apdu []byte) {
		if err := d.transmit(dest, npduData, apdu); err != nil {
			d.log.Warn("resend failed: %v", err)
		}
	}, func(invokeID uint8) {
		d.completeReply(invokeID, asdu.PDU{}, bacerr.ErrTimeout)
	})
}

// OnAddressCacheTick ages the address cache by one second.
func (d *Device) OnAddressCacheTick() {
	d.Addresses.OnTick()
}

func (d *Device) completeReply(invokeID uint8, p asdu.PDU, err error) {
	delete(d.segServices, invokeID)
	cb, ok := d.pending[invokeID]
	if !ok {
		return
	}
	delete(d.pending, invokeID)
	cb(p, err)
}

// Receive pumps one inbound PDU from the transport: decodes the NPDU and
// APDU, records I-Am sightings in the address cache, completes outstanding
// TSM transactions, and dispatches everything else to the Dispatcher.
func (d *Device) Receive(ctx context.Context) error {
	// Headroom past the APDU limit for a worst-case NPDU header (both
	// address specifiers at full MAC length, plus hop count).
	buf := make([]byte, int(d.cfg.MaxAPDULengthAccepted)+64)
	n, from, err := d.Transport.Receive(ctx, buf)
	if err != nil {
		return err
	}
	raw := buf[:n]

	router := npdu.Router{}
	_, src, _, body, deliverLocally, err := router.Route(raw)
	if err != nil || !deliverLocally {
		return err
	}
	// Prefer the NPDU-declared source (set when the peer is itself behind a
	// router) over the datalink's own address for a routed network number;
	// otherwise the datalink address is the only address we have.
	origin := from
	if src.Net != npdu.NetworkLocal {
		origin = src
	}

	p, err := asdu.Decode(body)
	if err != nil {
		countDecodeError(err)
		return err
	}

	switch p.Type {
	case asdu.PDUUnconfirmedRequest:
		if p.ServiceChoice == uint8(asdu.ServiceUnconfirmedIAm) {
			d.observeIAm(p, origin)
		}
		d.Dispatch.DispatchUnconfirmed(p, origin)
	case asdu.PDUConfirmedRequest:
		reply, err := d.Dispatch.DispatchConfirmed(p, origin)
		if err != nil {
			if bacerr.IsCodec(err) {
				// The handler could not parse the service parameters:
				// count it and answer with a Reject rather than leaving
				// the client to time out.
				countDecodeError(err)
				d.sendReply(origin, p.InvokeID, dispatch.Reply{
					Kind:         dispatch.ReplyReject,
					RejectReason: asdu.RejectMissingRequiredParameter,
				})
				return nil
			}
			return err
		}
		d.sendReply(origin, p.InvokeID, reply)
	case asdu.PDUComplexACK:
		d.onComplexAck(p, origin)
	case asdu.PDUSegmentACK:
		d.onSegmentAck(p, origin)
	case asdu.PDUSimpleACK:
		d.TSM.OnAck(p.InvokeID)
		d.completeReply(p.InvokeID, p, nil)
	case asdu.PDUError, asdu.PDUReject, asdu.PDUAbort:
		d.TSM.OnAck(p.InvokeID)
		d.completeReply(p.InvokeID, p, nil)
	}
	return nil
}

// onComplexAck feeds a Complex-ACK through the TSM's segmentation
// sub-state machine, acknowledging each segment and completing the
// pending reply once the final body is assembled.
func (d *Device) onComplexAck(p asdu.PDU, origin npdu.Address) {
	outcome, known, err := d.TSM.OnComplexAck(p.InvokeID, tsm.SegmentInfo{
		Segmented:      p.SegmentedMessage,
		MoreFollows:    p.MoreFollows,
		SequenceNumber: p.SequenceNumber,
		WindowSize:     p.ProposedWindowSize,
	}, p.Parameters)
	if !known {
		return
	}
	if outcome.SendSegmentAck {
		ack := asdu.EncodeSegmentACK(nil, asdu.PDU{
			InvokeID:           p.InvokeID,
			SequenceNumber:     outcome.SequenceNumber,
			ProposedWindowSize: outcome.WindowSize,
		})
		if sendErr := d.transmit(origin, npdu.Data{}, ack); sendErr != nil {
			d.log.Warn("segment ack send failed: %v", sendErr)
		}
	}
	if err != nil {
		d.completeReply(p.InvokeID, asdu.PDU{}, err)
		return
	}
	if outcome.Final {
		p.Parameters = outcome.Params
		p.SegmentedMessage = false
		p.MoreFollows = false
		d.completeReply(p.InvokeID, p, nil)
	}
}

// onSegmentAck advances a segmented request: each peer ACK releases the
// next segment onto the wire.
func (d *Device) onSegmentAck(p asdu.PDU, origin npdu.Address) {
	next, moreFollows, seq, done, known := d.TSM.OnSegmentAck(p.InvokeID, p.SequenceNumber, p.NegativeACK)
	if !known || done || next == nil {
		return
	}
	service, ok := d.segServices[p.InvokeID]
	if !ok {
		return
	}
	apdu := d.encodeConfirmed(p.InvokeID, service, next, true, moreFollows, seq)
	if err := d.transmit(origin, npdu.Data{DataExpectingReply: true}, apdu); err != nil {
		d.log.Warn("segment send failed: %v", err)
	}
}

func (d *Device) observeIAm(p asdu.PDU, from npdu.Address) {
	iam, err := asdu.DecodeIAm(p.Parameters)
	if err != nil {
		return
	}
	_ = d.Addresses.Add(iam.DeviceID.Instance, from, iam.MaxAPDULength)
}

func (d *Device) sendReply(dest npdu.Address, invokeID uint8, r dispatch.Reply) {
	if r.Kind == dispatch.ReplyPostponed {
		return
	}
	var apdu []byte
	switch r.Kind {
	case dispatch.ReplySimpleAck:
		apdu = asdu.EncodeSimpleACK(nil, asdu.PDU{InvokeID: invokeID, ServiceChoice: r.ServiceChoice})
	case dispatch.ReplyComplexAck:
		apdu = asdu.EncodeComplexACK(nil, asdu.PDU{InvokeID: invokeID, ServiceChoice: r.ServiceChoice, Parameters: r.Params})
	case dispatch.ReplyError:
		params := r.Params
		if params == nil {
			params = asdu.EncodeErrorBody(nil, r.ErrorClass, r.ErrorCode)
		}
		apdu = asdu.EncodeError(nil, asdu.PDU{InvokeID: invokeID, ServiceChoice: r.ServiceChoice, Parameters: params})
	case dispatch.ReplyReject:
		apdu = asdu.EncodeReject(nil, asdu.PDU{InvokeID: invokeID, RejectReason: r.RejectReason})
	case dispatch.ReplyAbort:
		apdu = asdu.EncodeAbort(nil, asdu.PDU{InvokeID: invokeID, AbortReason: r.AbortReason})
	default:
		return
	}
	if err := d.transmit(dest, npdu.Data{}, apdu); err != nil {
		d.log.Warn("reply send failed: %v", err)
	}
}

// BindRequest resolves deviceID to its cached address. When the binding is
// missing (never learned, or aged out), a Who-Is targeted at exactly that
// instance is broadcast and bacerr.ErrNotBound returned; the caller retries
// once the I-Am has landed in the cache.
func (d *Device) BindRequest(deviceID uint32) (npdu.Address, uint32, error) {
	addr, maxAPDU, err := d.Addresses.BindRequest(deviceID)
	if err == nil {
		return addr, maxAPDU, nil
	}
	lo, hi := deviceID, deviceID
	params := asdu.EncodeWhoIs(nil, &lo, &hi)
	if sendErr := d.SendUnconfirmed(d.Transport.BroadcastAddress(), asdu.ServiceUnconfirmedWhoIs, params); sendErr != nil {
		d.log.Warn("who-is for device %d failed: %v", deviceID, sendErr)
	}
	return npdu.Address{}, 0, err
}

// WhoIs broadcasts a Who-Is with no device-range limits.
func (d *Device) WhoIs(broadcast npdu.Address) error {
	return d.SendUnconfirmed(broadcast, asdu.ServiceUnconfirmedWhoIs, asdu.EncodeWhoIs(nil, nil, nil))
}

// AnnounceIAm broadcasts this device's I-Am using its configured vendor-id,
// max-apdu and segmentation support.
func (d *Device) AnnounceIAm(broadcast npdu.Address) error {
	params := asdu.EncodeIAm(nil, asdu.IAm{
		DeviceID:      primitive.NewObjectID(8, d.DeviceID), // object-type 8 = device
		MaxAPDULength: uint32(d.cfg.MaxAPDULengthAccepted),
		Segmentation:  d.cfg.SegmentationSupported,
		VendorID:      uint32(d.cfg.VendorID),
	})
	return d.SendUnconfirmed(broadcast, asdu.ServiceUnconfirmedIAm, params)
}
