package mstp

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/bnetlog"
	"github.com/rob-gra/go-bacnet/datalink"
	"github.com/rob-gra/go-bacnet/fifo"
	"github.com/rob-gra/go-bacnet/npdu"
)

// tickResolution paces the master FSM's internal clock finely enough to
// resolve Tusage_timeout and Tslot without busy-waiting the serial link.
const tickResolution = 5 * time.Millisecond

// Port is the one concrete Datalink binding this core ships: an MS/TP
// master node (the frame-sync Receiver plus the token-passing Master) run
// over a byte-oriented serial link. One goroutine reads bytes and a second
// drives both FSMs; SendPDU only enqueues, so the wire format never blocks
// the caller.
type Port struct {
	conn io.ReadWriteCloser

	station   uint8
	broadcast npdu.Address

	receiver *Receiver
	master   *Master

	outbound *fifo.Ring[Outgoing]
	inbound  chan Frame

	cancel context.CancelFunc
	done   chan struct{}

	log bnetlog.Log
}

// NewPort builds a Port addressed as cfg.ThisStation. conn is the serial
// link this station shares with the rest of the MS/TP segment; reg may be
// nil to skip Prometheus registration.
func NewPort(conn io.ReadWriteCloser, cfg Config, reg prometheus.Registerer) *Port {
	cfg.Valid()
	p := &Port{
		conn:      conn,
		station:   cfg.ThisStation,
		broadcast: npdu.NewMACAddress([]byte{0xFF}),
		receiver:  NewReceiver(NewMetrics(reg, cfg.ThisStation)),
		master:    NewMaster(cfg),
		outbound:  fifo.NewRing[Outgoing](16),
		inbound:   make(chan Frame, 16),
		done:      make(chan struct{}),
		log:       bnetlog.New("mstp.port"),
	}
	p.master.NextOutbound = func() *Outgoing {
		o, ok := p.outbound.Get()
		if !ok {
			return nil
		}
		return &o
	}
	return p
}

// Init starts the byte-reading and FSM-driving goroutines. cfg is accepted
// for Datalink conformance; a Port's framing parameters are fixed at
// NewPort time.
func (p *Port) Init(cfg datalink.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	bytes := make(chan byte, 256)
	go p.readLoop(ctx, bytes)
	go p.driveLoop(ctx, bytes)
	return nil
}

// readLoop is the only goroutine that touches conn; it hands every received
// octet to driveLoop over a channel so the FSMs themselves stay
// single-threaded.
func (p *Port) readLoop(ctx context.Context, bytes chan<- byte) {
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := p.conn.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		select {
		case bytes <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

// driveLoop owns the Receiver and Master FSMs exclusively: it folds bytes
// into frames, ticks the token-passing FSM at tickResolution, and enforces
// Tframe_abort silence resets.
func (p *Port) driveLoop(ctx context.Context, bytes <-chan byte) {
	defer close(p.done)
	ticker := time.NewTicker(tickResolution)
	defer ticker.Stop()
	lastByte := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case b := <-bytes:
			lastByte = time.Now()
			if f := p.receiver.PutByte(b); f != nil {
				p.master.OnFrame(*f, p.send, p.deliver)
			}
		case <-ticker.C:
			if p.receiver.Active() && time.Since(lastByte) >= TframeAbort {
				p.receiver.Abort()
			}
			p.master.OnTick(tickResolution, p.send)
		}
	}
}

func (p *Port) send(o Outgoing) {
	frame := EncodeFrame(o.Type, o.Destination, p.station, o.Data)
	if _, err := p.conn.Write(frame); err != nil {
		p.log.Warn("mstp write failed: %v", err)
	}
}

func (p *Port) deliver(f Frame) {
	select {
	case p.inbound <- f:
	default:
		p.log.Debug("inbound frame dropped: application queue full")
	}
}

// SendPDU enqueues pdu as a BACnet-data frame addressed to dest's single
// MAC octet (or the broadcast station 0xFF), returning once queued rather
// than once transmitted: the token-passing FSM decides when it is this
// station's turn to send.
func (p *Port) SendPDU(dest npdu.Address, data npdu.Data, pdu []byte) (int, error) {
	station := byte(0xFF)
	if !dest.IsBroadcast() {
		mac := dest.MACBytes()
		if len(mac) != 1 {
			return 0, bacerr.ErrSendFailed
		}
		station = mac[0]
	}
	frameType := FrameBACnetDataNotExpectReply
	if data.DataExpectingReply {
		frameType = FrameBACnetDataExpectingReply
	}
	out := Outgoing{Type: frameType, Destination: station, Data: append([]byte(nil), pdu...)}
	if !p.outbound.Put(out) {
		return 0, bacerr.ErrSendFailed
	}
	return len(pdu), nil
}

// Receive blocks until a data frame addressed to this station (or
// broadcast) arrives, or ctx is done.
func (p *Port) Receive(ctx context.Context, buf []byte) (int, npdu.Address, error) {
	select {
	case f := <-p.inbound:
		n := copy(buf, f.Data)
		return n, npdu.NewMACAddress([]byte{f.Source}), nil
	case <-ctx.Done():
		return 0, npdu.Address{}, ctx.Err()
	}
}

// MyAddress returns this station's MS/TP MAC address.
func (p *Port) MyAddress() npdu.Address {
	return npdu.NewMACAddress([]byte{p.station})
}

// BroadcastAddress returns MS/TP's single-octet broadcast station, 0xFF.
func (p *Port) BroadcastAddress() npdu.Address {
	return p.broadcast
}

// Cleanup stops the driving goroutines and closes the underlying link.
func (p *Port) Cleanup() error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return p.conn.Close()
}

var _ datalink.Datalink = (*Port)(nil)
