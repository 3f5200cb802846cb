package datalink

import (
	"context"

	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/npdu"
)

// packet is one frame in flight on a Loopback transport.
type packet struct {
	from npdu.Address
	body []byte
}

// Loopback is an in-memory Datalink used by tests and by two stack values
// wired together in the same process; it never touches the network. Send
// delivers to Peer's inbound queue when Peer is set, or back to its own
// queue (true loopback) otherwise.
type Loopback struct {
	self      npdu.Address
	broadcast npdu.Address
	inbound   chan packet

	// Peer, if set before Init, makes this Loopback one end of a
	// point-to-point pair instead of echoing to itself.
	Peer *Loopback
}

// NewLoopback builds a Loopback addressed as self.
func NewLoopback(self npdu.Address) *Loopback {
	return &Loopback{
		self:      self,
		broadcast: npdu.Address{Net: npdu.NetworkGlobalBroadcast},
		inbound:   make(chan packet, 64),
	}
}

// Init satisfies Datalink; Loopback needs no configuration.
func (l *Loopback) Init(cfg Config) error {
	return nil
}

// SendPDU enqueues pdu (npdu+apdu framed by the caller) for delivery. dest
// and data are accepted for interface conformance but otherwise unused: a
// Loopback has exactly one peer.
func (l *Loopback) SendPDU(dest npdu.Address, data npdu.Data, pdu []byte) (int, error) {
	target := l
	if l.Peer != nil {
		target = l.Peer
	}
	cp := append([]byte(nil), pdu...)
	select {
	case target.inbound <- packet{from: l.self, body: cp}:
		return len(pdu), nil
	default:
		return 0, bacerr.ErrSendFailed
	}
}

// Receive blocks until a packet arrives or ctx is done.
func (l *Loopback) Receive(ctx context.Context, buf []byte) (int, npdu.Address, error) {
	select {
	case p := <-l.inbound:
		n := copy(buf, p.body)
		return n, p.from, nil
	case <-ctx.Done():
		return 0, npdu.Address{}, ctx.Err()
	}
}

// MyAddress returns this Loopback's configured local address.
func (l *Loopback) MyAddress() npdu.Address {
	return l.self
}

// BroadcastAddress returns the global-broadcast address, the only kind of
// broadcast a Loopback pair needs to represent.
func (l *Loopback) BroadcastAddress() npdu.Address {
	return l.broadcast
}

// Cleanup closes the inbound queue.
func (l *Loopback) Cleanup() error {
	close(l.inbound)
	return nil
}

var _ Datalink = (*Loopback)(nil)
