// Package dispatch implements the service dispatcher: a service-choice-keyed
// lookup from an incoming confirmed or unconfirmed request to the handler
// registered for it, with an unrecognized-service fallback (Reject for
// confirmed, silent drop for unconfirmed).
package dispatch

import (
	"github.com/rob-gra/go-bacnet/asdu"
	"github.com/rob-gra/go-bacnet/bnetlog"
	"github.com/rob-gra/go-bacnet/npdu"
)

// ReplyKind discriminates the outcome a ConfirmedHandler hands back to the
// dispatcher.
type ReplyKind int

const (
	ReplySimpleAck ReplyKind = iota
	ReplyComplexAck
	ReplyError
	ReplyReject
	ReplyAbort
	// ReplyPostponed means the handler will deliver its reply later (e.g.
	// after an async I/O), by calling back into the stack directly; the
	// dispatcher sends nothing now.
	ReplyPostponed
)

// Reply is what a ConfirmedHandler returns.
type Reply struct {
	Kind          ReplyKind
	ServiceChoice uint8
	Params        []byte
	ErrorClass    asdu.ErrorClass
	ErrorCode     asdu.ErrorCode
	RejectReason  asdu.RejectReason
	AbortReason   asdu.AbortReason
}

// ConfirmedHandler processes one confirmed-request's service parameters and
// returns the reply to send (or ReplyPostponed, if it will reply later).
type ConfirmedHandler func(invokeID uint8, src npdu.Address, params []byte) (Reply, error)

// UnconfirmedHandler processes one unconfirmed-request's service
// parameters. It never replies.
type UnconfirmedHandler func(src npdu.Address, params []byte)

// Dispatcher routes decoded PDUs to registered per-service handlers.
type Dispatcher struct {
	confirmed   map[asdu.ConfirmedService]ConfirmedHandler
	unconfirmed map[asdu.UnconfirmedService]UnconfirmedHandler
	log         bnetlog.Log
}

// New builds an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		confirmed:   make(map[asdu.ConfirmedService]ConfirmedHandler),
		unconfirmed: make(map[asdu.UnconfirmedService]UnconfirmedHandler),
		log:         bnetlog.New("dispatch"),
	}
}

// HandleConfirmed registers the handler invoked for a given confirmed
// service-choice. Registering twice for the same choice replaces the
// previous handler.
func (d *Dispatcher) HandleConfirmed(service asdu.ConfirmedService, h ConfirmedHandler) {
	d.confirmed[service] = h
}

// HandleUnconfirmed registers the handler invoked for a given unconfirmed
// service-choice.
func (d *Dispatcher) HandleUnconfirmed(service asdu.UnconfirmedService, h UnconfirmedHandler) {
	d.unconfirmed[service] = h
}

// DispatchConfirmed routes p (a Confirmed-Request PDU) to its handler. If no
// handler is registered, it returns a Reject/unrecognized-service reply
// rather than an error, since that reply must still be sent to the peer.
func (d *Dispatcher) DispatchConfirmed(p asdu.PDU, src npdu.Address) (Reply, error) {
	h, ok := d.confirmed[asdu.ConfirmedService(p.ServiceChoice)]
	if !ok {
		d.log.Warn("unrecognized confirmed service %d from %v", p.ServiceChoice, src)
		return Reply{Kind: ReplyReject, RejectReason: asdu.RejectUnrecognizedService}, nil
	}
	return h(p.InvokeID, src, p.Parameters)
}

// DispatchUnconfirmed routes p (an Unconfirmed-Request PDU) to its handler.
// An unrecognized service is silently dropped.
func (d *Dispatcher) DispatchUnconfirmed(p asdu.PDU, src npdu.Address) {
	h, ok := d.unconfirmed[asdu.UnconfirmedService(p.ServiceChoice)]
	if !ok {
		d.log.Debug("dropping unrecognized unconfirmed service %d from %v", p.ServiceChoice, src)
		return
	}
	h(src, p.Parameters)
}
