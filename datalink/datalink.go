// Package datalink defines the uniform transport contract every BACnet
// physical/data-link binding implements: the NPDU layer, the TSM and the
// dispatcher program against this interface and never
// reference a transport-specific type. BACnet/IP, BACnet/IPv6, Ethernet,
// ARCNET and BACnet Secure Connect bindings are among this core's
// Non-goals; Loopback below exists so the rest of the stack is
// exercisable and testable without a real transport, and mstp.Port
// (mstp/port.go) is the one concrete binding this core ships.
package datalink

import (
	"context"

	"github.com/rob-gra/go-bacnet/npdu"
)

// Config is the subset of the environment configuration a Datalink binding
// needs at Init time.
type Config struct {
	MaxAPDULengthAccepted uint16
}

// Datalink is the send/receive contract presented to the rest of the
// core. Receive blocks until a packet arrives or the context is done; with
// a context that has no deadline and is never cancelled it can block
// indefinitely.
type Datalink interface {
	Init(cfg Config) error
	SendPDU(dest npdu.Address, data npdu.Data, pdu []byte) (int, error)
	Receive(ctx context.Context, buf []byte) (int, npdu.Address, error)
	MyAddress() npdu.Address
	BroadcastAddress() npdu.Address
	Cleanup() error
}
