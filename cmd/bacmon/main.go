// Command bacmon is a two-device demonstration of the core: it wires two
// stack.Device values together over a datalink.Loopback pair, has one
// announce itself with I-Am, has the other broadcast Who-Is, and prints
// whether the client learned the announcing device's address.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rob-gra/go-bacnet/datalink"
	"github.com/rob-gra/go-bacnet/npdu"
	"github.com/rob-gra/go-bacnet/stack"
)

func main() {
	logrus.SetLevel(logrus.InfoLevel)

	serverLink := datalink.NewLoopback(npdu.NewMACAddress([]byte{1}))
	clientLink := datalink.NewLoopback(npdu.NewMACAddress([]byte{2}))
	serverLink.Peer, clientLink.Peer = clientLink, serverLink

	server, err := stack.New(1001, serverLink, stack.DefaultConfig())
	if err != nil {
		fail(err)
	}
	client, err := stack.New(2002, clientLink, stack.DefaultConfig())
	if err != nil {
		fail(err)
	}

	go pump(server)
	go pump(client)

	if err := server.AnnounceIAm(serverLink.BroadcastAddress()); err != nil {
		fail(err)
	}
	time.Sleep(50 * time.Millisecond)

	if addr, maxAPDU, ok := client.Addresses.Get(1001); ok {
		fmt.Printf("client learned device 1001 is at mac=%v max-apdu=%d\n", addr.MACBytes(), maxAPDU)
	} else {
		fmt.Println("client never saw device 1001's I-Am")
	}

	if err := client.WhoIs(clientLink.BroadcastAddress()); err != nil {
		fail(err)
	}
	time.Sleep(50 * time.Millisecond)
}

// pump drains one device's transport forever; a real deployment runs this
// alongside an OnTick loop for TSM/address-cache timers.
func pump(d *stack.Device) {
	for {
		if err := d.Receive(context.Background()); err != nil {
			return
		}
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "bacmon:", err)
	os.Exit(1)
}
