package npdu

import (
	"github.com/prometheus/client_golang/prometheus"
)

// discardedTotal counts packets silently dropped because dest.Net named a
// network this non-router core cannot deliver to.
var discardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "bacnet",
	Subsystem: "npdu",
	Name:      "discarded_total",
	Help:      "NPDUs silently discarded because they targeted a network this core cannot route to.",
})

func init() {
	prometheus.MustRegister(discardedTotal)
}

// NetworkLayerHandler processes a decoded network-layer message. The core
// never parses its own network-layer messages (router discovery etc.)
// beyond the header: it forwards the raw body to a registered handler.
type NetworkLayerHandler func(data Data, src Address, body []byte)

// Router applies the core's non-router routing policy: deliver dest.Net ==
// 0 or dest.Net == NetworkGlobalBroadcast locally, discard (and count)
// anything else, and dispatch network-layer messages to an optional
// handler instead of attempting APDU parsing.
type Router struct {
	NetworkLayerHandler NetworkLayerHandler
}

// Route decodes buf and reports whether the APDU body (buf[bodyOffset:])
// should be delivered locally. When data.NetworkLayerMessage is set, Route
// invokes NetworkLayerHandler (if any) and reports deliverLocally=false,
// since there is no APDU to parse.
func (r *Router) Route(buf []byte) (dest, src Address, data Data, body []byte, deliverLocally bool, err error) {
	dest, src, data, off, err := Decode(buf)
	if err != nil {
		return Address{}, Address{}, Data{}, nil, false, err
	}
	body = buf[off:]

	if data.NetworkLayerMessage {
		if r.NetworkLayerHandler != nil {
			r.NetworkLayerHandler(data, src, body)
		}
		return dest, src, data, body, false, nil
	}

	if dest.Net != NetworkLocal && dest.Net != NetworkGlobalBroadcast {
		discardedTotal.Inc()
		return dest, src, data, body, false, nil
	}

	return dest, src, data, body, true, nil
}
