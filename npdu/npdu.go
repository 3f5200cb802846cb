package npdu

import (
	"github.com/pkg/errors"
	"github.com/rob-gra/go-bacnet/bacerr"
)

// ProtocolVersion is the only NPDU version this core understands.
const ProtocolVersion = 0x01

// Control byte bit positions, ASHRAE 135 clause 6.2.2.
const (
	ctrlNetworkLayerMessage = 1 << 7
	ctrlDestinationPresent  = 1 << 5
	ctrlSourcePresent       = 1 << 3
	ctrlExpectingReply      = 1 << 2
	ctrlPriorityMask        = 0x03
)

// Priority is the NPDU priority field, the low two control-byte bits.
type Priority uint8

const (
	PriorityNormal          Priority = 0
	PriorityUrgent          Priority = 1
	PriorityCriticalEquipment Priority = 2
	PriorityLifeSafety      Priority = 3
)

// NetworkMessageType identifies a network-layer message, ASHRAE 135 clause
// 6.4.1, used only when Data.NetworkLayerMessage is set.
type NetworkMessageType uint8

const (
	NetWhoIsRouterToNetwork  NetworkMessageType = 0x00
	NetIAmRouterToNetwork    NetworkMessageType = 0x01
	NetICouldBeRouterToNet   NetworkMessageType = 0x02
	NetRejectMessageToNet    NetworkMessageType = 0x03
	NetRouterBusyToNetwork   NetworkMessageType = 0x04
	NetRouterAvailableToNet  NetworkMessageType = 0x05
	NetInitRtTable           NetworkMessageType = 0x06
	NetInitRtTableAck        NetworkMessageType = 0x07
	NetEstablishConnNetwork  NetworkMessageType = 0x08
	NetDisconnectConnNetwork NetworkMessageType = 0x09
	NetChallengeRequest      NetworkMessageType = 0x0A
	NetSecurityPayload       NetworkMessageType = 0x0B
	NetSecurityResponse      NetworkMessageType = 0x0C
	NetRequestKeyUpdate      NetworkMessageType = 0x0D
	NetUpdateKeySet          NetworkMessageType = 0x0E
	NetUpdateDistributionKey NetworkMessageType = 0x0F
	NetRequestMasterKey      NetworkMessageType = 0x10
	NetSetMasterKey          NetworkMessageType = 0x11
	NetWhatIsNetworkNumber   NetworkMessageType = 0x12
	NetNetworkNumberIs       NetworkMessageType = 0x13
)

// Data is the per-packet NPDU control metadata, BACNET_NPDU_DATA.
type Data struct {
	DataExpectingReply  bool
	NetworkLayerMessage bool
	Priority            Priority
	HopCount            *uint8
	MessageType         *NetworkMessageType
	VendorID            uint16 // present only for proprietary (0x80-0xFF) message types
}

// Encode appends the NPDU header for a packet from src to dest with the
// given control metadata and returns buf.
func Encode(buf []byte, dest, src *Address, data Data) []byte {
	buf = append(buf, ProtocolVersion)
	ctrlIdx := len(buf)
	buf = append(buf, 0) // placeholder, patched below
	ctrl := byte(data.Priority) & ctrlPriorityMask

	if data.DataExpectingReply {
		ctrl |= ctrlExpectingReply
	}

	if dest != nil && dest.Net != NetworkLocal {
		ctrl |= ctrlDestinationPresent
		buf = append(buf, byte(dest.Net>>8), byte(dest.Net))
		buf = append(buf, dest.MACLen)
		buf = append(buf, dest.MACBytes()...)
	}

	if src != nil && src.Net != NetworkLocal {
		ctrl |= ctrlSourcePresent
		buf = append(buf, byte(src.Net>>8), byte(src.Net))
		buf = append(buf, src.MACLen)
		buf = append(buf, src.MACBytes()...)
	}

	if ctrl&ctrlDestinationPresent != 0 {
		hc := byte(255)
		if data.HopCount != nil {
			hc = *data.HopCount
		}
		buf = append(buf, hc)
	}

	if data.NetworkLayerMessage {
		ctrl |= ctrlNetworkLayerMessage
		mt := NetWhoIsRouterToNetwork
		if data.MessageType != nil {
			mt = *data.MessageType
		}
		buf = append(buf, byte(mt))
		if mt >= 0x80 {
			buf = append(buf, byte(data.VendorID>>8), byte(data.VendorID))
		}
	}

	buf[ctrlIdx] = ctrl
	return buf
}

// Decode parses the NPDU header starting at buf[0] and returns the
// destination and source addresses (zero value if absent), the control
// metadata, and the offset into buf at which the APDU (or network-layer
// message) body begins.
func Decode(buf []byte) (dest, src Address, data Data, bodyOffset int, err error) {
	if len(buf) < 2 {
		return Address{}, Address{}, Data{}, 0, bacerr.ErrTruncated
	}
	if buf[0] != ProtocolVersion {
		return Address{}, Address{}, Data{}, 0, errors.Wrapf(bacerr.ErrInvalidTag, "unsupported NPDU version %d", buf[0])
	}
	ctrl := buf[1]
	off := 2

	data.Priority = Priority(ctrl & ctrlPriorityMask)
	data.DataExpectingReply = ctrl&ctrlExpectingReply != 0

	if ctrl&ctrlDestinationPresent != 0 {
		if len(buf) < off+3 {
			return Address{}, Address{}, Data{}, 0, bacerr.ErrUnexpectedEndOfFrame
		}
		dest.Net = uint16(buf[off])<<8 | uint16(buf[off+1])
		macLen := buf[off+2]
		off += 3
		if macLen > MaxMACLen || len(buf) < off+int(macLen) {
			return Address{}, Address{}, Data{}, 0, bacerr.ErrUnexpectedEndOfFrame
		}
		dest.MACLen = macLen
		copy(dest.MAC[:], buf[off:off+int(macLen)])
		off += int(macLen)
	}

	if ctrl&ctrlSourcePresent != 0 {
		if len(buf) < off+3 {
			return Address{}, Address{}, Data{}, 0, bacerr.ErrUnexpectedEndOfFrame
		}
		src.Net = uint16(buf[off])<<8 | uint16(buf[off+1])
		macLen := buf[off+2]
		off += 3
		if macLen > MaxMACLen || len(buf) < off+int(macLen) {
			return Address{}, Address{}, Data{}, 0, bacerr.ErrUnexpectedEndOfFrame
		}
		src.MACLen = macLen
		copy(src.MAC[:], buf[off:off+int(macLen)])
		off += int(macLen)
	}

	if ctrl&ctrlDestinationPresent != 0 {
		if len(buf) < off+1 {
			return Address{}, Address{}, Data{}, 0, bacerr.ErrUnexpectedEndOfFrame
		}
		hc := buf[off]
		data.HopCount = &hc
		off++
	}

	if ctrl&ctrlNetworkLayerMessage != 0 {
		data.NetworkLayerMessage = true
		if len(buf) < off+1 {
			return Address{}, Address{}, Data{}, 0, bacerr.ErrUnexpectedEndOfFrame
		}
		mt := NetworkMessageType(buf[off])
		data.MessageType = &mt
		off++
		if mt >= 0x80 {
			if len(buf) < off+2 {
				return Address{}, Address{}, Data{}, 0, bacerr.ErrUnexpectedEndOfFrame
			}
			data.VendorID = uint16(buf[off])<<8 | uint16(buf[off+1])
			off += 2
		}
	}

	return dest, src, data, off, nil
}
