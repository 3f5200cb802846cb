package bvlc

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/rob-gra/go-bacnet/bacerr"
)

// Annex U function codes. The IPv6 variant addresses nodes by a 3-octet
// virtual MAC rather than the bare IP address, so most frames lead with a
// source VMAC.
const (
	Func6Result                        Function = 0x00
	Func6OriginalUnicastNPDU           Function = 0x01
	Func6OriginalBroadcastNPDU         Function = 0x02
	Func6AddressResolution             Function = 0x03
	Func6ForwardedAddressResolution    Function = 0x04
	Func6AddressResolutionACK          Function = 0x05
	Func6VirtualAddressResolution      Function = 0x06
	Func6VirtualAddressResolutionACK   Function = 0x07
	Func6ForwardedNPDU                 Function = 0x08
	Func6RegisterForeignDevice         Function = 0x09
	Func6DeleteForeignDeviceTableEntry Function = 0x0A
	Func6SecureBVLL                    Function = 0x0B
	Func6DistributeBroadcastToNetwork  Function = 0x0C
)

// VMAC is the 3-octet virtual MAC a B/IPv6 node is known by on the link.
type VMAC [3]byte

// BIP6Address is the 18-octet B/IPv6 address form inside Forwarded-NPDU:
// IPv6 address plus UDP port.
type BIP6Address struct {
	IP   [16]byte
	Port uint16
}

// Message6 is the decoded form of one BVLL-IPv6 frame.
type Message6 struct {
	Function Function

	// Source VMAC; present on every function this codec covers except
	// Forwarded-NPDU, which carries the full original address instead.
	Source VMAC

	// Original-Unicast-NPDU only.
	Destination VMAC

	// Result only.
	Result ResultCode

	// Forwarded-NPDU only.
	Origin BIP6Address

	// Register-Foreign-Device only.
	TTL uint16

	// NPDU bytes for the NPDU-carrying functions.
	Payload []byte
}

// Encode6 appends one BVLL-IPv6 frame built from m and returns buf.
func Encode6(buf []byte, m Message6) []byte {
	body := body6Len(m)
	buf = append(buf, TypeBACnetIP6, byte(m.Function))
	buf = binary.BigEndian.AppendUint16(buf, uint16(headerLen+body))
	switch m.Function {
	case Func6Result:
		buf = append(buf, m.Source[:]...)
		buf = binary.BigEndian.AppendUint16(buf, uint16(m.Result))
	case Func6OriginalUnicastNPDU:
		buf = append(buf, m.Source[:]...)
		buf = append(buf, m.Destination[:]...)
		buf = append(buf, m.Payload...)
	case Func6ForwardedNPDU:
		buf = append(buf, m.Origin.IP[:]...)
		buf = binary.BigEndian.AppendUint16(buf, m.Origin.Port)
		buf = append(buf, m.Payload...)
	case Func6RegisterForeignDevice:
		buf = append(buf, m.Source[:]...)
		buf = binary.BigEndian.AppendUint16(buf, m.TTL)
	default:
		buf = append(buf, m.Source[:]...)
		buf = append(buf, m.Payload...)
	}
	return buf
}

func body6Len(m Message6) int {
	switch m.Function {
	case Func6Result, Func6RegisterForeignDevice:
		return 3 + 2
	case Func6OriginalUnicastNPDU:
		return 3 + 3 + len(m.Payload)
	case Func6ForwardedNPDU:
		return 18 + len(m.Payload)
	default:
		return 3 + len(m.Payload)
	}
}

// Decode6 parses one BVLL-IPv6 frame with the same length discipline as
// Decode.
func Decode6(buf []byte) (Message6, error) {
	if len(buf) < headerLen {
		return Message6{}, bacerr.ErrTruncated
	}
	if buf[0] != TypeBACnetIP6 {
		return Message6{}, errors.Wrapf(bacerr.ErrInvalidTag, "bvlc: type octet 0x%02X", buf[0])
	}
	declared := int(binary.BigEndian.Uint16(buf[2:4]))
	if declared < headerLen || declared > len(buf) {
		return Message6{}, errors.Wrapf(bacerr.ErrInvalidLength, "bvlc: declared length %d, have %d", declared, len(buf))
	}
	m := Message6{Function: Function(buf[1])}
	body := buf[headerLen:declared]

	switch m.Function {
	case Func6Result:
		if len(body) < 5 {
			return Message6{}, bacerr.ErrUnexpectedEndOfFrame
		}
		copy(m.Source[:], body[:3])
		m.Result = ResultCode(binary.BigEndian.Uint16(body[3:5]))
	case Func6OriginalUnicastNPDU:
		if len(body) < 6 {
			return Message6{}, bacerr.ErrUnexpectedEndOfFrame
		}
		copy(m.Source[:], body[:3])
		copy(m.Destination[:], body[3:6])
		m.Payload = body[6:]
	case Func6ForwardedNPDU:
		if len(body) < 18 {
			return Message6{}, bacerr.ErrUnexpectedEndOfFrame
		}
		copy(m.Origin.IP[:], body[:16])
		m.Origin.Port = binary.BigEndian.Uint16(body[16:18])
		m.Payload = body[18:]
	case Func6RegisterForeignDevice:
		if len(body) < 5 {
			return Message6{}, bacerr.ErrUnexpectedEndOfFrame
		}
		copy(m.Source[:], body[:3])
		m.TTL = binary.BigEndian.Uint16(body[3:5])
	default:
		if len(body) < 3 {
			return Message6{}, bacerr.ErrUnexpectedEndOfFrame
		}
		copy(m.Source[:], body[:3])
		m.Payload = body[3:]
	}
	return m, nil
}
