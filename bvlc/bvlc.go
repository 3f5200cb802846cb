// Package bvlc encodes and decodes the BACnet Virtual Link Control
// framing that wraps every NPDU carried over IP, ASHRAE 135 Annex J (and
// Annex U for the IPv6 variant). The package is a pure codec: a BACnet/IP
// transport implementing datalink.Datalink owns the sockets and calls in
// here for the outer framing only.
package bvlc

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/rob-gra/go-bacnet/bacerr"
)

// Type is the first octet of every BVLL frame.
const (
	TypeBACnetIP  = 0x81
	TypeBACnetIP6 = 0x82
)

// Function is the second octet: which BVLL operation the frame carries.
type Function uint8

// Annex J function codes.
const (
	FuncResult                          Function = 0x00
	FuncWriteBroadcastDistributionTable Function = 0x01
	FuncReadBroadcastDistributionTable  Function = 0x02
	FuncForwardedNPDU                   Function = 0x04
	FuncRegisterForeignDevice           Function = 0x05
	FuncReadForeignDeviceTable          Function = 0x06
	FuncDeleteForeignDeviceTableEntry   Function = 0x08
	FuncDistributeBroadcastToNetwork    Function = 0x09
	FuncOriginalUnicastNPDU             Function = 0x0A
	FuncOriginalBroadcastNPDU           Function = 0x0B
	FuncSecureBVLL                      Function = 0x0C
)

func (f Function) String() string {
	switch f {
	case FuncResult:
		return "Result"
	case FuncWriteBroadcastDistributionTable:
		return "Write-Broadcast-Distribution-Table"
	case FuncReadBroadcastDistributionTable:
		return "Read-Broadcast-Distribution-Table"
	case FuncForwardedNPDU:
		return "Forwarded-NPDU"
	case FuncRegisterForeignDevice:
		return "Register-Foreign-Device"
	case FuncReadForeignDeviceTable:
		return "Read-Foreign-Device-Table"
	case FuncDeleteForeignDeviceTableEntry:
		return "Delete-Foreign-Device-Table-Entry"
	case FuncDistributeBroadcastToNetwork:
		return "Distribute-Broadcast-To-Network"
	case FuncOriginalUnicastNPDU:
		return "Original-Unicast-NPDU"
	case FuncOriginalBroadcastNPDU:
		return "Original-Broadcast-NPDU"
	case FuncSecureBVLL:
		return "Secure-BVLL"
	default:
		return "Unknown"
	}
}

// ResultCode is the payload of a Result frame.
type ResultCode uint16

const (
	ResultSuccess                         ResultCode = 0x0000
	ResultWriteBDTNAK                     ResultCode = 0x0010
	ResultReadBDTNAK                      ResultCode = 0x0020
	ResultRegisterForeignDeviceNAK        ResultCode = 0x0030
	ResultReadFDTNAK                      ResultCode = 0x0040
	ResultDeleteFDTEntryNAK               ResultCode = 0x0050
	ResultDistributeBroadcastToNetworkNAK ResultCode = 0x0060
)

// BIPAddress is the 6-octet B/IP address form used inside Forwarded-NPDU
// and the broadcast distribution table: IPv4 address plus UDP port.
type BIPAddress struct {
	IP   [4]byte
	Port uint16
}

const headerLen = 4

// Message is the decoded form of one BVLL frame.
type Message struct {
	Function Function

	// Result only.
	Result ResultCode

	// Forwarded-NPDU only: the B/IP address of the original sender.
	Origin BIPAddress

	// Register-Foreign-Device only: requested registration lifetime in
	// seconds.
	TTL uint16

	// NPDU bytes for the NPDU-carrying functions; raw payload for
	// everything else (table contents, Secure-BVLL envelope).
	Payload []byte
}

// Encode appends one BVLL frame built from m and returns buf. The length
// field is computed from the payload; the caller never supplies it.
func Encode(buf []byte, m Message) []byte {
	body := bodyLen(m)
	buf = append(buf, TypeBACnetIP, byte(m.Function))
	buf = binary.BigEndian.AppendUint16(buf, uint16(headerLen+body))
	switch m.Function {
	case FuncResult:
		buf = binary.BigEndian.AppendUint16(buf, uint16(m.Result))
	case FuncForwardedNPDU:
		buf = append(buf, m.Origin.IP[:]...)
		buf = binary.BigEndian.AppendUint16(buf, m.Origin.Port)
		buf = append(buf, m.Payload...)
	case FuncRegisterForeignDevice:
		buf = binary.BigEndian.AppendUint16(buf, m.TTL)
	default:
		buf = append(buf, m.Payload...)
	}
	return buf
}

func bodyLen(m Message) int {
	switch m.Function {
	case FuncResult, FuncRegisterForeignDevice:
		return 2
	case FuncForwardedNPDU:
		return 6 + len(m.Payload)
	default:
		return len(m.Payload)
	}
}

// Decode parses one BVLL frame. It rejects a wrong type octet, a length
// field disagreeing with the actual frame, and truncated function-specific
// payloads; it never reads past buf.
func Decode(buf []byte) (Message, error) {
	if len(buf) < headerLen {
		return Message{}, bacerr.ErrTruncated
	}
	if buf[0] != TypeBACnetIP {
		return Message{}, errors.Wrapf(bacerr.ErrInvalidTag, "bvlc: type octet 0x%02X", buf[0])
	}
	declared := int(binary.BigEndian.Uint16(buf[2:4]))
	if declared < headerLen || declared > len(buf) {
		return Message{}, errors.Wrapf(bacerr.ErrInvalidLength, "bvlc: declared length %d, have %d", declared, len(buf))
	}
	m := Message{Function: Function(buf[1])}
	body := buf[headerLen:declared]

	switch m.Function {
	case FuncResult:
		if len(body) < 2 {
			return Message{}, bacerr.ErrUnexpectedEndOfFrame
		}
		m.Result = ResultCode(binary.BigEndian.Uint16(body))
	case FuncForwardedNPDU:
		if len(body) < 6 {
			return Message{}, bacerr.ErrUnexpectedEndOfFrame
		}
		copy(m.Origin.IP[:], body[:4])
		m.Origin.Port = binary.BigEndian.Uint16(body[4:6])
		m.Payload = body[6:]
	case FuncRegisterForeignDevice:
		if len(body) < 2 {
			return Message{}, bacerr.ErrUnexpectedEndOfFrame
		}
		m.TTL = binary.BigEndian.Uint16(body)
	default:
		m.Payload = body
	}
	return m, nil
}
