// Package bacerr holds the sentinel error taxonomy shared by every core
// component. The propagation policy: codec errors are
// always local, transaction errors surface through the reply callback,
// datalink errors surface as counters plus SendFailed, and CRC/framing
// errors never reach the application.
package bacerr

import "errors"

// Codec errors, returned by primitive, asdu and npdu decoders.
var (
	ErrTruncated            = errors.New("bacnet: truncated input")
	ErrInvalidTag           = errors.New("bacnet: invalid tag")
	ErrInvalidLength        = errors.New("bacnet: invalid length")
	ErrOutOfRange           = errors.New("bacnet: value out of range")
	ErrUnexpectedEndOfFrame = errors.New("bacnet: unexpected end of frame")
)

// Transaction errors, returned by tsm.
var (
	ErrNoFreeInvokeID       = errors.New("bacnet: no free invoke id")
	ErrTimeout              = errors.New("bacnet: confirmed request timed out")
	ErrSegmentationMismatch = errors.New("bacnet: segmentation mismatch")
)

// Address errors, returned by address.
var (
	ErrNotBound  = errors.New("bacnet: device instance not bound")
	ErrCacheFull = errors.New("bacnet: address cache full")
)

// Datalink errors, returned by datalink implementations and mstp.
var (
	ErrSendFailed    = errors.New("bacnet: send failed")
	ErrBusFault      = errors.New("bacnet: bus fault")
	ErrFrameCRCError = errors.New("bacnet: frame crc error")
)

// IsCodec reports whether err is (or wraps) one of the codec sentinels.
// Callers use this to decide between answering a malformed request with a
// Reject and dropping it.
func IsCodec(err error) bool {
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrInvalidTag) ||
		errors.Is(err, ErrInvalidLength) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrUnexpectedEndOfFrame)
}
