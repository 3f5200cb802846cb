package asdu

import "github.com/rob-gra/go-bacnet/primitive"

// PrivateTransferRequest is ConfirmedPrivateTransfer's body, ASHRAE 135
// clause 16.3. The vendor-specific payload is carried as opaque bytes
// wrapped in an application octet-string; a vendor's private block format
// is never interpreted.
type PrivateTransferRequest struct {
	VendorID      uint32
	ServiceNumber uint32
	Block         []byte
}

// EncodeConfirmedPrivateTransferRequest appends the request parameters.
func EncodeConfirmedPrivateTransferRequest(buf []byte, v PrivateTransferRequest) []byte {
	buf = primitive.EncodeContextUnsigned(buf, 0, v.VendorID)
	buf = primitive.EncodeContextUnsigned(buf, 1, v.ServiceNumber)
	if v.Block != nil {
		buf = primitive.EncodeOpeningTag(buf, 2)
		buf = primitive.EncodeApplicationOctetString(buf, v.Block)
		buf = primitive.EncodeClosingTag(buf, 2)
	}
	return buf
}

// DecodeConfirmedPrivateTransferRequest parses the request parameters.
func DecodeConfirmedPrivateTransferRequest(params []byte) (PrivateTransferRequest, error) {
	var v PrivateTransferRequest
	off := 0

	tag, n, err := expectContextTag(params[off:], 0)
	if err != nil {
		return PrivateTransferRequest{}, err
	}
	off += n
	vendor, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return PrivateTransferRequest{}, err
	}
	v.VendorID = vendor
	off += int(tag.LVT)

	tag, n, err = expectContextTag(params[off:], 1)
	if err != nil {
		return PrivateTransferRequest{}, err
	}
	off += n
	svc, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return PrivateTransferRequest{}, err
	}
	v.ServiceNumber = svc
	off += int(tag.LVT)

	if off < len(params) && primitive.IsOpeningTagNumber(params[off:], 2) {
		_, n, err := primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return PrivateTransferRequest{}, err
		}
		off += n
		block, consumed, err := DecodeValue(params[off:])
		if err != nil {
			return PrivateTransferRequest{}, err
		}
		v.Block = block.OctetString
		off += consumed
	}
	return v, nil
}

// PrivateTransferACK mirrors the request shape for the complex-ack.
type PrivateTransferACK = PrivateTransferRequest

// EncodeConfirmedPrivateTransferACK appends the ack parameters.
func EncodeConfirmedPrivateTransferACK(buf []byte, v PrivateTransferACK) []byte {
	return EncodeConfirmedPrivateTransferRequest(buf, v)
}

// DecodeConfirmedPrivateTransferACK parses the ack parameters.
func DecodeConfirmedPrivateTransferACK(params []byte) (PrivateTransferACK, error) {
	return DecodeConfirmedPrivateTransferRequest(params)
}

// PrivateTransferError is the error-ack body: vendor-id, service-number,
// plus the standard error-class/error-code pair.
type PrivateTransferError struct {
	VendorID      uint32
	ServiceNumber uint32
	ErrorClass    ErrorClass
	ErrorCode     ErrorCode
}

// EncodeConfirmedPrivateTransferError appends the error-ack parameters.
func EncodeConfirmedPrivateTransferError(buf []byte, v PrivateTransferError) []byte {
	buf = primitive.EncodeContextUnsigned(buf, 0, v.VendorID)
	buf = primitive.EncodeContextUnsigned(buf, 1, v.ServiceNumber)
	buf = primitive.EncodeOpeningTag(buf, 2)
	buf = primitive.EncodeApplicationEnumerated(buf, uint32(v.ErrorClass))
	buf = primitive.EncodeApplicationEnumerated(buf, uint32(v.ErrorCode))
	buf = primitive.EncodeClosingTag(buf, 2)
	return buf
}

// DecodeConfirmedPrivateTransferError parses the error-ack parameters.
func DecodeConfirmedPrivateTransferError(params []byte) (PrivateTransferError, error) {
	var v PrivateTransferError
	off := 0

	tag, n, err := expectContextTag(params[off:], 0)
	if err != nil {
		return PrivateTransferError{}, err
	}
	off += n
	vendor, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return PrivateTransferError{}, err
	}
	v.VendorID = vendor
	off += int(tag.LVT)

	tag, n, err = expectContextTag(params[off:], 1)
	if err != nil {
		return PrivateTransferError{}, err
	}
	off += n
	svc, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return PrivateTransferError{}, err
	}
	v.ServiceNumber = svc
	off += int(tag.LVT)

	_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return PrivateTransferError{}, err
	}
	off += n
	cls, consumed, err := DecodeValue(params[off:])
	if err != nil {
		return PrivateTransferError{}, err
	}
	off += consumed
	code, _, err := DecodeValue(params[off:])
	if err != nil {
		return PrivateTransferError{}, err
	}
	v.ErrorClass = ErrorClass(cls.Enumerated)
	v.ErrorCode = ErrorCode(code.Enumerated)
	return v, nil
}
