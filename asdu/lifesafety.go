package asdu

import "github.com/rob-gra/go-bacnet/primitive"

// LifeSafetyOperationRequest is LifeSafetyOperation's body, ASHRAE 135
// clause 13.2.
type LifeSafetyOperationRequest struct {
	ProcessID        uint32
	RequestingSource string
	Operation        uint32
	TargetObject     *primitive.ObjectID
}

// EncodeLifeSafetyOperationRequest appends the request parameters.
func EncodeLifeSafetyOperationRequest(buf []byte, v LifeSafetyOperationRequest) []byte {
	buf = primitive.EncodeContextUnsigned(buf, 0, v.ProcessID)
	buf = primitive.EncodeContextCharacterString(buf, 1, primitive.NewUTF8String(v.RequestingSource))
	buf = primitive.EncodeContextEnumerated(buf, 2, v.Operation)
	if v.TargetObject != nil {
		buf = primitive.EncodeContextObjectID(buf, 3, *v.TargetObject)
	}
	return buf
}

// DecodeLifeSafetyOperationRequest parses the request parameters.
func DecodeLifeSafetyOperationRequest(params []byte) (LifeSafetyOperationRequest, error) {
	var v LifeSafetyOperationRequest
	off := 0

	tag, n, err := expectContextTag(params[off:], 0)
	if err != nil {
		return LifeSafetyOperationRequest{}, err
	}
	off += n
	pid, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return LifeSafetyOperationRequest{}, err
	}
	v.ProcessID = pid
	off += int(tag.LVT)

	tag, n, err = expectContextTag(params[off:], 1)
	if err != nil {
		return LifeSafetyOperationRequest{}, err
	}
	off += n
	cs, err := primitive.DecodeCharacterString(params[off:], int(tag.LVT))
	if err != nil {
		return LifeSafetyOperationRequest{}, err
	}
	v.RequestingSource = cs.String()
	off += int(tag.LVT)

	tag, n, err = expectContextTag(params[off:], 2)
	if err != nil {
		return LifeSafetyOperationRequest{}, err
	}
	off += n
	op, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
	if err != nil {
		return LifeSafetyOperationRequest{}, err
	}
	v.Operation = op
	off += int(tag.LVT)

	if off < len(params) {
		tag, n, err = expectContextTag(params[off:], 3)
		if err != nil {
			return LifeSafetyOperationRequest{}, err
		}
		off += n
		oid, err := primitive.DecodeObjectID(params[off:])
		if err != nil {
			return LifeSafetyOperationRequest{}, err
		}
		v.TargetObject = &oid
	}
	return v, nil
}

// SubscribeCOVRequest is SubscribeCOV's body, ASHRAE 135 clause 13.14.
type SubscribeCOVRequest struct {
	ProcessID         uint32
	ObjectID          primitive.ObjectID
	IssueConfirmedNotifications *bool
	Lifetime          *uint32 // seconds; absent cancels after Lifetime elapses never, present 0 means indefinite
}

// EncodeSubscribeCOVRequest appends the request parameters.
func EncodeSubscribeCOVRequest(buf []byte, v SubscribeCOVRequest) []byte {
	buf = primitive.EncodeContextUnsigned(buf, 0, v.ProcessID)
	buf = primitive.EncodeContextObjectID(buf, 1, v.ObjectID)
	if v.IssueConfirmedNotifications != nil {
		buf = primitive.EncodeContextBoolean(buf, 2, *v.IssueConfirmedNotifications)
		if v.Lifetime != nil {
			buf = primitive.EncodeContextUnsigned(buf, 3, *v.Lifetime)
		}
	}
	return buf
}

// DecodeSubscribeCOVRequest parses the request parameters. An absent
// IssueConfirmedNotifications means "cancel this subscription", ASHRAE 135
// clause 13.14.1.3.
func DecodeSubscribeCOVRequest(params []byte) (SubscribeCOVRequest, error) {
	var v SubscribeCOVRequest
	off := 0

	tag, n, err := expectContextTag(params[off:], 0)
	if err != nil {
		return SubscribeCOVRequest{}, err
	}
	off += n
	pid, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
	if err != nil {
		return SubscribeCOVRequest{}, err
	}
	v.ProcessID = pid
	off += int(tag.LVT)

	if _, n, err := expectContextTag(params[off:], 1); err != nil {
		return SubscribeCOVRequest{}, err
	} else {
		off += n
	}
	oid, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return SubscribeCOVRequest{}, err
	}
	v.ObjectID = oid
	off += 4

	if off < len(params) {
		tag, n, err = expectContextTag(params[off:], 2)
		if err != nil {
			return SubscribeCOVRequest{}, err
		}
		off += n
		b := tag.LVT != 0
		v.IssueConfirmedNotifications = &b

		if off < len(params) {
			tag, n, err = expectContextTag(params[off:], 3)
			if err != nil {
				return SubscribeCOVRequest{}, err
			}
			off += n
			life, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
			if err != nil {
				return SubscribeCOVRequest{}, err
			}
			v.Lifetime = &life
		}
	}
	return v, nil
}

// AtomicReadFileRequest is AtomicReadFile's body, ASHRAE 135 clause 14.1.
// Only stream-access is modeled; record-access is an explicit Non-goal
// beyond what a file-transfer demo requires.
type AtomicReadFileRequest struct {
	FileID      primitive.ObjectID
	StartPosition int32
	RequestedCount uint32
}

// EncodeAtomicReadFileRequest appends the request parameters, wrapped in
// the stream-access choice (context-tag 0, clause 14.1.1).
func EncodeAtomicReadFileRequest(buf []byte, v AtomicReadFileRequest) []byte {
	buf = primitive.EncodeApplicationObjectID(buf, v.FileID)
	buf = primitive.EncodeOpeningTag(buf, 0)
	buf = primitive.EncodeApplicationSigned(buf, v.StartPosition)
	buf = primitive.EncodeApplicationUnsigned(buf, v.RequestedCount)
	buf = primitive.EncodeClosingTag(buf, 0)
	return buf
}

// DecodeAtomicReadFileRequest parses the request parameters.
func DecodeAtomicReadFileRequest(params []byte) (AtomicReadFileRequest, error) {
	var v AtomicReadFileRequest
	_, n, err := primitive.DecodeTagNumberAndValue(params)
	if err != nil {
		return AtomicReadFileRequest{}, err
	}
	off := n
	fid, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return AtomicReadFileRequest{}, err
	}
	v.FileID = fid
	off += 4

	_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return AtomicReadFileRequest{}, err
	}
	off += n
	pos, consumed, err := DecodeValue(params[off:])
	if err != nil {
		return AtomicReadFileRequest{}, err
	}
	v.StartPosition = pos.Signed
	off += consumed
	count, _, err := DecodeValue(params[off:])
	if err != nil {
		return AtomicReadFileRequest{}, err
	}
	v.RequestedCount = count.Unsigned
	return v, nil
}

// AtomicWriteFileRequest is AtomicWriteFile's body, stream-access only.
type AtomicWriteFileRequest struct {
	FileID        primitive.ObjectID
	StartPosition int32
	FileData      []byte
}

// EncodeAtomicWriteFileRequest appends the request parameters.
func EncodeAtomicWriteFileRequest(buf []byte, v AtomicWriteFileRequest) []byte {
	buf = primitive.EncodeApplicationObjectID(buf, v.FileID)
	buf = primitive.EncodeOpeningTag(buf, 0)
	buf = primitive.EncodeApplicationSigned(buf, v.StartPosition)
	buf = primitive.EncodeApplicationOctetString(buf, v.FileData)
	buf = primitive.EncodeClosingTag(buf, 0)
	return buf
}

// DecodeAtomicWriteFileRequest parses the request parameters.
func DecodeAtomicWriteFileRequest(params []byte) (AtomicWriteFileRequest, error) {
	var v AtomicWriteFileRequest
	_, n, err := primitive.DecodeTagNumberAndValue(params)
	if err != nil {
		return AtomicWriteFileRequest{}, err
	}
	off := n
	fid, err := primitive.DecodeObjectID(params[off:])
	if err != nil {
		return AtomicWriteFileRequest{}, err
	}
	v.FileID = fid
	off += 4

	_, n, err = primitive.DecodeTagNumberAndValue(params[off:])
	if err != nil {
		return AtomicWriteFileRequest{}, err
	}
	off += n
	pos, consumed, err := DecodeValue(params[off:])
	if err != nil {
		return AtomicWriteFileRequest{}, err
	}
	v.StartPosition = pos.Signed
	off += consumed
	data, _, err := DecodeValue(params[off:])
	if err != nil {
		return AtomicWriteFileRequest{}, err
	}
	v.FileData = data.OctetString
	return v, nil
}
