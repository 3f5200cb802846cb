package asdu

import "github.com/rob-gra/go-bacnet/primitive"

// ReinitializedState enumerates ReinitializeDevice's state parameter,
// ASHRAE 135 clause 16.4.1.1.
type ReinitializedState uint32

const (
	ReinitializeColdstart     ReinitializedState = 0
	ReinitializeWarmstart     ReinitializedState = 1
	ReinitializeStartBackup   ReinitializedState = 2
	ReinitializeEndBackup     ReinitializedState = 3
	ReinitializeStartRestore  ReinitializedState = 4
	ReinitializeEndRestore    ReinitializedState = 5
	ReinitializeAbortRestore  ReinitializedState = 6
)

// ReinitializeDeviceRequest is ReinitializeDevice's body, ASHRAE 135
// clause 16.4.
type ReinitializeDeviceRequest struct {
	State    ReinitializedState
	Password *string
}

// EncodeReinitializeDeviceRequest appends the request parameters.
func EncodeReinitializeDeviceRequest(buf []byte, v ReinitializeDeviceRequest) []byte {
	buf = primitive.EncodeContextEnumerated(buf, 0, uint32(v.State))
	if v.Password != nil {
		buf = primitive.EncodeContextCharacterString(buf, 1, primitive.NewUTF8String(*v.Password))
	}
	return buf
}

// DecodeReinitializeDeviceRequest parses the request parameters.
func DecodeReinitializeDeviceRequest(params []byte) (ReinitializeDeviceRequest, error) {
	var v ReinitializeDeviceRequest
	off := 0

	tag, n, err := expectContextTag(params[off:], 0)
	if err != nil {
		return ReinitializeDeviceRequest{}, err
	}
	off += n
	state, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
	if err != nil {
		return ReinitializeDeviceRequest{}, err
	}
	v.State = ReinitializedState(state)
	off += int(tag.LVT)

	if off < len(params) {
		tag, n, err = expectContextTag(params[off:], 1)
		if err != nil {
			return ReinitializeDeviceRequest{}, err
		}
		off += n
		cs, err := primitive.DecodeCharacterString(params[off:], int(tag.LVT))
		if err != nil {
			return ReinitializeDeviceRequest{}, err
		}
		pw := cs.String()
		v.Password = &pw
	}
	return v, nil
}

// DeviceCommunicationControlRequest is DeviceCommunicationControl's body,
// ASHRAE 135 clause 16.1.
type DeviceCommunicationControlRequest struct {
	TimeDurationMinutes *uint32
	EnableDisable        uint32 // 0=enable, 1=disable, 2=disable-initiation
	Password             *string
}

// EncodeDeviceCommunicationControlRequest appends the request parameters.
func EncodeDeviceCommunicationControlRequest(buf []byte, v DeviceCommunicationControlRequest) []byte {
	if v.TimeDurationMinutes != nil {
		buf = primitive.EncodeContextUnsigned(buf, 0, *v.TimeDurationMinutes)
	}
	buf = primitive.EncodeContextEnumerated(buf, 1, v.EnableDisable)
	if v.Password != nil {
		buf = primitive.EncodeContextCharacterString(buf, 2, primitive.NewUTF8String(*v.Password))
	}
	return buf
}

// DecodeDeviceCommunicationControlRequest parses the request parameters.
func DecodeDeviceCommunicationControlRequest(params []byte) (DeviceCommunicationControlRequest, error) {
	var v DeviceCommunicationControlRequest
	off := 0

	if primitive.IsContextTagNumber(params[off:], 0) {
		tag, n, err := primitive.DecodeTagNumberAndValue(params[off:])
		if err != nil {
			return DeviceCommunicationControlRequest{}, err
		}
		off += n
		dur, err := primitive.DecodeUnsigned(params[off:], int(tag.LVT))
		if err != nil {
			return DeviceCommunicationControlRequest{}, err
		}
		v.TimeDurationMinutes = &dur
		off += int(tag.LVT)
	}

	tag, n, err := expectContextTag(params[off:], 1)
	if err != nil {
		return DeviceCommunicationControlRequest{}, err
	}
	off += n
	enable, err := primitive.DecodeEnumerated(params[off:], int(tag.LVT))
	if err != nil {
		return DeviceCommunicationControlRequest{}, err
	}
	v.EnableDisable = enable
	off += int(tag.LVT)

	if off < len(params) {
		tag, n, err = expectContextTag(params[off:], 2)
		if err != nil {
			return DeviceCommunicationControlRequest{}, err
		}
		off += n
		cs, err := primitive.DecodeCharacterString(params[off:], int(tag.LVT))
		if err != nil {
			return DeviceCommunicationControlRequest{}, err
		}
		pw := cs.String()
		v.Password = &pw
	}
	return v, nil
}

// DeleteObjectRequest is DeleteObject's body, ASHRAE 135 clause 15.3.
type DeleteObjectRequest struct {
	ObjectID primitive.ObjectID
}

// EncodeDeleteObjectRequest appends the request parameters.
func EncodeDeleteObjectRequest(buf []byte, v DeleteObjectRequest) []byte {
	return primitive.EncodeApplicationObjectID(buf, v.ObjectID)
}

// DecodeDeleteObjectRequest parses the request parameters.
func DecodeDeleteObjectRequest(params []byte) (DeleteObjectRequest, error) {
	_, n, err := primitive.DecodeTagNumberAndValue(params)
	if err != nil {
		return DeleteObjectRequest{}, err
	}
	oid, err := primitive.DecodeObjectID(params[n:])
	if err != nil {
		return DeleteObjectRequest{}, err
	}
	return DeleteObjectRequest{ObjectID: oid}, nil
}
