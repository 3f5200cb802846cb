// Package asdu encodes and decodes the BACnet Application Protocol Data
// Unit: the PDU-type header common to all eight PDU kinds, and the
// per-service parameter bodies. The codec never allocates the transaction
// slot or decides retry policy; it only turns bytes into the discriminated
// PDU record and back.
package asdu

import "fmt"

// PDUType is the high nibble of the first APDU octet, ASHRAE 135 clause 20.1.
type PDUType uint8

const (
	PDUConfirmedRequest   PDUType = 0
	PDUUnconfirmedRequest PDUType = 1
	PDUSimpleACK          PDUType = 2
	PDUComplexACK         PDUType = 3
	PDUSegmentACK         PDUType = 4
	PDUError              PDUType = 5
	PDUReject             PDUType = 6
	PDUAbort              PDUType = 7
)

var pduTypeNames = [...]string{
	"ConfirmedRequest", "UnconfirmedRequest", "SimpleACK", "ComplexACK",
	"SegmentACK", "Error", "Reject", "Abort",
}

func (t PDUType) String() string {
	if int(t) < len(pduTypeNames) {
		return pduTypeNames[t]
	}
	return fmt.Sprintf("PDUType(%d)", uint8(t))
}

// UnconfirmedService is the service-choice byte of an Unconfirmed-Request
// PDU, ASHRAE 135 clause 20.1.1.
type UnconfirmedService uint8

const (
	ServiceUnconfirmedIAm                  UnconfirmedService = 0
	ServiceUnconfirmedIHave                UnconfirmedService = 1
	ServiceUnconfirmedCOVNotification      UnconfirmedService = 2
	ServiceUnconfirmedEventNotification    UnconfirmedService = 3
	ServiceUnconfirmedPrivateTransfer      UnconfirmedService = 4
	ServiceUnconfirmedTextMessage          UnconfirmedService = 5
	ServiceTimeSynchronization             UnconfirmedService = 6
	ServiceUnconfirmedWhoHas               UnconfirmedService = 7
	ServiceUnconfirmedWhoIs                UnconfirmedService = 8
	ServiceUTCTimeSynchronization          UnconfirmedService = 9
	ServiceWriteGroup                      UnconfirmedService = 10
	ServiceUnconfirmedCOVNotificationMulti UnconfirmedService = 11
	ServiceWhoAmI                          UnconfirmedService = 26
	ServiceYouAre                          UnconfirmedService = 27
)

// ConfirmedService is the service-choice byte of a Confirmed-Request PDU,
// ASHRAE 135 clause 20.1.2.
type ConfirmedService uint8

const (
	ServiceAcknowledgeAlarm          ConfirmedService = 0
	ServiceConfirmedCOVNotification  ConfirmedService = 1
	ServiceConfirmedEventNotif       ConfirmedService = 2
	ServiceGetAlarmSummary           ConfirmedService = 3
	ServiceGetEnrollmentSummary      ConfirmedService = 4
	ServiceSubscribeCOV              ConfirmedService = 5
	ServiceAtomicReadFile            ConfirmedService = 6
	ServiceAtomicWriteFile           ConfirmedService = 7
	ServiceAddListElement            ConfirmedService = 8
	ServiceRemoveListElement         ConfirmedService = 9
	ServiceCreateObject              ConfirmedService = 10
	ServiceDeleteObject              ConfirmedService = 11
	ServiceReadProperty              ConfirmedService = 12
	ServiceReadPropertyMultiple      ConfirmedService = 14
	ServiceWriteProperty             ConfirmedService = 15
	ServiceWritePropertyMultiple     ConfirmedService = 16
	ServiceDeviceCommunicationCtrl   ConfirmedService = 17
	ServiceConfirmedPrivateTransfer  ConfirmedService = 18
	ServiceConfirmedTextMessage      ConfirmedService = 19
	ServiceReinitializeDevice        ConfirmedService = 20
	ServiceVTOpen                    ConfirmedService = 21
	ServiceVTClose                   ConfirmedService = 22
	ServiceVTData                    ConfirmedService = 23
	ServiceReadRange                 ConfirmedService = 26
	ServiceLifeSafetyOperation       ConfirmedService = 27
	ServiceSubscribeCOVProperty      ConfirmedService = 28
	ServiceGetEventInformation       ConfirmedService = 29
)

// MaxSegmentsAccepted is the decoded meaning of the max-segs nibble,
// ASHRAE 135 clause 20.1.2.4.
type MaxSegmentsAccepted uint8

const (
	MaxSegmentsUnspecified MaxSegmentsAccepted = 0
	MaxSegments2           MaxSegmentsAccepted = 1
	MaxSegments4           MaxSegmentsAccepted = 2
	MaxSegments8           MaxSegmentsAccepted = 3
	MaxSegments16          MaxSegmentsAccepted = 4
	MaxSegments32          MaxSegmentsAccepted = 5
	MaxSegments64          MaxSegmentsAccepted = 6
	MaxSegmentsMoreThan64  MaxSegmentsAccepted = 7
)

// MaxAPDUAccepted is the decoded meaning of the max-resp nibble, ASHRAE 135
// clause 20.1.2.5.
type MaxAPDUAccepted uint8

const (
	MaxAPDU50   MaxAPDUAccepted = 0
	MaxAPDU128  MaxAPDUAccepted = 1
	MaxAPDU206  MaxAPDUAccepted = 2
	MaxAPDU480  MaxAPDUAccepted = 3
	MaxAPDU1024 MaxAPDUAccepted = 4
	MaxAPDU1476 MaxAPDUAccepted = 5
)

// APDUSizeFor returns the octet count a MaxAPDUAccepted nibble represents.
func APDUSizeFor(m MaxAPDUAccepted) int {
	switch m {
	case MaxAPDU50:
		return 50
	case MaxAPDU128:
		return 128
	case MaxAPDU206:
		return 206
	case MaxAPDU480:
		return 480
	case MaxAPDU1024:
		return 1024
	case MaxAPDU1476:
		return 1476
	default:
		return 50
	}
}

// MaxAPDUAcceptedFor is the inverse of APDUSizeFor, rounding down to the
// largest nibble value that does not exceed size.
func MaxAPDUAcceptedFor(size int) MaxAPDUAccepted {
	switch {
	case size >= 1476:
		return MaxAPDU1476
	case size >= 1024:
		return MaxAPDU1024
	case size >= 480:
		return MaxAPDU480
	case size >= 206:
		return MaxAPDU206
	case size >= 128:
		return MaxAPDU128
	default:
		return MaxAPDU50
	}
}

// Segmentation is the segmentation-supported enumeration carried by I-Am
// and ReadProperty(Device.segmentation-supported), ASHRAE 135 clause 12.11.35.
type Segmentation uint8

const (
	SegmentationNone      Segmentation = 0
	SegmentationTransmit  Segmentation = 1
	SegmentationReceive   Segmentation = 2
	SegmentationBoth      Segmentation = 3
)

// RejectReason is the single-octet reason carried by a Reject-PDU, ASHRAE
// 135 clause 20.1.6.
type RejectReason uint8

const (
	RejectOther                      RejectReason = 0
	RejectBufferOverflow             RejectReason = 1
	RejectInconsistentParameters     RejectReason = 2
	RejectInvalidParameterDataType   RejectReason = 3
	RejectInvalidTag                 RejectReason = 4
	RejectMissingRequiredParameter   RejectReason = 5
	RejectParameterOutOfRange        RejectReason = 6
	RejectTooManyArguments           RejectReason = 7
	RejectUndefinedEnumeration       RejectReason = 8
	RejectUnrecognizedService        RejectReason = 9
	RejectInvalidTagOrLengthMismatch RejectReason = 10
)

// AbortReason is the single-octet reason carried by an Abort-PDU, ASHRAE
// 135 clause 20.1.7.
type AbortReason uint8

const (
	AbortOther                        AbortReason = 0
	AbortBufferOverflow               AbortReason = 1
	AbortInvalidAPDUInThisState       AbortReason = 2
	AbortPreemptedByHigherPriority    AbortReason = 3
	AbortSegmentationNotSupported     AbortReason = 4
	AbortSecurityError                AbortReason = 5
	AbortInsufficientSecurity         AbortReason = 6
	AbortWindowSizeOutOfRange         AbortReason = 7
	AbortApplicationExceededReplyTime AbortReason = 8
	AbortOutOfResources               AbortReason = 9
	AbortTSMTimeout                   AbortReason = 10
	AbortAPDUTooLong                  AbortReason = 11
)

// ErrorClass and ErrorCode are the two enumerations carried by an
// Error-PDU, ASHRAE 135 clause 20.1.5.
type ErrorClass uint8

const (
	ErrorClassDevice        ErrorClass = 0
	ErrorClassObject        ErrorClass = 1
	ErrorClassProperty      ErrorClass = 2
	ErrorClassResources     ErrorClass = 3
	ErrorClassSecurity      ErrorClass = 4
	ErrorClassServices      ErrorClass = 5
	ErrorClassVT            ErrorClass = 6
	ErrorClassCommunication ErrorClass = 7
)

type ErrorCode uint16

const (
	ErrorCodeOther                ErrorCode = 0
	ErrorCodeServiceRequestDenied ErrorCode = 29
	ErrorCodeUnknownObject        ErrorCode = 31
	ErrorCodeUnknownProperty      ErrorCode = 32
	ErrorCodeValueOutOfRange      ErrorCode = 37
	ErrorCodeWriteAccessDenied    ErrorCode = 40
	ErrorCodeInvalidDataType      ErrorCode = 47
)
