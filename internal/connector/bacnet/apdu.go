package bacnet

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// APDU PDU types (high nibble of the first octet).
const (
	pduConfirmedRequest   byte = 0x00
	pduUnconfirmedRequest byte = 0x10
	pduSimpleAck          byte = 0x20
	pduComplexAck         byte = 0x30
	pduError              byte = 0x50
	pduReject             byte = 0x60
	pduAbort              byte = 0x70
)

// Service choices used by this connector.
const (
	serviceUnconfirmedIAm   byte = 0x00
	serviceUnconfirmedWhoIs byte = 0x08
	serviceUnconfirmedCOV   byte = 0x02

	serviceConfirmedSubscribeCOV         byte = 0x05
	serviceConfirmedReadProperty         byte = 0x0C
	serviceConfirmedSubscribeCOVProperty byte = 0x1C
)

// propPresentValue is the Present_Value property identifier.
const propPresentValue byte = 85

// maxAPDUAccept advertises segmentation-unsupported, 1476-octet APDUs
// in confirmed requests.
const maxAPDUAccept byte = 0x05

// Application tag numbers.
const (
	tagNull       byte = 0
	tagBoolean    byte = 1
	tagUnsigned   byte = 2
	tagSignedInt  byte = 3
	tagReal       byte = 4
	tagDouble     byte = 5
	tagCharString byte = 7
	tagEnumerated byte = 9
	tagObjectID   byte = 12
)

// Object types addressable through point mappings, keyed by the
// configuration's object_type string.
var objectTypes = map[string]uint16{
	"analog-input":      0,
	"analog-output":     1,
	"analog-value":      2,
	"binary-input":      3,
	"binary-output":     4,
	"binary-value":      5,
	"device":            8,
	"multi-state-input": 13,
	"multi-state-value": 19,
}

const objectTypeDevice uint16 = 8

// ObjectType resolves a mapping's object_type string to its BACnet
// object type number.
func objectType(name string) (uint16, error) {
	t, ok := objectTypes[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown BACnet object type %q", connector.ErrInvalidConfig, name)
	}
	return t, nil
}

// encodeObjectID packs a 10-bit object type and 22-bit instance into the
// BACnetObjectIdentifier wire form.
func encodeObjectID(objType uint16, instance uint32) uint32 {
	return uint32(objType)<<22 | instance&0x3FFFFF
}

func decodeObjectID(v uint32) (objType uint16, instance uint32) {
	return uint16(v >> 22), v & 0x3FFFFF
}

// appTag builds an application tag octet for a payload length of at most
// four octets.
func appTag(tag byte, length int) byte {
	return tag<<4 | byte(length)
}

// ctxTag builds a context-specific tag octet.
func ctxTag(tag byte, length int) byte {
	return tag<<4 | 0x08 | byte(length)
}

// appendUnsigned appends a minimally encoded unsigned value.
func appendUnsigned(dst []byte, v uint32) []byte {
	switch {
	case v <= 0xFF:
		return append(dst, byte(v))
	case v <= 0xFFFF:
		return binary.BigEndian.AppendUint16(dst, uint16(v))
	case v <= 0xFFFFFF:
		return append(dst, byte(v>>16), byte(v>>8), byte(v))
	default:
		return binary.BigEndian.AppendUint32(dst, v)
	}
}

func unsignedLen(v uint32) int {
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	case v <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

// encodeWhoIs builds an unbounded Who-Is request APDU.
func encodeWhoIs() []byte {
	return []byte{pduUnconfirmedRequest, serviceUnconfirmedWhoIs}
}

// decodeIAm extracts the device instance from an I-Am announcement.
// The announcement's leading parameter is the application-tagged device
// object identifier; the trailing max-APDU, segmentation and vendor
// parameters are not needed for the directory.
func decodeIAm(apdu []byte) (uint32, error) {
	if len(apdu) < 7 {
		return 0, fmt.Errorf("%w: I-Am truncated", connector.ErrReadFailed)
	}
	if apdu[0] != pduUnconfirmedRequest || apdu[1] != serviceUnconfirmedIAm {
		return 0, fmt.Errorf("%w: not an I-Am APDU", connector.ErrReadFailed)
	}
	if apdu[2] != appTag(tagObjectID, 4) {
		return 0, fmt.Errorf("%w: I-Am missing object identifier", connector.ErrReadFailed)
	}

	objType, instance := decodeObjectID(binary.BigEndian.Uint32(apdu[3:7]))
	if objType != objectTypeDevice {
		return 0, fmt.Errorf("%w: I-Am object type %d, want device", connector.ErrReadFailed, objType)
	}
	return instance, nil
}

// encodeReadProperty builds a confirmed ReadProperty request for one
// object's Present_Value.
func encodeReadProperty(invokeID byte, objType uint16, instance uint32, property byte) []byte {
	apdu := []byte{pduConfirmedRequest, maxAPDUAccept, invokeID, serviceConfirmedReadProperty}
	apdu = append(apdu, ctxTag(0, 4))
	apdu = binary.BigEndian.AppendUint32(apdu, encodeObjectID(objType, instance))
	apdu = append(apdu, ctxTag(1, 1), property)
	return apdu
}

// encodeSubscribeCOV builds a confirmed SubscribeCOV request with
// unconfirmed notifications and a fixed lifetime. When a COV increment
// is set the SubscribeCOVProperty service carries it; the plain
// SubscribeCOV service has no increment parameter.
func encodeSubscribeCOV(invokeID byte, processID uint32, objType uint16, instance, lifetime uint32, increment float64) []byte {
	service := serviceConfirmedSubscribeCOV
	if increment > 0 {
		service = serviceConfirmedSubscribeCOVProperty
	}

	apdu := []byte{pduConfirmedRequest, maxAPDUAccept, invokeID, service}

	apdu = append(apdu, ctxTag(0, unsignedLen(processID)))
	apdu = appendUnsigned(apdu, processID)

	apdu = append(apdu, ctxTag(1, 4))
	apdu = binary.BigEndian.AppendUint32(apdu, encodeObjectID(objType, instance))

	// Unconfirmed notifications.
	apdu = append(apdu, ctxTag(2, 1), 0x00)

	apdu = append(apdu, ctxTag(3, unsignedLen(lifetime)))
	apdu = appendUnsigned(apdu, lifetime)

	if increment > 0 {
		// Monitored property reference: opening tag 4, context-tagged
		// property identifier, closing tag 4.
		apdu = append(apdu, 0x4E, ctxTag(0, 1), propPresentValue, 0x4F)
		apdu = append(apdu, ctxTag(5, 4))
		apdu = binary.BigEndian.AppendUint32(apdu, math.Float32bits(float32(increment)))
	}

	return apdu
}

// apduReply is one decoded confirmed-service response delivered to the
// pending-request table.
type apduReply struct {
	invokeID byte
	value    any
	err      error
}

// decodeReply classifies a confirmed-service response APDU. ComplexAck
// yields the decoded Present_Value; SimpleAck yields a nil value; Error,
// Reject and Abort yield the peer's refusal as an error. Returns false
// when the APDU is not a response type.
func decodeReply(apdu []byte) (apduReply, bool) {
	if len(apdu) < 2 {
		return apduReply{}, false
	}

	switch apdu[0] & 0xF0 {
	case pduComplexAck:
		value, err := decodeComplexAck(apdu)
		return apduReply{invokeID: apdu[1], value: value, err: err}, true
	case pduSimpleAck:
		return apduReply{invokeID: apdu[1]}, true
	case pduError:
		return apduReply{
			invokeID: apdu[1],
			err:      fmt.Errorf("%w: peer returned error PDU", connector.ErrReadFailed),
		}, true
	case pduReject, pduAbort:
		return apduReply{
			invokeID: apdu[1],
			err:      fmt.Errorf("%w: request rejected by peer", connector.ErrReadFailed),
		}, true
	default:
		return apduReply{}, false
	}
}

// decodeComplexAck walks a ReadProperty ComplexAck to the opening tag 3
// property value and decodes the first application-tagged datum inside.
//
// Layout: pdu, invoke, service, ctx0 object-id, ctx1 property-id,
// opening tag 3, application value, closing tag 3.
func decodeComplexAck(apdu []byte) (any, error) {
	if len(apdu) < 3 || apdu[2] != serviceConfirmedReadProperty {
		return nil, fmt.Errorf("%w: unexpected ack service", connector.ErrReadFailed)
	}

	offset := 3

	// Context tag 0: object identifier.
	if len(apdu) < offset+5 || apdu[offset] != ctxTag(0, 4) {
		return nil, fmt.Errorf("%w: ack missing object identifier", connector.ErrReadFailed)
	}
	offset += 5

	// Context tag 1: property identifier (one to four octets).
	if len(apdu) <= offset || apdu[offset]&0xF8 != ctxTag(1, 0) {
		return nil, fmt.Errorf("%w: ack missing property identifier", connector.ErrReadFailed)
	}
	offset += 1 + int(apdu[offset]&0x07)

	// Opening tag 3 wraps the property value.
	if len(apdu) <= offset || apdu[offset] != 0x3E {
		return nil, fmt.Errorf("%w: ack missing property value", connector.ErrReadFailed)
	}
	offset++

	value, _, err := decodeAppValue(apdu[offset:])
	return value, err
}

// decodeAppValue decodes one application-tagged value, returning the
// value and the number of octets consumed.
func decodeAppValue(data []byte) (any, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("%w: empty property value", connector.ErrReadFailed)
	}

	tag := data[0] >> 4
	if data[0]&0x08 != 0 {
		return nil, 0, fmt.Errorf("%w: context-tagged property value", connector.ErrReadFailed)
	}

	length := int(data[0] & 0x07)
	consumed := 1
	if length == 5 {
		// Extended length in the following octet.
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("%w: truncated extended tag", connector.ErrReadFailed)
		}
		length = int(data[1])
		consumed = 2
	}

	if tag == tagBoolean {
		return data[0]&0x01 == 0x01, consumed, nil
	}
	if tag == tagNull {
		return nil, consumed, nil
	}

	if len(data) < consumed+length {
		return nil, 0, fmt.Errorf("%w: value truncated", connector.ErrReadFailed)
	}
	payload := data[consumed : consumed+length]
	consumed += length

	switch tag {
	case tagUnsigned, tagEnumerated:
		var v uint64
		for _, b := range payload {
			v = v<<8 | uint64(b)
		}
		return float64(v), consumed, nil

	case tagSignedInt:
		var v int64
		if len(payload) > 0 && payload[0]&0x80 != 0 {
			v = -1
		}
		for _, b := range payload {
			v = v<<8 | int64(b)
		}
		return float64(v), consumed, nil

	case tagReal:
		if length != 4 {
			return nil, 0, fmt.Errorf("%w: REAL with %d octets", connector.ErrReadFailed, length)
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(payload))), consumed, nil

	case tagDouble:
		if length != 8 {
			return nil, 0, fmt.Errorf("%w: DOUBLE with %d octets", connector.ErrReadFailed, length)
		}
		return math.Float64frombits(binary.BigEndian.Uint64(payload)), consumed, nil

	case tagCharString:
		if length < 1 {
			return "", consumed, nil
		}
		// Leading octet is the character set; ANSI/UTF-8 is 0.
		return string(payload[1:]), consumed, nil

	default:
		return nil, 0, fmt.Errorf("%w: unsupported application tag %d", connector.ErrReadFailed, tag)
	}
}
