package bacnet

import (
	"encoding/binary"
	"fmt"
)

// BACnet/IP Virtual Link Control framing. Every UDP datagram starts with
// a four-byte BVLC header (type, function, 16-bit length including the
// header) wrapping an NPDU that in turn carries the APDU.
const (
	bvlcTypeBACnetIP byte = 0x81

	bvlcOriginalUnicast   byte = 0x0A
	bvlcOriginalBroadcast byte = 0x0B
	bvlcForwardedNPDU     byte = 0x04

	bvlcHeaderLen = 4
	// Forwarded NPDUs carry the originating B/IP address (4+2 bytes)
	// between the BVLC header and the NPDU.
	bvlcForwardedOriginLen = 6

	npduVersion byte = 0x01

	npduControlExpectingReply byte = 0x04
	npduControlSourcePresent  byte = 0x08
	npduControlDestPresent    byte = 0x20
	npduControlNetworkMessage byte = 0x80

	defaultPort = 47808
)

// encodeFrame wraps an APDU in an NPDU and BVLC header ready to send.
// Local-network addressing only: no destination or source specifier is
// emitted.
func encodeFrame(function byte, expectingReply bool, apdu []byte) []byte {
	var control byte
	if expectingReply {
		control = npduControlExpectingReply
	}

	length := bvlcHeaderLen + 2 + len(apdu)
	frame := make([]byte, 0, length)
	frame = append(frame, bvlcTypeBACnetIP, function)
	frame = binary.BigEndian.AppendUint16(frame, uint16(length))
	frame = append(frame, npduVersion, control)
	return append(frame, apdu...)
}

// decodeFrame validates the BVLC header, skips the NPDU network-layer
// addressing, and returns the APDU. Network-layer messages (router
// traffic) return a nil APDU without error so the receive loop can skip
// them.
func decodeFrame(data []byte) ([]byte, error) {
	if len(data) < bvlcHeaderLen+2 {
		return nil, fmt.Errorf("%w: frame too short (%d bytes)", ErrInvalidFrame, len(data))
	}
	if data[0] != bvlcTypeBACnetIP {
		return nil, fmt.Errorf("%w: BVLC type %#02x, want %#02x", ErrInvalidFrame, data[0], bvlcTypeBACnetIP)
	}

	length := int(binary.BigEndian.Uint16(data[2:4]))
	if length > len(data) {
		return nil, fmt.Errorf("%w: BVLC length %d exceeds datagram %d", ErrInvalidFrame, length, len(data))
	}
	data = data[:length]

	offset := bvlcHeaderLen
	switch data[1] {
	case bvlcOriginalUnicast, bvlcOriginalBroadcast:
	case bvlcForwardedNPDU:
		offset += bvlcForwardedOriginLen
	default:
		// Foreign-device registration results and table reads are not
		// part of the read/discovery contract.
		return nil, nil
	}

	if len(data) < offset+2 {
		return nil, fmt.Errorf("%w: NPDU truncated", ErrInvalidFrame)
	}
	if data[offset] != npduVersion {
		return nil, fmt.Errorf("%w: NPDU version %#02x", ErrInvalidFrame, data[offset])
	}

	control := data[offset+1]
	offset += 2

	if control&npduControlNetworkMessage != 0 {
		return nil, nil
	}

	// Skip destination specifier: DNET(2) DLEN(1) DADR(DLEN).
	if control&npduControlDestPresent != 0 {
		if len(data) < offset+3 {
			return nil, fmt.Errorf("%w: NPDU destination truncated", ErrInvalidFrame)
		}
		dlen := int(data[offset+2])
		offset += 3 + dlen
	}

	// Skip source specifier: SNET(2) SLEN(1) SADR(SLEN).
	if control&npduControlSourcePresent != 0 {
		if len(data) < offset+3 {
			return nil, fmt.Errorf("%w: NPDU source truncated", ErrInvalidFrame)
		}
		slen := int(data[offset+2])
		offset += 3 + slen
	}

	// Hop count trails the destination specifier.
	if control&npduControlDestPresent != 0 {
		offset++
	}

	if offset > len(data) {
		return nil, fmt.Errorf("%w: NPDU addressing exceeds frame", ErrInvalidFrame)
	}
	return data[offset:], nil
}
