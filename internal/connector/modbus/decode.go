package modbus

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// composeWords assembles consecutive 16-bit registers into one unsigned
// integer under the mapping's byte-order policy.
//
// The wire format (and goburrow's result buffer) is big-endian within
// each register. Word order decides whether the first register is the
// most or least significant word; the byte-swap variants additionally
// swap the two bytes inside every word.
func composeWords(words []uint16, order connector.ByteOrder) uint64 {
	swapped := make([]uint16, len(words))
	copy(swapped, words)

	switch order {
	case connector.BigEndianByteSwap, connector.LittleEndianByteSwap:
		for i, w := range swapped {
			swapped[i] = w<<8 | w>>8
		}
	}

	switch order {
	case connector.LittleEndian, connector.LittleEndianByteSwap:
		for i, j := 0, len(swapped)-1; i < j; i, j = i+1, j-1 {
			swapped[i], swapped[j] = swapped[j], swapped[i]
		}
	}

	var v uint64
	for _, w := range swapped {
		v = v<<16 | uint64(w)
	}
	return v
}

// wordsFromBytes splits a goburrow register read result into 16-bit
// words. Register bytes arrive MSB-first on the wire.
func wordsFromBytes(data []byte) []uint16 {
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return words
}

// decodeRegisters converts a raw register read into the mapping's
// normalized numeric value, applying byte-order composition, two's
// complement sign interpretation, IEEE 754 reinterpretation, and the
// mapping's scale factor and offset.
func decodeRegisters(m connector.PointMapping, data []byte) (float64, error) {
	want := int(m.DataType.RegisterCount()) * 2
	if len(data) < want {
		return 0, fmt.Errorf("%w: %d bytes for %s, want %d",
			connector.ErrReadFailed, len(data), m.DataType, want)
	}

	raw := composeWords(wordsFromBytes(data[:want]), m.ByteOrder)

	var value float64
	switch m.DataType {
	case connector.TypeInt16:
		value = float64(int16(raw))
	case connector.TypeUInt16:
		value = float64(uint16(raw))
	case connector.TypeInt32:
		value = float64(int32(raw))
	case connector.TypeUInt32:
		value = float64(uint32(raw))
	case connector.TypeInt64:
		value = float64(int64(raw))
	case connector.TypeUInt64:
		value = float64(raw)
	case connector.TypeFloat32:
		value = float64(math.Float32frombits(uint32(raw)))
	case connector.TypeFloat64:
		value = math.Float64frombits(raw)
	case connector.TypeBoolean:
		// Booleans pass through unscaled; scale and offset apply to
		// numeric types only.
		if raw != 0 {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: data type %q not readable from registers",
			connector.ErrReadFailed, m.DataType)
	}

	return m.Transform(value), nil
}

// decodeBit extracts one coil or discrete-input state from a bit-packed
// read result. Modbus packs eight inputs per byte, LSB first.
func decodeBit(data []byte) (bool, error) {
	if len(data) == 0 {
		return false, fmt.Errorf("%w: empty bit read result", connector.ErrReadFailed)
	}
	return data[0]&0x01 == 0x01, nil
}
