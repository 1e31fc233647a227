package modbus

import (
	"errors"
	"math"
	"testing"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// regs packs 16-bit register values into the wire byte layout goburrow
// returns (MSB first within each register).
func regs(words ...uint16) []byte {
	out := make([]byte, 0, len(words)*2)
	for _, w := range words {
		out = append(out, byte(w>>8), byte(w))
	}
	return out
}

func TestComposeWords_ByteOrders(t *testing.T) {
	words := []uint16{0x0001, 0x0000}

	tests := []struct {
		order connector.ByteOrder
		want  uint64
	}{
		{connector.BigEndian, 0x00010000},
		{connector.LittleEndian, 0x00000001},
		{connector.BigEndianByteSwap, 0x01000000},
		{connector.LittleEndianByteSwap, 0x00000100},
	}

	for _, tt := range tests {
		if got := composeWords(words, tt.order); got != tt.want {
			t.Errorf("composeWords(%s) = %#x, want %#x", tt.order, got, tt.want)
		}
	}
}

func TestDecodeRegisters_UInt32WordOrder(t *testing.T) {
	data := regs(0x0001, 0x0000)

	be := connector.PointMapping{DataType: connector.TypeUInt32, ByteOrder: connector.BigEndian, ScaleFactor: 1}
	if got, err := decodeRegisters(be, data); err != nil || got != 65536 {
		t.Errorf("big-endian = %v, %v; want 65536, nil", got, err)
	}

	le := connector.PointMapping{DataType: connector.TypeUInt32, ByteOrder: connector.LittleEndian, ScaleFactor: 1}
	if got, err := decodeRegisters(le, data); err != nil || got != 1 {
		t.Errorf("little-endian = %v, %v; want 1, nil", got, err)
	}
}

func TestDecodeRegisters_Float32Pi(t *testing.T) {
	// 0x40490FDB is the IEEE 754 single-precision encoding of pi.
	m := connector.PointMapping{DataType: connector.TypeFloat32, ByteOrder: connector.BigEndian, ScaleFactor: 1}

	got, err := decodeRegisters(m, regs(0x4049, 0x0FDB))
	if err != nil {
		t.Fatalf("decodeRegisters() error = %v", err)
	}
	if math.Abs(got-math.Pi) > 1e-6 {
		t.Errorf("decodeRegisters() = %v, want ~%v", got, math.Pi)
	}
}

func TestDecodeRegisters_SignedInt16(t *testing.T) {
	m := connector.PointMapping{DataType: connector.TypeInt16, ByteOrder: connector.BigEndian, ScaleFactor: 1}

	got, err := decodeRegisters(m, regs(0xFFF6))
	if err != nil {
		t.Fatalf("decodeRegisters() error = %v", err)
	}
	if got != -10 {
		t.Errorf("decodeRegisters(0xFFF6) = %v, want -10", got)
	}
}

func TestDecodeRegisters_ScaleAndOffset(t *testing.T) {
	// Raw 215 with 0.1 scale and -1.5 offset: 215*0.1 - 1.5 = 20.
	m := connector.PointMapping{
		DataType:    connector.TypeUInt16,
		ByteOrder:   connector.BigEndian,
		ScaleFactor: 0.1,
		Offset:      -1.5,
	}

	got, err := decodeRegisters(m, regs(215))
	if err != nil {
		t.Fatalf("decodeRegisters() error = %v", err)
	}
	if math.Abs(got-20) > 1e-9 {
		t.Errorf("decodeRegisters() = %v, want 20", got)
	}
}

func TestDecodeRegisters_BooleanUnscaled(t *testing.T) {
	// Scale and offset apply to numeric types only; a cleared register
	// must stay falsy even when an offset would make it nonzero.
	m := connector.PointMapping{
		DataType:    connector.TypeBoolean,
		ByteOrder:   connector.BigEndian,
		ScaleFactor: 0.5,
		Offset:      5,
	}

	if got, err := decodeRegisters(m, regs(0x0000)); err != nil || got != 0 {
		t.Errorf("decodeRegisters(cleared) = %v, %v; want 0, nil", got, err)
	}
	if got, err := decodeRegisters(m, regs(0x0001)); err != nil || got != 1 {
		t.Errorf("decodeRegisters(set) = %v, %v; want 1, nil", got, err)
	}
}

func TestDecodeRegisters_Float64(t *testing.T) {
	bits := math.Float64bits(2.5)
	data := regs(
		uint16(bits>>48), uint16(bits>>32),
		uint16(bits>>16), uint16(bits),
	)

	m := connector.PointMapping{DataType: connector.TypeFloat64, ByteOrder: connector.BigEndian, ScaleFactor: 1}
	got, err := decodeRegisters(m, data)
	if err != nil {
		t.Fatalf("decodeRegisters() error = %v", err)
	}
	if got != 2.5 {
		t.Errorf("decodeRegisters() = %v, want 2.5", got)
	}
}

func TestDecodeRegisters_ShortBuffer(t *testing.T) {
	m := connector.PointMapping{DataType: connector.TypeUInt32, ByteOrder: connector.BigEndian, ScaleFactor: 1}

	_, err := decodeRegisters(m, regs(0x0001))
	if !errors.Is(err, connector.ErrReadFailed) {
		t.Errorf("decodeRegisters(short) error = %v, want ErrReadFailed", err)
	}
}

func TestDecodeBit(t *testing.T) {
	if on, err := decodeBit([]byte{0x01}); err != nil || !on {
		t.Errorf("decodeBit(0x01) = %v, %v; want true, nil", on, err)
	}
	if on, err := decodeBit([]byte{0x00}); err != nil || on {
		t.Errorf("decodeBit(0x00) = %v, %v; want false, nil", on, err)
	}
	if _, err := decodeBit(nil); !errors.Is(err, connector.ErrReadFailed) {
		t.Errorf("decodeBit(nil) error = %v, want ErrReadFailed", err)
	}
}
