package connector

import (
	"errors"
	"testing"
)

func TestFactory_RegisterAndNew(t *testing.T) {
	f := NewFactory()
	f.Register(ProtocolModbusTCP, fakeBuilder)

	if !f.Supports(ProtocolModbusTCP) {
		t.Error("Supports(modbus-tcp) = false after Register")
	}
	if f.Supports(ProtocolBACnetIP) {
		t.Error("Supports(bacnet-ip) = true, never registered")
	}

	conn, err := f.New(testConfig("plc-1", ProtocolModbusTCP), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conn.Protocol() != ProtocolModbusTCP {
		t.Errorf("Protocol() = %q, want %q", conn.Protocol(), ProtocolModbusTCP)
	}
}

func TestFactory_UnsupportedProtocol(t *testing.T) {
	f := NewFactory()

	_, err := f.New(testConfig("eip-1", ProtocolEtherNetIP), nil)
	if !errors.Is(err, ErrUnsupportedProtocol) {
		t.Errorf("New() error = %v, want ErrUnsupportedProtocol", err)
	}
}

func TestFactory_NilAndInvalidConfig(t *testing.T) {
	f := NewFactory()
	f.Register(ProtocolModbusTCP, fakeBuilder)

	if _, err := f.New(nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(nil) error = %v, want ErrInvalidConfig", err)
	}

	bad := &Config{Protocol: ProtocolModbusTCP} // no ID
	if _, err := f.New(bad, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(no id) error = %v, want ErrInvalidConfig", err)
	}
}

func TestFactory_Protocols(t *testing.T) {
	f := NewFactory()
	f.Register(ProtocolModbusTCP, fakeBuilder)
	f.Register(ProtocolModbusRTU, fakeBuilder)

	got := f.Protocols()
	if len(got) != 2 {
		t.Fatalf("len(Protocols()) = %d, want 2", len(got))
	}
	seen := map[Protocol]bool{}
	for _, p := range got {
		seen[p] = true
	}
	if !seen[ProtocolModbusTCP] || !seen[ProtocolModbusRTU] {
		t.Errorf("Protocols() = %v, want modbus-tcp and modbus-rtu", got)
	}
}
