package connector

import (
	"errors"
	"testing"
	"time"
)

func TestParseConfig_ModbusTCP(t *testing.T) {
	raw := map[string]any{
		"id":       "plc-1",
		"name":     "Boiler PLC",
		"protocol": "modbus-tcp",
		"enabled":  true,
		"params": map[string]any{
			"host":    "10.0.0.5",
			"port":    502,
			"unit_id": 1,
		},
		"mappings": []any{
			map[string]any{
				"id":           "temp-1",
				"address":      100,
				"register":     "holding-register",
				"data_type":    "float32",
				"scale_factor": 0.1,
				"unit":         "degC",
			},
			map[string]any{
				"id":        "run-1",
				"address":   0,
				"register":  "coil",
				"data_type": "boolean",
			},
		},
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if cfg.ID != "plc-1" {
		t.Errorf("ID = %q, want %q", cfg.ID, "plc-1")
	}
	if cfg.Protocol != ProtocolModbusTCP {
		t.Errorf("Protocol = %q, want %q", cfg.Protocol, ProtocolModbusTCP)
	}
	if cfg.PollIntervalMs != defaultPollIntervalMs {
		t.Errorf("PollIntervalMs = %d, want default %d", cfg.PollIntervalMs, defaultPollIntervalMs)
	}
	if len(cfg.Mappings) != 2 {
		t.Fatalf("len(Mappings) = %d, want 2", len(cfg.Mappings))
	}
	if cfg.Mappings[0].ByteOrder != BigEndian {
		t.Errorf("default ByteOrder = %q, want %q", cfg.Mappings[0].ByteOrder, BigEndian)
	}
	if cfg.Mappings[0].ScaleFactor != 0.1 {
		t.Errorf("ScaleFactor = %v, want 0.1", cfg.Mappings[0].ScaleFactor)
	}
	if cfg.Mappings[1].ScaleFactor != 1 {
		t.Errorf("default ScaleFactor = %v, want 1", cfg.Mappings[1].ScaleFactor)
	}

	var opts ModbusOptions
	if err := cfg.DecodeParams(&opts); err != nil {
		t.Fatalf("DecodeParams() error = %v", err)
	}
	if opts.Host != "10.0.0.5" || opts.Port != 502 || opts.UnitID != 1 {
		t.Errorf("opts = %+v, want host 10.0.0.5 port 502 unit 1", opts)
	}
}

func TestParseConfig_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing id", map[string]any{"protocol": "modbus-tcp"}},
		{"missing protocol", map[string]any{"id": "c1"}},
		{"missing mapping id", map[string]any{
			"id": "c1", "protocol": "mqtt",
			"mappings": []any{map[string]any{"topic": "t/1"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig(tt.raw); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("ParseConfig() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestParseConfig_DuplicateMappingIDs(t *testing.T) {
	raw := map[string]any{
		"id":       "c1",
		"protocol": "modbus-tcp",
		"mappings": []any{
			map[string]any{"id": "dup", "address": 1, "data_type": "int16"},
			map[string]any{"id": "dup", "address": 2, "data_type": "int16"},
		},
	}

	_, err := ParseConfig(raw)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("ParseConfig() error = %v, want ErrInvalidConfig", err)
	}
}

func TestConfig_NormalizeDefaults(t *testing.T) {
	cfg := &Config{ID: "c1", Protocol: ProtocolBACnetIP}
	cfg.Normalize()

	if cfg.PollInterval() != time.Second {
		t.Errorf("PollInterval() = %v, want 1s", cfg.PollInterval())
	}
	if cfg.ConnectTimeout() != 10*time.Second {
		t.Errorf("ConnectTimeout() = %v, want 10s", cfg.ConnectTimeout())
	}
	if cfg.ReconnectInterval() != 5*time.Second {
		t.Errorf("ReconnectInterval() = %v, want 5s", cfg.ReconnectInterval())
	}
}

func TestPointMapping_Transform(t *testing.T) {
	tests := []struct {
		name    string
		mapping PointMapping
		raw     float64
		want    float64
	}{
		{"identity", PointMapping{ScaleFactor: 1}, 42, 42},
		{"scale only", PointMapping{ScaleFactor: 0.1}, 215, 21.5},
		{"offset only", PointMapping{ScaleFactor: 1, Offset: -40}, 100, 60},
		{"scale then offset", PointMapping{ScaleFactor: 0.5, Offset: 10}, 20, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mapping.Transform(tt.raw); got != tt.want {
				t.Errorf("Transform(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestConfig_DecodeParamsBACnet(t *testing.T) {
	cfg := &Config{
		ID:       "bac-1",
		Protocol: ProtocolBACnetIP,
		Params: map[string]any{
			"broadcast_address":    "192.168.1.255:47808",
			"device_instance":      1234,
			"discovery_window_ms":  5000,
			"cov_lifetime_seconds": 300,
		},
	}

	var opts BACnetOptions
	if err := cfg.DecodeParams(&opts); err != nil {
		t.Fatalf("DecodeParams() error = %v", err)
	}
	if opts.BroadcastAddress != "192.168.1.255:47808" {
		t.Errorf("BroadcastAddress = %q", opts.BroadcastAddress)
	}
	if opts.DeviceInstance != 1234 {
		t.Errorf("DeviceInstance = %d, want 1234", opts.DeviceInstance)
	}
	if opts.COVLifetimeSeconds != 300 {
		t.Errorf("COVLifetimeSeconds = %d, want 300", opts.COVLifetimeSeconds)
	}
}
