package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/infrastructure/config"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("SENSORMINE_CONFIG")
	defer os.Setenv("SENSORMINE_CONFIG", originalEnv)

	os.Setenv("SENSORMINE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidQoS verifies run fails when validation rejects the file.
func TestRun_InvalidQoS(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
service:
  id: test-service

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-client"
  qos: 7

logging:
  level: info
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	originalEnv := os.Getenv("SENSORMINE_CONFIG")
	defer os.Setenv("SENSORMINE_CONFIG", originalEnv)
	os.Setenv("SENSORMINE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when mqtt.qos is out of range")
	}
}

func TestGetConfigPath(t *testing.T) {
	originalEnv := os.Getenv("SENSORMINE_CONFIG")
	defer os.Setenv("SENSORMINE_CONFIG", originalEnv)

	os.Unsetenv("SENSORMINE_CONFIG")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	os.Setenv("SENSORMINE_CONFIG", "/etc/sensormine/config.yaml")
	if got := getConfigPath(); got != "/etc/sensormine/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestNewFactory_RegistersAllProtocols(t *testing.T) {
	factory := newFactory()

	protocols := []connector.Protocol{
		connector.ProtocolModbusTCP,
		connector.ProtocolModbusRTU,
		connector.ProtocolBACnetIP,
		connector.ProtocolMQTT,
		connector.ProtocolOPCUA,
		connector.ProtocolEtherNetIP,
	}
	for _, p := range protocols {
		if !factory.Supports(p) {
			t.Errorf("Supports(%q) = false, want true", p)
		}
	}
}

func TestBuildConnectors(t *testing.T) {
	mgr := connector.NewManager(newFactory(), nil)
	defer mgr.Close(context.Background())

	raw := []map[string]any{
		{
			"id":       "plc-1",
			"name":     "Boiler PLC",
			"protocol": "modbus-tcp",
			"enabled":  true,
			"params": map[string]any{
				"host": "10.0.0.5",
			},
			"mappings": []map[string]any{
				{"id": "t1", "address": 100, "register": "holding-register", "data_type": "uint16"},
			},
		},
		{
			"id":       "plc-2",
			"name":     "Spare PLC",
			"protocol": "modbus-tcp",
			"enabled":  false,
			"params": map[string]any{
				"host": "10.0.0.6",
			},
			"mappings": []map[string]any{
				{"id": "t1", "address": 100, "register": "holding-register", "data_type": "uint16"},
			},
		},
	}

	added, skipped, err := buildConnectors(mgr, raw)
	if err != nil {
		t.Fatalf("buildConnectors() error = %v", err)
	}
	if added != 1 || skipped != 1 {
		t.Errorf("added/skipped = %d/%d, want 1/1", added, skipped)
	}
	if _, err := mgr.Get("plc-1"); err != nil {
		t.Errorf("Get(plc-1) error = %v, want registered", err)
	}
	if _, err := mgr.Get("plc-2"); !errors.Is(err, connector.ErrNotFound) {
		t.Errorf("Get(plc-2) error = %v, want ErrNotFound for disabled entry", err)
	}
}

func TestBuildConnectors_MalformedEntryFails(t *testing.T) {
	mgr := connector.NewManager(newFactory(), nil)
	defer mgr.Close(context.Background())

	raw := []map[string]any{
		{"name": "missing id and protocol", "enabled": true},
	}

	if _, _, err := buildConnectors(mgr, raw); err == nil {
		t.Fatal("buildConnectors() error = nil, want config validation failure")
	}
}

func TestBuildSinks_RespectsEnableFlags(t *testing.T) {
	cfg := &config.Config{}
	if got := buildSinks(cfg, nil, nil); len(got) != 0 {
		t.Errorf("sinks = %d, want 0 when nothing enabled", len(got))
	}

	cfg.Sinks.MQTT.Enabled = true
	got := buildSinks(cfg, nil, nil)
	if len(got) != 1 || got[0].Name() != "mqtt" {
		t.Fatalf("sinks = %v, want single mqtt sink", got)
	}

	// InfluxDB sink requires a live client even when enabled
	cfg.Sinks.InfluxDB.Enabled = true
	if got := buildSinks(cfg, nil, nil); len(got) != 1 {
		t.Errorf("sinks = %d, want influx sink skipped without client", len(got))
	}
}
