package ethernetip

import (
	"context"
	"errors"
	"testing"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

func stubConfig(params map[string]any) *connector.Config {
	cfg := &connector.Config{ID: "eip-1", Protocol: connector.ProtocolEtherNetIP, Params: params}
	cfg.Normalize()
	return cfg
}

func TestNew_RequiresAddress(t *testing.T) {
	if _, err := New(stubConfig(nil), nil); !errors.Is(err, connector.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestStub_Lifecycle(t *testing.T) {
	conn, err := New(stubConfig(map[string]any{"address": "10.0.0.20", "slot": 0}), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !conn.Health().Healthy {
		t.Error("Healthy = false while stub connected")
	}

	if err := conn.Start(ctx); !errors.Is(err, connector.ErrUnsupportedOperation) {
		t.Errorf("Start() error = %v, want ErrUnsupportedOperation", err)
	}

	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
