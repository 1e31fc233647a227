package opcua

import (
	"context"
	"errors"
	"testing"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

func stubConfig(params map[string]any) *connector.Config {
	cfg := &connector.Config{ID: "ua-1", Protocol: connector.ProtocolOPCUA, Params: params}
	cfg.Normalize()
	return cfg
}

func TestNew_RequiresEndpoint(t *testing.T) {
	if _, err := New(stubConfig(nil), nil); !errors.Is(err, connector.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestStub_Lifecycle(t *testing.T) {
	conn, err := New(stubConfig(map[string]any{"endpoint": "opc.tcp://10.0.0.9:4840"}), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if conn.Status() != connector.StatusConnected {
		t.Errorf("Status() = %q, want connected", conn.Status())
	}

	if err := conn.Start(ctx); !errors.Is(err, connector.ErrUnsupportedOperation) {
		t.Errorf("Start() error = %v, want ErrUnsupportedOperation", err)
	}

	c := conn.(*Connector)
	if _, err := c.Read(ctx, connector.PointMapping{ID: "n"}); !errors.Is(err, connector.ErrUnsupportedOperation) {
		t.Errorf("Read() error = %v, want ErrUnsupportedOperation", err)
	}

	if err := conn.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, open := <-conn.Events(); open {
		t.Error("events channel open after Close")
	}
}
