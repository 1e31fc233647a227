package mqtt

import (
	"context"
	"errors"
	"testing"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/infrastructure/config"
)

// newDisconnectedClient builds a client that was never connected.
// Validation paths must fail before touching the network.
func newDisconnectedClient() *Client {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "test-client",
		},
		QoS: 1,
	}
	return &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}
}

func TestPublish_EmptyTopic(t *testing.T) {
	c := newDisconnectedClient()
	if err := c.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublish_InvalidQoS(t *testing.T) {
	c := newDisconnectedClient()
	if err := c.Publish("sensormine/data/x", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribe_NilHandler(t *testing.T) {
	c := newDisconnectedClient()
	err := c.Subscribe("sensormine/data/+", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestUnsubscribe_EmptyTopic(t *testing.T) {
	c := newDisconnectedClient()
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	c := newDisconnectedClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestSubscriptionTracking(t *testing.T) {
	c := newDisconnectedClient()

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if c.HasSubscription("sensormine/data/+") {
		t.Error("HasSubscription() = true for untracked topic")
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConnectorData", topics.ConnectorData("boiler-plc"), "sensormine/data/boiler-plc"},
		{"ConnectorPoint", topics.ConnectorPoint("boiler-plc", "supply-temp"), "sensormine/data/boiler-plc/supply-temp"},
		{"ConnectorHealth", topics.ConnectorHealth("boiler-plc"), "sensormine/health/boiler-plc"},
		{"SystemStatus", topics.SystemStatus(), "sensormine/system/status"},
		{"AllConnectorData", topics.AllConnectorData(), "sensormine/data/+"},
		{"AllConnectorHealth", topics.AllConnectorHealth(), "sensormine/health/+"},
		{"AllTopics", topics.AllTopics(), "sensormine/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}
