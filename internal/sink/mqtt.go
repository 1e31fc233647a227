package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// defaultTopicPrefix is used when no topic prefix is configured.
const defaultTopicPrefix = "sensormine/data"

// Publisher is the MQTT publishing surface the sink needs. *mqtt.Client
// from internal/infrastructure/mqtt satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTT publishes each data-received event as one JSON batch on a
// per-connector topic: {prefix}/{connector_id}.
type MQTT struct {
	pub    Publisher
	prefix string
	qos    byte
}

// NewMQTT builds an MQTT sink. An empty prefix falls back to the
// standard data topic prefix.
func NewMQTT(pub Publisher, topicPrefix string, qos byte) *MQTT {
	prefix := strings.TrimSuffix(topicPrefix, "/")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return &MQTT{pub: pub, prefix: prefix, qos: qos}
}

// Name implements Sink.
func (s *MQTT) Name() string { return "mqtt" }

// Write marshals the batch to JSON and publishes it. Events with no
// points are skipped.
func (s *MQTT) Write(_ context.Context, event connector.DataReceived) error {
	if len(event.Points) == 0 {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling batch: %w", err)
	}
	topic := s.prefix + "/" + event.ConnectorID
	if err := s.pub.Publish(topic, payload, s.qos, false); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}
