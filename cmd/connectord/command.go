package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/infrastructure/logging"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/infrastructure/mqtt"
)

// writeCommand is the JSON payload accepted on the per-connector write
// topic (sensormine/write/{connector_id}). Value semantics follow the
// tag's register kind: truthiness for coils, a raw register value for
// holding registers.
type writeCommand struct {
	TagID string `json:"tag_id"`
	Value any    `json:"value"`
}

// registerWriter is the write surface a connector must expose to accept
// broker-issued write commands. The Modbus connector implements it.
type registerWriter interface {
	Config() *connector.Config
	WriteRegister(address, value uint16) error
	WriteCoil(address uint16, on bool) error
}

// subscribeWriteCommands bridges inbound broker write commands to
// connector write operations. The subscription is restored automatically
// after a broker reconnect.
func subscribeWriteCommands(mgr *connector.Manager, mqttClient *mqtt.Client, qos byte, log *logging.Logger) error {
	topics := mqtt.Topics{}
	return mqttClient.Subscribe(topics.AllConnectorWrites(), qos, func(topic string, payload []byte) error {
		if err := handleWriteCommand(mgr, topic, payload); err != nil {
			log.Warn("write command rejected", "topic", topic, "error", err)
			return err
		}
		log.Info("write command applied", "topic", topic)
		return nil
	})
}

// handleWriteCommand resolves the target connector from the topic, the
// mapping from the command's tag id, and dispatches the write by
// register kind.
func handleWriteCommand(mgr *connector.Manager, topic string, payload []byte) error {
	id := topic[strings.LastIndexByte(topic, '/')+1:]
	conn, err := mgr.Get(id)
	if err != nil {
		return fmt.Errorf("connector %q: %w", id, err)
	}

	writer, ok := conn.(registerWriter)
	if !ok {
		return fmt.Errorf("%w: connector %q does not accept writes", connector.ErrUnsupportedOperation, id)
	}

	var cmd writeCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding write command: %w", err)
	}

	var mapping *connector.PointMapping
	for i, m := range writer.Config().Mappings {
		if m.ID == cmd.TagID {
			mapping = &writer.Config().Mappings[i]
			break
		}
	}
	if mapping == nil {
		return fmt.Errorf("connector %q has no tag %q", id, cmd.TagID)
	}

	switch mapping.Register {
	case connector.RegisterCoil:
		on, err := coilValue(cmd.Value)
		if err != nil {
			return fmt.Errorf("tag %q: %w", cmd.TagID, err)
		}
		return writer.WriteCoil(uint16(mapping.Address), on)

	case connector.RegisterHolding:
		value, err := registerValue(cmd.Value)
		if err != nil {
			return fmt.Errorf("tag %q: %w", cmd.TagID, err)
		}
		return writer.WriteRegister(uint16(mapping.Address), value)

	default:
		return fmt.Errorf("%w: tag %q (register kind %q) is not writable",
			connector.ErrUnsupportedOperation, cmd.TagID, mapping.Register)
	}
}

// coilValue interprets a JSON command value as a coil state.
func coilValue(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case float64:
		return val != 0, nil
	default:
		return false, fmt.Errorf("value %v (%T) is not a coil state", v, v)
	}
}

// registerValue interprets a JSON command value as a raw 16-bit register
// value.
func registerValue(v any) (uint16, error) {
	val, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("value %v (%T) is not a register value", v, v)
	}
	if val < 0 || val > math.MaxUint16 || val != math.Trunc(val) {
		return 0, fmt.Errorf("value %v outside the 16-bit register range", val)
	}
	return uint16(val), nil
}
