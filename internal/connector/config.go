package connector

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Protocol discriminates the concrete connector type of a configuration.
type Protocol string

// Supported protocol tags.
const (
	ProtocolModbusTCP  Protocol = "modbus-tcp"
	ProtocolModbusRTU  Protocol = "modbus-rtu"
	ProtocolBACnetIP   Protocol = "bacnet-ip"
	ProtocolMQTT       Protocol = "mqtt"
	ProtocolOPCUA      Protocol = "opc-ua"
	ProtocolEtherNetIP Protocol = "ethernet-ip"
)

// ByteOrder selects how multi-register numeric values are composed from
// consecutive 16-bit registers.
//
//	Policy                  Word order        Intra-word byte order
//	BigEndian               high word first   MSB first
//	LittleEndian            low word first    MSB first
//	BigEndianByteSwap       high word first   LSB first
//	LittleEndianByteSwap    low word first    LSB first
type ByteOrder string

const (
	BigEndian            ByteOrder = "big-endian"
	LittleEndian         ByteOrder = "little-endian"
	BigEndianByteSwap    ByteOrder = "big-endian-byte-swap"
	LittleEndianByteSwap ByteOrder = "little-endian-byte-swap"
)

// RegisterKind selects the Modbus read operation for a mapping.
type RegisterKind string

const (
	RegisterCoil          RegisterKind = "coil"
	RegisterDiscreteInput RegisterKind = "discrete-input"
	RegisterHolding       RegisterKind = "holding-register"
	RegisterInput         RegisterKind = "input-register"
)

// Default intervals and timeouts applied by Config.Normalize.
const (
	defaultPollIntervalMs      = 1000
	defaultConnectTimeoutMs    = 10000
	defaultReconnectIntervalMs = 5000
)

// PointMapping describes how to read and interpret one data point from a
// device. Address semantics are protocol-specific: a register address for
// Modbus, an object instance for BACnet, a topic for MQTT.
//
// Invariant: mapping IDs are unique within a configuration.
type PointMapping struct {
	// ID is the tag identifier carried on every emitted data point.
	ID string `yaml:"id" mapstructure:"id"`

	// Name is the human-readable display name.
	Name string `yaml:"name" mapstructure:"name"`

	// Address is the register address (Modbus) or object instance
	// (BACnet). Unused by topic-addressed protocols.
	Address uint32 `yaml:"address" mapstructure:"address"`

	// Register selects the Modbus register kind. Empty for other protocols.
	Register RegisterKind `yaml:"register" mapstructure:"register"`

	// ObjectType is the BACnet object type (e.g., "analog-input").
	ObjectType string `yaml:"object_type" mapstructure:"object_type"`

	// Topic is the broker topic for the external-MQTT connector.
	Topic string `yaml:"topic" mapstructure:"topic"`

	// DataType is the normalized type the raw value decodes to.
	DataType DataType `yaml:"data_type" mapstructure:"data_type"`

	// ByteOrder selects multi-register composition. Defaults to BigEndian.
	ByteOrder ByteOrder `yaml:"byte_order" mapstructure:"byte_order"`

	// ScaleFactor multiplies the decoded raw value. Defaults to 1.
	ScaleFactor float64 `yaml:"scale_factor" mapstructure:"scale_factor"`

	// Offset is added after scaling.
	Offset float64 `yaml:"offset" mapstructure:"offset"`

	// Unit is the optional engineering unit.
	Unit string `yaml:"unit" mapstructure:"unit"`

	// SchemaID optionally references an external schema used by a
	// downstream mapping collaborator.
	SchemaID string `yaml:"schema_id" mapstructure:"schema_id"`
}

// Transform applies the mapping's scale factor and offset to a raw
// numeric value. Booleans and strings pass through unscaled.
func (m PointMapping) Transform(raw float64) float64 {
	return raw*m.ScaleFactor + m.Offset
}

// Config is the discriminated connector configuration: common fields plus
// a protocol tag and a protocol-specific parameter block.
//
// Invariant: configuration IDs are unique and immutable once created;
// exactly one live connector instance exists per ID at any time.
type Config struct {
	// ID uniquely identifies the configuration and the live connector.
	ID string `yaml:"id" mapstructure:"id"`

	// Name is the human-readable connector name.
	Name string `yaml:"name" mapstructure:"name"`

	// TenantID scopes the connector for multi-tenant lookups.
	TenantID string `yaml:"tenant_id" mapstructure:"tenant_id"`

	// Protocol selects the concrete connector implementation.
	Protocol Protocol `yaml:"protocol" mapstructure:"protocol"`

	// Enabled gates whether the manager starts this connector.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// AutoReconnect and ReconnectIntervalMs are carried for an
	// orchestrating reconnect policy; the base framework does not drive
	// reconnection itself.
	AutoReconnect       bool `yaml:"auto_reconnect" mapstructure:"auto_reconnect"`
	ReconnectIntervalMs int  `yaml:"reconnect_interval_ms" mapstructure:"reconnect_interval_ms"`

	// ConnectTimeoutMs bounds transport connect attempts.
	ConnectTimeoutMs int `yaml:"connect_timeout_ms" mapstructure:"connect_timeout_ms"`

	// PollIntervalMs is the polling cadence for timer-driven connectors.
	PollIntervalMs int `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`

	// Tags carries free-form annotations.
	Tags map[string]string `yaml:"tags" mapstructure:"tags"`

	// Mappings lists the data points this connector reads or subscribes to.
	Mappings []PointMapping `yaml:"mappings" mapstructure:"mappings"`

	// Params holds the protocol-specific endpoint block, decoded into
	// the matching options struct via DecodeParams.
	Params map[string]any `yaml:"params" mapstructure:"params"`
}

// ModbusOptions is the endpoint parameter block for Modbus connectors.
type ModbusOptions struct {
	// Host and Port address the Modbus TCP gateway.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Device, BaudRate, DataBits, Parity and StopBits configure the
	// serial line for Modbus RTU.
	Device   string `mapstructure:"device"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	Parity   string `mapstructure:"parity"`
	StopBits int    `mapstructure:"stop_bits"`

	// UnitID is the Modbus slave/unit identifier.
	UnitID byte `mapstructure:"unit_id"`
}

// BACnetOptions is the endpoint parameter block for BACnet/IP connectors.
type BACnetOptions struct {
	// LocalAddress is the UDP listen address (default ":47808").
	LocalAddress string `mapstructure:"local_address"`

	// BroadcastAddress is where Who-Is requests are sent
	// (default "255.255.255.255:47808").
	BroadcastAddress string `mapstructure:"broadcast_address"`

	// TargetAddress/TargetPort statically address a device, bypassing
	// discovery. Empty means reads require a discovered device.
	TargetAddress string `mapstructure:"target_address"`
	TargetPort    int    `mapstructure:"target_port"`

	// DeviceInstance is the peer device instance used when resolving
	// discovered devices.
	DeviceInstance uint32 `mapstructure:"device_instance"`

	// DiscoveryWindowMs is the Who-Is reply collection window.
	DiscoveryWindowMs int `mapstructure:"discovery_window_ms"`

	// RequestTimeoutMs bounds confirmed-service request/response pairs.
	RequestTimeoutMs int `mapstructure:"request_timeout_ms"`

	// COVLifetimeSeconds is the fixed SubscribeCOV lifetime.
	COVLifetimeSeconds uint32 `mapstructure:"cov_lifetime_seconds"`

	// COVIncrement is the optional change threshold for SubscribeCOV.
	COVIncrement float64 `mapstructure:"cov_increment"`
}

// MQTTOptions is the endpoint parameter block for the external-MQTT
// subscription connector.
type MQTTOptions struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	TLS      bool   `mapstructure:"tls"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      int    `mapstructure:"qos"`
}

// OPCUAOptions is the endpoint parameter block for the OPC UA stub.
type OPCUAOptions struct {
	Endpoint string `mapstructure:"endpoint"`
}

// EtherNetIPOptions is the endpoint parameter block for the EtherNet/IP stub.
type EtherNetIPOptions struct {
	Address string `mapstructure:"address"`
	Slot    int    `mapstructure:"slot"`
}

// ParseConfig decodes a generic configuration map (as loaded from YAML)
// into a Config, applies defaults, and validates it.
//
// Returns ErrInvalidConfig (wrapped) when the map cannot be decoded or
// fails validation.
func ParseConfig(raw map[string]any) (*Config, error) {
	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DecodeParams decodes the protocol-specific parameter block into the
// given options struct.
//
// Example:
//
//	var opts ModbusOptions
//	if err := cfg.DecodeParams(&opts); err != nil { ... }
func (c *Config) DecodeParams(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := decoder.Decode(c.Params); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Normalize applies defaults in place: intervals, timeouts, mapping
// byte order and scale factor.
func (c *Config) Normalize() {
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = defaultPollIntervalMs
	}
	if c.ConnectTimeoutMs <= 0 {
		c.ConnectTimeoutMs = defaultConnectTimeoutMs
	}
	if c.ReconnectIntervalMs <= 0 {
		c.ReconnectIntervalMs = defaultReconnectIntervalMs
	}

	for i := range c.Mappings {
		if c.Mappings[i].ByteOrder == "" {
			c.Mappings[i].ByteOrder = BigEndian
		}
		if c.Mappings[i].ScaleFactor == 0 {
			c.Mappings[i].ScaleFactor = 1
		}
	}
}

// Validate checks the configuration common fields.
//
// Protocol-specific endpoint validation happens in the concrete
// connector constructors; this catches everything the factory can reject
// before dispatch.
func (c *Config) Validate() error {
	var errs []string

	if c.ID == "" {
		errs = append(errs, "id is required")
	}
	if c.Protocol == "" {
		errs = append(errs, "protocol is required")
	}

	seen := make(map[string]bool, len(c.Mappings))
	for _, m := range c.Mappings {
		if m.ID == "" {
			errs = append(errs, "mapping id is required")
			continue
		}
		if seen[m.ID] {
			errs = append(errs, fmt.Sprintf("duplicate mapping id %q", m.ID))
		}
		seen[m.ID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// PollInterval returns the polling cadence as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// ConnectTimeout returns the transport connect bound as a Duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// ReconnectInterval returns the orchestrator reconnect hint as a Duration.
func (c *Config) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectIntervalMs) * time.Millisecond
}
