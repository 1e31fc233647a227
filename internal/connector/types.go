package connector

import "time"

// Quality flags the reliability of a data point.
type Quality string

const (
	// QualityGood indicates the read and decode succeeded.
	QualityGood Quality = "good"

	// QualityBad indicates the read or decode failed; the point carries
	// a nil value so failures are visible downstream rather than dropped.
	QualityBad Quality = "bad"
)

// DataType identifies the normalized type of a data point value.
type DataType string

// Supported data types. Multi-register numeric types are composed from
// consecutive 16-bit registers on register-oriented protocols.
const (
	TypeBoolean DataType = "boolean"
	TypeInt16   DataType = "int16"
	TypeUInt16  DataType = "uint16"
	TypeInt32   DataType = "int32"
	TypeUInt32  DataType = "uint32"
	TypeInt64   DataType = "int64"
	TypeUInt64  DataType = "uint64"
	TypeFloat32 DataType = "float32"
	TypeFloat64 DataType = "float64"
	TypeString  DataType = "string"
)

// Numeric reports whether values of this type are subject to the
// scale-factor/offset transform.
func (t DataType) Numeric() bool {
	switch t {
	case TypeBoolean, TypeString:
		return false
	default:
		return true
	}
}

// RegisterCount returns how many 16-bit registers a value of this type
// occupies on register-oriented protocols (Modbus).
func (t DataType) RegisterCount() uint16 {
	switch t {
	case TypeInt32, TypeUInt32, TypeFloat32:
		return 2
	case TypeInt64, TypeUInt64, TypeFloat64:
		return 4
	default:
		return 1
	}
}

// ConnectionStatus represents the connector connection state machine:
//
//	Disconnected → Connecting → Connected → (Reconnecting | Error) → Disconnected
//
// Transitions are logged by the lifecycle base. The base never drives
// Reconnecting itself; that policy belongs to the concrete connector or
// an orchestrating layer.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusError        ConnectionStatus = "error"
)

// DataPoint is the normalized telemetry unit emitted by every connector
// regardless of wire protocol.
//
// Invariant: a mapping that fails to read still produces exactly one
// DataPoint with a nil Value and QualityBad.
type DataPoint struct {
	// ConnectorID identifies the source connector configuration.
	ConnectorID string `json:"connector_id"`

	// TagID is the point mapping identifier, unique within a configuration.
	TagID string `json:"tag_id"`

	// Name is the human-readable display name of the point.
	Name string `json:"name,omitempty"`

	// Value is the decoded, scaled value. Nil when Quality is bad.
	Value any `json:"value"`

	// DataType tags the normalized type of Value.
	DataType DataType `json:"data_type"`

	// Quality flags whether the read/decode succeeded.
	Quality Quality `json:"quality"`

	// SourceTime is the device-side timestamp of the sample (read time
	// for polled protocols).
	SourceTime time.Time `json:"source_time"`

	// ReceivedTime is when the connector normalized the sample.
	ReceivedTime time.Time `json:"received_time"`

	// Unit is the optional engineering unit (e.g., "degC", "kPa").
	Unit string `json:"unit,omitempty"`

	// Metadata carries free-form per-point annotations, including the
	// optional external schema identifier under "schema_id".
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DataReceived is the single notification shape raised by every connector
// and re-published once by the manager for downstream consumers.
type DataReceived struct {
	// ConnectorID identifies the emitting connector.
	ConnectorID string `json:"connector_id"`

	// Timestamp is when the batch was emitted.
	Timestamp time.Time `json:"timestamp"`

	// Points is the batch of normalized data points.
	Points []DataPoint `json:"points"`
}

// HealthSnapshot is an immutable, on-demand view of a connector's health.
// Assembling a snapshot never performs I/O and never blocks on the
// connector's poll loop.
type HealthSnapshot struct {
	// ConnectorID identifies the connector.
	ConnectorID string `json:"connector_id"`

	// Status is the current connection state.
	Status ConnectionStatus `json:"status"`

	// Healthy is derived from Status: true only when Connected.
	Healthy bool `json:"healthy"`

	// Message is a human-readable summary of the current state.
	Message string `json:"message"`

	// SuccessCount is the number of successful read cycles.
	SuccessCount uint64 `json:"success_count"`

	// FailureCount is the number of failed read cycles.
	FailureCount uint64 `json:"failure_count"`

	// AvgLatency is the rolling mean over the last min(100, samples)
	// recorded read latencies.
	AvgLatency time.Duration `json:"avg_latency"`

	// LastDataAt is when data was last received. Zero if never.
	LastDataAt time.Time `json:"last_data_at,omitempty"`

	// LastError is the text of the most recent failure. Empty if none.
	LastError string `json:"last_error,omitempty"`

	// LastErrorAt is when the most recent failure was recorded.
	LastErrorAt time.Time `json:"last_error_at,omitempty"`

	// EventsDropped counts data-received events discarded because the
	// event channel was full.
	EventsDropped uint64 `json:"events_dropped,omitempty"`
}

// Subscription records one active push-style subscription on a
// subscription connector.
type Subscription struct {
	// ID uniquely identifies the subscription within the connector.
	ID string `json:"id"`

	// TagID is the point mapping this subscription feeds.
	TagID string `json:"tag_id"`

	// Topic is the protocol-specific subscription target (MQTT topic,
	// BACnet object reference, ...).
	Topic string `json:"topic"`

	// CreatedAt is when the subscription was established.
	CreatedAt time.Time `json:"created_at"`
}
