package mqtt

import "fmt"

// Topic prefixes for the connector service.
//
// All topics use the flat scheme: sensormine/{category}/{connector_id}[/{tag_id}]
const (
	// TopicPrefix is the base for all connector service topics.
	TopicPrefix = "sensormine"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "sensormine/system"
)

// Topics provides builders for connector service MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	dataTopic := topics.ConnectorData("boiler-plc")
//	// Returns: "sensormine/data/boiler-plc"
type Topics struct{}

// ConnectorData returns the topic for data-point batches from one connector.
//
// Example: sensormine/data/boiler-plc
func (Topics) ConnectorData(connectorID string) string {
	return fmt.Sprintf("%s/data/%s", TopicPrefix, connectorID)
}

// ConnectorPoint returns the topic for a single tag's data points.
//
// Example: sensormine/data/boiler-plc/supply-temp
func (Topics) ConnectorPoint(connectorID, tagID string) string {
	return fmt.Sprintf("%s/data/%s/%s", TopicPrefix, connectorID, tagID)
}

// ConnectorHealth returns the topic for one connector's health snapshots.
//
// Example: sensormine/health/boiler-plc
func (Topics) ConnectorHealth(connectorID string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, connectorID)
}

// ConnectorWrite returns the inbound write-command topic for one connector.
//
// Example: sensormine/write/boiler-plc
func (Topics) ConnectorWrite(connectorID string) string {
	return fmt.Sprintf("%s/write/%s", TopicPrefix, connectorID)
}

// AllConnectorWrites returns a pattern matching every write-command topic.
//
// Pattern: sensormine/write/+
func (Topics) AllConnectorWrites() string {
	return fmt.Sprintf("%s/write/+", TopicPrefix)
}

// SystemStatus returns the service status topic (online/offline/LWT).
//
// Example: sensormine/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllConnectorData returns a pattern matching all connector batch topics.
//
// Pattern: sensormine/data/+
func (Topics) AllConnectorData() string {
	return fmt.Sprintf("%s/data/+", TopicPrefix)
}

// AllConnectorHealth returns a pattern matching all connector health topics.
//
// Pattern: sensormine/health/+
func (Topics) AllConnectorHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefix)
}

// AllTopics returns a pattern matching every service topic.
// Use with caution - this receives ALL traffic.
//
// Pattern: sensormine/#
func (Topics) AllTopics() string {
	return "sensormine/#"
}
