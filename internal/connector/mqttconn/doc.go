// Package mqttconn implements the external-MQTT subscription connector.
//
// Unlike the polling connectors, this one is push-driven: Start
// subscribes each mapping's topic on a per-connector broker session,
// and every received message becomes one normalized data point. Scalar
// payloads decode per the mapping's data type; numeric values pass
// through the mapping's scale factor and offset. Undecodable payloads
// emit Bad-quality points rather than disappearing.
//
// The session is a dedicated paho client per connector, separate from
// the service's own platform broker connection, since each external
// broker carries its own address, credentials, and QoS.
package mqttconn
