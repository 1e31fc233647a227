// Package mqtt provides MQTT client connectivity for the connector service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The service uses MQTT in two roles: the external-MQTT connector
// subscribes to device data published by third-party gateways, and the
// MQTT sink republishes normalized data-point batches for downstream
// consumers (storage, alerting).
//
//	Field gateways → MQTT Broker → connectord → MQTT Broker → consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.ConnectorData("boiler-plc")
//	client.Publish(topic, payload, 1, false)
package mqtt
