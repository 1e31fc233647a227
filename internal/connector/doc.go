// Package connector provides the protocol connector framework for the
// Sensormine edge service.
//
// A connector is a long-lived adapter between one field device or
// network (Modbus, BACnet/IP, MQTT, OPC UA, EtherNet/IP) and the
// platform's normalized data model. Every protocol package implements
// the same Connector interface so acquisition, health reporting, and
// lifecycle management are uniform regardless of wire protocol.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                         Connector Manager                         │
//	│                                                                   │
//	│  ┌────────────────┐   ┌────────────────┐   ┌──────────────────┐  │
//	│  │    Factory     │   │    Manager     │   │      Base        │  │
//	│  │  (factory.go)  │──▶│  (manager.go)  │   │    (base.go)     │  │
//	│  │                │   │                │   │                  │  │
//	│  │ • Protocol tag │   │ • Live set     │   │ • Status machine │  │
//	│  │   dispatch     │   │   keyed by ID  │   │ • Health metrics │  │
//	│  │ • Builders     │   │ • Event fan-in │   │ • Event channel  │  │
//	│  └────────────────┘   └────────────────┘   └──────────────────┘  │
//	│                               │                      ▲            │
//	└───────────────────────────────│──────────────────────│────────────┘
//	                                │                      │ embeds
//	                                ▼                      │
//	                ┌─────────────────────┐   ┌────────────────────────┐
//	                │  Downstream sinks   │   │  Protocol connectors   │
//	                │  (MQTT, InfluxDB)   │   │  modbus/ bacnet/ ...   │
//	                └─────────────────────┘   └────────────────────────┘
//
// # Key Types
//
//   - Connector: the lifecycle contract every protocol adapter implements
//   - Base: embeddable status machine, health metrics, and event channel
//   - Config: discriminated connector configuration with point mappings
//   - DataPoint: one normalized reading with quality and dual timestamps
//   - Poller: interval read loop with backoff and bounded stop
//   - Factory / Manager: construction dispatch and live-instance ownership
//
// # Usage
//
//	factory := connector.NewFactory()
//	factory.Register(connector.ProtocolModbusTCP, modbus.New)
//	factory.Register(connector.ProtocolBACnetIP, bacnet.New)
//
//	mgr := connector.NewManager(factory, log)
//	for _, raw := range cfg.Connectors {
//	    cc, err := connector.ParseConfig(raw)
//	    if err != nil {
//	        return err
//	    }
//	    if _, err := mgr.Add(cc); err != nil {
//	        return err
//	    }
//	}
//
//	if err := mgr.StartAll(ctx); err != nil {
//	    log.Warn("some connectors failed to start", "error", err.Error())
//	}
//
//	for event := range mgr.Events() {
//	    // forward event.Points to the data pipeline
//	}
//
// # Data Quality
//
// Connectors never silently drop a failed read. A point that cannot be
// acquired is emitted with Quality set to QualityBad, a nil value, and
// the failure reason in Metadata, so downstream consumers can
// distinguish "no data" from "device said zero".
//
// # Thread Safety
//
// Base, Manager, Factory, and SubscriptionSet are safe for concurrent
// use. Protocol connectors document their own guarantees.
package connector
