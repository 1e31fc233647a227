// Sensormine Connector Service
//
// connectord hosts protocol connectors (Modbus TCP/RTU, BACnet/IP,
// external MQTT, OPC UA, EtherNet/IP) that normalize field-device
// telemetry into data-point batches, and forwards those batches to the
// configured sinks (MQTT broker topics, InfluxDB).
//
// Configuration is loaded from YAML with SENSORMINE_* environment
// overrides; see internal/infrastructure/config.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector/bacnet"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector/ethernetip"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector/modbus"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector/mqttconn"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector/opcua"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/infrastructure/config"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/infrastructure/influxdb"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/infrastructure/logging"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/infrastructure/mqtt"
	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/sink"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// healthPublishInterval is how often connector health snapshots are
// published to the broker and recorded as time-series gauges.
const healthPublishInterval = 30 * time.Second

// shutdownTimeout bounds graceful teardown of the connector set.
const shutdownTimeout = 10 * time.Second

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Sensormine connector service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the connector set
	factory := newFactory()
	mgr := connector.NewManager(factory, log)

	added, skipped, buildErr := buildConnectors(mgr, cfg.Connectors)
	if buildErr != nil {
		return fmt.Errorf("building connectors: %w", buildErr)
	}
	log.Info("connectors configured", "added", added, "disabled", skipped)

	// Wire sinks and start draining manager events before any connector
	// produces data
	sinks := buildSinks(cfg, mqttClient, influxClient)
	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		sink.Run(context.Background(), mgr.Events(), sinks, log)
	}()
	log.Info("sinks started", "count", len(sinks))

	// Start connectors; a failing field device must not prevent the rest
	// of the fleet from starting
	if startErr := mgr.StartAll(ctx); startErr != nil {
		log.Warn("some connectors failed to start", "error", startErr)
	}

	// Accept broker-issued write commands for connectors with a write
	// surface (Modbus holding registers and coils)
	if subErr := subscribeWriteCommands(mgr, mqttClient, byte(cfg.MQTT.QoS), log); subErr != nil {
		return fmt.Errorf("subscribing to write commands: %w", subErr)
	}
	log.Info("write command topic subscribed", "topic", mqtt.Topics{}.AllConnectorWrites())

	// Periodic health publishing
	healthDone := make(chan struct{})
	go func() {
		defer close(healthDone)
		publishHealth(ctx, mgr, mqttClient, influxClient, byte(cfg.MQTT.QoS), log)
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	// Closing the manager stops every connector and closes the event
	// channel, which ends the sink runner
	if closeErr := mgr.Close(stopCtx); closeErr != nil {
		log.Warn("connector shutdown reported errors", "error", closeErr)
	}
	<-sinkDone
	<-healthDone

	// Deferred Close() calls run in reverse order: InfluxDB, then MQTT

	log.Info("Sensormine connector service stopped")
	return nil
}

// newFactory registers every supported protocol constructor.
func newFactory() *connector.Factory {
	factory := connector.NewFactory()
	factory.Register(connector.ProtocolModbusTCP, modbus.New)
	factory.Register(connector.ProtocolModbusRTU, modbus.New)
	factory.Register(connector.ProtocolBACnetIP, bacnet.New)
	factory.Register(connector.ProtocolMQTT, mqttconn.New)
	factory.Register(connector.ProtocolOPCUA, opcua.New)
	factory.Register(connector.ProtocolEtherNetIP, ethernetip.New)
	return factory
}

// buildConnectors parses the raw connector list from the service config
// and registers enabled entries with the manager. A malformed entry
// fails startup; misconfiguration should be caught before any device
// traffic starts.
func buildConnectors(mgr *connector.Manager, raw []map[string]any) (added, skipped int, err error) {
	for i, entry := range raw {
		cfg, parseErr := connector.ParseConfig(entry)
		if parseErr != nil {
			return added, skipped, fmt.Errorf("connector %d: %w", i, parseErr)
		}
		if !cfg.Enabled {
			skipped++
			continue
		}
		if _, addErr := mgr.Add(cfg); addErr != nil {
			return added, skipped, fmt.Errorf("connector %q: %w", cfg.ID, addErr)
		}
		added++
	}
	return added, skipped, nil
}

// buildSinks assembles the enabled downstream sinks.
func buildSinks(cfg *config.Config, mqttClient *mqtt.Client, influxClient *influxdb.Client) []sink.Sink {
	var sinks []sink.Sink
	if cfg.Sinks.MQTT.Enabled {
		sinks = append(sinks, sink.NewMQTT(mqttClient, cfg.Sinks.MQTT.TopicPrefix, byte(cfg.MQTT.QoS)))
	}
	if cfg.Sinks.InfluxDB.Enabled && influxClient != nil {
		sinks = append(sinks, sink.NewInflux(influxClient, cfg.Sinks.InfluxDB.Measurement))
	}
	return sinks
}

// publishHealth periodically publishes per-connector health snapshots as
// retained MQTT messages and records counters as time-series gauges.
// Runs until the context is cancelled.
func publishHealth(ctx context.Context, mgr *connector.Manager, mqttClient *mqtt.Client, influxClient *influxdb.Client, qos byte, log *logging.Logger) {
	topics := mqtt.Topics{}
	ticker := time.NewTicker(healthPublishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for id, health := range mgr.HealthAll() {
			payload, err := json.Marshal(health)
			if err != nil {
				log.Error("marshaling health snapshot", "connector_id", id, "error", err)
				continue
			}
			if err := mqttClient.Publish(topics.ConnectorHealth(id), payload, qos, true); err != nil {
				log.Warn("publishing health snapshot", "connector_id", id, "error", err)
			}

			if influxClient != nil {
				influxClient.WriteHealthMetric(id, "success_count", float64(health.SuccessCount))
				influxClient.WriteHealthMetric(id, "failure_count", float64(health.FailureCount))
				influxClient.WriteHealthMetric(id, "avg_latency_ms", float64(health.AvgLatency.Milliseconds()))
				healthy := 0.0
				if health.Healthy {
					healthy = 1.0
				}
				influxClient.WriteHealthMetric(id, "healthy", healthy)
			}
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses SENSORMINE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SENSORMINE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
