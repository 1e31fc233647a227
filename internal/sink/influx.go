package sink

import (
	"context"
	"time"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// PointWriter is the time-series writing surface the sink needs.
// *influxdb.Client from internal/infrastructure/influxdb satisfies it.
type PointWriter interface {
	WriteDataPoint(measurement, connectorID, tagID, dataType, unit string, value any, sourceTime time.Time)
}

// Influx records good-quality data points as time-series samples. Bad
// points carry nil values and are skipped here; they still reach MQTT
// subscribers and show up in connector health counters.
type Influx struct {
	writer      PointWriter
	measurement string
}

// NewInflux builds an InfluxDB sink. An empty measurement defaults to
// "datapoint".
func NewInflux(writer PointWriter, measurement string) *Influx {
	if measurement == "" {
		measurement = "datapoint"
	}
	return &Influx{writer: writer, measurement: measurement}
}

// Name implements Sink.
func (s *Influx) Name() string { return "influxdb" }

// Write records one sample per good-quality point. The underlying
// writer batches asynchronously, so this never blocks.
func (s *Influx) Write(_ context.Context, event connector.DataReceived) error {
	for _, p := range event.Points {
		if p.Quality != connector.QualityGood || p.Value == nil {
			continue
		}
		s.writer.WriteDataPoint(s.measurement, p.ConnectorID, p.TagID,
			string(p.DataType), p.Unit, p.Value, p.SourceTime)
	}
	return nil
}
