package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDataPoint writes a single normalized data point to InfluxDB.
//
// This is the primary method for recording connector telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Tags (indexed, low cardinality): connector_id, tag_id, data_type, unit.
// Fields: value (numeric or boolean), quality.
//
// Parameters:
//   - measurement: The measurement name (e.g., "datapoint")
//   - connectorID: Source connector identifier
//   - tagID: Point mapping identifier
//   - dataType: Normalized data-type tag (e.g., "float32")
//   - unit: Engineering unit, may be empty
//   - value: The decoded value
//   - sourceTime: Device-side timestamp of the sample
//
// Example:
//
//	client.WriteDataPoint("datapoint", "boiler-plc", "supply-temp",
//	    "float32", "degC", 21.5, time.Now())
func (c *Client) WriteDataPoint(measurement, connectorID, tagID, dataType, unit string, value any, sourceTime time.Time) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"connector_id": connectorID,
		"tag_id":       tagID,
		"data_type":    dataType,
	}
	if unit != "" {
		tags["unit"] = unit
	}

	point := write.NewPoint(
		measurement,
		tags,
		map[string]interface{}{
			"value": value,
		},
		sourceTime,
	)

	c.writeAPI.WritePoint(point)
}

// WriteHealthMetric writes a connector health gauge.
//
// Used for tracking success/failure counters and average latency per
// connector so operators can alert on degraded links.
//
// Parameters:
//   - connectorID: Connector identifier
//   - metricName: Health metric (e.g., "success_count", "avg_latency_ms")
//   - value: The metric value
func (c *Client) WriteHealthMetric(connectorID string, metricName string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"connector_health",
		map[string]string{
			"connector_id": connectorID,
			"metric":       metricName,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
