// Package influxdb provides time-series storage connectivity for the
// connector service.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking, batched writes of normalized data points
//   - Connector health gauges for operational monitoring
//   - Async write error handling via callback
//
// The InfluxDB sink is optional: when disabled in configuration, Connect
// returns ErrDisabled and the service runs without time-series storage.
//
// # Performance Characteristics
//
//   - Writes are batched (default 100 points) and flushed on an interval
//   - WriteDataPoint never blocks the caller
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteDataPoint("datapoint", "boiler-plc", "supply-temp",
//	    "float32", "degC", 21.5, time.Now())
package influxdb
