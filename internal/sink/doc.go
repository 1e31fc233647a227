// Package sink delivers normalized data-point batches to downstream
// systems.
//
// # Architecture
//
//	manager.Events() ──▶ sink.Run ──▶ MQTT sink   ──▶ broker topic per connector
//	                              └─▶ Influx sink ──▶ time-series samples
//
// Run consumes the manager's fan-in channel and hands every event to
// each configured sink in order. A sink failure is logged and skipped;
// sinks are independent and one failing downstream must not block the
// others or the poll loops feeding the channel.
//
// # Quality Handling
//
// The MQTT sink publishes whole batches verbatim, bad points included,
// so subscribers see read failures as they happen. The InfluxDB sink
// only records good-quality points; a nil value has no meaningful
// time-series representation.
package sink
