// Package influxdb records Motive Core's time-series telemetry: loop
// tick durations, per-controller update failures, lifecycle
// transitions, and switch executions.
//
// Points are batched and written asynchronously per the batch_size and
// flush_interval settings in config.yaml, keeping the update loop's
// telemetry path free of network waits. Write failures are reported
// through the SetOnError callback rather than blocking callers.
package influxdb
