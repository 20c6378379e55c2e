// Package influxdb provides InfluxDB connectivity for dessmon-core.
//
// It wraps the official influxdb-client-go v2 library with the patterns used
// across this codebase for connection management, telemetry writing and
// health monitoring.
//
// # Purpose
//
// This package handles time-series history for:
//   - Normalized inverter readings (power, voltage, energy, temperature)
//   - Poll-cycle statistics (duration, failures)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "home",
//	    Bucket:  "solar",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteReading("Q1234567890", 2376, "pv_power", "W", 1520.0, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
