package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading writes a single normalized sensor reading to InfluxDB.
//
// This is the primary method for recording inverter telemetry. The write is
// non-blocking; data is batched and sent asynchronously. Only numeric
// readings are recorded; enum readings (operating mode, priorities) carry no
// value worth charting and are skipped by the caller.
//
// Tags are low-cardinality: device serial, devcode and the canonical sensor
// key. The unit travels as a field so it does not blow up series cardinality
// if a firmware update changes it.
//
// Example:
//
//	client.WriteReading("Q1234567890", 2376, "pv_power", "W", 1520.0, time.Now())
func (c *Client) WriteReading(sn string, devcode int, key, unit string, value float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"inverter_readings",
		map[string]string{
			"sn":      sn,
			"devcode": strconv.Itoa(devcode),
			"key":     key,
		},
		map[string]interface{}{
			"value": value,
			"unit":  unit,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WriteCycleStats records poll-cycle statistics for dashboarding.
//
// Parameters:
//   - cycleID: correlation ID of the poll cycle
//   - devices: number of devices polled
//   - failures: number of per-device failures
//   - duration: wall time of the cycle
func (c *Client) WriteCycleStats(cycleID string, devices, failures int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"poll_cycles",
		map[string]string{},
		map[string]interface{}{
			"cycle_id":    cycleID,
			"devices":     devices,
			"failures":    failures,
			"duration_ms": duration.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
