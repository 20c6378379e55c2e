package influxdb

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HistoryPoint is one stored reading returned by a history query.
type HistoryPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// QueryDeviceHistory returns the stored readings for one sensor key of one
// device within [start, end], downsampled to step-wide mean windows.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - sn: Device serial number
//   - key: Canonical sensor key (e.g. "pv_power")
//   - start: Start of the time range
//   - end: End of the time range
//   - step: Downsampling window
//
// Returns:
//   - []HistoryPoint: Readings in ascending time order
//   - error: nil on success, otherwise the query error
func (c *Client) QueryDeviceHistory(ctx context.Context, sn, key string, start, end time.Time, step time.Duration) ([]HistoryPoint, error) {
	if c == nil || !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := validateTagValue("sn", sn); err != nil {
		return nil, err
	}
	if err := validateTagValue("key", key); err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end must be after start")
	}

	flux := buildHistoryFlux(c.cfg.Bucket, sn, key, start, end, step)

	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("executing history query: %w", err)
	}

	var points []HistoryPoint
	for result.Next() {
		value, ok := result.Record().Value().(float64)
		if !ok {
			continue
		}
		points = append(points, HistoryPoint{
			Time:  result.Record().Time(),
			Value: value,
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading history query result: %w", err)
	}

	return points, nil
}

// buildHistoryFlux assembles the Flux query for one device sensor series.
func buildHistoryFlux(bucket, sn, key string, start, end time.Time, step time.Duration) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == "inverter_readings")
  |> filter(fn: (r) => r.sn == %q and r.key == %q)
  |> filter(fn: (r) => r._field == "value")
  |> aggregateWindow(every: %ds, fn: mean, createEmpty: false)`,
		bucket,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		sn,
		key,
		int(step.Seconds()),
	)
}

// validateTagValue rejects values that could break out of a Flux string
// literal. Serial numbers and canonical keys never legitimately contain
// these characters.
func validateTagValue(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	if strings.ContainsAny(value, `"\`) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	return nil
}
