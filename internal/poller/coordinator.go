package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dessmon/dessmon-core/internal/dess"
	"github.com/dessmon/dessmon-core/internal/devcode"
	"github.com/dessmon/dessmon-core/internal/fleet"
	"github.com/dessmon/dessmon-core/internal/normalize"
)

// APIClient is the cloud query surface the coordinator needs. Satisfied by
// dess.Client.
type APIClient interface {
	QueryPlants(ctx context.Context) ([]dess.Plant, error)
	QueryCollectors(ctx context.Context, pid int) ([]dess.Collector, error)
	QueryCollectorDevices(ctx context.Context, pn string) ([]dess.Device, error)
	QueryDeviceLastData(ctx context.Context, pn string, devcode, devaddr int, sn string) ([]dess.RawField, error)
	QueryDeviceSummary(ctx context.Context, pid int) ([]dess.DeviceSummary, error)
}

// DevicePublisher is the MQTT surface the coordinator needs. Satisfied by
// publisher.Publisher.
type DevicePublisher interface {
	PublishDevice(device fleet.Device, fields []normalize.Field, ts time.Time) error
	PublishDeviceOffline(sn string) error
}

// ReadingWriter is the optional time-series sink. Satisfied by
// influxdb.Client.
type ReadingWriter interface {
	WriteReading(sn string, devcode int, key, unit string, value float64, ts time.Time)
	WriteCycleStats(cycleID string, devices, failures int, duration time.Duration)
}

// Logger is the minimal logging interface the coordinator needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Deps carries the coordinator's collaborators.
type Deps struct {
	Client     APIClient
	Fleet      *fleet.Registry
	Devcodes   *devcode.Registry
	Normalizer *normalize.Normalizer
	Publisher  DevicePublisher
	Snapshots  *SnapshotStore
	Metrics    *Metrics
	Logger     Logger

	// Influx is optional; nil disables time-series writes.
	Influx ReadingWriter

	// Interval is the poll interval, already clamped by configuration.
	// It also bounds each cycle's runtime.
	Interval time.Duration
}

// Coordinator runs the poll loop.
type Coordinator struct {
	deps Deps
}

// New creates a coordinator after validating required dependencies.
func New(deps Deps) (*Coordinator, error) {
	switch {
	case deps.Client == nil:
		return nil, errors.New("poller: API client is required")
	case deps.Fleet == nil:
		return nil, errors.New("poller: fleet registry is required")
	case deps.Devcodes == nil:
		return nil, errors.New("poller: devcode registry is required")
	case deps.Normalizer == nil:
		return nil, errors.New("poller: normalizer is required")
	case deps.Publisher == nil:
		return nil, errors.New("poller: publisher is required")
	case deps.Snapshots == nil:
		return nil, errors.New("poller: snapshot store is required")
	case deps.Metrics == nil:
		return nil, errors.New("poller: metrics are required")
	case deps.Logger == nil:
		return nil, errors.New("poller: logger is required")
	case deps.Interval <= 0:
		return nil, errors.New("poller: interval must be positive")
	}
	return &Coordinator{deps: deps}, nil
}

// Run polls immediately and then on every tick until the context ends.
func (c *Coordinator) Run(ctx context.Context) error {
	c.deps.Logger.Info("poll loop started", "interval", c.deps.Interval.String())

	ticker := time.NewTicker(c.deps.Interval)
	defer ticker.Stop()

	for {
		c.Poll(ctx)

		select {
		case <-ctx.Done():
			c.deps.Logger.Info("poll loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs one full cycle with a bounded timeout and records metrics.
func (c *Coordinator) Poll(ctx context.Context) {
	cycleID := uuid.NewString()
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, c.deps.Interval)
	defer cancel()

	devices, failures, err := c.runCycle(cctx, cycleID)
	duration := time.Since(start)

	c.deps.Metrics.cyclesTotal.Inc()
	c.deps.Metrics.cycleDuration.Observe(duration.Seconds())

	if err != nil {
		c.deps.Metrics.cycleErrors.Inc()
		if errors.Is(err, dess.ErrAuth) {
			c.deps.Logger.Error("poll cycle failed, credentials rejected",
				"cycle_id", cycleID,
				"error", err,
			)
		} else {
			c.deps.Logger.Warn("poll cycle failed, retrying next tick",
				"cycle_id", cycleID,
				"error", err,
			)
		}
		return
	}

	c.deps.Metrics.lastSuccess.SetToCurrentTime()
	if c.deps.Influx != nil {
		c.deps.Influx.WriteCycleStats(cycleID, devices, failures, duration)
	}

	c.deps.Logger.Info("poll cycle completed",
		"cycle_id", cycleID,
		"devices", devices,
		"failures", failures,
		"duration", duration.String(),
	)
}

// runCycle enumerates the fleet and polls every device. It returns the
// device and failure counts; a non-nil error means the cycle aborted before
// the device loop.
func (c *Coordinator) runCycle(ctx context.Context, cycleID string) (int, int, error) {
	plants, err := c.deps.Client.QueryPlants(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("enumerating plants: %w", err)
	}

	var (
		collectors []fleet.Collector
		devices    []fleet.Device
		summaries  = make(map[string][]dess.RawField)
	)

	for _, plant := range plants {
		cols, err := c.deps.Client.QueryCollectors(ctx, plant.PID)
		if err != nil {
			return 0, 0, fmt.Errorf("enumerating collectors of plant %d: %w", plant.PID, err)
		}

		for _, col := range cols {
			collectors = append(collectors, fleet.Collector{
				PN:        col.PN,
				ProjectID: col.ProjectID,
				Alias:     col.Alias,
			})

			devs, err := c.deps.Client.QueryCollectorDevices(ctx, col.PN)
			if err != nil {
				return 0, 0, fmt.Errorf("enumerating devices of collector %s: %w", col.PN, err)
			}
			for _, dev := range devs {
				devices = append(devices, fleet.Device{
					SN:      dev.SN,
					PN:      dev.PN,
					Devcode: dev.Devcode,
					Devaddr: dev.Devaddr,
					Alias:   dev.Alias,
				})
			}
		}

		// Headline figures are an enrichment; losing them must not cost
		// the cycle.
		sums, err := c.deps.Client.QueryDeviceSummary(ctx, plant.PID)
		if err != nil {
			c.deps.Logger.Warn("device summary unavailable",
				"cycle_id", cycleID,
				"pid", plant.PID,
				"error", err,
			)
			continue
		}
		for _, s := range sums {
			summaries[s.SN] = s.Fields
		}
	}

	now := time.Now()
	if err := c.deps.Fleet.Sync(ctx, collectors, devices, now); err != nil {
		return 0, 0, fmt.Errorf("syncing fleet: %w", err)
	}

	c.publishOffline()

	failures := 0
	for _, dev := range devices {
		if err := c.pollDevice(ctx, dev, summaries[dev.SN]); err != nil {
			failures++
			c.deps.Metrics.deviceErrors.WithLabelValues(dev.SN).Inc()
			c.deps.Snapshots.MarkFailed(dev, err, time.Now())
			c.deps.Logger.Warn("device poll failed, retaining previous readings",
				"cycle_id", cycleID,
				"sn", dev.SN,
				"error", err,
			)
		}
	}

	c.deps.Metrics.devicesOnline.Set(float64(len(devices) - failures))
	return len(devices), failures, nil
}

// publishOffline marks devices that dropped out of the enumeration as
// unavailable. The topic is retained, so repeating it is harmless.
func (c *Coordinator) publishOffline() {
	for _, dev := range c.deps.Fleet.Devices() {
		if dev.Online {
			continue
		}
		if err := c.deps.Publisher.PublishDeviceOffline(dev.SN); err != nil {
			c.deps.Logger.Warn("failed to publish offline status",
				"sn", dev.SN,
				"error", err,
			)
		}
	}
}

// pollDevice fetches, normalizes and publishes one device. Snapshot and
// time-series writes happen only after the publish succeeds.
func (c *Coordinator) pollDevice(ctx context.Context, dev fleet.Device, summary []dess.RawField) error {
	profile := c.deps.Devcodes.Resolve(dev.Devcode)

	raw, err := c.deps.Client.QueryDeviceLastData(ctx, dev.PN, dev.Devcode, dev.Devaddr, dev.SN)
	if err != nil {
		return fmt.Errorf("fetching telemetry: %w", err)
	}

	fields := c.deps.Normalizer.Normalize(profile, raw)
	fields = c.mergeSummary(profile, fields, summary)

	ts := time.Now()
	if err := c.deps.Publisher.PublishDevice(dev, fields, ts); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}

	c.deps.Snapshots.Update(dev, fields, ts)

	if c.deps.Influx != nil {
		for _, f := range fields {
			if f.Numeric {
				c.deps.Influx.WriteReading(dev.SN, dev.Devcode, f.Key, f.Unit, f.Number, ts)
			}
		}
	}
	return nil
}

// mergeSummary appends normalized summary fields whose canonical key the
// device's own telemetry did not already provide.
func (c *Coordinator) mergeSummary(profile *devcode.Profile, fields []normalize.Field, summary []dess.RawField) []normalize.Field {
	if len(summary) == 0 {
		return fields
	}

	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f.Key] = true
	}

	for _, f := range c.deps.Normalizer.Normalize(profile, summary) {
		if !present[f.Key] {
			fields = append(fields, f)
			present[f.Key] = true
		}
	}
	return fields
}
