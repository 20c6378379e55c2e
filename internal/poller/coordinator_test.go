package poller

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dessmon/dessmon-core/internal/dess"
	"github.com/dessmon/dessmon-core/internal/devcode"
	"github.com/dessmon/dessmon-core/internal/fleet"
	"github.com/dessmon/dessmon-core/internal/infrastructure/database"
	"github.com/dessmon/dessmon-core/internal/normalize"
	_ "github.com/dessmon/dessmon-core/migrations" // Registers embedded migrations
)

type fakeClient struct {
	plants      []dess.Plant
	collectors  map[int][]dess.Collector
	devices     map[string][]dess.Device
	lastData    map[string][]dess.RawField
	summaries   map[int][]dess.DeviceSummary
	plantsErr   error
	lastDataErr map[string]error
}

func (f *fakeClient) QueryPlants(context.Context) ([]dess.Plant, error) {
	return f.plants, f.plantsErr
}

func (f *fakeClient) QueryCollectors(_ context.Context, pid int) ([]dess.Collector, error) {
	return f.collectors[pid], nil
}

func (f *fakeClient) QueryCollectorDevices(_ context.Context, pn string) ([]dess.Device, error) {
	return f.devices[pn], nil
}

func (f *fakeClient) QueryDeviceLastData(_ context.Context, pn string, devcode, devaddr int, sn string) ([]dess.RawField, error) {
	if err := f.lastDataErr[sn]; err != nil {
		return nil, err
	}
	return f.lastData[sn], nil
}

func (f *fakeClient) QueryDeviceSummary(_ context.Context, pid int) ([]dess.DeviceSummary, error) {
	return f.summaries[pid], nil
}

type publishedDevice struct {
	device fleet.Device
	fields []normalize.Field
}

type fakePublisher struct {
	published []publishedDevice
	offline   []string
	failSN    string
}

func (f *fakePublisher) PublishDevice(device fleet.Device, fields []normalize.Field, _ time.Time) error {
	if device.SN == f.failSN {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, publishedDevice{device, fields})
	return nil
}

func (f *fakePublisher) PublishDeviceOffline(sn string) error {
	f.offline = append(f.offline, sn)
	return nil
}

type reading struct {
	sn    string
	key   string
	value float64
}

type fakeInflux struct {
	readings []reading
	cycles   int
}

func (f *fakeInflux) WriteReading(sn string, _ int, key, _ string, value float64, _ time.Time) {
	f.readings = append(f.readings, reading{sn, key, value})
}

func (f *fakeInflux) WriteCycleStats(string, int, int, time.Duration) {
	f.cycles++
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func defaultFakeClient() *fakeClient {
	return &fakeClient{
		plants: []dess.Plant{{PID: 7, Name: "Home"}},
		collectors: map[int][]dess.Collector{
			7: {{PN: "W001", Alias: "garage", ProjectID: 7}},
		},
		devices: map[string][]dess.Device{
			"W001": {{SN: "Q001", PN: "W001", Devcode: 2376, Devaddr: 1, Alias: "inverter"}},
		},
		lastData: map[string][]dess.RawField{
			"Q001": {
				{Title: "Output Voltage", Val: "230.1", Unit: "V"},
				{Title: "Output frequency", Val: "49.98", Unit: "Hz"},
			},
		},
		summaries: map[int][]dess.DeviceSummary{
			7: {{
				SN: "Q001",
				Fields: []dess.RawField{
					{Title: "energyToday", Val: "6.3", Unit: "kWh"},
					{Title: "outpower", Val: "1.42", Unit: "kW"},
				},
			}},
		},
		lastDataErr: map[string]error{},
	}
}

type harness struct {
	coordinator *Coordinator
	client      *fakeClient
	publisher   *fakePublisher
	influx      *fakeInflux
	snapshots   *SnapshotStore
	registry    *prometheus.Registry
}

func newHarness(t *testing.T, client *fakeClient) *harness {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "poller.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	repo, err := fleet.NewRepository(db)
	if err != nil {
		t.Fatalf("NewRepository() error: %v", err)
	}
	fleetRegistry, err := fleet.NewRegistry(repo)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	pub := &fakePublisher{}
	influx := &fakeInflux{}
	snapshots := NewSnapshotStore()
	promRegistry := prometheus.NewRegistry()

	coordinator, err := New(Deps{
		Client:     client,
		Fleet:      fleetRegistry,
		Devcodes:   devcode.NewRegistry(nil),
		Normalizer: normalize.New(nil),
		Publisher:  pub,
		Snapshots:  snapshots,
		Metrics:    NewMetrics(promRegistry),
		Logger:     nopLogger{},
		Influx:     influx,
		Interval:   time.Minute,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return &harness{
		coordinator: coordinator,
		client:      client,
		publisher:   pub,
		influx:      influx,
		snapshots:   snapshots,
		registry:    promRegistry,
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		var total float64
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		return total
	}
	return 0
}

func TestPoll_HappyPath(t *testing.T) {
	h := newHarness(t, defaultFakeClient())
	h.coordinator.Poll(context.Background())

	if len(h.publisher.published) != 1 {
		t.Fatalf("published %d devices, want 1", len(h.publisher.published))
	}
	pub := h.publisher.published[0]
	if pub.device.SN != "Q001" || pub.device.Devcode != 2376 {
		t.Errorf("published device = %+v", pub.device)
	}

	// Normalized primary fields plus merged summary fields.
	keys := map[string]bool{}
	for _, f := range pub.fields {
		keys[f.Key] = true
	}
	for _, want := range []string{"output_voltage", "output_frequency", "daily_energy", "pv_power"} {
		if !keys[want] {
			t.Errorf("missing field %q in %v", want, keys)
		}
	}

	snap, ok := h.snapshots.Get("Q001")
	if !ok || snap.Stale {
		t.Errorf("snapshot = %+v, ok=%v", snap, ok)
	}

	// Only numeric fields reach the time-series sink.
	if len(h.influx.readings) != len(pub.fields) {
		for _, f := range pub.fields {
			if !f.Numeric {
				t.Logf("non-numeric field: %+v", f)
			}
		}
	}
	if h.influx.cycles != 1 {
		t.Errorf("cycle stats written %d times, want 1", h.influx.cycles)
	}

	if got := counterValue(t, h.registry, "dessmon_poller_cycles_total"); got != 1 {
		t.Errorf("cycles_total = %v", got)
	}
	if got := counterValue(t, h.registry, "dessmon_poller_devices_online"); got != 1 {
		t.Errorf("devices_online = %v", got)
	}
	if got := counterValue(t, h.registry, "dessmon_poller_cycle_errors_total"); got != 0 {
		t.Errorf("cycle_errors_total = %v", got)
	}
}

func TestPoll_SummaryMergeSkipsPresentKeys(t *testing.T) {
	client := defaultFakeClient()
	// The device already reports PV Power directly; the summary's outpower
	// maps to the same canonical key and must not replace it.
	client.lastData["Q001"] = append(client.lastData["Q001"],
		dess.RawField{Title: "PV Power", Val: "1390", Unit: "W"},
	)

	h := newHarness(t, client)
	h.coordinator.Poll(context.Background())

	if len(h.publisher.published) != 1 {
		t.Fatalf("published %d devices", len(h.publisher.published))
	}
	for _, f := range h.publisher.published[0].fields {
		if f.Key == "pv_power" && f.Text != "1390" {
			t.Errorf("summary overwrote direct reading: %+v", f)
		}
	}
}

func TestPoll_DeviceFailureRetainsStaleReadings(t *testing.T) {
	client := defaultFakeClient()
	h := newHarness(t, client)

	h.coordinator.Poll(context.Background())
	if _, ok := h.snapshots.Get("Q001"); !ok {
		t.Fatal("first cycle produced no snapshot")
	}

	client.lastDataErr["Q001"] = errors.New("collector timeout")
	h.coordinator.Poll(context.Background())

	snap, _ := h.snapshots.Get("Q001")
	if !snap.Stale {
		t.Error("snapshot not marked stale after failure")
	}
	if len(snap.Fields) == 0 {
		t.Error("stale readings dropped")
	}
	if snap.LastError == "" {
		t.Error("failure not recorded")
	}

	if got := counterValue(t, h.registry, "dessmon_poller_device_errors_total"); got != 1 {
		t.Errorf("device_errors_total = %v", got)
	}
	// A device failure is not a cycle failure.
	if got := counterValue(t, h.registry, "dessmon_poller_cycle_errors_total"); got != 0 {
		t.Errorf("cycle_errors_total = %v", got)
	}
	if got := counterValue(t, h.registry, "dessmon_poller_devices_online"); got != 0 {
		t.Errorf("devices_online = %v", got)
	}
}

func TestPoll_DeviceFailureIsIsolated(t *testing.T) {
	client := defaultFakeClient()
	client.devices["W001"] = []dess.Device{
		{SN: "Q001", PN: "W001", Devcode: 2376, Devaddr: 1, Alias: "garage"},
		{SN: "Q002", PN: "W001", Devcode: 2376, Devaddr: 2, Alias: "barn"},
		{SN: "Q003", PN: "W001", Devcode: 2376, Devaddr: 3, Alias: "shed"},
	}
	for _, sn := range []string{"Q001", "Q002", "Q003"} {
		client.lastData[sn] = []dess.RawField{
			{Title: "Output Voltage", Val: "230.0", Unit: "V"},
		}
	}
	h := newHarness(t, client)

	h.coordinator.Poll(context.Background())
	before, ok := h.snapshots.Get("Q002")
	if !ok || len(before.Fields) == 0 {
		t.Fatalf("first cycle snapshot for Q002 = %+v, ok=%v", before, ok)
	}

	// Q002 fails mid-cycle while its neighbours report new readings.
	client.lastDataErr["Q002"] = errors.New("collector timeout")
	client.lastData["Q001"] = []dess.RawField{
		{Title: "Output Voltage", Val: "231.5", Unit: "V"},
	}
	client.lastData["Q003"] = []dess.RawField{
		{Title: "Output Voltage", Val: "228.7", Unit: "V"},
	}
	h.publisher.published = nil
	h.coordinator.Poll(context.Background())

	fresh := map[string]string{}
	for _, pub := range h.publisher.published {
		for _, f := range pub.fields {
			if f.Key == "output_voltage" {
				fresh[pub.device.SN] = f.Text
			}
		}
	}
	if len(h.publisher.published) != 2 || fresh["Q001"] != "231.5" || fresh["Q003"] != "228.7" {
		t.Errorf("second cycle published %v", fresh)
	}
	if _, published := fresh["Q002"]; published {
		t.Error("failed device was published")
	}

	snap, _ := h.snapshots.Get("Q002")
	if !snap.Stale || snap.LastError == "" {
		t.Errorf("Q002 snapshot = %+v", snap)
	}
	if len(snap.Fields) != len(before.Fields) || snap.Fields[0].Text != "230.0" {
		t.Errorf("Q002 readings changed: %+v", snap.Fields)
	}
	if !snap.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("Q002 UpdatedAt advanced: %v -> %v", before.UpdatedAt, snap.UpdatedAt)
	}

	for _, sn := range []string{"Q001", "Q003"} {
		s, _ := h.snapshots.Get(sn)
		if s.Stale || len(s.Fields) == 0 {
			t.Errorf("%s snapshot = %+v", sn, s)
		}
	}

	if got := counterValue(t, h.registry, "dessmon_poller_device_errors_total"); got != 1 {
		t.Errorf("device_errors_total = %v", got)
	}
	if got := counterValue(t, h.registry, "dessmon_poller_cycle_errors_total"); got != 0 {
		t.Errorf("cycle_errors_total = %v", got)
	}
}

func TestPoll_PublishFailureCountsAsDeviceFailure(t *testing.T) {
	h := newHarness(t, defaultFakeClient())
	h.publisher.failSN = "Q001"

	h.coordinator.Poll(context.Background())

	snap, ok := h.snapshots.Get("Q001")
	if !ok || !snap.Stale {
		t.Errorf("snapshot = %+v, ok=%v", snap, ok)
	}
	if got := counterValue(t, h.registry, "dessmon_poller_device_errors_total"); got != 1 {
		t.Errorf("device_errors_total = %v", got)
	}
}

func TestPoll_GlobalFailureAbortsCycle(t *testing.T) {
	client := defaultFakeClient()
	client.plantsErr = errors.New("gateway timeout")
	h := newHarness(t, client)

	h.coordinator.Poll(context.Background())

	if len(h.publisher.published) != 0 {
		t.Error("devices published despite aborted cycle")
	}
	if got := counterValue(t, h.registry, "dessmon_poller_cycle_errors_total"); got != 1 {
		t.Errorf("cycle_errors_total = %v", got)
	}
	if h.influx.cycles != 0 {
		t.Error("cycle stats written for failed cycle")
	}
}

func TestPoll_DroppedDeviceGoesOffline(t *testing.T) {
	client := defaultFakeClient()
	h := newHarness(t, client)

	h.coordinator.Poll(context.Background())

	// The device disappears from the account.
	client.devices["W001"] = nil
	h.coordinator.Poll(context.Background())

	found := false
	for _, sn := range h.publisher.offline {
		if sn == "Q001" {
			found = true
		}
	}
	if !found {
		t.Error("dropped device never marked offline")
	}
}

func TestNew_ValidatesDeps(t *testing.T) {
	_, err := New(Deps{})
	if err == nil {
		t.Error("New() accepted empty deps")
	}
}

func TestPoll_UsesMetricsGauge(t *testing.T) {
	h := newHarness(t, defaultFakeClient())
	h.coordinator.Poll(context.Background())

	if got := testutil.CollectAndCount(h.coordinator.deps.Metrics.lastSuccess); got != 1 {
		t.Errorf("last_success collected %d series, want 1", got)
	}
}
