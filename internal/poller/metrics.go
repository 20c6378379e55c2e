package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the poll loop's Prometheus instrumentation.
type Metrics struct {
	cyclesTotal   prometheus.Counter
	cycleErrors   prometheus.Counter
	deviceErrors  *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	lastSuccess   prometheus.Gauge
	devicesOnline prometheus.Gauge
}

// NewMetrics registers the poller metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		cyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dessmon",
			Subsystem: "poller",
			Name:      "cycles_total",
			Help:      "Completed poll cycles, including failed ones.",
		}),
		cycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dessmon",
			Subsystem: "poller",
			Name:      "cycle_errors_total",
			Help:      "Poll cycles aborted by an enumeration or global failure.",
		}),
		deviceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dessmon",
			Subsystem: "poller",
			Name:      "device_errors_total",
			Help:      "Per-device fetch or publish failures.",
		}, []string{"sn"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dessmon",
			Subsystem: "poller",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a full poll cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dessmon",
			Subsystem: "poller",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last fully successful poll cycle.",
		}),
		devicesOnline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dessmon",
			Subsystem: "poller",
			Name:      "devices_online",
			Help:      "Devices that delivered readings in the last cycle.",
		}),
	}
}
