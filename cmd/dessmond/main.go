// dessmond is the DessMonitor polling daemon.
//
// It authenticates against the DessMonitor cloud API, enumerates the
// account's collectors and inverters, polls their latest telemetry on a
// fixed interval, and republishes normalized readings to retained MQTT
// topics (with Home Assistant discovery), an optional InfluxDB bucket,
// and a local HTTP status API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/dessmon/dessmon-core/migrations"

	"github.com/dessmon/dessmon-core/internal/api"
	"github.com/dessmon/dessmon-core/internal/dess"
	"github.com/dessmon/dessmon-core/internal/devcode"
	"github.com/dessmon/dessmon-core/internal/fleet"
	"github.com/dessmon/dessmon-core/internal/infrastructure/config"
	"github.com/dessmon/dessmon-core/internal/infrastructure/database"
	"github.com/dessmon/dessmon-core/internal/infrastructure/influxdb"
	"github.com/dessmon/dessmon-core/internal/infrastructure/logging"
	"github.com/dessmon/dessmon-core/internal/infrastructure/mqtt"
	"github.com/dessmon/dessmon-core/internal/normalize"
	"github.com/dessmon/dessmon-core/internal/poller"
	"github.com/dessmon/dessmon-core/internal/publisher"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Fleet maintenance: entries offline longer than fleetRetention are pruned
// once per pruneInterval.
const (
	fleetRetention = 30 * 24 * time.Hour
	pruneInterval  = 24 * time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Components are constructed in dependency order; the deferred Close calls
// tear them down in reverse on shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting dessmond",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and run migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Cloud API client with persisted sessions. A valid session from a
	// previous run is reused; login happens lazily on the first call.
	sessionStore, err := dess.NewSQLiteSessionStore(db)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	client, err := dess.New(cfg.Dess, sessionStore)
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}
	client.SetLogger(log)
	log.Info("API client initialised",
		"base_url", cfg.Dess.BaseURL,
		"username", cfg.Dess.Username,
		"poll_interval", cfg.Dess.PollInterval,
	)

	// Fleet registry, preloaded with devices discovered in previous runs so
	// the status API is populated before the first cycle completes.
	fleetRepo, err := fleet.NewRepository(db)
	if err != nil {
		return fmt.Errorf("creating fleet repository: %w", err)
	}
	fleetRegistry, err := fleet.NewRegistry(fleetRepo)
	if err != nil {
		return fmt.Errorf("creating fleet registry: %w", err)
	}
	if loadErr := fleetRegistry.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading fleet registry: %w", loadErr)
	}
	log.Info("fleet registry loaded",
		"collectors", len(fleetRegistry.Collectors()),
		"devices", len(fleetRegistry.Devices()),
	)

	devcodes := devcode.NewRegistry(log)
	normalizer := normalize.New(log)

	// Health checks for the status API
	components := map[string]api.HealthChecker{
		"database": db,
	}

	// Connect to MQTT broker
	var mqttClient *mqtt.Client
	var devicePublisher poller.DevicePublisher = discardPublisher{}
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		pub, pubErr := publisher.New(mqttClient, publisher.Config{
			QoS:              byte(cfg.MQTT.QoS),
			DiscoveryEnabled: cfg.MQTT.Discovery.Enabled,
			DiscoveryPrefix:  cfg.MQTT.Discovery.Prefix,
		})
		if pubErr != nil {
			return fmt.Errorf("creating publisher: %w", pubErr)
		}
		pub.SetLogger(log)
		devicePublisher = pub

		// After a broker reconnect the retained discovery configs may be
		// gone, so announce every device's sensors again on the next cycle.
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			pub.ResetDiscovery()
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		components["mqtt"] = mqttClient
	} else {
		log.Warn("MQTT disabled, readings will not be published")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		components["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Poll loop
	snapshots := poller.NewSnapshotStore()
	pollerDeps := poller.Deps{
		Client:     client,
		Fleet:      fleetRegistry,
		Devcodes:   devcodes,
		Normalizer: normalizer,
		Publisher:  devicePublisher,
		Snapshots:  snapshots,
		Metrics:    poller.NewMetrics(prometheus.DefaultRegisterer),
		Logger:     log,
		Interval:   cfg.PollIntervalDuration(),
	}
	if influxClient != nil {
		pollerDeps.Influx = influxClient
	}
	coordinator, err := poller.New(pollerDeps)
	if err != nil {
		return fmt.Errorf("creating poll coordinator: %w", err)
	}

	// Status API server
	if cfg.API.Enabled {
		apiDeps := api.Deps{
			Config:     cfg.API,
			Logger:     log,
			Fleet:      fleetRegistry,
			Snapshots:  snapshots,
			Components: components,
			Version:    version,
		}
		if influxClient != nil {
			apiDeps.History = influxClient
		}
		server, apiErr := api.New(apiDeps)
		if apiErr != nil {
			return fmt.Errorf("creating status API: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting status API: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing status API", "error", closeErr)
			}
		}()
	} else {
		log.Info("status API disabled")
	}

	go pruneLoop(ctx, fleetRegistry, log)

	log.Info("initialisation complete, entering poll loop")

	if err := coordinator.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("poll loop: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DESSMON_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DESSMON_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// pruneLoop removes long-offline fleet entries once a day.
func pruneLoop(ctx context.Context, registry *fleet.Registry, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := registry.Prune(ctx, fleetRetention, time.Now())
			if err != nil {
				log.Warn("fleet prune failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("fleet pruned", "removed", removed)
			}
		}
	}
}

// discardPublisher satisfies the poll loop when MQTT is disabled. Readings
// still reach the snapshot store and InfluxDB.
type discardPublisher struct{}

func (discardPublisher) PublishDevice(fleet.Device, []normalize.Field, time.Time) error {
	return nil
}

func (discardPublisher) PublishDeviceOffline(string) error { return nil }
