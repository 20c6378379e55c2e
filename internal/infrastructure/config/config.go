package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Poll interval bounds, in seconds. Values outside this range are clamped
// during validation rather than rejected.
const (
	MinPollInterval     = 60
	MaxPollInterval     = 3600
	DefaultPollInterval = 300
)

// Config is the root configuration structure for dessmon-core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Dess     DessConfig     `yaml:"dess"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DessConfig contains DessMonitor cloud account and polling settings.
type DessConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	CompanyKey   string `yaml:"company_key"`
	BaseURL      string `yaml:"base_url"`
	PollInterval int    `yaml:"poll_interval"` // seconds
	PageSize     int    `yaml:"page_size"`
	Timeout      int    `yaml:"timeout"` // per-request timeout, seconds
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Discovery DiscoveryConfig     `yaml:"discovery"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// DiscoveryConfig contains Home Assistant MQTT discovery settings.
type DiscoveryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP status API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DESSMON_SECTION_KEY
// For example: DESSMON_DESS_PASSWORD, DESSMON_DATABASE_PATH
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Dess: DessConfig{
			CompanyKey:   "bnrl_frRFjEz8Mkn",
			BaseURL:      "http://api.dessmonitor.com/public/",
			PollInterval: DefaultPollInterval,
			PageSize:     50,
			Timeout:      30,
		},
		Database: DatabaseConfig{
			Path:        "./data/dessmon.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "dessmon-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			Discovery: DiscoveryConfig{
				Enabled: true,
				Prefix:  "homeassistant",
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8093,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DESSMON_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// DessMonitor account. Credentials belong in the environment, not the file.
	if v := os.Getenv("DESSMON_DESS_USERNAME"); v != "" {
		cfg.Dess.Username = v
	}
	if v := os.Getenv("DESSMON_DESS_PASSWORD"); v != "" {
		cfg.Dess.Password = v
	}
	if v := os.Getenv("DESSMON_DESS_COMPANY_KEY"); v != "" {
		cfg.Dess.CompanyKey = v
	}
	if v := os.Getenv("DESSMON_DESS_BASE_URL"); v != "" {
		cfg.Dess.BaseURL = v
	}
	if v := os.Getenv("DESSMON_DESS_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dess.PollInterval = n
		}
	}

	// Database
	if v := os.Getenv("DESSMON_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DESSMON_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DESSMON_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DESSMON_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("DESSMON_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("DESSMON_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// The poll interval is clamped to [MinPollInterval, MaxPollInterval] rather
// than rejected, matching the behaviour users expect from an always-on daemon.
func (c *Config) Validate() error {
	var errs []string

	// DessMonitor account validation. Credentials are required: the daemon
	// cannot do anything useful without them.
	if c.Dess.Username == "" {
		errs = append(errs, "dess.username is required (set DESSMON_DESS_USERNAME environment variable)")
	}
	if c.Dess.Password == "" {
		errs = append(errs, "dess.password is required (set DESSMON_DESS_PASSWORD environment variable)")
	}
	if c.Dess.BaseURL == "" {
		errs = append(errs, "dess.base_url is required")
	}
	if c.Dess.PollInterval < MinPollInterval {
		c.Dess.PollInterval = MinPollInterval
	}
	if c.Dess.PollInterval > MaxPollInterval {
		c.Dess.PollInterval = MaxPollInterval
	}
	if c.Dess.PageSize < 1 {
		errs = append(errs, "dess.page_size must be at least 1")
	}
	if c.Dess.Timeout < 1 {
		errs = append(errs, "dess.timeout must be at least 1 second")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PollIntervalDuration returns the poll interval as a Duration.
func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.Dess.PollInterval) * time.Second
}

// RequestTimeout returns the per-request API timeout as a Duration.
func (c *DessConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
