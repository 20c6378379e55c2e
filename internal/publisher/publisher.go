package publisher

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dessmon/dessmon-core/internal/fleet"
	"github.com/dessmon/dessmon-core/internal/infrastructure/mqtt"
	"github.com/dessmon/dessmon-core/internal/normalize"
)

// Availability payloads.
const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Broker is the publishing surface the publisher needs. Satisfied by
// mqtt.Client.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishString(topic, payload string, qos byte, retained bool) error
}

// Logger is the minimal logging interface the publisher needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config controls publishing behavior.
type Config struct {
	// QoS applies to all published messages.
	QoS byte

	// DiscoveryEnabled turns on Home Assistant discovery documents.
	DiscoveryEnabled bool

	// DiscoveryPrefix is the discovery topic root, normally "homeassistant".
	DiscoveryPrefix string
}

// Publisher mirrors device readings onto retained MQTT topics.
//
// Thread Safety: safe for concurrent use.
type Publisher struct {
	broker Broker
	cfg    Config
	topics mqtt.Topics
	logger Logger

	mu sync.Mutex
	// announced tracks the sensor keys already covered by a discovery
	// config, per device.
	announced map[string]map[string]bool
}

// New creates a publisher over the broker.
func New(broker Broker, cfg Config) (*Publisher, error) {
	if broker == nil {
		return nil, errors.New("publisher: broker is required")
	}
	if cfg.DiscoveryEnabled && cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	return &Publisher{
		broker:    broker,
		cfg:       cfg,
		announced: make(map[string]map[string]bool),
	}, nil
}

// SetLogger sets a logger. The publisher works silently without one.
func (p *Publisher) SetLogger(logger Logger) {
	p.logger = logger
}

// message is one prepared publish.
type message struct {
	topic   string
	payload []byte
}

// PublishDevice publishes a device's readings: discovery configs for any
// sensor set change, availability, one retained state per field, and the
// attributes document. All payloads are built before anything is sent.
func (p *Publisher) PublishDevice(device fleet.Device, fields []normalize.Field, ts time.Time) error {
	messages, keys, err := p.buildMessages(device, fields, ts)
	if err != nil {
		return err
	}

	for _, m := range messages {
		if err := p.broker.Publish(m.topic, m.payload, p.cfg.QoS, true); err != nil {
			return fmt.Errorf("publisher: publishing %s: %w", m.topic, err)
		}
	}

	p.mu.Lock()
	p.announced[device.SN] = keys
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Debug("published device readings",
			"sn", device.SN,
			"fields", len(fields),
		)
	}
	return nil
}

// buildMessages prepares every payload for one device publish.
func (p *Publisher) buildMessages(device fleet.Device, fields []normalize.Field, ts time.Time) ([]message, map[string]bool, error) {
	keys := make(map[string]bool, len(fields))
	for _, f := range fields {
		keys[f.Key] = true
	}

	var messages []message

	if p.cfg.DiscoveryEnabled && p.sensorSetChanged(device.SN, keys) {
		for _, f := range fields {
			cfg := p.buildDiscoveryConfig(device, f)
			payload, err := json.Marshal(cfg)
			if err != nil {
				return nil, nil, fmt.Errorf("publisher: marshaling discovery config for %s/%s: %w", device.SN, f.Key, err)
			}
			messages = append(messages, message{
				topic:   p.topics.DiscoveryConfig(p.cfg.DiscoveryPrefix, device.SN, f.Key),
				payload: payload,
			})
		}
	}

	messages = append(messages, message{
		topic:   p.topics.DeviceStatus(device.SN),
		payload: []byte(payloadOnline),
	})

	for _, f := range fields {
		messages = append(messages, message{
			topic:   p.topics.DeviceState(device.SN, f.Key),
			payload: []byte(f.Text),
		})
	}

	attrs, err := p.buildAttributes(device, fields, ts)
	if err != nil {
		return nil, nil, err
	}
	messages = append(messages, message{
		topic:   p.topics.DeviceAttributes(device.SN),
		payload: attrs,
	})

	return messages, keys, nil
}

// sensorSetChanged reports whether the device's canonical key set differs
// from the last announced one.
func (p *Publisher) sensorSetChanged(sn string, keys map[string]bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, ok := p.announced[sn]
	if !ok || len(prev) != len(keys) {
		return true
	}
	for k := range keys {
		if !prev[k] {
			return true
		}
	}
	return false
}

func (p *Publisher) buildAttributes(device fleet.Device, fields []normalize.Field, ts time.Time) ([]byte, error) {
	attrs := map[string]any{
		"alias":        device.Alias,
		"pn":           device.PN,
		"devcode":      device.Devcode,
		"last_updated": ts.UTC().Format(time.RFC3339),
	}
	for _, f := range fields {
		if f.Key == "operating_mode" {
			attrs["operating_mode"] = f.Text
		}
	}

	payload, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("publisher: marshaling attributes for %s: %w", device.SN, err)
	}
	return payload, nil
}

// PublishDeviceOffline marks a device unavailable.
func (p *Publisher) PublishDeviceOffline(sn string) error {
	if err := p.broker.PublishString(p.topics.DeviceStatus(sn), payloadOffline, p.cfg.QoS, true); err != nil {
		return fmt.Errorf("publisher: publishing offline status for %s: %w", sn, err)
	}
	return nil
}

// ResetDiscovery forgets announced sensor sets so the next publish of each
// device re-emits its discovery configs. Wired to the broker's reconnect
// callback.
func (p *Publisher) ResetDiscovery() {
	p.mu.Lock()
	p.announced = make(map[string]map[string]bool)
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Debug("discovery state reset")
	}
}
