package publisher

import (
	"github.com/dessmon/dessmon-core/internal/fleet"
	"github.com/dessmon/dessmon-core/internal/normalize"
)

// deviceModel is reported to Home Assistant for every discovered inverter.
const deviceModel = "Energy Storage Inverter"

// discoveryConfig is a Home Assistant MQTT discovery document, using the
// abbreviated key names HA accepts.
type discoveryConfig struct {
	Name              string          `json:"name"`
	StateTopic        string          `json:"stat_t"`
	AvailabilityTopic string          `json:"avty_t"`
	UniqueID          string          `json:"uniq_id"`
	DeviceClass       string          `json:"dev_cla,omitempty"`
	StateClass        string          `json:"stat_cla,omitempty"`
	UnitOfMeasurement string          `json:"unit_of_meas,omitempty"`
	Icon              string          `json:"ic,omitempty"`
	AttributesTopic   string          `json:"json_attr_t,omitempty"`
	Device            discoveryDevice `json:"dev"`
}

type discoveryDevice struct {
	IDs          string `json:"ids"`
	Name         string `json:"name"`
	Manufacturer string `json:"mf"`
	Model        string `json:"mdl"`
	SerialNumber string `json:"sn,omitempty"`
}

// buildDiscoveryConfig renders the discovery document for one field of one
// device.
func (p *Publisher) buildDiscoveryConfig(device fleet.Device, field normalize.Field) discoveryConfig {
	displayName := field.Title
	meta, known := normalize.LookupMeta(field.Title)
	if known && meta.Name != "" {
		displayName = meta.Name
	}

	deviceName := device.Alias
	if deviceName == "" {
		deviceName = "Inverter " + device.SN
	}

	cfg := discoveryConfig{
		Name:              displayName,
		StateTopic:        p.topics.DeviceState(device.SN, field.Key),
		AvailabilityTopic: p.topics.DeviceStatus(device.SN),
		UniqueID:          "dessmon_" + device.SN + "_" + field.Key,
		UnitOfMeasurement: field.Unit,
		AttributesTopic:   p.topics.DeviceAttributes(device.SN),
		Device: discoveryDevice{
			IDs:          "dessmon_" + device.SN,
			Name:         deviceName,
			Manufacturer: "DessMonitor",
			Model:        deviceModel,
			SerialNumber: device.SN,
		},
	}
	if known {
		cfg.DeviceClass = meta.DeviceClass
		cfg.StateClass = meta.StateClass
		cfg.Icon = meta.Icon
	}
	return cfg
}
