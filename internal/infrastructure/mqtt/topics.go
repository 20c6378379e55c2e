package mqtt

import "fmt"

// Topic prefixes for the dessmon MQTT hierarchy.
//
// State and availability use the flat scheme:
//
//	dessmon/state/{sn}/{sensor_key}
//	dessmon/status/{sn}
//	dessmon/system/status
//
// Home Assistant discovery configs live under the discovery prefix
// (normally "homeassistant") and are built with DiscoveryConfig.
const (
	// TopicPrefix is the base for all dessmon topics.
	TopicPrefix = "dessmon"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "dessmon/system"
)

// Topics provides builders for dessmon MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("Q1234567890", "pv_power")
//	// Returns: "dessmon/state/Q1234567890/pv_power"
type Topics struct{}

// DeviceState returns the retained state topic for one sensor of a device.
//
// Example: dessmon/state/Q1234567890/pv_power
func (Topics) DeviceState(sn, key string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, sn, key)
}

// DeviceStatus returns the availability topic for a device.
// Payload is "online" or "offline", retained.
//
// Example: dessmon/status/Q1234567890
func (Topics) DeviceStatus(sn string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, sn)
}

// DeviceAttributes returns the JSON attributes topic for a device.
// Carries poll metadata (devcode, collector PN, last poll timestamp).
//
// Example: dessmon/attributes/Q1234567890
func (Topics) DeviceAttributes(sn string) string {
	return fmt.Sprintf("%s/attributes/%s", TopicPrefix, sn)
}

// SystemStatus returns the daemon status topic (also the LWT topic).
//
// Example: dessmon/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// DiscoveryConfig returns the Home Assistant discovery config topic for one
// sensor of a device.
//
// Example: homeassistant/sensor/dessmon_Q1234567890/pv_power/config
func (Topics) DiscoveryConfig(prefix, sn, key string) string {
	return fmt.Sprintf("%s/sensor/dessmon_%s/%s/config", prefix, sn, key)
}
