// Package publisher mirrors normalized readings onto MQTT.
//
// Per device it maintains three retained surfaces: one state topic per
// canonical field, an availability topic, and a JSON attributes topic.
// When Home Assistant discovery is enabled each sensor also gets a retained
// config document under the discovery prefix, republished whenever the
// device's sensor set changes and after a broker reconnect.
//
// Publishing a device is all or nothing: every payload is built before the
// first byte goes to the broker, so a marshal failure never leaves a device
// half updated.
package publisher
