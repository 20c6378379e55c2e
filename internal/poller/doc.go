// Package poller drives the polling loop against the DessMonitor cloud.
//
// Each cycle enumerates the account's plants, collectors and devices, syncs
// the fleet registry, then fetches every device's latest telemetry
// sequentially. Per-device failures keep the previous readings (marked
// stale) and are recorded; a failure during enumeration aborts the whole
// cycle and the next tick retries.
//
// Successful device reads flow to three sinks: the in-memory snapshot store
// served by the HTTP API, retained MQTT state, and InfluxDB when configured.
// Summary figures from the project-level endpoint are merged into a device's
// fields only when their canonical key is not already present.
package poller
