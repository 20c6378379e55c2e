// Package devcode holds per-collector-model mapping profiles.
//
// The devcode identifies the data collector (gateway) model, not the inverter
// behind it. Each collector family reports telemetry under slightly different
// field titles and enum spellings; a Profile carries the tables that map
// those onto the canonical sensor names and mode values the rest of the
// pipeline works with.
//
// Profiles register themselves from their devcode_NNNN.go file at init time.
// Resolution never fails: an unknown devcode yields a passthrough profile
// with empty tables, logged once per devcode so a fleet of unsupported
// collectors does not flood the log.
package devcode
