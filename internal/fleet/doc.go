// Package fleet tracks the discovered collectors and inverter devices.
//
// Enumeration results are persisted to SQLite and mirrored in an in-memory
// cache so the HTTP API and the poll loop never touch the database on the
// read path. A device that disappears from an enumeration is marked offline
// rather than deleted; rows are only removed by an explicit prune of
// long-offline entries.
package fleet
