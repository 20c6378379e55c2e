// Package api provides the local HTTP status server.
//
// The surface is read-only and unauthenticated, intended for the LAN or a
// reverse proxy: component health, the discovered fleet with per-device poll
// status, each device's last normalized readings, and Prometheus metrics.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: all methods are safe for concurrent use.
package api
