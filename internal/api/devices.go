package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dessmon/dessmon-core/internal/fleet"
	"github.com/dessmon/dessmon-core/internal/poller"
)

// componentCheckTimeout bounds each component health check.
const componentCheckTimeout = 2 * time.Second

// HealthResponse reports overall and per-component health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// handleHealth runs every registered component check. A single failing
// component degrades the overall status to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
	}

	if len(s.components) > 0 {
		resp.Components = make(map[string]string, len(s.components))
		for name, component := range s.components {
			ctx, cancel := context.WithTimeout(r.Context(), componentCheckTimeout)
			if err := component.HealthCheck(ctx); err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "degraded"
			} else {
				resp.Components[name] = "ok"
			}
			cancel()
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// DeviceStatus is one fleet entry combined with its poll state.
type DeviceStatus struct {
	fleet.Device
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	Stale      bool       `json:"stale"`
	LastError  string     `json:"last_error,omitempty"`
	FieldCount int        `json:"field_count"`
}

// DeviceListResponse is the fleet overview.
type DeviceListResponse struct {
	Devices    []DeviceStatus    `json:"devices"`
	Collectors []fleet.Collector `json:"collectors"`
}

// handleListDevices returns the fleet with per-device poll status.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.fleet.Devices()
	statuses := make([]DeviceStatus, 0, len(devices))

	for _, d := range devices {
		status := DeviceStatus{Device: d}
		if snap, ok := s.snapshots.Get(d.SN); ok {
			if !snap.UpdatedAt.IsZero() {
				ts := snap.UpdatedAt
				status.UpdatedAt = &ts
			}
			status.Stale = snap.Stale
			status.LastError = snap.LastError
			status.FieldCount = len(snap.Fields)
		}
		statuses = append(statuses, status)
	}

	writeJSON(w, http.StatusOK, DeviceListResponse{
		Devices:    statuses,
		Collectors: s.fleet.Collectors(),
	})
}

// handleGetDevice returns one device's last normalized readings.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	sn := chi.URLParam(r, "sn")

	device, ok := s.fleet.Device(sn)
	if !ok {
		writeNotFound(w, "unknown device serial number")
		return
	}

	snap, ok := s.snapshots.Get(sn)
	if !ok {
		// Known device that has not completed a poll yet.
		snap = poller.DeviceSnapshot{Device: device}
	}
	writeJSON(w, http.StatusOK, snap)
}
