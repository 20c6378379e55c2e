package poller

import (
	"sync"
	"time"

	"github.com/dessmon/dessmon-core/internal/fleet"
	"github.com/dessmon/dessmon-core/internal/normalize"
)

// DeviceSnapshot is the last known state of one device.
type DeviceSnapshot struct {
	Device    fleet.Device      `json:"device"`
	Fields    []normalize.Field `json:"fields"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Stale marks readings carried over from an earlier cycle after a
	// fetch or publish failure.
	Stale bool `json:"stale"`

	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`
}

// SnapshotStore holds the latest readings per device for the HTTP API.
//
// Thread Safety: safe for concurrent use.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]DeviceSnapshot
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]DeviceSnapshot)}
}

// Update records a successful read, clearing any stale or error state.
func (s *SnapshotStore) Update(device fleet.Device, fields []normalize.Field, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[device.SN] = DeviceSnapshot{
		Device:    device,
		Fields:    fields,
		UpdatedAt: ts,
	}
}

// MarkFailed records a device failure. Existing readings are retained and
// flagged stale; a device that never delivered readings gets an error-only
// snapshot.
func (s *SnapshotStore) MarkFailed(device fleet.Device, err error, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[device.SN]
	if !ok {
		snap = DeviceSnapshot{Device: device}
	}
	snap.Device = device
	snap.Stale = true
	snap.LastError = err.Error()
	snap.LastErrorAt = ts
	s.snapshots[device.SN] = snap
}

// Get returns the snapshot for a device.
func (s *SnapshotStore) Get(sn string) (DeviceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[sn]
	return snap, ok
}

// All returns every snapshot keyed by serial number.
func (s *SnapshotStore) All() map[string]DeviceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]DeviceSnapshot, len(s.snapshots))
	for sn, snap := range s.snapshots {
		out[sn] = snap
	}
	return out
}
