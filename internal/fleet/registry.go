package fleet

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Registry is the in-memory view of the fleet, kept in step with the
// repository. Reads never touch the database.
//
// Thread Safety: safe for concurrent use.
type Registry struct {
	repo *Repository

	mu         sync.RWMutex
	collectors map[string]Collector
	devices    map[string]Device
}

// NewRegistry creates a registry over the repository.
func NewRegistry(repo *Repository) (*Registry, error) {
	if repo == nil {
		return nil, errors.New("fleet: repository is required")
	}
	return &Registry{
		repo:       repo,
		collectors: make(map[string]Collector),
		devices:    make(map[string]Device),
	}, nil
}

// Load warms the cache from the repository. Called once at startup so the
// fleet from the previous run is visible before the first enumeration.
func (r *Registry) Load(ctx context.Context) error {
	return r.reload(ctx)
}

// Sync persists an enumeration result and refreshes the cache. Collectors
// and devices present in the arguments become online; stored entries absent
// from them are marked offline.
func (r *Registry) Sync(ctx context.Context, collectors []Collector, devices []Device, now time.Time) error {
	if err := r.repo.SyncCollectors(ctx, collectors, now); err != nil {
		return err
	}
	if err := r.repo.SyncDevices(ctx, devices, now); err != nil {
		return err
	}
	return r.reload(ctx)
}

// Prune removes long-offline entries and refreshes the cache. It returns
// the number of removed rows.
func (r *Registry) Prune(ctx context.Context, retention time.Duration, now time.Time) (int64, error) {
	removed, err := r.repo.Prune(ctx, retention, now)
	if err != nil {
		return 0, err
	}
	return removed, r.reload(ctx)
}

func (r *Registry) reload(ctx context.Context) error {
	collectors, err := r.repo.ListCollectors(ctx)
	if err != nil {
		return err
	}
	devices, err := r.repo.ListDevices(ctx)
	if err != nil {
		return err
	}

	cmap := make(map[string]Collector, len(collectors))
	for _, c := range collectors {
		cmap[c.PN] = c
	}
	dmap := make(map[string]Device, len(devices))
	for _, d := range devices {
		dmap[d.SN] = d
	}

	r.mu.Lock()
	r.collectors = cmap
	r.devices = dmap
	r.mu.Unlock()
	return nil
}

// Collectors returns the cached collectors sorted by PN.
func (r *Registry) Collectors() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Collector, 0, len(r.collectors))
	for _, c := range r.collectors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PN < out[j].PN })
	return out
}

// Devices returns the cached devices sorted by SN.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SN < out[j].SN })
	return out
}

// Device returns a cached device by serial number.
func (r *Registry) Device(sn string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[sn]
	return d, ok
}

// Collector returns a cached collector by PN.
func (r *Registry) Collector(pn string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[pn]
	return c, ok
}
