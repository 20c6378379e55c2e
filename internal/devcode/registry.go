package devcode

import (
	"fmt"
	"sort"
	"sync"
)

// profiles is the static table of supported collector models, populated by
// the devcode_NNNN.go files at init time.
var profiles = map[int]*Profile{}

// register adds a profile to the static table. Duplicate devcodes are a
// programming error.
func register(p *Profile) {
	if _, exists := profiles[p.Devcode]; exists {
		panic(fmt.Sprintf("devcode: duplicate profile for devcode %d", p.Devcode))
	}
	profiles[p.Devcode] = p
}

// Supported returns the devcodes with a registered profile, sorted.
func Supported() []int {
	codes := make([]int, 0, len(profiles))
	for code := range profiles {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// IsSupported reports whether a profile is registered for the devcode.
func IsSupported(devcode int) bool {
	_, ok := profiles[devcode]
	return ok
}

// Logger is the minimal logging interface the registry needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Registry resolves devcodes to profiles, tracking which unknown devcodes
// have already been warned about.
//
// Thread Safety: safe for concurrent use.
type Registry struct {
	logger Logger

	mu        sync.Mutex
	fallbacks map[int]*Profile
}

// NewRegistry creates a registry. The logger may be nil.
func NewRegistry(logger Logger) *Registry {
	return &Registry{
		logger:    logger,
		fallbacks: make(map[int]*Profile),
	}
}

// Resolve returns the profile for a devcode. Unknown devcodes resolve to a
// cached passthrough profile; the first occurrence of each is logged as a
// warning.
func (r *Registry) Resolve(devcode int) *Profile {
	if p, ok := profiles[devcode]; ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.fallbacks[devcode]; ok {
		return p
	}

	p := newFallbackProfile(devcode)
	r.fallbacks[devcode] = p
	if r.logger != nil {
		r.logger.Warn("unsupported collector devcode, telemetry passes through unmapped",
			"devcode", devcode,
		)
	}
	return p
}
