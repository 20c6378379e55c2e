package devcode

import (
	"fmt"
	"strings"
)

// Profile describes one supported data collector model: its identity and the
// tables mapping its field titles and enum values onto canonical names.
type Profile struct {
	// Devcode is the platform's collector model identifier.
	Devcode int

	// Model is the human-readable collector model name.
	Model string

	// KnownInverters lists inverter models observed behind this collector.
	KnownInverters []string

	// TitleMappings maps platform field titles to canonical sensor names.
	TitleMappings map[string]string

	// OperatingModes maps platform operating mode spellings to canonical
	// mode names.
	OperatingModes map[string]string

	// OutputPriorities maps output source priority codes to readable names.
	OutputPriorities map[string]string

	// ChargerPriorities maps charger source priority codes to readable names.
	ChargerPriorities map[string]string

	// fallback marks a synthesized passthrough profile for an unknown
	// devcode.
	fallback bool
}

// Supported reports whether this profile belongs to a known collector model.
func (p *Profile) Supported() bool {
	return !p.fallback
}

// MapTitle returns the canonical sensor name for a platform field title, or
// the title unchanged when no mapping exists.
func (p *Profile) MapTitle(title string) string {
	if mapped, ok := p.TitleMappings[title]; ok {
		return mapped
	}
	return title
}

// MapOperatingMode normalizes an operating mode value. Lookup is exact
// first, then case-insensitive on the trimmed value. Unmapped values pass
// through trimmed.
func (p *Profile) MapOperatingMode(value string) string {
	trimmed := strings.TrimSpace(value)
	if mapped, ok := p.OperatingModes[trimmed]; ok {
		return mapped
	}
	for candidate, mapped := range p.OperatingModes {
		if strings.EqualFold(strings.TrimSpace(candidate), trimmed) {
			return mapped
		}
	}
	return trimmed
}

// MapOutputPriority normalizes an output source priority value.
func (p *Profile) MapOutputPriority(value string) string {
	if mapped, ok := p.OutputPriorities[value]; ok {
		return mapped
	}
	return value
}

// MapChargerPriority normalizes a charger source priority value.
func (p *Profile) MapChargerPriority(value string) string {
	if mapped, ok := p.ChargerPriorities[value]; ok {
		return mapped
	}
	return value
}

// MapValue applies the enum mapping appropriate for the field's canonical
// title: output priority, charger priority or operating mode. Values of
// other fields pass through unchanged.
//
// The title is matched after title mapping, so callers apply MapTitle first.
func (p *Profile) MapValue(title, value string) string {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "priority") && strings.Contains(t, "output"):
		return p.MapOutputPriority(value)
	case strings.Contains(t, "priority") && strings.Contains(t, "charg"):
		return p.MapChargerPriority(value)
	case strings.Contains(t, "operating mode") || strings.HasSuffix(t, " mode"):
		return p.MapOperatingMode(value)
	}
	return value
}

// newFallbackProfile synthesizes a passthrough profile for an unknown
// devcode.
func newFallbackProfile(devcode int) *Profile {
	return &Profile{
		Devcode:  devcode,
		Model:    fmt.Sprintf("Unsupported Device (devcode %d)", devcode),
		fallback: true,
	}
}
