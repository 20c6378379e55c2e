package devcode

import (
	"reflect"
	"testing"
)

type capturingLogger struct {
	warns int
}

func (l *capturingLogger) Warn(string, ...any) { l.warns++ }

func TestSupported(t *testing.T) {
	want := []int{2334, 2361, 2376, 2449, 2451, 6422, 6515, 6544}
	if got := Supported(); !reflect.DeepEqual(got, want) {
		t.Errorf("Supported() = %v, want %v", got, want)
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported(2376) {
		t.Error("IsSupported(2376) = false")
	}
	if IsSupported(9999) {
		t.Error("IsSupported(9999) = true")
	}
}

func TestRegistry_ResolveKnown(t *testing.T) {
	r := NewRegistry(nil)

	p := r.Resolve(2376)
	if p == nil {
		t.Fatal("Resolve(2376) returned nil")
	}
	if !p.Supported() {
		t.Error("known devcode resolved to a fallback profile")
	}
	if p.Model != "DessMonitor Data Collector (devcode 2376)" {
		t.Errorf("Model = %q", p.Model)
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	logger := &capturingLogger{}
	r := NewRegistry(logger)

	p := r.Resolve(9999)
	if p == nil {
		t.Fatal("Resolve(9999) returned nil")
	}
	if p.Supported() {
		t.Error("unknown devcode resolved to a supported profile")
	}
	if p.Model != "Unsupported Device (devcode 9999)" {
		t.Errorf("Model = %q", p.Model)
	}

	// Passthrough behavior on the fallback.
	if got := p.MapTitle("Output Voltage"); got != "Output Voltage" {
		t.Errorf("MapTitle() = %q on fallback", got)
	}
	if got := p.MapOperatingMode(" Grid Mode "); got != "Grid Mode" {
		t.Errorf("MapOperatingMode() = %q, want trimmed passthrough", got)
	}

	// Warn fires once per devcode, not per resolution.
	r.Resolve(9999)
	r.Resolve(9999)
	if logger.warns != 1 {
		t.Errorf("warned %d times for one unknown devcode, want 1", logger.warns)
	}

	r.Resolve(8888)
	if logger.warns != 2 {
		t.Errorf("warned %d times after second unknown devcode, want 2", logger.warns)
	}
}

func TestProfile_MapTitle(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		devcode int
		title   string
		want    string
	}{
		{2376, "INV Module Termperature", "Inverter Temperature"},
		{2376, "outpower", "PV Power"},
		{2334, "AC output active power", "Output Active Power"},
		{2449, "Today generation", "Energy Today"},
		{6544, "Total Load Percentage", "Load Percent"},
		{2376, "Some Unknown Field", "Some Unknown Field"},
	}

	for _, tt := range tests {
		if got := r.Resolve(tt.devcode).MapTitle(tt.title); got != tt.want {
			t.Errorf("devcode %d MapTitle(%q) = %q, want %q", tt.devcode, tt.title, got, tt.want)
		}
	}
}

func TestProfile_MapOperatingMode(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name    string
		devcode int
		value   string
		want    string
	}{
		{"exact", 6422, "Grid-Tie", "Grid Mode"},
		{"case insensitive", 6422, "offgrid", "Off-Grid Mode"},
		{"trims whitespace", 2334, " Line Mode ", "Grid Mode"},
		{"passthrough", 2334, "Mystery Mode", "Mystery Mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.devcode).MapOperatingMode(tt.value); got != tt.want {
				t.Errorf("MapOperatingMode(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestProfile_MapValue(t *testing.T) {
	r := NewRegistry(nil)
	p := r.Resolve(2376)

	tests := []struct {
		name  string
		title string
		value string
		want  string
	}{
		{"output priority", "Output priority", "SBU", "Solar → Battery → Utility"},
		{"charger priority", "Charger Source Priority", "Only PV", "Solar only charging"},
		{"operating mode suffix", "Working Mode", "Line", "Grid Mode"},
		{"plain field untouched", "Output Voltage", "230.1", "230.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.MapValue(tt.title, tt.value); got != tt.want {
				t.Errorf("MapValue(%q, %q) = %q, want %q", tt.title, tt.value, got, tt.want)
			}
		})
	}
}
