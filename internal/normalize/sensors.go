package normalize

// Measurement units used by the canonical sensor table.
const (
	UnitWatt       = "W"
	UnitKilowattHr = "kWh"
	UnitVolt       = "V"
	UnitAmpere     = "A"
	UnitHertz      = "Hz"
	UnitCelsius    = "°C"
	UnitPercent    = "%"
)

// Meta describes a canonical sensor for downstream consumers: display name,
// unit and the Home Assistant classification fields used in MQTT discovery.
type Meta struct {
	Name        string
	Unit        string
	DeviceClass string
	StateClass  string
	Icon        string
}

// sensorMeta is the canonical sensor table, keyed by canonical field title.
var sensorMeta = map[string]Meta{
	"Output Active Power": {
		Name: "Output Power", Unit: UnitWatt,
		DeviceClass: "power", StateClass: "measurement", Icon: "mdi:flash",
	},
	"Battery Power": {
		Name: "Battery Power", Unit: UnitWatt,
		DeviceClass: "power", StateClass: "measurement", Icon: "mdi:battery",
	},
	"PV Power": {
		Name: "Solar Power", Unit: UnitWatt,
		DeviceClass: "power", StateClass: "measurement", Icon: "mdi:solar-power",
	},
	"Grid Power": {
		Name: "Grid Power", Unit: UnitWatt,
		DeviceClass: "power", StateClass: "measurement", Icon: "mdi:transmission-tower",
	},
	"Output Voltage": {
		Name: "Output Voltage", Unit: UnitVolt,
		DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash",
	},
	"Battery Voltage": {
		Name: "Battery Voltage", Unit: UnitVolt,
		DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:battery",
	},
	"PV Voltage": {
		Name: "Solar Voltage", Unit: UnitVolt,
		DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:solar-power",
	},
	"Output Current": {
		Name: "Output Current", Unit: UnitAmpere,
		DeviceClass: "current", StateClass: "measurement", Icon: "mdi:current-ac",
	},
	"Battery Current": {
		Name: "Battery Current", Unit: UnitAmpere,
		DeviceClass: "current", StateClass: "measurement", Icon: "mdi:battery",
	},
	"PV Current": {
		Name: "Solar Current", Unit: UnitAmpere,
		DeviceClass: "current", StateClass: "measurement", Icon: "mdi:solar-power",
	},
	"Output Frequency": {
		Name: "Output Frequency", Unit: UnitHertz,
		DeviceClass: "frequency", StateClass: "measurement", Icon: "mdi:sine-wave",
	},
	"Grid Frequency": {
		Name: "Grid Frequency", Unit: UnitHertz,
		DeviceClass: "frequency", StateClass: "measurement", Icon: "mdi:sine-wave",
	},
	"Load Percent": {
		Name: "Load Percentage", Unit: UnitPercent,
		StateClass: "measurement", Icon: "mdi:gauge",
	},
	"Inverter Temperature": {
		Name: "Inverter Temperature", Unit: UnitCelsius,
		DeviceClass: "temperature", StateClass: "measurement", Icon: "mdi:thermometer",
	},
	"DC Module Temperature": {
		Name: "DC Module Temperature", Unit: UnitCelsius,
		DeviceClass: "temperature", StateClass: "measurement", Icon: "mdi:thermometer",
	},
	"Energy Today": {
		Name: "Energy Today", Unit: UnitKilowattHr,
		DeviceClass: "energy", StateClass: "total_increasing", Icon: "mdi:solar-power",
	},
	"Energy Total": {
		Name: "Energy Total", Unit: UnitKilowattHr,
		DeviceClass: "energy", StateClass: "total_increasing", Icon: "mdi:solar-power",
	},
	"Daily Energy": {
		Name: "Daily Energy", Unit: UnitKilowattHr,
		DeviceClass: "energy", StateClass: "total_increasing", Icon: "mdi:solar-power",
	},
	"Total Energy": {
		Name: "Total Energy", Unit: UnitKilowattHr,
		DeviceClass: "energy", StateClass: "total_increasing", Icon: "mdi:solar-power",
	},
	"State of Charge": {
		Name: "State of Charge", Unit: UnitPercent,
		DeviceClass: "battery", StateClass: "measurement", Icon: "mdi:battery",
	},
	// The platform emits both casings of this title, varying by devcode.
	// Both entries are needed; do not deduplicate.
	"Operating Mode": {
		Name: "Operating Mode", Icon: "mdi:power-settings",
	},
	"Operating mode": {
		Name: "Operating Mode", Icon: "mdi:power-settings",
	},
}

// LookupMeta returns the canonical sensor metadata for a canonical title.
func LookupMeta(title string) (Meta, bool) {
	meta, ok := sensorMeta[title]
	return meta, ok
}

// OperatingModes maps canonical operating mode names to their stable
// machine-readable identifiers.
var OperatingModes = map[string]string{
	"Off-Grid Mode": "off_grid",
	"Grid Mode":     "grid",
	"Hybrid Mode":   "hybrid",
}
