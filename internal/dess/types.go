package dess

import (
	"encoding/json"
	"strconv"
	"time"
)

// API action names.
const (
	actionAuthSource       = "authSource"
	actionQueryPlants      = "queryPlants"
	actionQueryCollectors  = "webQueryCollectorsEs"
	actionCollectorDevices = "queryCollectorDevices"
	actionDeviceLastData   = "queryDeviceLastData"
	actionDeviceSummary    = "webQueryDeviceEs"
)

// envelope is the JSON wrapper shared by all API responses.
// err != 0 signals an API-level failure even on HTTP 200.
type envelope struct {
	Err  int             `json:"err"`
	Desc string          `json:"desc"`
	Dat  json.RawMessage `json:"dat"`
}

// Session is an authenticated DessMonitor session.
type Session struct {
	Token     string
	Secret    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Valid reports whether the session can still sign requests.
// A small safety margin avoids racing the server-side expiry.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Token == "" || s.Secret == "" {
		return false
	}
	const margin = time.Minute
	return now.Add(margin).Before(s.ExpiresAt)
}

// FlexString unmarshals a JSON value that may arrive as a string or a
// number. The platform is inconsistent about this across devcodes.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Int returns the value as an int, or 0 if it does not parse.
func (f FlexString) Int() int {
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0
	}
	return n
}

// Plant is a project (site) on the account.
type Plant struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

// Collector is a datalogger reported by webQueryCollectorsEs.
type Collector struct {
	PN     string     `json:"pn"`
	Alias  string     `json:"alias"`
	Status FlexString `json:"status"`

	// ProjectID is filled by the client during enumeration; it is not part
	// of the wire payload.
	ProjectID int `json:"-"`
}

// Device is an inverter attached to a collector.
type Device struct {
	SN      string     `json:"sn"`
	Devcode int        `json:"devcode"`
	Devaddr int        `json:"devaddr"`
	Alias   string     `json:"devalias"`
	Status  FlexString `json:"status"`

	// PN is filled by the client during enumeration.
	PN string `json:"-"`
}

// RawField is one telemetry field as reported by queryDeviceLastData, or a
// synthesized summary field. Title is the platform's field name before
// normalization.
type RawField struct {
	Title string     `json:"title"`
	Val   FlexString `json:"val"`
	Unit  string     `json:"unit"`
}

// DeviceSummary is the per-device slice of webQueryDeviceEs: headline
// figures plus online status.
type DeviceSummary struct {
	SN     string
	Alias  string
	Status int
	Fields []RawField
}

// Wire shapes for the dat payloads.

type plantsDat struct {
	Plant []Plant `json:"plant"`
}

type collectorsDat struct {
	Collector []Collector `json:"collector"`
	Total     int         `json:"total"`
}

type collectorDevicesDat struct {
	Dev []Device `json:"dev"`
}

type summaryDat struct {
	Device []summaryDevice `json:"device"`
}

type summaryDevice struct {
	SN          string      `json:"sn"`
	Alias       string      `json:"devalias"`
	Status      int         `json:"status"`
	OutPower    *FlexString `json:"outpower,omitempty"`
	EnergyToday *FlexString `json:"energyToday,omitempty"`
	EnergyTotal *FlexString `json:"energyTotal,omitempty"`
}

type authDat struct {
	Token  string `json:"token"`
	Secret string `json:"secret"`
	Expire int64  `json:"expire"` // seconds of validity
}
