package fleet

import "time"

// Collector is a datalogger gateway known to the account.
type Collector struct {
	PN        string    `json:"pn"`
	ProjectID int       `json:"project_id"`
	Alias     string    `json:"alias"`
	Online    bool      `json:"online"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Device is an inverter attached to a collector.
type Device struct {
	SN        string    `json:"sn"`
	PN        string    `json:"pn"`
	Devcode   int       `json:"devcode"`
	Devaddr   int       `json:"devaddr"`
	Alias     string    `json:"alias"`
	Online    bool      `json:"online"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}
