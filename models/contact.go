package models

// Contact is the part of one logbook record this service cares about.
type Contact struct {
	Callsign string `json:"callsign"`
	Grid     string `json:"gridsquare,omitempty"`
}
