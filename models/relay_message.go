package models

// RelayMessageType defines the set of messages the last-seen relay understands.
type RelayMessageType string

const (
	RelayGetLastCallsign RelayMessageType = "getLastCallsign"
	RelaySetLastCallsign RelayMessageType = "setLastCallsign"
)

type RelayMessage struct {
	Type     RelayMessageType `json:"type"`
	Callsign string           `json:"callsign,omitempty"`
}
