package model

// CounterpartyDetails is the display identity of a protocol.
type CounterpartyDetails struct {
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	Image      string `json:"image,omitempty"`
}
