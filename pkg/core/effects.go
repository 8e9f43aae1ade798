package core

import "encoding/json"

// Known effect kinds emitted in a round-outcome frame. The set is open;
// unknown kinds are preserved raw rather than dropped.
const (
	EffectShipImpact       = "ShipImpact"
	EffectBayPressureDrop  = "BayPressureDrop"
	EffectShipDestroyed    = "ShipDestroyed"
	EffectExhaustedMissile = "ExhaustedMissile"
	EffectMessage          = "Message"
)

// Effect is one outcome of a resolved round. Kind is the single wire tag,
// Payload the undecoded body (possibly nil for bare-string effects).
type Effect struct {
	Kind    string
	Payload json.RawMessage
}

// Text decodes the payload as a plain string, for message-style effects.
// Returns "" if the payload is absent or not a string.
func (e Effect) Text() string {
	var s string
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return ""
	}
	return s
}
