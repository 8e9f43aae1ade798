package core

import (
	"encoding/json"
	"fmt"
)

// PlanLeg is one (acceleration, duration) pair of a flight plan. On the wire
// it is a two-element array: [[ax, ay, az], duration].
type PlanLeg struct {
	Accel    Vec3
	Duration uint64
}

// MarshalJSON encodes the leg as [[ax,ay,az], duration].
func (l PlanLeg) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{l.Accel, l.Duration})
}

// UnmarshalJSON decodes [[ax,ay,az], duration].
func (l *PlanLeg) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("plan leg is not a two-element array: %w", err)
	}
	if err := json.Unmarshal(raw[0], &l.Accel); err != nil {
		return fmt.Errorf("plan leg acceleration: %w", err)
	}
	if err := json.Unmarshal(raw[1], &l.Duration); err != nil {
		return fmt.Errorf("plan leg duration: %w", err)
	}
	return nil
}

// FlightPlan holds one or two legs. The first leg is the current burn, the
// optional second the next. The wire format never carries a null placeholder
// for the second leg; an absent leg is simply absent.
type FlightPlan []PlanLeg

// Current returns the first leg, or a zero leg if the plan is empty.
func (p FlightPlan) Current() PlanLeg {
	if len(p) == 0 {
		return PlanLeg{}
	}
	return p[0]
}

// Next returns the second leg, or nil if there is none.
func (p FlightPlan) Next() *PlanLeg {
	if len(p) < 2 {
		return nil
	}
	return &p[1]
}

// Scale returns a copy of the plan with every leg's acceleration multiplied
// by f. Durations are never scaled.
func (p FlightPlan) Scale(f float64) FlightPlan {
	out := make(FlightPlan, len(p))
	for i, leg := range p {
		out[i] = PlanLeg{Accel: leg.Accel.Scale(f), Duration: leg.Duration}
	}
	return out
}
