package wire

import "github.com/dcsturman/callisto-sub000/pkg/core"

// StandardGravity converts between the G units used everywhere in the
// client and the m/s^2 the server speaks. The conversion happens only
// here, at the wire boundary.
const StandardGravity = 9.807

// PlanToWire converts a flight plan from G to m/s^2 for transmission.
func PlanToWire(plan core.FlightPlan) core.FlightPlan {
	return plan.Scale(StandardGravity)
}

// PlanFromWire converts a received flight plan from m/s^2 back to G.
func PlanFromWire(plan core.FlightPlan) core.FlightPlan {
	return plan.Scale(1.0 / StandardGravity)
}

// AccelToWire converts a single acceleration vector from G to m/s^2.
func AccelToWire(a core.Vec3) core.Vec3 {
	return a.Scale(StandardGravity)
}

// AccelFromWire converts a single acceleration vector from m/s^2 to G.
func AccelFromWire(a core.Vec3) core.Vec3 {
	return a.Scale(1.0 / StandardGravity)
}
