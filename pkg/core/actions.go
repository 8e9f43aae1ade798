// pkg/core/actions.go
package core

// SensorOp enumerates the sensor operations a ship may run in a round.
// At most one sensor action is active per actor per round.
type SensorOp string

const (
	SensorNone      SensorOp = ""
	JamMissiles     SensorOp = "JamMissiles"
	BreakSensorLock SensorOp = "BreakSensorLock"
	SensorLock      SensorOp = "SensorLock"
	JamComms        SensorOp = "JamComms"
)

// SensorState is the single sensor action queued for an actor. Target is
// empty for JamMissiles and None.
type SensorState struct {
	Action SensorOp `json:"action"`
	Target string   `json:"target"`
}

// FireAction queues one weapon slot against a target ship.
type FireAction struct {
	Target           string `json:"target"`
	WeaponID         int    `json:"weapon_id"`
	CalledShotSystem string `json:"called_shot_system,omitempty"`
}

// UnfireAction cancels a previously queued FireAction for a weapon slot.
// Cancellation is a protocol event in its own right; the server owns the
// final queued-fire list.
type UnfireAction struct {
	WeaponID int `json:"weapon_id"`
}

// PointDefenseAction reserves a weapon slot for automated point defense
// this round.
type PointDefenseAction struct {
	WeaponID int `json:"weapon_id"`
}

// ShipActions is the full set of not-yet-committed intents for one actor.
type ShipActions struct {
	Sensor       SensorState          `json:"sensor"`
	Fire         []FireAction         `json:"fire"`
	Unfire       []UnfireAction       `json:"unfire"`
	PointDefense []PointDefenseAction `json:"point_defense"`
	Jump         bool                 `json:"jump"`
}

// Empty reports whether the actor has no queued intent at all.
func (a *ShipActions) Empty() bool {
	return a == nil ||
		(a.Sensor.Action == SensorNone &&
			len(a.Fire) == 0 &&
			len(a.Unfire) == 0 &&
			len(a.PointDefense) == 0 &&
			!a.Jump)
}

// Clone returns a deep copy.
func (a *ShipActions) Clone() *ShipActions {
	if a == nil {
		return nil
	}
	out := &ShipActions{Sensor: a.Sensor, Jump: a.Jump}
	out.Fire = append(out.Fire, a.Fire...)
	out.Unfire = append(out.Unfire, a.Unfire...)
	out.PointDefense = append(out.PointDefense, a.PointDefense...)
	return out
}

// ActionMap maps actor (ship) names to their queued intents for the
// current round.
type ActionMap map[string]*ShipActions

// Clone returns a deep copy of the map.
func (m ActionMap) Clone() ActionMap {
	out := make(ActionMap, len(m))
	for name, a := range m {
		out[name] = a.Clone()
	}
	return out
}
