package wire

import (
	"encoding/json"

	"github.com/dcsturman/callisto-sub000/pkg/core"
)

// LoginPayload carries the OAuth authorization code obtained by the
// sign-in flow. This layer only transports it.
type LoginPayload struct {
	Code string `json:"code"`
}

// AuthResponsePayload is the server's answer to Login.
type AuthResponsePayload struct {
	Email    string  `json:"email"`
	Scenario *string `json:"scenario,omitempty"`
	Role     *string `json:"role,omitempty"`
	Ship     *string `json:"ship,omitempty"`
}

// AddShipPayload requests creation of a ship in the current scenario.
type AddShipPayload struct {
	Name     string    `json:"name"`
	Position core.Vec3 `json:"position"`
	Velocity core.Vec3 `json:"velocity"`
	Design   string    `json:"design"`
	Crew     core.Crew `json:"crew"`
}

// RemoveEntityPayload removes a named entity from the scenario.
type RemoveEntityPayload struct {
	Name string `json:"name"`
}

// SetPilotActionsPayload adjusts per-round pilot settings for a ship.
type SetPilotActionsPayload struct {
	ShipName      string `json:"ship_name"`
	DodgeThrust   *uint  `json:"dodge_thrust,omitempty"`
	AssistGunners *bool  `json:"assist_gunners,omitempty"`
}

// SetPlanPayload commits a flight plan. Plan accelerations are in m/s^2
// (wire units).
type SetPlanPayload struct {
	Name string          `json:"name"`
	Plan core.FlightPlan `json:"plan"`
}

// ComputePathPayload asks the server to solve a flight path. EndPos and
// EndVel are in wire units; the optional fields refine the solve.
type ComputePathPayload struct {
	EntityName         string     `json:"entity_name"`
	EndPos             core.Vec3  `json:"end_pos"`
	EndVel             core.Vec3  `json:"end_vel"`
	TargetVelocity     *core.Vec3 `json:"target_velocity,omitempty"`
	TargetAcceleration *core.Vec3 `json:"target_acceleration,omitempty"`
	StandoffDistance   *float64   `json:"standoff_distance,omitempty"`
}

// FlightPathPayload is the server's proposed path for the most recent
// ComputePath request. Plan accelerations arrive in m/s^2.
type FlightPathPayload struct {
	Path        []core.Vec3     `json:"path"`
	EndVelocity core.Vec3       `json:"end_velocity"`
	Plan        core.FlightPlan `json:"plan"`
}

// SetRolePayload selects the caller's role, optionally bound to a ship.
type SetRolePayload struct {
	Role string  `json:"role"`
	Ship *string `json:"ship,omitempty"`
}

// JoinScenarioPayload joins a running scenario by name.
type JoinScenarioPayload struct {
	ScenarioName string `json:"scenario_name"`
}

// CreateScenarioPayload creates a scenario from a template.
type CreateScenarioPayload struct {
	Name     string `json:"name"`
	Scenario string `json:"scenario"`
}

// EntityResponsePayload is the authoritative snapshot that wholesale
// replaces the world mirror. Actions, when present, is the server's echo
// of the accepted action list and replaces the ledger.
type EntityResponsePayload struct {
	Ships    []core.Ship     `json:"ships"`
	Planets  []core.Planet   `json:"planets"`
	Missiles []core.Missile  `json:"missiles"`
	Actions  json.RawMessage `json:"actions,omitempty"`
}

// ScenariosPayload lists running scenarios and available templates.
type ScenariosPayload struct {
	CurrentScenarios []string `json:"current_scenarios"`
	Templates        []string `json:"templates"`
}

// DecodeDesignTemplates decodes a DesignTemplateResponse payload.
func DecodeDesignTemplates(data []byte) (map[string]core.ShipDesign, error) {
	designs := make(map[string]core.ShipDesign)
	if err := json.Unmarshal(data, &designs); err != nil {
		return nil, err
	}
	return designs, nil
}

// DecodeUsers decodes a Users payload.
func DecodeUsers(data []byte) ([]core.User, error) {
	var users []core.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DecodeEffects decodes an Effects payload: a list where each element is
// either a bare string kind or a single-key tagged object. Malformed
// elements are skipped, never fatal.
func DecodeEffects(data []byte) ([]core.Effect, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	effects := make([]core.Effect, 0, len(raw))
	for _, item := range raw {
		tag, payload, err := DecodeFrame(item)
		if err != nil {
			continue
		}
		effects = append(effects, core.Effect{Kind: tag, Payload: payload})
	}
	return effects, nil
}
