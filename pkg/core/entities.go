// pkg/core/entities.go
package core

// Crew holds per-station skill assignments for a ship.
type Crew struct {
	Pilot               uint8   `json:"pilot"`
	EngineeringJump     uint8   `json:"engineering_jump"`
	EngineeringPower    uint8   `json:"engineering_power"`
	EngineeringManeuver uint8   `json:"engineering_maneuver"`
	Sensors             uint8   `json:"sensors"`
	Gunnery             []uint8 `json:"gunnery"`
}

// Ship is a player- or NPC-controlled vessel. Name is the identity key
// across the mirror, the action ledger and all selection state; names are
// unique within a scenario at any instant but may be reused between rounds.
type Ship struct {
	Name     string     `json:"name"`
	Position Vec3       `json:"position"`
	Velocity Vec3       `json:"velocity"`
	Plan     FlightPlan `json:"plan"`
	Design   string     `json:"design"`

	CurrentHull     uint `json:"current_hull"`
	CurrentArmor    uint `json:"current_armor"`
	CurrentPower    uint `json:"current_power"`
	CurrentManeuver uint `json:"current_maneuver"`
	CurrentJump     uint `json:"current_jump"`
	CurrentSensors  uint `json:"current_sensors"`

	DodgeThrust   uint     `json:"dodge_thrust"`
	AssistGunners bool     `json:"assist_gunners"`
	CanJump       bool     `json:"can_jump"`
	SensorLocks   []string `json:"sensor_locks"`
	Crew          Crew     `json:"crew"`
}

// Planet is a gravitating body. The four gravity radii are precomputed by
// the server for the 2G, 1G, 0.5G and 0.25G shells.
type Planet struct {
	Name     string  `json:"name"`
	Position Vec3    `json:"position"`
	Velocity Vec3    `json:"velocity"`
	Color    string  `json:"color"`
	Primary  *string `json:"primary,omitempty"`
	Radius   float64 `json:"radius"`
	Mass     float64 `json:"mass"`

	GravityRadius2   float64 `json:"gravity_radius_2"`
	GravityRadius1   float64 `json:"gravity_radius_1"`
	GravityRadius05  float64 `json:"gravity_radius_05"`
	GravityRadius025 float64 `json:"gravity_radius_025"`
}

// Missile is an in-flight munition tracking a target ship by name.
type Missile struct {
	Name         string `json:"name"`
	Position     Vec3   `json:"position"`
	Velocity     Vec3   `json:"velocity"`
	Acceleration Vec3   `json:"acceleration"`
	Target       string `json:"target"`

	// Burns is the remaining fuse countdown in rounds.
	Burns uint `json:"burns"`

	Locked     bool `json:"locked"`
	Jumped     bool `json:"jumped"`
	Destroyed  bool `json:"destroyed"`
	OutOfRange bool `json:"out_of_range"`
}

// Weapon is one mount in a ship design's weapon list. WeaponID values in
// fire actions index into this list, never into any grouped display view.
type Weapon struct {
	Kind  string `json:"kind"`
	Mount string `json:"mount"`
}

// ShipDesign is a design template referenced by Ship.Design.
type ShipDesign struct {
	Name         string   `json:"name"`
	Displacement uint     `json:"displacement"`
	Hull         uint     `json:"hull"`
	Armor        uint     `json:"armor"`
	Maneuver     uint     `json:"maneuver"`
	Jump         uint     `json:"jump"`
	Power        uint     `json:"power"`
	Sensors      uint     `json:"sensors"`
	Computer     uint     `json:"computer"`
	Weapons      []Weapon `json:"weapons"`
}

// User is one entry in the scenario's user roster.
type User struct {
	Email string  `json:"email"`
	Role  string  `json:"role"`
	Ship  *string `json:"ship,omitempty"`
}
