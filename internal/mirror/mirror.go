// Package mirror keeps the client's read-only copy of the server's world
// state. The server is the single source of truth; every snapshot replaces
// the previous one wholesale, never patches it.
package mirror

import (
	"sort"
	"sync"

	"github.com/dcsturman/callisto-sub000/pkg/core"
)

// Mirror caches the last authoritative snapshot plus the slower-moving
// design templates and user roster. Reads are served from memory so view
// code never waits on the network.
type Mirror struct {
	m sync.RWMutex

	ships    map[string]core.Ship
	planets  map[string]core.Planet
	missiles map[string]core.Missile

	designs   map[string]core.ShipDesign
	users     []core.User
	scenarios []string
	templates []string

	snapshots uint64
}

// New creates an empty mirror.
func New() *Mirror {
	return &Mirror{
		ships:    make(map[string]core.Ship),
		planets:  make(map[string]core.Planet),
		missiles: make(map[string]core.Missile),
		designs:  make(map[string]core.ShipDesign),
	}
}

// ApplySnapshot replaces all entity state with the given snapshot. Entities
// absent from the snapshot are gone; stale local copies never survive.
func (m *Mirror) ApplySnapshot(ships []core.Ship, planets []core.Planet, missiles []core.Missile) {
	newShips := make(map[string]core.Ship, len(ships))
	for _, s := range ships {
		newShips[s.Name] = s
	}
	newPlanets := make(map[string]core.Planet, len(planets))
	for _, p := range planets {
		newPlanets[p.Name] = p
	}
	newMissiles := make(map[string]core.Missile, len(missiles))
	for _, mi := range missiles {
		newMissiles[mi.Name] = mi
	}

	m.m.Lock()
	defer m.m.Unlock()
	m.ships = newShips
	m.planets = newPlanets
	m.missiles = newMissiles
	m.snapshots++
}

// Reset drops all entity state, keeping designs and users.
func (m *Mirror) Reset() {
	m.m.Lock()
	defer m.m.Unlock()
	m.ships = make(map[string]core.Ship)
	m.planets = make(map[string]core.Planet)
	m.missiles = make(map[string]core.Missile)
}

// SnapshotCount returns how many snapshots have been applied.
func (m *Mirror) SnapshotCount() uint64 {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.snapshots
}

// Ship returns the named ship from the latest snapshot.
func (m *Mirror) Ship(name string) (core.Ship, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	s, ok := m.ships[name]
	return s, ok
}

// Planet returns the named planet from the latest snapshot.
func (m *Mirror) Planet(name string) (core.Planet, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	p, ok := m.planets[name]
	return p, ok
}

// Missile returns the named missile from the latest snapshot.
func (m *Mirror) Missile(name string) (core.Missile, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	mi, ok := m.missiles[name]
	return mi, ok
}

// Ships returns all ships sorted by name.
func (m *Mirror) Ships() []core.Ship {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]core.Ship, 0, len(m.ships))
	for _, s := range m.ships {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Planets returns all planets sorted by name.
func (m *Mirror) Planets() []core.Planet {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]core.Planet, 0, len(m.planets))
	for _, p := range m.planets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Missiles returns all missiles sorted by name.
func (m *Mirror) Missiles() []core.Missile {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]core.Missile, 0, len(m.missiles))
	for _, mi := range m.missiles {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetDesigns replaces the design template table.
func (m *Mirror) SetDesigns(designs map[string]core.ShipDesign) {
	m.m.Lock()
	defer m.m.Unlock()
	m.designs = designs
}

// Design returns the named design template.
func (m *Mirror) Design(name string) (core.ShipDesign, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	d, ok := m.designs[name]
	return d, ok
}

// Designs returns all design templates sorted by name.
func (m *Mirror) Designs() []core.ShipDesign {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]core.ShipDesign, 0, len(m.designs))
	for _, d := range m.designs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetUsers replaces the user roster.
func (m *Mirror) SetUsers(users []core.User) {
	m.m.Lock()
	defer m.m.Unlock()
	m.users = append([]core.User(nil), users...)
}

// Users returns the current user roster.
func (m *Mirror) Users() []core.User {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]core.User(nil), m.users...)
}

// SetScenarios replaces the lobby's scenario and template rosters.
func (m *Mirror) SetScenarios(scenarios, templates []string) {
	m.m.Lock()
	defer m.m.Unlock()
	m.scenarios = append([]string(nil), scenarios...)
	m.templates = append([]string(nil), templates...)
}

// Scenarios returns the running scenarios known to the lobby.
func (m *Mirror) Scenarios() []string {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]string(nil), m.scenarios...)
}

// Templates returns the scenario templates available for creation.
func (m *Mirror) Templates() []string {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]string(nil), m.templates...)
}
