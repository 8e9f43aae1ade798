package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcsturman/callisto-sub000/pkg/core"
)

func TestApplySnapshotReplacesWholesale(t *testing.T) {
	m := New()

	m.ApplySnapshot(
		[]core.Ship{{Name: "Beowulf"}, {Name: "Gazelle"}},
		[]core.Planet{{Name: "Earth"}},
		[]core.Missile{{Name: "Beowulf::Gazelle::0"}},
	)

	// Second snapshot omits Gazelle and the missile; both must vanish.
	m.ApplySnapshot(
		[]core.Ship{{Name: "Beowulf", CurrentHull: 10}},
		[]core.Planet{{Name: "Earth"}, {Name: "Luna"}},
		nil,
	)

	_, ok := m.Ship("Gazelle")
	assert.False(t, ok, "ship absent from snapshot must be gone")
	assert.Empty(t, m.Missiles())

	s, ok := m.Ship("Beowulf")
	require.True(t, ok)
	assert.Equal(t, uint(10), s.CurrentHull)

	assert.Len(t, m.Planets(), 2)
	assert.Equal(t, uint64(2), m.SnapshotCount())
}

func TestAccessorsSortedByName(t *testing.T) {
	m := New()
	m.ApplySnapshot(
		[]core.Ship{{Name: "Zulu"}, {Name: "Alpha"}, {Name: "Mike"}},
		nil, nil,
	)

	ships := m.Ships()
	require.Len(t, ships, 3)
	assert.Equal(t, "Alpha", ships[0].Name)
	assert.Equal(t, "Mike", ships[1].Name)
	assert.Equal(t, "Zulu", ships[2].Name)
}

func TestResetKeepsDesignsAndUsers(t *testing.T) {
	m := New()
	m.ApplySnapshot([]core.Ship{{Name: "Beowulf"}}, nil, nil)
	m.SetDesigns(map[string]core.ShipDesign{"Scout": {Name: "Scout", Hull: 20}})
	m.SetUsers([]core.User{{Email: "captain@example.com", Role: "captain"}})

	m.Reset()

	assert.Empty(t, m.Ships())
	_, ok := m.Design("Scout")
	assert.True(t, ok, "designs survive a reset")
	assert.Len(t, m.Users(), 1, "user roster survives a reset")
}

func TestDesignLookup(t *testing.T) {
	m := New()
	m.SetDesigns(map[string]core.ShipDesign{
		"Scout":  {Name: "Scout"},
		"Cruiser": {Name: "Cruiser"},
	})

	d, ok := m.Design("Cruiser")
	require.True(t, ok)
	assert.Equal(t, "Cruiser", d.Name)

	_, ok = m.Design("Dreadnought")
	assert.False(t, ok)

	designs := m.Designs()
	require.Len(t, designs, 2)
	assert.Equal(t, "Cruiser", designs[0].Name)
}

func TestUsersReturnsCopy(t *testing.T) {
	m := New()
	m.SetUsers([]core.User{{Email: "a@example.com"}})

	users := m.Users()
	users[0].Email = "mutated@example.com"

	assert.Equal(t, "a@example.com", m.Users()[0].Email)
}

func TestEmptyMirrorLookups(t *testing.T) {
	m := New()
	_, ok := m.Ship("nothing")
	assert.False(t, ok)
	_, ok = m.Planet("nothing")
	assert.False(t, ok)
	_, ok = m.Missile("nothing")
	assert.False(t, ok)
	assert.Empty(t, m.Ships())
	assert.Zero(t, m.SnapshotCount())
}

func TestScenarioRosterCopied(t *testing.T) {
	m := New()

	scenarios := []string{"Trafalgar"}
	m.SetScenarios(scenarios, []string{"2-ship-duel", "convoy-raid"})
	scenarios[0] = "mutated"

	assert.Equal(t, []string{"Trafalgar"}, m.Scenarios())
	assert.Equal(t, []string{"2-ship-duel", "convoy-raid"}, m.Templates())

	got := m.Templates()
	got[0] = "mutated"
	assert.Equal(t, []string{"2-ship-duel", "convoy-raid"}, m.Templates())
}
