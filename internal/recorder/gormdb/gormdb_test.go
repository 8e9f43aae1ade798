package gormdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcsturman/callisto-sub000/internal/config"
	"github.com/dcsturman/callisto-sub000/internal/database"
	"github.com/dcsturman/callisto-sub000/internal/recorder"
	"github.com/dcsturman/callisto-sub000/pkg/core"
)

// Compile-time interface check.
var _ recorder.Backend = (*Backend)(nil)

// newSqliteBackend builds a backend over a fresh per-test SQLite file,
// bypassing the Postgres attempt. The shared in-memory DSN would leak
// state between tests.
func newSqliteBackend(t *testing.T) *Backend {
	t.Helper()

	mgr := database.NewManager(zerolog.Nop())
	db, err := mgr.GetSqliteDB(filepath.Join(t.TempDir(), "recorder.db"))
	require.NoError(t, err)
	mgr.DB = db
	mgr.ShouldSaveLocal = true
	mgr.IsValid = true
	require.NoError(t, mgr.Setup(Models...))

	// No dump loop in tests.
	return New(mgr, config.SQLiteConfig{})
}

func TestSessionLifecycle(t *testing.T) {
	b := newSqliteBackend(t)

	s := &recorder.Session{Scenario: "Trafalgar", Email: "captain@example.com", StartedAt: time.Now().UTC()}
	require.NoError(t, b.StartSession(s))
	assert.NotEmpty(t, s.ID, "missing ID gets a UUID")

	var row SessionRow
	require.NoError(t, b.DB().First(&row, "id = ?", s.ID).Error)
	assert.Equal(t, "Trafalgar", row.Scenario)
	assert.Nil(t, row.EndedAt)

	require.NoError(t, b.EndSession())
	require.NoError(t, b.DB().First(&row, "id = ?", s.ID).Error)
	assert.NotNil(t, row.EndedAt)
}

func TestRecordRoundStoresJSON(t *testing.T) {
	b := newSqliteBackend(t)
	require.NoError(t, b.StartSession(&recorder.Session{Scenario: "S", StartedAt: time.Now()}))

	rec := &recorder.RoundRecord{
		Round:      3,
		RecordedAt: time.Now().UTC(),
		Ships:      []core.Ship{{Name: "Beowulf", CurrentHull: 12}},
		Planets:    []core.Planet{{Name: "Earth"}},
	}
	require.NoError(t, b.RecordRound(rec))

	var row RoundRow
	require.NoError(t, b.DB().First(&row, "round = ?", 3).Error)
	assert.Contains(t, string(row.Ships), `"Beowulf"`)
	assert.Contains(t, string(row.Planets), `"Earth"`)
}

func TestRecordEffects(t *testing.T) {
	b := newSqliteBackend(t)
	require.NoError(t, b.StartSession(&recorder.Session{Scenario: "S", StartedAt: time.Now()}))

	effects := []core.Effect{
		{Kind: core.EffectShipImpact, Payload: []byte(`{"position":[1,2,3]}`)},
		{Kind: core.EffectMessage, Payload: []byte(`"ouch"`)},
	}
	require.NoError(t, b.RecordEffects(2, effects))

	var rows []EffectRow
	require.NoError(t, b.DB().Find(&rows, "round = ?", 2).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, core.EffectShipImpact, rows[0].Kind)
}

func TestRecordEffectsEmptyIsNoop(t *testing.T) {
	b := newSqliteBackend(t)
	require.NoError(t, b.StartSession(&recorder.Session{Scenario: "S", StartedAt: time.Now()}))
	require.NoError(t, b.RecordEffects(1, nil))

	var count int64
	require.NoError(t, b.DB().Model(&EffectRow{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordPlanCommit(t *testing.T) {
	b := newSqliteBackend(t)
	require.NoError(t, b.StartSession(&recorder.Session{Scenario: "S", StartedAt: time.Now()}))

	plan := core.FlightPlan{{Accel: core.Vec3{1, 0, 0}, Duration: 500}}
	require.NoError(t, b.RecordPlanCommit("Beowulf", plan))

	var row PlanCommitRow
	require.NoError(t, b.DB().First(&row, "actor = ?", "Beowulf").Error)
	assert.Contains(t, string(row.Plan), "500")
}

func TestRecordWithoutSessionFails(t *testing.T) {
	b := newSqliteBackend(t)
	err := b.RecordRound(&recorder.RoundRecord{Round: 1})
	assert.Error(t, err)
}
