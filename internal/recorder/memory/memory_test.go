package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcsturman/callisto-sub000/internal/config"
	"github.com/dcsturman/callisto-sub000/internal/recorder"
	"github.com/dcsturman/callisto-sub000/pkg/core"
)

// Compile-time interface check.
var _ recorder.Backend = (*Backend)(nil)

func testSession() *recorder.Session {
	return &recorder.Session{
		ID:        "test-session",
		Scenario:  "Battle of Trafalgar",
		Email:     "captain@example.com",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordAndExport(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: false})
	require.NoError(t, b.Init())

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordRound(&recorder.RoundRecord{
		Round: 1,
		Ships: []core.Ship{{Name: "Beowulf"}},
	}))
	require.NoError(t, b.RecordEffects(1, []core.Effect{{Kind: core.EffectShipImpact}}))
	require.NoError(t, b.RecordPlanCommit("Beowulf", core.FlightPlan{{Accel: core.Vec3{1, 0, 0}, Duration: 100}}))

	assert.Equal(t, 1, b.RoundCount())
	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	require.NotEmpty(t, path)
	assert.Contains(t, path, "Battle_of_Trafalgar_20260301_120000.json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export SessionExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "test-session", export.Session.ID)
	require.Len(t, export.Rounds, 1)
	assert.Equal(t, "Beowulf", export.Rounds[0].Ships[0].Name)
	require.Len(t, export.Effects, 1)
	assert.Equal(t, core.EffectShipImpact, export.Effects[0].Effect.Kind)
	require.Len(t, export.Plans, 1)
	assert.Equal(t, "Beowulf", export.Plans[0].Actor)
}

func TestExportCompressed(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	assert.Contains(t, path, ".json.gz")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export SessionExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "Battle of Trafalgar", export.Session.Scenario)
	assert.NotNil(t, export.Rounds, "empty collections export as [], not null")
}

func TestStartSessionResetsState(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordRound(&recorder.RoundRecord{Round: 1}))

	require.NoError(t, b.StartSession(testSession()))
	assert.Zero(t, b.RoundCount())
}

func TestEndSessionWithoutStart(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.EndSession())
	assert.Empty(t, b.GetExportedFilePath())
}
