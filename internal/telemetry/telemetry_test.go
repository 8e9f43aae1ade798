package telemetry

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundPointLineProtocol(t *testing.T) {
	p := RoundPoint("Trafalgar", 7, 3, 2, 5, 1500*time.Millisecond)
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)

	assert.Contains(t, line, "round_settled")
	assert.Contains(t, line, "scenario=Trafalgar")
	assert.Contains(t, line, "round=7i")
	assert.Contains(t, line, "settle_ms=1500")
}

func TestPathRequestPoint(t *testing.T) {
	p := PathRequestPoint("Trafalgar", "Beowulf", 12, 80*time.Millisecond)
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)

	assert.Contains(t, line, "path_request")
	assert.Contains(t, line, "actor=Beowulf")
	assert.Contains(t, line, "waypoints=12i")
}

func TestWritePointFallsBackToBackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry_backup.gz")

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)

	m := NewManager(zerolog.Nop(), path)
	m.BackupWriter = gzip.NewWriter(file)

	p := SessionPoint("Trafalgar", "captain@example.com", 9, time.Hour)
	require.NoError(t, m.WritePoint(context.Background(), BucketSessions, p))
	require.NoError(t, m.BackupWriter.Close())
	require.NoError(t, file.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	buf := make([]byte, 4096)
	n, _ := gz.Read(buf)
	assert.Contains(t, string(buf[:n]), "session_ended")
}

func TestWritePointNoBackupWriterErrors(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	err := m.WritePoint(context.Background(), BucketRounds, RoundPoint("S", 1, 0, 0, 0, 0))
	assert.Error(t, err)
}
