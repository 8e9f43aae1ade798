package main

import (
	"time"

	"github.com/dcsturman/callisto-sub000/internal/api"
	"github.com/dcsturman/callisto-sub000/internal/config"
	"github.com/dcsturman/callisto-sub000/internal/database"
	"github.com/dcsturman/callisto-sub000/internal/recorder"
	"github.com/dcsturman/callisto-sub000/internal/recorder/gormdb"
	"github.com/dcsturman/callisto-sub000/internal/recorder/memory"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// memBackend is kept when the memory backend is selected so the exported
// recording can be uploaded after shutdown.
var memBackend *memory.Backend

func createRecorderBackend(storageCfg config.StorageConfig, zlog zerolog.Logger) recorder.Backend {
	switch storageCfg.Type {
	case "postgres", "sqlite":
		// the database manager itself falls back from postgres to sqlite
		mgr := database.NewManager(zlog.With().Str("component", "database").Logger())
		Logger.Info("Database recorder backend initialized", "type", storageCfg.Type)
		return gormdb.New(mgr, storageCfg.SQLite)

	case "none":
		Logger.Info("Flight recording disabled")
		return nil

	default:
		Logger.Info("Memory recorder backend initialized")
		memBackend = memory.New(storageCfg.Memory)
		return memBackend
	}
}

func uploadRecording(scenario string, rounds uint64) {
	if memBackend == nil || !viper.GetBool("api.uploadRecordings") {
		return
	}
	path := memBackend.GetExportedFilePath()
	if path == "" {
		return
	}

	meta := api.UploadMetadata{
		Scenario:        scenario,
		Rounds:          rounds,
		DurationSeconds: time.Since(SessionStartTime).Seconds(),
	}
	if err := apiClient.Upload(path, meta); err != nil {
		Logger.Warn("Failed to upload recording", "path", path, "error", err)
		return
	}
	Logger.Info("Recording uploaded", "path", path)
}
