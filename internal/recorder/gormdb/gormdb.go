// Package gormdb persists session history to a relational database via
// GORM. Postgres is preferred; the database manager falls back to an
// in-memory SQLite store that is periodically dumped to disk.
package gormdb

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dcsturman/callisto-sub000/internal/config"
	"github.com/dcsturman/callisto-sub000/internal/database"
	"github.com/dcsturman/callisto-sub000/internal/recorder"
	"github.com/dcsturman/callisto-sub000/pkg/core"
)

// SessionRow is one recorded sitting.
type SessionRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	Scenario  string `gorm:"index"`
	Email     string
	StartedAt time.Time
	EndedAt   *time.Time
}

// RoundRow is one settled round's snapshot, entities stored as JSON.
type RoundRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	SessionID  string `gorm:"index;size:36"`
	Round      uint64
	RecordedAt time.Time
	Ships      datatypes.JSON
	Planets    datatypes.JSON
	Missiles   datatypes.JSON
}

// EffectRow is one round-outcome effect.
type EffectRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index;size:36"`
	Round     uint64
	Kind      string
	Payload   datatypes.JSON
}

// PlanCommitRow is one committed flight plan.
type PlanCommitRow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SessionID   string `gorm:"index;size:36"`
	Actor       string
	Plan        datatypes.JSON
	CommittedAt time.Time
}

// Models lists every table this backend migrates.
var Models = []any{
	&SessionRow{},
	&RoundRow{},
	&EffectRow{},
	&PlanCommitRow{},
}

// Backend implements recorder.Backend over a database.Manager.
type Backend struct {
	mgr *database.Manager
	cfg config.SQLiteConfig

	mu        sync.Mutex
	sessionID string

	dumpStop chan struct{}
	dumpDone chan struct{}
}

// New creates a gorm-backed recorder over an already-constructed manager.
func New(mgr *database.Manager, cfg config.SQLiteConfig) *Backend {
	return &Backend{mgr: mgr, cfg: cfg}
}

// Init connects, migrates the schema, and starts the periodic disk dump
// when running on the in-memory SQLite fallback.
func (b *Backend) Init() error {
	if err := b.mgr.Connect(); err != nil {
		return err
	}
	if err := b.mgr.Setup(Models...); err != nil {
		return err
	}

	if b.mgr.ShouldSaveLocal && b.cfg.DumpInterval > 0 {
		b.mgr.SqliteFilePath = b.cfg.Path
		b.dumpStop = make(chan struct{})
		b.dumpDone = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

func (b *Backend) dumpLoop() {
	defer close(b.dumpDone)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.dumpStop:
			return
		case <-ticker.C:
			if err := b.mgr.DumpMemoryToDisk(); err != nil {
				b.mgr.Logger.Warn().Err(err).Msg("Periodic DB dump failed")
			}
		}
	}
}

// Close stops the dump loop, flushes once more, and closes the pool.
func (b *Backend) Close() error {
	if b.dumpStop != nil {
		close(b.dumpStop)
		<-b.dumpDone
		if err := b.mgr.DumpMemoryToDisk(); err != nil {
			b.mgr.Logger.Warn().Err(err).Msg("Final DB dump failed")
		}
	}
	if b.mgr.SqlDB != nil {
		return b.mgr.SqlDB.Close()
	}
	return nil
}

// StartSession inserts a session row. A missing ID gets a fresh UUID.
func (b *Backend) StartSession(s *recorder.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()

	row := SessionRow{
		ID:        s.ID,
		Scenario:  s.Scenario,
		Email:     s.Email,
		StartedAt: s.StartedAt,
	}
	return b.mgr.DB.Create(&row).Error
}

// EndSession stamps the session row's end time.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	id := b.sessionID
	b.sessionID = ""
	b.mu.Unlock()

	if id == "" {
		return nil
	}
	now := time.Now().UTC()
	return b.mgr.DB.Model(&SessionRow{}).Where("id = ?", id).
		Update("ended_at", &now).Error
}

func (b *Backend) currentSession() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessionID == "" {
		return "", fmt.Errorf("no session in progress")
	}
	return b.sessionID, nil
}

func toJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// RecordRound inserts one round snapshot.
func (b *Backend) RecordRound(r *recorder.RoundRecord) error {
	id, err := b.currentSession()
	if err != nil {
		return err
	}

	ships, err := toJSON(r.Ships)
	if err != nil {
		return fmt.Errorf("marshal ships: %w", err)
	}
	planets, err := toJSON(r.Planets)
	if err != nil {
		return fmt.Errorf("marshal planets: %w", err)
	}
	missiles, err := toJSON(r.Missiles)
	if err != nil {
		return fmt.Errorf("marshal missiles: %w", err)
	}

	row := RoundRow{
		SessionID:  id,
		Round:      r.Round,
		RecordedAt: r.RecordedAt,
		Ships:      ships,
		Planets:    planets,
		Missiles:   missiles,
	}
	return b.mgr.DB.Create(&row).Error
}

// RecordEffects inserts one row per effect.
func (b *Backend) RecordEffects(round uint64, effects []core.Effect) error {
	if len(effects) == 0 {
		return nil
	}
	id, err := b.currentSession()
	if err != nil {
		return err
	}

	rows := make([]EffectRow, 0, len(effects))
	for _, e := range effects {
		rows = append(rows, EffectRow{
			SessionID: id,
			Round:     round,
			Kind:      e.Kind,
			Payload:   datatypes.JSON(e.Payload),
		})
	}
	return b.mgr.DB.Create(&rows).Error
}

// RecordPlanCommit inserts one committed-plan row.
func (b *Backend) RecordPlanCommit(actor string, plan core.FlightPlan) error {
	id, err := b.currentSession()
	if err != nil {
		return err
	}

	planJSON, err := toJSON(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	row := PlanCommitRow{
		SessionID:   id,
		Actor:       actor,
		Plan:        planJSON,
		CommittedAt: time.Now().UTC(),
	}
	return b.mgr.DB.Create(&row).Error
}

// DB exposes the underlying handle for tests.
func (b *Backend) DB() *gorm.DB {
	return b.mgr.DB
}
