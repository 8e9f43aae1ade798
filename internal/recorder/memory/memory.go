// Package memory buffers a session's history in memory and exports it as
// a JSON file (optionally gzipped) when the session ends.
package memory

import (
	"sync"
	"time"

	"github.com/dcsturman/callisto-sub000/internal/config"
	"github.com/dcsturman/callisto-sub000/internal/recorder"
	"github.com/dcsturman/callisto-sub000/pkg/core"
)

// EffectEntry is one recorded effect with the round it resolved in.
type EffectEntry struct {
	Round  uint64      `json:"round"`
	Effect core.Effect `json:"effect"`
}

// PlanEntry is one committed flight plan.
type PlanEntry struct {
	Actor       string          `json:"actor"`
	Plan        core.FlightPlan `json:"plan"`
	CommittedAt time.Time       `json:"committed_at"`
}

// Backend accumulates session history in memory.
type Backend struct {
	cfg config.MemoryConfig

	mu      sync.RWMutex
	session *recorder.Session
	rounds  []recorder.RoundRecord
	effects []EffectEntry
	plans   []PlanEntry

	lastExportPath string
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session, dropping any prior state.
func (b *Backend) StartSession(s *recorder.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.rounds = nil
	b.effects = nil
	b.plans = nil
	return nil
}

// EndSession finalizes and exports the session history.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	return b.exportJSON()
}

// RecordRound appends a settled round's snapshot.
func (b *Backend) RecordRound(r *recorder.RoundRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rounds = append(b.rounds, *r)
	return nil
}

// RecordEffects appends a round's outcome effects.
func (b *Backend) RecordEffects(round uint64, effects []core.Effect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range effects {
		b.effects = append(b.effects, EffectEntry{Round: round, Effect: e})
	}
	return nil
}

// RecordPlanCommit appends a committed plan.
func (b *Backend) RecordPlanCommit(actor string, plan core.FlightPlan) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plans = append(b.plans, PlanEntry{Actor: actor, Plan: plan, CommittedAt: time.Now().UTC()})
	return nil
}

// RoundCount returns the number of recorded rounds.
func (b *Backend) RoundCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rounds)
}

// GetExportedFilePath returns the path of the last export, if any.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
