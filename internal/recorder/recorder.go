// Package recorder persists a session's round-by-round history: snapshots,
// effects and committed plans. Recording is best-effort and must never
// stall the network path, so writes are applied by a single worker
// goroutine fed through a buffered channel.
package recorder

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dcsturman/callisto-sub000/internal/channel"
	"github.com/dcsturman/callisto-sub000/pkg/core"
)

const jobChSize = 4096

// Session identifies one recorded sitting in a scenario.
type Session struct {
	ID        string    `json:"id"`
	Scenario  string    `json:"scenario"`
	Email     string    `json:"email"`
	StartedAt time.Time `json:"started_at"`
}

// RoundRecord is one settled round's authoritative state.
type RoundRecord struct {
	Round      uint64         `json:"round"`
	RecordedAt time.Time      `json:"recorded_at"`
	Ships      []core.Ship    `json:"ships"`
	Planets    []core.Planet  `json:"planets"`
	Missiles   []core.Missile `json:"missiles"`
}

// Backend is the interface all recorder storage implementations satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *Session) error
	EndSession() error

	// Round recording
	RecordRound(r *RoundRecord) error
	RecordEffects(round uint64, effects []core.Effect) error
	RecordPlanCommit(actor string, plan core.FlightPlan) error
}

// Recorder wraps a Backend with an async write path. All Backend errors
// are logged, never returned to callers: a broken recorder must not break
// the game session.
type Recorder struct {
	backend Backend
	jobs    channel.Channel[func()]
	wg      sync.WaitGroup
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New starts a Recorder over the given backend.
func New(backend Backend, logger *slog.Logger) (*Recorder, error) {
	if err := backend.Init(); err != nil {
		return nil, err
	}

	r := &Recorder{
		backend: backend,
		jobs:    channel.New[func()](jobChSize),
		logger:  logger,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for job := range r.jobs.Receive() {
			job()
		}
	}()

	return r, nil
}

// enqueue hands a write to the worker. The lock is held across the send
// so Close cannot close the job channel between the closed check and the
// send itself.
func (r *Recorder) enqueue(what string, fn func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.jobs.Send(func() {
		if err := fn(); err != nil {
			r.logger.Warn("Recorder write failed", "op", what, "error", err)
		}
	})
}

// StartSession records the start of a session.
func (r *Recorder) StartSession(s Session) {
	r.enqueue("start_session", func() error { return r.backend.StartSession(&s) })
}

// EndSession finalizes the current session.
func (r *Recorder) EndSession() {
	r.enqueue("end_session", func() error { return r.backend.EndSession() })
}

// RecordRound records a settled round's snapshot.
func (r *Recorder) RecordRound(rec RoundRecord) {
	r.enqueue("record_round", func() error { return r.backend.RecordRound(&rec) })
}

// RecordEffects records a round's outcome effects.
func (r *Recorder) RecordEffects(round uint64, effects []core.Effect) {
	cp := append([]core.Effect(nil), effects...)
	r.enqueue("record_effects", func() error { return r.backend.RecordEffects(round, cp) })
}

// RecordPlanCommit records a committed flight plan.
func (r *Recorder) RecordPlanCommit(actor string, plan core.FlightPlan) {
	cp := append(core.FlightPlan(nil), plan...)
	r.enqueue("record_plan", func() error { return r.backend.RecordPlanCommit(actor, cp) })
}

// Close drains pending writes and closes the backend.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.jobs.Close()
	r.wg.Wait()
	return r.backend.Close()
}
