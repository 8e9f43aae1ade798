// Package ledger accumulates per-actor round intents before the server has
// accepted them. The ledger is authoritative only until the next snapshot:
// whatever action list the server echoes back replaces it entirely.
package ledger

import (
	"log/slog"
	"sync"

	"github.com/dcsturman/callisto-sub000/pkg/core"
	"github.com/dcsturman/callisto-sub000/pkg/wire"
)

// Sender transmits an encoded frame. Satisfied by conn.Manager.
type Sender interface {
	Send(data []byte)
}

// EntityIndex answers existence queries against the world mirror.
type EntityIndex interface {
	Ship(name string) (core.Ship, bool)
}

// Ledger holds queued intents and pushes the full per-actor state to the
// server after every mutation. Full-state sends, not diffs: a lost frame
// costs one round's intent at worst, never corrupts the next send.
type Ledger struct {
	mu      sync.Mutex
	actions core.ActionMap

	sender Sender
	index  EntityIndex
	logger *slog.Logger
}

// New creates an empty ledger.
func New(sender Sender, index EntityIndex, logger *slog.Logger) *Ledger {
	return &Ledger{
		actions: make(core.ActionMap),
		sender:  sender,
		index:   index,
		logger:  logger,
	}
}

func (l *Ledger) actorEntry(actor string) *core.ShipActions {
	acts, ok := l.actions[actor]
	if !ok {
		acts = &core.ShipActions{}
		l.actions[actor] = acts
	}
	return acts
}

// sendActor pushes the actor's full current intent list to the server.
// Called with the lock held.
func (l *Ledger) sendActor(actor string) {
	entry, err := wire.EncodeActorActions(actor, l.actions[actor])
	if err != nil {
		l.logger.Error("Failed to encode actions", "actor", actor, "error", err)
		return
	}
	data, err := wire.EncodeTagged(wire.TagModifyActions, []wire.ActorActions{entry})
	if err != nil {
		l.logger.Error("Failed to encode ModifyActions frame", "actor", actor, "error", err)
		return
	}
	l.sender.Send(data)
}

// QueueFire appends a fire action for the actor's weapon slot against the
// target. Both actor and target must currently exist in the mirror; the
// server remains the final arbiter of legality (ammo, arc, range).
func (l *Ledger) QueueFire(actor string, weaponID int, target, calledShotSystem string) {
	if _, ok := l.index.Ship(actor); !ok {
		l.logger.Warn("QueueFire for unknown actor", "actor", actor)
		return
	}
	if _, ok := l.index.Ship(target); !ok {
		l.logger.Warn("QueueFire at unknown target", "actor", actor, "target", target)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	acts := l.actorEntry(actor)
	acts.Fire = append(acts.Fire, core.FireAction{
		Target:           target,
		WeaponID:         weaponID,
		CalledShotSystem: calledShotSystem,
	})
	l.sendActor(actor)
}

// CancelFire appends an unfire action. It never removes the original fire
// entry: cancellation is a protocol event, and the server owns the final
// queued-fire list.
func (l *Ledger) CancelFire(actor string, weaponID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acts := l.actorEntry(actor)
	acts.Unfire = append(acts.Unfire, core.UnfireAction{WeaponID: weaponID})
	l.sendActor(actor)
}

// SetSensorAction replaces the actor's sensor entry. At most one sensor
// action per actor per round.
func (l *Ledger) SetSensorAction(actor string, state core.SensorState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acts := l.actorEntry(actor)
	acts.Sensor = state
	l.sendActor(actor)
}

// QueuePointDefense reserves a weapon slot for automated point defense.
func (l *Ledger) QueuePointDefense(actor string, weaponID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acts := l.actorEntry(actor)
	acts.PointDefense = append(acts.PointDefense, core.PointDefenseAction{WeaponID: weaponID})
	l.sendActor(actor)
}

// RequestJump sets the actor's jump flag. Idempotent: a repeated call
// produces the identical wire payload.
func (l *Ledger) RequestJump(actor string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acts := l.actorEntry(actor)
	acts.Jump = true
	l.sendActor(actor)
}

// ActionsFor returns a copy of the actor's queued intents.
func (l *Ledger) ActionsFor(actor string) *core.ShipActions {
	l.mu.Lock()
	defer l.mu.Unlock()
	acts, ok := l.actions[actor]
	if !ok {
		return &core.ShipActions{}
	}
	return acts.Clone()
}

// Actions returns a copy of the whole ledger.
func (l *Ledger) Actions() core.ActionMap {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.actions.Clone()
}

// Replace overwrites the ledger with the server's echoed action list.
// Local not-yet-acknowledged intents do not survive; players reissue
// actions each round.
func (l *Ledger) Replace(actions core.ActionMap) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if actions == nil {
		actions = make(core.ActionMap)
	}
	l.actions = actions
}

// ReplaceFromWire decodes a ModifyActions-shaped echo and replaces the
// ledger with it. A malformed echo leaves the ledger untouched.
func (l *Ledger) ReplaceFromWire(data []byte) error {
	decoded, err := wire.DecodeActions(data)
	if err != nil {
		l.logger.Warn("Ignoring malformed action echo", "error", err)
		return err
	}
	l.Replace(decoded)
	return nil
}

// Clear drops all queued intents without notifying the server.
func (l *Ledger) Clear() {
	l.Replace(nil)
}
