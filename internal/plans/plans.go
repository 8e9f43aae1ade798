// Package plans handles flight path negotiation: asking the server to
// solve a path, holding the resulting proposal, and committing a plan.
// Requests carry no wire-level IDs, so the negotiator tracks a local
// generation counter and drops any response that was superseded by a newer
// request before it arrived.
package plans

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dcsturman/callisto-sub000/pkg/core"
	"github.com/dcsturman/callisto-sub000/pkg/wire"
)

// Sender transmits an encoded frame. Satisfied by conn.Manager.
type Sender interface {
	Send(data []byte)
}

// Proposal is a solved flight path held for display until committed or
// cleared. Accelerations are in G.
type Proposal struct {
	Actor       string
	Path        []core.Vec3
	EndVelocity core.Vec3
	Plan        core.FlightPlan
}

// Request describes a path computation. Positions and velocities are in
// core units (meters, m/s); TargetAcceleration is in G and converted at
// the wire boundary.
type Request struct {
	EndPos             core.Vec3
	EndVel             core.Vec3
	TargetVelocity     *core.Vec3
	TargetAcceleration *core.Vec3
	StandoffDistance   *float64
}

// Negotiator owns the current proposal and the request bookkeeping.
type Negotiator struct {
	mu       sync.Mutex
	proposal *Proposal

	// generation of the most recent ComputePath send, the actor it was
	// issued for, and when it left
	gen          uint64
	answeredGen  uint64
	pendingActor string
	sentAt       time.Time

	sender   Sender
	logger   *slog.Logger
	onCommit func(actor string, plan core.FlightPlan)
	onPath   func(actor string, waypoints int, latency time.Duration)
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithCommitListener registers a callback invoked after each committed
// plan, with the plan in G units.
func WithCommitListener(fn func(actor string, plan core.FlightPlan)) Option {
	return func(n *Negotiator) {
		n.onCommit = fn
	}
}

// WithPathListener registers a callback invoked when a path response is
// accepted, with the request round-trip latency.
func WithPathListener(fn func(actor string, waypoints int, latency time.Duration)) Option {
	return func(n *Negotiator) {
		n.onPath = fn
	}
}

// New creates a Negotiator.
func New(sender Sender, logger *slog.Logger, opts ...Option) *Negotiator {
	n := &Negotiator{sender: sender, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Propose asks the server to solve a path for the actor. An empty actor
// name means "clear the current proposal": the held proposal is dropped
// synchronously and no frame is sent, since the server has nothing to
// compute and will not reply.
func (n *Negotiator) Propose(actor string, req Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if actor == "" {
		n.proposal = nil
		// Outstanding responses for earlier requests are now stale.
		n.answeredGen = n.gen
		return
	}

	payload := wire.ComputePathPayload{
		EntityName:       actor,
		EndPos:           req.EndPos,
		EndVel:           req.EndVel,
		TargetVelocity:   req.TargetVelocity,
		StandoffDistance: req.StandoffDistance,
	}
	if req.TargetAcceleration != nil {
		a := wire.AccelToWire(*req.TargetAcceleration)
		payload.TargetAcceleration = &a
	}

	data, err := wire.EncodeTagged(wire.TagComputePath, payload)
	if err != nil {
		n.logger.Error("Failed to encode ComputePath", "actor", actor, "error", err)
		return
	}

	n.gen++
	n.pendingActor = actor
	n.sentAt = time.Now()
	n.sender.Send(data)
}

// HandleFlightPath consumes a FlightPath response. Responses correlate to
// requests only by type: the latest response answers the latest request,
// and anything that arrives when a newer request is already in flight is
// stale and ignored.
func (n *Negotiator) HandleFlightPath(payload json.RawMessage) error {
	var fp wire.FlightPathPayload
	if err := json.Unmarshal(payload, &fp); err != nil {
		n.logger.Warn("Malformed FlightPath response", "error", err)
		return err
	}

	n.mu.Lock()

	if n.answeredGen >= n.gen {
		// No request is outstanding; a proposal was cleared or this is a
		// duplicate.
		n.mu.Unlock()
		n.logger.Debug("Dropping unsolicited FlightPath response")
		return nil
	}

	outstanding := n.gen - n.answeredGen
	n.answeredGen++
	if outstanding > 1 {
		// This response belongs to a superseded request.
		n.mu.Unlock()
		n.logger.Debug("Dropping superseded FlightPath response", "outstanding", outstanding)
		return nil
	}

	n.proposal = &Proposal{
		Actor:       n.pendingActor,
		Path:        fp.Path,
		EndVelocity: fp.EndVelocity,
		Plan:        wire.PlanFromWire(fp.Plan),
	}
	actor := n.pendingActor
	latency := time.Since(n.sentAt)
	n.mu.Unlock()

	if n.onPath != nil {
		n.onPath(actor, len(fp.Path), latency)
	}
	return nil
}

// Proposal returns the held proposal, or nil when none is active.
func (n *Negotiator) Proposal() *Proposal {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.proposal == nil {
		return nil
	}
	cp := *n.proposal
	return &cp
}

// Commit sends the plan as the actor's flight plan, converting G to m/s^2
// at the boundary. The mirror does not change until the next snapshot, so
// an entity refresh follows the commit; the server processes frames in
// order and the resulting snapshot carries the committed plan.
func (n *Negotiator) Commit(actor string, plan core.FlightPlan) {
	payload := wire.SetPlanPayload{
		Name: actor,
		Plan: wire.PlanToWire(plan),
	}
	data, err := wire.EncodeTagged(wire.TagSetPlan, payload)
	if err != nil {
		n.logger.Error("Failed to encode SetPlan", "actor", actor, "error", err)
		return
	}
	n.sender.Send(data)

	if refresh, err := wire.EncodeBare(wire.TagEntitiesRequest); err == nil {
		n.sender.Send(refresh)
	}

	if n.onCommit != nil {
		n.onCommit(actor, plan)
	}
}

// CommitProposal commits the held proposal's plan and clears it. No-op
// when no proposal is held.
func (n *Negotiator) CommitProposal() {
	n.mu.Lock()
	p := n.proposal
	n.proposal = nil
	n.mu.Unlock()

	if p == nil {
		return
	}
	n.Commit(p.Actor, p.Plan)
}
