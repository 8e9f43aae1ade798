// Package round drives the turn cycle. A round advance is an explicit
// player request; the round settles again only once both the outcome
// effects and the fresh entity snapshot have arrived, so readers of
// post-round state never see effects paired with stale entities.
package round

import (
	"log/slog"
	"sync"

	"github.com/dcsturman/callisto-sub000/internal/queue"
	"github.com/dcsturman/callisto-sub000/pkg/core"
	"github.com/dcsturman/callisto-sub000/pkg/wire"
)

// Sender transmits an encoded frame. Satisfied by conn.Manager.
type Sender interface {
	Send(data []byte)
}

// State is the round lifecycle state.
type State int32

const (
	StateSettled State = iota
	StateAdvancing
)

func (s State) String() string {
	switch s {
	case StateSettled:
		return "settled"
	case StateAdvancing:
		return "advancing"
	default:
		return "unknown"
	}
}

// Controller tracks the advance cycle and buffers round outcomes for
// display.
type Controller struct {
	mu           sync.Mutex
	state        State
	effectsSeen  bool
	snapshotSeen bool
	round        uint64

	effects *queue.Queue[core.Effect]

	sender    Sender
	logger    *slog.Logger
	onSettled func(round uint64)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSettledListener registers a callback invoked each time a round
// settles, with the new round number.
func WithSettledListener(fn func(round uint64)) Option {
	return func(c *Controller) {
		c.onSettled = fn
	}
}

// New creates a settled Controller at round zero.
func New(sender Sender, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		effects: queue.New[core.Effect](),
		sender:  sender,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current round state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Round returns the number of rounds settled so far.
func (c *Controller) Round() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

// Advance requests the next simulation round. Queued intents have already
// been pushed by the ledger's per-mutation sends; this only issues the
// bare advance request. Calling Advance while a round is in flight is a
// logged no-op.
func (c *Controller) Advance() {
	c.mu.Lock()
	if c.state != StateSettled {
		c.mu.Unlock()
		c.logger.Warn("Advance requested while round in flight")
		return
	}
	c.state = StateAdvancing
	c.effectsSeen = false
	c.snapshotSeen = false
	c.mu.Unlock()

	data, err := wire.EncodeBare(wire.TagUpdate)
	if err != nil {
		c.logger.Error("Failed to encode advance request", "error", err)
		return
	}
	c.sender.Send(data)
}

// NoteEffects buffers a round's outcome effects. During an advance it
// counts toward settling.
func (c *Controller) NoteEffects(effects []core.Effect) {
	c.effects.Push(effects...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAdvancing {
		c.effectsSeen = true
		c.maybeSettleLocked()
	}
}

// NoteSnapshot records that an authoritative entity snapshot arrived.
// Snapshots outside an advance (plain refreshes) do not change state.
func (c *Controller) NoteSnapshot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAdvancing {
		c.snapshotSeen = true
		c.maybeSettleLocked()
	}
}

func (c *Controller) maybeSettleLocked() {
	if !c.effectsSeen || !c.snapshotSeen {
		return
	}
	c.state = StateSettled
	c.round++
	round := c.round
	c.logger.Info("Round settled", "round", round)
	if c.onSettled != nil {
		go c.onSettled(round)
	}
}

// DrainEffects returns all buffered effects and empties the buffer.
func (c *Controller) DrainEffects() []core.Effect {
	return c.effects.GetAndEmpty()
}

// PendingEffects returns the number of buffered effects.
func (c *Controller) PendingEffects() int {
	return c.effects.Len()
}

// Reset returns the controller to settled at round zero and drops any
// buffered effects. Used when leaving or resetting a scenario.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.state = StateSettled
	c.effectsSeen = false
	c.snapshotSeen = false
	c.round = 0
	c.mu.Unlock()
	c.effects.Clear()
}
