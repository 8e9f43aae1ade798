package recorder

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcsturman/callisto-sub000/pkg/core"
)

// spyBackend records calls in order.
type spyBackend struct {
	mu      sync.Mutex
	calls   []string
	initErr error
	recErr  error
}

func (s *spyBackend) note(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *spyBackend) ordered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(s.calls))
	copy(cp, s.calls)
	return cp
}

func (s *spyBackend) Init() error  { return s.initErr }
func (s *spyBackend) Close() error { s.note("close"); return nil }

func (s *spyBackend) StartSession(sess *Session) error { s.note("start:" + sess.Scenario); return nil }
func (s *spyBackend) EndSession() error                { s.note("end"); return nil }

func (s *spyBackend) RecordRound(r *RoundRecord) error {
	s.note("round")
	return s.recErr
}

func (s *spyBackend) RecordEffects(round uint64, effects []core.Effect) error {
	s.note("effects")
	return nil
}

func (s *spyBackend) RecordPlanCommit(actor string, plan core.FlightPlan) error {
	s.note("plan:" + actor)
	return nil
}

func TestWritesAppliedInOrder(t *testing.T) {
	spy := &spyBackend{}
	r, err := New(spy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	r.StartSession(Session{Scenario: "Test"})
	r.RecordRound(RoundRecord{Round: 1})
	r.RecordEffects(1, []core.Effect{{Kind: core.EffectMessage}})
	r.RecordPlanCommit("Beowulf", nil)
	r.EndSession()

	require.NoError(t, r.Close())

	assert.Equal(t,
		[]string{"start:Test", "round", "effects", "plan:Beowulf", "end", "close"},
		spy.ordered())
}

func TestInitFailurePropagates(t *testing.T) {
	spy := &spyBackend{initErr: errors.New("no disk")}
	_, err := New(spy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestBackendErrorsAreSwallowed(t *testing.T) {
	spy := &spyBackend{recErr: errors.New("write failed")}
	r, err := New(spy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// Must not panic or surface the error.
	r.RecordRound(RoundRecord{Round: 1})
	require.NoError(t, r.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	spy := &spyBackend{}
	r, err := New(spy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	closes := 0
	for _, c := range spy.ordered() {
		if c == "close" {
			closes++
		}
	}
	assert.Equal(t, 1, closes)
}

func TestWritesAfterCloseAreDropped(t *testing.T) {
	spy := &spyBackend{}
	r, err := New(spy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r.RecordRound(RoundRecord{Round: 9})
	time.Sleep(20 * time.Millisecond)

	for _, c := range spy.ordered() {
		assert.NotEqual(t, "round", c)
	}
}

func TestCloseConcurrentWithWrites(t *testing.T) {
	// A record call racing Close must be applied or dropped, never panic.
	for i := 0; i < 100; i++ {
		spy := &spyBackend{}
		r, err := New(spy, slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for round := uint64(0); round < 25; round++ {
					r.RecordEffects(round, []core.Effect{{Kind: core.EffectShipImpact}})
				}
			}()
		}

		require.NoError(t, r.Close())
		wg.Wait()
	}
}

func TestRecordEffectsCopiesSlice(t *testing.T) {
	spy := &spyBackend{}
	r, err := New(spy, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	effects := []core.Effect{{Kind: core.EffectShipImpact}}
	r.RecordEffects(1, effects)
	effects[0].Kind = "mutated"

	require.NoError(t, r.Close())
	assert.Contains(t, spy.ordered(), "effects")
}
