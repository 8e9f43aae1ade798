// Package client ties the synchronization layer together: it registers a
// handler for every inbound frame tag and exposes the outbound operations
// the UI calls. All server state flows through here into the mirror, the
// ledger, the plan negotiator and the round controller.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dcsturman/callisto-sub000/internal/dispatcher"
	"github.com/dcsturman/callisto-sub000/internal/ledger"
	"github.com/dcsturman/callisto-sub000/internal/logging"
	"github.com/dcsturman/callisto-sub000/internal/mirror"
	"github.com/dcsturman/callisto-sub000/internal/plans"
	"github.com/dcsturman/callisto-sub000/internal/recorder"
	"github.com/dcsturman/callisto-sub000/internal/round"
	"github.com/dcsturman/callisto-sub000/pkg/wire"
)

// Conn is the slice of the connection manager the facade needs.
type Conn interface {
	Open(ctx context.Context) error
	Send(data []byte)
	Close() error
}

// Dependencies holds all collaborators wired in by the composition root.
// Recorder may be nil when recording is disabled.
type Dependencies struct {
	Conn       Conn
	Dispatcher *dispatcher.Dispatcher
	Mirror     *mirror.Mirror
	Ledger     *ledger.Ledger
	Plans      *plans.Negotiator
	Round      *round.Controller
	Recorder   *recorder.Recorder
	LogManager *logging.SlogManager
}

// Service is the client facade.
type Service struct {
	deps Dependencies

	mu       sync.RWMutex
	email    string
	scenario string
	role     string
	ship     string
	lastPong time.Time

	// Callbacks for the embedding UI, set before RegisterHandlers.
	OnAuth        func(wire.AuthResponsePayload)
	OnPleaseLogin func()
	OnError       func(message string)
}

// NewService creates the facade. Call RegisterHandlers before opening the
// connection.
func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// HandleFrame is the connection manager's frame callback. Frames with no
// registered handler are logged and dropped, never fatal.
func (s *Service) HandleFrame(tag string, payload json.RawMessage) {
	_, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{
		Tag:      tag,
		Payload:  payload,
		Received: time.Now(),
	})
	if err != nil {
		s.logger().Warn("Frame not handled", "tag", tag, "error", err)
	}
}

func (s *Service) logger() *slog.Logger {
	return s.deps.LogManager.Logger()
}

// RegisterHandlers wires every inbound frame tag into the dispatcher.
func (s *Service) RegisterHandlers() {
	d := s.deps.Dispatcher

	d.Register(wire.TagPong, s.handlePong)
	d.Register(wire.TagPleaseLogin, s.handlePleaseLogin, dispatcher.Logged())
	d.Register(wire.TagAuthResponse, s.handleAuthResponse, dispatcher.Logged())
	d.Register(wire.TagDesignTemplateResponse, s.handleDesignTemplates)
	d.Register(wire.TagEntityResponse, s.handleEntityResponse)
	d.Register(wire.TagFlightPath, s.handleFlightPath)
	d.Register(wire.TagEffects, s.handleEffects)
	d.Register(wire.TagUsers, s.handleUsers)
	d.Register(wire.TagScenarios, s.handleScenarios, dispatcher.Logged())
	d.Register(wire.TagJoinedScenario, s.handleJoinedScenario, dispatcher.Logged())
	d.Register(wire.TagSimpleMsg, s.handleSimpleMsg)
	d.Register(wire.TagError, s.handleError, dispatcher.Logged())
}

func (s *Service) handlePong(e dispatcher.Event) (any, error) {
	s.mu.Lock()
	s.lastPong = e.Received
	s.mu.Unlock()
	return "ok", nil
}

func (s *Service) handlePleaseLogin(e dispatcher.Event) (any, error) {
	s.logger().Info("Server requests authentication")
	if s.OnPleaseLogin != nil {
		s.OnPleaseLogin()
	}
	return "ok", nil
}

func (s *Service) handleAuthResponse(e dispatcher.Event) (any, error) {
	var payload wire.AuthResponsePayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decoding AuthResponse: %w", err)
	}

	s.mu.Lock()
	s.email = payload.Email
	if payload.Scenario != nil {
		s.scenario = *payload.Scenario
	}
	if payload.Role != nil {
		s.role = *payload.Role
	}
	if payload.Ship != nil {
		s.ship = *payload.Ship
	}
	scenario := s.scenario
	s.mu.Unlock()

	s.logger().Info("Authenticated", "email", payload.Email, "scenario", scenario)

	// Rejoining a running scenario: pull the full state immediately.
	if scenario != "" {
		s.startRecording(scenario)
		s.RequestDesigns()
		s.RequestEntities()
	}

	if s.OnAuth != nil {
		s.OnAuth(payload)
	}
	return "ok", nil
}

func (s *Service) handleDesignTemplates(e dispatcher.Event) (any, error) {
	designs, err := wire.DecodeDesignTemplates(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("decoding DesignTemplateResponse: %w", err)
	}
	s.deps.Mirror.SetDesigns(designs)
	return len(designs), nil
}

func (s *Service) handleEntityResponse(e dispatcher.Event) (any, error) {
	var payload wire.EntityResponsePayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decoding EntityResponse: %w", err)
	}

	wasAdvancing := s.deps.Round.State() == round.StateAdvancing

	s.deps.Mirror.ApplySnapshot(payload.Ships, payload.Planets, payload.Missiles)
	if payload.Actions != nil {
		if err := s.deps.Ledger.ReplaceFromWire(payload.Actions); err != nil {
			s.logger().Warn("Malformed actions echo in snapshot", "error", err)
		}
	}

	s.deps.Round.NoteSnapshot()

	// The snapshot that settles a round is that round's record.
	if wasAdvancing && s.deps.Round.State() == round.StateSettled && s.deps.Recorder != nil {
		s.deps.Recorder.RecordRound(recorder.RoundRecord{
			Round:      s.deps.Round.Round(),
			RecordedAt: e.Received,
			Ships:      payload.Ships,
			Planets:    payload.Planets,
			Missiles:   payload.Missiles,
		})
	}
	return "applied", nil
}

func (s *Service) handleFlightPath(e dispatcher.Event) (any, error) {
	if err := s.deps.Plans.HandleFlightPath(e.Payload); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (s *Service) handleEffects(e dispatcher.Event) (any, error) {
	effects, err := wire.DecodeEffects(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("decoding Effects: %w", err)
	}

	resolving := s.deps.Round.Round() + 1
	s.deps.Round.NoteEffects(effects)
	if s.deps.Recorder != nil {
		s.deps.Recorder.RecordEffects(resolving, effects)
	}
	return len(effects), nil
}

func (s *Service) handleUsers(e dispatcher.Event) (any, error) {
	users, err := wire.DecodeUsers(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("decoding Users: %w", err)
	}
	s.deps.Mirror.SetUsers(users)
	return len(users), nil
}

func (s *Service) handleScenarios(e dispatcher.Event) (any, error) {
	var payload wire.ScenariosPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decoding Scenarios: %w", err)
	}
	s.deps.Mirror.SetScenarios(payload.CurrentScenarios, payload.Templates)
	return "ok", nil
}

func (s *Service) handleJoinedScenario(e dispatcher.Event) (any, error) {
	var name string
	if err := json.Unmarshal(e.Payload, &name); err != nil {
		return nil, fmt.Errorf("decoding JoinedScenario: %w", err)
	}

	s.mu.Lock()
	s.scenario = name
	s.mu.Unlock()

	s.logger().Info("Joined scenario", "scenario", name)
	s.startRecording(name)
	s.RequestDesigns()
	s.RequestEntities()
	return name, nil
}

// SimpleMsg is a success acknowledgement with no client-side effect.
func (s *Service) handleSimpleMsg(e dispatcher.Event) (any, error) {
	s.logger().Debug("Server ack", "payload", string(e.Payload))
	return "ok", nil
}

func (s *Service) handleError(e dispatcher.Event) (any, error) {
	var message string
	if err := json.Unmarshal(e.Payload, &message); err != nil {
		message = string(e.Payload)
	}
	s.logger().Error("Server error", "message", message)
	if s.OnError != nil {
		s.OnError(message)
	}
	return "ok", nil
}

func (s *Service) startRecording(scenario string) {
	if s.deps.Recorder == nil {
		return
	}
	s.mu.RLock()
	email := s.email
	s.mu.RUnlock()
	s.deps.Recorder.StartSession(recorder.Session{
		Scenario:  scenario,
		Email:     email,
		StartedAt: time.Now().UTC(),
	})
}

// --- outbound operations ---

func (s *Service) sendBare(tag string) {
	data, err := wire.EncodeBare(tag)
	if err != nil {
		s.logger().Error("Encoding frame failed", "tag", tag, "error", err)
		return
	}
	s.deps.Conn.Send(data)
}

func (s *Service) sendTagged(tag string, payload any) {
	data, err := wire.EncodeTagged(tag, payload)
	if err != nil {
		s.logger().Error("Encoding frame failed", "tag", tag, "error", err)
		return
	}
	s.deps.Conn.Send(data)
}

// Connect opens the websocket session.
func (s *Service) Connect(ctx context.Context) error {
	return s.deps.Conn.Open(ctx)
}

// Close ends the recording session, if any, and closes the connection.
func (s *Service) Close() error {
	if s.deps.Recorder != nil {
		s.deps.Recorder.EndSession()
	}
	return s.deps.Conn.Close()
}

// Login sends the OAuth authorization code to the server.
func (s *Service) Login(code string) {
	s.sendTagged(wire.TagLogin, wire.LoginPayload{Code: code})
}

// Logout signs the user out and drops the local identity.
func (s *Service) Logout() {
	s.sendBare(wire.TagLogout)

	s.mu.Lock()
	s.email = ""
	s.scenario = ""
	s.role = ""
	s.ship = ""
	s.mu.Unlock()

	if s.deps.Recorder != nil {
		s.deps.Recorder.EndSession()
	}
}

// Exit leaves the current scenario, returning to the lobby.
func (s *Service) Exit() {
	s.sendBare(wire.TagExit)

	s.mu.Lock()
	s.scenario = ""
	s.mu.Unlock()

	if s.deps.Recorder != nil {
		s.deps.Recorder.EndSession()
	}
}

// Reset asks the server to reset the scenario and clears local per-round
// state. The fresh snapshot arrives as a normal EntityResponse.
func (s *Service) Reset() {
	s.sendBare(wire.TagReset)
	s.deps.Ledger.Clear()
	s.deps.Round.Reset()
}

// RequestEntities asks for a full snapshot.
func (s *Service) RequestEntities() {
	s.sendBare(wire.TagEntitiesRequest)
}

// RequestDesigns asks for the ship design catalog.
func (s *Service) RequestDesigns() {
	s.sendBare(wire.TagDesignTemplateRequest)
}

// Advance requests the next round. Delegates to the round controller,
// which refuses while a previous advance is still settling.
func (s *Service) Advance() {
	s.deps.Round.Advance()
}

// AddShip requests creation of a ship in the current scenario.
func (s *Service) AddShip(p wire.AddShipPayload) {
	s.sendTagged(wire.TagAddShip, p)
}

// RemoveEntity removes a named entity from the scenario.
func (s *Service) RemoveEntity(name string) {
	s.sendTagged(wire.TagRemoveEntity, wire.RemoveEntityPayload{Name: name})
}

// SetPilotActions adjusts per-round pilot settings for a ship. Nil fields
// are left unchanged server-side.
func (s *Service) SetPilotActions(shipName string, dodgeThrust *uint, assistGunners *bool) {
	s.sendTagged(wire.TagSetPilotActions, wire.SetPilotActionsPayload{
		ShipName:      shipName,
		DodgeThrust:   dodgeThrust,
		AssistGunners: assistGunners,
	})
}

// SetRole selects the caller's role, optionally bound to a ship.
func (s *Service) SetRole(role string, ship *string) {
	s.sendTagged(wire.TagSetRole, wire.SetRolePayload{Role: role, Ship: ship})

	s.mu.Lock()
	s.role = role
	if ship != nil {
		s.ship = *ship
	} else {
		s.ship = ""
	}
	s.mu.Unlock()
}

// JoinScenario joins a running scenario by name.
func (s *Service) JoinScenario(name string) {
	s.sendTagged(wire.TagJoinScenario, wire.JoinScenarioPayload{ScenarioName: name})
}

// CreateScenario creates a scenario from a template.
func (s *Service) CreateScenario(name, template string) {
	s.sendTagged(wire.TagCreateScenario, wire.CreateScenarioPayload{
		Name:     name,
		Scenario: template,
	})
}

// --- session identity accessors ---

// Email returns the authenticated user's email, or "" before login.
func (s *Service) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// Scenario returns the joined scenario name, or "" in the lobby.
func (s *Service) Scenario() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenario
}

// Role returns the selected role.
func (s *Service) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Ship returns the ship bound to the selected role, or "".
func (s *Service) Ship() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ship
}

// LastPong returns the time of the most recent keepalive response.
func (s *Service) LastPong() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPong
}
