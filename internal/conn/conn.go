// Package conn manages the persistent WebSocket session to the simulation
// server: a single write goroutine, an app-level keepalive, and inbound
// frame delivery. A failed connection never redials on its own; the owner
// decides when to call Open again.
package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/dcsturman/callisto-sub000/pkg/wire"
)

const (
	sendChSize       = 10_000
	defaultWriteWait = 10 * time.Second
)

// State is the connection lifecycle state.
type State int32

const (
	StateClosed State = iota
	StateOpening
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// FrameHandler consumes one decoded inbound frame.
type FrameHandler func(tag string, payload json.RawMessage)

// Config holds the connection settings.
type Config struct {
	URL            string
	PingInterval   time.Duration
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
}

// Manager owns one WebSocket session at a time.
type Manager struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{} // closed on session teardown

	state atomic.Int32

	cfg     Config
	handler FrameHandler
	onState func(State)
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithStateListener registers a callback invoked on every state change.
func WithStateListener(fn func(State)) Option {
	return func(m *Manager) {
		m.onState = fn
	}
}

// New creates a Manager. The handler receives every decoded inbound frame.
func New(cfg Config, handler FrameHandler, logger *slog.Logger, opts ...Option) *Manager {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteWait
	}
	m := &Manager{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) transition(s State) {
	m.state.Store(int32(s))
	if m.onState != nil {
		m.onState(s)
	}
}

// Open dials the server and starts the session goroutines. Calling Open
// while a session is already opening or open is a no-op.
func (m *Manager) Open(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(StateClosed), int32(StateOpening)) {
		return nil
	}
	if m.onState != nil {
		m.onState(StateOpening)
	}

	dialer := ws.Dialer{HandshakeTimeout: m.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, m.cfg.URL, nil)
	if err != nil {
		m.transition(StateClosed)
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.sendCh = make(chan []byte, sendChSize)
	m.done = make(chan struct{})
	done, sendCh := m.done, m.sendCh
	m.mu.Unlock()

	m.transition(StateOpen)
	m.logger.Info("Connected to server", "url", m.cfg.URL)

	go m.writeLoop(conn, sendCh, done)
	go m.readLoop(conn, done)

	return nil
}

// Send queues an encoded frame for the write loop. When no session is
// open the frame is silently discarded; callers never need to gate on
// connection state.
func (m *Manager) Send(data []byte) {
	m.mu.Lock()
	sendCh, done := m.sendCh, m.done
	m.mu.Unlock()

	if m.State() != StateOpen || sendCh == nil {
		m.logger.Debug("Dropping frame, connection not open", "bytes", len(data))
		return
	}

	select {
	case sendCh <- data:
	case <-done:
	default:
		m.logger.Warn("Send channel full, dropping frame")
	}
}

// writeLoop drains sendCh and emits keepalive pings. Only one writeLoop
// runs per session; it returns on error or teardown.
func (m *Manager) writeLoop(conn *ws.Conn, sendCh chan []byte, done chan struct{}) {
	var pingCh <-chan time.Time
	if m.cfg.PingInterval > 0 {
		ticker := time.NewTicker(m.cfg.PingInterval)
		defer ticker.Stop()
		pingCh = ticker.C
	}

	for {
		select {
		case <-done:
			return
		case <-pingCh:
			ping, _ := wire.EncodeBare(wire.TagPing)
			if err := m.write(conn, ping); err != nil {
				m.logger.Warn("Keepalive write error", "error", err)
				m.teardown(done, false)
				return
			}
		case data := <-sendCh:
			if err := m.write(conn, data); err != nil {
				m.logger.Warn("WebSocket write error", "error", err)
				m.teardown(done, false)
				return
			}
		}
	}
}

func (m *Manager) write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// readLoop decodes inbound frames and hands them to the frame handler.
func (m *Manager) readLoop(conn *ws.Conn, done chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			m.logger.Warn("WebSocket read error", "error", err)
			m.teardown(done, false)
			return
		}

		tag, payload, err := wire.DecodeFrame(message)
		if err != nil {
			m.logger.Warn("Malformed frame", "error", err, "raw", string(message))
			continue
		}

		m.handler(tag, payload)
	}
}

// teardown closes the session belonging to done. A stale call from an
// already-replaced session is a no-op.
func (m *Manager) teardown(done chan struct{}, sendClose bool) {
	m.mu.Lock()
	if m.done != done || m.conn == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	close(m.done)
	m.mu.Unlock()

	if sendClose {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
	}
	_ = conn.Close()

	m.transition(StateClosed)
}

// Close sends a close frame and shuts the session down. Safe to call in
// any state.
func (m *Manager) Close() error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done == nil {
		m.transition(StateClosed)
		return nil
	}
	m.teardown(done, true)
	return nil
}
