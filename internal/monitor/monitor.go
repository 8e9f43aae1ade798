package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dcsturman/callisto-sub000/internal/conn"
	"github.com/dcsturman/callisto-sub000/internal/logging"
	"github.com/dcsturman/callisto-sub000/internal/mirror"
	"github.com/dcsturman/callisto-sub000/internal/round"
	"github.com/dcsturman/callisto-sub000/internal/telemetry"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Conn       *conn.Manager
	Mirror     *mirror.Mirror
	Round      *round.Controller
	Telemetry  *telemetry.Manager
	LogManager *logging.SlogManager
	StatusDir  string
	Scenario   func() string
}

// Status is a point-in-time view of the client session.
type Status struct {
	Time           time.Time `json:"time"`
	Connection     string    `json:"connection"`
	Round          uint64    `json:"round"`
	RoundState     string    `json:"roundState"`
	Ships          int       `json:"ships"`
	Planets        int       `json:"planets"`
	Missiles       int       `json:"missiles"`
	PendingEffects int       `json:"pendingEffects"`
	Snapshots      uint64    `json:"snapshots"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current session status
func (s *Service) GetProgramStatus() (output []string, status Status) {
	status = Status{
		Time:           time.Now(),
		Connection:     s.deps.Conn.State().String(),
		Round:          s.deps.Round.Round(),
		RoundState:     s.deps.Round.State().String(),
		Ships:          len(s.deps.Mirror.Ships()),
		Planets:        len(s.deps.Mirror.Planets()),
		Missiles:       len(s.deps.Mirror.Missiles()),
		PendingEffects: s.deps.Round.PendingEffects(),
		Snapshots:      s.deps.Mirror.SnapshotCount(),
	}

	statusStr, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(statusStr))

	return output, status
}

// statusPoint converts a status snapshot into a telemetry measurement.
func statusPoint(scenario string, status Status) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("client_status").
		AddTag("scenario", scenario).
		AddTag("connection", status.Connection).
		AddField("round", int64(status.Round)).
		AddField("ships", status.Ships).
		AddField("planets", status.Planets).
		AddField("missiles", status.Missiles).
		AddField("pending_effects", status.PendingEffects).
		SetTime(status.Time)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		statusFile, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(1000 * time.Millisecond)

				if s.deps.Conn.State() == conn.StateClosed {
					continue
				}

				statusStr, status := s.GetProgramStatus()

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}

				// ship the snapshot to telemetry when a sink is wired
				if s.deps.Telemetry != nil {
					point := statusPoint(s.deps.Scenario(), status)
					err = s.deps.Telemetry.WritePoint(context.Background(), telemetry.BucketPerformance, point)
					if err != nil {
						logger.Error("Error writing status point", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
