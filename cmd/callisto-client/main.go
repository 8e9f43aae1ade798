package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dcsturman/callisto-sub000/internal/api"
	"github.com/dcsturman/callisto-sub000/internal/client"
	"github.com/dcsturman/callisto-sub000/internal/config"
	"github.com/dcsturman/callisto-sub000/internal/conn"
	"github.com/dcsturman/callisto-sub000/internal/dispatcher"
	"github.com/dcsturman/callisto-sub000/internal/ledger"
	"github.com/dcsturman/callisto-sub000/internal/logging"
	"github.com/dcsturman/callisto-sub000/internal/mirror"
	"github.com/dcsturman/callisto-sub000/internal/monitor"
	"github.com/dcsturman/callisto-sub000/internal/plans"
	"github.com/dcsturman/callisto-sub000/internal/recorder"
	"github.com/dcsturman/callisto-sub000/internal/round"
	"github.com/dcsturman/callisto-sub000/internal/telemetry"
	"github.com/dcsturman/callisto-sub000/pkg/core"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Version info - BuildDate can be set at build time via ldflags
var (
	CurrentClientVersion string = "0.0.1"
	BuildDate            string = "unknown"

	ClientName string = "callisto_client"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	SessionStartTime time.Time = time.Now()

	// Services
	svc              *client.Service
	monitorService   *monitor.Service
	telemetryManager *telemetry.Manager
	flightRecorder   *recorder.Recorder
	eventDispatcher  *dispatcher.Dispatcher
	apiClient        *api.Client
)

func main() {
	configDir := flag.String("config", ".", "directory containing callisto_client.cfg.json")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", ClientName, CurrentClientVersion, BuildDate)
		return
	}

	SlogManager = logging.NewSlogManager()

	if err := config.Load(*configDir); err != nil {
		SlogManager.Setup(nil, "info", nil)
		SlogManager.Logger().Warn("Failed to load config, using defaults!", "error", err)
	}

	// create logs dir if it doesn't exist
	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	logPath := logging.LogFilePath(logsDir, ClientName, SessionStartTime)
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create/open log file %s: %v\n", logPath, err)
	}

	// Every record carries the session context once a scenario is joined.
	provider := func() []slog.Attr {
		if svc == nil {
			return nil
		}
		var attrs []slog.Attr
		if s := svc.Scenario(); s != "" {
			attrs = append(attrs, slog.String("scenario", s))
		}
		if e := svc.Email(); e != "" {
			attrs = append(attrs, slog.String("email", e))
		}
		return attrs
	}

	SlogManager.Setup(logFile, viper.GetString("logLevel"), provider)
	Logger = SlogManager.Logger()
	SlogManager.SetDefault()

	Logger.Info("Starting client",
		"version", CurrentClientVersion,
		"buildDate", BuildDate,
		"server", viper.GetString("server.url"))

	// healthcheck preflight before dialing the websocket
	apiClient = api.New(viper.GetString("api.url"), viper.GetString("api.key"))
	if err := apiClient.Healthcheck(); err != nil {
		Logger.Warn("Server healthcheck failed, attempting connection anyway", "error", err)
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if viper.GetBool("influx.enabled") {
		telemetryManager = telemetry.NewManager(
			zlog.With().Str("component", "telemetry").Logger(),
			filepath.Join(logsDir, "telemetry_backup.gz"),
		)
		if err := telemetryManager.Connect(); err != nil {
			Logger.Warn("Telemetry disabled", "error", err)
			telemetryManager = nil
		}
	}

	backend := createRecorderBackend(config.GetStorageConfig(), zlog)
	if backend != nil {
		flightRecorder, err = recorder.New(backend, Logger)
		if err != nil {
			Logger.Error("Failed to initialize flight recorder, continuing without", "error", err)
			flightRecorder = nil
		}
	}

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(
		zlog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		Logger.Error("Failed to create dispatcher", "error", err)
		os.Exit(1)
	}

	serverCfg := config.GetServerConfig()
	connMgr := conn.New(
		conn.Config{
			URL:            serverCfg.URL,
			PingInterval:   serverCfg.PingInterval,
			ConnectTimeout: serverCfg.ConnectTimeout,
			WriteTimeout:   serverCfg.WriteTimeout,
		},
		func(tag string, payload json.RawMessage) {
			if svc != nil {
				svc.HandleFrame(tag, payload)
			}
		},
		Logger,
		conn.WithStateListener(func(s conn.State) {
			Logger.Info("Connection state changed", "state", s.String())
		}),
	)

	worldMirror := mirror.New()
	actionLedger := ledger.New(connMgr, worldMirror, Logger)
	planNegotiator := plans.New(connMgr, Logger,
		plans.WithCommitListener(func(actor string, plan core.FlightPlan) {
			if flightRecorder != nil {
				flightRecorder.RecordPlanCommit(actor, plan)
			}
		}),
		plans.WithPathListener(func(actor string, waypoints int, latency time.Duration) {
			if telemetryManager == nil || svc == nil {
				return
			}
			point := telemetry.PathRequestPoint(svc.Scenario(), actor, waypoints, latency)
			if err := telemetryManager.WritePoint(context.Background(), telemetry.BucketPerformance, point); err != nil {
				Logger.Warn("Failed to write path telemetry", "error", err)
			}
		}))

	lastSettle := time.Now()
	var roundCtrl *round.Controller
	roundCtrl = round.New(connMgr, Logger, round.WithSettledListener(func(r uint64) {
		now := time.Now()
		settleDuration := now.Sub(lastSettle)
		lastSettle = now

		Logger.Info("Round settled", "round", r, "duration", settleDuration)

		if telemetryManager != nil {
			point := telemetry.RoundPoint(
				svc.Scenario(), r,
				len(worldMirror.Ships()),
				len(worldMirror.Missiles()),
				roundCtrl.PendingEffects(),
				settleDuration,
			)
			if err := telemetryManager.WritePoint(context.Background(), telemetry.BucketRounds, point); err != nil {
				Logger.Warn("Failed to write round telemetry", "error", err)
			}
		}
	}))

	svc = client.NewService(client.Dependencies{
		Conn:       connMgr,
		Dispatcher: eventDispatcher,
		Mirror:     worldMirror,
		Ledger:     actionLedger,
		Plans:      planNegotiator,
		Round:      roundCtrl,
		Recorder:   flightRecorder,
		LogManager: SlogManager,
	})
	svc.RegisterHandlers()
	svc.OnPleaseLogin = func() {
		Logger.Info("Authentication required, complete the sign-in flow")
	}

	monitorService = monitor.NewService(monitor.Dependencies{
		Conn:       connMgr,
		Mirror:     worldMirror,
		Round:      roundCtrl,
		Telemetry:  telemetryManager,
		LogManager: SlogManager,
		StatusDir:  logsDir,
		Scenario:   func() string { return svc.Scenario() },
	})
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start status monitor", "error", err)
	}

	if err := svc.Connect(context.Background()); err != nil {
		Logger.Error("Failed to connect to server", "error", err)
		os.Exit(1)
	}
	Logger.Info("Connected", "url", serverCfg.URL)

	// run until signalled
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	Logger.Info("Shutting down", "signal", sig.String())

	shutdown(roundCtrl)
}

func shutdown(roundCtrl *round.Controller) {
	monitorService.Stop()

	scenario := svc.Scenario()
	rounds := roundCtrl.Round()

	if err := svc.Close(); err != nil {
		Logger.Warn("Error closing connection", "error", err)
	}

	if flightRecorder != nil {
		if err := flightRecorder.Close(); err != nil {
			Logger.Warn("Error closing flight recorder", "error", err)
		}
		uploadRecording(scenario, rounds)
	}

	if telemetryManager != nil {
		point := telemetry.SessionPoint(scenario, svc.Email(), rounds, time.Since(SessionStartTime))
		if err := telemetryManager.WritePoint(context.Background(), telemetry.BucketSessions, point); err != nil {
			Logger.Warn("Failed to write session telemetry", "error", err)
		}
		if telemetryManager.IsValid {
			telemetryManager.Client.Close()
		}
		if telemetryManager.BackupWriter != nil {
			telemetryManager.BackupWriter.Close()
		}
	}

	Logger.Info("Shutdown complete")
}
