// Package server runs the sunrised daemon: the scheduling loop, the unix
// control socket and the optional HTTP status API.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"sunrised/internal/config"
	"sunrised/internal/http/handlers"
	"sunrised/internal/http/mw"
	"sunrised/internal/ramp"
	"sunrised/internal/schedule"
	"sunrised/pkg/tuya"
)

// statusLogInterval is how often the scheduling loop reports the next ramp
// time at info level.
const statusLogInterval = 10 * time.Minute

// Server manages the sunrised daemon, including the scheduler, discovery
// updates and socket/HTTP APIs.
type Server struct {
	logger     *slog.Logger
	devices    *tuya.Manager
	evaluator  *schedule.Evaluator
	tracker    *ramp.Tracker
	controller *ramp.Controller
	version    string

	cfgMu sync.RWMutex
	cfg   *config.Config

	socketPath string
	listener   net.Listener
	httpServer *http.Server
	shutdown   chan struct{}
	wg         sync.WaitGroup
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// New creates a new server instance.
func New(logger *slog.Logger, cfg *config.Config, devices *tuya.Manager, evaluator *schedule.Evaluator, version string) *Server {
	rootCtx, rootCancel := context.WithCancel(context.Background())

	return &Server{
		logger:     logger,
		cfg:        cfg,
		devices:    devices,
		evaluator:  evaluator,
		tracker:    ramp.NewTracker(),
		controller: ramp.New(logger),
		version:    version,
		socketPath: cfg.Server.UnixSocket,
		shutdown:   make(chan struct{}),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
}

// Start begins the server operations: the unix socket, the scheduling loop
// and, when configured, the HTTP API.
func (s *Server) Start() error {
	s.logger.Info("Starting sunrised server")

	sockDir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(sockDir, 0755); err != nil {
		return fmt.Errorf("failed to create socket directory %s: %w", sockDir, err)
	}

	// Remove a stale socket from a previous run.
	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove existing socket file %s: %w", s.socketPath, err)
		}
	}

	var err error
	s.listener, err = net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", s.socketPath, err)
	}
	s.logger.Info("Listening on Unix socket", "path", s.socketPath)

	s.wg.Add(1)
	go s.acceptConnections()

	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in scheduler loop", "recover", r)
			}
		}()
		s.runScheduler()
	})

	cfg := s.config()
	if cfg.API.ListenAddress != "" {
		s.logger.Info("Starting HTTP API server", "address", cfg.API.ListenAddress)

		statusHandler := &handlers.StatusHandler{Schedule: s.evaluator, Ramps: s}
		deviceHandler := &handlers.DeviceHandler{Devices: s.devices}
		rampHandler := &handlers.RampHandler{Ramps: s}

		// Rate limiting runs before auth to blunt brute-force attempts.
		router := chi.NewRouter()
		router.Use(mw.RequestLogging(s.logger))
		router.Use(mw.RateLimitByIP(mw.RateLimitConfig{RequestsPerMinute: cfg.API.RateLimit}))

		router.Get("/api/v1/healthz", handlers.Health)

		auth := mw.BearerAuth(s.logger, cfg.API.AuthToken)
		router.With(auth).Get("/api/v1/status", statusHandler.Get)
		router.With(auth).Get("/api/v1/devices", deviceHandler.List)
		router.With(auth).Post("/api/v1/ramp", rampHandler.Start)

		s.httpServer = &http.Server{
			Addr:         cfg.API.ListenAddress,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		s.wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("panic in HTTP server goroutine", "recover", r)
				}
			}()
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("HTTP server failed", "error", err)
			}
			s.logger.Info("HTTP server stopped")
		})
	}

	return nil
}

// Stop gracefully shuts down the server, cancelling any in-flight ramps.
func (s *Server) Stop() {
	s.logger.Info("Shutting down sunrised server")
	s.rootCancel()
	close(s.shutdown)

	if s.listener != nil {
		s.logger.Info("Closing Unix socket listener")
		s.listener.Close()
	}

	if s.httpServer != nil {
		s.logger.Info("Shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	s.logger.Info("Waiting for services to stop...")
	s.wg.Wait()
	s.logger.Info("Sunrised server shut down gracefully")
}

// ApplyConfig installs a reloaded configuration. Schedule parameters take
// effect immediately; device list changes require a restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	old := s.config()
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()

	s.evaluator.SetParams(cfg.ScheduleParams())
	if len(cfg.Devices) != len(old.Devices) {
		s.logger.Warn("device list changed in config; restart required to apply")
	}
	s.logger.Info("schedule configuration applied",
		"mode", cfg.Schedule.Mode,
		"duration_minutes", cfg.Schedule.RampDurationMinutes)
}

func (s *Server) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// runScheduler polls the evaluator on the configured interval and fires
// ramps when it says so. No error escapes this loop.
func (s *Server) runScheduler() {
	cfg := s.config()
	interval := time.Duration(config.ValidatePollInterval(cfg.Schedule.PollIntervalSeconds)) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "poll_interval", interval, "mode", cfg.Schedule.Mode)

	lastStatusLog := time.Now()
	for {
		select {
		case <-s.shutdown:
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(s.rootCtx, interval)
		fire := s.evaluator.Evaluate(ctx)
		cancel()

		if fire {
			runs := s.StartRamp(0)
			s.logger.Info("ramps started", "count", len(runs))
		}

		if time.Since(lastStatusLog) >= statusLogInterval {
			st := s.evaluator.Snapshot()
			s.logger.Info("schedule status", "next_ramp", st.NextStart, "triggered_today", st.Triggered, "mode", st.Mode)
			lastStatusLog = time.Now()
		}
	}
}

// StartRamp launches one independent ramp per enabled device, skipping
// devices that already have a run in flight. A zero duration uses the
// configured ramp duration. Implements handlers.RampStarter.
func (s *Server) StartRamp(durationSeconds int) []ramp.RunInfo {
	cfg := s.config()
	if durationSeconds <= 0 {
		durationSeconds = cfg.Schedule.RampDurationMinutes * 60
	}
	cv := cfg.Curve

	var runs []ramp.RunInfo
	for _, dev := range s.devices.EnabledDevices() {
		if s.tracker.ActiveDevice(dev.ID) {
			s.logger.Warn("ramp already running for device, skipping", "device", dev.ID)
			continue
		}

		info, ctx := s.tracker.Start(s.rootCtx, dev.ID, durationSeconds)
		runs = append(runs, info)

		sess := tuya.NewSession(dev, s.logger)
		s.wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("panic in ramp goroutine", "recover", r, "device", dev.ID)
				}
			}()
			defer s.tracker.Finish(info.ID)

			s.logger.Info("ramp starting", "run", info.ID, "device", dev.ID, "duration_seconds", durationSeconds)
			if err := s.controller.Run(ctx, sess, cv, durationSeconds); err != nil {
				s.logger.Error("ramp ended with error", "run", info.ID, "device", dev.ID, "error", err)
				return
			}
			s.devices.MarkSeen(dev.ID)
			s.logger.Info("ramp complete", "run", info.ID, "device", dev.ID)
		})
	}
	return runs
}

// ActiveRamps returns the in-flight runs. Implements handlers.RampStarter.
func (s *Server) ActiveRamps() []ramp.RunInfo {
	return s.tracker.Active()
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in acceptConnections", "recover", r)
		}
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.logger.Info("Socket listener shutting down")
				return
			default:
				s.logger.Error("Failed to accept connection", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in connection handler", "recover", r)
		}
	}()

	ctx, cancel := context.WithCancel(s.rootCtx)
	defer cancel()

	go func() {
		select {
		case <-s.shutdown:
			if uconn, ok := conn.(*net.UnixConn); ok {
				uconn.CloseRead() // Force connection to unblock for shutdown
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}()

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "use of closed network connection") {
				s.logger.Debug("Client disconnected")
			} else {
				s.logger.Error("Failed to read from connection", "error", err)
			}
			return
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Error("Failed to unmarshal request", "error", err, "request", string(line))
			s.sendError(conn, "", fmt.Sprintf("invalid JSON request: %s", err))
			continue
		}

		action, _ := req["action"].(string)
		id, _ := req["id"].(string)             // Optional request ID for client tracking
		data, _ := req["data"].(map[string]any) // Data payload

		s.logger.Debug("Received request", "action", action, "id", id, "data", data)
		s.handleAction(conn, action, id, data)
	}
}

func (s *Server) handleAction(conn net.Conn, action, id string, data map[string]any) {
	switch action {
	case "ping":
		s.sendResponse(conn, id, map[string]any{"message": "pong"})

	case "version":
		s.sendResponse(conn, id, map[string]any{"version": s.version})

	case "get_status":
		st := s.evaluator.Snapshot()
		s.sendResponse(conn, id, map[string]any{
			"schedule":     toMap(st),
			"active_ramps": toMapSlice(s.tracker.Active()),
		})

	case "next_ramp":
		st := s.evaluator.Snapshot()
		s.sendResponse(conn, id, map[string]any{
			"mode":             string(st.Mode),
			"next_start":       st.NextStart,
			"sunrise":          st.Sunrise,
			"duration_seconds": st.DurationSeconds,
			"triggered_today":  st.Triggered,
		})

	case "list_devices":
		s.sendResponse(conn, id, map[string]any{"devices": toMapSlice(s.devices.GetDevices())})

	case "probe_device":
		deviceID, _ := data["id"].(string)
		if deviceID == "" {
			s.sendError(conn, id, "missing device ID for probe_device")
			return
		}
		status, err := s.devices.Probe(deviceID)
		if err != nil {
			s.sendResponse(conn, id, map[string]any{"reachable": false, "reason": err.Error()})
			return
		}
		s.sendResponse(conn, id, map[string]any{"reachable": true, "state": toMap(status)})

	case "set_device_power":
		deviceID, _ := data["id"].(string)
		if deviceID == "" {
			s.sendError(conn, id, "missing device ID for set_device_power")
			return
		}
		on, ok := data["on"].(bool)
		if !ok {
			s.sendError(conn, id, "missing or invalid 'on' for set_device_power")
			return
		}
		if err := s.devices.SetPower(deviceID, on); err != nil {
			s.sendError(conn, id, fmt.Sprintf("failed to set power for %s: %s", deviceID, err))
			return
		}
		s.sendResponse(conn, id, map[string]any{"status": "ok"})

	case "start_ramp":
		duration := 0
		if v, ok := data["duration_seconds"].(float64); ok {
			duration = int(v)
		}
		if duration < 0 {
			s.sendError(conn, id, "duration_seconds must not be negative")
			return
		}
		runs := s.StartRamp(duration)
		if len(runs) == 0 {
			s.sendError(conn, id, "no enabled devices or ramps already running")
			return
		}
		s.sendResponse(conn, id, map[string]any{"runs": toMapSlice(runs)})

	case "cancel_ramp":
		runID, _ := data["run_id"].(string)
		if runID == "" {
			s.sendError(conn, id, "missing run_id for cancel_ramp")
			return
		}
		if !s.tracker.Cancel(runID) {
			s.sendError(conn, id, fmt.Sprintf("no active ramp with id %s", runID))
			return
		}
		s.sendResponse(conn, id, map[string]any{"status": "ok"})

	default:
		s.logger.Warn("received unknown action", "action", action)
		s.sendError(conn, id, "unknown action: "+action)
	}
}

func (s *Server) sendResponse(conn net.Conn, id string, data map[string]any) {
	response := map[string]any{"status": "ok"}
	if id != "" {
		response["id"] = id
	}
	maps.Copy(response, data)
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send response", "error", err)
	}
}

func (s *Server) sendError(conn net.Conn, id string, message string) {
	s.logger.Error("Sending error response to client", "id", id, "message", message)
	response := map[string]any{"error": message}
	if id != "" {
		response["id"] = id
	}
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send error response", "error", err)
	}
}

// toMap round-trips a value through JSON into a generic map for socket
// responses.
func toMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// toMapSlice round-trips a slice of values into generic maps.
func toMapSlice[T any](items []T) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m := toMap(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}
