// Package server implements the local UI bridge: an HTTP API plus a WebSocket
// through which the UI receives events and window commands.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/AdbAutoPlayer/shell/internal/buildinfo"
	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/logging"
	"github.com/AdbAutoPlayer/shell/internal/settings"
)

// Host is the only interface the bridge listens on.
const Host = "127.0.0.1"

// WindowController is the window behavior exposed to the UI.
type WindowController interface {
	Show()
	HandleCloseRequest() bool
	Observe(visible bool)
	IsVisible() bool
}

// Config wires a Server to the shell's components.
type Config struct {
	// Port to listen on; 0 for dynamic allocation.
	Port   int
	Store  *settings.Store
	Bus    *events.Bus
	Hub    *Hub
	Window WindowController
	// Shutdown stops the daemon. Defaults to sending SIGINT to this process.
	Shutdown func()
}

// Server is the daemon's UI bridge.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	port       int
	startedAt  time.Time

	store    *settings.Store
	bus      *events.Bus
	hub      *Hub
	window   WindowController
	shutdown func()
	log      *slog.Logger
}

// New creates a new server listening on the specified port.
// Pass port 0 for dynamic allocation.
func New(cfg Config) (*Server, error) {
	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", fmt.Sprintf("%s:%d", Host, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	// Get actual port if dynamically allocated
	actualPort := listener.Addr().(*net.TCPAddr).Port

	srv := &Server{
		listener:  listener,
		port:      actualPort,
		startedAt: time.Now().UTC(),
		store:     cfg.Store,
		bus:       cfg.Bus,
		hub:       cfg.Hub,
		window:    cfg.Window,
		shutdown:  cfg.Shutdown,
		log:       logging.For("bridge"),
	}
	if srv.shutdown == nil {
		srv.shutdown = interruptSelf
	}
	if srv.hub == nil {
		srv.hub = NewHub(cfg.Bus)
	}

	srv.hub.mu.Lock()
	srv.hub.onFrame = srv.handleFrame
	srv.hub.onLeave = srv.handleLeave
	srv.hub.mu.Unlock()

	srv.httpServer = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, nil
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the HTTP handler serving the bridge API.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve starts serving requests. This blocks until Stop is called.
func (s *Server) Serve() error {
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	// Shutdown only closes listeners Serve has seen.
	_ = s.listener.Close()
	return err
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/window/show", s.handleShowWindow)
	mux.HandleFunc("POST /api/settings/{profile}/{file}", s.handleSaveDocument)
	mux.HandleFunc("GET /api/app-settings/form", s.handleSettingsForm)
	mux.HandleFunc("PUT /api/app-settings", s.handleSaveAppSettings)
	mux.HandleFunc("POST /api/events/{name}", s.handleEmit)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/shutdown", s.handleShutdown)
	mux.Handle("GET /ws", s.hub)
	return mux
}

// Status describes the running daemon.
type Status struct {
	Host          string    `json:"host"`
	Port          int       `json:"port"`
	PID           int       `json:"pid"`
	StartedAt     time.Time `json:"started_at"`
	Version       string    `json:"version"`
	WindowVisible bool      `json:"window_visible"`
	Clients       int       `json:"clients"`
}

func (s *Server) status() Status {
	return Status{
		Host:          Host,
		Port:          s.port,
		PID:           os.Getpid(),
		StartedAt:     s.startedAt,
		Version:       buildinfo.Version,
		WindowVisible: s.window.IsVisible(),
		Clients:       s.hub.ClientCount(),
	}
}

// emit publishes an event on behalf of the UI or automation engine.
func (s *Server) emit(name events.Name, payload json.RawMessage) error {
	if !events.Inbound(name) {
		return fmt.Errorf("%w: %s", events.ErrUnknownEvent, name)
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return fmt.Errorf("invalid %s payload", name)
	}
	s.bus.Publish(events.Event{Name: name, Payload: payload})
	return nil
}

func (s *Server) handleFrame(c *client, f Frame) {
	switch f.Type {
	case FrameState:
		var state WindowState
		if err := json.Unmarshal(f.Payload, &state); err != nil {
			s.log.Debug("skipping malformed state frame", "client", c.id, "error", err)
			return
		}
		if s.hub.window.report(state) {
			s.window.Observe(state.Visible)
		}

	case FrameCloseRequested:
		allow := s.window.HandleCloseRequest()
		if allow {
			// Running tasks must hear about the close before the UI is
			// allowed to go away.
			s.hub.broadcast(Frame{Type: FrameEvent, Name: string(events.KillPython)})
		}
		payload, _ := json.Marshal(CloseResponse{Allow: allow})
		s.hub.reply(c, Frame{Type: FrameCloseResponse, ID: f.ID, Payload: payload})

	case FrameEvent:
		if err := s.emit(events.Name(f.Name), f.Payload); err != nil {
			s.log.Debug("rejected event from ui", "client", c.id, "error", err)
		}

	default:
		s.log.Debug("skipping unknown frame", "client", c.id, "type", f.Type)
	}
}

func (s *Server) handleLeave() {
	if s.hub.ClientCount() > 0 {
		return
	}
	if s.hub.window.disconnected() {
		s.window.Observe(false)
	}
}

// interruptSelf interrupts to the current process to trigger a graceful shutdown.
func interruptSelf() {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return
	}
	_ = p.Signal(os.Interrupt)
}
