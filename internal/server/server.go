// Package server exposes a running search over HTTP: JSON endpoints for
// status and task-wide controls, and a WebSocket stream of worker events.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"hashsearch/internal/async"
	"hashsearch/internal/logging"
	"hashsearch/internal/search"
)

// Controller is the task-wide control surface the server drives.
type Controller interface {
	PauseAll()
	ResumeAll()
	StopAll()
	SetReportingInterval(time.Duration) error
	ReportingInterval() time.Duration
	Paused() bool
	Stopped() bool
	Snapshot() []search.WorkerSnapshot
}

// Config configures the HTTP server.
type Config struct {
	Addr            string
	AllowOrigins    []string
	ShutdownTimeout time.Duration
	Debug           bool
	Version         string
	// EventBuffer is the per-client WebSocket queue length.
	EventBuffer int
}

// Server is a search.Sink that republishes worker events to WebSocket
// clients and serves the control API.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
	hub        *Hub

	logger    logging.Logger
	tracer    trace.Tracer
	config    Config
	startTime time.Time

	mu     sync.RWMutex
	ctrl   Controller
	info   *TaskInfo
	result *ResultView
}

var _ search.Sink = (*Server)(nil)

// New builds a server. The task is attached later with Attach because the
// task needs the server as its sink before it exists.
func New(config Config, logger logging.Logger, tracer trace.Tracer) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 256
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("hashsearch")
	}

	s := &Server{
		engine:    gin.New(),
		hub:       NewHub(config.EventBuffer),
		logger:    logging.OrNop(logger),
		tracer:    tracer,
		config:    config,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(config.AllowOrigins),
		},
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger(s.logger, s.tracer))

	corsConfig := cors.DefaultConfig()
	if len(config.AllowOrigins) == 0 || containsWildcard(config.AllowOrigins) {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = config.AllowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowWebSockets = true
	s.engine.Use(cors.New(corsConfig))

	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.Use(jsonMiddleware())

	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)
	api.POST("/pause", s.requireTask(s.handlePause))
	api.POST("/resume", s.requireTask(s.handleResume))
	api.POST("/stop", s.requireTask(s.handleStop))
	api.PUT("/interval", s.requireTask(s.handleInterval))

	s.engine.GET("/api/stream", s.handleWebSocket)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Attach installs the controlled task.
func (s *Server) Attach(ctrl Controller, info TaskInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = ctrl
	s.info = &info
}

// Finish records the outcome of the run and tells stream clients.
func (s *Server) Finish(res search.Result) {
	view := newResultView(res)
	s.mu.Lock()
	s.result = view
	s.mu.Unlock()
	s.hub.Publish(Event{Type: EventFinished, WorkerID: res.WorkerID, Result: view, Timestamp: time.Now()})
}

func (s *Server) controller() (Controller, *TaskInfo, *ResultView) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctrl, s.info, s.result
}

// OnProgress implements search.Sink.
func (s *Server) OnProgress(p search.Progress) {
	s.hub.Publish(Event{
		Type:       EventProgress,
		WorkerID:   p.WorkerID,
		Candidate:  p.Candidate,
		Recent:     p.Recent,
		Rate:       p.Rate,
		Cumulative: p.Cumulative,
		Timestamp:  time.Now(),
	})
}

// OnMatchFound implements search.Sink.
func (s *Server) OnMatchFound(workerID int, candidate string) {
	s.hub.Publish(Event{Type: EventMatch, WorkerID: workerID, Candidate: candidate, Matched: true, Timestamp: time.Now()})
}

// OnWorkerStopped implements search.Sink.
func (s *Server) OnWorkerStopped(workerID int, matched bool) {
	s.hub.Publish(Event{Type: EventStopped, WorkerID: workerID, Matched: matched, Timestamp: time.Now()})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("http server listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	async.Go(s.logger, "http-server", func() {
		defer close(errCh)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})

	select {
	case err := <-errCh:
		s.hub.Close()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http server shutdown: %v", err)
		return err
	}
	s.logger.Info("http server stopped")
	return <-errCh
}
