package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hackademics/runjumpski/internal/core/events/bus"
	"github.com/hackademics/runjumpski/internal/core/observability/log"
	"github.com/hackademics/runjumpski/internal/core/simulation/particles"
	"github.com/hackademics/runjumpski/internal/core/simulation/projectile"
	"github.com/hackademics/runjumpski/internal/core/simulation/quality"
	"github.com/hackademics/runjumpski/internal/core/simulation/runtime"
)

// SnapshotSource supplies the cross-system telemetry view the server exposes.
type SnapshotSource interface {
	Snapshot() runtime.Snapshot
}

// Config holds telemetry server configuration
type Config struct {
	// Network settings
	ListenAddr string
	MaxClients int

	// PushInterval is the period between snapshot pushes to stream clients.
	PushInterval time.Duration

	// EventTypes are the bus event types forwarded to stream clients.
	EventTypes []string
}

// DefaultConfig returns default telemetry server configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "127.0.0.1:8090",
		MaxClients:   64,
		PushInterval: time.Second,
		EventTypes: []string{
			projectile.EventSpawned,
			projectile.EventDestroyed,
			projectile.EventExploded,
			particles.EventCreated,
			particles.EventStopped,
			quality.EventChanged,
		},
	}
}

func (c Config) validate() error {
	if c.ListenAddr == "" || c.MaxClients < 1 || c.PushInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Server exposes the running simulation over HTTP: a JSON snapshot at /stats
// and a WebSocket push stream at /ws carrying periodic snapshots plus
// forwarded simulation events.
type Server struct {
	config Config
	logger log.Log
	source SnapshotSource
	events bus.EventBus

	httpServer *http.Server
	listener   net.Listener

	// Client management
	clients     sync.Map // map[*streamClient]struct{}
	clientCount int64    // atomic

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool

	subs        []bus.Subscription
	workerGroup sync.WaitGroup
	stopChan    chan struct{}
}

// NewServer creates a telemetry server over the given snapshot source. The
// event bus may be nil; the stream then carries snapshots only.
func NewServer(config Config, source SnapshotSource, events bus.EventBus, logger log.Log) (*Server, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		config:   config,
		logger:   logger.With(log.String("component", "telemetry")),
		source:   source,
		events:   events,
		stopChan: make(chan struct{}),
	}
	s.logger.Info("Telemetry server created",
		log.String("listen_addr", config.ListenAddr),
		log.Int("max_clients", config.MaxClients))
	return s, nil
}

// Start starts the server
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return err
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.httpServer = &http.Server{Handler: mux}

	if s.events != nil {
		if err := s.subscribeEvents(); err != nil {
			atomic.StoreInt32(&s.running, 0)
			_ = listener.Close()
			return err
		}
	}

	s.workerGroup.Add(1)
	go func() {
		defer s.workerGroup.Done()
		s.pushLoop()
	}()

	go func() {
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("HTTP serve failed", log.Error(serveErr))
		}
	}()

	s.logger.Info("Telemetry server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr reports the bound listen address, useful when the config requested an
// ephemeral port.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping telemetry server")
	close(s.stopChan)

	for _, sub := range s.subs {
		_ = sub.Cancel()
	}
	s.subs = nil

	s.clients.Range(func(key, _ any) bool {
		key.(*streamClient).close()
		return true
	})

	s.workerGroup.Wait()

	err := s.httpServer.Shutdown(ctx)
	s.logger.Info("Telemetry server stopped")
	return err
}

// Close closes the server and releases all resources
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil // Already closed
	}
	if atomic.LoadInt32(&s.running) == 1 {
		return s.Stop(context.Background())
	}
	return nil
}

// Stats contains server statistics
type Stats struct {
	ClientCount int64
	Running     bool
}

// GetStats returns server statistics
func (s *Server) GetStats() Stats {
	return Stats{
		ClientCount: atomic.LoadInt64(&s.clientCount),
		Running:     atomic.LoadInt32(&s.running) == 1,
	}
}

// subscribeEvents forwards the configured bus event types to stream clients.
func (s *Server) subscribeEvents() error {
	for _, eventType := range s.config.EventTypes {
		sub, err := s.events.Subscribe(eventType, func(e bus.Event) error {
			s.broadcast(frame{Kind: "event", Type: e.Type(), Source: e.Source(), Data: e.Data()})
			return nil
		})
		if err != nil {
			return err
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

// pushLoop periodically broadcasts a fresh snapshot to every stream client.
func (s *Server) pushLoop() {
	ticker := time.NewTicker(s.config.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if atomic.LoadInt64(&s.clientCount) == 0 {
				continue
			}
			s.broadcast(frame{Kind: "snapshot", Data: s.source.Snapshot()})
		}
	}
}
