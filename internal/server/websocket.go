package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hackademics/runjumpski/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Telemetry is a local diagnostic surface; cross-origin dashboards are
	// expected.
	CheckOrigin: func(*http.Request) bool { return true },
}

// frame is the JSON envelope pushed to stream clients.
type frame struct {
	Kind   string `json:"kind"` // "snapshot" or "event"
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
	Data   any    `json:"data"`
}

// streamClient is one connected WebSocket consumer. Writes go through a
// buffered outbound channel drained by a single writer goroutine; a slow
// client gets dropped rather than stalling the broadcast path.
type streamClient struct {
	conn      *websocket.Conn
	outbound  chan frame
	closeOnce sync.Once
	done      chan struct{}
}

func (c *streamClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if int(atomic.LoadInt64(&s.clientCount)) >= s.config.MaxClients {
		s.logger.Warn("Maximum stream clients reached, rejecting connection",
			log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", log.Error(err))
		return
	}

	client := &streamClient{
		conn:     conn,
		outbound: make(chan frame, 64),
		done:     make(chan struct{}),
	}
	s.clients.Store(client, struct{}{})
	atomic.AddInt64(&s.clientCount, 1)

	s.logger.Info("Stream client connected",
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int64("total_clients", atomic.LoadInt64(&s.clientCount)))

	// Greet with an immediate snapshot so dashboards render without waiting
	// for the first push interval.
	client.outbound <- frame{Kind: "snapshot", Data: s.source.Snapshot()}

	go s.writeClient(client)
	go s.readClient(client)
}

// writeClient drains the outbound channel onto the wire.
func (s *Server) writeClient(client *streamClient) {
	defer s.dropClient(client)

	for {
		select {
		case <-client.done:
			return
		case f := <-client.outbound:
			_ = client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteJSON(f); err != nil {
				return
			}
		}
	}
}

// readClient consumes control frames and detects disconnects. Inbound data
// frames are ignored; the stream is one-way.
func (s *Server) readClient(client *streamClient) {
	defer s.dropClient(client)

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) dropClient(client *streamClient) {
	if _, loaded := s.clients.LoadAndDelete(client); !loaded {
		return
	}
	client.close()
	atomic.AddInt64(&s.clientCount, -1)
	s.logger.Info("Stream client disconnected",
		log.Int64("total_clients", atomic.LoadInt64(&s.clientCount)))
}

// broadcast fans a frame out to every stream client, dropping clients whose
// outbound buffers are full.
func (s *Server) broadcast(f frame) {
	s.clients.Range(func(key, _ any) bool {
		client := key.(*streamClient)
		select {
		case client.outbound <- f:
		default:
			s.logger.Warn("Dropping slow stream client")
			s.dropClient(client)
		}
		return true
	})
}
