// Package monitor serves live ffmpeg progress to WebSocket clients.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
)

const (
	// clientBuffer is how many snapshots may queue for a slow client before
	// newer ones are dropped.
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

// Message is what clients receive.
type Message struct {
	Type     string          `json:"type"` // "progress" or "done"
	Progress *types.Progress `json:"progress,omitempty"`
	ExitCode *int            `json:"exit_code,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Server broadcasts progress snapshots. It is safe for concurrent use.
type Server struct {
	listener net.Listener
	srv      *http.Server

	mu      sync.Mutex
	clients map[*client]struct{}
	last    *types.Progress
	closed  bool
	wg      sync.WaitGroup
}

// Start listens on addr and serves the monitor at /ws.
func Start(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener: ln,
		clients:  make(map[*client]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("monitor server error", "error", err)
		}
	}()

	slog.Info("progress monitor listening", "addr", ln.Addr().String())
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Publish sends a progress snapshot to every connected client.
func (s *Server) Publish(p types.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = &p
	s.broadcastLocked(Message{Type: "progress", Progress: &p})
}

// Close tells clients that the encoder exited with exitCode, then shuts the
// server down.
func (s *Server) Close(ctx context.Context, exitCode int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.broadcastLocked(Message{Type: "done", ExitCode: &exitCode})
	for c := range s.clients {
		close(c.send)
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	err := s.srv.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return err
}

// broadcastLocked queues msg for every client. Caller must hold s.mu.
func (s *Server) broadcastLocked(msg Message) {
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			slog.Debug("dropping monitor message for slow client", "type", msg.Type)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("monitor upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan Message, clientBuffer)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	if s.last != nil {
		last := *s.last
		c.send <- Message{Type: "progress", Progress: &last}
	}
	s.wg.Add(2)
	s.mu.Unlock()

	go s.writeLoop(c)
	go s.readLoop(c)
}

// writeLoop delivers queued messages until the send channel closes.
func (s *Server) writeLoop(c *client) {
	defer s.wg.Done()
	defer func() {
		_ = c.conn.Close()
	}()

	for msg := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			slog.Debug("monitor client write failed", "error", err)
			s.drop(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "recording finished"),
		time.Now().Add(writeTimeout))
}

// readLoop discards client messages and notices disconnects.
func (s *Server) readLoop(c *client) {
	defer s.wg.Done()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(c)
}

// drop unregisters c and ends its write loop.
func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}
