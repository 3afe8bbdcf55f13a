// Package session implements the per-connection endpoint: one goroutine
// pair per WebSocket, decoding the binary `type:u8 | payload` frame,
// dispatching CLIENT_READY/SELECT_MODE to a Handler, and draining an
// outgoing queue that the broadcast pump and lobby enqueue into.
package session

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"fight-club/internal/metrics"
	"fight-club/internal/wire"
)

// Handler receives lobby-relevant events from every session. Implemented by
// internal/lobby.Lobby; kept as an interface here so this package never
// imports lobby.
type Handler interface {
	OnConnect(s *Session)
	OnReady(s *Session)
	OnSelectMode(s *Session, mode uint8)
	OnDisconnect(s *Session)
}

// Config groups the session server's tunables.
type Config struct {
	ReadBufferSize      int
	WriteBufferSize     int
	SendQueueSize       int
	MaxConnectionsTotal int
	MaxConnectionsPerIP int
	AllowedOrigins      []string
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:      1024,
		WriteBufferSize:     1024,
		SendQueueSize:       256,
		MaxConnectionsTotal: 500,
		MaxConnectionsPerIP: 10,
	}
}

func (c Config) isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range c.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return len(origin) >= 16 && origin[:16] == "http://localhost"
}

// Session is one connected client's transport state. The game layer never
// touches the socket directly; it identifies a session by ID and calls
// Send.
type Session struct {
	ID         uint64
	RemoteAddr string

	conn *websocket.Conn
	send chan []byte

	closed    chan struct{}
	closeOnce sync.Once
}

// Send enqueues a message for the write loop; a full queue drops the
// message rather than blocking the broadcast pump. Fan-out is best-effort:
// one slow session never stalls its peers.
func (s *Session) Send(msg []byte) {
	select {
	case s.send <- msg:
	case <-s.closed:
	default:
		metrics.RecordIOFault()
	}
}

// Close tears the session down idempotently.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

// Server accepts WebSocket upgrades and owns the live session table.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	handler  Handler

	mu       sync.Mutex
	sessions map[uint64]*Session
	byIP     map[string]int
	nextID   uint64

	total atomic.Int64
}

// NewServer constructs a session server wired to handler.
func NewServer(cfg Config, handler Handler) *Server {
	srv := &Server{
		cfg:      cfg,
		handler:  handler,
		sessions: make(map[uint64]*Session),
		byIP:     make(map[string]int),
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if cfg.isAllowedOrigin(origin) {
				return true
			}
			metrics.RecordConnectionRejected("origin")
			return false
		},
	}
	return srv
}

// SessionCount returns the number of live sessions.
func (srv *Server) SessionCount() int {
	return int(srv.total.Load())
}

// Broadcast fans msg out to every live session. A slow or dead session
// never blocks this call or affects its peers.
func (srv *Server) Broadcast(msg []byte) {
	srv.mu.Lock()
	targets := make([]*Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		targets = append(targets, s)
	}
	srv.mu.Unlock()

	for _, s := range targets {
		s.Send(msg)
	}
}

// CloseAll closes every live session, e.g. after the GAME_END grace period.
func (srv *Server) CloseAll() {
	srv.mu.Lock()
	targets := make([]*Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		targets = append(targets, s)
	}
	srv.mu.Unlock()

	for _, s := range targets {
		s.Close()
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

// HandleUpgrade upgrades an HTTP request to a WebSocket and starts the
// session's read/write loops.
func (srv *Server) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	srv.mu.Lock()
	if len(srv.sessions) >= srv.cfg.MaxConnectionsTotal {
		srv.mu.Unlock()
		metrics.RecordConnectionRejected("ws_total_limit")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if srv.byIP[ip] >= srv.cfg.MaxConnectionsPerIP {
		srv.mu.Unlock()
		metrics.RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}
	srv.byIP[ip]++
	srv.mu.Unlock()

	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.releaseIP(ip)
		log.Printf("session: upgrade error: %v", err)
		return
	}

	s := &Session{
		RemoteAddr: ip,
		conn:       conn,
		send:       make(chan []byte, srv.cfg.SendQueueSize),
		closed:     make(chan struct{}),
	}

	srv.mu.Lock()
	srv.nextID++
	s.ID = srv.nextID
	srv.sessions[s.ID] = s
	srv.mu.Unlock()
	srv.total.Add(1)
	metrics.UpdateSessions(srv.SessionCount())

	srv.handler.OnConnect(s)

	go srv.writeLoop(s)
	go srv.readLoop(s, ip)
}

func (srv *Server) releaseIP(ip string) {
	srv.mu.Lock()
	if srv.byIP[ip] > 0 {
		srv.byIP[ip]--
		if srv.byIP[ip] == 0 {
			delete(srv.byIP, ip)
		}
	}
	srv.mu.Unlock()
}

func (srv *Server) writeLoop(s *Session) {
	for {
		select {
		case <-s.closed:
			return
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				metrics.RecordIOFault()
				s.Close()
				return
			}
		}
	}
}

func (srv *Server) readLoop(s *Session, ip string) {
	defer func() {
		s.Close()
		srv.mu.Lock()
		delete(srv.sessions, s.ID)
		srv.mu.Unlock()
		srv.total.Add(-1)
		srv.releaseIP(ip)
		metrics.UpdateSessions(srv.SessionCount())
		srv.handler.OnDisconnect(s)
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		typ, payload, err := wire.DecodeFrame(data)
		if err != nil {
			metrics.RecordBadPacket()
			continue
		}

		switch typ {
		case wire.MsgClientReady:
			srv.handler.OnReady(s)
		case wire.MsgSelectMode:
			mode, err := wire.DecodeModeByte(payload)
			if err != nil {
				metrics.RecordBadPacket()
				continue
			}
			srv.handler.OnSelectMode(s, mode)
		default:
			// Unknown client->server types are ignored.
		}
	}
}

// pingInterval documents the keepalive cadence a deployment may wire onto
// gorilla/websocket's built-in ping/pong; the protocol itself mandates no
// per-operation timeouts.
const pingInterval = 30 * time.Second
