package signaling

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	serverWriteWait  = 10 * time.Second
	serverPongWait   = 60 * time.Second
	serverPingPeriod = (serverPongWait * 9) / 10
	sendQueueDepth   = 256
)

// HostEvent is delivered to the orchestrator whenever a message addressed
// to HostPeerID arrives from some peer.
type HostEvent struct {
	From string
	Env  SignalEnvelope
}

// connection is one registered WebSocket peer: a single-writer goroutine
// drains send, so callers from any goroutine may post to it without
// racing the underlying gorilla/websocket connection (which is not safe
// for concurrent writers).
type connection struct {
	id   string
	room string
	conn *websocket.Conn
	send chan SignalEnvelope

	authed bool
}

// room is a named membership set. Empty rooms are deleted.
type room struct {
	mu      sync.RWMutex
	members map[string]*connection
}

// Server is the embedded host signaling fabric: one net/http server
// serving both the WebSocket accept path and a tiny HTTP surface
// (/health, /). Requests are distinguished by whether they carry an
// Upgrade: websocket header, not by separate ports.
type Server struct {
	addr string
	auth *Authenticator

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	listener net.Listener

	mu    sync.RWMutex
	rooms map[string]*room
	conns map[string]*connection

	hostEvents chan HostEvent

	nextID     int
	nextIDLock sync.Mutex
}

// NewServer builds a fabric listening on addr ("host:port"). apiKey may be
// empty to disable auth.
func NewServer(addr, apiKey string) *Server {
	s := &Server{
		addr:       addr,
		auth:       NewAuthenticator(apiKey),
		upgrader:   websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(*http.Request) bool { return true }},
		rooms:      make(map[string]*room),
		conns:      make(map[string]*connection),
		hostEvents: make(chan HostEvent, 64),
	}
	s.httpSrv = &http.Server{Handler: http.HandlerFunc(s.routeHTTP)}
	return s
}

// HostEvents returns the channel of messages addressed to HostPeerID.
func (s *Server) HostEvents() <-chan HostEvent { return s.hostEvents }

// Start binds the listener and begins serving. It returns once bound;
// serving runs in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("signaling: listen %s: %w", s.addr, err)
	}
	s.listener = ln
	log.Info("signaling fabric listening", "addr", s.addr)

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Warn("signaling server stopped", "error", err)
		}
	}()
	return nil
}

// Stop closes the listener and every registered connection.
func (s *Server) Stop() {
	s.httpSrv.Close()
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.conn.Close()
	}
}

func (s *Server) routeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWS(w, r)
		return
	}
	switch r.URL.Path {
	case "/health":
		s.serveHealth(w, r)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "sscontrol agent signaling fabric")
	}
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clients := len(s.conns)
	rooms := len(s.rooms)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","clients":%d,"rooms":%d}`, clients, rooms)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", "error", err)
		return
	}

	c := &connection{
		id:   s.allocPeerID(),
		conn: conn,
		send: make(chan SignalEnvelope, sendQueueDepth),
	}

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()

	log.Info("peer connected", "peer_id", c.id)

	done := make(chan struct{})
	go s.writePump(c, done)
	s.readPump(c)
	close(done)

	s.removePeer(c)
}

func (s *Server) allocPeerID() string {
	s.nextIDLock.Lock()
	defer s.nextIDLock.Unlock()
	s.nextID++
	return "peer-" + strconv.Itoa(s.nextID)
}

func (s *Server) writePump(c *connection, done chan struct{}) {
	ticker := time.NewTicker(serverPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case env, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(serverWriteWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(serverWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readPump(c *connection) {
	c.conn.SetReadDeadline(time.Now().Add(serverPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(serverPongWait))
		return nil
	})

	for {
		var env SignalEnvelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		s.dispatch(c, env)
	}
}

func (s *Server) dispatch(c *connection, env SignalEnvelope) {
	if s.auth.Required() && !c.authed && env.Type != KindAuth {
		s.reply(c, SignalEnvelope{Type: KindError, Message: "auth required"})
		return
	}

	switch env.Type {
	case KindAuth:
		if err := s.auth.Verify(env); err != nil {
			s.reply(c, SignalEnvelope{Type: KindError, Message: err.Error()})
			return
		}
		c.authed = true
		s.reply(c, SignalEnvelope{Type: KindAuthSuccess, Message: "ok"})

	case KindJoin:
		s.join(c, env.RoomID)

	case KindOffer, KindAnswer, KindIce:
		env.From = c.id
		s.route(env)

	default:
		s.reply(c, SignalEnvelope{Type: KindError, Message: "unknown message type"})
	}
}

func (s *Server) join(c *connection, roomID string) {
	if roomID == "" {
		roomID = "default"
	}

	s.mu.Lock()
	rm, ok := s.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[string]*connection)}
		s.rooms[roomID] = rm
	}
	s.mu.Unlock()

	rm.mu.Lock()
	existing := make([]PeerInfo, 0, len(rm.members)+1)
	for id := range rm.members {
		existing = append(existing, PeerInfo{ID: id})
	}
	existing = append(existing, PeerInfo{ID: HostPeerID})
	rm.members[c.id] = c
	rm.mu.Unlock()

	c.room = roomID
	s.reply(c, SignalEnvelope{Type: KindPeers, Peers: existing})
	s.broadcastExcept(rm, c.id, SignalEnvelope{Type: KindNewPeer, PeerID: c.id})
}

func (s *Server) route(env SignalEnvelope) {
	if env.To == HostPeerID {
		select {
		case s.hostEvents <- HostEvent{From: env.From, Env: env}:
		default:
			log.Warn("host event queue full, dropping", "from", env.From)
		}
		return
	}

	s.mu.RLock()
	target, ok := s.conns[env.To]
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.reply(target, env)
}

// SendToPeer lets the host-side orchestrator push a message (typically an
// offer/answer/ice envelope with From=HostPeerID) to a connected viewer.
func (s *Server) SendToPeer(peerID string, env SignalEnvelope) {
	s.mu.RLock()
	target, ok := s.conns[peerID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.reply(target, env)
}

func (s *Server) reply(c *connection, env SignalEnvelope) {
	select {
	case c.send <- env:
	default:
		log.Warn("send queue full, dropping", "peer_id", c.id)
	}
}

func (s *Server) broadcastExcept(rm *room, exceptID string, env SignalEnvelope) {
	rm.mu.RLock()
	targets := make([]*connection, 0, len(rm.members))
	for id, m := range rm.members {
		if id != exceptID {
			targets = append(targets, m)
		}
	}
	rm.mu.RUnlock()
	for _, t := range targets {
		s.reply(t, env)
	}
}

func (s *Server) removePeer(c *connection) {
	s.mu.Lock()
	delete(s.conns, c.id)
	rm := s.rooms[c.room]
	s.mu.Unlock()

	if rm == nil {
		close(c.send)
		return
	}

	rm.mu.Lock()
	delete(rm.members, c.id)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		s.mu.Lock()
		delete(s.rooms, c.room)
		s.mu.Unlock()
	} else {
		s.broadcastExcept(rm, c.id, SignalEnvelope{Type: KindPeerLeft, PeerID: c.id})
	}

	close(c.send)
	log.Info("peer disconnected", "peer_id", c.id)
}
