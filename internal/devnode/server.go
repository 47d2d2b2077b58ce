package devnode

import (
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ringchat/internal/domain"
	"ringchat/internal/node"
)

// eventBuffer bounds the per-session queue of undelivered events.
const eventBuffer = 256

// Server is the in-memory node.
type Server struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session         // token -> session
	byAddr   map[domain.Address]*session // address -> live session
	links    map[linkKey]*link
	offers   map[string]pendingOffer  // offer id -> offer
	answers  map[string]pendingAnswer // answer id -> answer

	room  *room
	names *registry
}

type session struct {
	token   string
	address domain.Address
	relay   string
	events  chan node.Event
	done    chan struct{}
}

type linkKey struct{ a, b domain.Address }

func keyOf(x, y domain.Address) linkKey {
	if x > y {
		x, y = y, x
	}
	return linkKey{a: x, b: y}
}

type link struct {
	id    string
	state string
}

type pendingOffer struct {
	from   domain.Address
	target domain.Address
}

type pendingAnswer struct {
	offerID string
	from    domain.Address
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// WithName registers a static external name for address.
func WithName(address domain.Address, name string) Option {
	return func(s *Server) { s.names.add(domain.NormalizeAddress(string(address)), name) }
}

// New returns an empty node.
func New(opts ...Option) *Server {
	s := &Server{
		log:      zap.NewNop(),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		sessions: make(map[string]*session),
		byAddr:   make(map[domain.Address]*session),
		links:    make(map[linkKey]*link),
		offers:   make(map[string]pendingOffer),
		answers:  make(map[string]pendingAnswer),
		names:    newRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.room = newRoom(s.log)
	return s
}

// Handler returns the HTTP routes of the node.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc", s.handleRPC)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /room", s.room.handle(&s.upgrader))
	mux.HandleFunc("GET /reverse/{address}", s.names.handleReverse)
	mux.HandleFunc("GET /resolve/{name}", s.names.handleResolve)
	return mux
}

// openSession registers address, replacing any previous session it held.
func (s *Server) openSession(address domain.Address, relay string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byAddr[address]; ok {
		s.dropLocked(old)
	}
	sess := &session{
		token:   uuid.NewString(),
		address: address,
		relay:   relay,
		events:  make(chan node.Event, eventBuffer),
		done:    make(chan struct{}),
	}
	s.sessions[sess.token] = sess
	s.byAddr[address] = sess
	s.log.Info("session opened", zap.String("address", address.String()), zap.String("relay", relay))
	return sess.token
}

func (s *Server) closeSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(sess)
}

func (s *Server) dropLocked(sess *session) {
	if _, ok := s.sessions[sess.token]; !ok {
		return
	}
	delete(s.sessions, sess.token)
	if s.byAddr[sess.address] == sess {
		delete(s.byAddr, sess.address)
	}
	for k, l := range s.links {
		if k.a != sess.address && k.b != sess.address {
			continue
		}
		l.state = "closed"
		other := k.a
		if other == sess.address {
			other = k.b
		}
		s.pushLocked(other, node.Event{Type: node.EventPeer, Address: sess.address, State: l.state})
	}
	close(sess.done)
	s.log.Info("session closed", zap.String("address", sess.address.String()))
}

func (s *Server) lookup(token string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	return sess, ok
}

// setLinkLocked records the state between two addresses and notifies both.
func (s *Server) setLinkLocked(x, y domain.Address, state string) {
	k := keyOf(x, y)
	l, ok := s.links[k]
	if !ok {
		l = &link{id: uuid.NewString()}
		s.links[k] = l
	}
	l.state = state
	s.pushLocked(x, node.Event{Type: node.EventPeer, Address: y, State: state})
	s.pushLocked(y, node.Event{Type: node.EventPeer, Address: x, State: state})
}

func (s *Server) linkStateLocked(x, y domain.Address) string {
	if l, ok := s.links[keyOf(x, y)]; ok {
		return l.state
	}
	return ""
}

// pushLocked queues ev for address; events for absent or slow sessions are dropped.
func (s *Server) pushLocked(address domain.Address, ev node.Event) {
	sess, ok := s.byAddr[address]
	if !ok {
		return
	}
	select {
	case sess.events <- ev:
	default:
		s.log.Warn("event dropped", zap.String("address", address.String()), zap.String("type", ev.Type))
	}
}

// peersLocked lists every address other than self that has a live session or a link.
func (s *Server) peersLocked(self domain.Address) []node.PeerEntry {
	seen := map[domain.Address]node.PeerEntry{}
	for addr := range s.byAddr {
		if addr != self {
			seen[addr] = node.PeerEntry{Address: addr}
		}
	}
	for k, l := range s.links {
		var other domain.Address
		switch self {
		case k.a:
			other = k.b
		case k.b:
			other = k.a
		default:
			continue
		}
		seen[other] = node.PeerEntry{Address: other, TransportID: l.id, State: l.state}
	}
	out := make([]node.PeerEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(r.Header.Get(node.SessionHeader))
	if !ok {
		http.Error(w, "unknown session", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("events upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The reader only notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-sess.events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-sess.done:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			return
		case <-gone:
			return
		}
	}
}
