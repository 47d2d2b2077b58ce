package presence

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ringchat/internal/domain"
	"ringchat/internal/metrics"
)

// ErrNotConnected is returned by Join and Leave while no room connection is open.
var ErrNotConnected = errors.New("room not connected")

const (
	minRedial = time.Second
	maxRedial = 30 * time.Second
)

// RoomConn is the subset of *websocket.Conn the tracker uses.
type RoomConn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// DialFunc opens a room connection.
type DialFunc func(ctx context.Context, url string) (RoomConn, error)

// DialWebsocket dials url with the default gorilla dialer.
func DialWebsocket(ctx context.Context, url string) (RoomConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Tracker is the public room presence state machine.
type Tracker struct {
	url     string
	dial    DialFunc
	log     *zap.Logger
	metrics *metrics.Recorder

	writeMu sync.Mutex

	mu         sync.Mutex
	conn       RoomConn
	self       domain.Address
	name       string
	wantJoined bool
	joined     bool
	entries    map[domain.Address]domain.RoomEntry

	changes chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithDialer replaces the websocket dialer.
func WithDialer(d DialFunc) Option { return func(t *Tracker) { t.dial = d } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(t *Tracker) { t.log = l } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option { return func(t *Tracker) { t.metrics = m } }

// New returns a tracker for the room at url.
func New(url string, opts ...Option) *Tracker {
	t := &Tracker{
		url:     url,
		dial:    DialWebsocket,
		log:     zap.NewNop(),
		entries: make(map[domain.Address]domain.RoomEntry),
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetSelf sets the local address and the registered name announced on join.
func (t *Tracker) SetSelf(addr domain.Address, name string) {
	t.mu.Lock()
	t.self = domain.NormalizeAddress(string(addr))
	t.name = name
	t.mu.Unlock()
}

// Run keeps the room connection open until ctx ends.
func (t *Tracker) Run(ctx context.Context) {
	backoff := minRedial
	for {
		conn, err := t.dial(ctx, t.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Debug("room dial failed", zap.String("url", t.url), zap.Duration("retry", backoff), zap.Error(err))
			t.metrics.ObserveBackoff("presence", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxRedial)
			continue
		}
		backoff = minRedial
		t.metrics.ObserveBackoff("presence", 0)
		t.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}
	}
}

// serve reads snapshots from conn until it fails or ctx ends.
func (t *Tracker) serve(ctx context.Context, conn RoomConn) {
	t.mu.Lock()
	t.conn = conn
	rejoin, self, name := t.wantJoined, t.self, t.name
	t.mu.Unlock()
	t.notify()
	t.log.Info("room connected", zap.String("url", t.url))

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
		t.mu.Lock()
		t.conn = nil
		t.joined = false
		t.mu.Unlock()
		t.notify()
	}()

	if rejoin && self != "" {
		if err := t.write(conn, Frame{Type: FrameJoin, Address: self, Name: name}); err != nil {
			return
		}
	}
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() == nil {
				t.log.Debug("room connection lost", zap.Error(err))
			}
			return
		}
		if f.Type == FrameSnapshot {
			t.applySnapshot(f.Peers)
		}
	}
}

func (t *Tracker) applySnapshot(peers []RoomPeer) {
	t.mu.Lock()
	next := make(map[domain.Address]domain.RoomEntry, len(peers))
	for _, p := range peers {
		a := domain.NormalizeAddress(string(p.Address))
		e := domain.RoomEntry{Address: a, Status: p.Status, Name: p.Name}
		if old, ok := t.entries[a]; ok {
			e.ExternalName = old.ExternalName
		}
		next[a] = e
	}
	t.entries = next
	_, t.joined = next[t.self]
	if t.self == "" {
		t.joined = false
	}
	n := len(next)
	t.mu.Unlock()
	t.metrics.SetRoomMembers(n)
	t.notify()
}

func (t *Tracker) write(conn RoomConn, f Frame) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteJSON(f)
}

// Join announces the local address. It is remembered across reconnects.
func (t *Tracker) Join() error {
	t.mu.Lock()
	t.wantJoined = true
	conn, self, name := t.conn, t.self, t.name
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if self == "" {
		return errors.New("join room: no local address")
	}
	return t.write(conn, Frame{Type: FrameJoin, Address: self, Name: name})
}

// Leave withdraws the local address.
func (t *Tracker) Leave() error {
	t.mu.Lock()
	t.wantJoined = false
	conn, self := t.conn, t.self
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return t.write(conn, Frame{Type: FrameLeave, Address: self})
}

// Connected reports whether the room connection is open.
func (t *Tracker) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Joined reports whether the local address was in the last snapshot.
func (t *Tracker) Joined() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.joined
}

// Lookup returns the room entry for addr.
func (t *Tracker) Lookup(addr domain.Address) (domain.RoomEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[domain.NormalizeAddress(string(addr))]
	return e, ok
}

// Entries returns the current members ordered by address.
func (t *Tracker) Entries() []domain.RoomEntry {
	t.mu.Lock()
	out := make([]domain.RoomEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.mu.Unlock()
	slices.SortFunc(out, func(a, b domain.RoomEntry) int {
		return strings.Compare(string(a.Address), string(b.Address))
	})
	return out
}

// SetExternalName records a verified external name for a current member.
func (t *Tracker) SetExternalName(addr domain.Address, name string) {
	a := domain.NormalizeAddress(string(addr))
	t.mu.Lock()
	e, ok := t.entries[a]
	if ok {
		e.ExternalName = name
		t.entries[a] = e
	}
	t.mu.Unlock()
	if ok {
		t.notify()
	}
}

// Changes delivers a coalesced notification after each change.
func (t *Tracker) Changes() <-chan struct{} { return t.changes }

func (t *Tracker) notify() {
	select {
	case t.changes <- struct{}{}:
	default:
	}
}
