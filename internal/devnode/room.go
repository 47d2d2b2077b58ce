package devnode

import (
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ringchat/internal/domain"
	"ringchat/internal/services/presence"
)

// room is the public chat room: a set of joined members broadcast to every
// connected socket after each change.
type room struct {
	log *zap.Logger

	mu      sync.Mutex
	conns   map[*roomConn]struct{}
	members map[*roomConn]presence.RoomPeer
}

type roomConn struct {
	ws *websocket.Conn
	mu sync.Mutex // serializes writes
}

func (c *roomConn) send(f presence.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(f)
}

func newRoom(log *zap.Logger) *room {
	return &room{
		log:     log,
		conns:   make(map[*roomConn]struct{}),
		members: make(map[*roomConn]presence.RoomPeer),
	}
}

func (rm *room) handle(up *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			rm.log.Warn("room upgrade failed", zap.Error(err))
			return
		}
		c := &roomConn{ws: ws}
		rm.mu.Lock()
		rm.conns[c] = struct{}{}
		snap := rm.snapshotLocked()
		rm.mu.Unlock()
		_ = c.send(snap)

		defer func() {
			rm.mu.Lock()
			delete(rm.conns, c)
			_, wasMember := rm.members[c]
			delete(rm.members, c)
			rm.mu.Unlock()
			_ = ws.Close()
			if wasMember {
				rm.broadcast()
			}
		}()

		for {
			var f presence.Frame
			if err := ws.ReadJSON(&f); err != nil {
				return
			}
			addr := domain.NormalizeAddress(string(f.Address))
			rm.mu.Lock()
			switch f.Type {
			case presence.FrameJoin:
				rm.members[c] = presence.RoomPeer{Address: addr, Status: "online", Name: f.Name}
			case presence.FrameLeave:
				delete(rm.members, c)
			default:
				rm.mu.Unlock()
				rm.log.Debug("room frame ignored", zap.String("type", f.Type))
				continue
			}
			rm.mu.Unlock()
			rm.broadcast()
		}
	}
}

func (rm *room) snapshotLocked() presence.Frame {
	peers := make([]presence.RoomPeer, 0, len(rm.members))
	for _, p := range rm.members {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Address < peers[j].Address })
	return presence.Frame{Type: presence.FrameSnapshot, Peers: peers}
}

func (rm *room) broadcast() {
	rm.mu.Lock()
	snap := rm.snapshotLocked()
	conns := make([]*roomConn, 0, len(rm.conns))
	for c := range rm.conns {
		conns = append(conns, c)
	}
	rm.mu.Unlock()
	for _, c := range conns {
		if err := c.send(snap); err != nil {
			rm.log.Debug("room send failed", zap.Error(err))
		}
	}
}
