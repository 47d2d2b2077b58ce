package presence

import "ringchat/internal/domain"

// Frame types exchanged with the room server.
const (
	FrameJoin     = "join"
	FrameLeave    = "leave"
	FrameSnapshot = "snapshot"
)

// Frame is one JSON message on the room websocket. Clients send join and leave;
// the server answers every membership change with a full snapshot.
type Frame struct {
	Type    string         `json:"type"`
	Address domain.Address `json:"address,omitempty"`
	Name    string         `json:"name,omitempty"`
	Peers   []RoomPeer     `json:"peers,omitempty"`
}

// RoomPeer is one member in a snapshot.
type RoomPeer struct {
	Address domain.Address `json:"address"`
	Status  string         `json:"status"`
	Name    string         `json:"name,omitempty"`
}
