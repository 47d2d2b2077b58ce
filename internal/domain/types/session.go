package types

// Peer is a remote node the coordinator has observed.
type Peer struct {
	Address      Address         `json:"address"`
	State        ConnectionState `json:"state"`
	TransportID  string          `json:"transport_id,omitempty"`
	Name         string          `json:"name,omitempty"`
	ExternalName string          `json:"external_name,omitempty"`
	ShortName    string          `json:"short_name,omitempty"`
}

// PeerInfo is one entry of a point-in-time peer-list snapshot.
type PeerInfo struct {
	Address     Address         `json:"address"`
	TransportID string          `json:"transport_id,omitempty"`
	State       ConnectionState `json:"state"`
}

// ChatSession holds the ordered message log for a peer.
type ChatSession struct {
	Messages   []Message  `json:"messages"`
	ReadStatus ReadStatus `json:"read_status"`
}

// RoomEntry is one address present in the public room.
type RoomEntry struct {
	Address      Address `json:"address"`
	Status       string  `json:"status,omitempty"`
	Name         string  `json:"name,omitempty"`
	ExternalName string  `json:"external_name,omitempty"`
}

// Settings are the two persisted connection settings.
type Settings struct {
	RelayURL string `json:"relay_url"`
	NodeURL  string `json:"node_url"`
}

// Complete reports whether both settings are present.
func (s Settings) Complete() bool { return s.RelayURL != "" && s.NodeURL != "" }
