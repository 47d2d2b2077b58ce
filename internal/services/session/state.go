package session

import (
	"maps"
	"slices"
	"strings"

	"ringchat/internal/domain"
	"ringchat/internal/services/names"
)

// State is the coordinator's complete view. Every key of Sessions is also a key
// of Peers, and every member of Tabs is a known peer whose state is not absent.
// Dialing holds the peers this process is connecting to, keyed to the state
// each had before the dial; every such peer is connecting.
type State struct {
	Self         domain.Address
	Peers        map[domain.Address]domain.Peer
	Sessions     map[domain.Address]domain.ChatSession
	Dialing      map[domain.Address]domain.ConnectionState
	Tabs         []domain.Address
	ActivePeer   domain.Address
	Draft        string
	ClientStatus domain.ClientStatus
}

// NewState returns an empty state for self.
func NewState(self domain.Address) State {
	return State{
		Self:         self,
		Peers:        make(map[domain.Address]domain.Peer),
		Sessions:     make(map[domain.Address]domain.ChatSession),
		Dialing:      make(map[domain.Address]domain.ConnectionState),
		ClientStatus: domain.ClientDisconnected,
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Peers = make(map[domain.Address]domain.Peer, len(s.Peers))
	for a, p := range s.Peers {
		out.Peers[a] = p
	}
	out.Sessions = make(map[domain.Address]domain.ChatSession, len(s.Sessions))
	for a, cs := range s.Sessions {
		cs.Messages = slices.Clone(cs.Messages)
		out.Sessions[a] = cs
	}
	out.Dialing = maps.Clone(s.Dialing)
	out.Tabs = slices.Clone(s.Tabs)
	return out
}

// Peer returns the peer at a, if known.
func (s State) Peer(a domain.Address) (domain.Peer, bool) {
	p, ok := s.Peers[a]
	return p, ok
}

// Session returns the chat session with a, if any.
func (s State) Session(a domain.Address) (domain.ChatSession, bool) {
	cs, ok := s.Sessions[a]
	return cs, ok
}

// IsDialing reports whether a connect to a started here is in flight.
func (s State) IsDialing(a domain.Address) bool {
	_, ok := s.Dialing[a]
	return ok
}

// HasTab reports whether a has an open tab.
func (s State) HasTab(a domain.Address) bool { return slices.Contains(s.Tabs, a) }

// UnreadCount returns the number of sessions with unread messages.
func (s State) UnreadCount() int {
	n := 0
	for _, cs := range s.Sessions {
		if cs.ReadStatus == domain.Unread {
			n++
		}
	}
	return n
}

// SortedPeers returns known peers ordered by address.
func (s State) SortedPeers() []domain.Peer {
	out := make([]domain.Peer, 0, len(s.Peers))
	for _, p := range s.Peers {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Peer) int {
		return strings.Compare(string(a.Address), string(b.Address))
	})
	return out
}

// ensurePeer returns the peer at a, creating it absent with an empty session.
func (s *State) ensurePeer(a domain.Address) domain.Peer {
	p, ok := s.Peers[a]
	if !ok {
		p = domain.Peer{Address: a, State: domain.StateAbsent, ShortName: names.FormatAddress(a)}
		s.Peers[a] = p
	}
	if _, ok := s.Sessions[a]; !ok {
		s.Sessions[a] = domain.ChatSession{ReadStatus: domain.Read}
	}
	return p
}

func (s *State) setRead(a domain.Address, status domain.ReadStatus) {
	if cs, ok := s.Sessions[a]; ok {
		cs.ReadStatus = status
		s.Sessions[a] = cs
	}
}

func (s *State) appendMessage(a domain.Address, m domain.Message, status domain.ReadStatus) {
	s.ensurePeer(a)
	cs := s.Sessions[a]
	cs.Messages = append(cs.Messages, m)
	if status != "" {
		cs.ReadStatus = status
	}
	s.Sessions[a] = cs
}
