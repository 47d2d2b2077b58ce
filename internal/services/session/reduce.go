package session

import (
	"errors"
	"fmt"
	"slices"

	"ringchat/internal/domain"
)

var (
	// ErrUnknownPeer is returned when a tab is requested for a peer that is not
	// known or has never had a transport.
	ErrUnknownPeer = errors.New("unknown peer")
	// ErrNoActiveConnection is returned when sending to a peer that is not connected.
	ErrNoActiveConnection = errors.New("no active connection to peer")
	// ErrNoClient is returned when a command needs a connected network client.
	ErrNoClient = errors.New("network client not connected")
	// ErrUnknownHandshake is returned when an answer does not match a pending offer.
	ErrUnknownHandshake = errors.New("answer does not match a pending offer")
)

// Apply performs one transition on s. It panics on a Command type outside the
// closed set.
func (s *State) Apply(cmd Command) error {
	switch c := cmd.(type) {
	case Reconcile:
		s.reconcile(c.Peers)
	case BeginConnect:
		p := s.ensurePeer(c.Address)
		if _, ok := s.Dialing[c.Address]; !ok {
			s.Dialing[c.Address] = p.State
		}
		p.State = domain.StateConnecting
		s.Peers[c.Address] = p
	case FinishConnect:
		s.finishConnect(c)
	case ActivateTab:
		return s.activate(c.Address)
	case CloseTab:
		s.closeTab(c.Address)
	case ReceiveMessage:
		status := domain.Unread
		if c.Message.From == s.ActivePeer {
			status = domain.Read
		}
		s.appendMessage(c.Message.From, c.Message, status)
	case AppendOutgoing:
		s.appendMessage(c.Message.To, c.Message, "")
	case SetDraft:
		s.Draft = c.Text
	case SetExternalName:
		if p, ok := s.Peers[c.Address]; ok {
			p.ExternalName = c.Name
			s.Peers[c.Address] = p
		}
	case SetRegisteredName:
		if p, ok := s.Peers[c.Address]; ok {
			p.Name = c.Name
			s.Peers[c.Address] = p
		}
	case MarkAllDisconnected:
		for a := range s.Dialing {
			s.endDial(a)
		}
		for a, p := range s.Peers {
			if p.State == domain.StateConnected || p.State == domain.StateConnecting {
				p.State = domain.StateDisconnected
				s.Peers[a] = p
			}
		}
	case SetClientStatus:
		s.ClientStatus = c.Status
	default:
		panic(fmt.Sprintf("session: unknown command %T", cmd))
	}
	return nil
}

func (s *State) reconcile(snapshot []domain.PeerInfo) {
	seen := make(map[domain.Address]struct{}, len(snapshot))
	for _, info := range snapshot {
		a := domain.NormalizeAddress(string(info.Address))
		if a == "" || a == s.Self {
			continue
		}
		seen[a] = struct{}{}

		p, known := s.Peers[a]
		if !known {
			p = s.ensurePeer(a)
			p.State = info.State
			p.TransportID = info.TransportID
			s.Peers[a] = p
			continue
		}
		if s.IsDialing(a) {
			continue
		}
		if info.TransportID != "" {
			p.TransportID = info.TransportID
		}
		next := info.State
		if next == domain.StateAbsent && p.State != domain.StateAbsent {
			next = domain.StateDisconnected
		}
		p.State = next
		s.Peers[a] = p
	}
	for a, p := range s.Peers {
		if _, ok := seen[a]; ok || s.IsDialing(a) {
			continue
		}
		if p.State == domain.StateConnected || p.State == domain.StateConnecting {
			p.State = domain.StateDisconnected
			s.Peers[a] = p
		}
	}
}

func (s *State) finishConnect(c FinishConnect) {
	if !s.IsDialing(c.Address) {
		return
	}
	if !c.OK {
		s.endDial(c.Address)
		return
	}
	delete(s.Dialing, c.Address)
	p := s.Peers[c.Address]
	p.State = domain.StateConnected
	s.Peers[c.Address] = p
	if !s.HasTab(c.Address) {
		s.Tabs = append(s.Tabs, c.Address)
	}
	if s.ActivePeer == "" {
		s.focus(c.Address)
	}
}

// endDial drops a from Dialing and restores the state it had before the dial.
// A peer with an open tab never goes back to absent.
func (s *State) endDial(a domain.Address) {
	prior, ok := s.Dialing[a]
	if !ok {
		return
	}
	delete(s.Dialing, a)
	p, ok := s.Peers[a]
	if !ok {
		return
	}
	if prior == domain.StateAbsent && s.HasTab(a) {
		prior = domain.StateDisconnected
	}
	p.State = prior
	s.Peers[a] = p
}

func (s *State) activate(a domain.Address) error {
	p, ok := s.Peers[a]
	if !ok || p.State == domain.StateAbsent {
		return fmt.Errorf("activate %s: %w", a, ErrUnknownPeer)
	}
	if !s.HasTab(a) {
		s.Tabs = append(s.Tabs, a)
	}
	s.focus(a)
	return nil
}

// focus makes a, an open tab, the active peer.
func (s *State) focus(a domain.Address) {
	s.ensurePeer(a)
	s.ActivePeer = a
	s.setRead(a, domain.Read)
	s.Draft = ""
}

func (s *State) closeTab(a domain.Address) {
	i := slices.Index(s.Tabs, a)
	if i < 0 {
		return
	}
	s.Tabs = slices.Delete(s.Tabs, i, i+1)
	s.setRead(a, domain.Read)
	if s.ActivePeer != a {
		return
	}
	if len(s.Tabs) == 0 {
		s.ActivePeer = ""
		s.Draft = ""
		return
	}
	s.focus(s.Tabs[len(s.Tabs)-1])
}
