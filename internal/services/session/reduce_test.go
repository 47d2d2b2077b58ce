package session_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ringchat/internal/domain"
	"ringchat/internal/services/session"
)

const (
	self = domain.Address("0xself")
	a    = domain.Address("0xa")
	b    = domain.Address("0xb")
	cAdr = domain.Address("0xc")
)

func apply(t *testing.T, s *session.State, cmds ...session.Command) {
	t.Helper()
	for _, c := range cmds {
		if err := s.Apply(c); err != nil {
			t.Fatalf("Apply(%T): %v", c, err)
		}
	}
}

func msg(from, to domain.Address, body string) domain.Message {
	return domain.Message{From: from, To: to, Body: body}
}

func TestReconcile_Idempotent(t *testing.T) {
	s := session.NewState(self)
	snap := session.Reconcile{Peers: []domain.PeerInfo{
		{Address: a, State: domain.StateConnected, TransportID: "t1"},
		{Address: b, State: domain.StateConnecting},
		{Address: self, State: domain.StateConnected},
	}}
	apply(t, &s, snap)
	once := s.Clone()
	apply(t, &s, snap)

	if diff := cmp.Diff(once, s); diff != "" {
		t.Fatalf("second reconcile changed state (-once +twice):\n%s", diff)
	}
	if _, ok := s.Peer(self); ok {
		t.Fatal("self was added as a peer")
	}
	if p, _ := s.Peer(a); p.State != domain.StateConnected || p.TransportID != "t1" {
		t.Fatalf("peer a = %+v", p)
	}
	if _, ok := s.Session(b); !ok {
		t.Fatal("new peer has no session")
	}
}

func TestReconcile_MissingConnectedBecomesDisconnected(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.Reconcile{Peers: []domain.PeerInfo{{Address: a, State: domain.StateConnected}}},
		session.ReceiveMessage{Message: msg(a, self, "hi")},
		session.Reconcile{Peers: nil},
	)
	p, _ := s.Peer(a)
	if p.State != domain.StateDisconnected {
		t.Fatalf("state = %s, want disconnected", p.State)
	}
	cs, ok := s.Session(a)
	if !ok || len(cs.Messages) != 1 {
		t.Fatalf("session lost: %+v", cs)
	}
}

func TestReconcile_LeavesAbsentAndDialingAlone(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.ReceiveMessage{Message: msg(a, self, "from a stranger")},
		session.BeginConnect{Address: b},
		session.Reconcile{Peers: []domain.PeerInfo{{Address: b, State: domain.StateDisconnected, TransportID: "x"}}},
		session.Reconcile{Peers: nil},
	)
	if p, _ := s.Peer(a); p.State != domain.StateAbsent {
		t.Fatalf("absent peer became %s", p.State)
	}
	if p, _ := s.Peer(b); p.State != domain.StateConnecting || p.TransportID != "" {
		t.Fatalf("dialing peer was merged: %+v", p)
	}
}

func TestReconcile_ReportedConnectingIsMerged(t *testing.T) {
	tests := []struct {
		name string
		next []domain.PeerInfo
		want domain.ConnectionState
	}{
		{"node finishes handshake", []domain.PeerInfo{{Address: a, State: domain.StateConnected, TransportID: "t1"}}, domain.StateConnected},
		{"node drops peer", nil, domain.StateDisconnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session.NewState(self)
			apply(t, &s,
				session.Reconcile{Peers: []domain.PeerInfo{{Address: a, State: domain.StateConnecting}}},
				session.Reconcile{Peers: tt.next},
			)
			p, _ := s.Peer(a)
			if p.State != tt.want {
				t.Fatalf("state = %s, want %s", p.State, tt.want)
			}
			if s.IsDialing(a) {
				t.Fatalf("reported connecting peer recorded as dialing")
			}
		})
	}
}

func TestReconcile_ReportedAbsentKeepsTabMemberVisible(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.Reconcile{Peers: []domain.PeerInfo{{Address: a, State: domain.StateConnected}}},
		session.ActivateTab{Address: a},
		session.Reconcile{Peers: []domain.PeerInfo{{Address: a}}},
	)
	if p, _ := s.Peer(a); p.State != domain.StateDisconnected {
		t.Fatalf("tab member state = %s, want disconnected", p.State)
	}
}

func TestActivateTab_MarksReadAndClearsDraftAtomically(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.Reconcile{Peers: []domain.PeerInfo{{Address: a, State: domain.StateConnected}}},
		session.ReceiveMessage{Message: msg(a, self, "ping")},
		session.SetDraft{Text: "half typed"},
	)
	if cs, _ := s.Session(a); cs.ReadStatus != domain.Unread {
		t.Fatalf("precondition: session should be unread, got %s", cs.ReadStatus)
	}

	apply(t, &s, session.ActivateTab{Address: a})

	cs, _ := s.Session(a)
	if s.ActivePeer != a || cs.ReadStatus != domain.Read || s.Draft != "" || !s.HasTab(a) {
		t.Fatalf("after activate: active=%s read=%s draft=%q tabs=%v", s.ActivePeer, cs.ReadStatus, s.Draft, s.Tabs)
	}
}

func TestActivateTab_UnknownOrAbsentPeer(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s, session.ReceiveMessage{Message: msg(a, self, "x")})
	before := s.Clone()

	for _, addr := range []domain.Address{a, b} {
		if err := s.Apply(session.ActivateTab{Address: addr}); !errors.Is(err, session.ErrUnknownPeer) {
			t.Fatalf("activate %s: want ErrUnknownPeer, got %v", addr, err)
		}
	}
	if diff := cmp.Diff(before, s); diff != "" {
		t.Fatalf("rejected activation mutated state:\n%s", diff)
	}
}

func TestReceiveMessage_ReadStatus(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.Reconcile{Peers: []domain.PeerInfo{{Address: a, State: domain.StateConnected}, {Address: b, State: domain.StateConnected}}},
		session.ActivateTab{Address: a},
		session.ReceiveMessage{Message: msg(a, self, "to active")},
		session.ReceiveMessage{Message: msg(b, self, "to background")},
		session.ReceiveMessage{Message: msg(cAdr, self, "from unknown")},
	)
	want := map[domain.Address]domain.ReadStatus{a: domain.Read, b: domain.Unread, cAdr: domain.Unread}
	for addr, rs := range want {
		cs, ok := s.Session(addr)
		if !ok || cs.ReadStatus != rs {
			t.Fatalf("%s: session %+v, want %s", addr, cs, rs)
		}
	}
	if p, ok := s.Peer(cAdr); !ok || p.State != domain.StateAbsent || p.ShortName == "" {
		t.Fatalf("unknown sender peer = %+v, %v", p, ok)
	}
	if s.UnreadCount() != 2 {
		t.Fatalf("UnreadCount = %d, want 2", s.UnreadCount())
	}
}

func TestAppendOutgoing_DoesNotChangeReadStatus(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.ReceiveMessage{Message: msg(a, self, "unread")},
		session.AppendOutgoing{Message: msg(self, a, "reply")},
	)
	cs, _ := s.Session(a)
	if cs.ReadStatus != domain.Unread || len(cs.Messages) != 2 || cs.Messages[1].Body != "reply" {
		t.Fatalf("session = %+v", cs)
	}
}

func TestCloseTab_ActivatesMostRecentRemaining(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.Reconcile{Peers: []domain.PeerInfo{
			{Address: a, State: domain.StateConnected},
			{Address: b, State: domain.StateConnected},
			{Address: cAdr, State: domain.StateConnected},
		}},
		session.ActivateTab{Address: a},
		session.ActivateTab{Address: b},
		session.ActivateTab{Address: cAdr},
		session.ActivateTab{Address: a},
		session.ReceiveMessage{Message: msg(cAdr, self, "while away")},
	)

	apply(t, &s, session.CloseTab{Address: a})
	if s.ActivePeer != cAdr {
		t.Fatalf("active = %s, want %s", s.ActivePeer, cAdr)
	}
	if cs, _ := s.Session(cAdr); cs.ReadStatus != domain.Read {
		t.Fatal("newly activated tab not marked read")
	}

	apply(t, &s, session.CloseTab{Address: b})
	if s.ActivePeer != cAdr || !cmp.Equal(s.Tabs, []domain.Address{cAdr}) {
		t.Fatalf("closing a background tab moved focus: active=%s tabs=%v", s.ActivePeer, s.Tabs)
	}

	apply(t, &s, session.CloseTab{Address: cAdr}, session.CloseTab{Address: cAdr})
	if s.ActivePeer != "" || len(s.Tabs) != 0 {
		t.Fatalf("active=%s tabs=%v after closing all", s.ActivePeer, s.Tabs)
	}
}

func TestFinishConnect(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.BeginConnect{Address: a},
		session.FinishConnect{Address: a, OK: false},
	)
	if p, _ := s.Peer(a); p.State != domain.StateAbsent {
		t.Fatalf("failed first connect left %s", p.State)
	}

	apply(t, &s,
		session.BeginConnect{Address: a},
		session.FinishConnect{Address: a, OK: true},
	)
	if p, _ := s.Peer(a); p.State != domain.StateConnected || s.ActivePeer != a || !s.HasTab(a) {
		t.Fatalf("successful connect: peer=%+v active=%s tabs=%v", p, s.ActivePeer, s.Tabs)
	}

	// A result arriving after teardown is ignored.
	apply(t, &s,
		session.Reconcile{Peers: nil},
		session.BeginConnect{Address: b},
		session.MarkAllDisconnected{},
		session.FinishConnect{Address: b, OK: true},
	)
	if p, _ := s.Peer(b); p.State != domain.StateAbsent || s.IsDialing(b) {
		t.Fatalf("stale connect result applied: %s", p.State)
	}

	// A result for a peer nobody dialed is ignored.
	apply(t, &s,
		session.Reconcile{Peers: []domain.PeerInfo{{Address: cAdr, State: domain.StateConnecting}}},
		session.FinishConnect{Address: cAdr, OK: true},
	)
	if p, _ := s.Peer(cAdr); p.State != domain.StateConnecting || s.HasTab(cAdr) {
		t.Fatalf("undialed peer finished: %+v", p)
	}
}

func TestMarkAllDisconnected_RestoresDialingPeers(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.Reconcile{Peers: []domain.PeerInfo{
			{Address: a, State: domain.StateConnected},
			{Address: b, State: domain.StateDisconnected},
		}},
		session.BeginConnect{Address: b},
		session.BeginConnect{Address: cAdr},
		session.MarkAllDisconnected{},
	)
	want := map[domain.Address]domain.ConnectionState{
		a:    domain.StateDisconnected,
		b:    domain.StateDisconnected,
		cAdr: domain.StateAbsent,
	}
	got := make(map[domain.Address]domain.ConnectionState)
	for _, p := range s.SortedPeers() {
		got[p.Address] = p.State
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("states mismatch (-want +got):\n%s", diff)
	}
	if len(s.Dialing) != 0 {
		t.Fatalf("dialing not cleared: %v", s.Dialing)
	}
}

func TestFinishConnect_FailureKeepsTabMemberVisible(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.BeginConnect{Address: a},
		session.ActivateTab{Address: a},
		session.FinishConnect{Address: a, OK: false},
	)
	if p, _ := s.Peer(a); p.State != domain.StateDisconnected || !s.HasTab(a) {
		t.Fatalf("failed connect with open tab: %+v tabs=%v", p, s.Tabs)
	}
}

func TestNames_OnlyForKnownPeers(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.ReceiveMessage{Message: msg(a, self, "x")},
		session.SetExternalName{Address: a, Name: "alice.eth"},
		session.SetRegisteredName{Address: a, Name: "alice"},
		session.SetExternalName{Address: b, Name: "bob.eth"},
	)
	if p, _ := s.Peer(a); p.ExternalName != "alice.eth" || p.Name != "alice" {
		t.Fatalf("peer a = %+v", p)
	}
	if _, ok := s.Peer(b); ok {
		t.Fatal("name update created a peer")
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := session.NewState(self)
	apply(t, &s,
		session.Reconcile{Peers: []domain.PeerInfo{{Address: a, State: domain.StateConnected}}},
		session.ActivateTab{Address: a},
		session.ReceiveMessage{Message: msg(a, self, "one")},
	)
	snap := s.Clone()
	apply(t, &s, session.ReceiveMessage{Message: msg(a, self, "two")}, session.CloseTab{Address: a})

	if cs, _ := snap.Session(a); len(cs.Messages) != 1 {
		t.Fatalf("snapshot saw later message: %+v", cs.Messages)
	}
	if !snap.HasTab(a) {
		t.Fatal("snapshot tabs changed")
	}
}
