package ui_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ringchat/internal/domain"
	"ringchat/internal/services/session"
	"ringchat/internal/ui"
)

const (
	self  = domain.Address("0x0000000000000000000000000000000000000001")
	alice = domain.Address("0x1111111111111111111111111111111111111111")
	bob   = domain.Address("0x2222222222222222222222222222222222222222")
)

type fakeCoord struct {
	mu       sync.Mutex
	state    session.State
	changes  chan struct{}
	connects []domain.Address
	sent     []string
	drafts   []string
	offers   []domain.Address
	locks    int
}

func newFakeCoord(t *testing.T, cmds ...session.Command) *fakeCoord {
	t.Helper()
	s := session.NewState(self)
	for _, c := range cmds {
		if err := s.Apply(c); err != nil {
			t.Fatalf("Apply(%T): %v", c, err)
		}
	}
	return &fakeCoord{state: s, changes: make(chan struct{}, 1)}
}

func (f *fakeCoord) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

func (f *fakeCoord) Changes() <-chan struct{} { return f.changes }

func (f *fakeCoord) RequestConnect(_ context.Context, addr domain.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, addr)
	return nil
}

func (f *fakeCoord) ActivateTab(addr domain.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Apply(session.ActivateTab{Address: addr})
}

func (f *fakeCoord) CloseTab(addr domain.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.state.Apply(session.CloseTab{Address: addr})
}

func (f *fakeCoord) SetDraft(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, text)
}

func (f *fakeCoord) SetRegisteredName(addr domain.Address, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.state.Apply(session.SetRegisteredName{Address: addr, Name: name})
}

func (f *fakeCoord) SendMessage(_ context.Context, _ domain.Address, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, body)
	return nil
}

func (f *fakeCoord) CreateOffer(_ context.Context, target domain.Address) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers = append(f.offers, target)
	return "offer-blob-123", nil
}

func (f *fakeCoord) AnswerOffer(context.Context, string) (string, error) { return "answer-blob", nil }

func (f *fakeCoord) AcceptAnswer(context.Context, string) error { return nil }

func (f *fakeCoord) PendingOffers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.offers)
}

func (f *fakeCoord) ClearIdentity(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks++
	_ = f.state.Apply(session.MarkAllDisconnected{})
	_ = f.state.Apply(session.SetClientStatus{Status: domain.ClientDisconnected})
}

type fakeRoom struct {
	entries []domain.RoomEntry
	joins   int
}

func (r *fakeRoom) Join() error { r.joins++; return nil }
func (r *fakeRoom) Leave() error { return nil }
func (r *fakeRoom) Connected() bool { return true }
func (r *fakeRoom) Joined() bool { return r.joins > 0 }
func (r *fakeRoom) Changes() <-chan struct{} { return make(chan struct{}) }
func (r *fakeRoom) Entries() []domain.RoomEntry { return r.entries }

func (r *fakeRoom) Lookup(addr domain.Address) (domain.RoomEntry, bool) {
	for _, e := range r.entries {
		if e.Address == addr {
			return e, true
		}
	}
	return domain.RoomEntry{}, false
}

type fakeResolver struct{ got []domain.Address }

func (r *fakeResolver) ResolveAsync(addrs ...domain.Address) { r.got = append(r.got, addrs...) }

func connectedPeers(addrs ...domain.Address) session.Reconcile {
	var peers []domain.PeerInfo
	for _, a := range addrs {
		peers = append(peers, domain.PeerInfo{Address: a, State: domain.StateConnected})
	}
	return session.Reconcile{Peers: peers}
}

func newModel(t *testing.T, fc *fakeCoord, opts ...ui.Option) tea.Model {
	t.Helper()
	var m tea.Model = ui.New(context.Background(), fc, opts...)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 140, Height: 48})
	return m
}

// submit types line and presses enter, running the resulting command once.
func submit(t *testing.T, m tea.Model, line string) tea.Model {
	t.Helper()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		return m
	}
	if msg := cmd(); msg != nil {
		m, _ = m.Update(msg)
	}
	return m
}

func TestConnect_ValidatesAndRequests(t *testing.T) {
	fc := newFakeCoord(t)
	m := newModel(t, fc)

	m = submit(t, m, "/connect nothex")
	if len(fc.connects) != 0 {
		t.Fatalf("invalid address must not connect")
	}
	if !strings.Contains(m.View(), "invalid address") {
		t.Fatalf("expected invalid address notice in view")
	}

	m = submit(t, m, "/connect "+strings.ToUpper(string(alice)[2:]))
	if len(fc.connects) != 1 || fc.connects[0] != alice {
		t.Fatalf("connects = %v, want [%s]", fc.connects, alice)
	}

	_ = submit(t, m, "/connect "+string(self))
	if len(fc.connects) != 1 {
		t.Fatalf("self connect must be refused")
	}
}

func TestSend_RequiresActiveTab(t *testing.T) {
	fc := newFakeCoord(t)
	m := submit(t, newModel(t, fc), "hello")
	if len(fc.sent) != 0 {
		t.Fatalf("sent without a tab: %v", fc.sent)
	}
	if !strings.Contains(m.View(), "no open tab") {
		t.Fatalf("expected no-tab notice")
	}

	fc = newFakeCoord(t, connectedPeers(alice), session.ActivateTab{Address: alice})
	_ = submit(t, newModel(t, fc), "hello alice")
	if len(fc.sent) != 1 || fc.sent[0] != "hello alice" {
		t.Fatalf("sent = %v", fc.sent)
	}
}

func TestTyping_UpdatesDraft(t *testing.T) {
	fc := newFakeCoord(t)
	m := newModel(t, fc)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(fc.drafts) != 2 || fc.drafts[0] != "hi" || fc.drafts[1] != "" {
		t.Fatalf("drafts = %q", fc.drafts)
	}
}

func TestTab_SwitchesAndRendersSession(t *testing.T) {
	fc := newFakeCoord(t,
		connectedPeers(alice, bob),
		session.ActivateTab{Address: alice},
		session.ActivateTab{Address: bob},
		session.ReceiveMessage{Message: domain.Message{From: alice, To: self, Body: "ping from alice"}},
	)
	m := newModel(t, fc)
	if !strings.Contains(m.View(), "new") {
		t.Fatalf("expected unread badge for alice")
	}

	m = submit(t, m, "/tab 1")
	if got := fc.Snapshot().ActivePeer; got != alice {
		t.Fatalf("active = %s, want %s", got, alice)
	}
	if !strings.Contains(m.View(), "ping from alice") {
		t.Fatalf("expected alice's message in view")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := fc.Snapshot().ActivePeer; got != bob {
		t.Fatalf("active after tab key = %s, want %s", got, bob)
	}
	_ = submit(t, m, "/tab 9")
	if got := fc.Snapshot().ActivePeer; got != bob {
		t.Fatalf("unknown tab changed active peer to %s", got)
	}
}

func TestOffer_ShowsBlob(t *testing.T) {
	fc := newFakeCoord(t)
	m := submit(t, newModel(t, fc), "/offer "+string(bob))
	if len(fc.offers) != 1 || fc.offers[0] != bob {
		t.Fatalf("offers = %v", fc.offers)
	}
	if !strings.Contains(m.View(), "offer-blob-123") {
		t.Fatalf("expected offer blob in view")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if strings.Contains(m.View(), "esc to close") {
		t.Fatalf("overlay should be dismissed")
	}
}

func TestLock_ClearsIdentity(t *testing.T) {
	fc := newFakeCoord(t, connectedPeers(alice), session.ActivateTab{Address: alice})
	m := submit(t, newModel(t, fc), "/lock")
	if fc.locks != 1 {
		t.Fatalf("ClearIdentity called %d times", fc.locks)
	}
	if !strings.Contains(m.View(), "identity locked") {
		t.Fatalf("expected lock notice in view")
	}
	if p, _ := fc.Snapshot().Peer(alice); p.State != domain.StateDisconnected {
		t.Fatalf("peer state after lock: %s", p.State)
	}
}

func TestSettings_ReadOnlyWithoutUpdater(t *testing.T) {
	fc := newFakeCoord(t)
	m := submit(t, newModel(t, fc), "/relay ws://relay")
	if !strings.Contains(m.View(), "cannot be changed") {
		t.Fatalf("expected read-only notice")
	}

	var saved domain.Settings
	update := func(_ context.Context, s domain.Settings) error { saved = s; return nil }
	m = newModel(t, fc, ui.WithSettings(domain.Settings{RelayURL: "ws://old", NodeURL: "http://n"}, update))
	_ = submit(t, m, "/relay ws://new")
	if saved.RelayURL != "ws://new" || saved.NodeURL != "http://n" {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestResolver_AskedForKnownPeers(t *testing.T) {
	fc := newFakeCoord(t, connectedPeers(alice))
	r := &fakeResolver{}
	_ = newModel(t, fc, ui.WithResolver(r))
	if len(r.got) != 1 || r.got[0] != alice {
		t.Fatalf("resolver got %v", r.got)
	}
}

func TestRoom_NamesAndJoin(t *testing.T) {
	fc := newFakeCoord(t, connectedPeers(alice))
	room := &fakeRoom{entries: []domain.RoomEntry{
		{Address: alice, Status: "online", Name: "alice"},
		{Address: bob, Status: "online"},
	}}
	m := newModel(t, fc, ui.WithRoom(room))

	if p, _ := fc.Snapshot().Peer(alice); p.Name != "alice" {
		t.Fatalf("registered name not copied to peer: %+v", p)
	}
	view := m.View()
	for _, want := range []string{"public room", "alice", "0x2222...2222", "room=online"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}

	_ = submit(t, m, "/join")
	if room.joins != 1 {
		t.Fatalf("joins = %d", room.joins)
	}
}
