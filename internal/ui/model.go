package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"ringchat/internal/domain"
	"ringchat/internal/services/session"
)

const maxInfoLines = 50

// Coordinator is the part of the session coordinator the view drives.
type Coordinator interface {
	Snapshot() session.State
	Changes() <-chan struct{}

	RequestConnect(ctx context.Context, addr domain.Address) error
	ActivateTab(addr domain.Address) error
	CloseTab(addr domain.Address)
	SetDraft(text string)
	SetRegisteredName(addr domain.Address, name string)
	SendMessage(ctx context.Context, to domain.Address, body string) error

	CreateOffer(ctx context.Context, target domain.Address) (string, error)
	AnswerOffer(ctx context.Context, offer string) (string, error)
	AcceptAnswer(ctx context.Context, answer string) error
	PendingOffers() int

	ClearIdentity(ctx context.Context)
}

// Room is the public room presence the view renders and joins.
type Room interface {
	Join() error
	Leave() error
	Connected() bool
	Joined() bool
	Lookup(addr domain.Address) (domain.RoomEntry, bool)
	Entries() []domain.RoomEntry
	Changes() <-chan struct{}
}

// Resolver starts out-of-band external name lookups.
type Resolver interface {
	ResolveAsync(addrs ...domain.Address)
}

// SettingsFunc persists new connection settings and rebuilds the client.
type SettingsFunc func(ctx context.Context, s domain.Settings) error

type (
	stateMsg    struct{}
	roomMsg     struct{}
	infoMsg     struct{ line string }
	blobMsg     struct{ title, blob string }
	settingsMsg struct{ settings domain.Settings }
)

// Option configures a Model.
type Option func(*Model)

// WithRoom enables the public room panel and /join, /leave.
func WithRoom(r Room) Option { return func(m *Model) { m.room = r } }

// WithResolver enables external name lookups for peers as they appear.
func WithResolver(r Resolver) Option { return func(m *Model) { m.resolver = r } }

// WithSettings enables /relay and /node.
func WithSettings(current domain.Settings, update SettingsFunc) Option {
	return func(m *Model) {
		m.settings = current
		m.updateSettings = update
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(m *Model) { m.log = l } }

// Model is the bubbletea model of the chat client.
type Model struct {
	ctx            context.Context
	coord          Coordinator
	room           Room
	resolver       Resolver
	settings       domain.Settings
	updateSettings SettingsFunc
	log            *zap.Logger

	state     session.State
	requested map[domain.Address]bool
	info      []string
	overlay   string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int
}

// New returns a model over coord. ctx bounds every network call the view starts.
func New(ctx context.Context, coord Coordinator, opts ...Option) Model {
	in := textinput.New()
	in.Placeholder = "message or /help"
	in.CharLimit = 8192
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	m := Model{
		ctx:       ctx,
		coord:     coord,
		log:       zap.NewNop(),
		requested: make(map[domain.Address]bool),
		input:     in,
		viewport:  viewport.New(40, 10),
		spinner:   sp,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.state = coord.Snapshot()
	if m.room != nil {
		m.syncRoomNames()
		m.state = coord.Snapshot()
	}
	m.resolveNames()
	m.refreshChat()
	return m
}

// Run runs the program on the alternate screen until the user quits or ctx ends.
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func waitChange(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

func logLine(s string) tea.Cmd {
	return func() tea.Msg { return infoMsg{line: s} }
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, waitChange(m.coord.Changes(), stateMsg{})}
	if m.room != nil {
		cmds = append(cmds, waitChange(m.room.Changes(), roomMsg{}))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case stateMsg:
		prevActive := m.state.ActivePeer
		m.state = m.coord.Snapshot()
		if m.state.ActivePeer != prevActive {
			m.input.SetValue(m.state.Draft)
			m.input.CursorEnd()
		}
		m.resolveNames()
		m.refreshChat()
		return m, waitChange(m.coord.Changes(), stateMsg{})
	case roomMsg:
		m.syncRoomNames()
		m.refreshChat()
		return m, waitChange(m.room.Changes(), roomMsg{})
	case infoMsg:
		m.addInfo(msg.line)
		return m, nil
	case blobMsg:
		m.addInfo(msg.title + ": " + msg.blob)
		m.overlay = renderQR(msg.title, msg.blob) + "\n" + msg.blob + "\n\n" + hintStyle.Render("esc to close")
		return m, nil
	case settingsMsg:
		m.settings = msg.settings
		m.addInfo(fmt.Sprintf("settings saved: relay=%s node=%s", msg.settings.RelayURL, msg.settings.NodeURL))
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.overlay = ""
		return m, nil
	case "tab":
		m.cycleTab(1)
		return m, nil
	case "shift+tab":
		m.cycleTab(-1)
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case "enter":
		line := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		m.coord.SetDraft("")
		if line == "" {
			return m, nil
		}
		c, err := parseCommand(line)
		if err != nil {
			m.addInfo(err.Error())
			return m, nil
		}
		return m.run(c)
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.coord.SetDraft(v)
	}
	return m, cmd
}

// run executes c. Network calls are returned as commands so they never block
// the update loop.
func (m Model) run(c command) (tea.Model, tea.Cmd) {
	ctx := m.ctx
	switch c.kind {
	case cmdSend:
		to := m.state.ActivePeer
		if to == "" {
			m.addInfo("no open tab; /connect <address> first")
			return m, nil
		}
		body := c.arg
		return m, func() tea.Msg {
			if err := m.coord.SendMessage(ctx, to, body); err != nil {
				m.log.Debug("send failed", zap.String("to", to.String()), zap.Error(err))
				return infoMsg{line: fmt.Sprintf("send to %s failed: %v", m.display(to), err)}
			}
			return nil
		}
	case cmdConnect:
		addr, ok := m.parseAddress(c.arg)
		if !ok {
			return m, nil
		}
		m.addInfo("connecting to " + m.display(addr))
		return m, func() tea.Msg {
			if err := m.coord.RequestConnect(ctx, addr); err != nil {
				return infoMsg{line: fmt.Sprintf("connect %s failed: %v", m.display(addr), err)}
			}
			return nil
		}
	case cmdClose:
		addr := m.state.ActivePeer
		if c.arg != "" {
			addr = domain.NormalizeAddress(c.arg)
		}
		if addr == "" || !m.state.HasTab(addr) {
			m.addInfo("no such tab")
			return m, nil
		}
		m.coord.CloseTab(addr)
		return m, nil
	case cmdTab:
		addr, ok := m.tabTarget(c.arg)
		if !ok {
			m.addInfo("no such tab: " + c.arg)
			return m, nil
		}
		m.activate(addr)
		return m, nil
	case cmdJoin, cmdLeave:
		if m.room == nil {
			m.addInfo("no public room configured")
			return m, nil
		}
		join := c.kind == cmdJoin
		return m, func() tea.Msg {
			op, err := "joined", error(nil)
			if join {
				err = m.room.Join()
			} else {
				op, err = "left", m.room.Leave()
			}
			if err != nil {
				return infoMsg{line: "room: " + err.Error()}
			}
			return infoMsg{line: op + " the public room"}
		}
	case cmdOffer:
		addr, ok := m.parseAddress(c.arg)
		if !ok {
			return m, nil
		}
		title := "offer for " + m.display(addr)
		return m, func() tea.Msg {
			blob, err := m.coord.CreateOffer(ctx, addr)
			if err != nil {
				return infoMsg{line: "offer failed: " + err.Error()}
			}
			return blobMsg{title: title, blob: blob}
		}
	case cmdAnswer:
		offer := c.arg
		return m, func() tea.Msg {
			blob, err := m.coord.AnswerOffer(ctx, offer)
			if err != nil {
				return infoMsg{line: "answer failed: " + err.Error()}
			}
			return blobMsg{title: "answer", blob: blob}
		}
	case cmdAccept:
		answer := c.arg
		return m, func() tea.Msg {
			if err := m.coord.AcceptAnswer(ctx, answer); err != nil {
				return infoMsg{line: "accept failed: " + err.Error()}
			}
			return infoMsg{line: "answer accepted"}
		}
	case cmdRelay, cmdNode:
		if m.updateSettings == nil {
			m.addInfo("settings cannot be changed here")
			return m, nil
		}
		next := m.settings
		if c.kind == cmdRelay {
			next.RelayURL = c.arg
		} else {
			next.NodeURL = c.arg
		}
		update := m.updateSettings
		return m, func() tea.Msg {
			if err := update(ctx, next); err != nil {
				return infoMsg{line: "settings: " + err.Error()}
			}
			return settingsMsg{settings: next}
		}
	case cmdLock:
		return m, func() tea.Msg {
			m.coord.ClearIdentity(ctx)
			return infoMsg{line: "identity locked and transports closed; restart to unlock"}
		}
	case cmdHelp:
		m.addInfo(helpText())
		return m, nil
	case cmdQuit:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) parseAddress(s string) (domain.Address, bool) {
	if !domain.ValidAddress(s) {
		m.addInfo("invalid address: " + s)
		return "", false
	}
	addr := domain.NormalizeAddress(s)
	if addr == m.state.Self {
		m.addInfo("that is your own address")
		return "", false
	}
	return addr, true
}

// tabTarget maps a 1-based tab number or an address to a tab member.
func (m Model) tabTarget(arg string) (domain.Address, bool) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(m.state.Tabs) {
			return "", false
		}
		return m.state.Tabs[n-1], true
	}
	addr := domain.NormalizeAddress(arg)
	return addr, m.state.HasTab(addr)
}

func (m *Model) cycleTab(step int) {
	tabs := m.state.Tabs
	if len(tabs) == 0 {
		return
	}
	i := 0
	for j, a := range tabs {
		if a == m.state.ActivePeer {
			i = j
			break
		}
	}
	m.activate(tabs[(i+step+len(tabs))%len(tabs)])
}

func (m *Model) activate(addr domain.Address) {
	if err := m.coord.ActivateTab(addr); err != nil {
		m.addInfo(fmt.Sprintf("open %s: %v", m.display(addr), err))
		return
	}
	m.state = m.coord.Snapshot()
	m.input.SetValue("")
	m.refreshChat()
}

func (m *Model) addInfo(line string) {
	m.info = append(m.info, time.Now().Format("15:04:05")+" "+line)
	if len(m.info) > maxInfoLines {
		m.info = m.info[len(m.info)-maxInfoLines:]
	}
}

// syncRoomNames copies names announced in the room onto known peers.
func (m *Model) syncRoomNames() {
	for _, e := range m.room.Entries() {
		if p, ok := m.state.Peer(e.Address); ok && e.Name != "" && p.Name != e.Name {
			m.coord.SetRegisteredName(e.Address, e.Name)
		}
	}
}

// resolveNames starts external name lookups for peers seen for the first time.
func (m *Model) resolveNames() {
	if m.resolver == nil {
		return
	}
	var fresh []domain.Address
	for a, p := range m.state.Peers {
		if p.ExternalName == "" && !m.requested[a] {
			m.requested[a] = true
			fresh = append(fresh, a)
		}
	}
	if len(fresh) > 0 {
		m.resolver.ResolveAsync(fresh...)
	}
}
