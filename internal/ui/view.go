package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mdp/qrterminal/v3"

	"ringchat/internal/domain"
	"ringchat/internal/services/names"
)

const sidebarWidth = 30

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
	unreadStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selfStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	tabStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("247"))
	activeTab    = tabStyle.Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	qrTitleStyle = lipgloss.NewStyle().Bold(true)
)

var stateStyles = map[domain.ConnectionState]lipgloss.Style{
	domain.StateConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	domain.StateConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	domain.StateDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	domain.StateAbsent:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

// display returns the best name for addr from the room entry and the peer.
func (m Model) display(addr domain.Address) string {
	if addr == m.state.Self && addr != "" {
		return "you"
	}
	var room *domain.RoomEntry
	if m.room != nil {
		if e, ok := m.room.Lookup(addr); ok {
			room = &e
		}
	}
	var peer *domain.Peer
	if p, ok := m.state.Peer(addr); ok {
		peer = &p
	}
	return names.Display(addr, room, peer)
}

func (m *Model) layout() {
	m.input.Width = max(10, m.width-4)
	m.viewport.Width = max(10, m.width-sidebarWidth-6)
	m.viewport.Height = max(3, m.height-infoHeight(m.height)-9)
	m.refreshChat()
}

func infoHeight(h int) int {
	return min(6, max(2, h/6))
}

// refreshChat renders the active session into the viewport.
func (m *Model) refreshChat() {
	active := m.state.ActivePeer
	cs, ok := m.state.Session(active)
	if active == "" || !ok || len(cs.Messages) == 0 {
		m.viewport.SetContent(hintStyle.Render("no messages"))
		return
	}
	var b strings.Builder
	for _, msg := range cs.Messages {
		who := m.display(msg.From)
		if msg.From == m.state.Self {
			who = selfStyle.Render(who)
		}
		fmt.Fprintf(&b, "%s %s: %s\n", statusStyle.Render(msg.At.Local().Format("15:04")), who, msg.Body)
	}
	m.viewport.SetContent(strings.TrimRight(b.String(), "\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	header := headerStyle.Render("ringchat") + "  " + m.statusLine()
	if m.width < 40 || m.height < 12 {
		last := ""
		if n := len(m.info); n > 0 {
			last = m.info[n-1]
		}
		return header + "\n" + last + "\n" + m.input.View()
	}

	content := m.overlay
	if content == "" {
		content = m.tabBar() + "\n" + m.viewport.View()
	}
	mainBox := boxStyle.Width(m.width - sidebarWidth - 4).Render(content)
	side := boxStyle.Width(sidebarWidth - 2).Height(lipgloss.Height(mainBox) - 2).Render(m.sidebar())
	body := lipgloss.JoinHorizontal(lipgloss.Top, side, mainBox)

	n := infoHeight(m.height)
	lines := m.info
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	infoBox := boxStyle.Width(m.width - 2).Render(strings.Join(lines, "\n"))

	return header + "\n" + body + "\n" + infoBox + "\n" + m.input.View()
}

func (m Model) statusLine() string {
	status := m.state.ClientStatus.String()
	if m.state.ClientStatus == domain.ClientConnecting {
		status = m.spinner.View() + status
	}
	parts := []string{
		"self=" + names.FormatAddress(m.state.Self),
		"client=" + status,
	}
	if n := m.state.UnreadCount(); n > 0 {
		parts = append(parts, unreadStyle.Render(fmt.Sprintf("unread=%d", n)))
	}
	if n := m.coord.PendingOffers(); n > 0 {
		parts = append(parts, fmt.Sprintf("offers=%d", n))
	}
	if m.room != nil {
		room := "offline"
		switch {
		case m.room.Joined():
			room = "joined"
		case m.room.Connected():
			room = "online"
		}
		parts = append(parts, "room="+room)
	}
	return statusStyle.Render(strings.Join(parts, " "))
}

func (m Model) tabBar() string {
	if len(m.state.Tabs) == 0 {
		return hintStyle.Render("no open tabs")
	}
	tabs := make([]string, 0, len(m.state.Tabs))
	for i, a := range m.state.Tabs {
		label := fmt.Sprintf("%d %s", i+1, m.display(a))
		if cs, ok := m.state.Session(a); ok && cs.ReadStatus == domain.Unread {
			label += " *"
		}
		if a == m.state.ActivePeer {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) sidebar() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("peers") + "\n")
	peers := m.state.SortedPeers()
	if len(peers) == 0 {
		b.WriteString(hintStyle.Render("none yet") + "\n")
	}
	for _, p := range peers {
		b.WriteString(m.peerLine(p.Address, p.State) + "\n")
	}
	if m.room != nil {
		b.WriteString("\n" + headerStyle.Render("public room") + "\n")
		entries := m.room.Entries()
		if len(entries) == 0 {
			b.WriteString(hintStyle.Render("empty") + "\n")
		}
		for _, e := range entries {
			line := "  " + m.display(e.Address)
			if e.Status != "" {
				line += statusStyle.Render(" " + e.Status)
			}
			b.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) peerLine(addr domain.Address, state domain.ConnectionState) string {
	line := stateStyles[state].Render("●") + " " + m.display(addr)
	if cs, ok := m.state.Session(addr); ok && cs.ReadStatus == domain.Unread {
		line += " " + unreadStyle.Render("new")
	}
	return line
}

// renderQR renders content as a QR code with a title line above it.
func renderQR(title, content string) string {
	var buf strings.Builder
	buf.WriteString(qrTitleStyle.Render(title))
	buf.WriteString("\n\n")
	qrterminal.GenerateWithConfig(content, qrterminal.Config{
		Level:          qrterminal.L,
		Writer:         &buf,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		QuietZone:      1,
	})
	return buf.String()
}
