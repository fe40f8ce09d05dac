package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/omochice/socket-chat-client/internal/session"
	"github.com/omochice/socket-chat-client/pkg/protocol"
)

const timeLayout = "15:04:05"

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(LoginTitleStyle.Render("Join the chat"))
	b.WriteString("\n")
	b.WriteString(m.name.View())
	b.WriteString("\n")
	if errText := m.form.Error(); errText != "" {
		b.WriteString(ErrorStyle.Render(errText))
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(NoticeStyle.Render(m.notice))
	}

	box := LoginBoxStyle.Render(b.String())
	help := renderHelp([][2]string{{"enter", "join"}, {"ctrl+c", "quit"}})
	return lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, box) + "\n" + help
}

func (m Model) chatView() string {
	header := m.renderHeader()
	sidebar := renderSidebar(m.conv.Participants(), m.snap.Name, m.viewport.Height)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, m.viewport.View())

	notice := ""
	if m.notice != "" {
		notice = NoticeStyle.Render(m.notice)
	}

	keys := [][2]string{{"enter", "send"}, {"ctrl+l", "logout"}}
	if m.snap.State == session.StateLoggedOut || m.snap.State == session.StateErrored {
		keys = append(keys, [2]string{"ctrl+r", "rejoin"})
	}
	keys = append(keys, [2]string{"ctrl+c", "quit"})

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		notice,
		m.input.View(),
		renderHelp(keys),
	)
}

func (m Model) renderHeader() string {
	status := statusStyle(statusColor(m.snap.State)).Render("● " + m.snap.State.String())
	title := HeaderNameStyle.Render("@" + m.snap.Name)
	return HeaderStyle.Width(m.width).Render(title + "  " + status)
}

func statusColor(s session.State) lipgloss.Color {
	switch s {
	case session.StateConnected:
		return ColorSuccess
	case session.StateConnecting:
		return ColorWarning
	case session.StateErrored:
		return ColorError
	default:
		return ColorTextMuted
	}
}

func renderSidebar(names []string, self string, height int) string {
	var b strings.Builder
	b.WriteString(SidebarTitleStyle.Render("Participants"))
	for _, n := range names {
		b.WriteString("\n")
		if n == self {
			b.WriteString(SidebarSelfStyle.Render(n))
		} else {
			b.WriteString(SidebarItemStyle.Render(n))
		}
	}
	// the border takes two lines
	h := height - 2
	if h < 1 {
		h = 1
	}
	return SidebarStyle.Width(sidebarWidth - 2).Height(h).Render(b.String())
}

// renderMessages renders one line per message, wrapped to width. Messages
// by self are highlighted.
func renderMessages(msgs []protocol.ChatMessage, self string, width int) string {
	if len(msgs) == 0 {
		return EmptyStyle.Render("No messages yet.")
	}

	wrap := lipgloss.NewStyle().Width(width)
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		userStyle := OtherUserStyle
		if msg.Username == self {
			userStyle = OwnUserStyle
		}

		var b strings.Builder
		if !msg.Timestamp.IsZero() {
			b.WriteString(TimestampStyle.Render(msg.Timestamp.Local().Format(timeLayout)))
			b.WriteString(" ")
		}
		b.WriteString(userStyle.Render("@" + msg.Username))
		b.WriteString(" ")
		b.WriteString(MessageTextStyle.Render(msg.Text))
		lines = append(lines, wrap.Render(b.String()))
	}
	return strings.Join(lines, "\n")
}

func renderHelp(keys [][2]string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, FooterKeyStyle.Render(k[0])+" "+FooterDescStyle.Render(k[1]))
	}
	return FooterStyle.Render(strings.Join(parts, " • "))
}
