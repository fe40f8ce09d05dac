package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/omochice/socket-chat-client/internal/session"
)

// refreshMsg tells the model that session or conversation state changed. The
// model re-reads everything, so a dropped refresh is made up by the next one.
type refreshMsg struct{}

// Notifier carries change callbacks from connection goroutines into the tea
// loop. It never blocks the caller.
type Notifier struct {
	ch chan tea.Msg
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan tea.Msg, 64)}
}

// SessionChanged is a session.Holder state listener.
func (n *Notifier) SessionChanged(session.Snapshot) {
	n.post(refreshMsg{})
}

// ConversationChanged is a chat.Conversation change listener.
func (n *Notifier) ConversationChanged() {
	n.post(refreshMsg{})
}

// Events returns the channel the model drains.
func (n *Notifier) Events() <-chan tea.Msg {
	return n.ch
}

func (n *Notifier) post(msg tea.Msg) {
	select {
	case n.ch <- msg:
	default:
	}
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return e
	}
}
