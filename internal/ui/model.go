// Package ui is the terminal front end: a login screen and a chat screen
// built on bubbletea.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/omochice/socket-chat-client/internal/login"
	"github.com/omochice/socket-chat-client/internal/session"
	"github.com/omochice/socket-chat-client/pkg/protocol"
	"github.com/rs/zerolog"
)

// Session is the part of session.Holder the UI drives.
type Session interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, name string) error
	Logout() error
}

// Conversation is the part of chat.Conversation the UI drives.
type Conversation interface {
	Messages() []protocol.ChatMessage
	Participants() []string
	SendMessage(text string) (bool, error)
	Clear()
}

const (
	defaultWidth  = 80
	defaultHeight = 24
	sidebarWidth  = 22
	// header, notice, input and footer lines
	chromeHeight = 4
)

// Model is the root tea.Model. The screen follows the session: with a
// display name set the chat screen shows, otherwise the login screen.
type Model struct {
	ctx     context.Context
	session Session
	conv    Conversation
	events  <-chan tea.Msg
	logger  zerolog.Logger

	snap     session.Snapshot
	form     login.Form
	name     textinput.Model
	input    textinput.Model
	viewport viewport.Model
	notice   string

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// New creates the model. events is usually Notifier.Events.
func New(ctx context.Context, sess Session, conv Conversation, events <-chan tea.Msg, opts ...Option) Model {
	name := textinput.New()
	name.Placeholder = "Enter your username"
	name.Prompt = "› "
	name.CharLimit = 64
	name.Width = 30

	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.Prompt = "> "

	m := Model{
		ctx:      ctx,
		session:  sess,
		conv:     conv,
		events:   events,
		logger:   zerolog.Nop(),
		name:     name,
		input:    input,
		viewport: viewport.New(defaultWidth-sidebarWidth, defaultHeight-chromeHeight),
		width:    defaultWidth,
		height:   defaultHeight,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.sync()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshViewport()
		return m, nil

	case refreshMsg:
		m.sync()
		return m, waitForEvent(m.events)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.snap.LoggedIn() {
			return m.updateChat(msg)
		}
		return m.updateLogin(msg)
	}

	// Cursor blink and other component messages go to the focused input.
	var cmd tea.Cmd
	if m.snap.LoggedIn() {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.name, cmd = m.name.Update(msg)
	}
	return m, cmd
}

// sync re-reads session and conversation and switches screens when the
// login state flipped.
func (m *Model) sync() {
	wasLoggedIn := m.snap.LoggedIn()
	m.snap = m.session.Snapshot()

	switch {
	case m.snap.LoggedIn() && (!wasLoggedIn || !m.input.Focused()):
		m.name.Blur()
		m.input.Focus()
	case !m.snap.LoggedIn() && (wasLoggedIn || !m.name.Focused()):
		m.input.Blur()
		m.input.Reset()
		m.name.Focus()
	}
	m.refreshViewport()
}

func (m *Model) resize() {
	w := m.width - sidebarWidth
	if w < 10 {
		w = 10
	}
	h := m.height - chromeHeight
	if h < 1 {
		h = 1
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - len(m.input.Prompt) - 1
}

func (m *Model) refreshViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(renderMessages(m.conv.Messages(), m.snap.Name, m.viewport.Width))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		name, ok := m.form.Submit()
		if !ok {
			return m, nil
		}
		if err := m.session.Login(m.ctx, name); err != nil {
			m.logger.Error().Err(err).Msg("Login failed")
			m.notice = err.Error()
			return m, nil
		}
		m.form.Reset()
		m.name.Reset()
		m.notice = ""
		m.sync()
		m.viewport.GotoBottom()
		return m, nil
	}

	before := m.name.Value()
	var cmd tea.Cmd
	m.name, cmd = m.name.Update(msg)
	if m.name.Value() != before {
		m.form.SetValue(m.name.Value())
	}
	return m, cmd
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlL:
		if err := m.session.Logout(); err != nil {
			m.logger.Warn().Err(err).Msg("Logout incomplete")
		}
		m.conv.Clear()
		m.notice = ""
		m.sync()
		return m, nil

	case tea.KeyCtrlR:
		if m.snap.State == session.StateLoggedOut || m.snap.State == session.StateErrored {
			if err := m.session.Login(m.ctx, m.snap.Name); err != nil {
				m.notice = err.Error()
			} else {
				m.notice = ""
			}
			m.sync()
		}
		return m, nil

	case tea.KeyEnter:
		sent, err := m.conv.SendMessage(m.input.Value())
		switch {
		case err != nil:
			m.logger.Warn().Err(err).Msg("Send failed")
			m.notice = "Message not sent: " + err.Error()
		case sent:
			m.input.Reset()
			m.notice = ""
			m.viewport.GotoBottom()
		case m.snap.State != session.StateConnected && strings.TrimSpace(m.input.Value()) != "":
			m.notice = "Not connected"
		}
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.snap.LoggedIn() {
		return m.chatView()
	}
	return m.loginView()
}
