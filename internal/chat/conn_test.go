package chat_test

import (
	"sync"

	"github.com/omochice/socket-chat-client/internal/chat"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	mu       sync.Mutex
	handler  func([]byte)
	handlers int
	written  [][]byte
	writeErr error
}

func newMockConn() *mockConn {
	return &mockConn{}
}

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	m.written = append(m.written, copied)
	return nil
}

func (m *mockConn) Subscribe(fn func([]byte)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers++
	id := m.handlers
	m.handler = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.handlers == id {
			m.handler = nil
		}
	}
}

// deliver pushes an incoming frame to the current subscriber, if any.
func (m *mockConn) deliver(data string) {
	m.mu.Lock()
	fn := m.handler
	m.mu.Unlock()
	if fn != nil {
		fn([]byte(data))
	}
}

func (m *mockConn) subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler != nil
}

func (m *mockConn) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)
