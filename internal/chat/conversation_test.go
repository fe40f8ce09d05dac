package chat_test

import (
	"sync/atomic"
	"testing"

	"github.com/omochice/socket-chat-client/internal/chat"
	"github.com/omochice/socket-chat-client/internal/client"
	"github.com/omochice/socket-chat-client/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	historyM1M2 = `{"type":"history","payload":[
		{"_id":"m1","username":"bob","text":"one","timestamp":"2025-01-01T10:00:00Z"},
		{"_id":"m2","username":"carol","text":"two","timestamp":"2025-01-01T10:01:00Z"}]}`
	messageM3 = `{"type":"message","payload":{"_id":"m3","username":"bob","text":"three","timestamp":"2025-01-01T10:02:00Z"}}`
)

func ids(msgs []protocol.ChatMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestConversation_HistoryThenMessage(t *testing.T) {
	conn := newMockConn()
	c := chat.NewConversation()
	c.Attach(conn)

	conn.deliver(historyM1M2)
	conn.deliver(messageM3)

	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(c.Messages()))
}

func TestConversation_HistoryReplacesWithoutMerge(t *testing.T) {
	conn := newMockConn()
	c := chat.NewConversation()
	c.Attach(conn)

	conn.deliver(historyM1M2)
	conn.deliver(messageM3)
	conn.deliver(`{"type":"history","payload":[{"_id":"h9","username":"dave","text":"only"}]}`)

	assert.Equal(t, []string{"h9"}, ids(c.Messages()))
	assert.Equal(t, []string{"dave"}, c.Participants())

	conn.deliver(`{"type":"history","payload":[]}`)
	assert.Empty(t, c.Messages())
}

func TestConversation_MessageWithoutHistory(t *testing.T) {
	conn := newMockConn()
	c := chat.NewConversation()
	c.Attach(conn)

	conn.deliver(messageM3)
	assert.Equal(t, []string{"m3"}, ids(c.Messages()))
}

func TestConversation_DuplicateIDsAreKept(t *testing.T) {
	conn := newMockConn()
	c := chat.NewConversation()
	c.Attach(conn)

	conn.deliver(messageM3)
	conn.deliver(messageM3)

	assert.Equal(t, []string{"m3", "m3"}, ids(c.Messages()))
}

func TestConversation_IgnoresUnknownAndMalformed(t *testing.T) {
	var changes atomic.Int32
	conn := newMockConn()
	c := chat.NewConversation(chat.WithChangeListener(func() { changes.Add(1) }))
	c.Attach(conn)

	conn.deliver(historyM1M2)
	require.Equal(t, int32(1), changes.Load())

	for _, frame := range []string{
		`not json`,
		`{"type":"typing","payload":"bob"}`,
		`{"type":"history","payload":null}`,
		`{"type":"history","payload":{"_id":"x"}}`,
		`{"type":"message","payload":"raw text"}`,
		`{"type":"join","payload":"eve"}`,
	} {
		conn.deliver(frame)
	}

	assert.Equal(t, []string{"m1", "m2"}, ids(c.Messages()))
	assert.Equal(t, int32(1), changes.Load())
}

func TestConversation_Participants(t *testing.T) {
	conn := newMockConn()
	c := chat.NewConversation()
	assert.Empty(t, c.Participants())

	c.Attach(conn)
	conn.deliver(historyM1M2)
	conn.deliver(messageM3)
	conn.deliver(`{"type":"message","payload":{"_id":"m4","username":"alice99","text":"hi"}}`)

	assert.Equal(t, []string{"bob", "carol", "alice99"}, c.Participants())
}

func TestConversation_SendMessage(t *testing.T) {
	conn := newMockConn()
	c := chat.NewConversation()
	c.Attach(conn)

	sent, err := c.SendMessage("  hello \n")
	require.NoError(t, err)
	assert.True(t, sent)

	written := conn.Written()
	require.Len(t, written, 1)
	assert.JSONEq(t, `{"type":"message","payload":"hello"}`, string(written[0]))
	assert.Empty(t, c.Messages(), "messages appear only once the server echoes them")
}

func TestConversation_SendMessage_Blank(t *testing.T) {
	conn := newMockConn()
	c := chat.NewConversation()
	c.Attach(conn)

	for _, text := range []string{"", "  ", "\t\n"} {
		sent, err := c.SendMessage(text)
		require.NoError(t, err)
		assert.False(t, sent)
	}
	assert.Empty(t, conn.Written())
}

func TestConversation_SendMessage_NoConnection(t *testing.T) {
	c := chat.NewConversation()

	sent, err := c.SendMessage("hello")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestConversation_SendMessage_ConnectionNotOpen(t *testing.T) {
	conn := newMockConn()
	conn.writeErr = client.ErrNotConnected
	c := chat.NewConversation()
	c.Attach(conn)

	sent, err := c.SendMessage("hello")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestConversation_SendMessage_TransportError(t *testing.T) {
	conn := newMockConn()
	conn.writeErr = errors.New("broken pipe")
	c := chat.NewConversation()
	c.Attach(conn)

	sent, err := c.SendMessage("hello")
	assert.Error(t, err)
	assert.False(t, sent)
}

func TestConversation_AttachNewConnectionDetachesOld(t *testing.T) {
	oldConn := newMockConn()
	newConn := newMockConn()
	c := chat.NewConversation()

	c.Attach(oldConn)
	oldConn.deliver(historyM1M2)
	c.Attach(newConn)

	assert.False(t, oldConn.subscribed())
	assert.True(t, newConn.subscribed())

	oldConn.deliver(messageM3)
	assert.Equal(t, []string{"m1", "m2"}, ids(c.Messages()))

	newConn.deliver(messageM3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(c.Messages()))

	_, err := c.SendMessage("via new")
	require.NoError(t, err)
	assert.Empty(t, oldConn.Written())
	assert.Len(t, newConn.Written(), 1)
}

func TestConversation_Detach(t *testing.T) {
	conn := newMockConn()
	c := chat.NewConversation()
	c.Attach(conn)
	require.True(t, c.Attached())

	c.Detach()
	assert.False(t, c.Attached())
	assert.False(t, conn.subscribed())

	conn.deliver(messageM3)
	assert.Empty(t, c.Messages())
}

func TestConversation_MessagesReturnsCopy(t *testing.T) {
	conn := newMockConn()
	c := chat.NewConversation()
	c.Attach(conn)
	conn.deliver(historyM1M2)

	msgs := c.Messages()
	msgs[0].Text = "mutated"

	assert.Equal(t, "one", c.Messages()[0].Text)
}

func TestConversation_Clear(t *testing.T) {
	var changes atomic.Int32
	conn := newMockConn()
	c := chat.NewConversation(chat.WithChangeListener(func() { changes.Add(1) }))
	c.Attach(conn)
	conn.deliver(historyM1M2)

	c.Clear()

	assert.Empty(t, c.Messages())
	assert.Empty(t, c.Participants())
	assert.Equal(t, int32(2), changes.Load())
	assert.True(t, c.Attached())
}
