package protocol_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/omochice/socket-chat-client/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJoin(t *testing.T) {
	data, err := protocol.EncodeJoin("alice99")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"join","payload":"alice99"}`, string(data))
}

func TestEncodeMessage(t *testing.T) {
	data, err := protocol.EncodeMessage("hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message","payload":"hello"}`, string(data))
}

func TestEncodeHistory_Nil(t *testing.T) {
	data, err := protocol.EncodeHistory(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"history","payload":[]}`, string(data))
}

func TestDecode(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name string
		data string
		want protocol.Event
	}{
		{
			name: "history with backend ids",
			data: `{"type":"history","payload":[
				{"_id":"1","username":"bob","text":"hey","timestamp":"2025-03-14T09:26:53Z"},
				{"_id":"2","username":"carol","text":"yo","timestamp":"2025-03-14T09:26:53Z"}]}`,
			want: protocol.History{Messages: []protocol.ChatMessage{
				{ID: "1", Username: "bob", Text: "hey", Timestamp: ts},
				{ID: "2", Username: "carol", Text: "yo", Timestamp: ts},
			}},
		},
		{
			name: "empty history",
			data: `{"type":"history","payload":[]}`,
			want: protocol.History{Messages: []protocol.ChatMessage{}},
		},
		{
			name: "message with plain id and epoch millis",
			data: `{"type":"message","payload":{"id":42,"username":"bob","text":"hi","timestamp":1741944413000}}`,
			want: protocol.Message{Message: protocol.ChatMessage{
				ID: "42", Username: "bob", Text: "hi", Timestamp: time.UnixMilli(1741944413000),
			}},
		},
		{
			name: "message without timestamp",
			data: `{"type":"message","payload":{"_id":"x","username":"bob","text":"hi"}}`,
			want: protocol.Message{Message: protocol.ChatMessage{ID: "x", Username: "bob", Text: "hi"}},
		},
		{
			name: "join relayed by server",
			data: `{"type":"join","payload":"dave"}`,
			want: protocol.Join{Username: "dave"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := protocol.Decode([]byte(tt.data))
			require.IsType(t, tt.want, got)
			switch want := tt.want.(type) {
			case protocol.History:
				got := got.(protocol.History)
				require.Len(t, got.Messages, len(want.Messages))
				for i := range want.Messages {
					assertSameMessage(t, want.Messages[i], got.Messages[i])
				}
			case protocol.Message:
				assertSameMessage(t, want.Message, got.(protocol.Message).Message)
			default:
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDecode_Unrecognized(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantTag protocol.MessageType
	}{
		{name: "not json", data: `hello`, wantTag: ""},
		{name: "unknown tag", data: `{"type":"typing","payload":"bob"}`, wantTag: "typing"},
		{name: "missing type", data: `{"payload":[]}`, wantTag: ""},
		{name: "history payload is object", data: `{"type":"history","payload":{"_id":"1"}}`, wantTag: protocol.MessageTypeHistory},
		{name: "history payload is null", data: `{"type":"history","payload":null}`, wantTag: protocol.MessageTypeHistory},
		{name: "history entry is string", data: `{"type":"history","payload":["oops"]}`, wantTag: protocol.MessageTypeHistory},
		{name: "message payload is string", data: `{"type":"message","payload":"hi"}`, wantTag: protocol.MessageTypeMessage},
		{name: "message payload missing", data: `{"type":"message"}`, wantTag: protocol.MessageTypeMessage},
		{name: "message payload is null", data: `{"type":"message","payload":null}`, wantTag: protocol.MessageTypeMessage},
		{name: "message with bad timestamp", data: `{"type":"message","payload":{"username":"bob","timestamp":"??"}}`, wantTag: protocol.MessageTypeMessage},
		{name: "join payload is number", data: `{"type":"join","payload":7}`, wantTag: protocol.MessageTypeJoin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := protocol.Decode([]byte(tt.data))
			u, ok := got.(protocol.Unrecognized)
			require.True(t, ok, "expected Unrecognized, got %T", got)
			assert.Equal(t, tt.wantTag, u.Type())
			assert.Error(t, u.Reason)
			assert.Equal(t, tt.data, string(u.Raw))
		})
	}
}

func TestChatMessage_EncodeDecode(t *testing.T) {
	msg := protocol.ChatMessage{
		ID:        "abc",
		Username:  "bob",
		Text:      "round trip",
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := protocol.EncodeChatMessage(msg)
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	assert.JSONEq(t, `"message"`, string(env["type"]))
	assert.Contains(t, string(env["payload"]), `"_id":"abc"`)

	got, ok := protocol.Decode(data).(protocol.Message)
	require.True(t, ok)
	assertSameMessage(t, msg, got.Message)
}

func assertSameMessage(t *testing.T, want, got protocol.ChatMessage) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Username, got.Username)
	assert.Equal(t, want.Text, got.Text)
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", want.Timestamp, got.Timestamp)
}
