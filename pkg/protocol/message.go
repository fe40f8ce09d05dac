// Package protocol implements the JSON wire format spoken with the chat backend.
package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

// MessageType is the tag carried in the "type" field of every frame.
type MessageType string

const (
	MessageTypeJoin    MessageType = "join"
	MessageTypeMessage MessageType = "message"
	MessageTypeHistory MessageType = "history"
)

// String returns the string representation of MessageType
func (mt MessageType) String() string {
	return string(mt)
}

// Envelope is the outer shape of every frame on the wire.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ChatMessage is one chat entry as attributed by the server.
type ChatMessage struct {
	ID        string
	Username  string
	Text      string
	Timestamp time.Time
}

// wireChatMessage accepts both the "_id" key used by the backend and a plain "id".
type wireChatMessage struct {
	MongoID   json.RawMessage `json:"_id,omitempty"`
	ID        json.RawMessage `json:"id,omitempty"`
	Username  string          `json:"username"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// MarshalJSON encodes the message in the backend's shape.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	out := struct {
		ID        string `json:"_id"`
		Username  string `json:"username"`
		Text      string `json:"text"`
		Timestamp string `json:"timestamp,omitempty"`
	}{
		ID:       m.ID,
		Username: m.Username,
		Text:     m.Text,
	}
	if !m.Timestamp.IsZero() {
		out.Timestamp = m.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a message leniently: the id may be a string or a
// number, and the timestamp may be any date string or epoch milliseconds.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return errors.New("chat message is not an object")
	}

	var w wireChatMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Wrap(err, "failed to decode chat message")
	}

	raw := w.MongoID
	if len(raw) == 0 {
		raw = w.ID
	}
	id, err := decodeID(raw)
	if err != nil {
		return err
	}
	ts, err := decodeTimestamp(w.Timestamp)
	if err != nil {
		return err
	}

	*m = ChatMessage{
		ID:        id,
		Username:  w.Username,
		Text:      w.Text,
		Timestamp: ts,
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", errors.Errorf("unsupported id %s", raw)
}

func decodeTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms), nil
		}
		t, err := dateparse.ParseAny(s)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "failed to parse timestamp %q", s)
		}
		return t, nil
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, errors.Errorf("unsupported timestamp %s", raw)
	}
	return time.UnixMilli(int64(ms)), nil
}

// EncodeJoin builds the join announcement carrying the display name.
func EncodeJoin(username string) ([]byte, error) {
	return encode(MessageTypeJoin, username)
}

// EncodeMessage builds an outgoing chat message. The server attaches the
// id, author and timestamp before echoing it back.
func EncodeMessage(text string) ([]byte, error) {
	return encode(MessageTypeMessage, text)
}

// EncodeHistory builds a history frame. Only the test backend sends these.
func EncodeHistory(messages []ChatMessage) ([]byte, error) {
	if messages == nil {
		messages = []ChatMessage{}
	}
	return encode(MessageTypeHistory, messages)
}

// EncodeChatMessage builds a server-side message frame.
func EncodeChatMessage(msg ChatMessage) ([]byte, error) {
	return encode(MessageTypeMessage, msg)
}

func encode(mt MessageType, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s payload", mt)
	}
	data, err := json.Marshal(Envelope{Type: mt, Payload: p})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s frame", mt)
	}
	return data, nil
}
