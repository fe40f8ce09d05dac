package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Event is one decoded inbound frame. The concrete type is one of
// History, Message, Join or Unrecognized.
type Event interface {
	Type() MessageType
}

// History replaces the whole local message list.
type History struct {
	Messages []ChatMessage
}

// Type implements Event.
func (History) Type() MessageType { return MessageTypeHistory }

// Message is a single message to append.
type Message struct {
	Message ChatMessage
}

// Type implements Event.
func (Message) Type() MessageType { return MessageTypeMessage }

// Join is a join announcement. Clients send it; the backend may relay it.
type Join struct {
	Username string
}

// Type implements Event.
func (Join) Type() MessageType { return MessageTypeJoin }

// Unrecognized is a frame that could not be decoded into a known event.
// Raw holds the original bytes and Reason explains why it was rejected.
type Unrecognized struct {
	Tag    MessageType
	Raw    []byte
	Reason error
}

// Type implements Event.
func (u Unrecognized) Type() MessageType { return u.Tag }

// Decode turns a raw frame into an Event. It never fails: anything that is
// not a well-formed known event comes back as Unrecognized.
func Decode(data []byte) Event {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Unrecognized{Raw: data, Reason: errors.Wrap(err, "failed to decode envelope")}
	}

	unrecognized := func(err error) Event {
		return Unrecognized{Tag: env.Type, Raw: data, Reason: err}
	}

	switch env.Type {
	case MessageTypeHistory:
		if !isArray(env.Payload) {
			return unrecognized(errors.New("history payload is not an array"))
		}
		var msgs []ChatMessage
		if err := json.Unmarshal(env.Payload, &msgs); err != nil {
			return unrecognized(errors.Wrap(err, "failed to decode history payload"))
		}
		if msgs == nil {
			msgs = []ChatMessage{}
		}
		return History{Messages: msgs}

	case MessageTypeMessage:
		if !isObject(env.Payload) {
			return unrecognized(errors.New("message payload is not an object"))
		}
		var msg ChatMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return unrecognized(errors.Wrap(err, "failed to decode message payload"))
		}
		return Message{Message: msg}

	case MessageTypeJoin:
		var name string
		if err := json.Unmarshal(env.Payload, &name); err != nil {
			return unrecognized(errors.Wrap(err, "failed to decode join payload"))
		}
		return Join{Username: name}

	default:
		return unrecognized(errors.Errorf("unknown message type %q", env.Type))
	}
}

func isArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

func isObject(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{"))
}
