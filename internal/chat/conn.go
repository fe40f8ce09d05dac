// Package chat holds the conversation view: the ordered message list fed by
// one connection and the send path back to it.
package chat

// Conn is the part of a connection the conversation uses. The conversation
// never opens or closes it; that belongs to the session holder.
type Conn interface {
	// Send writes one frame.
	Send(data []byte) error

	// Subscribe installs fn as the receiver of incoming frames and returns
	// a func that detaches it.
	Subscribe(fn func(data []byte)) (unsubscribe func())
}
