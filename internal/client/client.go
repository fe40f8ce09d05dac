// Package client defines the connection contract shared by the session
// holder, which owns a connection's lifecycle, and the conversation, which
// only reads from and writes to it.
package client

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotConnected is returned by Send when the connection is not open.
var ErrNotConnected = errors.New("not connected to server")

// Observer receives lifecycle callbacks for one connection attempt.
//
// OnOpen fires once the handshake succeeds. Afterwards exactly one of
// OnClose or OnError fires; a failed dial reports OnError without OnOpen.
type Observer interface {
	OnOpen()
	OnClose()
	OnError(err error)
}

// Conn is a single bidirectional chat connection.
type Conn interface {
	// ID identifies the connection in logs.
	ID() string

	// Open starts dialing in the background and returns immediately.
	Open(ctx context.Context)

	// Send writes one text frame. It does not wait for any acknowledgement.
	Send(data []byte) error

	// Subscribe installs fn as the receiver of incoming frames, replacing any
	// previous subscriber. The returned func detaches fn; calling it after
	// another subscriber took over is a no-op.
	Subscribe(fn func(data []byte)) (unsubscribe func())

	// Close closes the connection. It is safe to call more than once.
	Close() error

	// IsConnected reports whether the connection is open.
	IsConnected() bool
}

// Factory creates an unopened connection to endpoint reporting to obs.
type Factory func(endpoint string, obs Observer) Conn
