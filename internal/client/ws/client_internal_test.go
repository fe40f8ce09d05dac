package ws

import (
	"io"
	"net"
	"testing"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsClosure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: true},
		{name: "close frame", err: wsutil.ClosedError{Code: ws.StatusGoingAway}, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "wrapped unexpected eof", err: errors.Wrap(io.ErrUnexpectedEOF, "read"), want: true},
		{name: "local close", err: net.ErrClosed, want: true},
		{name: "connection reset", err: &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}, want: true},
		{name: "protocol violation", err: ws.ErrProtocolMaskRequired, want: false},
		{name: "other", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isClosure(tt.err))
		})
	}
}
