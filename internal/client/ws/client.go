// Package ws provides a WebSocket connection to the chat backend.
package ws

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/omochice/socket-chat-client/internal/client"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Client is a single WebSocket connection attempt. It implements client.Conn.
type Client struct {
	id       string
	endpoint string
	observer client.Observer
	dialer   ws.Dialer
	logger   zerolog.Logger

	mu      sync.RWMutex
	conn    net.Conn
	cancel  context.CancelFunc
	sub     *subscription
	opened  bool
	closed  bool
	writeMu sync.Mutex

	terminate sync.Once
	wg        sync.WaitGroup
}

type subscription struct {
	fn func(data []byte)
}

var _ client.Conn = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for connection diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDialer replaces the default gobwas dialer, e.g. to supply TLS settings.
func WithDialer(d ws.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// New creates an unopened connection to endpoint. Call Open to dial.
func New(endpoint string, observer client.Observer, opts ...Option) *Client {
	if observer == nil {
		observer = nopObserver{}
	}
	c := &Client{
		id:       uuid.NewString(),
		endpoint: endpoint,
		observer: observer,
		dialer:   ws.DefaultDialer,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("conn_id", c.id).Str("endpoint", endpoint).Logger()
	return c
}

// Factory returns a client.Factory producing Clients with the given options.
func Factory(opts ...Option) client.Factory {
	return func(endpoint string, obs client.Observer) client.Conn {
		return New(endpoint, obs, opts...)
	}
}

// ID implements client.Conn.
func (c *Client) ID() string {
	return c.id
}

// Open implements client.Conn. Only the first call has an effect.
func (c *Client) Open(ctx context.Context) {
	c.mu.Lock()
	if c.opened || c.closed {
		c.mu.Unlock()
		return
	}
	c.opened = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx)
}

// IsConnected implements client.Conn.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.closed
}

// Subscribe implements client.Conn.
func (c *Client) Subscribe(fn func(data []byte)) func() {
	s := &subscription{fn: fn}

	c.mu.Lock()
	c.sub = s
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if c.sub == s {
			c.sub = nil
		}
		c.mu.Unlock()
	}
}

// Send implements client.Conn.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	conn := c.conn
	closed := c.closed
	c.mu.RUnlock()

	if conn == nil || closed {
		return client.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wsutil.WriteClientText(conn, data); err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}

// Close implements client.Conn. A close while dialing cancels the dial.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = wsutil.WriteClientMessage(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
	c.writeMu.Unlock()

	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return errors.Wrap(err, "failed to close connection")
	}
	return nil
}

// Wait blocks until the background goroutine has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()

	c.logger.Debug().Msg("Dialing")
	conn, br, _, err := c.dialer.Dial(ctx, c.endpoint)
	if err != nil {
		if c.isClosed() {
			c.reportClose()
			return
		}
		c.reportError(errors.Wrap(err, "failed to connect to server"))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		c.reportClose()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	var r io.Reader = conn
	if br != nil {
		r = br
	}

	c.logger.Info().Msg("Connected")
	c.observer.OnOpen()

	err = c.readLoop(r, conn)

	c.mu.Lock()
	closedLocally := c.closed
	c.closed = true
	c.conn = nil
	c.mu.Unlock()
	_ = conn.Close()

	if closedLocally || isClosure(err) {
		c.logger.Debug().Err(err).Msg("Read loop finished")
		c.reportClose()
		return
	}
	c.reportError(errors.Wrap(err, "failed to read from server"))
}

func (c *Client) readLoop(r io.Reader, conn net.Conn) error {
	rw := struct {
		io.Reader
		io.Writer
	}{r, &lockedWriter{mu: &c.writeMu, w: conn}}

	for {
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			return err
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}
		c.deliver(data)
	}
}

func (c *Client) deliver(data []byte) {
	c.mu.RLock()
	sub := c.sub
	c.mu.RUnlock()

	if sub == nil {
		c.logger.Debug().Int("bytes", len(data)).Msg("Dropping frame with no subscriber")
		return
	}
	sub.fn(data)
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) reportClose() {
	c.terminate.Do(func() {
		c.logger.Info().Msg("Connection closed")
		c.observer.OnClose()
	})
}

func (c *Client) reportError(err error) {
	c.terminate.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.logger.Error().Err(err).Msg("Connection failed")
		c.observer.OnError(err)
	})
}

// isClosure reports whether a read error means the peer or the network
// closed the connection, as opposed to a protocol failure.
func isClosure(err error) bool {
	if err == nil {
		return true
	}
	var closed wsutil.ClosedError
	if errors.As(err, &closed) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// lockedWriter serializes control frame replies with Send.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type nopObserver struct{}

func (nopObserver) OnOpen()       {}
func (nopObserver) OnClose()      {}
func (nopObserver) OnError(error) {}
